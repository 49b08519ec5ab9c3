// Package hid holds USB HID keyboard usage codes and the character layouts
// used to turn text into key events.
package hid

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Einstein2150/nrf24-playset/helper"
)

type HIDKey byte
type HIDMod byte

const (
	HID_KEY_NONE       HIDKey = 0x00
	HID_KEY_A          HIDKey = 0x04
	HID_KEY_B          HIDKey = 0x05
	HID_KEY_C          HIDKey = 0x06
	HID_KEY_D          HIDKey = 0x07
	HID_KEY_E          HIDKey = 0x08
	HID_KEY_F          HIDKey = 0x09
	HID_KEY_G          HIDKey = 0x0a
	HID_KEY_H          HIDKey = 0x0b
	HID_KEY_I          HIDKey = 0x0c
	HID_KEY_J          HIDKey = 0x0d
	HID_KEY_K          HIDKey = 0x0e
	HID_KEY_L          HIDKey = 0x0f
	HID_KEY_M          HIDKey = 0x10
	HID_KEY_N          HIDKey = 0x11
	HID_KEY_O          HIDKey = 0x12
	HID_KEY_P          HIDKey = 0x13
	HID_KEY_Q          HIDKey = 0x14
	HID_KEY_R          HIDKey = 0x15
	HID_KEY_S          HIDKey = 0x16
	HID_KEY_T          HIDKey = 0x17
	HID_KEY_U          HIDKey = 0x18
	HID_KEY_V          HIDKey = 0x19
	HID_KEY_W          HIDKey = 0x1a
	HID_KEY_X          HIDKey = 0x1b
	HID_KEY_Y          HIDKey = 0x1c
	HID_KEY_Z          HIDKey = 0x1d
	HID_KEY_1          HIDKey = 0x1e
	HID_KEY_2          HIDKey = 0x1f
	HID_KEY_3          HIDKey = 0x20
	HID_KEY_4          HIDKey = 0x21
	HID_KEY_5          HIDKey = 0x22
	HID_KEY_6          HIDKey = 0x23
	HID_KEY_7          HIDKey = 0x24
	HID_KEY_8          HIDKey = 0x25
	HID_KEY_9          HIDKey = 0x26
	HID_KEY_0          HIDKey = 0x27
	HID_KEY_ENTER      HIDKey = 0x28
	HID_KEY_ESC        HIDKey = 0x29
	HID_KEY_BACKSPACE  HIDKey = 0x2a
	HID_KEY_TAB        HIDKey = 0x2b
	HID_KEY_SPACE      HIDKey = 0x2c
	HID_KEY_MINUS      HIDKey = 0x2d // - and _ (US), ß and ? (DE)
	HID_KEY_EQUAL      HIDKey = 0x2e // = and + (US), ´ and ` (DE)
	HID_KEY_LEFTBRACE  HIDKey = 0x2f
	HID_KEY_RIGHTBRACE HIDKey = 0x30
	HID_KEY_BACKSLASH  HIDKey = 0x31
	HID_KEY_HASHTILDE  HIDKey = 0x32 // Non-US # and ~
	HID_KEY_SEMICOLON  HIDKey = 0x33
	HID_KEY_APOSTROPHE HIDKey = 0x34
	HID_KEY_GRAVE      HIDKey = 0x35
	HID_KEY_COMMA      HIDKey = 0x36
	HID_KEY_DOT        HIDKey = 0x37
	HID_KEY_SLASH      HIDKey = 0x38
	HID_KEY_CAPSLOCK   HIDKey = 0x39
	HID_KEY_F1         HIDKey = 0x3a
	HID_KEY_F2         HIDKey = 0x3b
	HID_KEY_F3         HIDKey = 0x3c
	HID_KEY_F4         HIDKey = 0x3d
	HID_KEY_F5         HIDKey = 0x3e
	HID_KEY_F6         HIDKey = 0x3f
	HID_KEY_F7         HIDKey = 0x40
	HID_KEY_F8         HIDKey = 0x41
	HID_KEY_F9         HIDKey = 0x42
	HID_KEY_F10        HIDKey = 0x43
	HID_KEY_F11        HIDKey = 0x44
	HID_KEY_F12        HIDKey = 0x45
	HID_KEY_SYSRQ      HIDKey = 0x46
	HID_KEY_INSERT     HIDKey = 0x49
	HID_KEY_HOME       HIDKey = 0x4a
	HID_KEY_PAGEUP     HIDKey = 0x4b
	HID_KEY_DELETE     HIDKey = 0x4c
	HID_KEY_END        HIDKey = 0x4d
	HID_KEY_PAGEDOWN   HIDKey = 0x4e
	HID_KEY_RIGHT      HIDKey = 0x4f
	HID_KEY_LEFT       HIDKey = 0x50
	HID_KEY_DOWN       HIDKey = 0x51
	HID_KEY_UP         HIDKey = 0x52
	HID_KEY_102ND      HIDKey = 0x64 // Non-US \ and |, < and > on DE
	HID_KEY_COMPOSE    HIDKey = 0x65
)

const (
	HID_MOD_KEY_NONE          HIDMod = 0x00
	HID_MOD_KEY_LEFT_CONTROL  HIDMod = 0x01
	HID_MOD_KEY_LEFT_SHIFT    HIDMod = 0x02
	HID_MOD_KEY_LEFT_ALT      HIDMod = 0x04
	HID_MOD_KEY_LEFT_GUI      HIDMod = 0x08
	HID_MOD_KEY_RIGHT_CONTROL HIDMod = 0x10
	HID_MOD_KEY_RIGHT_SHIFT   HIDMod = 0x20
	HID_MOD_KEY_RIGHT_ALT     HIDMod = 0x40 // AltGr
	HID_MOD_KEY_RIGHT_GUI     HIDMod = 0x80
)

var modNames = []struct {
	mod  HIDMod
	name string
}{
	{HID_MOD_KEY_LEFT_CONTROL, "CTRL"},
	{HID_MOD_KEY_LEFT_SHIFT, "SHIFT"},
	{HID_MOD_KEY_LEFT_ALT, "ALT"},
	{HID_MOD_KEY_LEFT_GUI, "GUI"},
	{HID_MOD_KEY_RIGHT_CONTROL, "CTRL_RIGHT"},
	{HID_MOD_KEY_RIGHT_SHIFT, "SHIFT_RIGHT"},
	{HID_MOD_KEY_RIGHT_ALT, "ALT_RIGHT"},
	{HID_MOD_KEY_RIGHT_GUI, "GUI_RIGHT"},
}

// aliases accepted by ParseCombo on top of the canonical names
var modAliases = map[string]HIDMod{
	"CONTROL":       HID_MOD_KEY_LEFT_CONTROL,
	"CTRL_LEFT":     HID_MOD_KEY_LEFT_CONTROL,
	"SHIFT_LEFT":    HID_MOD_KEY_LEFT_SHIFT,
	"ALT_LEFT":      HID_MOD_KEY_LEFT_ALT,
	"GUI_LEFT":      HID_MOD_KEY_LEFT_GUI,
	"WIN":           HID_MOD_KEY_LEFT_GUI,
	"ALTGR":         HID_MOD_KEY_RIGHT_ALT,
	"CONTROL_RIGHT": HID_MOD_KEY_RIGHT_CONTROL,
}

var keyNames = map[HIDKey]string{
	HID_KEY_NONE:       "NONE",
	HID_KEY_ENTER:      "ENTER",
	HID_KEY_ESC:        "ESC",
	HID_KEY_BACKSPACE:  "BACKSPACE",
	HID_KEY_TAB:        "TAB",
	HID_KEY_SPACE:      "SPACE",
	HID_KEY_MINUS:      "MINUS",
	HID_KEY_EQUAL:      "EQUAL",
	HID_KEY_LEFTBRACE:  "LEFTBRACE",
	HID_KEY_RIGHTBRACE: "RIGHTBRACE",
	HID_KEY_BACKSLASH:  "BACKSLASH",
	HID_KEY_HASHTILDE:  "HASHTILDE",
	HID_KEY_SEMICOLON:  "SEMICOLON",
	HID_KEY_APOSTROPHE: "APOSTROPHE",
	HID_KEY_GRAVE:      "GRAVE",
	HID_KEY_COMMA:      "COMMA",
	HID_KEY_DOT:        "DOT",
	HID_KEY_SLASH:      "SLASH",
	HID_KEY_CAPSLOCK:   "CAPSLOCK",
	HID_KEY_SYSRQ:      "SYSRQ",
	HID_KEY_INSERT:     "INSERT",
	HID_KEY_HOME:       "HOME",
	HID_KEY_PAGEUP:     "PAGEUP",
	HID_KEY_DELETE:     "DELETE",
	HID_KEY_END:        "END",
	HID_KEY_PAGEDOWN:   "PAGEDOWN",
	HID_KEY_RIGHT:      "RIGHT",
	HID_KEY_LEFT:       "LEFT",
	HID_KEY_DOWN:       "DOWN",
	HID_KEY_UP:         "UP",
	HID_KEY_102ND:      "102ND",
	HID_KEY_COMPOSE:    "COMPOSE",
}

var keyByName = func() map[string]HIDKey {
	for k := HID_KEY_A; k <= HID_KEY_Z; k++ {
		keyNames[k] = string(rune('A' + k - HID_KEY_A))
	}
	for k := HID_KEY_1; k <= HID_KEY_9; k++ {
		keyNames[k] = string(rune('1' + k - HID_KEY_1))
	}
	keyNames[HID_KEY_0] = "0"
	for k := HID_KEY_F1; k <= HID_KEY_F12; k++ {
		keyNames[k] = fmt.Sprintf("F%d", k-HID_KEY_F1+1)
	}

	res := make(map[string]HIDKey, len(keyNames)+2)
	for k, n := range keyNames {
		res[n] = k
	}
	res["RETURN"] = HID_KEY_ENTER
	res["ESCAPE"] = HID_KEY_ESC
	return res
}()

func (c HIDKey) String() string {
	if n, ok := keyNames[c]; ok {
		return "KEY_" + n
	}
	return fmt.Sprintf("UNKNOWN_HID_CODE_%02X", byte(c))
}

// String joins the names of all set modifier bits with '+'.
func (c HIDMod) String() string {
	if c == HID_MOD_KEY_NONE {
		return "MOD_NONE"
	}
	var parts []string
	for _, m := range modNames {
		if c&m.mod != 0 {
			parts = append(parts, m.name)
		}
	}
	return "MOD_" + strings.Join(parts, "+")
}

// ParseKey resolves a key name like "R", "ENTER" or "KEY_F4" (case insensitive).
func ParseKey(name string) (HIDKey, error) {
	n := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), "KEY_")
	if k, ok := keyByName[n]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: unknown key name %q", helper.ErrProtocolFormat, name)
}

func parseMod(name string) (HIDMod, bool) {
	n := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), "MOD_")
	for _, m := range modNames {
		if m.name == n {
			return m.mod, true
		}
	}
	m, ok := modAliases[n]
	return m, ok
}

// ParseCombo parses "MOD+MOD+KEY" combos such as "GUI_RIGHT+R" or
// "CTRL+ALT+DELETE". A combo of modifiers only yields HID_KEY_NONE.
func ParseCombo(combo string) (mod HIDMod, key HIDKey, err error) {
	parts := strings.Split(combo, "+")
	for i, p := range parts {
		if p == "" {
			return 0, 0, fmt.Errorf("%w: empty element in combo %q", helper.ErrProtocolFormat, combo)
		}
		if m, ok := parseMod(p); ok {
			mod |= m
			continue
		}
		if i != len(parts)-1 {
			return 0, 0, fmt.Errorf("%w: %q in combo %q is not a modifier", helper.ErrProtocolFormat, p, combo)
		}
		if key, err = ParseKey(p); err != nil {
			return 0, 0, err
		}
	}
	return mod, key, nil
}

// KeyNames lists all known key names, sorted.
func KeyNames() (res []string) {
	for n := range keyByName {
		res = append(res, n)
	}
	sort.Strings(res)
	return
}
