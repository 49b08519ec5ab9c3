package hid

import (
	"fmt"
	"sort"

	"github.com/Einstein2150/nrf24-playset/helper"
)

// KeyEvent is one key press: a modifier mask plus a single usage code.
type KeyEvent struct {
	Mod HIDMod
	Key HIDKey
}

func (e KeyEvent) String() string {
	return fmt.Sprintf("%s %s", e.Mod, e.Key)
}

// Layout maps characters to the key events producing them on a host with the
// matching keyboard layout configured.
type Layout struct {
	Name string
	keys map[rune]KeyEvent
}

// Lookup returns the key event for r.
func (l *Layout) Lookup(r rune) (KeyEvent, bool) {
	ev, ok := l.keys[r]
	return ev, ok
}

// Events maps every rune of text, failing on the first one the layout cannot
// produce.
func (l *Layout) Events(text string) ([]KeyEvent, error) {
	res := make([]KeyEvent, 0, len(text))
	for i, r := range text {
		ev, ok := l.keys[r]
		if !ok {
			return nil, fmt.Errorf("%w: character %q at offset %d has no mapping in layout %s", helper.ErrProtocolFormat, r, i, l.Name)
		}
		res = append(res, ev)
	}
	return res, nil
}

const (
	shift = HID_MOD_KEY_LEFT_SHIFT
	altGr = HID_MOD_KEY_RIGHT_ALT
)

var layouts = map[string]*Layout{
	"us": newLayout("us", usKeys()),
	"de": newLayout("de", deKeys()),
}

func newLayout(name string, keys map[rune]KeyEvent) *Layout {
	keys[' '] = KeyEvent{Key: HID_KEY_SPACE}
	keys['\n'] = KeyEvent{Key: HID_KEY_ENTER}
	keys['\t'] = KeyEvent{Key: HID_KEY_TAB}
	return &Layout{Name: name, keys: keys}
}

// LayoutByName returns the named layout ("us" or "de").
func LayoutByName(name string) (*Layout, error) {
	if l, ok := layouts[name]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("%w: unknown keyboard layout %q", helper.ErrProtocolFormat, name)
}

func LayoutNames() (res []string) {
	for n := range layouts {
		res = append(res, n)
	}
	sort.Strings(res)
	return
}

func addLetters(m map[rune]KeyEvent) {
	for k := HID_KEY_A; k <= HID_KEY_Z; k++ {
		off := rune(k - HID_KEY_A)
		m['a'+off] = KeyEvent{Key: k}
		m['A'+off] = KeyEvent{Mod: shift, Key: k}
	}
	for k := HID_KEY_1; k <= HID_KEY_9; k++ {
		m['1'+rune(k-HID_KEY_1)] = KeyEvent{Key: k}
	}
	m['0'] = KeyEvent{Key: HID_KEY_0}
}

func put(m map[rune]KeyEvent, mod HIDMod, key HIDKey, runes string) {
	for _, r := range runes {
		m[r] = KeyEvent{Mod: mod, Key: key}
	}
}

func usKeys() map[rune]KeyEvent {
	m := make(map[rune]KeyEvent)
	addLetters(m)

	digits := []HIDKey{HID_KEY_1, HID_KEY_2, HID_KEY_3, HID_KEY_4, HID_KEY_5, HID_KEY_6, HID_KEY_7, HID_KEY_8, HID_KEY_9, HID_KEY_0}
	for i, r := range []rune("!@#$%^&*()") {
		m[r] = KeyEvent{Mod: shift, Key: digits[i]}
	}

	for _, p := range []struct {
		key          HIDKey
		plain, upper rune
	}{
		{HID_KEY_MINUS, '-', '_'},
		{HID_KEY_EQUAL, '=', '+'},
		{HID_KEY_LEFTBRACE, '[', '{'},
		{HID_KEY_RIGHTBRACE, ']', '}'},
		{HID_KEY_BACKSLASH, '\\', '|'},
		{HID_KEY_SEMICOLON, ';', ':'},
		{HID_KEY_APOSTROPHE, '\'', '"'},
		{HID_KEY_GRAVE, '`', '~'},
		{HID_KEY_COMMA, ',', '<'},
		{HID_KEY_DOT, '.', '>'},
		{HID_KEY_SLASH, '/', '?'},
	} {
		m[p.plain] = KeyEvent{Key: p.key}
		m[p.upper] = KeyEvent{Mod: shift, Key: p.key}
	}
	return m
}

// German T1 (QWERTZ)
func deKeys() map[rune]KeyEvent {
	m := make(map[rune]KeyEvent)
	addLetters(m)
	put(m, 0, HID_KEY_Z, "y")
	put(m, shift, HID_KEY_Z, "Y")
	put(m, 0, HID_KEY_Y, "z")
	put(m, shift, HID_KEY_Y, "Z")

	digits := []HIDKey{HID_KEY_1, HID_KEY_2, HID_KEY_3, HID_KEY_4, HID_KEY_5, HID_KEY_6, HID_KEY_7, HID_KEY_8, HID_KEY_9, HID_KEY_0}
	for i, r := range []rune("!\"§$%&/()=") {
		m[r] = KeyEvent{Mod: shift, Key: digits[i]}
	}

	put(m, 0, HID_KEY_MINUS, "ß")
	put(m, shift, HID_KEY_MINUS, "?")
	put(m, 0, HID_KEY_EQUAL, "´")
	put(m, shift, HID_KEY_EQUAL, "`")
	put(m, 0, HID_KEY_LEFTBRACE, "ü")
	put(m, shift, HID_KEY_LEFTBRACE, "Ü")
	put(m, 0, HID_KEY_RIGHTBRACE, "+")
	put(m, shift, HID_KEY_RIGHTBRACE, "*")
	put(m, 0, HID_KEY_HASHTILDE, "#")
	put(m, shift, HID_KEY_HASHTILDE, "'")
	put(m, 0, HID_KEY_SEMICOLON, "ö")
	put(m, shift, HID_KEY_SEMICOLON, "Ö")
	put(m, 0, HID_KEY_APOSTROPHE, "ä")
	put(m, shift, HID_KEY_APOSTROPHE, "Ä")
	put(m, 0, HID_KEY_GRAVE, "^")
	put(m, shift, HID_KEY_GRAVE, "°")
	put(m, 0, HID_KEY_COMMA, ",")
	put(m, shift, HID_KEY_COMMA, ";")
	put(m, 0, HID_KEY_DOT, ".")
	put(m, shift, HID_KEY_DOT, ":")
	put(m, 0, HID_KEY_SLASH, "-")
	put(m, shift, HID_KEY_SLASH, "_")
	put(m, 0, HID_KEY_102ND, "<")
	put(m, shift, HID_KEY_102ND, ">")

	put(m, altGr, HID_KEY_Q, "@")
	put(m, altGr, HID_KEY_E, "€")
	put(m, altGr, HID_KEY_M, "µ")
	put(m, altGr, HID_KEY_2, "²")
	put(m, altGr, HID_KEY_3, "³")
	put(m, altGr, HID_KEY_7, "{")
	put(m, altGr, HID_KEY_8, "[")
	put(m, altGr, HID_KEY_9, "]")
	put(m, altGr, HID_KEY_0, "}")
	put(m, altGr, HID_KEY_MINUS, "\\")
	put(m, altGr, HID_KEY_RIGHTBRACE, "~")
	put(m, altGr, HID_KEY_102ND, "|")
	return m
}
