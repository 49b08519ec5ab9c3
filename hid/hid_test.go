package hid

import (
	"testing"

	"github.com/Einstein2150/nrf24-playset/helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCombo(t *testing.T) {
	tests := []struct {
		combo string
		mod   HIDMod
		key   HIDKey
	}{
		{"GUI_RIGHT+R", HID_MOD_KEY_RIGHT_GUI, HID_KEY_R},
		{"ctrl+alt+delete", HID_MOD_KEY_LEFT_CONTROL | HID_MOD_KEY_LEFT_ALT, HID_KEY_DELETE},
		{"ENTER", HID_MOD_KEY_NONE, HID_KEY_ENTER},
		{"KEY_F4", HID_MOD_KEY_NONE, HID_KEY_F4},
		{"MOD_SHIFT+ALTGR+q", HID_MOD_KEY_LEFT_SHIFT | HID_MOD_KEY_RIGHT_ALT, HID_KEY_Q},
		{"SHIFT", HID_MOD_KEY_LEFT_SHIFT, HID_KEY_NONE},
	}
	for _, tt := range tests {
		mod, key, err := ParseCombo(tt.combo)
		require.NoError(t, err, tt.combo)
		assert.Equal(t, tt.mod, mod, tt.combo)
		assert.Equal(t, tt.key, key, tt.combo)
	}
}

func TestParseComboErrors(t *testing.T) {
	for _, c := range []string{"", "GUI+", "R+GUI", "CTRL+NOPE", "A+B", "MOD_LEFT_SHIFT+a"} {
		_, _, err := ParseCombo(c)
		assert.ErrorIs(t, err, helper.ErrProtocolFormat, c)
	}
}

func TestKeyNamesRoundTrip(t *testing.T) {
	for _, n := range KeyNames() {
		k, err := ParseKey(n)
		require.NoError(t, err, n)
		back, err := ParseKey(k.String())
		require.NoError(t, err, n)
		assert.Equal(t, k, back, n)
	}
	assert.Equal(t, "KEY_F12", HID_KEY_F12.String())
	assert.Equal(t, "UNKNOWN_HID_CODE_FF", HIDKey(0xff).String())
	assert.Equal(t, "MOD_SHIFT+GUI_RIGHT", (HID_MOD_KEY_LEFT_SHIFT | HID_MOD_KEY_RIGHT_GUI).String())
}

func TestLayoutUS(t *testing.T) {
	us, err := LayoutByName("us")
	require.NoError(t, err)

	evs, err := us.Events("aZ1!\n")
	require.NoError(t, err)
	assert.Equal(t, []KeyEvent{
		{Key: HID_KEY_A},
		{Mod: HID_MOD_KEY_LEFT_SHIFT, Key: HID_KEY_Z},
		{Key: HID_KEY_1},
		{Mod: HID_MOD_KEY_LEFT_SHIFT, Key: HID_KEY_1},
		{Key: HID_KEY_ENTER},
	}, evs)

	ev, ok := us.Lookup('"')
	require.True(t, ok)
	assert.Equal(t, KeyEvent{Mod: HID_MOD_KEY_LEFT_SHIFT, Key: HID_KEY_APOSTROPHE}, ev)
}

func TestLayoutDE(t *testing.T) {
	de, err := LayoutByName("de")
	require.NoError(t, err)

	evs, err := de.Events("zy@")
	require.NoError(t, err)
	assert.Equal(t, []KeyEvent{
		{Key: HID_KEY_Y},
		{Key: HID_KEY_Z},
		{Mod: HID_MOD_KEY_RIGHT_ALT, Key: HID_KEY_Q},
	}, evs)

	ev, ok := de.Lookup('ö')
	require.True(t, ok)
	assert.Equal(t, HID_KEY_SEMICOLON, ev.Key)

	ev, ok = de.Lookup('-')
	require.True(t, ok)
	assert.Equal(t, KeyEvent{Key: HID_KEY_SLASH}, ev)
}

func TestLayoutUnmappable(t *testing.T) {
	us, err := LayoutByName("us")
	require.NoError(t, err)

	_, err = us.Events("abcä")
	assert.ErrorIs(t, err, helper.ErrProtocolFormat)

	_, err = LayoutByName("fr")
	assert.ErrorIs(t, err, helper.ErrProtocolFormat)
	assert.Equal(t, []string{"de", "us"}, LayoutNames())
}

func TestLayoutShiftedDigits(t *testing.T) {
	for _, name := range LayoutNames() {
		l, err := LayoutByName(name)
		require.NoError(t, err, name)
		ev, ok := l.Lookup('!')
		require.True(t, ok, name)
		assert.Equal(t, KeyEvent{Mod: HID_MOD_KEY_LEFT_SHIFT, Key: HID_KEY_1}, ev, name)
	}

	de, err := LayoutByName("de")
	require.NoError(t, err)
	for r, key := range map[rune]HIDKey{'§': HID_KEY_3, '$': HID_KEY_4, '/': HID_KEY_7, '=': HID_KEY_0} {
		ev, ok := de.Lookup(r)
		require.True(t, ok, string(r))
		assert.Equal(t, KeyEvent{Mod: HID_MOD_KEY_LEFT_SHIFT, Key: key}, ev, string(r))
	}

	us, err := LayoutByName("us")
	require.NoError(t, err)
	ev, ok := us.Lookup(')')
	require.True(t, ok)
	assert.Equal(t, KeyEvent{Mod: HID_MOD_KEY_LEFT_SHIFT, Key: HID_KEY_0}, ev)
}
