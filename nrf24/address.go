package nrf24

import (
	"fmt"

	"github.com/Einstein2150/nrf24-playset/helper"
)

const AddressLen = 5

// Address is an ESB device address in air order, the order promiscuous mode
// reports it in. Logs and the command line use the display order, which is
// reversed (see Display). The dongle's sniffer command also expects the
// reversed order.
type Address [AddressLen]byte

// Display renders the address in display order, e.g. "35:F2:94:C7:E2" for
// air order E2:C7:94:F2:35.
func (a Address) Display() string {
	return a.Reverse().String()
}

func (a Address) String() (res string) {
	for i, o := range a {
		if i > 0 {
			res += ":"
		}
		res += fmt.Sprintf("%02X", o)
	}
	return
}

func (a Address) Reverse() (res Address) {
	for i := range a {
		res[i] = a[len(a)-1-i]
	}
	return
}

func (a Address) Bytes() []byte {
	res := make([]byte, len(a))
	copy(res, a[:])
	return res
}

// AddressFromBytes takes the first five bytes of b and fails on shorter input.
func AddressFromBytes(b []byte) (a Address, err error) {
	if len(b) < AddressLen {
		return a, fmt.Errorf("%w: address needs %d bytes, got %d", helper.ErrProtocolFormat, AddressLen, len(b))
	}
	copy(a[:], b[:AddressLen])
	return a, nil
}

// ParseDisplayAddress reads an address in display order as printed by Display.
func ParseDisplayAddress(s string) (Address, error) {
	a, err := ParseAddress(s)
	if err != nil {
		return a, err
	}
	return a.Reverse(), nil
}

// ParseAddress reads air order "aa:bb:cc:dd:ee" (':' or '-' separated, or plain hex).
func ParseAddress(s string) (a Address, err error) {
	raw, err := helper.ParseHex(s)
	if err != nil {
		return a, err
	}
	if len(raw) != AddressLen {
		return a, fmt.Errorf("%w: address %q has %d bytes, want %d", helper.ErrProtocolFormat, s, len(raw), AddressLen)
	}
	copy(a[:], raw)
	return a, nil
}
