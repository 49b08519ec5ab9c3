package nrf24

import (
	"fmt"
	"time"
)

// Frame is one captured radio frame.
type Frame struct {
	Channel   byte
	Timestamp time.Duration
	Address   Address
	Data      []byte
}

func (f Frame) String() string {
	return fmt.Sprintf("Channel %d, address %s, data: % x", f.Channel, f.Address.Display(), f.Data)
}

// SplitPromiscuous splits a promiscuous mode response into address and
// payload. Responses shorter than an address carry no frame.
func SplitPromiscuous(resp []byte) (addr Address, payload []byte, ok bool) {
	if len(resp) < AddressLen {
		return addr, nil, false
	}
	copy(addr[:], resp[:AddressLen])
	payload = append([]byte{}, resp[AddressLen:]...)
	return addr, payload, true
}

// SplitSniffer strips the status byte of a sniffer mode response. Only status
// 0x00 marks a received frame.
func SplitSniffer(resp []byte) (payload []byte, ok bool) {
	if len(resp) < 1 || resp[0] != 0x00 {
		return nil, false
	}
	return append([]byte{}, resp[1:]...), true
}
