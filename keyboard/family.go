package keyboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/Einstein2150/nrf24-playset/helper"
	"github.com/Einstein2150/nrf24-playset/hid"
	"github.com/Einstein2150/nrf24-playset/nrf24"
)

// KeepAlive is a frame a Logitech receiver expects periodically while a
// device is connected.
type KeepAlive struct {
	Frame    []byte
	Interval time.Duration
}

// Family describes one supported device family: its radio plan, how its
// frames look and how to encode keystrokes for it.
type Family struct {
	Name        string
	Description string

	// MaterialLen is the captured key material length, 0 if none is needed.
	MaterialLen int

	Channels []int
	Dwell    time.Duration
	// HopWhileDiscovering keeps hopping channels in sniffer mode.
	HopWhileDiscovering bool
	// MinFrameLen is the minimum promiscuous response length accepted by
	// the scanner (address included).
	MinFrameLen int
	// AcceptAddress filters scanner hits, nil accepts all.
	AcceptAddress func(addr nrf24.Address) bool
	// RecordAfterScan makes the session record traffic right after a scan
	// instead of looking for key material.
	RecordAfterScan bool

	KeepAlive *KeepAlive
	// ReplayFrameLen restricts replayed frames to one length, 0 replays all.
	ReplayFrameLen int

	AckTimeout     byte
	Retries        byte
	KeystrokeDelay time.Duration

	newCodec func(layout *hid.Layout) Codec
}

func (f *Family) String() string {
	return f.Name
}

// CanAttack reports whether keystrokes can be encoded for the family.
func (f *Family) CanAttack() bool {
	return f.newCodec != nil
}

// NeedsMaterial reports whether key material has to be captured before an
// attack.
func (f *Family) NeedsMaterial() bool {
	return f.MaterialLen > 0
}

// Codec returns the family codec bound to layout.
func (f *Family) Codec(layout *hid.Layout) (Codec, error) {
	if f.newCodec == nil {
		return nil, fmt.Errorf("%w: %s supports replay only", helper.ErrUnsupportedDevice, f.Name)
	}
	return f.newCodec(layout), nil
}

// Accept applies the scanner address filter.
func (f *Family) Accept(addr nrf24.Address) bool {
	return f.AcceptAddress == nil || f.AcceptAddress(addr)
}

// Replayable reports whether a recorded frame is replayed for this family.
func (f *Family) Replayable(frame []byte) bool {
	return f.ReplayFrameLen == 0 || len(frame) == f.ReplayFrameLen
}

func channelRange(from, to int) (res []int) {
	for ch := from; ch <= to; ch++ {
		res = append(res, ch)
	}
	return
}

// Cherry dongles announce addresses whose last air byte is 0x31..0x3e.
func cherryAddress(addr nrf24.Address) bool {
	b := addr.Reverse()[0]
	return b >= 0x31 && b <= 0x3e
}

var families = map[string]*Family{
	"cherry": {
		Name:           "cherry",
		Description:    "Cherry B.Unlimited AES",
		MaterialLen:    16,
		Channels:       []int{6},
		Dwell:          100 * time.Millisecond,
		MinFrameLen:    nrf24.AddressLen,
		AcceptAddress:  cherryAddress,
		AckTimeout:     1,
		Retries:        15,
		KeystrokeDelay: 10 * time.Millisecond,
		newCodec:       newCherryCodec,
	},
	"perixx": {
		Name:                "perixx",
		Description:         "Perixx PERIDUO-710",
		MaterialLen:         16,
		Channels:            channelRange(2, 83),
		Dwell:               100 * time.Millisecond,
		HopWhileDiscovering: true,
		MinFrameLen:         nrf24.AddressLen + 5,
		AckTimeout:          1,
		Retries:             15,
		KeystrokeDelay:      10 * time.Millisecond,
		newCodec:            newPerixxCodec,
	},
	"logitech": {
		Name:                "logitech",
		Description:         "Logitech MK520 (replay)",
		Channels:            channelRange(2, 83),
		Dwell:               100 * time.Millisecond,
		HopWhileDiscovering: true,
		MinFrameLen:         nrf24.AddressLen,
		RecordAfterScan:     true,
		KeepAlive: &KeepAlive{
			Frame:    []byte{0x00, 0x40, 0x00, 0x5a, 0x66},
			Interval: 70 * time.Millisecond,
		},
		ReplayFrameLen: 22,
		AckTimeout:     1,
		Retries:        15,
		KeystrokeDelay: 10 * time.Millisecond,
	},
	"presenter": {
		Name:                "presenter",
		Description:         "Logitech R400/R700/R800 presenter",
		Channels:            channelRange(2, 83),
		Dwell:               100 * time.Millisecond,
		HopWhileDiscovering: true,
		MinFrameLen:         nrf24.AddressLen + 5,
		KeepAlive: &KeepAlive{
			Frame:    []byte{0x00, 0x40, 0x00, 0x50, 0x70},
			Interval: 60 * time.Millisecond,
		},
		AckTimeout:     1,
		Retries:        15,
		KeystrokeDelay: 10 * time.Millisecond,
		newCodec: func(layout *hid.Layout) Codec {
			return &presenterCodec{layout: layout}
		},
	},
}

// Lookup returns the named family.
func Lookup(name string) (*Family, error) {
	if f, ok := families[name]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %q", helper.ErrUnsupportedDevice, name)
}

// Names lists the supported family names, sorted.
func Names() (res []string) {
	for n := range families {
		res = append(res, n)
	}
	sort.Strings(res)
	return
}

// Redact renders key material for logs, showing only its first three bytes.
func Redact(material []byte) string {
	if len(material) == 0 {
		return "<none>"
	}
	n := 3
	if len(material) < n {
		n = len(material)
	}
	return fmt.Sprintf("%x... (%d bytes)", material[:n], len(material))
}
