// Package sniff finds devices on air and captures their key material.
//
// Key-release discovery is a timing heuristic: after at least MinPackets
// valid frames, a quiet gap longer than QuietTime is taken to mean the last
// frame was a key release. A typist pausing mid-word triggers it just as
// well, so the captured material is only probably correct.
package sniff

import (
	"context"
	"fmt"
	"time"

	"github.com/Einstein2150/nrf24-playset/helper"
	"github.com/Einstein2150/nrf24-playset/keyboard"
	"github.com/Einstein2150/nrf24-playset/nrf24"
	"github.com/Einstein2150/nrf24-playset/sched"
	"github.com/sirupsen/logrus"
)

// PingPayload is transmitted to a known address to find its channel.
var PingPayload = []byte{0x0f, 0x0f, 0x0f, 0x0f}

type ScanConfig struct {
	Channels    []int
	Dwell       time.Duration
	MinFrameLen int
	// Prefix restricts promiscuous mode to addresses starting with it (air
	// order), empty listens to everything.
	Prefix []byte
	Accept func(addr nrf24.Address) bool
	// Confirm is asked about every new candidate, a rejected address is
	// ignored for the rest of the scan. nil takes the first candidate.
	Confirm func(res Result) bool
	// Timeout bounds the scan, <= 0 scans until cancelled.
	Timeout time.Duration
}

// ScanConfigFor builds the scan plan of a device family.
func ScanConfigFor(f *keyboard.Family) ScanConfig {
	return ScanConfig{
		Channels:    f.Channels,
		Dwell:       f.Dwell,
		MinFrameLen: f.MinFrameLen,
		Accept:      f.AcceptAddress,
	}
}

// Result is the first accepted promiscuous mode frame.
type Result struct {
	Address nrf24.Address
	Channel byte
	Payload []byte
}

type Scanner struct {
	radio nrf24.Radio
	clk   sched.Clock
	cfg   ScanConfig
	log   *logrus.Entry
}

func NewScanner(radio nrf24.Radio, clk sched.Clock, cfg ScanConfig, log *logrus.Entry) *Scanner {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.MinFrameLen < nrf24.AddressLen {
		cfg.MinFrameLen = nrf24.AddressLen
	}
	return &Scanner{radio: radio, clk: clk, cfg: cfg, log: log.WithField("component", "scanner")}
}

// hopper cycles through a channel list once the dwell time is used up.
type hopper struct {
	radio    nrf24.Radio
	channels []int
	dwell    time.Duration
	timer    *sched.Timer
	idx      int
}

func newHopper(radio nrf24.Radio, clk sched.Clock, channels []int, dwell time.Duration) *hopper {
	return &hopper{radio: radio, channels: channels, dwell: dwell, timer: sched.NewTimer(clk)}
}

func (h *hopper) start() (err error) {
	h.idx = 0
	_, err = h.radio.SetChannel(h.channels[0])
	h.timer.Reset()
	return
}

func (h *hopper) tick() (err error) {
	if len(h.channels) > 1 && h.timer.Elapsed() > h.dwell {
		h.idx = (h.idx + 1) % len(h.channels)
		_, err = h.radio.SetChannel(h.channels[h.idx])
		h.timer.Reset()
	}
	return
}

// Scan listens in promiscuous mode, hopping channels, until a frame from an
// accepted address arrives.
func (s *Scanner) Scan(ctx context.Context) (res *Result, err error) {
	if len(s.cfg.Channels) == 0 {
		return nil, fmt.Errorf("%w: empty channel list", helper.ErrProtocolFormat)
	}
	if err = s.radio.EnterPromiscuousMode(s.cfg.Prefix); err != nil {
		return nil, err
	}
	hop := newHopper(s.radio, s.clk, s.cfg.Channels, s.cfg.Dwell)
	if err = hop.start(); err != nil {
		return nil, err
	}
	s.log.WithField("channels", len(s.cfg.Channels)).Info("scanning for devices")

	rejected := make(map[nrf24.Address]bool)

	err = sched.Poll(ctx, s.clk, s.cfg.Timeout, func() (bool, error) {
		if e := hop.tick(); e != nil {
			return false, e
		}
		resp, e := s.radio.Receive()
		if e != nil {
			return false, e
		}
		if len(resp) < s.cfg.MinFrameLen {
			return false, nil
		}
		addr, payload, ok := nrf24.SplitPromiscuous(resp)
		if !ok {
			return false, nil
		}
		if s.cfg.Accept != nil && !s.cfg.Accept(addr) {
			s.log.WithField("address", addr.Display()).Debug("address rejected by filter")
			return false, nil
		}
		if rejected[addr] {
			return false, nil
		}
		cand := Result{Address: addr, Channel: s.radio.Channel(), Payload: payload}
		if s.cfg.Confirm != nil && !s.cfg.Confirm(cand) {
			s.log.WithField("address", addr.Display()).Info("candidate rejected")
			rejected[addr] = true
			return false, nil
		}
		res = &cand
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"address": res.Address.Display(), "channel": res.Channel}).Info("found device")
	return res, nil
}

// PingSweep looks for the channel of a known address by transmitting a ping
// on every channel until one is acknowledged. Each channel is tried rounds
// times.
func PingSweep(ctx context.Context, radio nrf24.Radio, addr nrf24.Address, channels []int, rounds int, log *logrus.Entry) (byte, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if rounds < 1 {
		rounds = 1
	}
	if err := radio.EnterSnifferMode(addr); err != nil {
		return 0, err
	}
	for r := 0; r < rounds; r++ {
		for _, ch := range channels {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			set, err := radio.SetChannel(ch)
			if err != nil {
				return 0, err
			}
			acked, err := radio.Transmit(PingPayload, 1, 1)
			if err != nil {
				return 0, err
			}
			if acked {
				log.WithFields(logrus.Fields{"address": addr.Display(), "channel": set}).Info("ping acknowledged")
				return set, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %s did not answer on %d channels", helper.ErrTimeout, addr, len(channels))
}
