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

const (
	DefaultQuietTime  = 2 * time.Second
	DefaultMinPackets = 4
)

// Heartbeat is ticked before every receive, e.g. to keep a receiver awake.
type Heartbeat interface {
	Tick() error
}

type DiscoveryConfig struct {
	Channels []int
	Dwell    time.Duration
	Hop      bool

	QuietTime  time.Duration
	MinPackets int
	// MaterialLen is the required length of the captured frame, 0 skips
	// the check.
	MaterialLen int
	Timeout     time.Duration
}

func DiscoveryConfigFor(f *keyboard.Family) DiscoveryConfig {
	return DiscoveryConfig{
		Channels:    f.Channels,
		Dwell:       f.Dwell,
		Hop:         f.HopWhileDiscovering,
		QuietTime:   DefaultQuietTime,
		MinPackets:  DefaultMinPackets,
		MaterialLen: f.MaterialLen,
	}
}

type Discoverer struct {
	radio nrf24.Radio
	clk   sched.Clock
	cfg   DiscoveryConfig
	hb    Heartbeat
	log   *logrus.Entry
}

// NewDiscoverer builds a key-release detector. hb may be nil.
func NewDiscoverer(radio nrf24.Radio, clk sched.Clock, cfg DiscoveryConfig, hb Heartbeat, log *logrus.Entry) *Discoverer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.QuietTime <= 0 {
		cfg.QuietTime = DefaultQuietTime
	}
	if cfg.MinPackets <= 0 {
		cfg.MinPackets = DefaultMinPackets
	}
	return &Discoverer{radio: radio, clk: clk, cfg: cfg, hb: hb, log: log.WithField("component", "discovery")}
}

// Capture sniffs addr until the key-release heuristic fires and returns the
// last valid payload as key material.
func (d *Discoverer) Capture(ctx context.Context, addr nrf24.Address) (material []byte, err error) {
	if err = d.radio.EnterSnifferMode(addr); err != nil {
		return nil, err
	}
	var hop *hopper
	if d.cfg.Hop && len(d.cfg.Channels) > 0 {
		hop = newHopper(d.radio, d.clk, d.cfg.Channels, d.cfg.Dwell)
		if err = hop.start(); err != nil {
			return nil, err
		}
	}
	d.log.WithField("address", addr.Display()).Info("waiting for key release frame")

	packets := 0
	var lastValid time.Duration
	err = sched.Poll(ctx, d.clk, d.cfg.Timeout, func() (bool, error) {
		if d.hb != nil {
			if e := d.hb.Tick(); e != nil {
				return false, e
			}
		}
		if hop != nil {
			if e := hop.tick(); e != nil {
				return false, e
			}
		}
		resp, e := d.radio.Receive()
		if e != nil {
			return false, e
		}
		if payload, ok := nrf24.SplitSniffer(resp); ok {
			packets++
			lastValid = d.clk.Now()
			material = payload
			d.log.WithFields(logrus.Fields{"count": packets, "data": keyboard.Redact(payload)}).Debug("RX")
		}
		return packets >= d.cfg.MinPackets && d.clk.Now()-lastValid > d.cfg.QuietTime, nil
	})
	if err != nil {
		return nil, err
	}

	if d.cfg.MaterialLen > 0 && len(material) != d.cfg.MaterialLen {
		return nil, fmt.Errorf("%w: captured frame of %d bytes, expected %d", helper.ErrProtocolFormat, len(material), d.cfg.MaterialLen)
	}
	d.log.WithFields(logrus.Fields{"packets": packets, "material": keyboard.Redact(material)}).Info("captured key material")
	return material, nil
}
