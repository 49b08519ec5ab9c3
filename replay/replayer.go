package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/Einstein2150/nrf24-playset/keyboard"
	"github.com/Einstein2150/nrf24-playset/nrf24"
	"github.com/Einstein2150/nrf24-playset/sched"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Delay      time.Duration
	AckTimeout byte
	Retries    byte
	// Filter selects the frames to transmit, nil sends all.
	Filter func(frame []byte) bool
}

func ConfigFor(f *keyboard.Family) Config {
	return Config{
		Delay:      f.KeystrokeDelay,
		AckTimeout: f.AckTimeout,
		Retries:    f.Retries,
		Filter:     f.Replayable,
	}
}

type Replayer struct {
	radio nrf24.Radio
	clk   sched.Clock
	cfg   Config
	hb    *Heartbeat
	log   *logrus.Entry
}

// NewReplayer builds a replayer. With a non-nil hb, keep-alive frames are
// interleaved and take priority over the inter-frame delay.
func NewReplayer(radio nrf24.Radio, clk sched.Clock, cfg Config, hb *Heartbeat, log *logrus.Entry) *Replayer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Replayer{radio: radio, clk: clk, cfg: cfg, hb: hb, log: log.WithField("component", "replay")}
}

func (r *Replayer) pause() error {
	if r.hb != nil {
		return r.hb.Until(r.cfg.Delay)
	}
	r.clk.Sleep(r.cfg.Delay)
	return nil
}

// Replay transmits frames in order and returns how many were sent.
func (r *Replayer) Replay(ctx context.Context, frames [][]byte) (sent int, err error) {
	for _, f := range frames {
		if err = ctx.Err(); err != nil {
			return
		}
		if r.cfg.Filter != nil && !r.cfg.Filter(f) {
			continue
		}
		if r.hb != nil {
			if err = r.hb.Tick(); err != nil {
				return
			}
		}

		acked, eTx := r.radio.Transmit(f, r.cfg.AckTimeout, r.cfg.Retries)
		if eTx != nil {
			return sent, fmt.Errorf("replaying frame %d: %w", sent, eTx)
		}
		sent++
		r.log.WithFields(logrus.Fields{"data": fmt.Sprintf("%x", f), "acked": acked}).Debug("TX")

		if err = r.pause(); err != nil {
			return
		}
	}
	return
}
