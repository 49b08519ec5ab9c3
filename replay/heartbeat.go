package replay

import (
	"fmt"
	"time"

	"github.com/Einstein2150/nrf24-playset/keyboard"
	"github.com/Einstein2150/nrf24-playset/nrf24"
	"github.com/Einstein2150/nrf24-playset/sched"
	"github.com/sirupsen/logrus"
)

// Heartbeat sends a keep-alive frame whenever Interval has passed since the
// previous one. The first Tick always sends.
type Heartbeat struct {
	Frame      []byte
	Interval   time.Duration
	AckTimeout byte
	Retries    byte

	radio nrf24.Radio
	clk   sched.Clock
	log   *logrus.Entry

	last  time.Duration
	sent  bool
	count int
}

func NewHeartbeat(radio nrf24.Radio, clk sched.Clock, frame []byte, interval time.Duration, ackTimeout, retries byte, log *logrus.Entry) *Heartbeat {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Heartbeat{
		Frame:      frame,
		Interval:   interval,
		AckTimeout: ackTimeout,
		Retries:    retries,
		radio:      radio,
		clk:        clk,
		log:        log.WithField("component", "keepalive"),
	}
}

// HeartbeatFor builds the keep-alive of a device family, nil if it needs none.
func HeartbeatFor(radio nrf24.Radio, clk sched.Clock, f *keyboard.Family, log *logrus.Entry) *Heartbeat {
	if f.KeepAlive == nil {
		return nil
	}
	return NewHeartbeat(radio, clk, f.KeepAlive.Frame, f.KeepAlive.Interval, f.AckTimeout, f.Retries, log)
}

// Tick transmits the keep-alive frame if it is due.
func (h *Heartbeat) Tick() error {
	now := h.clk.Now()
	if h.sent && now-h.last < h.Interval {
		return nil
	}
	if _, err := h.radio.Transmit(h.Frame, h.AckTimeout, h.Retries); err != nil {
		return fmt.Errorf("keep-alive: %w", err)
	}
	h.last = now
	h.sent = true
	h.count++
	h.log.WithField("data", fmt.Sprintf("%x", h.Frame)).Debug("TX keep-alive")
	return nil
}

// Until pauses for d while keeping up the keep-alive schedule.
func (h *Heartbeat) Until(d time.Duration) error {
	if h.Interval <= 0 {
		h.clk.Sleep(d)
		return nil
	}
	deadline := h.clk.Now() + d
	for {
		if err := h.Tick(); err != nil {
			return err
		}
		now := h.clk.Now()
		if now >= deadline {
			return nil
		}
		next := h.last + h.Interval
		if next > deadline {
			next = deadline
		}
		h.clk.Sleep(next - now)
	}
}

// Count is the number of keep-alive frames sent.
func (h *Heartbeat) Count() int {
	return h.count
}
