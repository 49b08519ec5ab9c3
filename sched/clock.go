// Package sched replaces busy-wait timing loops with an explicit clock and a
// cancellable poll primitive, so scanning and capture loops can be bounded and
// aborted instead of blocking forever.
package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Einstein2150/nrf24-playset/helper"
	"github.com/loov/hrtime"
)

// Clock is a monotonic time source. Now is relative to an arbitrary origin.
type Clock interface {
	Now() time.Duration
	Sleep(d time.Duration)
}

// Monotonic is the wall clock used against real hardware.
type Monotonic struct{}

func (Monotonic) Now() time.Duration { return hrtime.Now() }

func (Monotonic) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// Manual is a clock that only moves when told to. Sleep advances it.
type Manual struct {
	mu  sync.Mutex
	now time.Duration
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Sleep(d time.Duration) {
	m.Advance(d)
}

func (m *Manual) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.now += d
	m.mu.Unlock()
}

// Timer measures elapsed time since its last reset.
type Timer struct {
	clk   Clock
	start time.Duration
}

func NewTimer(clk Clock) *Timer {
	return &Timer{clk: clk, start: clk.Now()}
}

func (t *Timer) Reset() {
	t.start = t.clk.Now()
}

func (t *Timer) Elapsed() time.Duration {
	return t.clk.Now() - t.start
}

// Poll calls step until it reports done, returns an error, ctx is cancelled or
// timeout has elapsed on clk. A timeout <= 0 means no deadline; cancellation
// through ctx is still honoured between steps.
func Poll(ctx context.Context, clk Clock, timeout time.Duration, step func() (done bool, err error)) error {
	started := clk.Now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if timeout > 0 && clk.Now()-started > timeout {
			return fmt.Errorf("%w: no result within %v", helper.ErrTimeout, timeout)
		}

		done, err := step()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}
