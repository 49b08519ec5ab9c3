// Package nrf24test provides scripted stand-ins for the dongle: fake USB
// endpoints for transport tests and a fake Radio for everything above it.
package nrf24test

import (
	"context"
	"time"

	"github.com/Einstein2150/nrf24-playset/nrf24"
	"github.com/Einstein2150/nrf24-playset/sched"
)

// Response is one scripted Receive result. Advance moves the clock before the
// response is returned, modelling the time the frame took to arrive.
type Response struct {
	Data    []byte
	Advance time.Duration
}

// Call records a radio operation.
type Call struct {
	Op      string
	Channel byte
	Data    []byte
	At      time.Duration

	// AckTimeout and Retries are set for transmits.
	AckTimeout byte
	Retries    byte
}

// Radio replays a script of receive responses and records every call.
type Radio struct {
	Clock     *sched.Manual
	Responses []Response
	// IdleStep is how far the clock moves on a Receive once the script is
	// exhausted. The returned response is empty (read timeout).
	IdleStep time.Duration
	// TxStep is how far the clock moves per Transmit.
	TxStep time.Duration
	// Ack decides whether a transmitted frame is acknowledged. nil acks all.
	Ack func(channel byte, payload []byte) bool

	ReceiveErr  error
	TransmitErr error

	Calls   []Call
	Mode    string
	Address nrf24.Address
	Prefix  []byte

	channel byte
	next    int
}

func NewRadio(clk *sched.Manual) *Radio {
	return &Radio{
		Clock:    clk,
		IdleStep: time.Millisecond,
	}
}

func (r *Radio) record(op string, data []byte) {
	r.Calls = append(r.Calls, Call{
		Op:      op,
		Channel: r.channel,
		Data:    append([]byte{}, data...),
		At:      r.Clock.Now(),
	})
}

// Script appends responses to the receive script.
func (r *Radio) Script(responses ...Response) {
	r.Responses = append(r.Responses, responses...)
}

func (r *Radio) EnterPromiscuousMode(prefix []byte) error {
	r.Mode = "promiscuous"
	r.Prefix = append([]byte{}, prefix...)
	r.record("promiscuous", prefix)
	return nil
}

func (r *Radio) EnterSnifferMode(addr nrf24.Address) error {
	r.Mode = "sniffer"
	r.Address = addr
	r.record("sniffer", addr[:])
	return nil
}

func (r *Radio) SetChannel(channel int) (byte, error) {
	if channel > nrf24.MaxChannel {
		channel = nrf24.MaxChannel
	}
	if channel < 0 {
		channel = 0
	}
	r.channel = byte(channel)
	r.record("channel", []byte{r.channel})
	return r.channel, nil
}

func (r *Radio) Channel() byte {
	return r.channel
}

func (r *Radio) Transmit(payload []byte, ackTimeout byte, retries byte) (bool, error) {
	if r.TransmitErr != nil {
		return false, r.TransmitErr
	}
	r.record("tx", payload)
	r.Calls[len(r.Calls)-1].AckTimeout = ackTimeout
	r.Calls[len(r.Calls)-1].Retries = retries
	r.Clock.Advance(r.TxStep)
	if r.Ack == nil {
		return true, nil
	}
	return r.Ack(r.channel, payload), nil
}

func (r *Radio) Receive() ([]byte, error) {
	if r.ReceiveErr != nil {
		return nil, r.ReceiveErr
	}
	if r.next < len(r.Responses) {
		resp := r.Responses[r.next]
		r.next++
		r.Clock.Advance(resp.Advance)
		return append([]byte{}, resp.Data...), nil
	}
	r.Clock.Advance(r.IdleStep)
	return []byte{}, nil
}

func (r *Radio) EnableLNA() error {
	r.record("lna", nil)
	return nil
}

// Transmitted returns the payloads of all Transmit calls in order.
func (r *Radio) Transmitted() (res []Call) {
	for _, c := range r.Calls {
		if c.Op == "tx" {
			res = append(res, c)
		}
	}
	return
}

// Remaining is the number of unconsumed scripted responses.
func (r *Radio) Remaining() int {
	return len(r.Responses) - r.next
}

// Endpoints is a fake USB endpoint pair. Writes are recorded, reads are served
// from Reads in order; exhausted reads fail with ReadErr, defaulting to a
// context deadline (USB read timeout).
type Endpoints struct {
	Writes   [][]byte
	Reads    [][]byte
	ReadErr  error
	WriteErr error
}

func (e *Endpoints) WriteContext(ctx context.Context, buf []byte) (int, error) {
	if e.WriteErr != nil {
		return 0, e.WriteErr
	}
	e.Writes = append(e.Writes, append([]byte{}, buf...))
	return len(buf), nil
}

func (e *Endpoints) ReadContext(ctx context.Context, buf []byte) (int, error) {
	if len(e.Reads) == 0 {
		if e.ReadErr != nil {
			return 0, e.ReadErr
		}
		return 0, context.DeadlineExceeded
	}
	next := e.Reads[0]
	e.Reads = e.Reads[1:]
	return copy(buf, next), nil
}

var _ nrf24.Radio = (*Radio)(nil)
var _ nrf24.Endpoints = (*Endpoints)(nil)
