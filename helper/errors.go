package helper

import "errors"

// Error taxonomy shared by all packages. Callers wrap these with context and
// test with errors.Is.
var (
	// ErrHardwareInit: dongle missing or not claimable. Fatal at startup.
	ErrHardwareInit = errors.New("radio hardware init failed")
	// ErrProtocolFormat: wrong length address or key, unmappable character, bad hex.
	ErrProtocolFormat = errors.New("protocol format error")
	// ErrTimeout: a bounded operation ran out of time. USB read timeouts are
	// absorbed by the transport and never surface as this error.
	ErrTimeout = errors.New("timeout")
	// ErrUnsupportedDevice: unknown device family or capability not offered by it.
	ErrUnsupportedDevice = errors.New("unsupported device")
)
