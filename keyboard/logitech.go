package keyboard

/*
Logitech RF frame layout, as far as it matters here

	[0]	device index
	[1]	frame type (masked with 0x1f for reports)
	...
	[n-1]	checksum: 0xff minus all preceding bytes, plus 1

Known lengths are 5 (keep-alive), 10 (plain reports, set keep-alive) and 22
(encrypted keyboard reports, pairing).
*/

type FrameType int

const (
	FT_UNKNOWN FrameType = iota
	FT_NOT_LOGITECH
	FT_INVALID_CHKSM
	FT_KEYBOARD
	FT_KEYBOARD_ENCRYPTED
	FT_MOUSE
	FT_MEDIA
	FT_LED_REPORT
	FT_NOTIFICATION_KEEP_ALIVE
	FT_SET_KEEP_ALIVE
)

func (t FrameType) String() string {
	switch t {
	case FT_NOT_LOGITECH:
		return "NOT LOGITECH"
	case FT_INVALID_CHKSM:
		return "INVALID CHECKSUM"
	case FT_KEYBOARD:
		return "UNENCRYPTED KEYBOARD REPORT"
	case FT_KEYBOARD_ENCRYPTED:
		return "ENCRYPTED KEYBOARD KEY REPORT"
	case FT_MOUSE:
		return "UNENCRYPTED MOUSE REPORT"
	case FT_MEDIA:
		return "UNENCRYPTED MEDIA KEY REPORT"
	case FT_LED_REPORT:
		return "LED REPORT"
	case FT_NOTIFICATION_KEEP_ALIVE:
		return "NOTIFICATION KEEP ALIVE"
	case FT_SET_KEEP_ALIVE:
		return "SET KEEP ALIVE"
	}
	return "UNKNOWN"
}

// LogitechChecksum returns the checksum over all but the last byte of frame.
func LogitechChecksum(frame []byte) byte {
	chksum := byte(0xff)
	for i := 0; i < len(frame)-1; i++ {
		chksum -= frame[i]
	}
	return chksum + 1
}

// FixLogitechChecksum stores the checksum in the last byte of frame.
func FixLogitechChecksum(frame []byte) {
	if len(frame) == 0 {
		return
	}
	frame[len(frame)-1] = LogitechChecksum(frame)
}

// ClassifyLogitech guesses the type of a Logitech RF frame. frame is not
// modified.
func ClassifyLogitech(frame []byte) FrameType {
	l := len(frame)
	if l != 5 && l != 10 && l != 22 {
		return FT_NOT_LOGITECH
	}
	if frame[l-1] != LogitechChecksum(frame) {
		return FT_INVALID_CHKSM
	}

	rfType := frame[1]
	switch {
	case rfType == 0x40 && l == 5:
		return FT_NOTIFICATION_KEEP_ALIVE
	case rfType == 0x4f && l == 10:
		return FT_SET_KEEP_ALIVE
	case rfType&0x1f == 0x0e:
		return FT_LED_REPORT
	case rfType&0x1f == 0x13 && l == 22:
		return FT_KEYBOARD_ENCRYPTED
	case rfType&0x1f == 0x01:
		return FT_KEYBOARD
	case rfType&0x1f == 0x02:
		return FT_MOUSE
	case rfType&0x1f == 0x03:
		return FT_MEDIA
	}
	return FT_UNKNOWN
}
