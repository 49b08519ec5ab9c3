package nrf24

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Einstein2150/nrf24-playset/helper"
	"github.com/google/gousb"
	"github.com/sirupsen/logrus"
)

const NRF24_DEFAULT_TIMEOUT = time.Millisecond * 2500 // sufficiently long for use in a VM

const (
	VendorID  gousb.ID = 0x1915
	ProductID gousb.ID = 0x0102
)

// Radio is the command set of the research firmware that the scanner,
// discovery, replay and session code drive. *NRF24 implements it.
type Radio interface {
	EnterPromiscuousMode(prefix []byte) error
	EnterSnifferMode(addr Address) error
	SetChannel(channel int) (byte, error)
	Channel() byte
	Transmit(payload []byte, ackTimeout byte, retries byte) (bool, error)
	Receive() ([]byte, error)
	EnableLNA() error
}

// Endpoints is the bulk endpoint pair of the dongle (OUT 0x01, IN 0x81).
type Endpoints interface {
	WriteContext(ctx context.Context, buf []byte) (int, error)
	ReadContext(ctx context.Context, buf []byte) (int, error)
}

type Options struct {
	Timeout  time.Duration // per USB transfer, defaults to NRF24_DEFAULT_TIMEOUT
	USBDebug int           // libusb debug level (0..3)
	Log      *logrus.Entry
}

type NRF24 struct {
	ep      Endpoints
	timeout time.Duration
	channel byte
	closer  func()

	log *logrus.Entry
}

type usbEndpoints struct {
	in  *gousb.InEndpoint
	out *gousb.OutEndpoint
}

func (u usbEndpoints) WriteContext(ctx context.Context, buf []byte) (int, error) {
	return u.out.WriteContext(ctx, buf)
}

func (u usbEndpoints) ReadContext(ctx context.Context, buf []byte) (int, error) {
	return u.in.ReadContext(ctx, buf)
}

// Open claims the first nRF24LU1+ dongle. Every failure wraps
// helper.ErrHardwareInit.
func Open(opts Options) (res *NRF24, err error) {
	ctx := gousb.NewContext()
	ctx.Debug(opts.USBDebug)

	fail := func(reason error) (*NRF24, error) {
		ctx.Close()
		return nil, fmt.Errorf("%w: %v", helper.ErrHardwareInit, reason)
	}

	device, err := ctx.OpenDeviceWithVIDPID(VendorID, ProductID)
	if err != nil {
		return fail(err)
	}
	if device == nil {
		return fail(errors.New("NRF24 device not found"))
	}

	// reset device
	device.Reset()
	device.SetAutoDetach(true)

	config, err := device.Config(1)
	if err != nil {
		device.Close()
		return fail(err)
	}

	// claim interface (idx 0, alt 0)
	iface, err := config.Interface(0, 0)
	if err != nil {
		config.Close()
		device.Close()
		return fail(err)
	}

	epIn, err := iface.InEndpoint(1)
	if err == nil {
		var epOut *gousb.OutEndpoint
		epOut, err = iface.OutEndpoint(1)
		if err == nil {
			res = NewNRF24(usbEndpoints{in: epIn, out: epOut}, opts)
			res.closer = func() {
				iface.Close()
				config.Close()
				device.Close()
				ctx.Close()
			}
			res.log.WithFields(logrus.Fields{"in": fmt.Sprint(epIn), "out": fmt.Sprint(epOut)}).Debug("dongle endpoints claimed")
			return res, nil
		}
	}

	iface.Close()
	config.Close()
	device.Close()
	return fail(err)
}

// NewNRF24 wraps an already claimed endpoint pair.
func NewNRF24(ep Endpoints, opts Options) *NRF24 {
	res := &NRF24{
		ep:      ep,
		timeout: opts.Timeout,
		log:     opts.Log,
	}
	if res.timeout <= 0 {
		res.timeout = NRF24_DEFAULT_TIMEOUT
	}
	if res.log == nil {
		res.log = logrus.NewEntry(logrus.StandardLogger())
	}
	res.log = res.log.WithField("component", "nrf24")
	return res
}

func (d *NRF24) Close() {
	if d.closer != nil {
		d.closer()
		d.closer = nil
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch err {
	case gousb.ErrorTimeout, gousb.TransferTimedOut, gousb.TransferCancelled:
		return true
	}
	return false
}

// SendCommand writes [command]+data and reads one bounded response block. A
// timeout on either transfer is not an error: the response is just empty.
func (d *NRF24) SendCommand(command Command, data []byte) (resp []byte, err error) {
	dataRaw := make([]byte, 0, 1+len(data))
	dataRaw = append(dataRaw, byte(command))
	dataRaw = append(dataRaw, data...)
	if len(dataRaw) > USBPacketSize {
		return nil, fmt.Errorf("%w: %s command of %d bytes exceeds USB packet size %d", helper.ErrProtocolFormat, command, len(dataRaw), USBPacketSize)
	}

	wctx, wcancel := context.WithTimeout(context.Background(), d.timeout)
	defer wcancel()
	for written := 0; written < len(dataRaw); {
		n, eW := d.ep.WriteContext(wctx, dataRaw[written:])
		if eW != nil {
			if isTimeout(eW) {
				d.log.WithField("command", command.String()).Debug("USB write timed out")
				return []byte{}, nil
			}
			return nil, fmt.Errorf("writing %s: %w", command, eW)
		}
		if n <= 0 {
			return nil, fmt.Errorf("writing %s: %w", command, io.ErrShortWrite)
		}
		written += n
	}

	rctx, rcancel := context.WithTimeout(context.Background(), d.timeout)
	defer rcancel()
	buf := make([]byte, USBPacketSize)
	n, eR := d.ep.ReadContext(rctx, buf)
	if eR != nil {
		if isTimeout(eR) {
			return []byte{}, nil
		}
		return nil, fmt.Errorf("reading %s response: %w", command, eR)
	}
	return buf[:n], nil
}

// EnterPromiscuousMode puts the radio in pseudo-promiscuous mode, optionally
// filtering on an address prefix given in air order.
func (d *NRF24) EnterPromiscuousMode(prefix []byte) (err error) {
	if len(prefix) > AddressLen {
		return fmt.Errorf("%w: address prefix of %d bytes", helper.ErrProtocolFormat, len(prefix))
	}
	data := []byte{byte(len(prefix))}
	data = append(data, prefix...)
	if _, err = d.SendCommand(ENTER_PROMISCUOUS_MODE, data); err != nil {
		return
	}
	d.log.WithField("prefix", fmt.Sprintf("% X", prefix)).Debug("entered promiscuous mode")
	return nil
}

// EnterSnifferMode puts the radio in ESB mode without auto-ack, bound to addr.
func (d *NRF24) EnterSnifferMode(addr Address) (err error) {
	rev := addr.Reverse()
	data := []byte{byte(AddressLen)}
	data = append(data, rev[:]...)
	if _, err = d.SendCommand(ENTER_SNIFFER_MODE, data); err != nil {
		return
	}
	d.log.WithField("address", addr.Display()).Debug("entered sniffer mode")
	return nil
}

// SetChannel tunes the radio, clamping into 0..MaxChannel, and returns the
// channel actually set.
func (d *NRF24) SetChannel(channel int) (byte, error) {
	if channel > MaxChannel {
		channel = MaxChannel
	}
	if channel < 0 {
		channel = 0
	}
	if _, err := d.SendCommand(SET_CHANNEL, []byte{byte(channel)}); err != nil {
		return d.channel, err
	}
	d.channel = byte(channel)
	return d.channel, nil
}

// Channel is the last channel set through SetChannel.
func (d *NRF24) Channel() byte {
	return d.channel
}

// GetChannel asks the dongle for its current channel.
func (d *NRF24) GetChannel() (ch byte, err error) {
	resp, err := d.SendCommand(GET_CHANNEL, []byte{})
	if err != nil {
		return 0, err
	}
	if len(resp) != 1 {
		return 0, fmt.Errorf("%w: GET_CHANNEL answered with %d bytes", helper.ErrProtocolFormat, len(resp))
	}
	return resp[0], nil
}

// Transmit sends an ESB payload. ackTimeout is in steps of 250us (0 = 250us),
// retries is 0..15. The result reports whether the frame was acknowledged.
func (d *NRF24) Transmit(payload []byte, ackTimeout byte, retries byte) (bool, error) {
	if len(payload) > MaxPayloadSize {
		return false, fmt.Errorf("%w: payload of %d bytes exceeds %d", helper.ErrProtocolFormat, len(payload), MaxPayloadSize)
	}
	data := []byte{byte(len(payload)), ackTimeout, retries}
	data = append(data, payload...)

	resp, err := d.SendCommand(TRANSMIT_PAYLOAD, data)
	if err != nil {
		return false, err
	}
	ok := len(resp) > 0 && resp[0] > 0
	d.log.WithFields(logrus.Fields{"data": fmt.Sprintf("%X", payload), "acked": ok}).Debug("TX")
	return ok, nil
}

// Receive polls for one frame. In promiscuous mode the response is address
// plus payload, in sniffer mode a status byte plus payload. An empty response
// means nothing was received.
func (d *NRF24) Receive() ([]byte, error) {
	return d.SendCommand(RECEIVE_PAYLOAD, []byte{})
}

// EnableLNA switches on the amplifier of CrazyRadio PA dongles.
func (d *NRF24) EnableLNA() (err error) {
	_, err = d.SendCommand(ENABLE_LNA_PA, []byte{})
	return
}
