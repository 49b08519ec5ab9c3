package sniff

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Einstein2150/nrf24-playset/helper"
	"github.com/Einstein2150/nrf24-playset/keyboard"
	"github.com/Einstein2150/nrf24-playset/nrf24"
	"github.com/Einstein2150/nrf24-playset/nrf24/nrf24test"
	"github.com/Einstein2150/nrf24-playset/sched"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLog() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

func sniffed(fill byte) nrf24test.Response {
	data := make([]byte, 17)
	for i := 1; i < len(data); i++ {
		data[i] = fill
	}
	return nrf24test.Response{Data: data, Advance: 20 * time.Millisecond}
}

func promiscuous(addr nrf24.Address, payload ...byte) nrf24test.Response {
	return nrf24test.Response{Data: append(addr[:], payload...), Advance: time.Millisecond}
}

var target = nrf24.Address{0xe2, 0xc7, 0x94, 0xf2, 0x35}

type countingHeartbeat struct {
	ticks int
}

func (h *countingHeartbeat) Tick() error {
	h.ticks++
	return nil
}

func TestCaptureReturnsLastFrameAfterQuietGap(t *testing.T) {
	clk := sched.NewManual()
	radio := nrf24test.NewRadio(clk)
	radio.IdleStep = 10 * time.Millisecond
	radio.Script(sniffed(1), sniffed(2), sniffed(3), sniffed(4))

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	hb := &countingHeartbeat{}

	d := NewDiscoverer(radio, clk, DiscoveryConfig{MaterialLen: 16}, hb, logrus.NewEntry(logger))
	material, err := d.Capture(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, append([]byte{}, sniffed(4).Data[1:]...), material)
	assert.Equal(t, "sniffer", radio.Mode)
	assert.Equal(t, target, radio.Address)
	// 4 frames at 20ms, then > 2s of idle receives at 10ms each
	assert.GreaterOrEqual(t, clk.Now(), 2080*time.Millisecond)
	assert.Less(t, clk.Now(), 2200*time.Millisecond)
	assert.Greater(t, hb.ticks, 200)

	for _, e := range hook.AllEntries() {
		for _, v := range e.Data {
			assert.NotContains(t, fmt.Sprint(v), strings.Repeat("04", 16))
		}
	}
	assert.Equal(t, "captured key material", hook.LastEntry().Message)
}

func TestCaptureThreeFramesDoesNotTerminate(t *testing.T) {
	clk := sched.NewManual()
	radio := nrf24test.NewRadio(clk)
	radio.IdleStep = 10 * time.Millisecond
	radio.Script(sniffed(1), sniffed(2), sniffed(3))

	d := NewDiscoverer(radio, clk, DiscoveryConfig{MaterialLen: 16, Timeout: 5 * time.Second}, nil, quietLog())
	_, err := d.Capture(context.Background(), target)
	assert.ErrorIs(t, err, helper.ErrTimeout)
}

func TestCaptureQuietGapResetsOnNewFrame(t *testing.T) {
	clk := sched.NewManual()
	radio := nrf24test.NewRadio(clk)
	radio.IdleStep = 10 * time.Millisecond
	radio.Script(sniffed(1), sniffed(2), sniffed(3), sniffed(4))
	// a 1.5s pause is not enough, the fifth frame is the key release
	radio.Script(nrf24test.Response{Data: []byte{}, Advance: 1500 * time.Millisecond}, sniffed(5))

	d := NewDiscoverer(radio, clk, DiscoveryConfig{MaterialLen: 16}, nil, quietLog())
	material, err := d.Capture(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, sniffed(5).Data[1:], material)
}

func TestCaptureIgnoresInvalidStatus(t *testing.T) {
	clk := sched.NewManual()
	radio := nrf24test.NewRadio(clk)
	radio.IdleStep = 10 * time.Millisecond
	bad := nrf24test.Response{Data: []byte{0xff}, Advance: time.Millisecond}
	radio.Script(sniffed(1), bad, sniffed(2), bad, sniffed(3), bad, bad)

	d := NewDiscoverer(radio, clk, DiscoveryConfig{Timeout: 3 * time.Second}, nil, quietLog())
	_, err := d.Capture(context.Background(), target)
	assert.ErrorIs(t, err, helper.ErrTimeout)
}

func TestCaptureWrongMaterialLength(t *testing.T) {
	clk := sched.NewManual()
	radio := nrf24test.NewRadio(clk)
	radio.IdleStep = 10 * time.Millisecond
	short := nrf24test.Response{Data: []byte{0x00, 0xaa, 0xbb}, Advance: time.Millisecond}
	radio.Script(short, short, short, short)

	d := NewDiscoverer(radio, clk, DiscoveryConfig{MaterialLen: 16}, nil, quietLog())
	_, err := d.Capture(context.Background(), target)
	assert.ErrorIs(t, err, helper.ErrProtocolFormat)
}

func TestCaptureHopsChannels(t *testing.T) {
	clk := sched.NewManual()
	radio := nrf24test.NewRadio(clk)
	radio.IdleStep = 10 * time.Millisecond

	cfg := DiscoveryConfig{Channels: []int{2, 3, 4}, Dwell: 100 * time.Millisecond, Hop: true, Timeout: 500 * time.Millisecond}
	d := NewDiscoverer(radio, clk, cfg, nil, quietLog())
	_, err := d.Capture(context.Background(), target)
	require.ErrorIs(t, err, helper.ErrTimeout)

	var tuned []byte
	for _, c := range radio.Calls {
		if c.Op == "channel" {
			tuned = append(tuned, c.Data[0])
		}
	}
	require.GreaterOrEqual(t, len(tuned), 4)
	assert.Equal(t, []byte{2, 3, 4, 2}, tuned[:4])
}

func TestCaptureWithoutHopStaysOnChannel(t *testing.T) {
	clk := sched.NewManual()
	radio := nrf24test.NewRadio(clk)
	radio.IdleStep = 10 * time.Millisecond

	cherry, err := keyboard.Lookup("cherry")
	require.NoError(t, err)
	cfg := DiscoveryConfigFor(cherry)
	cfg.Timeout = time.Second

	_, err = NewDiscoverer(radio, clk, cfg, nil, quietLog()).Capture(context.Background(), target)
	require.ErrorIs(t, err, helper.ErrTimeout)
	for _, c := range radio.Calls {
		assert.NotEqual(t, "channel", c.Op)
	}
}

func TestCaptureCancelled(t *testing.T) {
	clk := sched.NewManual()
	radio := nrf24test.NewRadio(clk)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDiscoverer(radio, clk, DiscoveryConfig{}, nil, quietLog()).Capture(ctx, target)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanFindsAcceptedAddress(t *testing.T) {
	clk := sched.NewManual()
	radio := nrf24test.NewRadio(clk)
	radio.IdleStep = 10 * time.Millisecond

	other := nrf24.Address{0x11, 0x22, 0x33, 0x44, 0x55}
	radio.Script(
		nrf24test.Response{Data: []byte{0x01, 0x02}, Advance: time.Millisecond},
		promiscuous(other, 0xaa),
		promiscuous(target, 0xbb, 0xcc),
	)

	cherry, err := keyboard.Lookup("cherry")
	require.NoError(t, err)
	s := NewScanner(radio, clk, ScanConfigFor(cherry), quietLog())
	res, err := s.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, target, res.Address)
	assert.Equal(t, byte(6), res.Channel)
	assert.Equal(t, []byte{0xbb, 0xcc}, res.Payload)
	assert.Equal(t, "promiscuous", radio.Mode)
	assert.Equal(t, 0, radio.Remaining())
}

func TestScanHopsAfterDwell(t *testing.T) {
	clk := sched.NewManual()
	radio := nrf24test.NewRadio(clk)
	radio.IdleStep = 30 * time.Millisecond
	for i := 0; i < 8; i++ {
		radio.Script(nrf24test.Response{Data: []byte{}, Advance: 30 * time.Millisecond})
	}
	radio.Script(promiscuous(target))

	cfg := ScanConfig{Channels: []int{10, 20, 30}, Dwell: 100 * time.Millisecond}
	res, err := NewScanner(radio, clk, cfg, quietLog()).Scan(context.Background())
	require.NoError(t, err)
	// 9 receives of 30ms with a 100ms dwell: hops after the 4th and 8th
	assert.Equal(t, byte(30), res.Channel)
}

func TestScanPrefixAndTimeout(t *testing.T) {
	clk := sched.NewManual()
	radio := nrf24test.NewRadio(clk)
	radio.IdleStep = 10 * time.Millisecond

	cfg := ScanConfig{Channels: []int{2}, Prefix: []byte{0xe2, 0xc7}, Timeout: 200 * time.Millisecond}
	_, err := NewScanner(radio, clk, cfg, quietLog()).Scan(context.Background())
	assert.ErrorIs(t, err, helper.ErrTimeout)
	assert.Equal(t, []byte{0xe2, 0xc7}, radio.Prefix)

	_, err = NewScanner(radio, clk, ScanConfig{}, quietLog()).Scan(context.Background())
	assert.ErrorIs(t, err, helper.ErrProtocolFormat)
}

func TestPingSweep(t *testing.T) {
	clk := sched.NewManual()
	radio := nrf24test.NewRadio(clk)
	radio.Ack = func(channel byte, payload []byte) bool {
		return channel == 40
	}

	ch, err := PingSweep(context.Background(), radio, target, []int{2, 20, 40, 60}, 1, quietLog())
	require.NoError(t, err)
	assert.Equal(t, byte(40), ch)
	assert.Equal(t, "sniffer", radio.Mode)

	tx := radio.Transmitted()
	require.Len(t, tx, 3)
	for _, c := range tx {
		assert.Equal(t, PingPayload, c.Data)
	}
}

func TestPingSweepNoAnswer(t *testing.T) {
	clk := sched.NewManual()
	radio := nrf24test.NewRadio(clk)
	radio.Ack = func(byte, []byte) bool { return false }

	_, err := PingSweep(context.Background(), radio, target, []int{2, 3}, 2, quietLog())
	assert.ErrorIs(t, err, helper.ErrTimeout)
	assert.Len(t, radio.Transmitted(), 4)
}

func TestScanPerixxNeedsPayload(t *testing.T) {
	clk := sched.NewManual()
	radio := nrf24test.NewRadio(clk)
	radio.IdleStep = 10 * time.Millisecond
	radio.Script(
		promiscuous(nrf24.Address{1, 2, 3, 4, 5}),
		promiscuous(target, 0x01, 0x02, 0x03, 0x04, 0x05),
	)

	perixx, err := keyboard.Lookup("perixx")
	require.NoError(t, err)
	res, err := NewScanner(radio, clk, ScanConfigFor(perixx), quietLog()).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, target, res.Address)
}

func TestScanConfirmRejectsCandidate(t *testing.T) {
	clk := sched.NewManual()
	radio := nrf24test.NewRadio(clk)
	radio.IdleStep = 10 * time.Millisecond

	other := nrf24.Address{0x11, 0x22, 0x33, 0x44, 0x55}
	radio.Script(
		promiscuous(other, 0xaa),
		promiscuous(other, 0xab),
		promiscuous(target, 0xbb),
	)

	var asked []nrf24.Address
	cfg := ScanConfig{
		Channels: []int{2},
		Confirm: func(res Result) bool {
			asked = append(asked, res.Address)
			return res.Address == target
		},
	}
	res, err := NewScanner(radio, clk, cfg, quietLog()).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, target, res.Address)
	// a rejected address is not offered again
	assert.Equal(t, []nrf24.Address{other, target}, asked)
}
