package pca9685

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"

	"github.com/oshokin/walle-eyes/internal/domain/servo"
)

var errTestBus = errors.New("i2c nack")

type call struct {
	channel int
	off     gpio.Duty
	fullOff bool
}

type fakeController struct {
	calls []call
	fail  error
}

func (f *fakeController) SetPwm(channel int, _, off gpio.Duty) error {
	if f.fail != nil {
		return f.fail
	}

	f.calls = append(f.calls, call{channel: channel, off: off})

	return nil
}

func (f *fakeController) SetFullOff(channel int) error {
	if f.fail != nil {
		return f.fail
	}

	f.calls = append(f.calls, call{channel: channel, fullOff: true})

	return nil
}

type fakeBus struct{ closed bool }

func (b *fakeBus) Close() error {
	b.closed = true

	return nil
}

// TestCounts maps the servo range onto 12-bit counts of a 20 ms period.
func TestCounts(t *testing.T) {
	t.Parallel()

	require.Equal(t, gpio.Duty(307), Counts(servo.DutyFromPulse(1500)))
	require.Equal(t, gpio.Duty(102), Counts(servo.DutyFromPulse(500)))
	require.Equal(t, gpio.Duty(511), Counts(servo.DutyFromPulse(2500)))
	require.Equal(t, gpio.Duty(4095), Counts(servo.DutyMax))
}

// TestDriver_Lifecycle drives one channel and turns it off on Close.
func TestDriver_Lifecycle(t *testing.T) {
	t.Parallel()

	dev := new(fakeController)
	bus := new(fakeBus)
	d := newDriver(dev, bus)

	out, err := d.Open(12)
	require.NoError(t, err)

	require.NoError(t, out.Enable(servo.DutyFromPulse(2200)))
	require.NoError(t, out.SetDuty(servo.DutyFromPulse(2180)))
	require.NoError(t, out.Disable())

	require.Equal(t, []call{
		{channel: 12, fullOff: true},
		{channel: 12, off: Counts(servo.DutyFromPulse(2200))},
		{channel: 12, off: Counts(servo.DutyFromPulse(2180))},
		{channel: 12, fullOff: true},
	}, dev.calls)

	_, err = d.Open(12)
	require.ErrorIs(t, err, ErrChannelInUse)

	_, err = d.Open(Channels)
	require.ErrorIs(t, err, ErrChannelRange)

	require.NoError(t, d.Close())
	require.True(t, bus.closed)
	require.Equal(t, call{channel: 12, fullOff: true}, dev.calls[len(dev.calls)-1])
}

// TestDriver_Errors wraps controller failures with the channel.
func TestDriver_Errors(t *testing.T) {
	t.Parallel()

	dev := new(fakeController)
	d := newDriver(dev, nil)

	out, err := d.Open(3)
	require.NoError(t, err)

	dev.fail = errTestBus

	err = out.SetDuty(1000)
	require.ErrorIs(t, err, errTestBus)
	require.ErrorContains(t, err, "channel 3")

	require.ErrorIs(t, d.Close(), errTestBus)
}
