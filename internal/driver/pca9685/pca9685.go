package pca9685

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	pcadev "periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"

	"github.com/oshokin/walle-eyes/internal/domain/servo"
)

// Channels is the number of outputs of one controller.
const Channels = 16

var (
	// ErrChannelRange is returned for a channel outside 0..15.
	ErrChannelRange = errors.New("channel out of range")
	// ErrChannelInUse is returned when a channel is opened twice.
	ErrChannelInUse = errors.New("channel already open")
)

// controller is the part of pcadev.Dev the driver uses.
type controller interface {
	SetPwm(channel int, on, off gpio.Duty) error
	SetFullOff(channel int) error
}

// Driver hands out the channels of one controller.
type Driver struct {
	mu     sync.Mutex
	dev    controller
	bus    io.Closer
	opened map[int]*Output
}

// Open initializes the host, opens the I2C bus (empty name picks the first
// one) and configures the controller at address for 50 Hz.
func Open(busName string, address uint16) (*Driver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}

	dev, err := pcadev.NewI2C(bus, address)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("pca9685 at %#x: %w", address, err), bus.Close())
	}

	if err := dev.SetPwmFreq(servo.Frequency * physic.Hertz); err != nil {
		return nil, multierr.Append(fmt.Errorf("set pwm frequency: %w", err), bus.Close())
	}

	return newDriver(dev, bus), nil
}

func newDriver(dev controller, bus io.Closer) *Driver {
	return &Driver{
		dev:    dev,
		bus:    bus,
		opened: make(map[int]*Output),
	}
}

// Open claims channel and makes sure it is off.
func (d *Driver) Open(channel int) (servo.Output, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if channel < 0 || channel >= Channels {
		return nil, fmt.Errorf("%w: %d not in 0..%d", ErrChannelRange, channel, Channels-1)
	}

	if _, ok := d.opened[channel]; ok {
		return nil, fmt.Errorf("%w: %d", ErrChannelInUse, channel)
	}

	o := &Output{driver: d, channel: channel}
	if err := o.Disable(); err != nil {
		return nil, err
	}

	d.opened[channel] = o

	return o, nil
}

// Close turns every opened channel off and closes the bus.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error

	for channel := range d.opened {
		err = multierr.Append(err, d.fullOff(channel))

		delete(d.opened, channel)
	}

	if d.bus != nil {
		err = multierr.Append(err, d.bus.Close())
	}

	return err
}

func (d *Driver) setPwm(channel int, duty uint16) error {
	if err := d.dev.SetPwm(channel, 0, Counts(duty)); err != nil {
		return fmt.Errorf("pca9685 channel %d: %w", channel, err)
	}

	return nil
}

func (d *Driver) fullOff(channel int) error {
	if err := d.dev.SetFullOff(channel); err != nil {
		return fmt.Errorf("pca9685 channel %d off: %w", channel, err)
	}

	return nil
}

// Output is one controller channel.
type Output struct {
	driver  *Driver
	channel int
}

// Enable starts the pulse train. The controller runs continuously, so this
// is the same as SetDuty.
func (o *Output) Enable(duty uint16) error {
	return o.driver.setPwm(o.channel, duty)
}

// SetDuty changes the high time of the channel.
func (o *Output) SetDuty(duty uint16) error {
	return o.driver.setPwm(o.channel, duty)
}

// Disable holds the channel low.
func (o *Output) Disable() error {
	return o.driver.fullOff(o.channel)
}

// Counts converts a 16-bit duty to the controller's 12-bit off count.
func Counts(duty uint16) gpio.Duty {
	return gpio.Duty(duty >> 4)
}
