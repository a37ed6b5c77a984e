package sim

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/oshokin/walle-eyes/internal/domain/servo"
)

var (
	// ErrChannelInUse is returned when a channel is opened twice.
	ErrChannelInUse = errors.New("channel already open")
	// ErrClosed is returned by a driver or output used after Close.
	ErrClosed = errors.New("driver closed")
)

// EventKind tells which output call produced an event.
type EventKind string

// Output calls.
const (
	EventEnable  EventKind = "enable"
	EventDuty    EventKind = "duty"
	EventDisable EventKind = "disable"
)

// Event is one recorded output call.
type Event struct {
	Kind EventKind
	Duty uint16
	At   time.Time
}

// Driver hands out simulated outputs.
type Driver struct {
	mu      sync.Mutex
	outputs map[int]*Output
	closed  bool
}

// New creates an empty simulated driver.
func New() *Driver {
	return &Driver{outputs: make(map[int]*Output)}
}

// Open claims channel.
func (d *Driver) Open(channel int) (servo.Output, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}

	if _, ok := d.outputs[channel]; ok {
		return nil, fmt.Errorf("%w: %d", ErrChannelInUse, channel)
	}

	o := &Output{channel: channel}
	d.outputs[channel] = o

	return o, nil
}

// Output returns the output opened on channel.
func (d *Driver) Output(channel int) (*Output, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	o, ok := d.outputs[channel]

	return o, ok
}

// Channels returns the opened channels in ascending order.
func (d *Driver) Channels() []int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return slices.Sorted(maps.Keys(d.outputs))
}

// Close disables every output. Later calls on outputs fail with ErrClosed.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}

	d.closed = true

	var err error

	for _, channel := range slices.Sorted(maps.Keys(d.outputs)) {
		o := d.outputs[channel]
		if o.Enabled() {
			err = multierr.Append(err, o.Disable())
		}

		o.close()
	}

	return err
}

// Output is a simulated PWM line.
type Output struct {
	mu      sync.Mutex
	channel int
	enabled bool
	duty    uint16
	writes  int
	events  []Event
	fail    error
	closed  bool
}

// Enable starts the simulated pulse train.
func (o *Output) Enable(duty uint16) error {
	return o.record(EventEnable, duty, func() {
		o.enabled = true
		o.duty = duty
	})
}

// SetDuty changes the duty.
func (o *Output) SetDuty(duty uint16) error {
	return o.record(EventDuty, duty, func() {
		o.duty = duty
		o.writes++
	})
}

// Disable stops the pulse train.
func (o *Output) Disable() error {
	return o.record(EventDisable, 0, func() {
		o.enabled = false
	})
}

// Fail makes every later call return err; nil clears the failure.
func (o *Output) Fail(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.fail = err
}

// Channel returns the channel the output was opened on.
func (o *Output) Channel() int { return o.channel }

// Enabled reports whether the pulse train is running.
func (o *Output) Enabled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.enabled
}

// Duty returns the last duty applied.
func (o *Output) Duty() uint16 {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.duty
}

// Writes returns the number of SetDuty calls.
func (o *Output) Writes() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.writes
}

// Events returns a copy of the recorded calls.
func (o *Output) Events() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()

	return slices.Clone(o.events)
}

// Reset forgets the recorded calls and the write counter.
func (o *Output) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.events = nil
	o.writes = 0
}

func (o *Output) record(kind EventKind, duty uint16, apply func()) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("channel %d: %w", o.channel, ErrClosed)
	}

	if o.fail != nil {
		return fmt.Errorf("channel %d %s: %w", o.channel, kind, o.fail)
	}

	apply()
	o.events = append(o.events, Event{Kind: kind, Duty: duty, At: time.Now()})

	return nil
}

func (o *Output) close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.closed = true
}
