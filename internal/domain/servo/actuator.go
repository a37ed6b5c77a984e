package servo

import (
	"context"
	"fmt"
	"maps"

	"github.com/oshokin/walle-eyes/internal/logger"
)

// Position names a calibrated pulse width of an actuator.
type Position string

// Positions used by the eyelid and gaze actuators.
const (
	Open   Position = "open"
	Closed Position = "closed"
	Up     Position = "up"
	Down   Position = "down"
	Left   Position = "left"
	Right  Position = "right"
	Center Position = "center"
)

// Actuator is one servo on one PWM channel.
//
// The output is powered lazily: Enable starts the pulse train, Release stops it.
// Write records a pulse even while unpowered, so a position can be staged
// before Enable applies it.
type Actuator struct {
	// name is the stable key used in groups and logs.
	name string
	// channel is the hardware channel of output.
	channel int
	// output is owned exclusively by this actuator.
	output Output
	// current is the last pulse width written, in microseconds.
	current int
	// powered tells whether output is driving a pulse train.
	powered bool
	// positions maps calibrated position names to pulse widths.
	positions map[Position]int
}

// Snapshot is a read-only view of an actuator.
type Snapshot struct {
	Name    string `json:"name"`
	Channel int    `json:"channel"`
	Pulse   int    `json:"pulse_us"`
	Powered bool   `json:"powered"`
}

// NewActuator creates an unpowered actuator resting at rest microseconds.
func NewActuator(name string, channel int, output Output, rest int, positions map[Position]int) *Actuator {
	return &Actuator{
		name:      name,
		channel:   channel,
		output:    output,
		current:   rest,
		positions: maps.Clone(positions),
	}
}

// Name returns the actuator key.
func (a *Actuator) Name() string { return a.name }

// Channel returns the hardware channel.
func (a *Actuator) Channel() int { return a.channel }

// Current returns the last written pulse width.
func (a *Actuator) Current() int { return a.current }

// Powered reports whether the pulse train is running.
func (a *Actuator) Powered() bool { return a.powered }

// Position returns the calibrated pulse width for p.
func (a *Actuator) Position(p Position) (int, bool) {
	pulse, ok := a.positions[p]

	return pulse, ok
}

// Snapshot returns the current state of the actuator.
func (a *Actuator) Snapshot() Snapshot {
	return Snapshot{
		Name:    a.name,
		Channel: a.channel,
		Pulse:   a.current,
		Powered: a.powered,
	}
}

// Enable starts the pulse train at the current pulse width.
// It reports whether this call powered the output up; an already powered
// actuator is left untouched.
func (a *Actuator) Enable() (bool, error) {
	if a.powered {
		return false, nil
	}

	if err := a.output.Enable(DutyFromPulse(a.current)); err != nil {
		return false, fmt.Errorf("enable %s on channel %d: %w", a.name, a.channel, err)
	}

	a.powered = true

	return true, nil
}

// Write records pulse and applies it immediately when powered.
// The pulse is not range-checked here.
func (a *Actuator) Write(pulse int) error {
	a.current = pulse

	if !a.powered {
		return nil
	}

	if err := a.output.SetDuty(DutyFromPulse(pulse)); err != nil {
		return fmt.Errorf("set duty of %s on channel %d: %w", a.name, a.channel, err)
	}

	return nil
}

// MoveTo powers the actuator and ramps it to target. The actuator stays
// powered afterwards; call Release when no further motion is expected.
func (a *Actuator) MoveTo(target int, ramp Ramp) (int, error) {
	if err := ramp.Validate(); err != nil {
		return 0, err
	}

	if _, err := a.Enable(); err != nil {
		return 0, err
	}

	return ramp.run([]track{{actuator: a, target: target}})
}

// Release stops the pulse train. It never fails: an output error is logged
// and the actuator is marked unpowered anyway. Releasing an unpowered
// actuator does nothing.
func (a *Actuator) Release(ctx context.Context) {
	if !a.powered {
		return
	}

	a.powered = false

	if err := a.output.Disable(); err != nil {
		logger.WarnKV(ctx, "Failed to stop servo output", "actuator", a.name, "channel", a.channel, "error", err)
	}
}
