package servo

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidStep is returned when a ramp step is not positive.
var ErrInvalidStep = errors.New("ramp step must be positive")

// Ramp paces a motion: every iteration moves each unfinished actuator by Step
// microseconds toward its target and then sleeps Delay.
type Ramp struct {
	// Step is the pulse change per iteration in microseconds.
	Step int
	// Delay is the pause after each iteration that wrote at least one pulse.
	Delay time.Duration
}

// Validate reports whether the ramp can make progress.
func (r Ramp) Validate() error {
	if r.Step <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidStep, r.Step)
	}

	return nil
}

// NextPulse moves current one step toward target without overshooting it.
func NextPulse(current, target, step int) int {
	if step < 0 {
		step = -step
	}

	switch {
	case current < target:
		return min(current+step, target)
	case current > target:
		return max(current-step, target)
	default:
		return current
	}
}

// StepsBetween returns how many ramp iterations it takes to go from one pulse
// to another: ceil(|from-to| / step).
func StepsBetween(from, to, step int) int {
	if step <= 0 {
		return 0
	}

	distance := from - to
	if distance < 0 {
		distance = -distance
	}

	return (distance + step - 1) / step
}

// track pairs an actuator with the pulse it is heading to.
type track struct {
	actuator *Actuator
	target   int
}

// run advances every track in lockstep until all of them sit on their
// targets and returns the number of iterations that wrote something.
// An actuator already on target is skipped and never rewritten.
func (r Ramp) run(tracks []track) (int, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}

	var iterations int

	for {
		moved := false

		for _, t := range tracks {
			current := t.actuator.Current()
			if current == t.target {
				continue
			}

			moved = true

			if err := t.actuator.Write(NextPulse(current, t.target, r.Step)); err != nil {
				return iterations, fmt.Errorf("write %s: %w", t.actuator.Name(), err)
			}
		}

		if !moved {
			return iterations, nil
		}

		iterations++

		time.Sleep(r.Delay)
	}
}
