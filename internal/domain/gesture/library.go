package gesture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/walle-eyes/internal/domain/servo"
)

// Names of the groups and actuators a Library expects in the registry.
const (
	GroupLids         = "lids"
	GroupLeftEye      = "left_eye"
	GroupRightEye     = "right_eye"
	ActuatorUpDown    = "up_down"
	ActuatorLeftRight = "left_right"
)

// ErrUnavailable is returned by gestures whose actuator is not configured.
var ErrUnavailable = errors.New("gesture unavailable")

// Timing holds the pacing of every gesture.
type Timing struct {
	// Pacing drives group transitions and single-actuator ramps.
	Pacing servo.Pacing
	// BlinkHold is how long the lids stay closed during a blink.
	BlinkHold time.Duration
	// WinkHold is how long one eye stays closed during a wink.
	WinkHold time.Duration
	// LookPause separates re-centering from the final look move.
	LookPause time.Duration
}

// DefaultTiming returns the timing the rig was calibrated with.
func DefaultTiming() Timing {
	return Timing{
		Pacing: servo.Pacing{
			Ramp: servo.Ramp{
				Step:  20,
				Delay: 6 * time.Millisecond,
			},
			Stagger: 50 * time.Millisecond,
		},
		BlinkHold: 90 * time.Millisecond,
		WinkHold:  110 * time.Millisecond,
		LookPause: 120 * time.Millisecond,
	}
}

// Options configures a Library.
type Options struct {
	// Timing paces every gesture.
	Timing Timing
	// RecenterUpDown makes look_up and look_down pass through center first.
	RecenterUpDown bool
	// RecenterLeftRight makes look_left and look_right pass through center first.
	RecenterLeftRight bool
}

// axis is one gaze actuator.
type axis struct {
	actuator *servo.Actuator
	recenter bool
}

// Library runs gestures against one registry. It is not safe for concurrent use.
type Library struct {
	registry  *servo.Registry
	lids      *servo.Group
	leftEye   *servo.Group
	rightEye  *servo.Group
	upDown    *axis
	leftRight *axis
	timing    Timing
}

// New binds a library to the groups and actuators of registry. The three lid
// groups and the up/down actuator are required; left/right is optional.
func New(registry *servo.Registry, options *Options) (*Library, error) {
	if options == nil {
		options = &Options{Timing: DefaultTiming()}
	}

	if err := options.Timing.Pacing.Validate(); err != nil {
		return nil, err
	}

	l := &Library{
		registry: registry,
		timing:   options.Timing,
	}

	var ok bool

	for name, dst := range map[string]**servo.Group{
		GroupLids:     &l.lids,
		GroupLeftEye:  &l.leftEye,
		GroupRightEye: &l.rightEye,
	} {
		if *dst, ok = registry.Group(name); !ok {
			return nil, fmt.Errorf("group %s is not registered", name)
		}
	}

	ud, ok := registry.Actuator(ActuatorUpDown)
	if !ok {
		return nil, fmt.Errorf("actuator %s is not registered", ActuatorUpDown)
	}

	l.upDown = &axis{actuator: ud, recenter: options.RecenterUpDown}

	if lr, ok := registry.Actuator(ActuatorLeftRight); ok {
		l.leftRight = &axis{actuator: lr, recenter: options.RecenterLeftRight}
	}

	return l, nil
}

// HasLeftRight reports whether the optional left/right axis is configured.
func (l *Library) HasLeftRight() bool {
	return l.leftRight != nil
}

// scoped runs fn and releases every actuator afterwards, whatever fn returned.
func (l *Library) scoped(ctx context.Context, fn func() error) error {
	defer l.registry.ReleaseAll(ctx)

	return fn()
}

// Open opens every lid.
func (l *Library) Open(ctx context.Context) error {
	return l.scoped(ctx, func() error {
		return l.transition(ctx, l.lids, servo.Open)
	})
}

// Close closes every lid.
func (l *Library) Close(ctx context.Context) error {
	return l.scoped(ctx, func() error {
		return l.transition(ctx, l.lids, servo.Closed)
	})
}

// Blink closes the lids, holds, then opens them. Each half releases on its own,
// so the lids are unpowered during the hold.
func (l *Library) Blink(ctx context.Context) error {
	if err := l.Close(ctx); err != nil {
		return err
	}

	time.Sleep(l.timing.BlinkHold)

	return l.Open(ctx)
}

// WinkLeft closes and reopens the left eye.
func (l *Library) WinkLeft(ctx context.Context) error {
	return l.wink(ctx, l.leftEye)
}

// WinkRight closes and reopens the right eye.
func (l *Library) WinkRight(ctx context.Context) error {
	return l.wink(ctx, l.rightEye)
}

// LookUp turns the gaze up.
func (l *Library) LookUp(ctx context.Context) error {
	return l.look(ctx, l.upDown, servo.Up)
}

// LookDown turns the gaze down.
func (l *Library) LookDown(ctx context.Context) error {
	return l.look(ctx, l.upDown, servo.Down)
}

// CenterUpDown returns the up/down gaze to center.
func (l *Library) CenterUpDown(ctx context.Context) error {
	return l.scoped(ctx, func() error {
		return l.move(l.upDown, servo.Center)
	})
}

// LookLeft turns the gaze left.
func (l *Library) LookLeft(ctx context.Context) error {
	return l.look(ctx, l.leftRight, servo.Left)
}

// LookRight turns the gaze right.
func (l *Library) LookRight(ctx context.Context) error {
	return l.look(ctx, l.leftRight, servo.Right)
}

// ReleaseAll stops every pulse train.
func (l *Library) ReleaseAll(ctx context.Context) error {
	l.registry.ReleaseAll(ctx)

	return nil
}

func (l *Library) wink(ctx context.Context, eye *servo.Group) error {
	return l.scoped(ctx, func() error {
		if err := l.transition(ctx, eye, servo.Closed); err != nil {
			return err
		}

		time.Sleep(l.timing.WinkHold)

		return l.transition(ctx, eye, servo.Open)
	})
}

func (l *Library) look(ctx context.Context, a *axis, position servo.Position) error {
	if a == nil {
		return fmt.Errorf("look %s: %w", position, ErrUnavailable)
	}

	return l.scoped(ctx, func() error {
		if a.recenter {
			if err := l.move(a, servo.Center); err != nil {
				return err
			}

			time.Sleep(l.timing.LookPause)
		}

		return l.move(a, position)
	})
}

func (l *Library) transition(ctx context.Context, g *servo.Group, position servo.Position) error {
	_, err := g.Transition(ctx, position, l.timing.Pacing)

	return err
}

func (l *Library) move(a *axis, position servo.Position) error {
	target, ok := a.actuator.Position(position)
	if !ok {
		return fmt.Errorf("%s has no %q position: %w", a.actuator.Name(), position, servo.ErrUnknownPosition)
	}

	if _, err := a.actuator.MoveTo(target, l.timing.Pacing.Ramp); err != nil {
		return fmt.Errorf("move %s to %s: %w", a.actuator.Name(), position, err)
	}

	return nil
}
