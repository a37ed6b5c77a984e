package servo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/walle-eyes/internal/logger"
)

// MaxGroupSize is the largest number of actuators a group may hold.
const MaxGroupSize = 4

var (
	// ErrUnknownPosition is returned when a member has no target for a position.
	ErrUnknownPosition = errors.New("unknown position")
	// ErrInvalidGroup is returned for empty, oversized or duplicated member lists.
	ErrInvalidGroup = errors.New("invalid group")
)

// TargetTable maps a position to the pulse width of each member, by name.
type TargetTable map[Position]map[string]int

// Pacing bundles the ramp of a group transition with the pause inserted after
// each member is powered up, which spreads the inrush current of the servos.
type Pacing struct {
	Ramp
	// Stagger is the pause after every member that Enable actually powered up.
	Stagger time.Duration
}

// Group moves its members to a shared position in lockstep.
type Group struct {
	name    string
	members []*Actuator
	targets TargetTable
}

// NewGroup creates a group. Members keep the given order.
func NewGroup(name string, members []*Actuator, targets TargetTable) (*Group, error) {
	if len(members) == 0 || len(members) > MaxGroupSize {
		return nil, fmt.Errorf("%w: %s has %d members, want 1..%d", ErrInvalidGroup, name, len(members), MaxGroupSize)
	}

	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m == nil {
			return nil, fmt.Errorf("%w: %s has a nil member", ErrInvalidGroup, name)
		}

		if _, ok := seen[m.Name()]; ok {
			return nil, fmt.Errorf("%w: %s lists %s twice", ErrInvalidGroup, name, m.Name())
		}

		seen[m.Name()] = struct{}{}
	}

	return &Group{
		name:    name,
		members: append([]*Actuator(nil), members...),
		targets: targets,
	}, nil
}

// Name returns the group key.
func (g *Group) Name() string { return g.name }

// Members returns the member actuators in order.
func (g *Group) Members() []*Actuator {
	return append([]*Actuator(nil), g.members...)
}

// Transition moves every member to its target for position and returns the
// number of ramp iterations. Members with different distances finish at
// different iterations but are all stepped by the same loop, so the motion
// lasts as long as the largest single distance. Members stay powered.
//
// A member without a target for position fails the call before anything is
// powered. A failing output aborts the motion; members keep the pulses they
// reached.
func (g *Group) Transition(ctx context.Context, position Position, pacing Pacing) (int, error) {
	if err := pacing.Validate(); err != nil {
		return 0, err
	}

	row := g.targets[position]
	tracks := make([]track, 0, len(g.members))

	for _, m := range g.members {
		target, ok := row[m.Name()]
		if !ok {
			return 0, fmt.Errorf("group %s: %s has no %q target: %w", g.name, m.Name(), position, ErrUnknownPosition)
		}

		tracks = append(tracks, track{actuator: m, target: target})
	}

	for _, m := range g.members {
		poweredUp, err := m.Enable()
		if err != nil {
			return 0, fmt.Errorf("group %s: %w", g.name, err)
		}

		if poweredUp && pacing.Stagger > 0 {
			time.Sleep(pacing.Stagger)
		}
	}

	iterations, err := pacing.run(tracks)
	if err != nil {
		return iterations, fmt.Errorf("group %s to %s: %w", g.name, position, err)
	}

	logger.DebugKV(ctx, "Group transition finished", "group", g.name, "position", position, "iterations", iterations)

	return iterations, nil
}
