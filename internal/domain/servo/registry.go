package servo

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrDuplicateActuator is returned when two actuators share a name.
	ErrDuplicateActuator = errors.New("duplicate actuator")
	// ErrDuplicateChannel is returned when two actuators share a channel.
	ErrDuplicateChannel = errors.New("duplicate channel")
	// ErrUnknownActuator is returned when a group names an actuator that is not registered.
	ErrUnknownActuator = errors.New("unknown actuator")
)

// ActuatorSpec describes an actuator to register.
type ActuatorSpec struct {
	// Name is the actuator key.
	Name string
	// Channel is the driver channel the actuator owns.
	Channel int
	// Rest is the pulse width the actuator assumes at startup.
	Rest int
	// Positions are the calibrated pulse widths by position name.
	Positions map[Position]int
}

// Registry owns every actuator and group of one rig. Build it once at startup;
// independent registries over different drivers do not share state.
type Registry struct {
	driver    Driver
	actuators []*Actuator
	byName    map[string]*Actuator
	channels  map[int]string
	groups    map[string]*Group
}

// NewRegistry creates an empty registry over driver.
func NewRegistry(driver Driver) *Registry {
	return &Registry{
		driver:   driver,
		byName:   make(map[string]*Actuator),
		channels: make(map[int]string),
		groups:   make(map[string]*Group),
	}
}

// AddActuator opens spec.Channel on the driver and registers an unpowered
// actuator resting at spec.Rest.
func (r *Registry) AddActuator(spec ActuatorSpec) (*Actuator, error) {
	if _, ok := r.byName[spec.Name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateActuator, spec.Name)
	}

	if owner, ok := r.channels[spec.Channel]; ok {
		return nil, fmt.Errorf("%w: %d is used by %s and %s", ErrDuplicateChannel, spec.Channel, owner, spec.Name)
	}

	output, err := r.driver.Open(spec.Channel)
	if err != nil {
		return nil, fmt.Errorf("open channel %d for %s: %w", spec.Channel, spec.Name, err)
	}

	a := NewActuator(spec.Name, spec.Channel, output, spec.Rest, spec.Positions)

	r.actuators = append(r.actuators, a)
	r.byName[spec.Name] = a
	r.channels[spec.Channel] = spec.Name

	return a, nil
}

// AddGroup registers a group of already registered actuators. Its target
// table is built from the calibrated positions of the members.
func (r *Registry) AddGroup(name string, memberNames ...string) (*Group, error) {
	if _, ok := r.groups[name]; ok {
		return nil, fmt.Errorf("%w: group %s already exists", ErrInvalidGroup, name)
	}

	members := make([]*Actuator, 0, len(memberNames))
	targets := make(TargetTable)

	for _, memberName := range memberNames {
		a, ok := r.byName[memberName]
		if !ok {
			return nil, fmt.Errorf("group %s: %w: %s", name, ErrUnknownActuator, memberName)
		}

		members = append(members, a)

		for position, pulse := range a.positions {
			if targets[position] == nil {
				targets[position] = make(map[string]int, len(memberNames))
			}

			targets[position][memberName] = pulse
		}
	}

	g, err := NewGroup(name, members, targets)
	if err != nil {
		return nil, err
	}

	r.groups[name] = g

	return g, nil
}

// Actuator returns a registered actuator by name.
func (r *Registry) Actuator(name string) (*Actuator, bool) {
	a, ok := r.byName[name]

	return a, ok
}

// Group returns a registered group by name.
func (r *Registry) Group(name string) (*Group, bool) {
	g, ok := r.groups[name]

	return g, ok
}

// GroupNames returns the names of every registered group.
func (r *Registry) GroupNames() []string {
	return sortedKeys(r.groups)
}

// Actuators returns the actuators in registration order.
func (r *Registry) Actuators() []*Actuator {
	return append([]*Actuator(nil), r.actuators...)
}

// Snapshot returns the state of every actuator in registration order.
func (r *Registry) Snapshot() []Snapshot {
	out := make([]Snapshot, 0, len(r.actuators))
	for _, a := range r.actuators {
		out = append(out, a.Snapshot())
	}

	return out
}

// ReleaseAll releases every actuator. It is safe to call at any time and
// any number of times.
func (r *Registry) ReleaseAll(ctx context.Context) {
	for _, a := range r.actuators {
		a.Release(ctx)
	}
}

// Close releases every actuator and closes the driver.
func (r *Registry) Close(ctx context.Context) error {
	r.ReleaseAll(ctx)

	if r.driver == nil {
		return nil
	}

	return r.driver.Close()
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
