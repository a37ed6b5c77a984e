package face

import (
	"slices"
	"time"

	"github.com/oshokin/walle-eyes/internal/domain/servo"
)

// Actor identifies who sent a command.
type Actor struct {
	// Hostname is the machine the command came from.
	Hostname string
	// Username is the system user who sent it.
	Username string
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// String renders the actor as user@host.
func (a *Actor) String() string {
	if a == nil {
		return "anonymous"
	}

	switch {
	case a.Username == "" && a.Hostname == "":
		return "anonymous"
	case a.Username == "":
		return a.Hostname
	case a.Hostname == "":
		return a.Username
	default:
		return a.Username + "@" + a.Hostname
	}
}

// Report is the outcome of one command.
type Report struct {
	// Command is the verb that ran.
	Command string
	// Reply is the token returned to the sender; empty on failure.
	Reply string
	// Actor sent the command.
	Actor *Actor
	// StartedAt is when the command got the motion slot.
	StartedAt time.Time
	// Duration is how long the gesture ran.
	Duration time.Duration
	// Err is the failure, if any.
	Err error
}

// Status is a snapshot of the rig.
type Status struct {
	// Actuators holds every actuator in registration order.
	Actuators []servo.Snapshot
	// Busy tells whether a command holds the motion slot.
	Busy bool
	// LastCommand is the verb of the last finished command.
	LastCommand string
	// LastError is the failure of the last command, empty on success.
	LastError string
	// LastActor sent the last command.
	LastActor *Actor
	// UpdatedAt is when the snapshot was taken.
	UpdatedAt time.Time
}

// Clone returns a copy of the status that shares nothing with the original.
func (s *Status) Clone() *Status {
	if s == nil {
		return nil
	}

	return &Status{
		Actuators:   slices.Clone(s.Actuators),
		Busy:        s.Busy,
		LastCommand: s.LastCommand,
		LastError:   s.LastError,
		LastActor:   s.LastActor.Clone(),
		UpdatedAt:   s.UpdatedAt,
	}
}
