package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/oshokin/walle-eyes/internal/domain/face"
	"github.com/oshokin/walle-eyes/internal/domain/gesture"
	"github.com/oshokin/walle-eyes/internal/domain/servo"
	"github.com/oshokin/walle-eyes/internal/logger"
)

// service serializes commands onto the rig and keeps a status snapshot.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	// library runs gestures; only the holder of slot may call it.
	library *gesture.Library
	// registry owns the actuators; only the holder of slot may touch them.
	registry *servo.Registry
	// slot is the single motion permit.
	slot *semaphore.Weighted
	// status is the latest snapshot handed to Status callers.
	status *face.Status
	// mu protects status.
	mu sync.RWMutex
}

// newService creates a service over a built rig.
func newService(library *gesture.Library, registry *servo.Registry) *service {
	return &service{
		library:  library,
		registry: registry,
		slot:     semaphore.NewWeighted(1),
		status: &face.Status{
			Actuators: registry.Snapshot(),
			UpdatedAt: time.Now(),
		},
	}
}

// Execute waits for the motion slot, runs verb and records the outcome.
// A caller whose context ends while waiting gives up; a running gesture is
// never interrupted.
func (s *service) Execute(ctx context.Context, actor *face.Actor, verb string) (string, error) {
	ctx = logger.WithKV(ctx, "command", verb, "actor", actor.String())

	// Unknown verbs fail without waiting for the slot.
	if _, ok := gesture.Lookup(verb); !ok {
		err := fmt.Errorf("%w: %q", gesture.ErrUnknownCommand, verb)
		logger.WarnKV(ctx, "Rejected command", "error", err)

		return "", err
	}

	if err := s.slot.Acquire(ctx, 1); err != nil {
		logger.WarnKV(ctx, "Gave up waiting for the motion slot", "error", err)

		return "", fmt.Errorf("wait for motion slot: %w", err)
	}
	defer s.slot.Release(1)

	s.setBusy(true)

	report := &face.Report{
		Command:   verb,
		Actor:     actor.Clone(),
		StartedAt: time.Now(),
	}

	report.Reply, report.Err = s.library.Execute(context.WithoutCancel(ctx), verb)
	report.Duration = time.Since(report.StartedAt)

	s.record(report)

	if report.Err != nil {
		logger.ErrorKV(ctx, "Command failed", "duration", report.Duration, "error", report.Err)

		return "", report.Err
	}

	logger.InfoKV(ctx, "Command executed", "reply", report.Reply, "duration", report.Duration)

	return report.Reply, nil
}

// Status returns the latest snapshot without touching the actuators.
func (s *service) Status(ctx context.Context) *face.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logger.DebugKV(ctx, "Status requested", "busy", s.status.Busy, "last_command", s.status.LastCommand)

	return s.status.Clone()
}

// Close waits for the running command, then releases every actuator and
// closes the driver.
func (s *service) Close(ctx context.Context) error {
	if err := s.slot.Acquire(context.WithoutCancel(ctx), 1); err != nil {
		return fmt.Errorf("wait for motion slot: %w", err)
	}
	defer s.slot.Release(1)

	return s.registry.Close(ctx)
}

func (s *service) setBusy(busy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.status.Clone()
	next.Busy = busy
	s.status = next
}

// record stores the outcome of a command. It runs while holding the slot,
// so the registry snapshot does not race with motion.
func (s *service) record(report *face.Report) {
	snapshot := s.registry.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := &face.Status{
		Actuators:   snapshot,
		Busy:        false,
		LastCommand: report.Command,
		LastActor:   report.Actor,
		UpdatedAt:   time.Now(),
	}

	if report.Err != nil {
		next.LastError = report.Err.Error()
	}

	s.status = next
}
