package blinker

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/oshokin/walle-eyes/internal/config"
	"github.com/oshokin/walle-eyes/internal/domain/face"
	"github.com/oshokin/walle-eyes/internal/logger"
	"github.com/oshokin/walle-eyes/internal/service/client"
)

// Verbs sent by the blinker.
const (
	verbOpen     = "open"
	verbCenterUD = "center_ud"
	verbBlink    = "blink"
	verbClose    = "close"
	verbRelease  = "release"
)

// Blinker drives the idle blink loop against one server.
type Blinker struct {
	sender       client.Sender
	actor        *face.Actor
	policy       client.Policy
	readyTimeout time.Duration
	interval     func() time.Duration
}

// Option configures a Blinker.
type Option func(*Blinker)

// WithInterval replaces the random interval source.
func WithInterval(next func() time.Duration) Option {
	return func(b *Blinker) {
		if next != nil {
			b.interval = next
		}
	}
}

// New returns a Blinker using the client and blinker sections of settings.
func New(sender client.Sender, actor *face.Actor, settings *config.Config, opts ...Option) *Blinker {
	b := &Blinker{
		sender:       sender,
		actor:        actor,
		policy:       client.PolicyFrom(&settings.Client),
		readyTimeout: settings.Client.ReadyTimeout,
		interval:     RandomInterval(settings.Blinker.MinInterval, settings.Blinker.MaxInterval, rand.Int64N),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// RandomInterval returns a source of intervals uniformly distributed in [lo, hi].
// int64n must behave like rand.Int64N.
func RandomInterval(lo, hi time.Duration, int64n func(n int64) int64) func() time.Duration {
	if hi <= lo {
		return func() time.Duration { return lo }
	}

	span := int64(hi-lo) + 1

	return func() time.Duration {
		return lo + time.Duration(int64n(span))
	}
}

// Run blocks until ctx ends. The face is prepared first and always closed and
// released on the way out, even when preparation fails.
func (b *Blinker) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "blinker")

	if err := client.WaitReady(ctx, b.sender, b.readyTimeout, b.policy.Delay); err != nil {
		return err
	}

	defer b.cleanup(ctx)

	if _, err := client.Send(ctx, b.sender, b.actor, verbOpen, b.policy); err != nil {
		return err
	}

	if _, err := client.Send(ctx, b.sender, b.actor, verbCenterUD, b.policy); err != nil {
		logger.WarnKV(ctx, "Gaze not centered", "error", err)
	}

	logger.Info(ctx, "Blinking started")

	for {
		wait := b.interval()
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info(ctx, "Blinking stopped")

			return nil
		case <-timer.C:
		}

		if _, err := client.Send(ctx, b.sender, b.actor, verbBlink, b.policy); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			logger.WarnKV(ctx, "Blink failed", "error", err)
		}
	}
}

// cleanup closes the lids and releases everything, best-effort.
func (b *Blinker) cleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.readyTimeout)
	defer cancel()

	for _, verb := range []string{verbClose, verbRelease} {
		if _, err := client.Send(cleanupCtx, b.sender, b.actor, verb, b.policy); err != nil {
			logger.WarnKV(ctx, "Cleanup command failed", "command", verb, "error", err)
		}
	}
}
