package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/walle-eyes/internal/config"
	"github.com/oshokin/walle-eyes/internal/domain/face"
	"github.com/oshokin/walle-eyes/internal/logger"
	"github.com/oshokin/walle-eyes/internal/service/common"
)

// Commands that query the server instead of sending a verb.
const (
	CommandPing   = "ping"
	CommandStatus = "status"
	CommandWait   = "wait"
)

// PingReply is what a healthy server answers to Ping.
const PingReply = "pong"

// Options configures one eyes-client invocation.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Command is a gesture verb or one of ping, status and wait.
	Command string

	// Output receives replies, os.Stdout when nil.
	Output io.Writer
}

// Sender is the part of the gRPC client the commands use.
type Sender interface {
	Execute(ctx context.Context, actor *face.Actor, verb string) (string, error)
	Ping(ctx context.Context) (string, error)
	Status(ctx context.Context) (*structpb.Struct, error)
}

// Policy bounds how often a command is attempted.
type Policy struct {
	// Attempts is the total number of tries, at least one.
	Attempts int
	// Delay is the pause between tries.
	Delay time.Duration
}

// PolicyFrom builds the retry policy from the client settings.
func PolicyFrom(settings *config.Client) Policy {
	if settings == nil {
		return Policy{Attempts: 1}
	}

	return Policy{
		Attempts: max(settings.Retries, 1),
		Delay:    settings.RetryDelay,
	}
}

// ErrNotReady is returned when the server does not answer ping in time.
var ErrNotReady = errors.New("eyes server is not ready")

// Run executes opts.Command against the configured server.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "eyes-client")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	serverAddress := settings.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(settings.Timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	logger.DebugKV(ctx, "Sending command", "server_address", serverAddress, "command", opts.Command)

	return Dispatch(ctx, client, actor, opts.Command, &settings.Client, out)
}

// Dispatch runs one command through sender and writes the reply to out.
// Nil settings fall back to the default client policy.
func Dispatch(
	ctx context.Context,
	sender Sender,
	actor *face.Actor,
	command string,
	settings *config.Client,
	out io.Writer,
) error {
	if settings == nil {
		settings = &config.Default().Client
	}

	policy := PolicyFrom(settings)

	switch command {
	case CommandWait:
		if err := WaitReady(ctx, sender, settings.ReadyTimeout, policy.Delay); err != nil {
			return err
		}

		_, err := fmt.Fprintln(out, PingReply)

		return err
	case CommandPing:
		reply, err := sender.Ping(ctx)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(out, reply)

		return err
	case CommandStatus:
		st, err := sender.Status(ctx)
		if err != nil {
			return err
		}

		data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(st)
		if err != nil {
			return fmt.Errorf("encode status: %w", err)
		}

		_, err = fmt.Fprintln(out, string(data))

		return err
	}

	reply, err := Send(ctx, sender, actor, command, policy)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, reply)

	return err
}

// Send executes verb, retrying transient failures under policy.
// Rejections of the verb itself are returned immediately.
func Send(ctx context.Context, sender Sender, actor *face.Actor, verb string, policy Policy) (string, error) {
	attempts := max(policy.Attempts, 1)

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		reply, err := sender.Execute(ctx, actor, verb)
		if err == nil {
			return reply, nil
		}

		if permanent(err) {
			return "", err
		}

		lastErr = err

		logger.WarnKV(ctx, "Command failed", "command", verb, "attempt", attempt, "error", err)

		if attempt == attempts {
			break
		}

		if err := sleep(ctx, policy.Delay); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%s failed after %d attempts: %w", verb, attempts, lastErr)
}

// WaitReady polls Ping every interval until the server answers pong or timeout elapses.
func WaitReady(ctx context.Context, sender Sender, timeout, interval time.Duration) error {
	if interval <= 0 {
		interval = config.Default().Client.RetryDelay
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		reply, err := sender.Ping(waitCtx)
		if err == nil && reply == PingReply {
			return nil
		}

		logger.DebugKV(ctx, "Server not ready", "reply", reply, "error", err)

		if err := sleep(waitCtx, interval); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return fmt.Errorf("%w within %s", ErrNotReady, timeout)
		}
	}
}

// permanent reports whether retrying err cannot change the outcome.
func permanent(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.NotFound:
		return true
	default:
		return false
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
