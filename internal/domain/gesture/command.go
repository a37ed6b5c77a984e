package gesture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/walle-eyes/internal/logger"
)

// ErrUnknownCommand is returned for a verb that is not in the table.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one verb a client can send.
type Command struct {
	// Name is the verb, e.g. "blink".
	Name string
	// Reply is the token returned on success.
	Reply string
	// Run performs the gesture.
	Run func(context.Context, *Library) error
	// Description is shown by the control page and the CLI help.
	Description string
}

var commands = []Command{
	{Name: "open", Reply: "open", Run: bind((*Library).Open), Description: "Open both eyes."},
	{Name: "close", Reply: "close", Run: bind((*Library).Close), Description: "Close both eyes."},
	{Name: "blink", Reply: "blink", Run: bind((*Library).Blink), Description: "Close and reopen both eyes."},
	{Name: "wink_left", Reply: "wink_left", Run: bind((*Library).WinkLeft), Description: "Wink with the left eye."},
	{Name: "wink_right", Reply: "wink_right", Run: bind((*Library).WinkRight), Description: "Wink with the right eye."},
	{Name: "look_up", Reply: "look_up", Run: bind((*Library).LookUp), Description: "Look up."},
	{Name: "look_down", Reply: "look_down", Run: bind((*Library).LookDown), Description: "Look down."},
	{Name: "look_left", Reply: "look_left", Run: bind((*Library).LookLeft), Description: "Look left."},
	{Name: "look_right", Reply: "look_right", Run: bind((*Library).LookRight), Description: "Look right."},
	{Name: "center_ud", Reply: "center_ud", Run: bind((*Library).CenterUpDown), Description: "Center the up/down gaze."},
	{Name: "release", Reply: "released", Run: bind((*Library).ReleaseAll), Description: "Stop driving every servo."},
}

// bind adapts a Library method expression to Command.Run.
func bind(method func(*Library, context.Context) error) func(context.Context, *Library) error {
	return func(ctx context.Context, l *Library) error {
		return method(l, ctx)
	}
}

// Commands returns the verb table in display order.
func Commands() []Command {
	return append([]Command(nil), commands...)
}

// Lookup finds a command by verb.
func Lookup(name string) (Command, bool) {
	for _, c := range commands {
		if c.Name == name {
			return c, true
		}
	}

	return Command{}, false
}

// Names returns every verb in display order.
func Names() []string {
	names := make([]string, 0, len(commands))
	for _, c := range commands {
		names = append(names, c.Name)
	}

	return names
}

// Execute runs the gesture for verb and returns its reply token.
func (l *Library) Execute(ctx context.Context, verb string) (string, error) {
	cmd, ok := Lookup(verb)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, verb)
	}

	started := time.Now()

	if err := cmd.Run(ctx, l); err != nil {
		return "", fmt.Errorf("%s: %w", cmd.Name, err)
	}

	logger.DebugKV(ctx, "Gesture finished", "command", cmd.Name, "duration", time.Since(started))

	return cmd.Reply, nil
}
