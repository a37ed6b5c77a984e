package gesture

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/walle-eyes/internal/domain/servo"
	"github.com/oshokin/walle-eyes/internal/driver/sim"
)

var errTestJam = errors.New("servo jammed")

type rig struct {
	driver   *sim.Driver
	registry *servo.Registry
	library  *Library
}

func newRig(t *testing.T, withLeftRight bool) *rig {
	t.Helper()

	driver := sim.New()
	registry := servo.NewRegistry(driver)

	specs := []servo.ActuatorSpec{
		{Name: "top_left", Channel: 12, Rest: 2200, Positions: map[servo.Position]int{servo.Open: 2200, servo.Closed: 1155}},
		{Name: "bottom_left", Channel: 9, Rest: 1560, Positions: map[servo.Position]int{servo.Open: 1560, servo.Closed: 2360}},
		{Name: "top_right", Channel: 7, Rest: 700, Positions: map[servo.Position]int{servo.Open: 700, servo.Closed: 1700}},
		{Name: "bottom_right", Channel: 15, Rest: 1920, Positions: map[servo.Position]int{servo.Open: 1920, servo.Closed: 1040}},
		{Name: ActuatorUpDown, Channel: 11, Rest: 1410, Positions: map[servo.Position]int{servo.Up: 1560, servo.Down: 1260, servo.Center: 1410}},
	}

	if withLeftRight {
		specs = append(specs, servo.ActuatorSpec{
			Name:      ActuatorLeftRight,
			Channel:   5,
			Rest:      1370,
			Positions: map[servo.Position]int{servo.Left: 820, servo.Right: 1920, servo.Center: 1370},
		})
	}

	for _, spec := range specs {
		_, err := registry.AddActuator(spec)
		require.NoError(t, err)
	}

	for name, members := range map[string][]string{
		GroupLids:     {"top_left", "top_right", "bottom_left", "bottom_right"},
		GroupLeftEye:  {"top_left", "bottom_left"},
		GroupRightEye: {"top_right", "bottom_right"},
	} {
		_, err := registry.AddGroup(name, members...)
		require.NoError(t, err)
	}

	library, err := New(registry, &Options{
		Timing:            DefaultTiming(),
		RecenterLeftRight: true,
	})
	require.NoError(t, err)

	return &rig{driver: driver, registry: registry, library: library}
}

func (r *rig) pulse(t *testing.T, name string) int {
	t.Helper()

	a, ok := r.registry.Actuator(name)
	require.True(t, ok)

	return a.Current()
}

func (r *rig) output(t *testing.T, channel int) *sim.Output {
	t.Helper()

	o, ok := r.driver.Output(channel)
	require.True(t, ok)

	return o
}

func requireAllReleased(t *testing.T, r *rig) {
	t.Helper()

	for _, s := range r.registry.Snapshot() {
		require.False(t, s.Powered, s.Name)
	}

	for _, channel := range r.driver.Channels() {
		require.False(t, r.output(t, channel).Enabled(), "channel %d", channel)
	}
}

// TestNew_RequiresGroups refuses a registry without the lid groups.
func TestNew_RequiresGroups(t *testing.T) {
	t.Parallel()

	_, err := New(servo.NewRegistry(sim.New()), nil)
	require.Error(t, err)
}

// TestExecute_CloseThenOpen moves every lid and releases after each gesture.
func TestExecute_CloseThenOpen(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		r := newRig(t, false)
		ctx := context.Background()

		reply, err := r.library.Execute(ctx, "close")
		require.NoError(t, err)
		require.Equal(t, "close", reply)
		require.Equal(t, 1155, r.pulse(t, "top_left"))
		require.Equal(t, 2360, r.pulse(t, "bottom_left"))
		require.Equal(t, 1700, r.pulse(t, "top_right"))
		require.Equal(t, 1040, r.pulse(t, "bottom_right"))
		requireAllReleased(t, r)

		reply, err = r.library.Execute(ctx, "open")
		require.NoError(t, err)
		require.Equal(t, "open", reply)
		require.Equal(t, 2200, r.pulse(t, "top_left"))
		require.Equal(t, 700, r.pulse(t, "top_right"))
		requireAllReleased(t, r)

		// The gaze actuator is never touched by lid gestures.
		require.Empty(t, r.output(t, 11).Events())
	})
}

// TestExecute_Blink releases the lids during the hold and reopens them.
func TestExecute_Blink(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		r := newRig(t, false)
		timing := DefaultTiming()

		reply, err := r.library.Execute(context.Background(), "blink")
		require.NoError(t, err)
		require.Equal(t, "blink", reply)
		require.Equal(t, 2200, r.pulse(t, "top_left"))
		requireAllReleased(t, r)

		var (
			kinds      []sim.EventKind
			releasedAt time.Time
			reopenedAt time.Time
		)

		for _, e := range r.output(t, 12).Events() {
			if len(kinds) == 0 || kinds[len(kinds)-1] != e.Kind {
				kinds = append(kinds, e.Kind)
			}

			switch {
			case e.Kind == sim.EventDisable && releasedAt.IsZero():
				releasedAt = e.At
			case e.Kind == sim.EventEnable && !releasedAt.IsZero():
				reopenedAt = e.At
			}
		}

		require.Equal(t, []sim.EventKind{
			sim.EventEnable, sim.EventDuty, sim.EventDisable,
			sim.EventEnable, sim.EventDuty, sim.EventDisable,
		}, kinds)
		require.Equal(t, timing.BlinkHold, reopenedAt.Sub(releasedAt))
	})
}

// TestExecute_WinkLeft moves only the left eye.
func TestExecute_WinkLeft(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		r := newRig(t, false)

		reply, err := r.library.Execute(context.Background(), "wink_left")
		require.NoError(t, err)
		require.Equal(t, "wink_left", reply)

		require.NotZero(t, r.output(t, 12).Writes())
		require.NotZero(t, r.output(t, 9).Writes())
		require.Empty(t, r.output(t, 7).Events())
		require.Empty(t, r.output(t, 15).Events())
		require.Equal(t, 2200, r.pulse(t, "top_left"))
		require.Equal(t, 1560, r.pulse(t, "bottom_left"))
		requireAllReleased(t, r)
	})
}

// TestExecute_LookUpDown moves the up/down axis without re-centering.
func TestExecute_LookUpDown(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		r := newRig(t, false)
		ctx := context.Background()

		start := time.Now()
		reply, err := r.library.Execute(ctx, "look_up")
		require.NoError(t, err)
		require.Equal(t, "look_up", reply)
		require.Equal(t, 1560, r.pulse(t, ActuatorUpDown))
		require.Equal(t, time.Duration(servo.StepsBetween(1410, 1560, 20))*6*time.Millisecond, time.Since(start))
		requireAllReleased(t, r)

		_, err = r.library.Execute(ctx, "look_down")
		require.NoError(t, err)
		require.Equal(t, 1260, r.pulse(t, ActuatorUpDown))

		reply, err = r.library.Execute(ctx, "center_ud")
		require.NoError(t, err)
		require.Equal(t, "center_ud", reply)
		require.Equal(t, 1410, r.pulse(t, ActuatorUpDown))
		requireAllReleased(t, r)
	})
}

// TestExecute_LookLeftRecenters passes through center before the extreme.
func TestExecute_LookLeftRecenters(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		r := newRig(t, true)
		ctx := context.Background()

		_, err := r.library.Execute(ctx, "look_right")
		require.NoError(t, err)
		require.Equal(t, 1920, r.pulse(t, ActuatorLeftRight))

		r.output(t, 5).Reset()

		start := time.Now()
		reply, err := r.library.Execute(ctx, "look_left")
		require.NoError(t, err)
		require.Equal(t, "look_left", reply)
		require.Equal(t, 820, r.pulse(t, ActuatorLeftRight))

		want := time.Duration(servo.StepsBetween(1920, 1370, 20)+servo.StepsBetween(1370, 820, 20))*6*time.Millisecond +
			DefaultTiming().LookPause
		require.Equal(t, want, time.Since(start))
		requireAllReleased(t, r)
	})
}

// TestExecute_LeftRightUnavailable fails when the axis is not configured.
func TestExecute_LeftRightUnavailable(t *testing.T) {
	t.Parallel()

	r := newRig(t, false)
	require.False(t, r.library.HasLeftRight())

	_, err := r.library.Execute(context.Background(), "look_left")
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = r.library.Execute(context.Background(), "look_right")
	require.ErrorIs(t, err, ErrUnavailable)
}

// TestExecute_UnknownCommand rejects verbs outside the table, including ping.
func TestExecute_UnknownCommand(t *testing.T) {
	t.Parallel()

	r := newRig(t, false)

	for _, verb := range []string{"dance", "ping", ""} {
		_, err := r.library.Execute(context.Background(), verb)
		require.ErrorIs(t, err, ErrUnknownCommand)
	}
}

// TestExecute_FailureStillReleases aborts the gesture and leaves nothing powered.
func TestExecute_FailureStillReleases(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		r := newRig(t, false)

		r.output(t, 15).Fail(errTestJam)

		_, err := r.library.Execute(context.Background(), "close")
		require.ErrorIs(t, err, errTestJam)

		for _, s := range r.registry.Snapshot() {
			require.False(t, s.Powered, s.Name)
		}

		require.False(t, r.output(t, 12).Enabled())
	})
}

// TestExecute_Release replies with the released token.
func TestExecute_Release(t *testing.T) {
	t.Parallel()

	r := newRig(t, false)

	a, _ := r.registry.Actuator("top_left")
	_, err := a.Enable()
	require.NoError(t, err)

	reply, err := r.library.Execute(context.Background(), "release")
	require.NoError(t, err)
	require.Equal(t, "released", reply)
	requireAllReleased(t, r)
}

// TestCommands lists every verb once in display order.
func TestCommands(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{
		"open", "close", "blink", "wink_left", "wink_right",
		"look_up", "look_down", "look_left", "look_right", "center_ud", "release",
	}, Names())

	cmd, ok := Lookup("release")
	require.True(t, ok)
	require.Equal(t, "released", cmd.Reply)

	_, ok = Lookup("ping")
	require.False(t, ok)

	for _, c := range Commands() {
		require.NotNil(t, c.Run, c.Name)
		require.NotEmpty(t, c.Description, c.Name)
	}
}

// TestCommand_RunTakesContextFirst drives a table entry directly.
func TestCommand_RunTakesContextFirst(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		r := newRig(t, false)

		cmd, ok := Lookup("close")
		require.True(t, ok)
		require.NoError(t, cmd.Run(context.Background(), r.library))

		require.Equal(t, 1155, r.pulse(t, "top_left"))
		require.Equal(t, 1040, r.pulse(t, "bottom_right"))

		for _, a := range r.registry.Actuators() {
			require.False(t, a.Powered(), a.Name())
		}
	})
}
