package face

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/walle-eyes/internal/domain/servo"
)

// TestActorClone verifies that Clone returns a deep copy and handles nil safely.
func TestActorClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Actor)(nil).Clone())

	a := &Actor{
		Hostname: "wall-e",
		Username: "eve",
	}

	b := a.Clone()

	require.Equal(t, a, b)
	require.NotSame(t, a, b)
}

// TestActorString covers partial identities.
func TestActorString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "eve@wall-e", (&Actor{Hostname: "wall-e", Username: "eve"}).String())
	require.Equal(t, "wall-e", (&Actor{Hostname: "wall-e"}).String())
	require.Equal(t, "eve", (&Actor{Username: "eve"}).String())
	require.Equal(t, "anonymous", (&Actor{}).String())
	require.Equal(t, "anonymous", (*Actor)(nil).String())
}

// TestStatusClone verifies the snapshot slice and actor are copied.
func TestStatusClone(t *testing.T) {
	t.Parallel()

	require.Nil(t, (*Status)(nil).Clone())

	s := &Status{
		Actuators:   []servo.Snapshot{{Name: "top_left", Channel: 12, Pulse: 2200}},
		LastCommand: "blink",
		LastActor:   &Actor{Hostname: "wall-e", Username: "eve"},
		UpdatedAt:   time.Now().UTC().Truncate(time.Second),
	}

	c := s.Clone()
	require.Equal(t, s, c)
	require.NotSame(t, s.LastActor, c.LastActor)

	c.Actuators[0].Pulse = 1155
	require.Equal(t, 2200, s.Actuators[0].Pulse)
}
