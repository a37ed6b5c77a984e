package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/walle-eyes/internal/domain/face"
	"github.com/oshokin/walle-eyes/internal/domain/gesture"
	"github.com/oshokin/walle-eyes/internal/domain/servo"
)

// fakeService answers known verbs with their reply token.
type fakeService struct {
	// fail maps a verb to the error Execute returns for it.
	fail map[string]error
	// actor is the last actor passed to Execute.
	actor *face.Actor
	// status is returned by Status.
	status *face.Status
}

func (f *fakeService) Execute(_ context.Context, actor *face.Actor, verb string) (string, error) {
	f.actor = actor

	if err, ok := f.fail[verb]; ok {
		return "", err
	}

	cmd, ok := gesture.Lookup(verb)
	if !ok {
		return "", fmt.Errorf("%w: %q", gesture.ErrUnknownCommand, verb)
	}

	return cmd.Reply, nil
}

func (f *fakeService) Status(context.Context) *face.Status { return f.status }

func newTestServer(t *testing.T, svc *fakeService) *httptest.Server {
	t.Helper()

	router, err := NewRouter(context.Background(), svc)
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv
}

func call(t *testing.T, method, url string, header http.Header) (int, string) {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, url, nil)
	require.NoError(t, err)

	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

// TestRouter_Verbs answers every verb with its reply token on GET and POST.
func TestRouter_Verbs(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, new(fakeService))

	for _, c := range gesture.Commands() {
		for _, method := range []string{http.MethodGet, http.MethodPost} {
			code, body := call(t, method, srv.URL+"/"+c.Name, nil)
			require.Equal(t, http.StatusOK, code, c.Name)
			require.Equal(t, c.Reply, body, c.Name)
		}
	}

	code, body := call(t, http.MethodGet, srv.URL+"/release", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "released", body)
}

// TestRouter_Ping answers pong without reaching the service.
func TestRouter_Ping(t *testing.T) {
	t.Parallel()

	svc := new(fakeService)
	srv := newTestServer(t, svc)

	code, body := call(t, http.MethodGet, srv.URL+"/ping", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "pong", body)
	require.Nil(t, svc.actor)
}

// TestRouter_Errors maps unknown and unavailable verbs to 404 and motion failures to 500.
func TestRouter_Errors(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeService{fail: map[string]error{
		"look_left": fmt.Errorf("look left: %w", gesture.ErrUnavailable),
		"close":     fmt.Errorf("close: %w", servo.ErrUnknownPosition),
	}})

	code, body := call(t, http.MethodGet, srv.URL+"/dance", nil)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "404", body)

	code, body = call(t, http.MethodPost, srv.URL+"/look_left", nil)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "404", body)

	code, body = call(t, http.MethodGet, srv.URL+"/close", nil)
	require.Equal(t, http.StatusInternalServerError, code)
	require.Contains(t, body, "unknown position")
}

// TestRouter_Actor takes the host from the connection and the user from the header.
func TestRouter_Actor(t *testing.T) {
	t.Parallel()

	svc := new(fakeService)
	srv := newTestServer(t, svc)

	code, _ := call(t, http.MethodPost, srv.URL+"/blink", http.Header{ActorHeader: {"eve"}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, &face.Actor{Hostname: "127.0.0.1", Username: "eve"}, svc.actor)
}

// TestRouter_Index lists a button per verb.
func TestRouter_Index(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, new(fakeService))

	code, body := call(t, http.MethodGet, srv.URL+"/", nil)
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "Wall-E Control Panel")
	require.Contains(t, body, "Center Up/Down")

	for _, name := range gesture.Names() {
		require.Contains(t, body, "cmd('/"+name+"')")
	}
}

// TestRouter_Status renders the snapshot as JSON.
func TestRouter_Status(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeService{status: &face.Status{
		Actuators:   []servo.Snapshot{{Name: "up_down", Channel: 11, Pulse: 1410}},
		LastCommand: "look_up",
		LastError:   "",
		LastActor:   &face.Actor{Hostname: "wall-e", Username: "eve"},
		UpdatedAt:   time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC),
	}})

	code, body := call(t, http.MethodGet, srv.URL+"/api/status", nil)
	require.Equal(t, http.StatusOK, code)

	var got map[string]any
	require.NoError(t, json.NewDecoder(strings.NewReader(body)).Decode(&got))
	require.Equal(t, "look_up", got["last_command"])
	require.Equal(t, "2026-10-18T08:00:00Z", got["updated_at"])
	require.Equal(t, map[string]any{"hostname": "wall-e", "username": "eve"}, got["last_actor"])
	require.Equal(t, []any{map[string]any{
		"name":     "up_down",
		"channel":  float64(11),
		"pulse_us": float64(1410),
		"powered":  false,
	}}, got["actuators"])
}

// TestLabel turns verbs into button captions.
func TestLabel(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Wink Left", label("wink_left"))
	require.Equal(t, "Open", label("open"))
	require.Equal(t, "Center Up/Down", label("center_ud"))
}
