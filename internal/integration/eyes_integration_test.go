package integration

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/walle-eyes/internal/config"
	"github.com/oshokin/walle-eyes/internal/domain/face"
	"github.com/oshokin/walle-eyes/internal/service/client"
	"github.com/oshokin/walle-eyes/internal/service/common"
	"github.com/oshokin/walle-eyes/internal/service/server"
)

// freeAddress reserves a loopback port and releases it for the server to take.
func freeAddress(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

// startServer runs eyes-server on the simulated driver and waits until it answers ping.
// Without the left/right servo the horizontal gestures are unavailable.
func startServer(t *testing.T, withLeftRight bool) (grpcAddr, httpAddr string, c *common.Client) {
	t.Helper()

	grpcAddr = freeAddress(t)
	httpAddr = freeAddress(t)

	settings := config.Default()
	settings.ServerAddress = grpcAddr
	settings.HTTPAddress = httpAddr
	settings.LogLevel = "error"

	if !withLeftRight {
		settings.Gaze.LeftRight = nil
	}

	cfgPath := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(cfgPath, settings))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{ConfigPath: cfgPath})
	}()

	c, err := common.Dial(ctx, grpcAddr, common.WithCallTimeout(10*time.Second))
	require.NoError(t, err)

	require.NoError(t, client.WaitReady(ctx, c, 5*time.Second, 50*time.Millisecond))

	t.Cleanup(func() {
		_ = c.Close()

		cancel()
		require.NoError(t, <-done)
	})

	return grpcAddr, httpAddr, c
}

// TestEyes_GRPCRoundtrip moves the simulated rig over gRPC and reads the status back.
func TestEyes_GRPCRoundtrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, _, c := startServer(t, false)
	actor := &face.Actor{Hostname: "pi", Username: "walle"}

	reply, err := c.Execute(ctx, actor, "close")
	require.NoError(t, err)
	require.Equal(t, "close", reply)

	st, err := c.Status(ctx)
	require.NoError(t, err)

	fields := st.AsMap()
	require.Equal(t, "close", fields["last_command"])
	require.Equal(t, false, fields["busy"])
	require.Equal(t, map[string]any{"hostname": "pi", "username": "walle"}, fields["last_actor"])

	actuators, ok := fields["actuators"].([]any)
	require.True(t, ok)
	require.Len(t, actuators, 6)

	for _, a := range actuators {
		require.Equal(t, false, a.(map[string]any)["powered"])
	}

	_, err = c.Execute(ctx, actor, "dance")
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.Execute(ctx, actor, "look_left")
	require.Equal(t, codes.FailedPrecondition, status.Code(err))

	reply, err = c.Execute(ctx, actor, "release")
	require.NoError(t, err)
	require.Equal(t, "released", reply)
}

// TestEyes_HTTPVerbs drives the same rig through the HTTP surface.
func TestEyes_HTTPVerbs(t *testing.T) {
	t.Parallel()

	_, httpAddr, _ := startServer(t, false)
	base := "http://" + httpAddr

	get := func(path string) (int, string) {
		resp, err := http.Get(base + path) //nolint:noctx // Test helper.
		require.NoError(t, err)

		defer func() {
			_ = resp.Body.Close()
		}()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		return resp.StatusCode, string(body)
	}

	code, body := get("/ping")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "pong", body)

	code, body = get("/look_up")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "look_up", body)

	code, body = get("/look_right")
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "404", body)

	code, body = get("/api/status")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, `"last_command":"look_up"`)

	code, _ = get("/")
	require.Equal(t, http.StatusOK, code)
}

// TestEyes_ConcurrentCommandsAreSerialized sends two blinks at once and sees both succeed.
func TestEyes_ConcurrentCommandsAreSerialized(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, _, c := startServer(t, true)

	var wg sync.WaitGroup

	errs := make([]error, 2)

	for i := range errs {
		wg.Go(func() {
			_, errs[i] = c.Execute(ctx, nil, "blink")
		})
	}

	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	reply, err := c.Execute(ctx, nil, "look_left")
	require.NoError(t, err)
	require.Equal(t, "look_left", reply)

	st, err := c.Status(ctx)
	require.NoError(t, err)
	require.Len(t, st.AsMap()["actuators"], 7)
	require.Equal(t, "look_left", st.AsMap()["last_command"])
	require.Empty(t, st.AsMap()["last_error"])
}
