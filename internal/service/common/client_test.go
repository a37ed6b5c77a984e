//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/walle-eyes/internal/domain/face"
	pb "github.com/oshokin/walle-eyes/internal/pb/v1"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()
	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestExecute_EmptyCommand asserts that an empty verb is rejected by the client.
func TestExecute_EmptyCommand(t *testing.T) {
	t.Parallel()

	c := new(Client)
	_, err := c.Execute(context.Background(), nil, "")
	require.ErrorIs(t, err, errCommandRequired)
}

// echoServer answers Execute with the verb and the actor it saw.
type echoServer struct {
	pb.UnimplementedEyesServiceServer
}

func (echoServer) Execute(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if in.GetValue() == "dance" {
		return nil, status.Error(codes.InvalidArgument, "unknown command")
	}

	hostname, username, _ := pb.ActorFromContext(ctx)

	return wrapperspb.String(in.GetValue() + " by " + username + "@" + hostname), nil
}

func (echoServer) Status(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"busy": false})
}

func (echoServer) Ping(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String("pong"), nil
}

// TestClient_Roundtrip talks to a real gRPC server over loopback.
func TestClient_Roundtrip(t *testing.T) {
	t.Parallel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	pb.RegisterEyesServiceServer(srv, echoServer{})

	go func() {
		_ = srv.Serve(lis) //nolint:errcheck // Stopped below.
	}()

	t.Cleanup(srv.Stop)

	c, err := Dial(context.Background(), lis.Addr().String(), WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	defer func() {
		_ = c.Close()
	}()

	ctx := context.Background()

	pong, err := c.Ping(ctx)
	require.NoError(t, err)
	require.Equal(t, "pong", pong)

	reply, err := c.Execute(ctx, &face.Actor{Hostname: "wall-e", Username: "eve"}, "blink")
	require.NoError(t, err)
	require.Equal(t, "blink by eve@wall-e", reply)

	_, err = c.Execute(ctx, nil, "dance")
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	st, err := c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"busy": false}, st.AsMap())
}
