//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/walle-eyes/internal/config"
	"github.com/oshokin/walle-eyes/internal/domain/face"
	pb "github.com/oshokin/walle-eyes/internal/pb/v1"
)

// Client wraps the gRPC EyesService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the eyes server.
	conn *grpc.ClientConn
	// api is the EyesService client interface.
	api pb.EyesServiceClient
	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errCommandRequired is returned when no verb is given.
	errCommandRequired = errors.New("command must be provided")
)

// Dial establishes a gRPC connection to the eyes server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial eyes server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         pb.NewEyesServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Execute sends one command verb on behalf of actor and returns the reply token.
func (c *Client) Execute(ctx context.Context, actor *face.Actor, verb string) (string, error) {
	if verb == "" {
		return "", errCommandRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if actor != nil {
		callCtx = pb.WithActor(callCtx, actor.Hostname, actor.Username)
	}

	reply, err := c.api.Execute(callCtx, wrapperspb.String(verb))
	if err != nil {
		return "", fmt.Errorf("execute %s: %w", verb, err)
	}

	return reply.GetValue(), nil
}

// Status retrieves the rig snapshot.
func (c *Client) Status(ctx context.Context) (*structpb.Struct, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Status(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	return resp, nil
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) (string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Ping(callCtx, new(emptypb.Empty))
	if err != nil {
		return "", fmt.Errorf("ping: %w", err)
	}

	return resp.GetValue(), nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
