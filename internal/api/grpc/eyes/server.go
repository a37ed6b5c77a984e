package eyes

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/walle-eyes/internal/domain/face"
	"github.com/oshokin/walle-eyes/internal/domain/gesture"
	pb "github.com/oshokin/walle-eyes/internal/pb/v1"
)

// PingReply is the answer to Ping.
const PingReply = "pong"

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Execute(ctx context.Context, actor *face.Actor, verb string) (string, error)
	Status(ctx context.Context) *face.Status
}

// Server implements the EyesService gRPC API.
type Server struct {
	pb.UnimplementedEyesServiceServer

	// service runs the commands.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Execute runs one command verb for the actor found in the request metadata.
func (s *Server) Execute(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if req == nil || req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "command is required")
	}

	reply, err := s.service.Execute(ctx, actorFromContext(ctx), req.GetValue())
	if err != nil {
		return nil, toStatusError(err)
	}

	return wrapperspb.String(reply), nil
}

// Status returns a snapshot of the rig.
func (s *Server) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snapshot, err := structpb.NewStruct(toStatusMap(s.service.Status(ctx)))
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode status")
	}

	return snapshot, nil
}

// Ping answers pong without touching the servos.
func (s *Server) Ping(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String(PingReply), nil
}

// toStatusError maps domain and context errors to gRPC status codes.
func toStatusError(err error) error {
	switch {
	case errors.Is(err, gesture.ErrUnknownCommand):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, gesture.ErrUnavailable):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// actorFromContext converts request metadata to a domain Actor.
func actorFromContext(ctx context.Context) *face.Actor {
	hostname, username, ok := pb.ActorFromContext(ctx)
	if !ok {
		return nil
	}

	return &face.Actor{
		Hostname: hostname,
		Username: username,
	}
}

// toStatusMap converts a face.Status to the plain values structpb accepts.
func toStatusMap(st *face.Status) map[string]any {
	if st == nil {
		return map[string]any{}
	}

	actuators := make([]any, 0, len(st.Actuators))
	for _, a := range st.Actuators {
		actuators = append(actuators, map[string]any{
			"name":     a.Name,
			"channel":  a.Channel,
			"pulse_us": a.Pulse,
			"powered":  a.Powered,
		})
	}

	var actor any
	if st.LastActor != nil {
		actor = map[string]any{
			"hostname": st.LastActor.Hostname,
			"username": st.LastActor.Username,
		}
	}

	var updatedAt string
	if !st.UpdatedAt.IsZero() {
		updatedAt = st.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}

	return map[string]any{
		"actuators":    actuators,
		"busy":         st.Busy,
		"last_command": st.LastCommand,
		"last_error":   st.LastError,
		"last_actor":   actor,
		"updated_at":   updatedAt,
	}
}
