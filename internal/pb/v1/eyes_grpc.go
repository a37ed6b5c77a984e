package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Full method names of EyesService.
const (
	EyesService_Execute_FullMethodName = "/eyes.v1.EyesService/Execute" //nolint:revive,stylecheck // Generated-style name.
	EyesService_Status_FullMethodName  = "/eyes.v1.EyesService/Status"  //nolint:revive,stylecheck // Generated-style name.
	EyesService_Ping_FullMethodName    = "/eyes.v1.EyesService/Ping"    //nolint:revive,stylecheck // Generated-style name.
)

// EyesServiceClient is the client API for EyesService.
type EyesServiceClient interface {
	// Execute runs one command verb and returns its reply token.
	Execute(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	// Status returns a snapshot of every servo and the last command.
	Status(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	// Ping answers "pong".
	Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

type eyesServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewEyesServiceClient creates a client over cc.
func NewEyesServiceClient(cc grpc.ClientConnInterface) EyesServiceClient {
	return &eyesServiceClient{cc: cc}
}

func (c *eyesServiceClient) Execute(
	ctx context.Context,
	in *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, EyesService_Execute_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *eyesServiceClient) Status(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, EyesService_Status_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *eyesServiceClient) Ping(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, EyesService_Ping_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// EyesServiceServer is the server API for EyesService. Implementations must
// embed UnimplementedEyesServiceServer.
type EyesServiceServer interface {
	Execute(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Status(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	Ping(ctx context.Context, in *emptypb.Empty) (*wrapperspb.StringValue, error)
	mustEmbedUnimplementedEyesServiceServer()
}

// UnimplementedEyesServiceServer answers every method with codes.Unimplemented.
type UnimplementedEyesServiceServer struct{}

// Execute is not implemented.
func (UnimplementedEyesServiceServer) Execute(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Execute not implemented")
}

// Status is not implemented.
func (UnimplementedEyesServiceServer) Status(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Status not implemented")
}

// Ping is not implemented.
func (UnimplementedEyesServiceServer) Ping(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}

func (UnimplementedEyesServiceServer) mustEmbedUnimplementedEyesServiceServer() {}

// RegisterEyesServiceServer registers srv on s.
func RegisterEyesServiceServer(s grpc.ServiceRegistrar, srv EyesServiceServer) {
	s.RegisterService(&EyesService_ServiceDesc, srv)
}

func unaryHandler[In any](
	fullMethod string,
	call func(EyesServiceServer, context.Context, *In) (any, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(In)
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return call(srv.(EyesServiceServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(EyesServiceServer), ctx, req.(*In))
		}

		return interceptor(ctx, in, info, handler)
	}
}

// EyesService_ServiceDesc is the grpc.ServiceDesc for EyesService.
//
//nolint:gochecknoglobals,revive,stylecheck // Descriptor consumed by grpc.RegisterService.
var EyesService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "eyes.v1.EyesService",
	HandlerType: (*EyesServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Execute",
			Handler: unaryHandler(EyesService_Execute_FullMethodName,
				func(s EyesServiceServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) {
					return s.Execute(ctx, in)
				}),
		},
		{
			MethodName: "Status",
			Handler: unaryHandler(EyesService_Status_FullMethodName,
				func(s EyesServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
					return s.Status(ctx, in)
				}),
		},
		{
			MethodName: "Ping",
			Handler: unaryHandler(EyesService_Ping_FullMethodName,
				func(s EyesServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
					return s.Ping(ctx, in)
				}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "eyes/v1/eyes.proto",
}
