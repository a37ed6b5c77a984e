package pb

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// Request metadata keys identifying the sender of a command.
const (
	ActorHostnameKey = "x-actor-hostname"
	ActorUsernameKey = "x-actor-username"
)

// WithActor attaches the sender identity to an outgoing call.
func WithActor(ctx context.Context, hostname, username string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, ActorHostnameKey, hostname, ActorUsernameKey, username)
}

// ActorFromContext reads the sender identity of an incoming call.
// It reports false when neither key is present.
func ActorFromContext(ctx context.Context) (hostname, username string, ok bool) {
	md, found := metadata.FromIncomingContext(ctx)
	if !found {
		return "", "", false
	}

	hostname = first(md.Get(ActorHostnameKey))
	username = first(md.Get(ActorUsernameKey))

	return hostname, username, hostname != "" || username != ""
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}

	return values[0]
}
