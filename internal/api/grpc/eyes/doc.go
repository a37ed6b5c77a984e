// Package eyes implements the gRPC transport for the eyes service.
//
// It adapts domain types to protobuf well-known messages, maps domain errors
// to gRPC status codes and calls into a provided business-service interface.
package eyes
