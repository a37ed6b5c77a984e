// Package pb holds the gRPC bindings of eyes.v1.EyesService
// (api/eyes/v1/eyes.proto). Every message is a protobuf well-known type, so
// only the service descriptor and the client and server stubs live here.
package pb
