// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client wrapper with timeouts and utilities to
// detect the current system actor (hostname/username) sent with every command.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
