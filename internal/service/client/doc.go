// Package client implements the eyes-client command.
//
// A verb is sent to the eyes server and retried under the configured policy;
// "ping", "status" and "wait" query the server instead of moving anything.
package client
