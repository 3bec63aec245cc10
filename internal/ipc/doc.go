// Package ipc carries control traffic between the CLI and the daemon as
// JSON-RPC over a Unix socket.
//
// The server side registers the Shuttle service, owns the socket's
// lifecycle, and translates catalog and history models into the wire DTOs
// defined here. The client side dials per invocation, so CLI commands fail
// fast when no daemon is listening.
//
// New RPC endpoints should extend the existing request/response types
// rather than invent parallel ones; command implementations depend on the
// shapes staying stable.
package ipc
