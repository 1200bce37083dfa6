// Package ipc carries the control protocol between the CLI and the daemon:
// JSON-RPC over a Unix socket, plus the request and response types both sides
// share.
//
// The server side adapts daemon operations onto RPC endpoints and converts
// engine snapshots and history records into their wire representations. The
// client side keeps one method per endpoint so CLI commands stay thin.
//
// New endpoints should reuse these types so the protocol stays compatible
// with older CLI builds talking to a newer daemon.
package ipc
