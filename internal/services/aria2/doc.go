// Package aria2 talks to the download engine over its JSON-RPC endpoint.
//
// The HTTP client normalizes wire quirks so the rest of the daemon never
// sees them: numeric fields arrive as decimal strings, the engine's
// "waiting" and "error" states become queued and failed, and an unknown
// gid surfaces as services.ErrNotFound instead of a message-matching
// exercise for every caller.
package aria2
