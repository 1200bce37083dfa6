// Package monitor drives live progress updates for chat messages.
//
// The bot registers a (chat, message, gid) triple after submitting a
// download; from then on the monitor owns that message. Every cycle it
// fetches the download's snapshot, renders the message content, and compares
// a fingerprint of the rendering against the last applied one: identical
// content is never re-sent, so the chat surface sees an edit only when
// something actually changed.
//
// Terminal downloads are written to the history store and unregistered;
// their final message carries no control keyboard. A gid the engine no
// longer knows is settled as removed. Failures are scoped per entry: a rate
// limit waits out the advertised backoff once, a gone surface is dropped,
// and anything transient is retried on the next cycle.
package monitor
