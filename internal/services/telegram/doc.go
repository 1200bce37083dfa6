// Package telegram is a thin Bot API client covering the calls spool
// actually makes: sending and editing HTML messages with inline keyboards,
// answering callback taps, long-polling updates, and registering the
// command menu.
//
// API failures are folded into the shared services taxonomy so callers can
// classify without parsing descriptions: 429 becomes a RateLimitError
// carrying the advertised wait, a blocked chat or vanished message becomes
// ErrSurfaceGone, and server-side trouble stays retryable.
package telegram
