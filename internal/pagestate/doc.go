// Package pagestate keeps the ephemeral "which page is this chat looking at"
// state behind paginated Telegram replies and CLI listings.
//
// Selections are keyed by surface (chat plus command), hold a snapshot of the
// items taken when the command ran, and expire after a window of inactivity.
// Eviction is lossy on purpose: a pruned selection only means the user taps a
// stale button and is told to rerun the command.
package pagestate
