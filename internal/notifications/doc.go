// Package notifications delivers completion messages for settled downloads.
//
// The Notifier runs an independent periodic loop: it folds the engine's
// stopped-task list into the history store (idempotent, so downloads that
// settled while the daemon was down are still caught), then pushes a
// rendered message for every record not yet marked notified. The flag is
// set once at least one chat recipient accepted the message; until then the
// record stays pending and the next cycle retries.
//
// The Service interface is the optional secondary push channel. The ntfy
// implementation posts to the topic named in config.toml; with no topic set
// it collapses to a no-op. It fires best-effort alongside chat delivery and
// never participates in the notified flag.
package notifications
