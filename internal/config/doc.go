// Package config reads and validates Spool's TOML configuration.
//
// Load merges repository defaults with the user's config file, expands tilde
// paths, and applies environment fallbacks (SPOOL_TELEGRAM_TOKEN,
// SPOOL_ARIA2_SECRET). The resulting Config carries every setting the daemon
// and CLI consume: the aria2 endpoint, Telegram credentials, the history
// database path, and the control socket location.
//
// Callers should go through Load rather than reading files directly so they
// get normalized paths and validation errors up front.
package config
