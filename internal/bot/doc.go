// Package bot runs the Telegram command surface.
//
// A single long-poll loop pulls updates and dispatches them to command and
// callback handlers. Every update is authorized against the configured chat
// allow-list before any handler runs; refusals are logged as alerts.
//
// Paged views (/status, /history, /search) snapshot their result set into a
// per-chat page state registry and flip through that snapshot via inline
// keyboards, so a list never shifts under the user while they browse. Expired
// page state asks the user to rerun the command.
package bot
