// Package format renders chat-facing text and inline keyboards.
//
// Every function is pure: inputs come from the engine client or the history
// store, output is Telegram HTML or keyboard markup. Nothing here talks to
// the network, so the bot and notifier layers stay thin and the rendering
// rules are testable in isolation.
package format
