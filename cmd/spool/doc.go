// Package main implements the spool command line interface.
//
// Most subcommands are thin IPC clients: they resolve the config file and
// control socket once through commandContext, call a daemon endpoint, and
// render the response. Download control, history queries, log tailing, and
// notification tests all follow that shape; only config scaffolding and
// daemon lifecycle commands touch the filesystem directly.
//
// New behavior belongs in the internal packages; commands here should stay
// limited to flag parsing and output rendering.
package main
