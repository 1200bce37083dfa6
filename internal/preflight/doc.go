// Package preflight probes the endpoints and directories spool needs before
// it can do useful work: the aria2 RPC endpoint, the Telegram API, the data
// and log directories, and free space on the download disk.
//
// The checks run in two places:
//   - The daemon runs RunAll once at startup and logs the outcome. Failures
//     are reported, not fatal; the daemon keeps retrying its collaborators
//     through normal operation.
//   - The CLI "spool status" command displays the same checks, building
//     throwaway clients via RunAllFromConfig when the daemon is down.
package preflight
