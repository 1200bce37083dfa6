// Package daemon coordinates the long-running spool process.
//
// It wires the history store, the aria2 and Telegram clients, the task
// monitor, the notifier, and the bot poller into one process lifecycle,
// guarded by a flock-held lock file so only one instance runs per data
// directory. The daemon also exposes the operations the control socket
// serves: engine actions, history queries, status snapshots, and
// notification tests.
//
// Keep orchestration here: the components own their loops, the daemon owns
// startup order, shutdown order, and the facade the CLI talks to.
package daemon
