// Package logs reads spool's log files for display in the CLI.
//
// Tail returns a window of a log file with bounded memory usage: a negative
// offset fetches the newest lines, a saved offset resumes where the previous
// call stopped, and follow mode polls until fresh lines arrive or the wait
// expires. The daemon serves these reads over the control socket so that
// `spool logs --follow` keeps working across log rotation; when no daemon is
// running the CLI falls back to reading the pointer file directly.
package logs
