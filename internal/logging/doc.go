// Package logging builds the slog loggers Spool components share.
//
// New assembles console or JSON handlers from config-driven options and fans
// output across stdout and the session log file. Context helpers carry
// download GIDs, chat identifiers, and correlation IDs so handlers stamp
// every line without call sites repeating the fields, and NewNop returns a
// discard logger for tests and optional wiring.
//
// Components should take their *slog.Logger from these constructors rather
// than configuring handlers themselves; that keeps field names and output
// routing consistent across the daemon.
package logging
