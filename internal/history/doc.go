// Package history persists finished downloads in SQLite so chat and CLI
// surfaces can page through past outcomes and the notifier can track which
// completions have already been announced.
//
// The Store owns the database connection, schema initialization, and the
// retention limit. Records are keyed by aria2 gid and written once: the
// first terminal snapshot for a gid is authoritative, and later writers
// are ignored. Name and error text are stored alongside case-folded copies
// so search works across scripts without collation tricks.
//
// Schema changes bump the version in schema.go; users clear the database
// to adopt the new schema.
package history
