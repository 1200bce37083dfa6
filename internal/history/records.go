package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Status is the terminal state a download finished in. Live aria2 states
// (active, waiting, paused) never reach the history store.
type Status string

const (
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
	StatusRemoved  Status = "removed"
)

var allStatuses = []Status{
	StatusComplete,
	StatusFailed,
	StatusRemoved,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known terminal states.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Record represents one finished download persisted in SQLite.
type Record struct {
	GID        string
	Name       string
	Status     Status
	SizeBytes  int64
	Error      string
	FinishedAt time.Time
	Notified   bool
	Files      []string
}

const recordColumns = "gid, name, status, size_bytes, error, finished_at, notified, files_json"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		gid         string
		name        sql.NullString
		statusStr   string
		sizeBytes   sql.NullInt64
		errMessage  sql.NullString
		finishedRaw sql.NullString
		notified    sql.NullInt64
		filesJSON   sql.NullString
	)

	if err := scanner.Scan(
		&gid,
		&name,
		&statusStr,
		&sizeBytes,
		&errMessage,
		&finishedRaw,
		&notified,
		&filesJSON,
	); err != nil {
		return nil, err
	}

	record := &Record{
		GID:       gid,
		Name:      name.String,
		Status:    Status(statusStr),
		SizeBytes: sizeBytes.Int64,
		Error:     errMessage.String,
	}
	if notified.Valid {
		record.Notified = notified.Int64 != 0
	}
	if finished, err := parseTimeString(finishedRaw.String); err == nil {
		record.FinishedAt = finished
	}
	if filesJSON.Valid && filesJSON.String != "" {
		if err := json.Unmarshal([]byte(filesJSON.String), &record.Files); err != nil {
			return nil, fmt.Errorf("decode files for %s: %w", gid, err)
		}
	}
	return record, nil
}

// foldText applies full Unicode case folding so search behaves the same
// regardless of how names were cased at submission. Casers are stateful,
// so a fresh one is built per call.
func foldText(value string) string {
	if value == "" {
		return ""
	}
	return cases.Fold().String(value)
}

// escapeLike neutralizes LIKE wildcards in user-supplied search terms.
// Queries using the result must carry ESCAPE '\'.
func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func encodeFiles(files []string) (any, error) {
	if len(files) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(files)
	if err != nil {
		return nil, fmt.Errorf("encode files: %w", err)
	}
	return string(encoded), nil
}
