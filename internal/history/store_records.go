package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Upsert records a finished download. The first writer for a gid wins;
// replaying the same gid later leaves the stored record untouched, which
// keeps the monitor and the notifier from clobbering each other. The
// retention limit is enforced in the same transaction. Returns true when
// a new row was inserted.
func (s *Store) Upsert(ctx context.Context, record *Record) (bool, error) {
	if record == nil {
		return false, errors.New("record is nil")
	}
	gid := strings.TrimSpace(record.GID)
	if gid == "" {
		return false, errors.New("record gid is required")
	}
	status, ok := ParseStatus(string(record.Status))
	if !ok {
		return false, fmt.Errorf("unknown history status %q", record.Status)
	}

	finished := record.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	filesValue, err := encodeFiles(record.Files)
	if err != nil {
		return false, err
	}

	var inserted bool
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO downloads (
                gid, name, name_fold, status, size_bytes, error, error_fold,
                finished_at, notified, files_json
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			gid,
			record.Name,
			foldText(record.Name),
			status,
			record.SizeBytes,
			nullableString(record.Error),
			nullableString(foldText(record.Error)),
			finished.UTC().Format(time.RFC3339Nano),
			boolToInt(record.Notified),
			filesValue,
		)
		if err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		inserted = affected > 0
		if inserted && s.maxHistory > 0 {
			if _, err := trimTx(ctx, tx, s.maxHistory); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// MarkNotified flags a record as announced. The flag only ever moves from
// false to true; marking an absent gid is a no-op.
func (s *Store) MarkNotified(ctx context.Context, gid string) error {
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE downloads SET notified = 1 WHERE gid = ?`, gid,
	); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

// Get fetches a record by gid, returning nil when absent.
func (s *Store) Get(ctx context.Context, gid string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM downloads WHERE gid = ?`, gid)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// Pending returns records that have not been announced yet.
func (s *Store) Pending(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM downloads WHERE notified = 0`)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// Page returns one page of records ordered newest first along with the
// total record count.
func (s *Store) Page(ctx context.Context, offset, limit int) ([]*Record, int, error) {
	if limit <= 0 {
		return nil, 0, errors.New("limit must be positive")
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM downloads`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM downloads ORDER BY finished_at DESC, gid LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query page: %w", err)
	}
	defer rows.Close()

	records, err := collectRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Search returns one page of records whose name or error message contains
// the term, compared after Unicode case folding. Ordering and totals match
// Page semantics but count only matching records.
func (s *Store) Search(ctx context.Context, term string, offset, limit int) ([]*Record, int, error) {
	if limit <= 0 {
		return nil, 0, errors.New("limit must be positive")
	}
	if offset < 0 {
		offset = 0
	}

	pattern := "%" + escapeLike(foldText(strings.TrimSpace(term))) + "%"
	const whereClause = ` WHERE name_fold LIKE ? ESCAPE '\' OR IFNULL(error_fold, '') LIKE ? ESCAPE '\'`

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM downloads`+whereClause, pattern, pattern,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count matches: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM downloads`+whereClause+
			` ORDER BY finished_at DESC, gid LIMIT ? OFFSET ?`,
		pattern, pattern, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	records, err := collectRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Clear removes all records from the history.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM downloads`)
		if err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Trim deletes the oldest records beyond maxCount, newest kept. A
// non-positive limit disables trimming.
func (s *Store) Trim(ctx context.Context, maxCount int) (int64, error) {
	if maxCount <= 0 {
		return 0, nil
	}
	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		removed, err = trimTx(ctx, tx, maxCount)
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func trimTx(ctx context.Context, tx *sql.Tx, maxCount int) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM downloads WHERE gid IN (
            SELECT gid FROM downloads ORDER BY finished_at DESC, gid LIMIT -1 OFFSET ?
        )`,
		maxCount,
	)
	if err != nil {
		return 0, fmt.Errorf("trim history: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

// Stats returns a count of records grouped by terminal status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM downloads GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func collectRecords(rows *sql.Rows) ([]*Record, error) {
	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
