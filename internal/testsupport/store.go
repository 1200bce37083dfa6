package testsupport

import (
	"context"
	"testing"
	"time"

	"spool/internal/config"
	"spool/internal/history"
)

// MustOpenStore opens a history.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedRecord inserts a finished download for tests using the provided store.
func SeedRecord(t testing.TB, store *history.Store, gid, name string, status history.Status, finished time.Time) *history.Record {
	t.Helper()

	record := &history.Record{
		GID:        gid,
		Name:       name,
		Status:     status,
		FinishedAt: finished,
	}
	if _, err := store.Upsert(context.Background(), record); err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	return record
}
