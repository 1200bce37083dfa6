package pagestate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"spool/internal/logging"
)

// ErrExpired indicates a keyed selection is gone, either never created or
// already evicted. Callers surface it as "selection expired" rather than a
// failure.
var ErrExpired = errors.New("page state expired")

// Page is one renderable window over a stored selection.
type Page[T any] struct {
	Label      string
	Items      []T
	Index      int
	TotalPages int
	HasPrev    bool
	HasNext    bool
}

type entry[T any] struct {
	label    string
	items    []T
	pageSize int
	index    int
	touched  time.Time
}

// Registry holds per-surface pagination state with inactivity eviction.
// Losing an entry is never correctness-critical; the owning surface simply
// asks the user to rerun the command.
type Registry[T any] struct {
	ttl    time.Duration
	sweep  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry[T]

	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRegistry constructs a registry whose entries expire after ttl of
// inactivity. The janitor wakes every sweep interval once started.
func NewRegistry[T any](ttl, sweep time.Duration, logger *slog.Logger) *Registry[T] {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "pagestate")

	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if sweep <= 0 {
		sweep = time.Minute
	}
	return &Registry[T]{
		ttl:     ttl,
		sweep:   sweep,
		logger:  logger,
		entries: make(map[string]*entry[T]),
	}
}

// Create stores a selection under key and returns its first page. An
// existing selection under the same key is replaced.
func (r *Registry[T]) Create(key, label string, items []T, pageSize int) (Page[T], error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Page[T]{}, errors.New("page state key cannot be empty")
	}
	if pageSize < 1 {
		return Page[T]{}, errors.New("page size must be at least 1")
	}

	e := &entry[T]{
		label:    label,
		items:    append([]T(nil), items...),
		pageSize: pageSize,
		touched:  time.Now(),
	}

	r.mu.Lock()
	r.entries[key] = e
	r.mu.Unlock()

	return e.page(), nil
}

// Advance moves the selection by delta pages and returns the resulting
// page. Attempts past either boundary return the boundary page with
// changed=false. A missing or expired key returns ErrExpired.
func (r *Registry[T]) Advance(key string, delta int) (Page[T], bool, error) {
	return r.seek(key, func(index, _ int) int { return index + delta })
}

// Jump moves the selection to the given page index, clamped to the valid
// range, and returns the resulting page.
func (r *Registry[T]) Jump(key string, index int) (Page[T], bool, error) {
	return r.seek(key, func(_, _ int) int { return index })
}

func (r *Registry[T]) seek(key string, resolve func(index, total int) int) (Page[T], bool, error) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		return Page[T]{}, false, ErrExpired
	}
	if now.Sub(e.touched) > r.ttl {
		delete(r.entries, key)
		return Page[T]{}, false, ErrExpired
	}
	e.touched = now

	total := totalPages(len(e.items), e.pageSize)
	next := resolve(e.index, total)
	if next < 0 {
		next = 0
	}
	if next > total-1 {
		next = total - 1
	}
	changed := next != e.index
	e.index = next
	return e.page(), changed, nil
}

// Drop removes the selection under key, if any.
func (r *Registry[T]) Drop(key string) {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
}

// Len returns the number of live selections.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Start launches the eviction janitor.
func (r *Registry[T]) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("page state janitor already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(runCtx)
	return nil
}

// Stop terminates the janitor and waits for it to exit.
func (r *Registry[T]) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
}

func (r *Registry[T]) run(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.sweep):
		}
		if removed, retained := r.evictExpired(time.Now()); removed > 0 {
			r.logger.Debug("evicted expired page state",
				logging.Int("removed", removed),
				logging.Int("retained", retained))
		}
	}
}

func (r *Registry[T]) evictExpired(now time.Time) (removed, retained int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, e := range r.entries {
		if now.Sub(e.touched) > r.ttl {
			delete(r.entries, key)
			removed++
		}
	}
	return removed, len(r.entries)
}

func (e *entry[T]) page() Page[T] {
	total := totalPages(len(e.items), e.pageSize)
	start := e.index * e.pageSize
	if start > len(e.items) {
		start = len(e.items)
	}
	end := start + e.pageSize
	if end > len(e.items) {
		end = len(e.items)
	}
	return Page[T]{
		Label:      e.label,
		Items:      e.items[start:end],
		Index:      e.index,
		TotalPages: total,
		HasPrev:    e.index > 0,
		HasNext:    e.index < total-1,
	}
}

func totalPages(count, pageSize int) int {
	if count <= 0 {
		return 1
	}
	pages := (count + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}
