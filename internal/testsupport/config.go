package testsupport

import (
	"path/filepath"
	"testing"

	"spool/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Telegram.Token = "test-token"
	cfgVal.Telegram.AllowedChatIDs = []int64{1}
	cfgVal.Telegram.NotifyChatIDs = []int64{1}
	cfgVal.Database.Path = filepath.Join(base, "spool.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.Socket = filepath.Join(base, "spool.sock")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMaxHistory caps the history retention limit on the test config.
func WithMaxHistory(limit int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Database.MaxHistory = limit
	}
}

// WithAllowedChats replaces the chat allow-list on the test config.
func WithAllowedChats(ids ...int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Telegram.AllowedChatIDs = append([]int64(nil), ids...)
		b.cfg.Telegram.NotifyChatIDs = append([]int64(nil), ids...)
	}
}

// WithPageSize overrides the pagination page size on the test config.
func WithPageSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pagination.PageSize = size
	}
}

// WithDownloadDir points the engine download directory at the given path.
func WithDownloadDir(dir string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Aria2.DownloadDir = dir
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
