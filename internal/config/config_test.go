package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"spool/internal/config"
)

func TestLoadDefaultConfigUsesEnvTokenAndExpandsPaths(t *testing.T) {
	t.Setenv("SPOOL_TELEGRAM_TOKEN", "test-token")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_DATA_HOME", "")

	cfg, resolved, exists, err := config.Load("")
	if err == nil {
		t.Fatal("expected error: allowed_chat_ids is empty by default")
	}
	_ = cfg
	_ = resolved
	_ = exists
	if !strings.Contains(err.Error(), "allowed_chat_ids") {
		t.Fatalf("expected allow-list error, got %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_DATA_HOME", "")
	configPath := filepath.Join(t.TempDir(), "spool.toml")

	type payload struct {
		Telegram struct {
			Token          string  `toml:"token"`
			AllowedChatIDs []int64 `toml:"allowed_chat_ids"`
		} `toml:"telegram"`
		Aria2 struct {
			RPCURL string `toml:"rpc_url"`
		} `toml:"aria2"`
		Monitor struct {
			UpdateInterval int `toml:"update_interval"`
		} `toml:"monitor"`
	}
	custom := payload{}
	custom.Telegram.Token = "abc123"
	custom.Telegram.AllowedChatIDs = []int64{42, 42, 7}
	custom.Aria2.RPCURL = "http://aria2.local:6800/jsonrpc"
	custom.Monitor.UpdateInterval = 3
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Telegram.Token != "abc123" {
		t.Fatalf("expected token from file, got %q", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.AllowedChatIDs) != 2 {
		t.Fatalf("expected duplicate chat ids collapsed, got %v", cfg.Telegram.AllowedChatIDs)
	}
	if len(cfg.Telegram.NotifyChatIDs) != 2 {
		t.Fatalf("expected notify chats to default to allow-list, got %v", cfg.Telegram.NotifyChatIDs)
	}
	if cfg.Aria2.RPCURL != "http://aria2.local:6800/jsonrpc" {
		t.Fatalf("expected rpc url override, got %q", cfg.Aria2.RPCURL)
	}
	if cfg.Monitor.UpdateInterval != 3 {
		t.Fatalf("expected update interval 3, got %d", cfg.Monitor.UpdateInterval)
	}
	if cfg.Monitor.NotifyInterval != config.Default().Monitor.NotifyInterval {
		t.Fatalf("unexpected notify interval: %d", cfg.Monitor.NotifyInterval)
	}
	if !cfg.ChatAllowed(42) {
		t.Fatal("expected chat 42 to be allowed")
	}
	if cfg.ChatAllowed(99) {
		t.Fatal("expected chat 99 to be rejected")
	}
	if !filepath.IsAbs(cfg.Database.Path) {
		t.Fatalf("expected expanded database path, got %q", cfg.Database.Path)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, filepath.Dir(cfg.Database.Path)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestEnvVarFillsSecrets(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_DATA_HOME", "")
	configPath := filepath.Join(t.TempDir(), "spool.toml")

	type payload struct {
		Telegram struct {
			AllowedChatIDs []int64 `toml:"allowed_chat_ids"`
		} `toml:"telegram"`
	}
	custom := payload{}
	custom.Telegram.AllowedChatIDs = []int64{1}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("SPOOL_TELEGRAM_TOKEN", "env-token")
	t.Setenv("SPOOL_ARIA2_SECRET", "env-secret")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Errorf("expected telegram token from env, got %q", cfg.Telegram.Token)
	}
	if cfg.Aria2.Secret != "env-secret" {
		t.Errorf("expected aria2 secret from env, got %q", cfg.Aria2.Secret)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_bot_token_here") {
		t.Fatalf("sample config missing placeholder token: %s", contents)
	}

	// Validate it decodes
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Aria2.RPCURL == "" {
		t.Fatal("expected sample to carry aria2 rpc_url")
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	base := func() config.Config {
		cfg := config.Default()
		cfg.Telegram.Token = "token"
		cfg.Telegram.AllowedChatIDs = []int64{1}
		cfg.Telegram.NotifyChatIDs = []int64{1}
		return cfg
	}

	cfg := base()
	cfg.Telegram.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing token")
	}

	cfg = base()
	cfg.Telegram.AllowedChatIDs = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty allow-list")
	}

	cfg = base()
	cfg.Telegram.PollTimeout = 120
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for excessive poll timeout")
	}

	cfg = base()
	cfg.Aria2.RPCURL = "ftp://example.com/jsonrpc"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-http rpc url")
	}

	cfg = base()
	cfg.Database.MaxHistory = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero max_history")
	}

	cfg = base()
	cfg.Pagination.PageSize = 51
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for oversized page_size")
	}

	cfg = base()
	cfg.Monitor.MaxConcurrent = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero max_concurrent")
	}

	cfg = base()
	cfg.Logging.ComponentOverrides = map[string]string{"bot": "loud"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported override level")
	}
}
