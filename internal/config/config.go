package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Telegram contains configuration for the Telegram bot surface.
type Telegram struct {
	Token          string  `toml:"token"`
	APIBaseURL     string  `toml:"api_base_url"`
	AllowedChatIDs []int64 `toml:"allowed_chat_ids"`
	NotifyChatIDs  []int64 `toml:"notify_chat_ids"`
	PollTimeout    int     `toml:"poll_timeout"`
	RequestTimeout int     `toml:"request_timeout"`
}

// Aria2 contains configuration for the aria2 JSON-RPC endpoint.
type Aria2 struct {
	RPCURL         string `toml:"rpc_url"`
	Secret         string `toml:"secret"`
	RequestTimeout int    `toml:"request_timeout"`
	DownloadDir    string `toml:"download_dir"`
}

// Database contains configuration for the history store.
type Database struct {
	Path       string `toml:"path"`
	MaxHistory int    `toml:"max_history"`
}

// Pagination contains configuration for paged chat result sets.
type Pagination struct {
	PageSize      int `toml:"page_size"`
	TTLMinutes    int `toml:"ttl_minutes"`
	SweepInterval int `toml:"sweep_interval"`
}

// Monitor contains configuration for live message update timing.
type Monitor struct {
	UpdateInterval     int `toml:"update_interval"`
	NotifyInterval     int `toml:"notify_interval"`
	MaxConcurrent      int `toml:"max_concurrent"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Notifications contains configuration for the optional ntfy push channel.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	NtfyServer     string `toml:"ntfy_server"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Paths contains directory and socket configuration.
type Paths struct {
	LogDir string `toml:"log_dir"`
	Socket string `toml:"socket"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format             string            `toml:"format"`
	Level              string            `toml:"level"`
	RetentionDays      int               `toml:"retention_days"`
	ComponentOverrides map[string]string `toml:"component_overrides"`
}

// Config encapsulates all configuration values for Spool.
//
// Configuration sections by subsystem:
//   - Telegram: bot token, chat allow-list, and poll timing
//   - Aria2: JSON-RPC endpoint, secret, and download directory
//   - Database: history store location and retention
//   - Pagination: page size and expiry for paged chat views
//   - Monitor: live message update cadence and fan-out bounds
//   - Notifications: optional ntfy push channel
//   - Paths: log directory and control socket
//   - Logging: log format, level, retention, and per-component levels
type Config struct {
	Telegram      Telegram      `toml:"telegram"`
	Aria2         Aria2         `toml:"aria2"`
	Database      Database      `toml:"database"`
	Pagination    Pagination    `toml:"pagination"`
	Monitor       Monitor       `toml:"monitor"`
	Notifications Notifications `toml:"notifications"`
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/spool/config.toml")
}

// ResolvePath reports which configuration file Load would read and whether it
// exists yet, without parsing or validating it.
func ResolvePath(path string) (string, bool, error) {
	return resolveConfigPath(path)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolvedPath, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		exists, err := fileExists(expanded)
		if err != nil {
			return "", false, err
		}
		return expanded, exists, nil
	}

	defaultPath, err := expandPath("~/.config/spool/config.toml")
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("spool.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat config: %w", err)
	}
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if db := strings.TrimSpace(c.Database.Path); db != "" {
		dirs = append(dirs, filepath.Dir(db))
	}
	if sock := strings.TrimSpace(c.Paths.Socket); sock != "" {
		dirs = append(dirs, filepath.Dir(sock))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ChatAllowed reports whether the chat identifier is on the allow-list.
func (c *Config) ChatAllowed(id int64) bool {
	for _, allowed := range c.Telegram.AllowedChatIDs {
		if allowed == id {
			return true
		}
	}
	return false
}

// NotifyTargets returns the chats that receive terminal download notifications.
func (c *Config) NotifyTargets() []int64 {
	targets := make([]int64, len(c.Telegram.NotifyChatIDs))
	copy(targets, c.Telegram.NotifyChatIDs)
	return targets
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	expanded, err := expandTilde(pathValue)
	if err != nil {
		return "", err
	}
	cleaned := filepath.Clean(expanded)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// expandTilde resolves a leading "~" or "~/" against the home directory.
// Other ~ forms (such as ~user) pass through untouched.
func expandTilde(pathValue string) (string, error) {
	if !strings.HasPrefix(pathValue, "~") {
		return pathValue, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if pathValue == "~" {
		return home, nil
	}
	if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
		return filepath.Join(home, pathValue[2:]), nil
	}
	return pathValue, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultDataDir() string {
	if base, ok := os.LookupEnv("XDG_DATA_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "spool")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.local/share/spool"
	}
	return filepath.Join(home, ".local", "share", "spool")
}

// CreateSample writes the bundled sample configuration to path, creating
// parent directories as needed.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
