package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTelegram(); err != nil {
		return err
	}
	if err := c.normalizeAria2(); err != nil {
		return err
	}
	if err := c.normalizeDatabase(); err != nil {
		return err
	}
	c.normalizePagination()
	c.normalizeMonitor()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.Socket, err = expandPath(c.Paths.Socket); err != nil {
		return fmt.Errorf("paths.socket: %w", err)
	}
	return nil
}

func (c *Config) normalizeTelegram() error {
	c.Telegram.Token = strings.TrimSpace(c.Telegram.Token)
	if c.Telegram.Token == "" {
		if value, ok := os.LookupEnv("SPOOL_TELEGRAM_TOKEN"); ok {
			c.Telegram.Token = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("TELEGRAM_BOT_TOKEN"); ok {
			c.Telegram.Token = strings.TrimSpace(value)
		}
	}
	c.Telegram.APIBaseURL = strings.TrimSuffix(strings.TrimSpace(c.Telegram.APIBaseURL), "/")
	if c.Telegram.APIBaseURL == "" {
		c.Telegram.APIBaseURL = defaultTelegramAPIBaseURL
	}
	c.Telegram.AllowedChatIDs = dedupeChatIDs(c.Telegram.AllowedChatIDs)
	c.Telegram.NotifyChatIDs = dedupeChatIDs(c.Telegram.NotifyChatIDs)
	if len(c.Telegram.NotifyChatIDs) == 0 {
		c.Telegram.NotifyChatIDs = append([]int64(nil), c.Telegram.AllowedChatIDs...)
	}
	if c.Telegram.PollTimeout <= 0 {
		c.Telegram.PollTimeout = defaultTelegramPollTimeout
	}
	if c.Telegram.RequestTimeout <= 0 {
		c.Telegram.RequestTimeout = defaultTelegramRequestTimeout
	}
	return nil
}

func (c *Config) normalizeAria2() error {
	c.Aria2.RPCURL = strings.TrimSpace(c.Aria2.RPCURL)
	if c.Aria2.RPCURL == "" {
		c.Aria2.RPCURL = defaultAria2RPCURL
	}
	c.Aria2.Secret = strings.TrimSpace(c.Aria2.Secret)
	if c.Aria2.Secret == "" {
		if value, ok := os.LookupEnv("SPOOL_ARIA2_SECRET"); ok {
			c.Aria2.Secret = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("ARIA2_RPC_SECRET"); ok {
			c.Aria2.Secret = strings.TrimSpace(value)
		}
	}
	if c.Aria2.RequestTimeout <= 0 {
		c.Aria2.RequestTimeout = defaultAria2RequestTimeout
	}
	if dir := strings.TrimSpace(c.Aria2.DownloadDir); dir != "" {
		expanded, err := expandPath(dir)
		if err != nil {
			return fmt.Errorf("aria2.download_dir: %w", err)
		}
		c.Aria2.DownloadDir = expanded
	} else {
		c.Aria2.DownloadDir = ""
	}
	return nil
}

func (c *Config) normalizeDatabase() error {
	var err error
	if c.Database.Path, err = expandPath(c.Database.Path); err != nil {
		return fmt.Errorf("database.path: %w", err)
	}
	if c.Database.MaxHistory <= 0 {
		c.Database.MaxHistory = defaultMaxHistory
	}
	return nil
}

func (c *Config) normalizePagination() {
	if c.Pagination.PageSize <= 0 {
		c.Pagination.PageSize = defaultPageSize
	}
	if c.Pagination.TTLMinutes <= 0 {
		c.Pagination.TTLMinutes = defaultPageTTLMinutes
	}
	if c.Pagination.SweepInterval <= 0 {
		c.Pagination.SweepInterval = defaultPageSweepInterval
	}
}

func (c *Config) normalizeMonitor() {
	if c.Monitor.UpdateInterval <= 0 {
		c.Monitor.UpdateInterval = defaultUpdateInterval
	}
	if c.Monitor.NotifyInterval <= 0 {
		c.Monitor.NotifyInterval = defaultNotifyInterval
	}
	if c.Monitor.MaxConcurrent <= 0 {
		c.Monitor.MaxConcurrent = defaultMaxConcurrent
	}
	if c.Monitor.ErrorRetryInterval <= 0 {
		c.Monitor.ErrorRetryInterval = defaultErrorRetryInterval
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Notifications.NtfyServer = strings.TrimSuffix(strings.TrimSpace(c.Notifications.NtfyServer), "/")
	if c.Notifications.NtfyServer == "" {
		c.Notifications.NtfyServer = defaultNtfyServer
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if len(c.Logging.ComponentOverrides) > 0 {
		normalized := make(map[string]string, len(c.Logging.ComponentOverrides))
		for key, value := range c.Logging.ComponentOverrides {
			key = strings.ToLower(strings.TrimSpace(key))
			value = strings.ToLower(strings.TrimSpace(value))
			if key == "" || value == "" {
				continue
			}
			normalized[key] = value
		}
		c.Logging.ComponentOverrides = normalized
	}
}

func dedupeChatIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
