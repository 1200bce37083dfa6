package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTelegram(); err != nil {
		return err
	}
	if err := c.validateAria2(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validatePagination(); err != nil {
		return err
	}
	if err := c.validateMonitor(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTelegram() error {
	if c.Telegram.Token == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/spool/config.toml"
		}
		return fmt.Errorf("telegram.token is required. Set SPOOL_TELEGRAM_TOKEN env var or edit %s (create with 'spool config init')", defaultPath)
	}
	if len(c.Telegram.AllowedChatIDs) == 0 {
		return errors.New("telegram.allowed_chat_ids must list at least one chat; the bot refuses all commands otherwise")
	}
	if c.Telegram.PollTimeout > 90 {
		return errors.New("telegram.poll_timeout must be 90 seconds or less")
	}
	if _, err := url.ParseRequestURI(c.Telegram.APIBaseURL); err != nil {
		return fmt.Errorf("telegram.api_base_url is not a valid URL: %w", err)
	}
	return ensurePositiveMap(map[string]int{
		"telegram.poll_timeout":    c.Telegram.PollTimeout,
		"telegram.request_timeout": c.Telegram.RequestTimeout,
	})
}

func (c *Config) validateAria2() error {
	parsed, err := url.Parse(c.Aria2.RPCURL)
	if err != nil {
		return fmt.Errorf("aria2.rpc_url is not a valid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("aria2.rpc_url must use http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("aria2.rpc_url must include a host")
	}
	return ensurePositiveMap(map[string]int{
		"aria2.request_timeout": c.Aria2.RequestTimeout,
	})
}

func (c *Config) validateDatabase() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database.path must be set")
	}
	if c.Database.MaxHistory < 1 {
		return errors.New("database.max_history must be >= 1")
	}
	return nil
}

func (c *Config) validatePagination() error {
	if c.Pagination.PageSize < 1 || c.Pagination.PageSize > 50 {
		return errors.New("pagination.page_size must be between 1 and 50")
	}
	return ensurePositiveMap(map[string]int{
		"pagination.ttl_minutes":    c.Pagination.TTLMinutes,
		"pagination.sweep_interval": c.Pagination.SweepInterval,
	})
}

func (c *Config) validateMonitor() error {
	if err := ensurePositiveMap(map[string]int{
		"monitor.update_interval":      c.Monitor.UpdateInterval,
		"monitor.notify_interval":      c.Monitor.NotifyInterval,
		"monitor.error_retry_interval": c.Monitor.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	if c.Monitor.MaxConcurrent < 1 {
		return errors.New("monitor.max_concurrent must be >= 1")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	if strings.TrimSpace(c.Notifications.NtfyServer) == "" {
		return errors.New("notifications.ntfy_server must be set when notifications.ntfy_topic is set")
	}
	if _, err := url.ParseRequestURI(c.Notifications.NtfyServer); err != nil {
		return fmt.Errorf("notifications.ntfy_server is not a valid URL: %w", err)
	}
	return ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateLogging() error {
	for component, level := range c.Logging.ComponentOverrides {
		switch level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("logging.component_overrides.%s has unsupported level %q", component, level)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
