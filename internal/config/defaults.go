package config

import "path/filepath"

const (
	defaultTelegramAPIBaseURL     = "https://api.telegram.org"
	defaultTelegramPollTimeout    = 50
	defaultTelegramRequestTimeout = 30
	defaultAria2RPCURL            = "http://127.0.0.1:6800/jsonrpc"
	defaultAria2RequestTimeout    = 10
	defaultMaxHistory             = 1000
	defaultPageSize               = 10
	defaultPageTTLMinutes         = 30
	defaultPageSweepInterval      = 60
	defaultUpdateInterval         = 5
	defaultNotifyInterval         = 60
	defaultMaxConcurrent          = 4
	defaultErrorRetryInterval     = 10
	defaultNtfyServer             = "https://ntfy.sh"
	defaultNtfyRequestTimeout     = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		Telegram: Telegram{
			APIBaseURL:     defaultTelegramAPIBaseURL,
			PollTimeout:    defaultTelegramPollTimeout,
			RequestTimeout: defaultTelegramRequestTimeout,
		},
		Aria2: Aria2{
			RPCURL:         defaultAria2RPCURL,
			RequestTimeout: defaultAria2RequestTimeout,
		},
		Database: Database{
			Path:       filepath.Join(dataDir, "spool.db"),
			MaxHistory: defaultMaxHistory,
		},
		Pagination: Pagination{
			PageSize:      defaultPageSize,
			TTLMinutes:    defaultPageTTLMinutes,
			SweepInterval: defaultPageSweepInterval,
		},
		Monitor: Monitor{
			UpdateInterval:     defaultUpdateInterval,
			NotifyInterval:     defaultNotifyInterval,
			MaxConcurrent:      defaultMaxConcurrent,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Notifications: Notifications{
			NtfyServer:     defaultNtfyServer,
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Paths: Paths{
			LogDir: filepath.Join(dataDir, "logs"),
			Socket: filepath.Join(dataDir, "spool.sock"),
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
