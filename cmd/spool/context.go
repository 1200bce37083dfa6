package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"spool/internal/config"
	"spool/internal/ipc"
)

type commandContext struct {
	socketFlag   *string
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(socketFlag, configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		socketFlag:   socketFlag,
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = c.loadConfig()
	})
	return c.config, c.configErr
}

func (c *commandContext) loadConfig() (*config.Config, error) {
	var path string
	if c.configFlag != nil {
		path = strings.TrimSpace(*c.configFlag)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) resolvedLogLevel(cfg *config.Config) string {
	if c.logLevelFlag != nil {
		if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
			return level
		}
	}
	if cfg != nil {
		return cfg.Logging.Level
	}
	return ""
}

func (c *commandContext) socketPath() string {
	if c.socketFlag != nil && strings.TrimSpace(*c.socketFlag) != "" {
		return *c.socketFlag
	}
	path := c.defaultSocketPath()
	if c.socketFlag != nil {
		*c.socketFlag = path
	}
	return path
}

// defaultSocketPath prefers the configured socket so the CLI and daemon agree
// without repeating the --socket flag on every invocation.
func (c *commandContext) defaultSocketPath() string {
	if cfg := c.configValue(); cfg != nil && strings.TrimSpace(cfg.Paths.Socket) != "" {
		return cfg.Paths.Socket
	}
	dataDir, err := config.ExpandPath("~/.local/share/spool")
	if err != nil {
		return filepath.Join(os.TempDir(), "spool.sock")
	}
	return filepath.Join(dataDir, "spool.sock")
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	client, err := c.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (c *commandContext) dialClient() (*ipc.Client, error) {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err == nil {
		return client, nil
	}
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return nil, fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `spool start`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return nil, fmt.Errorf("connect to daemon: socket %s refused the connection; is the daemon running?", socket)
	default:
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
}

// shouldSkipConfig walks the command chain for the skipConfigLoad annotation,
// which marks commands that must work without a readable config file.
func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
