package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"spool/internal/config"
	"spool/internal/daemon"
	"spool/internal/history"
	"spool/internal/ipc"
	"spool/internal/logging"
	"spool/internal/services/aria2"
	"spool/internal/services/telegram"
	"spool/internal/testsupport"
)

type fakeEngine struct {
	mu      sync.Mutex
	active  []*aria2.Snapshot
	addGID  string
	actions []string
}

func (f *fakeEngine) record(action string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
}

func (f *fakeEngine) recordedActions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.actions...)
}

func (f *fakeEngine) AddURI(_ context.Context, uris []string, _ map[string]string) (string, error) {
	f.record("add:" + strings.Join(uris, ","))
	return f.addGID, nil
}

func (f *fakeEngine) TellStatus(_ context.Context, gid string) (*aria2.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, snap := range f.active {
		if snap.GID == gid {
			return snap, nil
		}
	}
	return nil, fmt.Errorf("gid %s not found", gid)
}

func (f *fakeEngine) Pause(_ context.Context, gid string) error   { f.record("pause:" + gid); return nil }
func (f *fakeEngine) Unpause(_ context.Context, gid string) error { f.record("unpause:" + gid); return nil }
func (f *fakeEngine) Remove(_ context.Context, gid string) error  { f.record("remove:" + gid); return nil }
func (f *fakeEngine) PauseAll(_ context.Context) error            { f.record("pauseall"); return nil }
func (f *fakeEngine) UnpauseAll(_ context.Context) error          { f.record("unpauseall"); return nil }

func (f *fakeEngine) TellActive(_ context.Context) ([]*aria2.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*aria2.Snapshot(nil), f.active...), nil
}

func (f *fakeEngine) TellWaiting(_ context.Context, _, _ int) ([]*aria2.Snapshot, error) {
	return nil, nil
}

func (f *fakeEngine) TellStopped(_ context.Context, _, _ int) ([]*aria2.Snapshot, error) {
	return nil, nil
}

func (f *fakeEngine) GetGlobalStat(_ context.Context) (*aria2.GlobalStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &aria2.GlobalStat{NumActive: len(f.active), DownloadSpeed: 2048}, nil
}

func (f *fakeEngine) GetVersion(_ context.Context) (*aria2.VersionInfo, error) {
	return &aria2.VersionInfo{Version: "1.37.0"}, nil
}

type fakeChat struct {
	mu   sync.Mutex
	sent int
}

func (f *fakeChat) SendMessage(_ context.Context, chatID int64, _ string, _ *telegram.InlineKeyboard) (telegram.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent++
	return telegram.MessageRef{ChatID: chatID, MessageID: f.sent}, nil
}

func (f *fakeChat) EditMessageText(_ context.Context, _ telegram.MessageRef, _ string, _ *telegram.InlineKeyboard) error {
	return nil
}

func (f *fakeChat) AnswerCallbackQuery(_ context.Context, _, _ string, _ bool) error {
	return nil
}

func (f *fakeChat) GetUpdates(ctx context.Context, _ int64, _ int) ([]telegram.Update, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeChat) GetMe(_ context.Context) (*telegram.User, error) {
	return &telegram.User{ID: 42, IsBot: true, Username: "spool_bot"}, nil
}

func (f *fakeChat) SetMyCommands(_ context.Context, _ []telegram.BotCommand) error {
	return nil
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *history.Store
	engine     *fakeEngine
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	logPath    string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Aria2.DownloadDir = filepath.Join(testsupport.BaseDir(cfg), "downloads")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := os.MkdirAll(cfg.Aria2.DownloadDir, 0o755); err != nil {
		t.Fatalf("mkdir download dir: %v", err)
	}

	logPath := filepath.Join(cfg.Paths.LogDir, "spool.log")
	if err := os.WriteFile(logPath, nil, 0o644); err != nil {
		t.Fatalf("create log file: %v", err)
	}

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)

	engine := &fakeEngine{addGID: "gid-test"}
	chat := &fakeChat{}

	d, err := daemon.New(cfg, store, engine, chat, nil, logging.NewNop(), logPath)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, cfg.Paths.Socket, d, logging.NewNop())
	if err != nil {
		cancel()
		d.Close()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("unix sockets unavailable: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		engine:     engine,
		daemon:     d,
		server:     srv,
		socketPath: cfg.Paths.Socket,
		configPath: configPath,
		logPath:    logPath,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

func seedHistory(t *testing.T, env *cliTestEnv) {
	t.Helper()
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	testsupport.SeedRecord(t, env.store, "h1", "ubuntu-24.04.iso", history.StatusComplete, base)
	testsupport.SeedRecord(t, env.store, "h2", "debian-13.iso", history.StatusFailed, base.Add(time.Hour))
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
