package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

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

func (f *fakeEngine) AddURI(_ context.Context, uris []string, _ map[string]string) (string, error) {
	f.record("add:" + strings.Join(uris, ","))
	return f.addGID, nil
}

func (f *fakeEngine) TellStatus(_ context.Context, gid string) (*aria2.Snapshot, error) {
	return &aria2.Snapshot{GID: gid, Status: aria2.StatusActive}, nil
}

func (f *fakeEngine) Pause(_ context.Context, gid string) error   { return f.record("pause:" + gid) }
func (f *fakeEngine) Unpause(_ context.Context, gid string) error { return f.record("unpause:" + gid) }
func (f *fakeEngine) Remove(_ context.Context, gid string) error  { return f.record("remove:" + gid) }
func (f *fakeEngine) PauseAll(context.Context) error              { return f.record("pauseall") }
func (f *fakeEngine) UnpauseAll(context.Context) error            { return f.record("unpauseall") }

func (f *fakeEngine) TellActive(context.Context) ([]*aria2.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*aria2.Snapshot(nil), f.active...), nil
}

func (f *fakeEngine) TellWaiting(context.Context, int, int) ([]*aria2.Snapshot, error) {
	return nil, nil
}

func (f *fakeEngine) TellStopped(context.Context, int, int) ([]*aria2.Snapshot, error) {
	return nil, nil
}

func (f *fakeEngine) GetGlobalStat(context.Context) (*aria2.GlobalStat, error) {
	return &aria2.GlobalStat{NumActive: 1, DownloadSpeed: 2048}, nil
}

func (f *fakeEngine) GetVersion(context.Context) (*aria2.VersionInfo, error) {
	return &aria2.VersionInfo{Version: "1.37.0"}, nil
}

func (f *fakeEngine) record(action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeEngine) recordedActions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.actions...)
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

func (f *fakeChat) EditMessageText(context.Context, telegram.MessageRef, string, *telegram.InlineKeyboard) error {
	return nil
}

func (f *fakeChat) AnswerCallbackQuery(context.Context, string, string, bool) error { return nil }

func (f *fakeChat) GetUpdates(ctx context.Context, _ int64, _ int) ([]telegram.Update, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeChat) GetMe(context.Context) (*telegram.User, error) {
	return &telegram.User{ID: 42, IsBot: true, Username: "spool_bot"}, nil
}

func (f *fakeChat) SetMyCommands(context.Context, []telegram.BotCommand) error { return nil }

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logPath := filepath.Join(cfg.Paths.LogDir, "ipc-test.log")
	logger := logging.NewNop()

	engine := &fakeEngine{
		addGID: "gid-new",
		active: []*aria2.Snapshot{{
			GID:             "g1",
			Status:          aria2.StatusActive,
			Name:            "ubuntu.iso",
			TotalLength:     2048,
			CompletedLength: 1024,
			DownloadSpeed:   512,
		}},
	}
	chat := &fakeChat{}

	d, err := daemon.New(cfg, store, engine, chat, nil, logger, logPath)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := filepath.Join(cfg.Paths.LogDir, "spool.sock")
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	ping, err := client.Ping()
	if err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if !ping.Pong || ping.PID <= 0 {
		t.Fatalf("unexpected ping response: %#v", ping)
	}

	startResp, err := client.Start()
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("expected Started=true, message=%s", startResp.Message)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to be running")
	}
	if status.Engine == nil || !status.Engine.Reachable || status.Engine.Version != "1.37.0" {
		t.Fatalf("unexpected engine status: %#v", status.Engine)
	}
	if !strings.HasSuffix(status.HistoryDBPath, ".db") {
		t.Fatalf("unexpected history db path: %s", status.HistoryDBPath)
	}

	addResp, err := client.Add([]string{"https://example.com/ubuntu.iso"}, "")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if addResp.GID != "gid-new" {
		t.Fatalf("unexpected gid %q", addResp.GID)
	}
	if _, err := client.Add(nil, ""); err == nil {
		t.Fatal("expected Add without URIs to fail")
	}

	downloads, err := client.Downloads()
	if err != nil {
		t.Fatalf("Downloads failed: %v", err)
	}
	if len(downloads.Items) != 1 {
		t.Fatalf("expected 1 download, got %d", len(downloads.Items))
	}
	item := downloads.Items[0]
	if item.GID != "g1" || item.Name != "ubuntu.iso" || item.Status != "active" {
		t.Fatalf("unexpected download item: %#v", item)
	}
	if item.Progress < 49 || item.Progress > 51 {
		t.Fatalf("unexpected progress %f", item.Progress)
	}

	if err := client.Pause("g1"); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if err := client.Unpause("g1"); err != nil {
		t.Fatalf("Unpause failed: %v", err)
	}
	if err := client.PauseAll(); err != nil {
		t.Fatalf("PauseAll failed: %v", err)
	}
	if err := client.Pause(""); err == nil {
		t.Fatal("expected Pause without gid to fail")
	}
	actions := engine.recordedActions()
	if len(actions) != 4 {
		t.Fatalf("unexpected engine actions: %v", actions)
	}

	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	testsupport.SeedRecord(t, store, "h1", "ubuntu.iso", history.StatusComplete, base)
	testsupport.SeedRecord(t, store, "h2", "fedora.iso", history.StatusFailed, base.Add(time.Hour))

	page, err := client.HistoryPage(0, 10)
	if err != nil {
		t.Fatalf("HistoryPage failed: %v", err)
	}
	if page.Total != 2 || len(page.Records) != 2 || page.Records[0].GID != "h2" {
		t.Fatalf("unexpected history page: %#v", page)
	}

	search, err := client.HistorySearch("ubuntu", 0, 10)
	if err != nil {
		t.Fatalf("HistorySearch failed: %v", err)
	}
	if search.Total != 1 || len(search.Records) != 1 || search.Records[0].GID != "h1" {
		t.Fatalf("unexpected search result: %#v", search)
	}

	notifyResp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification failed: %v", err)
	}
	if !notifyResp.Sent || notifyResp.Message == "" {
		t.Fatalf("unexpected notification response: %#v", notifyResp)
	}

	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}
	logResp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("LogTail initial failed: %v", err)
	}
	if len(logResp.Lines) != 2 || logResp.Lines[0] != "second" || logResp.Lines[1] != "third" {
		t.Fatalf("unexpected log tail response: %#v", logResp.Lines)
	}

	followDone := make(chan struct{})
	go func(offset int64) {
		defer close(followDone)
		resp, err := client.LogTail(ipc.LogTailRequest{Offset: offset, Follow: true, WaitMillis: 500})
		if err != nil {
			t.Errorf("LogTail follow error: %v", err)
			return
		}
		if len(resp.Lines) != 1 || resp.Lines[0] != "fourth" {
			t.Errorf("unexpected follow lines: %#v", resp.Lines)
		}
	}(logResp.Offset)

	time.Sleep(100 * time.Millisecond)
	if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
		_, _ = f.WriteString("fourth\n")
		_ = f.Close()
	} else {
		t.Fatalf("append log: %v", err)
	}

	select {
	case <-followDone:
	case <-time.After(10 * time.Second):
		t.Fatal("log tail follow timed out")
	}

	clearResp, err := client.HistoryClear()
	if err != nil {
		t.Fatalf("HistoryClear failed: %v", err)
	}
	if clearResp.Removed != 2 {
		t.Fatalf("expected 2 records cleared, got %d", clearResp.Removed)
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected stop response to be true")
	}

	status2, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status2.Running {
		t.Fatal("expected daemon to be stopped")
	}
}
