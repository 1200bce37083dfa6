package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"spool/internal/history"
	"spool/internal/services"
	"spool/internal/services/aria2"
	"spool/internal/testsupport"
)

func TestCmdAddSendsCardAndRegistersTracker(t *testing.T) {
	b, engine, chat, tracker := newTestBot(t, testsupport.WithDownloadDir("/srv/downloads"))
	engine.setSnapshot(liveSnapshot("gid-new", "ubuntu.iso"))

	b.handleMessage(context.Background(), commandMessage("/add https://example.com/ubuntu.iso"))

	uris, opts := engine.addCalls()
	if len(uris) != 1 || uris[0][0] != "https://example.com/ubuntu.iso" {
		t.Fatalf("unexpected addUri calls %v", uris)
	}
	if opts[0]["dir"] != "/srv/downloads" {
		t.Fatalf("download dir option = %v", opts[0])
	}

	sent := chat.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("expected one card, got %d", len(sent))
	}
	if !strings.Contains(sent[0].text, "ubuntu.iso") {
		t.Fatalf("card text missing name: %q", sent[0].text)
	}
	if sent[0].keyboard == nil || sent[0].keyboard.Rows[0][0].CallbackData != "pause:gid-new" {
		t.Fatalf("card keyboard = %+v", sent[0].keyboard)
	}

	registered := tracker.registered()
	if len(registered) != 1 {
		t.Fatalf("expected one tracker registration, got %d", len(registered))
	}
	if registered[0].chatID != 1 || registered[0].messageID != 100 || registered[0].gid != "gid-new" {
		t.Fatalf("unexpected registration %+v", registered[0])
	}
}

func TestCmdAddFallsBackWhenStatusUnavailable(t *testing.T) {
	b, _, chat, tracker := newTestBot(t)

	b.handleMessage(context.Background(), commandMessage("/add https://example.com/a.iso"))

	sent := chat.sentMessages()
	if len(sent) != 1 || !strings.Contains(sent[0].text, "Added <code>gid-new</code>") {
		t.Fatalf("expected fallback card, got %+v", sent)
	}
	if sent[0].keyboard == nil || sent[0].keyboard.Rows[0][0].CallbackData != "pause:gid-new" {
		t.Fatalf("fallback card keyboard = %+v", sent[0].keyboard)
	}
	if len(tracker.registered()) != 1 {
		t.Fatal("fallback card should still be tracked")
	}
}

func TestCmdAddWithoutArgumentsShowsUsage(t *testing.T) {
	b, engine, chat, _ := newTestBot(t)

	b.handleMessage(context.Background(), commandMessage("/add"))

	sent := chat.sentMessages()
	if len(sent) != 1 || !strings.Contains(sent[0].text, "Usage: /add") {
		t.Fatalf("expected usage reply, got %+v", sent)
	}
	if uris, _ := engine.addCalls(); len(uris) != 0 {
		t.Fatalf("usage error should not reach the engine: %v", uris)
	}
}

func TestCmdAddSurfacesEngineFailure(t *testing.T) {
	b, engine, chat, tracker := newTestBot(t)
	engine.addErr = services.Wrap(services.ErrTransient, "aria2", "addUri", "engine down", nil)

	b.handleMessage(context.Background(), commandMessage("/add https://example.com/a.iso"))

	sent := chat.sentMessages()
	if len(sent) != 1 || !strings.Contains(sent[0].text, "try again") {
		t.Fatalf("expected try-again reply, got %+v", sent)
	}
	if len(tracker.registered()) != 0 {
		t.Fatal("failed add must not register a tracker entry")
	}
}

func TestCmdStatusPaginatesEngineOverview(t *testing.T) {
	b, engine, chat, _ := newTestBot(t, testsupport.WithPageSize(2))
	engine.active = []*aria2.Snapshot{liveSnapshot("g1", "one.iso")}
	engine.waiting = []*aria2.Snapshot{{GID: "g2", Status: aria2.StatusQueued, Name: "two.iso"}}
	engine.stopped = []*aria2.Snapshot{{GID: "g3", Status: aria2.StatusComplete, Name: "three.iso"}}

	b.handleMessage(context.Background(), commandMessage("/status"))

	sent := chat.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("expected one status page, got %d", len(sent))
	}
	text := sent[0].text
	if !strings.Contains(text, "page 1/2") {
		t.Fatalf("missing page header: %q", text)
	}
	if !strings.Contains(text, "one.iso") || !strings.Contains(text, "two.iso") {
		t.Fatalf("first page should list active then queued: %q", text)
	}
	if strings.Contains(text, "three.iso") {
		t.Fatalf("stopped task leaked onto first page: %q", text)
	}
	if sent[0].keyboard == nil || sent[0].keyboard.Rows[0][3].CallbackData != "status:1" {
		t.Fatalf("status keyboard = %+v", sent[0].keyboard)
	}
}

func TestCmdGlobalStatusRendersTotals(t *testing.T) {
	b, engine, chat, _ := newTestBot(t)
	engine.stat = &aria2.GlobalStat{
		DownloadSpeed:   1536,
		NumActive:       2,
		NumWaiting:      1,
		NumStopped:      3,
		NumStoppedTotal: 9,
	}

	b.handleMessage(context.Background(), commandMessage("/globalstatus"))

	sent := chat.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("expected one reply, got %d", len(sent))
	}
	text := sent[0].text
	for _, want := range []string{"Engine Status", "1.5 KiB/s", "<b>Active:</b> 2", "1.37.0"} {
		if !strings.Contains(text, want) {
			t.Fatalf("global status missing %q: %q", want, text)
		}
	}
}

func TestCmdGIDActions(t *testing.T) {
	cases := []struct {
		command string
		action  string
		reply   string
	}{
		{"/pause g1", "pause:g1", "⏸ Paused <code>g1</code>"},
		{"/unpause g1", "unpause:g1", "▶️ Resumed <code>g1</code>"},
		{"/remove g1", "remove:g1", "🗑 Removed <code>g1</code>"},
	}
	for _, tc := range cases {
		b, engine, chat, _ := newTestBot(t)

		b.handleMessage(context.Background(), commandMessage(tc.command))

		if actions := engine.recordedActions(); len(actions) != 1 || actions[0] != tc.action {
			t.Fatalf("%s: engine actions = %v", tc.command, actions)
		}
		sent := chat.sentMessages()
		if len(sent) != 1 || sent[0].text != tc.reply {
			t.Fatalf("%s: reply = %+v", tc.command, sent)
		}
	}
}

func TestCmdGIDActionWithoutArgumentShowsUsage(t *testing.T) {
	b, engine, chat, _ := newTestBot(t)

	b.handleMessage(context.Background(), commandMessage("/pause"))

	sent := chat.sentMessages()
	if len(sent) != 1 || !strings.Contains(sent[0].text, "Usage: /pause <gid>") {
		t.Fatalf("expected usage reply, got %+v", sent)
	}
	if actions := engine.recordedActions(); len(actions) != 0 {
		t.Fatalf("usage error should not reach the engine: %v", actions)
	}
}

func TestCmdAllActions(t *testing.T) {
	b, engine, chat, _ := newTestBot(t)

	b.handleMessage(context.Background(), commandMessage("/pauseall"))
	b.handleMessage(context.Background(), commandMessage("/unpauseall"))

	if actions := engine.recordedActions(); len(actions) != 2 || actions[0] != "pauseall" || actions[1] != "unpauseall" {
		t.Fatalf("engine actions = %v", actions)
	}
	sent := chat.sentMessages()
	if len(sent) != 2 || !strings.Contains(sent[0].text, "Paused all") || !strings.Contains(sent[1].text, "Resumed all") {
		t.Fatalf("replies = %+v", sent)
	}
}

func TestCmdHistoryPaginatesNewestFirst(t *testing.T) {
	b, _, chat, _ := newTestBot(t, testsupport.WithPageSize(2))
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	testsupport.SeedRecord(t, b.store, "g1", "alpha.iso", history.StatusComplete, base)
	testsupport.SeedRecord(t, b.store, "g2", "bravo.iso", history.StatusComplete, base.Add(time.Hour))
	testsupport.SeedRecord(t, b.store, "g3", "charlie.iso", history.StatusFailed, base.Add(2*time.Hour))

	b.handleMessage(context.Background(), commandMessage("/history"))

	sent := chat.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("expected one page, got %d", len(sent))
	}
	text := sent[0].text
	if !strings.Contains(text, "Download History") || !strings.Contains(text, "page 1/2") {
		t.Fatalf("missing header: %q", text)
	}
	if !strings.Contains(text, "charlie.iso") || !strings.Contains(text, "bravo.iso") {
		t.Fatalf("first page should hold the newest records: %q", text)
	}
	if strings.Contains(text, "alpha.iso") {
		t.Fatalf("oldest record leaked onto first page: %q", text)
	}
	if sent[0].keyboard == nil || sent[0].keyboard.Rows[0][3].CallbackData != "history:1" {
		t.Fatalf("history keyboard = %+v", sent[0].keyboard)
	}
}

func TestCmdHistoryEmpty(t *testing.T) {
	b, _, chat, _ := newTestBot(t)

	b.handleMessage(context.Background(), commandMessage("/history"))

	sent := chat.sentMessages()
	if len(sent) != 1 || !strings.Contains(sent[0].text, "No history yet.") {
		t.Fatalf("expected empty-history page, got %+v", sent)
	}
	if sent[0].keyboard != nil {
		t.Fatalf("single page should carry no keyboard, got %+v", sent[0].keyboard)
	}
}

func TestCmdSearchFiltersByTerm(t *testing.T) {
	b, _, chat, _ := newTestBot(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	testsupport.SeedRecord(t, b.store, "g1", "ubuntu-24.04.iso", history.StatusComplete, base)
	testsupport.SeedRecord(t, b.store, "g2", "fedora-40.iso", history.StatusComplete, base.Add(time.Minute))

	b.handleMessage(context.Background(), commandMessage("/search Ubuntu"))

	sent := chat.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("expected one result page, got %d", len(sent))
	}
	text := sent[0].text
	if !strings.Contains(text, "Search:") || !strings.Contains(text, "ubuntu-24.04.iso") {
		t.Fatalf("unexpected search page: %q", text)
	}
	if strings.Contains(text, "fedora") {
		t.Fatalf("non-matching record leaked into results: %q", text)
	}
}

func TestCmdSearchWithoutTermShowsUsage(t *testing.T) {
	b, _, chat, _ := newTestBot(t)

	b.handleMessage(context.Background(), commandMessage("/search"))

	sent := chat.sentMessages()
	if len(sent) != 1 || !strings.Contains(sent[0].text, "Usage: /search") {
		t.Fatalf("expected usage reply, got %+v", sent)
	}
}

func TestCmdClearHistoryAsksForConfirmation(t *testing.T) {
	b, _, chat, _ := newTestBot(t)

	b.handleMessage(context.Background(), commandMessage("/clearhistory"))

	sent := chat.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("expected one prompt, got %d", len(sent))
	}
	if sent[0].keyboard == nil {
		t.Fatal("confirmation prompt needs a keyboard")
	}
	row := sent[0].keyboard.Rows[0]
	if row[0].CallbackData != "clearhistory:confirm" || row[1].CallbackData != "clearhistory:cancel" {
		t.Fatalf("confirmation keyboard = %+v", row)
	}
}
