package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"spool/internal/history"
	"spool/internal/services"
	"spool/internal/services/aria2"
	"spool/internal/services/telegram"
	"spool/internal/testsupport"
)

func callbackFrom(userID int64, data string) *telegram.CallbackQuery {
	return &telegram.CallbackQuery{
		ID:   "cb-1",
		From: telegram.User{ID: userID},
		Message: &telegram.Message{
			MessageID: 42,
			Chat:      telegram.Chat{ID: 1, Type: "private"},
		},
		Data: data,
	}
}

func TestCallbackRefusesUnauthorizedSender(t *testing.T) {
	b, engine, chat, _ := newTestBot(t)

	b.handleCallback(context.Background(), callbackFrom(99, "pause:g1"))

	answers := chat.answerCalls()
	if len(answers) != 1 || !answers[0].alert || !strings.Contains(answers[0].text, "Not authorized") {
		t.Fatalf("expected alert refusal, got %+v", answers)
	}
	if actions := engine.recordedActions(); len(actions) != 0 {
		t.Fatalf("unauthorized callback reached the engine: %v", actions)
	}
}

func TestCallbackIgnoresMalformedData(t *testing.T) {
	b, engine, chat, _ := newTestBot(t)

	b.handleCallback(context.Background(), callbackFrom(1, "garbage"))
	b.handleCallback(context.Background(), callbackFrom(1, "bogus:1"))

	answers := chat.answerCalls()
	if len(answers) != 2 {
		t.Fatalf("expected two silent acknowledgements, got %+v", answers)
	}
	for _, a := range answers {
		if a.text != "" || a.alert {
			t.Fatalf("malformed data should be acknowledged silently, got %+v", a)
		}
	}
	if len(chat.editCalls()) != 0 || len(engine.recordedActions()) != 0 {
		t.Fatal("malformed data must not trigger edits or engine calls")
	}
}

func TestControlCallbackPauseRefreshesCard(t *testing.T) {
	b, engine, chat, _ := newTestBot(t)
	engine.setSnapshot(&aria2.Snapshot{
		GID:             "g1",
		Status:          aria2.StatusPaused,
		Name:            "one.iso",
		TotalLength:     2048,
		CompletedLength: 512,
	})

	b.handleCallback(context.Background(), callbackFrom(1, "pause:g1"))

	if actions := engine.recordedActions(); len(actions) != 1 || actions[0] != "pause:g1" {
		t.Fatalf("engine actions = %v", actions)
	}
	answers := chat.answerCalls()
	if len(answers) != 1 || answers[0].text != "Paused" || answers[0].alert {
		t.Fatalf("answers = %+v", answers)
	}
	edits := chat.editCalls()
	if len(edits) != 1 {
		t.Fatalf("expected one card refresh, got %d", len(edits))
	}
	if edits[0].ref.ChatID != 1 || edits[0].ref.MessageID != 42 {
		t.Fatalf("refresh targeted wrong message: %+v", edits[0].ref)
	}
	if !strings.Contains(edits[0].text, "<b>Status:</b> Paused") {
		t.Fatalf("refreshed card text = %q", edits[0].text)
	}
	if edits[0].keyboard == nil || edits[0].keyboard.Rows[0][0].CallbackData != "resume:g1" {
		t.Fatalf("refreshed keyboard = %+v", edits[0].keyboard)
	}
}

func TestControlCallbackRemoveRendersRemovedCard(t *testing.T) {
	b, engine, chat, _ := newTestBot(t)

	b.handleCallback(context.Background(), callbackFrom(1, "remove:g1"))

	if actions := engine.recordedActions(); len(actions) != 1 || actions[0] != "remove:g1" {
		t.Fatalf("engine actions = %v", actions)
	}
	edits := chat.editCalls()
	if len(edits) != 1 || !strings.Contains(edits[0].text, "<b>Status:</b> Removed") {
		t.Fatalf("expected removed card, got %+v", edits)
	}
	if edits[0].keyboard != nil {
		t.Fatalf("terminal card should carry no controls, got %+v", edits[0].keyboard)
	}
}

func TestControlCallbackFailureAnswersWithAlert(t *testing.T) {
	b, engine, chat, _ := newTestBot(t)
	engine.actionErr = services.Wrap(services.ErrNotFound, "aria2", "pause", "unknown gid", nil)

	b.handleCallback(context.Background(), callbackFrom(1, "pause:g1"))

	answers := chat.answerCalls()
	if len(answers) != 1 || !answers[0].alert || answers[0].text != "Download not found." {
		t.Fatalf("answers = %+v", answers)
	}
	if len(chat.editCalls()) != 0 {
		t.Fatal("failed action must not refresh the card")
	}
}

func TestFlipCallbackAdvancesHistoryPage(t *testing.T) {
	b, _, chat, _ := newTestBot(t, testsupport.WithPageSize(2))
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	testsupport.SeedRecord(t, b.store, "g1", "alpha.iso", history.StatusComplete, base)
	testsupport.SeedRecord(t, b.store, "g2", "bravo.iso", history.StatusComplete, base.Add(time.Hour))
	testsupport.SeedRecord(t, b.store, "g3", "charlie.iso", history.StatusComplete, base.Add(2*time.Hour))
	b.handleMessage(context.Background(), commandMessage("/history"))

	b.handleCallback(context.Background(), callbackFrom(1, "history:1"))

	edits := chat.editCalls()
	if len(edits) != 1 {
		t.Fatalf("expected one page edit, got %d", len(edits))
	}
	if !strings.Contains(edits[0].text, "page 2/2") || !strings.Contains(edits[0].text, "alpha.iso") {
		t.Fatalf("second page text = %q", edits[0].text)
	}
	if edits[0].keyboard == nil || edits[0].keyboard.Rows[0][1].CallbackData != "history:0" {
		t.Fatalf("second page keyboard = %+v", edits[0].keyboard)
	}
	answers := chat.answerCalls()
	if len(answers) != 1 || answers[0].text != "" || answers[0].alert {
		t.Fatalf("flip should acknowledge silently, got %+v", answers)
	}
}

func TestFlipCallbackKeepsSearchTerm(t *testing.T) {
	b, _, chat, _ := newTestBot(t, testsupport.WithPageSize(1))
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	testsupport.SeedRecord(t, b.store, "g1", "log-one.txt", history.StatusComplete, base)
	testsupport.SeedRecord(t, b.store, "g2", "log-two.txt", history.StatusComplete, base.Add(time.Minute))
	b.handleMessage(context.Background(), commandMessage("/search log"))

	b.handleCallback(context.Background(), callbackFrom(1, "search:1"))

	edits := chat.editCalls()
	if len(edits) != 1 {
		t.Fatalf("expected one page edit, got %d", len(edits))
	}
	if !strings.Contains(edits[0].text, "Search:</b> log") || !strings.Contains(edits[0].text, "page 2/2") {
		t.Fatalf("search flip lost its term: %q", edits[0].text)
	}
}

func TestFlipCallbackNoopAndBoundary(t *testing.T) {
	b, _, chat, _ := newTestBot(t, testsupport.WithPageSize(2))
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	testsupport.SeedRecord(t, b.store, "g1", "alpha.iso", history.StatusComplete, base)
	testsupport.SeedRecord(t, b.store, "g2", "bravo.iso", history.StatusComplete, base.Add(time.Hour))
	testsupport.SeedRecord(t, b.store, "g3", "charlie.iso", history.StatusComplete, base.Add(2*time.Hour))
	b.handleMessage(context.Background(), commandMessage("/history"))

	b.handleCallback(context.Background(), callbackFrom(1, "history:noop"))
	b.handleCallback(context.Background(), callbackFrom(1, "history:0"))

	if edits := chat.editCalls(); len(edits) != 0 {
		t.Fatalf("noop and boundary flips must not edit, got %+v", edits)
	}
	answers := chat.answerCalls()
	if len(answers) != 2 {
		t.Fatalf("expected two acknowledgements, got %+v", answers)
	}
}

func TestFlipCallbackExpiredSelection(t *testing.T) {
	b, _, chat, _ := newTestBot(t)

	b.handleCallback(context.Background(), callbackFrom(1, "history:1"))

	answers := chat.answerCalls()
	if len(answers) != 1 || !answers[0].alert || !strings.Contains(answers[0].text, "expired") {
		t.Fatalf("expected expiry alert, got %+v", answers)
	}
	if len(chat.editCalls()) != 0 {
		t.Fatal("expired selection must not edit the message")
	}
}

func TestClearHistoryConfirmDeletesRecords(t *testing.T) {
	b, _, chat, _ := newTestBot(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	testsupport.SeedRecord(t, b.store, "g1", "alpha.iso", history.StatusComplete, base)
	testsupport.SeedRecord(t, b.store, "g2", "bravo.iso", history.StatusComplete, base.Add(time.Hour))

	b.handleCallback(context.Background(), callbackFrom(1, "clearhistory:confirm"))

	if _, total, err := b.store.Page(context.Background(), 0, 10); err != nil || total != 0 {
		t.Fatalf("store not cleared: total=%d err=%v", total, err)
	}
	edits := chat.editCalls()
	if len(edits) != 1 || !strings.Contains(edits[0].text, "Cleared 2 history records.") {
		t.Fatalf("expected clear confirmation edit, got %+v", edits)
	}
	answers := chat.answerCalls()
	if len(answers) != 1 || answers[0].text != "History cleared." {
		t.Fatalf("answers = %+v", answers)
	}
}

func TestClearHistoryCancelKeepsRecords(t *testing.T) {
	b, _, chat, _ := newTestBot(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	testsupport.SeedRecord(t, b.store, "g1", "alpha.iso", history.StatusComplete, base)

	b.handleCallback(context.Background(), callbackFrom(1, "clearhistory:cancel"))

	if _, total, err := b.store.Page(context.Background(), 0, 10); err != nil || total != 1 {
		t.Fatalf("cancel should keep records: total=%d err=%v", total, err)
	}
	edits := chat.editCalls()
	if len(edits) != 1 || !strings.Contains(edits[0].text, "Clear cancelled.") {
		t.Fatalf("expected cancel edit, got %+v", edits)
	}
}
