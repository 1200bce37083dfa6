package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"spool/internal/format"
	"spool/internal/logging"
	"spool/internal/pagestate"
	"spool/internal/services"
	"spool/internal/services/aria2"
	"spool/internal/services/telegram"
)

func (b *Bot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	if !b.cfg.ChatAllowed(cb.From.ID) {
		logging.WithContext(ctx, b.logger).Warn("refused callback from unauthorized sender",
			logging.Int64("sender_id", cb.From.ID),
			logging.Alert("unauthorized_access"))
		b.answer(ctx, cb.ID, "Not authorized.", true)
		return
	}

	family, arg, ok := strings.Cut(strings.TrimSpace(cb.Data), ":")
	if !ok {
		b.answer(ctx, cb.ID, "", false)
		return
	}

	switch family {
	case "pause":
		b.controlAction(ctx, cb, arg, b.engine.Pause, "Paused")
	case "resume":
		b.controlAction(ctx, cb, arg, b.engine.Unpause, "Resumed")
	case "remove":
		b.controlAction(ctx, cb, arg, b.engine.Remove, "Removed")
	case "history", "search", "status":
		b.flipPage(ctx, cb, family, arg)
	case "clearhistory":
		b.resolveClear(ctx, cb, arg)
	default:
		b.answer(ctx, cb.ID, "", false)
	}
}

// controlAction applies a keyboard-driven engine operation and refreshes the
// card it was pressed on so the controls match the new state.
func (b *Bot) controlAction(ctx context.Context, cb *telegram.CallbackQuery, gid string, op func(context.Context, string) error, toast string) {
	ctx = services.WithGID(ctx, gid)
	logger := logging.WithContext(ctx, b.logger)

	if err := op(ctx, gid); err != nil {
		logging.WarnWithContext(logger, "control action failed; user informed", "callback_failed",
			logging.Error(err))
		b.answer(ctx, cb.ID, controlFailureToast(err), true)
		return
	}
	b.answer(ctx, cb.ID, toast, false)
	logger.Info("engine action applied",
		logging.String("action", strings.ToLower(toast)))

	if cb.Message == nil {
		return
	}
	text, keyboard, err := b.taskCard(ctx, gid)
	if err != nil {
		return
	}
	ref := telegram.MessageRef{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.MessageID}
	if err := b.chat.EditMessageText(ctx, ref, text, keyboard); err != nil && !errors.Is(err, services.ErrSurfaceGone) {
		logger.Debug("card refresh failed", logging.Error(err))
	}
}

func controlFailureToast(err error) string {
	if errors.Is(err, services.ErrNotFound) {
		return "Download not found."
	}
	return "Action failed. Try again."
}

// taskCard renders the current card for one download: task text plus the
// control keyboard matching its state. An unknown gid renders as removed.
func (b *Bot) taskCard(ctx context.Context, gid string) (string, *telegram.InlineKeyboard, error) {
	snap, err := b.engine.TellStatus(ctx, gid)
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			return "", nil, err
		}
		snap = &aria2.Snapshot{GID: gid, Status: aria2.StatusRemoved, Name: gid}
	}
	return format.TaskText(snap), format.ControlKeyboard(snap.Status, gid), nil
}

func (b *Bot) flipPage(ctx context.Context, cb *telegram.CallbackQuery, family, arg string) {
	if arg == "noop" || cb.Message == nil {
		b.answer(ctx, cb.ID, "", false)
		return
	}
	index, err := strconv.Atoi(arg)
	if err != nil {
		b.answer(ctx, cb.ID, "", false)
		return
	}
	key := pageKey(family, cb.Message.Chat.ID)

	switch family {
	case "history":
		page, changed, err := b.historyPages.Jump(key, index)
		if err != nil {
			b.expiredFlip(ctx, cb, err)
			return
		}
		if !changed {
			b.answer(ctx, cb.ID, "", false)
			return
		}
		b.editFlip(ctx, cb, family, format.HistoryPage(page.Items, page.Index+1, page.TotalPages), page.Index, page.TotalPages)
	case "search":
		page, changed, err := b.searchPages.Jump(key, index)
		if err != nil {
			b.expiredFlip(ctx, cb, err)
			return
		}
		if !changed {
			b.answer(ctx, cb.ID, "", false)
			return
		}
		b.editFlip(ctx, cb, family, format.SearchPage(page.Label, page.Items, page.Index+1, page.TotalPages), page.Index, page.TotalPages)
	case "status":
		page, changed, err := b.statusPages.Jump(key, index)
		if err != nil {
			b.expiredFlip(ctx, cb, err)
			return
		}
		if !changed {
			b.answer(ctx, cb.ID, "", false)
			return
		}
		b.editFlip(ctx, cb, family, format.StatusPage(page.Items, page.Index+1, page.TotalPages), page.Index, page.TotalPages)
	}
}

func (b *Bot) expiredFlip(ctx context.Context, cb *telegram.CallbackQuery, err error) {
	if errors.Is(err, pagestate.ErrExpired) {
		b.answer(ctx, cb.ID, "Selection expired. Run the command again.", true)
		return
	}
	logging.WarnWithContext(logging.WithContext(ctx, b.logger), "page flip failed; user informed", "callback_failed",
		logging.Error(err))
	b.answer(ctx, cb.ID, "Action failed. Try again.", true)
}

func (b *Bot) editFlip(ctx context.Context, cb *telegram.CallbackQuery, family, text string, index, totalPages int) {
	ref := telegram.MessageRef{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.MessageID}
	if err := b.chat.EditMessageText(ctx, ref, text, format.PaginationKeyboard(family, index, totalPages)); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, b.logger), "page flip edit failed; user informed", "edit_failed",
			logging.Int(logging.FieldMessageID, ref.MessageID),
			logging.Error(err))
		b.answer(ctx, cb.ID, "Action failed. Try again.", false)
		return
	}
	b.answer(ctx, cb.ID, "", false)
}

func (b *Bot) resolveClear(ctx context.Context, cb *telegram.CallbackQuery, arg string) {
	if cb.Message == nil {
		b.answer(ctx, cb.ID, "", false)
		return
	}
	ref := telegram.MessageRef{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.MessageID}

	switch arg {
	case "confirm":
		removed, err := b.store.Clear(ctx)
		if err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, b.logger), "history clear failed; user informed", "callback_failed",
				logging.Error(err))
			b.answer(ctx, cb.ID, "Clear failed. Try again.", true)
			return
		}
		b.historyPages.Drop(pageKey("history", ref.ChatID))
		b.searchPages.Drop(pageKey("search", ref.ChatID))
		logging.WithContext(ctx, b.logger).Info("history cleared",
			logging.Int64("removed", removed))
		b.editOutcome(ctx, ref, fmt.Sprintf("🗑 Cleared %d history records.", removed))
		b.answer(ctx, cb.ID, "History cleared.", false)
	case "cancel":
		b.editOutcome(ctx, ref, "Clear cancelled.")
		b.answer(ctx, cb.ID, "", false)
	default:
		b.answer(ctx, cb.ID, "", false)
	}
}

func (b *Bot) editOutcome(ctx context.Context, ref telegram.MessageRef, text string) {
	if err := b.chat.EditMessageText(ctx, ref, text, nil); err != nil {
		b.logger.Debug("confirmation edit failed", logging.Error(err))
	}
}
