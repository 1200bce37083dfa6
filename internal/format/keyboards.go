package format

import (
	"fmt"

	"spool/internal/services/aria2"
	"spool/internal/services/telegram"
)

// ControlKeyboard returns the inline controls for a live download. The
// pause/resume slot toggles with the state. Terminal downloads carry no
// controls.
func ControlKeyboard(status aria2.TaskStatus, gid string) *telegram.InlineKeyboard {
	if status.IsTerminal() {
		return nil
	}
	row := make([]telegram.InlineButton, 0, 2)
	if status == aria2.StatusPaused {
		row = append(row, telegram.InlineButton{Text: "▶️ Resume", CallbackData: "resume:" + gid})
	} else {
		row = append(row, telegram.InlineButton{Text: "⏸ Pause", CallbackData: "pause:" + gid})
	}
	row = append(row, telegram.InlineButton{Text: "❌ Remove", CallbackData: "remove:" + gid})
	return &telegram.InlineKeyboard{Rows: [][]telegram.InlineButton{row}}
}

// PaginationKeyboard returns the navigation row for a paged view. The prefix
// selects the callback family. Buttons that cannot move emit noop callbacks
// so taps at the boundaries are answered quietly. Single-page views get no
// keyboard.
func PaginationKeyboard(prefix string, index, totalPages int) *telegram.InlineKeyboard {
	if totalPages <= 1 {
		return nil
	}
	noop := prefix + ":noop"
	target := func(page int, ok bool) string {
		if !ok {
			return noop
		}
		return fmt.Sprintf("%s:%d", prefix, page)
	}
	row := []telegram.InlineButton{
		{Text: "«", CallbackData: target(0, index > 0)},
		{Text: "‹", CallbackData: target(index-1, index > 0)},
		{Text: fmt.Sprintf("%d/%d", index+1, totalPages), CallbackData: noop},
		{Text: "›", CallbackData: target(index+1, index < totalPages-1)},
		{Text: "»", CallbackData: target(totalPages-1, index < totalPages-1)},
	}
	return &telegram.InlineKeyboard{Rows: [][]telegram.InlineButton{row}}
}

// ConfirmClearKeyboard returns the confirm/cancel controls shown before the
// history is wiped.
func ConfirmClearKeyboard() *telegram.InlineKeyboard {
	return &telegram.InlineKeyboard{Rows: [][]telegram.InlineButton{{
		{Text: "✅ Confirm", CallbackData: "clearhistory:confirm"},
		{Text: "✖️ Cancel", CallbackData: "clearhistory:cancel"},
	}}}
}
