package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spool/internal/format"
	"spool/internal/logging"
	"spool/internal/services"
	"spool/internal/services/aria2"
	"spool/internal/services/telegram"
)

// commandList is the menu registered with Telegram at startup. Help text is
// kept separately so it can show argument forms.
var commandList = []telegram.BotCommand{
	{Command: "add", Description: "Add a download by URI"},
	{Command: "status", Description: "List current downloads"},
	{Command: "globalstatus", Description: "Show engine totals and free disk"},
	{Command: "pause", Description: "Pause a download by GID"},
	{Command: "unpause", Description: "Resume a download by GID"},
	{Command: "remove", Description: "Remove a download by GID"},
	{Command: "pauseall", Description: "Pause every download"},
	{Command: "unpauseall", Description: "Resume every download"},
	{Command: "history", Description: "Browse download history"},
	{Command: "search", Description: "Search download history"},
	{Command: "clearhistory", Description: "Delete all history records"},
	{Command: "help", Description: "Show available commands"},
}

const helpText = `<b>Spool</b> keeps an eye on your aria2 downloads.

/add &lt;uri&gt; [mirror ...] - add a download
/status - list current downloads
/globalstatus - engine totals and free disk
/pause &lt;gid&gt; - pause a download
/unpause &lt;gid&gt; - resume a download
/remove &lt;gid&gt; - remove a download
/pauseall - pause every download
/unpauseall - resume every download
/history - browse download history
/search &lt;term&gt; - search download history
/clearhistory - delete all history records
/help - show this message`

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}

	sender := senderID(msg)
	if !b.cfg.ChatAllowed(sender) {
		logging.WithContext(ctx, b.logger).Warn("refused command from unauthorized sender",
			logging.Int64("sender_id", sender),
			logging.Alert("unauthorized_access"))
		b.reply(ctx, msg.Chat.ID, "You are not authorized to use this bot.")
		return
	}

	name, args := parseCommand(text)
	chatID := msg.Chat.ID

	switch name {
	case "start":
		b.reply(ctx, chatID, "👋 Spool is watching your downloads. Send /help for the command list.")
	case "help":
		b.reply(ctx, chatID, helpText)
	case "add":
		b.cmdAdd(ctx, chatID, args)
	case "status":
		b.cmdStatus(ctx, chatID)
	case "globalstatus":
		b.cmdGlobalStatus(ctx, chatID)
	case "pause":
		b.cmdGIDAction(ctx, chatID, args, "pause", b.engine.Pause, "⏸ Paused")
	case "unpause":
		b.cmdGIDAction(ctx, chatID, args, "unpause", b.engine.Unpause, "▶️ Resumed")
	case "remove":
		b.cmdGIDAction(ctx, chatID, args, "remove", b.engine.Remove, "🗑 Removed")
	case "pauseall":
		b.cmdAllAction(ctx, chatID, "pause all downloads", b.engine.PauseAll, "⏸ Paused all downloads.")
	case "unpauseall":
		b.cmdAllAction(ctx, chatID, "resume all downloads", b.engine.UnpauseAll, "▶️ Resumed all downloads.")
	case "history":
		b.cmdHistory(ctx, chatID)
	case "search":
		b.cmdSearch(ctx, chatID, args)
	case "clearhistory":
		b.cmdClearHistory(ctx, chatID)
	default:
		b.reply(ctx, chatID, "Unknown command. Send /help for the list.")
	}
}

// parseCommand splits "/cmd@bot arg arg" into a lowercase command name and
// its arguments.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name), fields[1:]
}

func (b *Bot) cmdAdd(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		b.reply(ctx, chatID, "Usage: /add <uri> [mirror ...]")
		return
	}

	var options map[string]string
	if b.downloadDir != "" {
		options = map[string]string{"dir": b.downloadDir}
	}
	gid, err := b.engine.AddURI(ctx, args, options)
	if err != nil {
		b.replyFailure(ctx, chatID, "add the download", err)
		return
	}
	ctx = services.WithGID(ctx, gid)
	logging.WithContext(ctx, b.logger).Info("download added")

	// A status fetch can lose the race with a very fast download; the
	// monitor reconciles the card on its next cycle either way.
	text := fmt.Sprintf("⬇️ Added <code>%s</code>", format.EscapeHTML(gid))
	keyboard := format.ControlKeyboard(aria2.StatusActive, gid)
	if snap, statusErr := b.engine.TellStatus(ctx, gid); statusErr == nil {
		text = format.TaskText(snap)
		keyboard = format.ControlKeyboard(snap.Status, gid)
	}
	ref, ok := b.send(ctx, chatID, text, keyboard)
	if ok && b.tracker != nil {
		b.tracker.Register(ref.ChatID, ref.MessageID, gid)
	}
}

func (b *Bot) cmdStatus(ctx context.Context, chatID int64) {
	snaps, err := aria2.Overview(ctx, b.engine, b.fetchLimit)
	if err != nil {
		b.replyFailure(ctx, chatID, "list the downloads", err)
		return
	}

	page, err := b.statusPages.Create(pageKey("status", chatID), "", snaps, b.pageSize)
	if err != nil {
		b.replyFailure(ctx, chatID, "list the downloads", err)
		return
	}
	text := format.StatusPage(page.Items, page.Index+1, page.TotalPages)
	b.send(ctx, chatID, text, format.PaginationKeyboard("status", page.Index, page.TotalPages))
}

func (b *Bot) cmdGlobalStatus(ctx context.Context, chatID int64) {
	stat, err := b.engine.GetGlobalStat(ctx)
	if err != nil {
		b.replyFailure(ctx, chatID, "fetch the engine status", err)
		return
	}
	version := ""
	if info, versionErr := b.engine.GetVersion(ctx); versionErr == nil {
		version = info.Version
	}
	b.reply(ctx, chatID, format.GlobalStatus(stat, version, diskFree(b.downloadDir)))
}

func (b *Bot) cmdGIDAction(ctx context.Context, chatID int64, args []string, verb string, op func(context.Context, string) error, confirmation string) {
	if len(args) == 0 {
		b.reply(ctx, chatID, fmt.Sprintf("Usage: /%s <gid>", verb))
		return
	}
	gid := args[0]
	ctx = services.WithGID(ctx, gid)
	if err := op(ctx, gid); err != nil {
		b.replyFailure(ctx, chatID, verb+" the download", err)
		return
	}
	logging.WithContext(ctx, b.logger).Info("engine action applied",
		logging.String("action", verb))
	b.reply(ctx, chatID, fmt.Sprintf("%s <code>%s</code>", confirmation, format.EscapeHTML(gid)))
}

func (b *Bot) cmdAllAction(ctx context.Context, chatID int64, action string, op func(context.Context) error, confirmation string) {
	if err := op(ctx); err != nil {
		b.replyFailure(ctx, chatID, action, err)
		return
	}
	logging.WithContext(ctx, b.logger).Info("engine action applied",
		logging.String("action", action))
	b.reply(ctx, chatID, confirmation)
}

func (b *Bot) cmdHistory(ctx context.Context, chatID int64) {
	records, _, err := b.store.Page(ctx, 0, b.fetchLimit)
	if err != nil {
		b.replyFailure(ctx, chatID, "load the history", err)
		return
	}

	page, err := b.historyPages.Create(pageKey("history", chatID), "", records, b.pageSize)
	if err != nil {
		b.replyFailure(ctx, chatID, "load the history", err)
		return
	}
	text := format.HistoryPage(page.Items, page.Index+1, page.TotalPages)
	b.send(ctx, chatID, text, format.PaginationKeyboard("history", page.Index, page.TotalPages))
}

func (b *Bot) cmdSearch(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		b.reply(ctx, chatID, "Usage: /search <term>")
		return
	}
	term := strings.Join(args, " ")

	records, _, err := b.store.Search(ctx, term, 0, b.fetchLimit)
	if err != nil {
		b.replyFailure(ctx, chatID, "search the history", err)
		return
	}

	page, err := b.searchPages.Create(pageKey("search", chatID), term, records, b.pageSize)
	if err != nil {
		b.replyFailure(ctx, chatID, "search the history", err)
		return
	}
	text := format.SearchPage(term, page.Items, page.Index+1, page.TotalPages)
	b.send(ctx, chatID, text, format.PaginationKeyboard("search", page.Index, page.TotalPages))
}

func (b *Bot) cmdClearHistory(ctx context.Context, chatID int64) {
	b.send(ctx, chatID, "Delete <b>all</b> history records?", format.ConfirmClearKeyboard())
}

func (b *Bot) replyFailure(ctx context.Context, chatID int64, action string, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, b.logger), "command failed; user informed", "command_failed",
		logging.String("action", action),
		logging.Error(err))
	b.reply(ctx, chatID, failureText(action, err))
}

func failureText(action string, err error) string {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return "❌ Unknown download. It may have been purged from the engine."
	case errors.Is(err, services.ErrValidation):
		return "❌ Invalid request. Check the command arguments."
	case errors.Is(err, services.ErrConfiguration):
		return "❌ The engine rejected the request. Check the daemon configuration."
	default:
		return fmt.Sprintf("❌ Could not %s. Please try again.", action)
	}
}
