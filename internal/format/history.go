package format

import (
	"fmt"
	"strings"

	"spool/internal/history"
)

// HistoryLines renders a numbered line per settled download. Failed records
// carry an indented error line.
func HistoryLines(records []*history.Record) string {
	if len(records) == 0 {
		return "No history yet."
	}
	lines := make([]string, 0, len(records))
	for i, rec := range records {
		line := fmt.Sprintf("%d. <b>%s</b> [<code>%s</code>] (%s)",
			i+1,
			EscapeHTML(TruncateMiddle(rec.Name, NameWidth)),
			rec.GID,
			StatusLabel(string(rec.Status)))
		if ts := Timestamp(rec.FinishedAt); ts != "" {
			line += " - " + ts
		}
		if rec.Status == history.StatusFailed && rec.Error != "" {
			line += fmt.Sprintf("\n   <i>Error: %s</i>", EscapeHTML(TruncateMiddle(rec.Error, ErrorWidth)))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// HistoryPage renders a history page with its position header.
func HistoryPage(records []*history.Record, page, totalPages int) string {
	return fmt.Sprintf("<b>Download History</b> (page %d/%d)\n\n%s", page, totalPages, HistoryLines(records))
}

// SearchPage renders a search result page with the term in the header.
func SearchPage(term string, records []*history.Record, page, totalPages int) string {
	return fmt.Sprintf("<b>Search:</b> %s (page %d/%d)\n\n%s",
		EscapeHTML(term), page, totalPages, HistoryLines(records))
}

// CompletionNotification renders the push message sent once per settled
// download.
func CompletionNotification(rec *history.Record) string {
	icon := "✅"
	headline := "Download complete"
	switch rec.Status {
	case history.StatusFailed:
		icon = "❌"
		headline = "Download failed"
	case history.StatusRemoved:
		icon = "🗑"
		headline = "Download removed"
	}
	lines := []string{
		fmt.Sprintf("%s <b>%s</b>", icon, headline),
		"",
		fmt.Sprintf("<b>Name:</b> %s", EscapeHTML(rec.Name)),
		fmt.Sprintf("<b>GID:</b> <code>%s</code>", rec.GID),
		fmt.Sprintf("<b>Size:</b> %s", Size(rec.SizeBytes)),
	}
	if ts := Timestamp(rec.FinishedAt); ts != "" {
		lines = append(lines, fmt.Sprintf("<b>Finished:</b> %s", ts))
	}
	if rec.Error != "" {
		lines = append(lines, fmt.Sprintf("<b>Error:</b> %s", EscapeHTML(rec.Error)))
	}
	return strings.Join(lines, "\n")
}
