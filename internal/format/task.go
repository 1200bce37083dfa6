package format

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"spool/internal/services/aria2"
)

// maxFileLines caps the per-task file listing before collapsing to a count.
const maxFileLines = 5

// TaskText renders the detail view for a single download.
func TaskText(snap *aria2.Snapshot) string {
	lines := []string{
		fmt.Sprintf("<b>Name:</b> %s", EscapeHTML(snap.Name)),
		fmt.Sprintf("<b>Status:</b> %s", StatusLabel(string(snap.Status))),
		fmt.Sprintf("<b>Size:</b> %s", Size(snap.TotalLength)),
	}
	if progress := snap.Progress(); progress > 0 {
		lines = append(lines, fmt.Sprintf("<b>Progress:</b> %s", ProgressBar(progress)))
	}
	if snap.DownloadSpeed > 0 {
		lines = append(lines, fmt.Sprintf("<b>Download:</b> %s", Speed(snap.DownloadSpeed)))
	}
	if snap.UploadSpeed > 0 {
		lines = append(lines, fmt.Sprintf("<b>Upload:</b> %s", Speed(snap.UploadSpeed)))
	}
	if eta := ETA(snap.ETA()); eta != "" {
		lines = append(lines, fmt.Sprintf("<b>ETA:</b> %s", eta))
	}
	if snap.ErrorMessage != "" {
		lines = append(lines, fmt.Sprintf("<b>Error:</b> %s", EscapeHTML(snap.ErrorMessage)))
	}
	if paths := snap.FilePaths(); len(paths) > 0 {
		lines = append(lines, "<b>Files:</b>")
		for i, path := range paths {
			if i == maxFileLines {
				lines = append(lines, fmt.Sprintf("... %d files total", len(paths)))
				break
			}
			name := TruncateMiddle(filepath.Base(path), NameWidth)
			lines = append(lines, fmt.Sprintf("- %s", EscapeHTML(name)))
		}
	}
	return strings.Join(lines, "\n")
}

// TaskList renders a numbered one-line summary per download.
func TaskList(snaps []*aria2.Snapshot) string {
	if len(snaps) == 0 {
		return "No downloads."
	}
	lines := make([]string, 0, len(snaps))
	for i, snap := range snaps {
		line := fmt.Sprintf("%d. <b>%s</b> [<code>%s</code>] (%s)",
			i+1,
			EscapeHTML(TruncateMiddle(snap.Name, NameWidth)),
			snap.GID,
			StatusLabel(string(snap.Status)))
		if progress := snap.Progress(); progress > 0 {
			line += fmt.Sprintf(" %.1f%%", progress)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// StatusPage renders a page of live downloads with its position header.
func StatusPage(snaps []*aria2.Snapshot, page, totalPages int) string {
	return fmt.Sprintf("<b>Downloads</b> (page %d/%d)\n\n%s", page, totalPages, TaskList(snaps))
}

// GlobalStatus renders the engine-wide transfer summary.
func GlobalStatus(stat *aria2.GlobalStat, version string, freeDisk uint64) string {
	lines := []string{
		"🌐 <b>Engine Status</b>",
		"",
		fmt.Sprintf("<b>⬇️ Download:</b> %s", Speed(stat.DownloadSpeed)),
		fmt.Sprintf("<b>⬆️ Upload:</b> %s", Speed(stat.UploadSpeed)),
		"",
		fmt.Sprintf("<b>Active:</b> %d", stat.NumActive),
		fmt.Sprintf("<b>Waiting:</b> %d", stat.NumWaiting),
		fmt.Sprintf("<b>Stopped:</b> %d", stat.NumStopped),
		fmt.Sprintf("<b>Total stopped:</b> %d", stat.NumStoppedTotal),
	}
	if version != "" {
		lines = append(lines, "", fmt.Sprintf("<b>Version:</b> %s", EscapeHTML(version)))
	}
	if freeDisk > 0 {
		lines = append(lines, fmt.Sprintf("<b>Free disk:</b> %s", humanize.IBytes(freeDisk)))
	}
	return strings.Join(lines, "\n")
}
