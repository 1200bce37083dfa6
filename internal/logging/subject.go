package logging

import "strings"

// FormatSubject builds the download subject string used in console output.
// The GID is shortened to its first eight characters to keep headers compact;
// full identifiers remain available in the structured fields.
func FormatSubject(gid, status string) string {
	gid = strings.TrimSpace(gid)
	status = strings.TrimSpace(status)
	if gid == "" {
		return ""
	}
	short := gid
	if len(short) > 8 {
		short = short[:8]
	}
	if status != "" {
		return "Download " + short + " (" + status + ")"
	}
	return "Download " + short
}
