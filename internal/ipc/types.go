package ipc

import "time"

// PingRequest checks daemon liveness.
type PingRequest struct{}

// PingResponse confirms the daemon answered.
type PingResponse struct {
	Pong bool `json:"pong"`
	PID  int  `json:"pid"`
}

// StartRequest brings the daemon components up.
type StartRequest struct{}

// StartResponse indicates whether the components were started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest shuts the daemon components down.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches the daemon status snapshot.
type StatusRequest struct{}

// EngineStatus describes the aria2 endpoint as probed by the daemon.
type EngineStatus struct {
	Reachable     bool   `json:"reachable"`
	Version       string `json:"version"`
	Active        int    `json:"active"`
	Waiting       int    `json:"waiting"`
	Stopped       int    `json:"stopped"`
	DownloadSpeed int64  `json:"download_speed"`
	UploadSpeed   int64  `json:"upload_speed"`
}

// StatusCheck is one readiness line for status output. The daemon leaves
// Checks empty; daemonctl fills them when assembling the snapshot for the
// CLI.
type StatusCheck struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// StatusResponse represents combined daemon and engine status information.
type StatusResponse struct {
	Running       bool           `json:"running"`
	PID           int            `json:"pid"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	TrackedCards  int            `json:"tracked_cards"`
	HistoryCounts map[string]int `json:"history_counts"`
	HistoryDBPath string         `json:"history_db_path"`
	LockPath      string         `json:"lock_path"`
	LogPath       string         `json:"log_path"`
	Engine        *EngineStatus  `json:"engine"`
	Checks        []StatusCheck  `json:"checks,omitempty"`
}

// DownloadItem is the wire representation of one engine download.
type DownloadItem struct {
	GID             string  `json:"gid"`
	Name            string  `json:"name"`
	Status          string  `json:"status"`
	TotalLength     int64   `json:"total_length"`
	CompletedLength int64   `json:"completed_length"`
	DownloadSpeed   int64   `json:"download_speed"`
	UploadSpeed     int64   `json:"upload_speed"`
	Connections     int     `json:"connections"`
	Progress        float64 `json:"progress"`
	ETASeconds      int64   `json:"eta_seconds"`
	ErrorMessage    string  `json:"error_message"`
}

// DownloadsRequest lists the engine's current downloads.
type DownloadsRequest struct{}

// DownloadsResponse contains download entries: active, queued, then recently
// stopped.
type DownloadsResponse struct {
	Items []DownloadItem `json:"items"`
}

// AddRequest submits a new download. Every URI is a mirror of one payload.
type AddRequest struct {
	URIs []string `json:"uris"`
	Dir  string   `json:"dir"`
}

// AddResponse carries the gid the engine assigned.
type AddResponse struct {
	GID string `json:"gid"`
}

// PauseRequest pauses one download.
type PauseRequest struct {
	GID string `json:"gid"`
}

// PauseResponse is empty; failures surface as RPC errors.
type PauseResponse struct{}

// UnpauseRequest resumes one paused download.
type UnpauseRequest struct {
	GID string `json:"gid"`
}

// UnpauseResponse is empty; failures surface as RPC errors.
type UnpauseResponse struct{}

// RemoveRequest removes one download from the engine.
type RemoveRequest struct {
	GID string `json:"gid"`
}

// RemoveResponse is empty; failures surface as RPC errors.
type RemoveResponse struct{}

// PauseAllRequest pauses every active download.
type PauseAllRequest struct{}

// PauseAllResponse is empty; failures surface as RPC errors.
type PauseAllResponse struct{}

// UnpauseAllRequest resumes every paused download.
type UnpauseAllRequest struct{}

// UnpauseAllResponse is empty; failures surface as RPC errors.
type UnpauseAllResponse struct{}

// HistoryRecord is the wire representation of one finished download.
type HistoryRecord struct {
	GID        string    `json:"gid"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	SizeBytes  int64     `json:"size_bytes"`
	Error      string    `json:"error"`
	FinishedAt time.Time `json:"finished_at"`
	Files      []string  `json:"files"`
}

// HistoryPageRequest fetches one page of history, newest first.
type HistoryPageRequest struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// HistoryPageResponse contains the page plus the total record count.
type HistoryPageResponse struct {
	Records []HistoryRecord `json:"records"`
	Total   int             `json:"total"`
}

// HistorySearchRequest fetches one page of history matching a term.
type HistorySearchRequest struct {
	Term   string `json:"term"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

// HistorySearchResponse contains the matching page plus the total match count.
type HistorySearchResponse struct {
	Records []HistoryRecord `json:"records"`
	Total   int             `json:"total"`
}

// HistoryClearRequest removes all history records.
type HistoryClearRequest struct{}

// HistoryClearResponse reports the number of removed records.
type HistoryClearResponse struct {
	Removed int64 `json:"removed"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
