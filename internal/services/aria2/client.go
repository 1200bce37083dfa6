package aria2

import (
	"context"
	"path"
	"strings"
	"time"
)

// TaskStatus is the normalized lifecycle state of a download. The engine's
// "waiting" and "error" states are reported as queued and failed.
type TaskStatus string

const (
	StatusActive   TaskStatus = "active"
	StatusQueued   TaskStatus = "queued"
	StatusPaused   TaskStatus = "paused"
	StatusComplete TaskStatus = "complete"
	StatusFailed   TaskStatus = "failed"
	StatusRemoved  TaskStatus = "removed"
)

// IsTerminal reports whether the download will never progress again.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case StatusComplete, StatusFailed, StatusRemoved:
		return true
	}
	return false
}

func normalizeStatus(value string) TaskStatus {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "active":
		return StatusActive
	case "waiting":
		return StatusQueued
	case "paused":
		return StatusPaused
	case "complete":
		return StatusComplete
	case "error":
		return StatusFailed
	case "removed":
		return StatusRemoved
	default:
		return TaskStatus(strings.ToLower(strings.TrimSpace(value)))
	}
}

// FileEntry describes one file within a download.
type FileEntry struct {
	Path            string
	Length          int64
	CompletedLength int64
}

// Snapshot is a point-in-time view of one download.
type Snapshot struct {
	GID             string
	Status          TaskStatus
	Name            string
	TotalLength     int64
	CompletedLength int64
	DownloadSpeed   int64
	UploadSpeed     int64
	Connections     int
	ErrorCode       string
	ErrorMessage    string
	Dir             string
	Files           []FileEntry
}

// Progress returns completion as a percentage in [0, 100].
func (s *Snapshot) Progress() float64 {
	if s == nil || s.TotalLength <= 0 {
		return 0
	}
	percent := float64(s.CompletedLength) / float64(s.TotalLength) * 100
	if percent > 100 {
		percent = 100
	}
	return percent
}

// ETA estimates the remaining transfer time from the current speed. Zero
// means unknown or already finished.
func (s *Snapshot) ETA() time.Duration {
	if s == nil || s.DownloadSpeed <= 0 {
		return 0
	}
	remaining := s.TotalLength - s.CompletedLength
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining) / float64(s.DownloadSpeed) * float64(time.Second))
}

// FilePaths returns the paths of all files in the download.
func (s *Snapshot) FilePaths() []string {
	if s == nil || len(s.Files) == 0 {
		return nil
	}
	paths := make([]string, 0, len(s.Files))
	for _, file := range s.Files {
		if file.Path != "" {
			paths = append(paths, file.Path)
		}
	}
	return paths
}

// GlobalStat aggregates engine-wide transfer counters.
type GlobalStat struct {
	DownloadSpeed   int64
	UploadSpeed     int64
	NumActive       int
	NumWaiting      int
	NumStopped      int
	NumStoppedTotal int
}

// VersionInfo reports the engine build.
type VersionInfo struct {
	Version         string
	EnabledFeatures []string
}

// Client defines the download engine operations used by the bot, the task
// monitor, and the notifier.
type Client interface {
	AddURI(ctx context.Context, uris []string, options map[string]string) (string, error)
	TellStatus(ctx context.Context, gid string) (*Snapshot, error)
	Pause(ctx context.Context, gid string) error
	Unpause(ctx context.Context, gid string) error
	Remove(ctx context.Context, gid string) error
	PauseAll(ctx context.Context) error
	UnpauseAll(ctx context.Context) error
	TellActive(ctx context.Context) ([]*Snapshot, error)
	TellWaiting(ctx context.Context, offset, limit int) ([]*Snapshot, error)
	TellStopped(ctx context.Context, offset, limit int) ([]*Snapshot, error)
	GetGlobalStat(ctx context.Context) (*GlobalStat, error)
	GetVersion(ctx context.Context) (*VersionInfo, error)
}

// taskName resolves a display name the way users expect: the torrent name
// when present, else the first file's basename, else the gid.
func taskName(torrentName string, files []FileEntry, gid string) string {
	if name := strings.TrimSpace(torrentName); name != "" {
		return name
	}
	for _, file := range files {
		if file.Path == "" {
			continue
		}
		if base := path.Base(strings.ReplaceAll(file.Path, "\\", "/")); base != "" && base != "." && base != "/" {
			return base
		}
	}
	return gid
}
