package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// TailOptions selects which part of a log file Tail returns.
type TailOptions struct {
	// Offset is the byte position to resume reading from. A negative offset
	// means "start at the end": return up to Limit of the newest lines.
	Offset int64
	// Limit caps how many trailing lines a negative-offset read returns.
	// Forward reads ignore it.
	Limit int
	// Follow keeps polling for fresh lines when the read comes back empty.
	Follow bool
	// Wait bounds how long a follow call blocks before returning empty.
	Wait time.Duration
}

// TailResult holds the lines read and the offset to pass to the next call.
type TailResult struct {
	Lines  []string
	Offset int64
}

const followPollInterval = 250 * time.Millisecond

// Tail reads lines from the log file at path. A file that does not exist yet
// is not an error: callers get an empty result with offset zero and can retry
// once the daemon starts writing.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{}, fmt.Errorf("log path %q is a directory", path)
	}

	var result TailResult
	if opts.Offset < 0 {
		result, err = lastLines(path, info.Size(), opts.Limit)
	} else {
		result, err = linesFrom(path, clampOffset(opts.Offset, info.Size()))
	}
	if err != nil {
		return TailResult{}, err
	}
	if len(result.Lines) > 0 || !opts.Follow || opts.Wait <= 0 {
		return result, nil
	}
	return pollForLines(ctx, path, result.Offset, opts.Wait)
}

// An offset past the end means the file was truncated or rotated underneath
// the caller.
func clampOffset(offset, size int64) int64 {
	if offset > size {
		return size
	}
	return offset
}

// lastLines returns the newest limit lines and an offset at the end of the
// file so the next read only sees fresh output.
func lastLines(path string, size int64, limit int) (TailResult, error) {
	if limit <= 0 {
		return TailResult{Offset: size}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return TailResult{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	ring := make([]string, limit)
	start, count := 0, 0
	scanner := newLineScanner(file)
	for scanner.Scan() {
		if count < limit {
			ring[(start+count)%limit] = scanner.Text()
			count++
			continue
		}
		ring[start] = scanner.Text()
		start = (start + 1) % limit
	}
	if err := scanner.Err(); err != nil {
		return TailResult{}, fmt.Errorf("read log file: %w", err)
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return TailResult{}, fmt.Errorf("seek log file: %w", err)
	}

	lines := make([]string, count)
	for i := range lines {
		lines[i] = ring[(start+i)%limit]
	}
	return TailResult{Lines: lines, Offset: offset}, nil
}

// linesFrom reads every complete line between offset and the end of the file.
func linesFrom(path string, offset int64) (TailResult, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return TailResult{}, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	scanner := newLineScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return TailResult{}, fmt.Errorf("read log file: %w", err)
	}

	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return TailResult{}, fmt.Errorf("determine log offset: %w", err)
	}
	return TailResult{Lines: lines, Offset: end}, nil
}

// pollForLines re-reads from offset until lines appear, the wait expires, or
// the context is cancelled.
func pollForLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(followPollInterval)
	defer ticker.Stop()

	for {
		result, err := linesFrom(path, offset)
		if err != nil {
			return TailResult{Offset: offset}, err
		}
		if len(result.Lines) > 0 || time.Now().After(deadline) {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}

// json-format lines can run long when wrapped error chains are attached.
func newLineScanner(file *os.File) *bufio.Scanner {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}
