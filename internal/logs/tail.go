package logs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// maxScanBack bounds how far lastLines looks behind the end of the file.
// Lines older than this window are not reachable through negative offsets.
const maxScanBack = 1 << 20

// TailOptions controls a single Tail call. A negative Offset requests the
// last Limit lines of the file; a non-negative Offset reads forward from
// that byte position. Follow with a positive Wait blocks until new lines
// arrive or the wait expires.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads log lines from path according to opts. A missing file is not
// an error; it yields no lines and offset zero so pollers can start before
// the daemon writes anything.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	if opts.Wait < 0 {
		opts.Wait = 0
	}

	var (
		result TailResult
		err    error
	)
	if opts.Offset < 0 {
		result.Lines, result.Offset, err = lastLines(path, opts.Limit)
	} else {
		result.Lines, result.Offset, err = linesFrom(path, opts.Offset)
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, err
	}

	if opts.Follow && opts.Wait > 0 && len(result.Lines) == 0 {
		return awaitLines(ctx, path, result.Offset, opts.Wait)
	}
	return result, nil
}

// lastLines returns up to limit complete lines from the end of the file and
// the offset just past the last returned byte. It reads a single bounded
// window rather than scanning the whole file.
func lastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	size := info.Size()
	if limit <= 0 || size == 0 {
		return nil, size, nil
	}

	start := size - maxScanBack
	if start < 0 {
		start = 0
	}
	buf := make([]byte, size-start)
	if _, err := file.ReadAt(buf, start); err != nil && !errors.Is(err, io.EOF) {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	if start > 0 {
		// The window boundary usually lands mid-line; skip to the next
		// line start.
		cut := bytes.IndexByte(buf, '\n')
		if cut < 0 {
			return nil, size, nil
		}
		buf = buf[cut+1:]
		start += int64(cut) + 1
	}

	end := size
	if n := len(buf); n > 0 && buf[n-1] != '\n' {
		// Hold back an unterminated final line until its newline arrives.
		cut := bytes.LastIndexByte(buf, '\n')
		buf = buf[:cut+1]
		end = start + int64(len(buf))
	}

	var lines []string
	for len(buf) > 0 {
		cut := bytes.IndexByte(buf, '\n')
		lines = append(lines, string(buf[:cut]))
		buf = buf[cut+1:]
	}
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines, end, nil
}

// linesFrom reads complete lines starting at offset and returns them with
// the offset of the next unread byte. An offset beyond the current size
// means the file was truncated or rotated; reading restarts from the top.
func linesFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(file)
	var lines []string
	next := offset
	for {
		line, err := reader.ReadString('\n')
		if err == nil {
			next += int64(len(line))
			lines = append(lines, strings.TrimSuffix(line, "\n"))
			continue
		}
		if errors.Is(err, io.EOF) {
			// A trailing fragment stays unread until the writer finishes
			// the line.
			return lines, next, nil
		}
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
}

// awaitLines blocks until new complete lines land in the file, the wait
// expires, or ctx is canceled. A directory watch wakes it early where the
// platform supports change notification; the ticker covers filesystems
// where it does not.
func awaitLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	var wake chan fsnotify.Event
	if watcher, err := fsnotify.NewWatcher(); err == nil {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(path)); err == nil {
			wake = watcher.Events
		}
	}

	result := TailResult{Offset: offset}
	for {
		lines, next, err := linesFrom(path, result.Offset)
		if err != nil {
			return result, err
		}
		result.Offset = next
		if len(lines) > 0 {
			result.Lines = lines
			return result, nil
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-deadline.C:
			return result, nil
		case <-ticker.C:
		case <-wake:
		}
	}
}
