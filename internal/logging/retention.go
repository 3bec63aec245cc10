package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget specifies a directory and filename pattern to prune.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs removes files matching the provided targets that are older
// than retentionDays. A retentionDays value of 0 disables pruning.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) {
	if retentionDays <= 0 {
		return
	}
	if logger == nil {
		logger = NewNop()
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	for _, target := range targets {
		pruneTarget(logger, target, cutoff)
	}
}

func pruneTarget(logger *slog.Logger, target RetentionTarget, cutoff time.Time) {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	keep := make(map[string]struct{}, len(target.Exclude))
	for _, path := range target.Exclude {
		if abs := absOrSelf(strings.TrimSpace(path)); abs != "" {
			keep[abs] = struct{}{}
		}
	}

	for _, entry := range entries {
		path := absOrSelf(filepath.Join(dir, entry.Name()))
		if _, excluded := keep[path]; excluded {
			continue
		}
		if !expired(entry, target.Pattern, cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil {
			logger.Warn("log retention remove failed; file remains",
				String("path", path),
				Error(err),
				String(FieldEventType, "log_retention_failed"),
				String(FieldErrorHint, "check file permissions and log_dir ownership"))
			continue
		}
		logger.Info("log pruned",
			String("path", path),
			String(FieldEventType, "log_pruned"))
	}
}

// expired reports whether entry is a plain file matching pattern whose
// mtime falls before cutoff.
func expired(entry os.DirEntry, pattern string, cutoff time.Time) bool {
	if entry.IsDir() {
		return false
	}
	if pattern = strings.TrimSpace(pattern); pattern != "" {
		matched, err := filepath.Match(pattern, entry.Name())
		if err != nil || !matched {
			return false
		}
	}
	info, err := entry.Info()
	if err != nil {
		return false
	}
	return info.ModTime().Before(cutoff)
}

func absOrSelf(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
