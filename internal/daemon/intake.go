package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"shuttle/internal/config"
	"shuttle/internal/extract"
	"shuttle/internal/importer"
	"shuttle/internal/logging"
)

// Suffixes browsers and download managers append to files still being
// written. Such files are never picked up, whatever their mtime says.
var partialDownloadSuffixes = []string{".part", ".crdownload", ".download", ".tmp"}

// intakeMonitor polls the downloads directory for finished bundles and
// feeds them into the acquisition pipeline. A bundle counts as finished
// once its modification time has been quiet for the configured window;
// an in-progress download keeps moving its mtime. Plain folders are left
// alone; those enter through an explicit import command.
type intakeMonitor struct {
	cfg      *config.Config
	pipeline *importer.Pipeline
	logger   *slog.Logger

	dir          string
	pollInterval time.Duration
	quietWindow  time.Duration

	mu      sync.Mutex
	running bool
	handled map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newIntakeMonitor(cfg *config.Config, pipeline *importer.Pipeline, logger *slog.Logger) *intakeMonitor {
	if cfg == nil || pipeline == nil || !cfg.Intake.Enabled {
		return nil
	}
	dir := strings.TrimSpace(cfg.Paths.DownloadsDir)
	if dir == "" {
		return nil
	}

	poll := time.Duration(cfg.Intake.PollInterval) * time.Second
	if poll <= 0 {
		poll = 2 * time.Second
	}
	quiet := time.Duration(cfg.Intake.QuietSeconds) * time.Second
	if quiet < 0 {
		quiet = 0
	}

	return &intakeMonitor{
		cfg:          cfg,
		pipeline:     pipeline,
		logger:       logging.NewComponentLogger(logger, "intake"),
		dir:          dir,
		pollInterval: poll,
		quietWindow:  quiet,
		handled:      make(map[string]struct{}),
	}
}

func (m *intakeMonitor) Start(ctx context.Context) error {
	if m == nil {
		return errors.New("intake monitor unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.New("intake monitor already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.ctx = runCtx
	m.cancel = cancel
	m.running = true

	m.wg.Add(1)
	go m.loop()
	return nil
}

func (m *intakeMonitor) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

func (m *intakeMonitor) loop() {
	defer m.wg.Done()

	m.poll()

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *intakeMonitor) poll() {
	ctx := m.ctx
	if ctx == nil {
		return
	}

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		m.logger.Warn("downloads scan failed, will retry", logging.Error(err))
		return
	}

	now := time.Now()
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		path := filepath.Join(m.dir, entry.Name())
		seen[path] = struct{}{}

		if !eligibleBundle(entry) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < m.quietWindow {
			continue
		}

		m.mu.Lock()
		_, done := m.handled[path]
		if !done {
			m.handled[path] = struct{}{}
		}
		m.mu.Unlock()
		if done {
			continue
		}

		m.logger.Info("download settled, starting acquisition",
			logging.String(logging.FieldAssetPath, path))
		if _, err := m.pipeline.Acquire(ctx, path); err != nil {
			m.logger.Error("acquisition failed, will retry",
				logging.String(logging.FieldAssetPath, path),
				logging.Error(err))
			m.mu.Lock()
			delete(m.handled, path)
			m.mu.Unlock()
		}
	}

	// Forget entries that left the directory so a re-download of the same
	// name is picked up again.
	m.mu.Lock()
	for path := range m.handled {
		if _, ok := seen[path]; !ok {
			delete(m.handled, path)
		}
	}
	m.mu.Unlock()
}

func eligibleBundle(entry os.DirEntry) bool {
	name := entry.Name()
	if entry.IsDir() || strings.HasPrefix(name, ".") {
		return false
	}
	lower := strings.ToLower(name)
	for _, suffix := range partialDownloadSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}
	return extract.IsBundle(name)
}
