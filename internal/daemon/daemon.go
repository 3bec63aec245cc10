package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"shuttle/internal/bridge"
	"shuttle/internal/catalog"
	"shuttle/internal/config"
	"shuttle/internal/history"
	"shuttle/internal/importer"
	"shuttle/internal/logging"
	"shuttle/internal/notifications"
	"shuttle/internal/preflight"
	"shuttle/internal/session"
)

// Daemon coordinates the bridge protocol services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	identity session.Identity

	bridge   *bridge.Bridge
	channel  *bridge.Channel
	watcher  *bridge.Watcher
	keeper   *session.LockKeeper
	peers    *session.HeartbeatMonitor
	focus    *session.FocusWatcher
	pipeline *importer.Pipeline
	intake   *intakeMonitor
	catalog  *catalog.Store
	history  *history.Store
	notifier notifications.Service

	logPath  string
	lockPath string
	lock     *flock.Flock

	onPeerLost func()

	focusRequests atomic.Int64
	peerLost      atomic.Bool

	resultMu   sync.Mutex
	lastResult *importer.Result

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	SessionID      string
	Degraded       bool
	PeerState      string
	PeerLost       bool
	FocusRequests  int64
	RequestPending bool
	CatalogStats   map[catalog.Status]int
	LastImport     *history.Entry
	LastError      string
	BridgeDir      string
	CatalogDBPath  string
	LockFilePath   string
	IntakeEnabled  bool
}

type stopper interface{ Stop() }

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *catalog.Store, hist *history.Store, identity session.Identity, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || hist == nil || logger == nil {
		return nil, errors.New("daemon requires config, catalog store, history store, and logger")
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		identity: identity,
		catalog:  store,
		history:  hist,
		notifier: notifications.NewService(cfg),
		logPath:  filepath.Join(cfg.Paths.LogDir, "shuttled.log"),
		lockPath: filepath.Join(cfg.Paths.LogDir, "shuttled.lock"),
	}
	d.lock = flock.New(d.lockPath)

	d.bridge = bridge.New(cfg.Paths.BridgeDir)
	d.channel = bridge.NewChannel(
		d.bridge,
		time.Duration(cfg.Protocol.CompletionPollMs)*time.Millisecond,
		time.Duration(cfg.Protocol.CompletionTimeout)*time.Second,
		logger,
	)
	if cfg.Protocol.UseFsnotify {
		d.watcher = bridge.NewWatcher(d.bridge, d.channel, logger)
	}

	d.keeper = session.NewLockKeeper(
		d.bridge,
		identity,
		time.Duration(cfg.Protocol.LockRefresh)*time.Second,
		cfg.Session.Exclusive,
		logger,
	)
	d.peers = session.NewHeartbeatMonitor(
		d.bridge,
		identity,
		time.Duration(cfg.Protocol.HeartbeatGrace)*time.Second,
		time.Duration(cfg.Protocol.HeartbeatInterval)*time.Second,
		time.Duration(cfg.Protocol.HeartbeatTimeout)*time.Second,
		d.handlePeerLost,
		logger,
	)
	d.focus = session.NewFocusWatcher(
		d.bridge,
		identity,
		time.Duration(cfg.Protocol.FocusPollMs)*time.Millisecond,
		session.FocuserFunc(d.handleFocus),
		logger,
	)

	d.pipeline = importer.NewWithCollaborators(
		cfg, d.channel, store, hist, identity,
		d.notifier, importer.CollaboratorFunc(d.recordOutcome), logger,
	)
	d.intake = newIntakeMonitor(cfg, d.pipeline, logger)

	return d, nil
}

// OnPeerLost registers a callback fired once when the peer heartbeat goes
// stale. The daemon runner uses it to trigger process shutdown. Must be
// set before Start.
func (d *Daemon) OnPeerLost(fn func()) {
	d.onPeerLost = fn
}

// Start acquires the daemon lock and launches the protocol components.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another shuttle daemon instance is already running")
	}

	for _, check := range preflight.Failures(preflight.RunAll(ctx, d.cfg)) {
		d.logger.Warn("preflight check failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail))
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	var started []stopper
	fail := func(component string, err error) error {
		for i := len(started) - 1; i >= 0; i-- {
			started[i].Stop()
		}
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		_ = d.lock.Unlock()
		return fmt.Errorf("start %s: %w", component, err)
	}

	if err := d.keeper.Start(d.ctx); err != nil {
		return fail("session lock keeper", err)
	}
	started = append(started, d.keeper)

	if err := d.peers.Start(d.ctx); err != nil {
		return fail("heartbeat monitor", err)
	}
	started = append(started, d.peers)

	if err := d.focus.Start(d.ctx); err != nil {
		return fail("focus watcher", err)
	}
	started = append(started, d.focus)

	if d.watcher != nil {
		// The watcher is an accelerator; polling covers its absence.
		if err := d.watcher.Start(d.ctx); err != nil {
			d.logger.Warn("completion watcher unavailable, relying on polling", logging.Error(err))
			d.watcher = nil
		}
	}

	if d.intake != nil {
		if err := d.intake.Start(d.ctx); err != nil {
			if d.watcher != nil {
				d.watcher.Stop()
			}
			return fail("intake monitor", err)
		}
	}

	d.running.Store(true)
	d.logger.Info("shuttle daemon started",
		logging.String(logging.FieldSessionID, d.identity.ID),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the protocol components and releases the daemon lock.
// In-flight completion waits are abandoned; a pending request file stays
// on the bridge for the peer.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.intake != nil {
		d.intake.Stop()
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}
	d.focus.Stop()
	d.peers.Stop()
	d.keeper.Stop()
	d.pipeline.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("shuttle daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.catalog != nil {
		return d.catalog.Close()
	}
	return nil
}

// ImportFile runs one artifact through the acquisition pipeline. The
// supplied context must outlive the completion handshake; IPC callers pass
// the daemon's base context.
func (d *Daemon) ImportFile(ctx context.Context, artifactPath string) (*catalog.Acquisition, error) {
	if !d.running.Load() {
		return nil, errors.New("daemon not running")
	}
	trimmed := strings.TrimSpace(artifactPath)
	if trimmed == "" {
		return nil, errors.New("artifact path is required")
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	return d.pipeline.Acquire(ctx, absPath)
}

// ListAcquisitions returns catalog rows filtered by optional statuses.
func (d *Daemon) ListAcquisitions(ctx context.Context, statuses []catalog.Status) ([]*catalog.Acquisition, error) {
	if d.catalog == nil {
		return nil, errors.New("catalog unavailable")
	}
	if len(statuses) == 0 {
		return d.catalog.List(ctx)
	}
	return d.catalog.List(ctx, statuses...)
}

// ClearAcquisitions removes all catalog rows.
func (d *Daemon) ClearAcquisitions(ctx context.Context) (int64, error) {
	if d.catalog == nil {
		return 0, errors.New("catalog unavailable")
	}
	return d.catalog.Clear(ctx)
}

// HistoryEntries returns up to limit most-recent import history entries.
// A non-positive limit returns every entry.
func (d *Daemon) HistoryEntries(limit int) []history.Entry {
	entries := d.history.Entries()
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// ClearHistory empties the import history file.
func (d *Daemon) ClearHistory() error {
	return d.history.Clear()
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.catalog.Stats(ctx)
	if err != nil {
		d.logger.Warn("catalog stats unavailable", logging.Error(err))
	}
	pending, _ := d.bridge.RequestPending()

	var last *history.Entry
	if entries := d.history.Entries(); len(entries) > 0 {
		last = &entries[0]
	}

	lastErr := ""
	d.resultMu.Lock()
	if d.lastResult != nil && d.lastResult.Err != nil {
		lastErr = d.lastResult.Err.Error()
	}
	d.resultMu.Unlock()

	return Status{
		Running:        d.running.Load(),
		PID:            d.identity.PID,
		SessionID:      d.identity.ID,
		Degraded:       d.identity.Degraded(),
		PeerState:      d.peers.State().String(),
		PeerLost:       d.peerLost.Load(),
		FocusRequests:  d.focusRequests.Load(),
		RequestPending: pending,
		CatalogStats:   stats,
		LastImport:     last,
		LastError:      lastErr,
		BridgeDir:      d.cfg.Paths.BridgeDir,
		CatalogDBPath:  d.cfg.CatalogPath(),
		LockFilePath:   d.lockPath,
		IntakeEnabled:  d.cfg.Intake.Enabled,
	}
}

func (d *Daemon) handleFocus() {
	d.focusRequests.Add(1)
}

func (d *Daemon) handlePeerLost() {
	d.peerLost.Store(true)
	if err := d.notifier.NotifyPeerLost(context.Background(), d.identity.ID); err != nil {
		d.logger.Warn("peer-lost notification not sent", logging.Error(err))
	}
	if d.onPeerLost != nil {
		d.onPeerLost()
	}
}

func (d *Daemon) recordOutcome(res importer.Result) {
	d.resultMu.Lock()
	d.lastResult = &res
	d.resultMu.Unlock()
}
