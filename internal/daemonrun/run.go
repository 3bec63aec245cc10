// Package daemonrun hosts the shuttled runtime loop shared by the hidden
// `shuttle daemon` subcommand and the standalone shuttled binary.
package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"shuttle/internal/catalog"
	"shuttle/internal/config"
	"shuttle/internal/daemon"
	"shuttle/internal/history"
	"shuttle/internal/ipc"
	"shuttle/internal/logging"
	"shuttle/internal/session"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	SessionID   string
}

// Run starts the shuttle daemon runtime loop. It returns when the context
// is cancelled, a termination signal arrives, or the peer's heartbeat goes
// stale and the daemon shuts itself down.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("shuttled-%s.log", runID))

	logger, err := logging.New(logging.Options{
		Level:            opts.LogLevel,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update shuttled.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "shuttled-*.log", Exclude: []string{logPath}},
	)

	pidPath := filepath.Join(cfg.Paths.LogDir, "shuttled.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := catalog.Open(cfg.CatalogPath())
	if err != nil {
		logger.Error("open catalog", logging.Error(err))
		return err
	}
	defer store.Close()

	hist := history.NewStore(cfg.HistoryPath(), cfg.History.MaxEntries, logger)

	identity := session.Resolve(opts.SessionID)
	if identity.Degraded() {
		logger.Warn("no session token supplied; bridge files will be unkeyed",
			logging.String(logging.FieldEventType, "session_degraded"),
			logging.String(logging.FieldErrorHint, "pass --session or set "+session.EnvSessionID))
	}

	d, err := daemon.New(cfg, store, hist, identity, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	// A stale peer heartbeat is the one condition that ends the process
	// from the inside.
	d.OnPeerLost(func() {
		logger.Info("peer heartbeat lost; daemon exiting",
			logging.String(logging.FieldEventType, "daemon_peer_exit"),
			logging.String(logging.FieldSessionID, identity.ID))
		cancel()
	})

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check bridge_dir access and stale lock files"))
	}

	<-signalCtx.Done()
	logger.Info("shuttle daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "shuttled.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
