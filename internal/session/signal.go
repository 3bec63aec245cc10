package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"shuttle/internal/bridge"
	"shuttle/internal/logging"
)

// Focuser raises the host application window. The window layer itself
// lives outside this process; the daemon forwards the request through
// this interface.
type Focuser interface {
	Focus()
}

// FocuserFunc adapts a plain function to the Focuser interface.
type FocuserFunc func()

// Focus calls f.
func (f FocuserFunc) Focus() { f() }

// FocusWatcher polls for the existence-only focus signal and clears it
// after forwarding the request. Signals arriving between polls collapse
// into one focus action; the marker carries no payload, so repetition is
// idempotent. The watcher runs in degraded mode too, against the unkeyed
// signal name.
type FocusWatcher struct {
	bridge       *bridge.Bridge
	identity     Identity
	logger       *slog.Logger
	pollInterval time.Duration
	focuser      Focuser

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewFocusWatcher builds a watcher polling every pollInterval.
func NewFocusWatcher(b *bridge.Bridge, identity Identity, pollInterval time.Duration, focuser Focuser, logger *slog.Logger) *FocusWatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FocusWatcher{
		bridge:       b,
		identity:     identity,
		logger:       logger.With(logging.String(logging.FieldComponent, "focus-watcher")),
		pollInterval: pollInterval,
		focuser:      focuser,
	}
}

// Start begins polling for the focus signal.
func (w *FocusWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("focus watcher already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.loop(runCtx)
	return nil
}

// Stop halts polling and waits for the loop to exit.
func (w *FocusWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *FocusWatcher) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *FocusWatcher) poll() {
	present, err := w.bridge.FocusSignalPresent(w.identity.ID)
	if err != nil {
		w.logger.Debug("focus signal check failed", logging.Error(err))
		return
	}
	if !present {
		return
	}

	w.logger.Info("focus requested by peer",
		logging.String(logging.FieldSessionID, w.identity.ID))
	if w.focuser != nil {
		w.focuser.Focus()
	}

	// Deletion failure is tolerated; the next poll acts on the same
	// signal again, and focusing twice is harmless.
	if err := w.bridge.ClearFocusSignal(w.identity.ID); err != nil {
		w.logger.Warn("focus signal not cleared", logging.Error(err))
	}
}
