package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"

	"shuttle/internal/logging"
)

// Watcher wakes the channel from filesystem events on the completion slot
// so a waiting import notices its completion before the next poll tick.
// It is an accelerator only: polling continues underneath, and a dropped
// or coalesced event costs one poll interval, never the completion.
type Watcher struct {
	bridge  *Bridge
	channel *Channel
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	fsw     *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher builds a Watcher that notifies channel when the completion
// file under b's bridge directory changes.
func NewWatcher(b *Bridge, channel *Channel, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		bridge:  b,
		channel: channel,
		logger:  logger.With(logging.String(logging.FieldComponent, "bridge-watcher")),
	}
}

// Start begins watching the bridge directory.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("bridge watcher already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.bridge.Paths().Dir); err != nil {
		fsw.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.loop(runCtx, fsw)
	return nil
}

// Stop shuts the watcher down and waits for its loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	fsw := w.fsw
	w.running = false
	w.cancel = nil
	w.fsw = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if fsw != nil {
		fsw.Close()
	}
	w.wg.Wait()
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()

	completionPath := w.bridge.Paths().CompletionPath()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Name != completionPath {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				w.channel.Notify()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Debug("filesystem watch error", logging.Error(err))
		}
	}
}
