package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"shuttle/internal/bridge"
	"shuttle/internal/logging"
)

// LockKeeper writes and refreshes the advisory session lock record for the
// lifetime of the daemon, then deletes it on graceful shutdown. The record
// is bookkeeping for outside tooling, not a mutex: nothing in the base
// protocol reads it for enforcement, and write failures are logged and
// tolerated. With exclusive ownership configured it additionally holds an
// OS-level file lock, and a second keeper for the same session refuses to
// start.
type LockKeeper struct {
	bridge   *bridge.Bridge
	identity Identity
	logger   *slog.Logger
	refresh  time.Duration

	exclusive bool
	flock     *flock.Flock

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewLockKeeper builds a keeper refreshing every refresh. When exclusive
// is set, Start acquires an OS-level lock alongside the advisory record.
func NewLockKeeper(b *bridge.Bridge, identity Identity, refresh time.Duration, exclusive bool, logger *slog.Logger) *LockKeeper {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LockKeeper{
		bridge:    b,
		identity:  identity,
		logger:    logger.With(logging.String(logging.FieldComponent, "lock-keeper")),
		refresh:   refresh,
		exclusive: exclusive,
	}
}

// Start writes the lock record and begins refreshing it. Without a session
// token the keeper stays idle: there is no key to write under.
func (k *LockKeeper) Start(ctx context.Context) error {
	if k.identity.Degraded() {
		k.logger.Debug("no session token, lock keeper idle")
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.running {
		return errors.New("lock keeper already running")
	}

	if k.exclusive {
		lock := flock.New(k.bridge.Paths().ExclusiveLockPath(k.identity.ID))
		ok, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire session lock: %w", err)
		}
		if !ok {
			return fmt.Errorf("session %q is already owned by another process", k.identity.ID)
		}
		k.flock = lock
	}

	k.writeRecord()

	runCtx, cancel := context.WithCancel(ctx)
	k.cancel = cancel
	k.running = true

	k.wg.Add(1)
	go k.loop(runCtx)
	return nil
}

// Stop halts refreshing, deletes the lock record, and releases the
// exclusive lock when one is held.
func (k *LockKeeper) Stop() {
	k.mu.Lock()
	if !k.running {
		k.mu.Unlock()
		return
	}
	cancel := k.cancel
	k.running = false
	k.cancel = nil
	k.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	k.wg.Wait()

	if err := k.bridge.RemoveLock(k.identity.ID); err != nil {
		k.logger.Warn("session lock record not removed", logging.Error(err))
	}

	k.mu.Lock()
	lock := k.flock
	k.flock = nil
	k.mu.Unlock()
	if lock != nil {
		if err := lock.Unlock(); err != nil {
			k.logger.Warn("session lock not released", logging.Error(err))
		}
	}
}

func (k *LockKeeper) loop(ctx context.Context) {
	defer k.wg.Done()

	ticker := time.NewTicker(k.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.writeRecord()
		}
	}
}

// writeRecord persists the current ownership claim. Failure is logged and
// the protocol continues without the record.
func (k *LockKeeper) writeRecord() {
	rec := bridge.LockRecord{
		ProcessID:        k.identity.PID,
		SessionID:        k.identity.ID,
		WrittenAtEpochMs: time.Now().UnixMilli(),
	}
	if err := k.bridge.WriteLock(rec); err != nil {
		k.logger.Warn("session lock record not written", logging.Error(err))
	}
}
