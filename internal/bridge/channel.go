package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"shuttle/internal/logging"
)

// ErrNoResponse reports that the peer wrote no matching completion before
// the channel's timeout elapsed. The request slot is left as-is; the peer
// may still consume it later, but this waiter has stopped listening.
var ErrNoResponse = errors.New("no import completion before timeout")

// Channel is the single-slot import mailbox. Publish overwrites whatever
// request currently occupies the slot (last writer wins, no queue), and
// Await polls the completion slot until a completion matching the awaited
// asset path appears or the timeout elapses. Non-matching completions are
// left on disk for whichever waiter owns them.
type Channel struct {
	bridge  *Bridge
	logger  *slog.Logger
	poll    time.Duration
	timeout time.Duration

	wake chan struct{}

	// mu serializes observe-and-consume so two in-process waiters cannot
	// both consume one completion.
	mu sync.Mutex
}

// NewChannel builds a Channel over b polling every poll, giving up after
// timeout.
func NewChannel(b *Bridge, poll, timeout time.Duration, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Channel{
		bridge:  b,
		logger:  logger.With(logging.String(logging.FieldComponent, "import-channel")),
		poll:    poll,
		timeout: timeout,
		wake:    make(chan struct{}, 1),
	}
}

// Publish writes req into the request slot. An unconsumed request already
// in the slot is overwritten, its waiter can no longer correlate the
// eventual completion, and the overwrite is logged.
func (c *Channel) Publish(req Request) error {
	pending, err := c.bridge.RequestPending()
	if err != nil {
		c.logger.Warn("request slot check failed", logging.Error(err))
	} else if pending {
		c.logger.Warn("overwriting unconsumed import request",
			logging.String(logging.FieldAssetPath, req.AssetPath))
	}
	return c.bridge.WriteRequest(req)
}

// Notify wakes any in-flight Await immediately instead of waiting for its
// next poll tick. Safe to call from any goroutine; extra notifications
// collapse.
func (c *Channel) Notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Await blocks until a completion whose assetPath equals assetPath is
// consumed, the timeout elapses (ErrNoResponse), or ctx is cancelled. On
// success the completion file has been deleted and the parsed payload is
// returned exactly once across all in-process waiters.
func (c *Channel) Await(ctx context.Context, assetPath string) (*Completion, error) {
	deadline := time.NewTimer(c.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		if comp, ok := c.tryConsume(assetPath); ok {
			return comp, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrNoResponse
		case <-ticker.C:
		case <-c.wake:
		}
	}
}

// tryConsume performs one observe-and-consume cycle. A corrupt slot is
// treated as absent and left in place; a concurrent writer mid-write looks
// the same and the next cycle will see the finished file.
func (c *Channel) tryConsume(assetPath string) (*Completion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	comp, obs, err := c.bridge.ObserveCompletion()
	switch obs {
	case Absent:
		return nil, false
	case Corrupt:
		c.logger.Debug("completion slot unreadable", logging.Error(err))
		return nil, false
	}

	if comp.AssetPath != assetPath {
		return nil, false
	}

	if err := c.bridge.ConsumeCompletion(); err != nil {
		c.logger.Warn("completion consumed but not deleted", logging.Error(err))
	}
	return &comp, true
}
