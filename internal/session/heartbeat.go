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

// PeerState is the heartbeat monitor's view of the peer process.
type PeerState int

const (
	// StateWaitingGrace covers the startup window in which the peer has
	// not yet had a fair chance to write its first heartbeat.
	StateWaitingGrace PeerState = iota
	// StateActive means the peer is assumed alive.
	StateActive
	// StateTerminated means the heartbeat went stale and the peer is
	// presumed dead. Terminal; the monitor never leaves this state.
	StateTerminated
)

// String returns the lower-case state name for log output.
func (s PeerState) String() string {
	switch s {
	case StateWaitingGrace:
		return "waiting_grace"
	case StateActive:
		return "active"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// HeartbeatMonitor periodically reads the peer's heartbeat record and
// fires onPeerLost once if the record's age exceeds the staleness
// threshold. A missing record is never fatal: transient absence is
// expected, and a corrupt record is never taken as proof of death. The
// only path to StateTerminated is a record that parsed and is stale.
type HeartbeatMonitor struct {
	bridge   *bridge.Bridge
	identity Identity
	logger   *slog.Logger

	grace    time.Duration
	interval time.Duration
	timeout  time.Duration

	// onPeerLost runs exactly once, on the transition to StateTerminated.
	onPeerLost func()

	mu        sync.Mutex
	running   bool
	state     PeerState
	startedAt time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewHeartbeatMonitor builds a monitor that checks every interval, allows
// grace after Start before the first staleness verdict, and presumes the
// peer dead once the record is older than timeout. The timeout must be
// strictly larger than the interval; config validation enforces this.
func NewHeartbeatMonitor(b *bridge.Bridge, identity Identity, grace, interval, timeout time.Duration, onPeerLost func(), logger *slog.Logger) *HeartbeatMonitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HeartbeatMonitor{
		bridge:     b,
		identity:   identity,
		logger:     logger.With(logging.String(logging.FieldComponent, "heartbeat-monitor")),
		grace:      grace,
		interval:   interval,
		timeout:    timeout,
		onPeerLost: onPeerLost,
		state:      StateWaitingGrace,
	}
}

// State returns the monitor's current view of the peer.
func (m *HeartbeatMonitor) State() PeerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start begins the check loop. Without a session token the monitor stays
// idle: there is no heartbeat file to watch.
func (m *HeartbeatMonitor) Start(ctx context.Context) error {
	if m.identity.Degraded() {
		m.logger.Debug("no session token, heartbeat monitor idle")
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.New("heartbeat monitor already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.state = StateWaitingGrace
	m.startedAt = time.Now()

	m.wg.Add(1)
	go m.loop(runCtx)
	return nil
}

// Stop halts the check loop and waits for it to exit.
func (m *HeartbeatMonitor) Stop() {
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

func (m *HeartbeatMonitor) loop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.check(time.Now()) == StateTerminated {
				return
			}
		}
	}
}

// check performs one observation at now and returns the resulting state.
// The peer-lost callback fires outside the state lock.
func (m *HeartbeatMonitor) check(now time.Time) PeerState {
	m.mu.Lock()

	if m.state == StateTerminated {
		m.mu.Unlock()
		return StateTerminated
	}

	if m.state == StateWaitingGrace {
		if now.Sub(m.startedAt) < m.grace {
			m.mu.Unlock()
			return StateWaitingGrace
		}
		m.state = StateActive
		m.logger.Debug("grace window elapsed, watching peer heartbeat",
			logging.String(logging.FieldSessionID, m.identity.ID))
	}

	rec, obs, err := m.bridge.ObserveHeartbeat(m.identity.ID)
	switch obs {
	case bridge.Absent:
		// Transient absence is expected; treat like the grace window.
		m.logger.Debug("peer heartbeat absent")
		state := m.state
		m.mu.Unlock()
		return state
	case bridge.Corrupt:
		m.logger.Warn("peer heartbeat unreadable", logging.Error(err))
		state := m.state
		m.mu.Unlock()
		return state
	}

	age := rec.Age(now)
	if age <= m.timeout {
		state := m.state
		m.mu.Unlock()
		return state
	}

	m.state = StateTerminated
	callback := m.onPeerLost
	m.mu.Unlock()

	m.logger.Error("peer heartbeat stale, session presumed dead",
		logging.String(logging.FieldSessionID, m.identity.ID),
		logging.Duration("age", age),
		logging.Duration("threshold", m.timeout))
	if callback != nil {
		callback()
	}
	return StateTerminated
}
