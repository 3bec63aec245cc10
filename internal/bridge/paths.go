package bridge

import "path/filepath"

// Paths derives the deterministic protocol file names inside the shared
// bridge directory. Session-keyed artifacts fall back to an unkeyed name
// when no session token is present, matching the degraded any-peer mode.
type Paths struct {
	Dir string
}

// LockPath returns the lock record location for a session.
func (p Paths) LockPath(sessionID string) string {
	if sessionID == "" {
		return filepath.Join(p.Dir, "lock.json")
	}
	return filepath.Join(p.Dir, "lock-"+sessionID+".json")
}

// ExclusiveLockPath returns the OS-level lock file used when the session
// is configured for exclusive ownership. It is distinct from LockPath
// because the JSON record is replaced on every refresh, which would drop
// a lock held on its inode.
func (p Paths) ExclusiveLockPath(sessionID string) string {
	if sessionID == "" {
		return filepath.Join(p.Dir, "session.flock")
	}
	return filepath.Join(p.Dir, "session-"+sessionID+".flock")
}

// HeartbeatPath returns the peer heartbeat location for a session.
func (p Paths) HeartbeatPath(sessionID string) string {
	if sessionID == "" {
		return filepath.Join(p.Dir, "heartbeat.json")
	}
	return filepath.Join(p.Dir, "heartbeat-"+sessionID+".json")
}

// FocusSignalPath returns the focus signal marker location for a session.
func (p Paths) FocusSignalPath(sessionID string) string {
	if sessionID == "" {
		return filepath.Join(p.Dir, "focus.signal")
	}
	return filepath.Join(p.Dir, "focus-"+sessionID+".signal")
}

// RequestPath returns the shared import request slot. The slot is not
// session-keyed; the request payload carries the session token instead.
func (p Paths) RequestPath() string {
	return filepath.Join(p.Dir, "import-request.json")
}

// CompletionPath returns the shared import completion slot.
func (p Paths) CompletionPath() string {
	return filepath.Join(p.Dir, "import-complete.json")
}
