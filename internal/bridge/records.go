package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"shuttle/internal/fileutil"
)

// LockRecord is the advisory session ownership record the daemon refreshes
// while it runs. Nothing reads it for enforcement in the base protocol; it
// exists so outside tooling can tell a live owner from a stale leftover by
// the record's age.
type LockRecord struct {
	ProcessID        int    `json:"processId"`
	SessionID        string `json:"sessionId"`
	WrittenAtEpochMs int64  `json:"writtenAtEpochMs"`
}

// HeartbeatRecord is the peer's liveness timestamp. The peer owns the file
// entirely; the daemon only reads it.
type HeartbeatRecord struct {
	TimestampEpochSeconds int64 `json:"timestampEpochSeconds"`
}

// Age returns how far in the past the heartbeat timestamp lies at now.
func (r HeartbeatRecord) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(r.TimestampEpochSeconds, 0))
}

// Request is the import request slot payload. RequestID identifies the
// write for logging; correlation with the completion uses AssetPath alone.
type Request struct {
	AssetPath        string `json:"assetPath"`
	ThumbnailPath    string `json:"thumbnailPath,omitempty"`
	AssetName        string `json:"assetName"`
	AssetType        string `json:"assetType"`
	SessionID        string `json:"sessionId,omitempty"`
	RequestID        string `json:"requestId,omitempty"`
	TimestampEpochMs int64  `json:"timestampEpochMs"`
}

// Completion is the peer's reply to a Request. Only AssetPath drives
// correlation; the remaining payload is carried through to the notifier
// untouched, including any fields the peer invents.
type Completion struct {
	AssetPath     string
	AssetName     string
	ThumbnailPath string

	// Fields holds the full payload as written by the peer.
	Fields map[string]json.RawMessage
}

// UnmarshalJSON keeps the whole payload while lifting out the fields the
// protocol itself reads.
func (c *Completion) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Fields = raw
	c.AssetPath = stringField(raw, "assetPath")
	c.AssetName = stringField(raw, "assetName")
	c.ThumbnailPath = stringField(raw, "thumbnailPath")
	return nil
}

// MarshalJSON writes the passthrough payload with the lifted fields synced
// back in, so a Completion round-trips without losing peer extensions.
func (c Completion) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(c.Fields)+3)
	for k, v := range c.Fields {
		out[k] = v
	}
	setStringField(out, "assetPath", c.AssetPath)
	setStringField(out, "assetName", c.AssetName)
	setStringField(out, "thumbnailPath", c.ThumbnailPath)
	return json.Marshal(out)
}

func stringField(raw map[string]json.RawMessage, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}

func setStringField(out map[string]json.RawMessage, key, value string) {
	if value == "" {
		delete(out, key)
		return
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return
	}
	out[key] = encoded
}

// Bridge reads and writes the protocol files in one shared directory. Both
// halves of the protocol live here: the daemon-side operations and the
// peer-side ones used by the peer emulator and tests.
type Bridge struct {
	paths Paths
}

// New returns a Bridge rooted at dir.
func New(dir string) *Bridge {
	return &Bridge{paths: Paths{Dir: dir}}
}

// Paths exposes the resolved protocol file locations.
func (b *Bridge) Paths() Paths {
	return b.paths
}

// WriteLock persists the session lock record atomically.
func (b *Bridge) WriteLock(rec LockRecord) error {
	return b.writeJSON(b.paths.LockPath(rec.SessionID), rec)
}

// RemoveLock deletes the session lock record. A missing record is not an
// error.
func (b *Bridge) RemoveLock(sessionID string) error {
	return removeIfPresent(b.paths.LockPath(sessionID))
}

// ObserveLock reads the lock record for a session.
func (b *Bridge) ObserveLock(sessionID string) (LockRecord, Observation, error) {
	var rec LockRecord
	obs, err := observeJSON(b.paths.LockPath(sessionID), &rec)
	if obs != Valid {
		return LockRecord{}, obs, err
	}
	return rec, obs, nil
}

// ObserveHeartbeat reads the peer heartbeat for a session.
func (b *Bridge) ObserveHeartbeat(sessionID string) (HeartbeatRecord, Observation, error) {
	var rec HeartbeatRecord
	obs, err := observeJSON(b.paths.HeartbeatPath(sessionID), &rec)
	if obs != Valid {
		return HeartbeatRecord{}, obs, err
	}
	return rec, obs, nil
}

// WriteHeartbeat writes a peer heartbeat record. Peer-side operation.
func (b *Bridge) WriteHeartbeat(sessionID string, rec HeartbeatRecord) error {
	return b.writeJSON(b.paths.HeartbeatPath(sessionID), rec)
}

// FocusSignalPresent reports whether the focus signal marker exists.
func (b *Bridge) FocusSignalPresent(sessionID string) (bool, error) {
	_, err := os.Stat(b.paths.FocusSignalPath(sessionID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ClearFocusSignal deletes the focus signal marker. A missing marker is
// not an error.
func (b *Bridge) ClearFocusSignal(sessionID string) error {
	return removeIfPresent(b.paths.FocusSignalPath(sessionID))
}

// WriteFocusSignal creates the focus signal marker. Peer-side operation;
// the marker carries no payload, its existence is the signal.
func (b *Bridge) WriteFocusSignal(sessionID string) error {
	return fileutil.WriteFileAtomic(b.paths.FocusSignalPath(sessionID), nil, 0o644)
}

// WriteRequest publishes req into the shared request slot, overwriting any
// unconsumed request already there.
func (b *Bridge) WriteRequest(req Request) error {
	return b.writeJSON(b.paths.RequestPath(), req)
}

// RequestPending reports whether an unconsumed request occupies the slot.
func (b *Bridge) RequestPending() (bool, error) {
	_, err := os.Stat(b.paths.RequestPath())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ObserveRequest reads the pending import request. Peer-side operation.
func (b *Bridge) ObserveRequest() (Request, Observation, error) {
	var req Request
	obs, err := observeJSON(b.paths.RequestPath(), &req)
	if obs != Valid {
		return Request{}, obs, err
	}
	return req, obs, nil
}

// ConsumeRequest deletes the pending request slot. Peer-side operation.
func (b *Bridge) ConsumeRequest() error {
	return removeIfPresent(b.paths.RequestPath())
}

// ObserveCompletion reads the shared completion slot without consuming it.
func (b *Bridge) ObserveCompletion() (Completion, Observation, error) {
	var comp Completion
	obs, err := observeJSON(b.paths.CompletionPath(), &comp)
	if obs != Valid {
		return Completion{}, obs, err
	}
	return comp, obs, nil
}

// ConsumeCompletion deletes the completion slot after a match.
func (b *Bridge) ConsumeCompletion() error {
	return removeIfPresent(b.paths.CompletionPath())
}

// WriteCompletion publishes a completion into the shared slot. Peer-side
// operation.
func (b *Bridge) WriteCompletion(comp Completion) error {
	return b.writeJSON(b.paths.CompletionPath(), comp)
}

func (b *Bridge) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return fileutil.WriteFileAtomic(path, data, 0o644)
}

func removeIfPresent(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
