package ipc

// dateTimeFormat is used for RFC3339 timestamps in IPC payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Acquisition describes a catalog row in a transport-friendly format.
type Acquisition struct {
	ID             int64  `json:"id"`
	AssetID        string `json:"assetId,omitempty"`
	AssetName      string `json:"assetName"`
	AssetType      string `json:"assetType,omitempty"`
	AssetPath      string `json:"assetPath"`
	BundlePath     string `json:"bundlePath,omitempty"`
	SessionID      string `json:"sessionId,omitempty"`
	RequestID      string `json:"requestId,omitempty"`
	Status         string `json:"status"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
	AlreadyExisted bool   `json:"alreadyExisted"`
	CreatedAt      string `json:"createdAt,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}

// HistoryEntry describes one finished import in a transport-friendly format.
type HistoryEntry struct {
	ID                     string `json:"id"`
	AssetID                string `json:"assetId,omitempty"`
	AssetName              string `json:"assetName"`
	AssetType              string `json:"assetType,omitempty"`
	AssetPath              string `json:"assetPath"`
	Thumbnail              string `json:"thumbnail,omitempty"`
	CachedThumbnail        string `json:"cachedThumbnail,omitempty"`
	ImportTimestampEpochMs int64  `json:"importTimestampEpochMs"`
}

// StartRequest begins the daemon protocol session.
type StartRequest struct{}

// StartResponse indicates whether the session was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest ends the daemon protocol session.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusLine is a labelled severity row for status rendering.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail,omitempty"`
}

// StatusResponse represents combined daemon and session status information.
type StatusResponse struct {
	Running        bool           `json:"running"`
	PID            int            `json:"pid"`
	SessionID      string         `json:"session_id,omitempty"`
	Degraded       bool           `json:"degraded"`
	PeerState      string         `json:"peer_state"`
	PeerLost       bool           `json:"peer_lost"`
	FocusRequests  int64          `json:"focus_requests"`
	RequestPending bool           `json:"request_pending"`
	CatalogStats   map[string]int `json:"catalog_stats"`
	LastImport     *HistoryEntry  `json:"last_import,omitempty"`
	LastError      string         `json:"last_error,omitempty"`
	BridgeDir      string         `json:"bridge_dir"`
	CatalogDBPath  string         `json:"catalog_db_path"`
	LockPath       string         `json:"lock_path"`
	IntakeEnabled  bool           `json:"intake_enabled"`

	// SystemChecks and BridgeFiles are filled in by status snapshot
	// assembly on the CLI side, not by the daemon itself.
	SystemChecks []StatusLine `json:"system_checks,omitempty"`
	BridgeFiles  []StatusLine `json:"bridge_files,omitempty"`
}

// ImportRequest submits an artifact path for acquisition.
type ImportRequest struct {
	Path string `json:"path"`
}

// ImportResponse returns the catalog row tracking the artifact.
type ImportResponse struct {
	Item Acquisition `json:"item"`
}

// ImportsListRequest filters catalog listing by status.
type ImportsListRequest struct {
	Statuses []string `json:"statuses"`
}

// ImportsListResponse contains catalog entries.
type ImportsListResponse struct {
	Items []Acquisition `json:"items"`
}

// ImportsClearRequest removes all catalog rows.
type ImportsClearRequest struct{}

// ImportsClearResponse reports number of removed rows.
type ImportsClearResponse struct {
	Removed int64 `json:"removed"`
}

// HistoryListRequest fetches recent imports, newest first. A Limit of zero
// returns everything on record.
type HistoryListRequest struct {
	Limit int `json:"limit"`
}

// HistoryListResponse contains import history entries.
type HistoryListResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// HistoryClearRequest empties the import history.
type HistoryClearRequest struct{}

// HistoryClearResponse confirms the history was cleared.
type HistoryClearResponse struct {
	Cleared bool `json:"cleared"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
