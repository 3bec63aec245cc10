package catalog

import "time"

// Status represents the lifecycle of an acquisition.
type Status string

const (
	// StatusPending marks an artifact the pipeline has picked up but not
	// yet classified.
	StatusPending Status = "pending"
	// StatusValidated marks a folder the validator accepted.
	StatusValidated Status = "validated"
	// StatusRequested marks an acquisition whose import request has been
	// written and is awaiting the peer's completion.
	StatusRequested Status = "requested"
	// StatusImported marks a completed import.
	StatusImported Status = "imported"
	// StatusFailed marks an acquisition that ended without an import:
	// validation failure, extraction failure, or no response from the
	// peer before the timeout.
	StatusFailed Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusValidated,
	StatusRequested,
	StatusImported,
	StatusFailed,
}

// ParseStatus validates a user-supplied status name.
func ParseStatus(raw string) (Status, bool) {
	for _, status := range allStatuses {
		if string(status) == raw {
			return status, true
		}
	}
	return "", false
}

// Terminal reports whether the status ends an acquisition's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusImported || s == StatusFailed
}

// Acquisition is one ledger row.
type Acquisition struct {
	ID             int64
	AssetID        string
	AssetName      string
	AssetType      string
	AssetPath      string
	BundlePath     string
	SessionID      string
	RequestID      string
	Status         Status
	ErrorMessage   string
	AlreadyExisted bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
