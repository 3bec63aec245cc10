package ipc

import (
	"shuttle/internal/catalog"
	"shuttle/internal/history"
)

// FromAcquisition converts a catalog row to its transport representation.
func FromAcquisition(acq *catalog.Acquisition) Acquisition {
	if acq == nil {
		return Acquisition{}
	}
	dto := Acquisition{
		ID:             acq.ID,
		AssetID:        acq.AssetID,
		AssetName:      acq.AssetName,
		AssetType:      acq.AssetType,
		AssetPath:      acq.AssetPath,
		BundlePath:     acq.BundlePath,
		SessionID:      acq.SessionID,
		RequestID:      acq.RequestID,
		Status:         string(acq.Status),
		ErrorMessage:   acq.ErrorMessage,
		AlreadyExisted: acq.AlreadyExisted,
	}
	if !acq.CreatedAt.IsZero() {
		dto.CreatedAt = acq.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !acq.UpdatedAt.IsZero() {
		dto.UpdatedAt = acq.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromAcquisitions converts a slice of catalog rows.
func FromAcquisitions(acqs []*catalog.Acquisition) []Acquisition {
	if len(acqs) == 0 {
		return nil
	}
	out := make([]Acquisition, 0, len(acqs))
	for _, acq := range acqs {
		out = append(out, FromAcquisition(acq))
	}
	return out
}

// FromHistoryEntry converts a history record to its transport representation.
func FromHistoryEntry(entry history.Entry) HistoryEntry {
	return HistoryEntry{
		ID:                     entry.ID,
		AssetID:                entry.AssetID,
		AssetName:              entry.AssetName,
		AssetType:              entry.AssetType,
		AssetPath:              entry.AssetPath,
		Thumbnail:              entry.Thumbnail,
		CachedThumbnail:        entry.CachedThumbnail,
		ImportTimestampEpochMs: entry.ImportTimestampEpochMs,
	}
}

// FromHistoryEntries converts a slice of history records.
func FromHistoryEntries(entries []history.Entry) []HistoryEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromHistoryEntry(entry))
	}
	return out
}

// MergeCatalogStats produces a string-keyed representation of catalog stats.
func MergeCatalogStats(stats map[catalog.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}
