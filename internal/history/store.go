package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"shuttle/internal/fileutil"
	"shuttle/internal/logging"
)

// Entry is one completed import.
type Entry struct {
	ID                     string `json:"id"`
	AssetID                string `json:"assetId"`
	AssetName              string `json:"assetName"`
	AssetType              string `json:"assetType"`
	AssetPath              string `json:"assetPath"`
	Thumbnail              string `json:"thumbnail"`
	CachedThumbnail        string `json:"cachedThumbnail"`
	ImportTimestampEpochMs int64  `json:"importTimestampEpochMs"`
}

// Store provides thread-safe access to the import history file. Entries
// are held newest first and trimmed to the configured cap on every Add.
type Store struct {
	path       string
	maxEntries int
	logger     *slog.Logger

	mu      sync.Mutex
	entries []Entry
}

// NewStore opens the history at path, loading existing entries. A missing
// file starts empty; an unreadable one is logged and also starts empty.
// With an empty path the store is non-functional and every operation is a
// no-op.
func NewStore(path string, maxEntries int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Store{
		path:       path,
		maxEntries: maxEntries,
		logger:     logging.NewComponentLogger(logger, "history"),
	}
	if path == "" {
		return s
	}
	if err := s.load(); err != nil {
		s.logger.Warn("import history unreadable, starting empty",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "previous imports will not be listed"))
	}
	return s
}

// Add prepends entry, assigns it an id when it has none, trims to the cap,
// and persists. Returns the stored entry.
func (s *Store) Add(entry Entry) (Entry, error) {
	if s.path == "" {
		return entry, nil
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append([]Entry{entry}, s.entries...)
	if s.maxEntries > 0 && len(s.entries) > s.maxEntries {
		s.entries = s.entries[:s.maxEntries]
	}

	if err := s.save(); err != nil {
		return entry, fmt.Errorf("persist history: %w", err)
	}

	s.logger.Debug("recorded import",
		logging.String("id", entry.ID),
		logging.String(logging.FieldAsset, entry.AssetName),
		logging.String(logging.FieldAssetPath, entry.AssetPath))
	return entry, nil
}

// Entries returns a copy of the history, newest first.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of recorded imports.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear drops every entry and persists the empty history.
func (s *Store) Clear() error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	if err := s.save(); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse history: %w", err)
	}
	s.entries = entries
	return nil
}

func (s *Store) save() error {
	entries := s.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	return fileutil.WriteFileAtomic(s.path, data, 0o644)
}
