package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const acquisitionColumns = `id, asset_id, asset_name, asset_type, asset_path, bundle_path,
    session_id, request_id, status, error_message, already_existed, created_at, updated_at`

// Store manages acquisition persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NewAcquisition inserts a pending row for an artifact entering the
// pipeline and returns it.
func (s *Store) NewAcquisition(ctx context.Context, assetPath, bundlePath string) (*Acquisition, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO acquisitions (
            asset_id, asset_path, bundle_path, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		assetPath,
		nullableString(bundlePath),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert acquisition: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches an acquisition by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Acquisition, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+acquisitionColumns+` FROM acquisitions WHERE id = ?`, id)
	acq, err := scanAcquisition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get acquisition: %w", err)
	}
	return acq, nil
}

// FindByAssetPath returns the most recent acquisition for an asset path.
func (s *Store) FindByAssetPath(ctx context.Context, assetPath string) (*Acquisition, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+acquisitionColumns+` FROM acquisitions WHERE asset_path = ? ORDER BY id DESC LIMIT 1`,
		assetPath,
	)
	acq, err := scanAcquisition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by asset path: %w", err)
	}
	return acq, nil
}

// Update persists changes to an existing acquisition.
func (s *Store) Update(ctx context.Context, acq *Acquisition) error {
	if acq == nil {
		return errors.New("acquisition is nil")
	}
	acq.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE acquisitions
         SET asset_name = ?, asset_type = ?, asset_path = ?, bundle_path = ?,
             session_id = ?, request_id = ?, status = ?, error_message = ?,
             already_existed = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(acq.AssetName),
		nullableString(acq.AssetType),
		acq.AssetPath,
		nullableString(acq.BundlePath),
		nullableString(acq.SessionID),
		nullableString(acq.RequestID),
		acq.Status,
		nullableString(acq.ErrorMessage),
		boolToInt(acq.AlreadyExisted),
		acq.UpdatedAt.Format(time.RFC3339Nano),
		acq.ID,
	)
	if err != nil {
		return fmt.Errorf("update acquisition: %w", err)
	}
	return nil
}

// List returns acquisitions filtered by status set (or all rows when no
// status is provided), oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Acquisition, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + acquisitionColumns + ` FROM acquisitions`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list acquisitions: %w", err)
	}
	defer rows.Close()

	var acquisitions []*Acquisition
	for rows.Next() {
		acq, err := scanAcquisition(rows)
		if err != nil {
			return nil, err
		}
		acquisitions = append(acquisitions, acq)
	}
	return acquisitions, rows.Err()
}

// Stats returns the number of acquisitions per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM acquisitions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var (
			status Status
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Clear removes every acquisition and returns the number deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM acquisitions`)
	if err != nil {
		return 0, fmt.Errorf("clear acquisitions: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAcquisition(row rowScanner) (*Acquisition, error) {
	var (
		acq            Acquisition
		assetName      sql.NullString
		assetType      sql.NullString
		bundlePath     sql.NullString
		sessionID      sql.NullString
		requestID      sql.NullString
		errorMessage   sql.NullString
		alreadyExisted int
		createdAt      string
		updatedAt      string
	)
	err := row.Scan(
		&acq.ID,
		&acq.AssetID,
		&assetName,
		&assetType,
		&acq.AssetPath,
		&bundlePath,
		&sessionID,
		&requestID,
		&acq.Status,
		&errorMessage,
		&alreadyExisted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	acq.AssetName = assetName.String
	acq.AssetType = assetType.String
	acq.BundlePath = bundlePath.String
	acq.SessionID = sessionID.String
	acq.RequestID = requestID.String
	acq.ErrorMessage = errorMessage.String
	acq.AlreadyExisted = alreadyExisted != 0
	if acq.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if acq.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &acq, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, raw)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := "?"
	for i := 1; i < count; i++ {
		placeholders += ", ?"
	}
	return placeholders
}
