package catalog

import (
	"context"
	"fmt"
	"time"
)

// MarkValidated records a passed validation along with the resolved
// metadata.
func (s *Store) MarkValidated(ctx context.Context, id int64, assetName, assetType string, alreadyExisted bool) error {
	return s.transition(ctx, id,
		`UPDATE acquisitions
         SET status = ?, asset_name = ?, asset_type = ?, already_existed = ?, updated_at = ?
         WHERE id = ?`,
		StatusValidated, nullableString(assetName), nullableString(assetType), boolToInt(alreadyExisted))
}

// MarkRequested records that the import request was written, keeping the
// request id so a row can be correlated with bridge log lines.
func (s *Store) MarkRequested(ctx context.Context, id int64, sessionID, requestID string) error {
	return s.transition(ctx, id,
		`UPDATE acquisitions
         SET status = ?, session_id = ?, request_id = ?, updated_at = ?
         WHERE id = ?`,
		StatusRequested, nullableString(sessionID), nullableString(requestID))
}

// MarkImported records a consumed completion.
func (s *Store) MarkImported(ctx context.Context, id int64) error {
	return s.transition(ctx, id,
		`UPDATE acquisitions
         SET status = ?, error_message = NULL, updated_at = ?
         WHERE id = ?`,
		StatusImported)
}

// MarkFailed records a terminal failure with its cause.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	return s.transition(ctx, id,
		`UPDATE acquisitions
         SET status = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		StatusFailed, nullableString(message))
}

// transition runs an UPDATE whose final two placeholders are updated_at
// and id.
func (s *Store) transition(ctx context.Context, id int64, query string, args ...any) error {
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano), id)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("transition acquisition %d: %w", id, err)
	}
	return nil
}
