package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// TokenRecord is the OAuth Token Record entity (spec §3). Invariant: if a
// record exists, RefreshToken is non-empty — enforced by UpsertToken's
// caller (internal/oauth), not by the store itself.
type TokenRecord struct {
	SubjectID      string
	AccessToken    string
	RefreshToken   string
	ExpiryEpochMs  int64
	Scope          string
}

const upsertTokenSQL = `
INSERT INTO oauth_tokens (subject_id, access_token, refresh_token, expiry_epoch_ms, scope)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (subject_id) DO UPDATE SET
    access_token    = excluded.access_token,
    refresh_token   = excluded.refresh_token,
    expiry_epoch_ms = excluded.expiry_epoch_ms,
    scope           = excluded.scope`

// UpsertToken replaces all fields for the record's subject (spec §4.4:
// "upsert replaces all fields").
func (s *Store) UpsertToken(ctx context.Context, rec TokenRecord) error {
	_, err := s.db.ExecContext(ctx, upsertTokenSQL, rec.SubjectID, rec.AccessToken, rec.RefreshToken, rec.ExpiryEpochMs, rec.Scope)
	if err != nil {
		return fmt.Errorf("store: upserting token for %s: %w", rec.SubjectID, err)
	}
	return nil
}

// GetToken returns ErrNotFound if no record exists for subjectID.
func (s *Store) GetToken(ctx context.Context, subjectID string) (*TokenRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT subject_id, access_token, refresh_token, expiry_epoch_ms, scope FROM oauth_tokens WHERE subject_id = ?`,
		subjectID)

	var rec TokenRecord
	if err := row.Scan(&rec.SubjectID, &rec.AccessToken, &rec.RefreshToken, &rec.ExpiryEpochMs, &rec.Scope); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: getting token for %s: %w", subjectID, err)
	}
	return &rec, nil
}

// DeleteToken removes the record for subjectID unconditionally — it is not
// an error if no record existed (spec §4.5 disconnect: "delete the record
// unconditionally").
func (s *Store) DeleteToken(ctx context.Context, subjectID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM oauth_tokens WHERE subject_id = ?`, subjectID); err != nil {
		return fmt.Errorf("store: deleting token for %s: %w", subjectID, err)
	}
	return nil
}
