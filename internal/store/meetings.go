package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// MeetingStatus is the closed set of Meeting Record statuses (spec §3/§4.11:
// pending -> approved or pending -> dismissed, both terminal).
type MeetingStatus string

const (
	MeetingPending   MeetingStatus = "pending"
	MeetingApproved  MeetingStatus = "approved"
	MeetingDismissed MeetingStatus = "dismissed"
)

// MeetingRecord is the Meeting Record entity (spec §3).
type MeetingRecord struct {
	EventID     string
	Title       string
	ProcessedAt int64
	Status      MeetingStatus
	TaskIDs     string // JSON-encoded []string, empty if none yet
}

const insertMeetingSQL = `
INSERT INTO meetings (event_id, title, processed_at, status, task_ids)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (event_id) DO NOTHING`

// InsertMeeting inserts a new row. It is a no-op (not an error) if the
// event-id already has a row — callers must check IsProcessed first to
// decide whether to call this at all, since a silent no-op here would mask
// the idempotency invariant from spec §3 ("isProcessed is true iff any
// record exists, regardless of terminal status").
func (s *Store) InsertMeeting(ctx context.Context, rec MeetingRecord) error {
	if _, err := s.db.ExecContext(ctx, insertMeetingSQL, rec.EventID, rec.Title, rec.ProcessedAt, rec.Status, rec.TaskIDs); err != nil {
		return fmt.Errorf("store: inserting meeting %s: %w", rec.EventID, err)
	}
	return nil
}

// IsProcessed reports whether any record exists for eventID, regardless of
// status (spec §3 invariant; tested by spec §8 property 5).
func (s *Store) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM meetings WHERE event_id = ?`, eventID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: checking meeting %s: %w", eventID, err)
	}
	return true, nil
}

// UpdateMeetingStatus transitions a meeting's status (pending -> approved
// or pending -> dismissed, both terminal per spec §4.11) and optionally
// records the created task ids.
func (s *Store) UpdateMeetingStatus(ctx context.Context, eventID string, status MeetingStatus, taskIDs string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE meetings SET status = ?, task_ids = ? WHERE event_id = ?`,
		status, taskIDs, eventID)
	if err != nil {
		return fmt.Errorf("store: updating meeting %s: %w", eventID, err)
	}
	return nil
}

// GetMeeting returns ErrNotFound if no record exists for eventID.
func (s *Store) GetMeeting(ctx context.Context, eventID string) (*MeetingRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT event_id, title, processed_at, status, task_ids FROM meetings WHERE event_id = ?`, eventID)

	var rec MeetingRecord
	var taskIDs sql.NullString
	if err := row.Scan(&rec.EventID, &rec.Title, &rec.ProcessedAt, &rec.Status, &taskIDs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: getting meeting %s: %w", eventID, err)
	}
	rec.TaskIDs = taskIDs.String
	return &rec, nil
}
