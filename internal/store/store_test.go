package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTokens_UpsertThenGetRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertToken(ctx, TokenRecord{SubjectID: "U1", AccessToken: "a1", RefreshToken: "r1", ExpiryEpochMs: 1000, Scope: "calendar"}))

	got, err := s.GetToken(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.AccessToken)
	assert.Equal(t, "r1", got.RefreshToken)
}

func TestTokens_UpsertOverwritesExistingRecord(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertToken(ctx, TokenRecord{SubjectID: "U1", AccessToken: "a1", RefreshToken: "r1", ExpiryEpochMs: 1000}))
	require.NoError(t, s.UpsertToken(ctx, TokenRecord{SubjectID: "U1", AccessToken: "a2", RefreshToken: "r2", ExpiryEpochMs: 2000}))

	got, err := s.GetToken(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "a2", got.AccessToken)
	assert.Equal(t, int64(2000), got.ExpiryEpochMs)
}

func TestTokens_GetMissingReturnsErrNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetToken(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokens_DeleteIsUnconditional(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	assert.NoError(t, s.DeleteToken(ctx, "never-existed"))
}

func TestMeetings_IsProcessedReflectsAnyStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	processed, err := s.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, s.InsertMeeting(ctx, MeetingRecord{EventID: "evt-1", Title: "Sync", ProcessedAt: 1, Status: MeetingDismissed}))

	processed, err = s.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, processed, "isProcessed must be true regardless of terminal status")
}

func TestMeetings_UpdateStatusTransitionsPendingToApproved(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertMeeting(ctx, MeetingRecord{EventID: "evt-2", Title: "Planning", ProcessedAt: 1, Status: MeetingPending}))
	require.NoError(t, s.UpdateMeetingStatus(ctx, "evt-2", MeetingApproved, `["task-1"]`))

	rec, err := s.GetMeeting(ctx, "evt-2")
	require.NoError(t, err)
	assert.Equal(t, MeetingApproved, rec.Status)
	assert.Equal(t, `["task-1"]`, rec.TaskIDs)
}

func TestMeetings_InsertIsNoOpOnConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertMeeting(ctx, MeetingRecord{EventID: "evt-3", Title: "First", ProcessedAt: 1, Status: MeetingPending}))
	require.NoError(t, s.InsertMeeting(ctx, MeetingRecord{EventID: "evt-3", Title: "Second", ProcessedAt: 2, Status: MeetingDismissed}))

	rec, err := s.GetMeeting(ctx, "evt-3")
	require.NoError(t, err)
	assert.Equal(t, "First", rec.Title, "a conflicting insert must not overwrite the first row")
}

func TestMeetings_GetMissingReturnsErrNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetMeeting(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
