package oauth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/gwerrors"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/store"
)

func testBroker(t *testing.T, tokenURL string) (*Broker, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "tokens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cfg := oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthURL: "https://example.invalid/auth"},
		Scopes:       []string{"calendar", "drive"},
	}
	return New(cfg, "signing-secret", s), s
}

func signedState(secret, subject string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(subject))
	return subject + ":" + hex.EncodeToString(mac.Sum(nil))
}

func TestHandleCallback_RejectsTamperedState(t *testing.T) {
	b, _ := testBroker(t, "https://example.invalid/token")
	_, err := b.HandleCallback(context.Background(), "some-code", "U1:deadbeef")
	assert.ErrorIs(t, err, gwerrors.ErrInvalidState)
}

func TestHandleCallback_RejectsMalformedState(t *testing.T) {
	b, _ := testBroker(t, "https://example.invalid/token")
	_, err := b.HandleCallback(context.Background(), "some-code", "no-colon-here")
	assert.ErrorIs(t, err, gwerrors.ErrInvalidState)
}

func TestHandleCallback_UpsertsTokenOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at-1", "refresh_token": "rt-1", "token_type": "Bearer", "expires_in": 3600,
		})
	}))
	defer srv.Close()

	b, s := testBroker(t, srv.URL)
	state := signedState("signing-secret", "U1")

	subjectID, err := b.HandleCallback(context.Background(), "auth-code", state)
	require.NoError(t, err)
	assert.Equal(t, "U1", subjectID)

	rec, err := s.GetToken(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, "at-1", rec.AccessToken)
	assert.Equal(t, "rt-1", rec.RefreshToken)
}

func TestHandleCallback_FailsWhenRefreshTokenMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at-1", "token_type": "Bearer", "expires_in": 3600})
	}))
	defer srv.Close()

	b, _ := testBroker(t, srv.URL)
	state := signedState("signing-secret", "U2")

	_, err := b.HandleCallback(context.Background(), "auth-code", state)
	assert.ErrorIs(t, err, gwerrors.ErrMissingTokens)
}

func TestIsConnected_FalseWithNoRecord(t *testing.T) {
	b, _ := testBroker(t, "https://example.invalid/token")
	assert.False(t, b.IsConnected(context.Background(), "ghost"))
}

func TestGetClient_ReturnsNotConnectedWhenNoRecord(t *testing.T) {
	b, _ := testBroker(t, "https://example.invalid/token")
	_, err := b.GetClient(context.Background(), "ghost")
	assert.ErrorIs(t, err, gwerrors.ErrNotConnected)
}

func TestGetClient_RefreshesExpiredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "refreshed-at", "token_type": "Bearer", "expires_in": 3600,
		})
	}))
	defer srv.Close()

	b, s := testBroker(t, srv.URL)
	require.NoError(t, s.UpsertToken(context.Background(), store.TokenRecord{
		SubjectID: "U3", AccessToken: "stale-at", RefreshToken: "rt-1",
		ExpiryEpochMs: time.Now().Add(-time.Hour).UnixMilli(),
	}))

	tok, err := b.GetClient(context.Background(), "U3")
	require.NoError(t, err)
	assert.Equal(t, "refreshed-at", tok.AccessToken)

	rec, err := s.GetToken(context.Background(), "U3")
	require.NoError(t, err)
	assert.Equal(t, "rt-1", rec.RefreshToken, "refresh token must be preserved across a refresh")
}

func TestDisconnect_DeletesRecordEvenWhenRevokeFails(t *testing.T) {
	b, s := testBroker(t, "https://example.invalid/token")
	require.NoError(t, s.UpsertToken(context.Background(), store.TokenRecord{
		SubjectID: "U4", AccessToken: "at", RefreshToken: "rt", ExpiryEpochMs: time.Now().Add(time.Hour).UnixMilli(),
	}))

	require.NoError(t, b.Disconnect(context.Background(), "U4"))
	assert.False(t, b.IsConnected(context.Background(), "U4"))
}
