// Package oauth implements the OAuth Broker (C5): an authorization-code
// flow for the calendar+drive external service, binding the callback to its
// originating subject with an HMAC-signed state parameter instead of
// server-side session state.
package oauth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/gwerrors"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/logger"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/store"
)

// Broker ties an oauth2.Config to the token store and the signing secret
// that authenticates the state parameter. Constructed once in cmd/gateway
// and injected into slackgw/intenthandlers — no package-level singleton.
type Broker struct {
	cfg           oauth2.Config
	signingSecret string
	tokens        *store.Store
}

func New(cfg oauth2.Config, signingSecret string, tokens *store.Store) *Broker {
	return &Broker{cfg: cfg, signingSecret: signingSecret, tokens: tokens}
}

// signState produces "<subject-id>:<hex-hmac-sha256(signing-secret, subject-id)>"
// (spec §4.5).
func (b *Broker) signState(subjectID string) string {
	mac := hmac.New(sha256.New, []byte(b.signingSecret))
	mac.Write([]byte(subjectID))
	return subjectID + ":" + hex.EncodeToString(mac.Sum(nil))
}

// AuthURL returns the URL to send subjectID's browser to, with its signed
// state parameter attached.
func (b *Broker) AuthURL(subjectID string) string {
	return b.cfg.AuthCodeURL(b.signState(subjectID), oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// HandleCallback validates state, exchanges code for tokens, and upserts
// the token record. Spec §4.5 / §8 property 6.
func (b *Broker) HandleCallback(ctx context.Context, code, state string) (subjectID string, err error) {
	log := logger.For("oauth-broker")

	parts := strings.SplitN(state, ":", 2)
	if len(parts) != 2 {
		return "", gwerrors.ErrInvalidState
	}
	subjectID, mac := parts[0], parts[1]

	expected := b.signState(subjectID)
	expectedMAC := expected[strings.IndexByte(expected, ':')+1:]
	if subtle.ConstantTimeCompare([]byte(mac), []byte(expectedMAC)) != 1 {
		log.Warn("oauth state hmac mismatch", "subject", subjectID)
		return "", gwerrors.ErrInvalidState
	}

	tok, err := b.cfg.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("oauth: exchanging code: %w", err)
	}
	refreshToken := tok.RefreshToken
	if tok.AccessToken == "" || refreshToken == "" {
		return "", gwerrors.ErrMissingTokens
	}

	rec := store.TokenRecord{
		SubjectID:     subjectID,
		AccessToken:   tok.AccessToken,
		RefreshToken:  refreshToken,
		ExpiryEpochMs: tok.Expiry.UnixMilli(),
		Scope:         strings.Join(b.cfg.Scopes, " "),
	}
	if err := b.tokens.UpsertToken(ctx, rec); err != nil {
		return "", fmt.Errorf("oauth: persisting token: %w", err)
	}

	log.Info("oauth connected", "subject", subjectID)
	return subjectID, nil
}

// IsConnected reports whether subjectID has a stored token record.
func (b *Broker) IsConnected(ctx context.Context, subjectID string) bool {
	_, err := b.tokens.GetToken(ctx, subjectID)
	return err == nil
}

// GetClient returns an *http.Client pre-authenticated for subjectID,
// refreshing the access token first if it has expired (spec §4.5, §8
// property 7).
func (b *Broker) GetClient(ctx context.Context, subjectID string) (*oauth2.Token, error) {
	rec, err := b.tokens.GetToken(ctx, subjectID)
	if err != nil {
		return nil, gwerrors.ErrNotConnected
	}

	tok := &oauth2.Token{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		Expiry:       time.UnixMilli(rec.ExpiryEpochMs),
	}

	if tok.Expiry.Before(time.Now()) {
		src := b.cfg.TokenSource(ctx, tok)
		refreshed, err := src.Token()
		if err != nil {
			return nil, fmt.Errorf("oauth: refreshing token for %s: %w", subjectID, err)
		}
		rec.AccessToken = refreshed.AccessToken
		rec.ExpiryEpochMs = refreshed.Expiry.UnixMilli()
		// refresh-token preserved per spec §4.5
		if err := b.tokens.UpsertToken(ctx, *rec); err != nil {
			return nil, fmt.Errorf("oauth: persisting refreshed token for %s: %w", subjectID, err)
		}
		logger.For("oauth-broker").Info("refreshed expired token", "subject", subjectID)
		return refreshed, nil
	}

	return tok, nil
}

// Disconnect best-effort revokes the access token (swallowing revocation
// errors — tokens may already be expired) then deletes the record
// unconditionally (spec §4.5).
func (b *Broker) Disconnect(ctx context.Context, subjectID string) error {
	log := logger.For("oauth-broker")
	if rec, err := b.tokens.GetToken(ctx, subjectID); err == nil {
		if err := revoke(ctx, rec.AccessToken); err != nil {
			log.Warn("token revocation failed, proceeding with disconnect", "subject", subjectID, "err", err)
		}
	}
	if err := b.tokens.DeleteToken(ctx, subjectID); err != nil {
		return fmt.Errorf("oauth: deleting token for %s: %w", subjectID, err)
	}
	log.Info("oauth disconnected", "subject", subjectID)
	return nil
}
