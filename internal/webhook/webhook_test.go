package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/slack-go/slack"
	"golang.org/x/oauth2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/oauth"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/render"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/store"
)

type fakePoster struct {
	channelID, threadTs string
	payload             render.Payload
	err                 error
}

func (f *fakePoster) PostToChannel(channelID, threadTs string, payload render.Payload) error {
	f.channelID, f.threadTs, f.payload = channelID, threadTs, payload
	return f.err
}

func testRouter(t *testing.T, sharedSecret string, poster NotifyPoster) (*httptest.Server, *oauth.Broker) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "tokens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cfg := oauth2.Config{
		ClientID: "client-id", ClientSecret: "client-secret",
		Endpoint: oauth2.Endpoint{TokenURL: "https://example.invalid/token", AuthURL: "https://example.invalid/auth"},
	}
	broker := oauth.New(cfg, "signing-secret", s)

	h := New(sharedSecret, poster, broker, nil)
	r := chi.NewRouter()
	h.Mount(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, broker
}

func signedState(secret, subject string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(subject))
	return subject + ":" + hex.EncodeToString(mac.Sum(nil))
}

func TestHandleAgentNotify_RejectsMissingSharedSecret(t *testing.T) {
	poster := &fakePoster{}
	srv, _ := testRouter(t, "super-secret", poster)

	resp, err := http.Post(srv.URL+"/api/agent-notify", "application/json", bytes.NewReader([]byte(`{"channel":"C1","text":"hi"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleAgentNotify_RejectsWrongSharedSecret(t *testing.T) {
	poster := &fakePoster{}
	srv, _ := testRouter(t, "super-secret", poster)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/agent-notify", bytes.NewReader([]byte(`{"channel":"C1","text":"hi"}`)))
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "wrong")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleAgentNotify_RejectsInvalidJSON(t *testing.T) {
	poster := &fakePoster{}
	srv, _ := testRouter(t, "super-secret", poster)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/agent-notify", bytes.NewReader([]byte(`not json`)))
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "super-secret")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleAgentNotify_RejectsMissingChannelOrText(t *testing.T) {
	poster := &fakePoster{}
	srv, _ := testRouter(t, "super-secret", poster)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/agent-notify", bytes.NewReader([]byte(`{"channel":"","text":""}`)))
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "super-secret")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleAgentNotify_PostsOnValidRequest(t *testing.T) {
	poster := &fakePoster{}
	srv, _ := testRouter(t, "super-secret", poster)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/agent-notify", bytes.NewReader([]byte(`{"channel":"C1","text":"hello","thread_ts":"123.456"}`)))
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "super-secret")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])

	assert.Equal(t, "C1", poster.channelID)
	assert.Equal(t, "123.456", poster.threadTs)
	assert.Equal(t, "hello", poster.payload.Text)
}

func TestHandleAgentNotify_PostsWithBlocksWhenProvided(t *testing.T) {
	poster := &fakePoster{}
	srv, _ := testRouter(t, "super-secret", poster)

	body := `{"channel":"C1","text":"hello","blocks":[{"type":"section","text":{"type":"mrkdwn","text":"hi there"}}]}`
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/agent-notify", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "super-secret")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, poster.payload.Blocks, 1)
	section, ok := poster.payload.Blocks[0].(*slack.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "hi there", section.Text.Text)
}

func TestHandleAgentNotify_RejectsInvalidBlocksJSON(t *testing.T) {
	poster := &fakePoster{}
	srv, _ := testRouter(t, "super-secret", poster)

	body := `{"channel":"C1","text":"hello","blocks":"not an array"}`
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/agent-notify", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "super-secret")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleOAuthCallback_RejectsMissingParams(t *testing.T) {
	srv, _ := testRouter(t, "super-secret", &fakePoster{})

	resp, err := http.Get(srv.URL + "/api/google/callback")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleOAuthCallback_RejectsTamperedState(t *testing.T) {
	srv, _ := testRouter(t, "super-secret", &fakePoster{})

	resp, err := http.Get(srv.URL + "/api/google/callback?code=abc&state=U1:deadbeef")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleOAuthCallback_InvokesOnConnectedOnSuccess(t *testing.T) {
	var tokenSrv *httptest.Server
	tokenSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at-1", "refresh_token": "rt-1", "token_type": "Bearer", "expires_in": 3600,
		})
	}))
	defer tokenSrv.Close()

	s, err := store.Open(filepath.Join(t.TempDir(), "tokens.db"))
	require.NoError(t, err)
	defer s.Close()

	cfg := oauth2.Config{
		ClientID: "client-id", ClientSecret: "client-secret",
		Endpoint: oauth2.Endpoint{TokenURL: tokenSrv.URL, AuthURL: "https://example.invalid/auth"},
	}
	broker := oauth.New(cfg, "signing-secret", s)

	var gotSubject string
	h := New("super-secret", &fakePoster{}, broker, func(subjectID string) { gotSubject = subjectID })
	r := chi.NewRouter()
	h.Mount(r)
	appSrv := httptest.NewServer(r)
	defer appSrv.Close()

	state := signedState("signing-secret", "U1")
	resp, err := http.Get(appSrv.URL + "/api/google/callback?code=auth-code&state=" + state)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "U1", gotSubject)
}
