package intenthandlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/a2a"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/config"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/intent"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/oauth"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/store"
)

func testOAuthBroker(t *testing.T) (*oauth.Broker, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "tokens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	cfg := oauth2.Config{
		ClientID: "client-id", ClientSecret: "client-secret",
		Endpoint: oauth2.Endpoint{TokenURL: "https://example.invalid/token", AuthURL: "https://example.invalid/auth"},
	}
	return oauth.New(cfg, "signing-secret", s), s
}

// connectSubject upserts a live (non-expired) token record for subjectID
// directly into the store backing broker, short-circuiting the full
// authorization-code exchange (already covered by internal/oauth's own
// tests) since here we only need requireOAuth to see a connected subject.
func connectSubject(t *testing.T, s *store.Store, subjectID string) {
	t.Helper()
	require.NoError(t, s.UpsertToken(context.Background(), store.TokenRecord{
		SubjectID:     subjectID,
		AccessToken:   "at-1",
		RefreshToken:  "rt-1",
		ExpiryEpochMs: time.Now().Add(time.Hour).UnixMilli(),
	}))
}

func TestDispatch_UnknownIntentReturnsError(t *testing.T) {
	d := NewDispatcher(Deps{})
	reply := d.Dispatch(context.Background(), IntentContext{Session: &intent.Result{Intent: "bogus"}})
	assert.Contains(t, reply.Payload.Text, "bogus")
}

func TestComposeChatPrompt_TruncatesHistoryToLast15(t *testing.T) {
	history := make([]ChatMessage, 20)
	for i := range history {
		history[i] = ChatMessage{UserID: "U1", Text: "msg"}
	}
	history[19].Text = "the most recent one"
	prompt := composeChatPrompt(history, "what's up")

	assert.Contains(t, prompt, "the most recent one")
	assert.Contains(t, prompt, "User request: what's up")
	// the 5th-from-last-dropped message would only appear if truncation failed;
	// instead assert the total line count matches exactly 15 history bullets.
	assert.Equal(t, 15, countOccurrences(prompt, "- msg"))
}

func TestComposeChatPrompt_NoTruncationUnderLimit(t *testing.T) {
	history := []ChatMessage{{UserID: "U1", Text: "hi"}, {UserID: "U2", Text: "there"}}
	prompt := composeChatPrompt(history, "go on")
	assert.Contains(t, prompt, "- hi")
	assert.Contains(t, prompt, "- there")
}

func TestComposeChatPrompt_EmptyHistoryOmitsContextHeader(t *testing.T) {
	prompt := composeChatPrompt(nil, "hello")
	assert.NotContains(t, prompt, "Recent Slack channel messages")
	assert.Equal(t, "User request: hello", prompt)
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}

func TestHandleBoardStatus_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a2a.Response{
			JSONRPC: "2.0", ID: "1",
			Result: &a2a.Task{ID: "t1", Status: a2a.Status{State: a2a.TaskStateCompleted, Message: &a2a.Message{Parts: []a2a.Part{{Kind: "text", Text: "all green"}}}}},
		})
	}))
	defer srv.Close()

	d := NewDispatcher(Deps{
		A2A:       a2a.NewClient(""),
		AgentURLs: map[config.AgentKey]string{config.AgentScrumMaster: srv.URL},
	})

	reply := d.handleBoardStatus(context.Background(), IntentContext{})
	assert.Contains(t, reply.Payload.Text, "all green")
}

func TestHandleBoardStatus_TransportFailureWarns(t *testing.T) {
	d := NewDispatcher(Deps{
		A2A:       a2a.NewClient(""),
		AgentURLs: map[config.AgentKey]string{config.AgentScrumMaster: "http://127.0.0.1:0"},
	})

	reply := d.handleBoardStatus(context.Background(), IntentContext{})
	assert.Contains(t, reply.Payload.Text, "Could not reach")
}

func TestHandleBoardStatus_RPCErrorRendersErrorBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a2a.Response{JSONRPC: "2.0", ID: "1", Error: &a2a.RPCError{Code: -1, Message: "board not found"}})
	}))
	defer srv.Close()

	d := NewDispatcher(Deps{
		A2A:       a2a.NewClient(""),
		AgentURLs: map[config.AgentKey]string{config.AgentScrumMaster: srv.URL},
	})

	reply := d.handleBoardStatus(context.Background(), IntentContext{})
	assert.Contains(t, reply.Payload.Text, "board not found")
}

func TestHandleAgentChat_PropagatesNewContextID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a2a.Response{
			JSONRPC: "2.0", ID: "1",
			Result: &a2a.Task{ID: "t1", ContextID: "ctx-new", Status: a2a.Status{State: a2a.TaskStateCompleted, Message: &a2a.Message{Parts: []a2a.Part{{Kind: "text", Text: "sure thing"}}}}},
		})
	}))
	defer srv.Close()

	d := NewDispatcher(Deps{
		A2A:       a2a.NewClient(""),
		AgentURLs: map[config.AgentKey]string{config.AgentProductOwner: srv.URL},
	})

	reply := d.handleAgentChat(context.Background(), IntentContext{
		Session: &intent.Result{Intent: intent.IntentAgentChat, AgentKey: config.AgentProductOwner},
	})
	assert.Equal(t, "ctx-new", reply.ContextID)
	assert.Contains(t, reply.Payload.Text, "sure thing")
}

func TestHandleAgentChat_KeepsIncomingContextIDWhenAgentOmitsOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a2a.Response{
			JSONRPC: "2.0", ID: "1",
			Result: &a2a.Task{ID: "t1", Status: a2a.Status{State: a2a.TaskStateCompleted, Message: &a2a.Message{Parts: []a2a.Part{{Kind: "text", Text: "ok"}}}}},
		})
	}))
	defer srv.Close()

	d := NewDispatcher(Deps{
		A2A:       a2a.NewClient(""),
		AgentURLs: map[config.AgentKey]string{config.AgentProductOwner: srv.URL},
	})

	reply := d.handleAgentChat(context.Background(), IntentContext{
		ContextID: "ctx-existing",
		Session:   &intent.Result{Intent: intent.IntentAgentChat, AgentKey: config.AgentProductOwner},
	})
	assert.Equal(t, "ctx-existing", reply.ContextID)
}

func TestRequireOAuth_ConnectedReturnsOkTrue(t *testing.T) {
	broker, s := testOAuthBroker(t)
	connectSubject(t, s, "U1")

	d := NewDispatcher(Deps{OAuth: broker})
	_, ok := d.requireOAuth(context.Background(), "U1")
	assert.True(t, ok)
}

func TestRequireOAuth_NotConnectedReturnsConnectBlocks(t *testing.T) {
	broker, _ := testOAuthBroker(t)
	d := NewDispatcher(Deps{
		OAuth:           broker,
		OAuthAuthURLFor: func(subjectID string) string { return "https://example.invalid/auth?subject=" + subjectID },
	})

	reply, ok := d.requireOAuth(context.Background(), "ghost")
	assert.False(t, ok)
	assert.Contains(t, reply.Payload.Text, "https://example.invalid/auth?subject=ghost")
}
