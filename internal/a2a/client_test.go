package a2a

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage_OmitsConfigurationWhenContextIDEmpty(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Response{JSONRPC: "2.0", ID: "1", Result: &Task{ID: "t1", Status: Status{State: TaskStateCompleted}}})
	}))
	defer srv.Close()

	c := NewClient("")
	resp := c.SendMessage(context.Background(), srv.URL, "hello", "")
	require.Nil(t, resp.Error)

	params := captured["params"].(map[string]any)
	_, hasConfig := params["configuration"]
	assert.False(t, hasConfig, "configuration key must be omitted entirely for a new conversation")
}

func TestSendMessage_SetsContextIDWhenPresent(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Response{JSONRPC: "2.0", ID: "1", Result: &Task{ID: "t1", Status: Status{State: TaskStateWorking}}})
	}))
	defer srv.Close()

	c := NewClient("")
	resp := c.SendMessage(context.Background(), srv.URL, "hello again", "ctx-42")
	require.Nil(t, resp.Error)

	params := captured["params"].(map[string]any)
	config := params["configuration"].(map[string]any)
	assert.Equal(t, "ctx-42", config["context_id"])
}

func TestSendMessage_TransportFailureProducesSyntheticError(t *testing.T) {
	c := NewClient("")
	resp := c.SendMessage(context.Background(), "http://127.0.0.1:0", "hello", "")

	require.NotNil(t, resp.Error)
	assert.Equal(t, TransportErrorCode, resp.Error.Code)
	assert.Nil(t, resp.Result)
}

func TestSendMessage_SharedKeySentAsHeader(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Response{JSONRPC: "2.0", ID: "1", Result: &Task{ID: "t1", Status: Status{State: TaskStateCompleted}}})
	}))
	defer srv.Close()

	c := NewClient("secret-123")
	c.SendMessage(context.Background(), srv.URL, "hi", "")
	assert.Equal(t, "secret-123", gotKey)
}

func TestExtractText_PrefersTextPart(t *testing.T) {
	task := &Task{
		ID:     "t1",
		Status: Status{State: TaskStateCompleted, Message: &Message{Parts: []Part{{Kind: "text", Text: "all done"}}}},
	}
	assert.Equal(t, "all done", ExtractText(task))
}

func TestExtractText_FallsBackToStateWhenNoTextPart(t *testing.T) {
	task := &Task{ID: "t9", Status: Status{State: TaskStateWorking}}
	assert.Equal(t, "[Agent task t9 is working]", ExtractText(task))
}

func TestExtractText_AcceptsLegacyTypeDiscriminator(t *testing.T) {
	task := &Task{
		ID:     "t2",
		Status: Status{State: TaskStateCompleted, Message: &Message{Parts: []Part{{Type: "text", Text: "legacy shape"}}}},
	}
	assert.Equal(t, "legacy shape", ExtractText(task))
}
