package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_GetMissingReturnsNil(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.Get("thread-1"))
}

func TestStore_SetThenGetRoundTrips(t *testing.T) {
	s := NewStore()
	intent := "agent-chat"
	s.Set("thread-1", Session{ContextID: "ctx-1", AgentKey: "product-owner", Intent: &intent})

	got := s.Get("thread-1")
	if assert.NotNil(t, got) {
		assert.Equal(t, "ctx-1", got.ContextID)
		assert.Equal(t, AgentKey("product-owner"), got.AgentKey)
		assert.Equal(t, "agent-chat", *got.Intent)
	}
}

func TestStore_GetReturnsACopyNotALiveReference(t *testing.T) {
	s := NewStore()
	s.Set("thread-1", Session{ContextID: "ctx-1", AgentKey: "developer"})

	got := s.Get("thread-1")
	got.ContextID = "mutated"

	fresh := s.Get("thread-1")
	assert.Equal(t, "ctx-1", fresh.ContextID)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.Set("thread-1", Session{ContextID: "ctx-1"})
	s.Clear("thread-1")
	assert.Nil(t, s.Get("thread-1"))
}
