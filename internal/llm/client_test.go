package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReply_HasToolCalls(t *testing.T) {
	assert.False(t, (&Reply{Text: "done"}).HasToolCalls())
	assert.True(t, (&Reply{ToolCalls: []ToolCall{{ID: "1", Name: "list_events"}}}).HasToolCalls())
}

func TestEncodeBlocks_TextOnly(t *testing.T) {
	blocks := encodeBlocks(Message{Role: RoleUser, Text: "hello"})
	assert.Len(t, blocks, 1)
}

func TestEncodeBlocks_ToolResultOnly(t *testing.T) {
	blocks := encodeBlocks(Message{Role: RoleUser, ToolResults: []ToolResult{{ToolUseID: "t1", Content: "ok"}}})
	assert.Len(t, blocks, 1)
}

func TestEncodeBlocks_EmptyMessageProducesNoBlocks(t *testing.T) {
	blocks := encodeBlocks(Message{Role: RoleUser})
	assert.Empty(t, blocks)
}
