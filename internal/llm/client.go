// Package llm wraps the Anthropic Messages API behind the narrow contract
// the gateway's intent router, extractors, and tool-use micro-agents
// actually need: a message list in, a reply (text and/or tool calls) out.
// Per spec §1 the LLM provider itself is an external collaborator — only
// this request/response contract is gateway-owned.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Role is the closed set of conversation roles the client accepts.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResult is fed back to the model as the outcome of executing a
// ToolCall, keyed by its ID.
type ToolResult struct {
	ToolUseID string
	Content   string
	IsError   bool
}

// Message is one turn of the conversation. A user turn may carry either
// Text or ToolResults (never both); an assistant turn produced by Reply may
// carry Text, ToolCalls, or both.
type Message struct {
	Role        Role
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// ToolDefinition describes one tool the model may call. InputSchema is a
// JSON Schema object, matching the shape the Anthropic API expects.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Reply is what the model returned for one turn.
type Reply struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason string
}

// HasToolCalls reports whether the model asked to invoke at least one tool
// instead of (or alongside) replying with text — the signal the bounded
// tool-use loop in intenthandlers uses to decide whether to keep iterating.
func (r *Reply) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// Client wraps a single Anthropic API key/model pair. It is constructed
// once in cmd/gateway and threaded through every caller's constructor — no
// package-level singleton, per the REDESIGN FLAG in SPEC_FULL.md §5.
type Client struct {
	messages  *sdk.MessageService
	model     string
	maxTokens int64
}

// NewClient builds a Client from an API key and model identifier (e.g.
// "claude-sonnet-4-5").
func NewClient(apiKey, model string) *Client {
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return &Client{messages: &c.Messages, model: model, maxTokens: 4096}
}

// Complete issues a single non-tool-use turn: systemPrompt plus one user
// message, expecting a text reply. Used by the intent router's Tier 2 LLM
// call and the task/meeting extractor prompts.
func (c *Client) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	reply, err := c.send(ctx, systemPrompt, []Message{{Role: RoleUser, Text: userText}}, nil)
	if err != nil {
		return "", err
	}
	return reply.Text, nil
}

// CompleteWithTools drives one turn of a tool-use conversation, returning
// either a text reply (the model is done) or one or more ToolCalls the
// caller must execute and feed back as ToolResults on the next turn. Used
// by the calendar/drive micro-agent's bounded tool loop (spec §4.7).
func (c *Client) CompleteWithTools(ctx context.Context, systemPrompt string, history []Message, tools []ToolDefinition) (*Reply, error) {
	return c.send(ctx, systemPrompt, history, tools)
}

func (c *Client) send(ctx context.Context, systemPrompt string, history []Message, toolDefs []ToolDefinition) (*Reply, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
	}
	if systemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: systemPrompt}}
	}

	msgs := make([]sdk.MessageParam, 0, len(history))
	for _, m := range history {
		blocks := encodeBlocks(m)
		if len(blocks) == 0 {
			continue
		}
		switch m.Role {
		case RoleUser:
			msgs = append(msgs, sdk.NewUserMessage(blocks...))
		case RoleAssistant:
			msgs = append(msgs, sdk.NewAssistantMessage(blocks...))
		default:
			return nil, fmt.Errorf("llm: unsupported role %q", m.Role)
		}
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("llm: at least one message is required")
	}
	params.Messages = msgs

	if len(toolDefs) > 0 {
		params.Tools = make([]sdk.ToolUnionParam, 0, len(toolDefs))
		for _, t := range toolDefs {
			tool := sdk.ToolUnionParamOfTool(sdk.ToolInputSchemaParam{ExtraFields: t.InputSchema}, t.Name)
			if tool.OfTool != nil {
				tool.OfTool.Description = sdk.String(t.Description)
			}
			params.Tools = append(params.Tools, tool)
		}
	}

	msg, err := c.messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("llm: messages.new: %w", err)
	}

	reply := &Reply{StopReason: string(msg.StopReason)}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			reply.Text += block.Text
		case "tool_use":
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: json.RawMessage(block.Input),
			})
		}
	}
	return reply, nil
}

func encodeBlocks(m Message) []sdk.ContentBlockParamUnion {
	var blocks []sdk.ContentBlockParamUnion
	if m.Text != "" {
		blocks = append(blocks, sdk.NewTextBlock(m.Text))
	}
	for _, tc := range m.ToolCalls {
		var input any
		_ = json.Unmarshal(tc.Input, &input)
		blocks = append(blocks, sdk.NewToolUseBlock(tc.ID, input, tc.Name))
	}
	for _, tr := range m.ToolResults {
		blocks = append(blocks, sdk.NewToolResultBlock(tr.ToolUseID, tr.Content, tr.IsError))
	}
	return blocks
}
