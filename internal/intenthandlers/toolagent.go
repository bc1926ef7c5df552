package intenthandlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/llm"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/logger"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/render"
)

// maxToolIterations is the hard cap on the calendar/drive micro-agent's
// tool-use loop (spec §4.7, §5).
const maxToolIterations = 5

// toolExecutor runs one named tool call against a real collaborator and
// returns its result as a string (success) or an error (mapped to an
// IsError tool result, per spec §4.7 step c).
type toolExecutor func(ctx context.Context, input json.RawMessage) (string, error)

const (
	calendarAgentPrompt = "You manage the user's Google Calendar. Use the provided tools to list, create, update, or delete events as the request requires, then reply with a short confirmation in plain text."
	driveAgentPrompt    = "You manage files in the user's Google Drive. Use the provided tools to list, search, read, or organize files as the request requires, then reply with a short confirmation in plain text."
)

// calendarTools is the ≤5-tool schema for the calendar micro-agent (spec
// §4.7: "Tool schema ≤ 5 tools (list/create/update/delete/read)").
func calendarTools() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{Name: "list_events", Description: "List calendar events in an RFC3339 [from, to] window.", InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"from": strSchema(), "to": strSchema()},
			"required":   []string{"from", "to"},
		}},
		{Name: "create_event", Description: "Create a calendar event with a title and an RFC3339 [start, end] window.", InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"title": strSchema(), "start": strSchema(), "end": strSchema()},
			"required":   []string{"title", "start", "end"},
		}},
		{Name: "update_event", Description: "Update an existing event's title and/or end time. event_id is required; title and end are applied only when non-empty.", InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"event_id": strSchema(), "title": strSchema(), "end": strSchema()},
			"required":   []string{"event_id"},
		}},
		{Name: "delete_event", Description: "Delete a calendar event by ID.", InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"event_id": strSchema()},
			"required":   []string{"event_id"},
		}},
	}
}

func driveTools() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{Name: "search_files", Description: "Search Drive files by name substring.", InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": strSchema()},
			"required":   []string{"query"},
		}},
		{Name: "create_file", Description: "Create a plain-text Drive file with a name and optional content.", InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"name": strSchema(), "content": strSchema()},
			"required":   []string{"name"},
		}},
		{Name: "update_file", Description: "Replace a Drive file's content by ID.", InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"file_id": strSchema(), "content": strSchema()},
			"required":   []string{"file_id", "content"},
		}},
		{Name: "read_file", Description: "Read a Drive file's raw content by ID.", InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"file_id": strSchema()},
			"required":   []string{"file_id"},
		}},
	}
}

func strSchema() map[string]any { return map[string]any{"type": "string"} }

type listEventsInput struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type createEventInput struct {
	Title string `json:"title"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type updateEventInput struct {
	EventID string `json:"event_id"`
	Title   string `json:"title"`
	End     string `json:"end"`
}

type deleteEventInput struct {
	EventID string `json:"event_id"`
}

func (d *Dispatcher) calendarExecutors(subjectID string) map[string]toolExecutor {
	return map[string]toolExecutor{
		"list_events": func(ctx context.Context, input json.RawMessage) (string, error) {
			var args listEventsInput
			if err := json.Unmarshal(input, &args); err != nil {
				return "", fmt.Errorf("invalid list_events arguments: %w", err)
			}
			from, err := time.Parse(time.RFC3339, args.From)
			if err != nil {
				return "", fmt.Errorf("invalid from: %w", err)
			}
			to, err := time.Parse(time.RFC3339, args.To)
			if err != nil {
				return "", fmt.Errorf("invalid to: %w", err)
			}
			tok, err := d.deps.OAuth.GetClient(ctx, subjectID)
			if err != nil {
				return "", err
			}
			events, err := d.deps.Calendar.ListEventsInWindow(ctx, tok, from, to)
			if err != nil {
				return "", err
			}
			b, err := json.Marshal(events)
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
		"create_event": func(ctx context.Context, input json.RawMessage) (string, error) {
			var args createEventInput
			if err := json.Unmarshal(input, &args); err != nil {
				return "", fmt.Errorf("invalid create_event arguments: %w", err)
			}
			start, err := time.Parse(time.RFC3339, args.Start)
			if err != nil {
				return "", fmt.Errorf("invalid start: %w", err)
			}
			end, err := time.Parse(time.RFC3339, args.End)
			if err != nil {
				return "", fmt.Errorf("invalid end: %w", err)
			}
			tok, err := d.deps.OAuth.GetClient(ctx, subjectID)
			if err != nil {
				return "", err
			}
			eventID, err := d.deps.Calendar.CreateEvent(ctx, tok, args.Title, start, end)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("created event id %s", eventID), nil
		},
		"update_event": func(ctx context.Context, input json.RawMessage) (string, error) {
			var args updateEventInput
			if err := json.Unmarshal(input, &args); err != nil {
				return "", fmt.Errorf("invalid update_event arguments: %w", err)
			}
			if args.EventID == "" {
				return "", fmt.Errorf("event_id is required")
			}
			var end time.Time
			if args.End != "" {
				var err error
				end, err = time.Parse(time.RFC3339, args.End)
				if err != nil {
					return "", fmt.Errorf("invalid end: %w", err)
				}
			}
			tok, err := d.deps.OAuth.GetClient(ctx, subjectID)
			if err != nil {
				return "", err
			}
			if err := d.deps.Calendar.UpdateEvent(ctx, tok, args.EventID, args.Title, end); err != nil {
				return "", err
			}
			return fmt.Sprintf("updated event %s", args.EventID), nil
		},
		"delete_event": func(ctx context.Context, input json.RawMessage) (string, error) {
			var args deleteEventInput
			if err := json.Unmarshal(input, &args); err != nil {
				return "", fmt.Errorf("invalid delete_event arguments: %w", err)
			}
			if args.EventID == "" {
				return "", fmt.Errorf("event_id is required")
			}
			tok, err := d.deps.OAuth.GetClient(ctx, subjectID)
			if err != nil {
				return "", err
			}
			if err := d.deps.Calendar.DeleteEvent(ctx, tok, args.EventID); err != nil {
				return "", err
			}
			return fmt.Sprintf("deleted event %s", args.EventID), nil
		},
	}
}

type searchFilesInput struct {
	Query string `json:"query"`
}

type createFileInput struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type updateFileInput struct {
	FileID  string `json:"file_id"`
	Content string `json:"content"`
}

type readFileInput struct {
	FileID string `json:"file_id"`
}

func (d *Dispatcher) driveExecutors(subjectID string) map[string]toolExecutor {
	return map[string]toolExecutor{
		"search_files": func(ctx context.Context, input json.RawMessage) (string, error) {
			var args searchFilesInput
			if err := json.Unmarshal(input, &args); err != nil {
				return "", fmt.Errorf("invalid search_files arguments: %w", err)
			}
			tok, err := d.deps.OAuth.GetClient(ctx, subjectID)
			if err != nil {
				return "", err
			}
			fileID, err := d.deps.Drive.FindTranscript(ctx, tok, args.Query)
			if err != nil {
				return "", err
			}
			if fileID == "" {
				return "no matching file found", nil
			}
			return fmt.Sprintf("found file id %s", fileID), nil
		},
		"create_file": func(ctx context.Context, input json.RawMessage) (string, error) {
			var args createFileInput
			if err := json.Unmarshal(input, &args); err != nil {
				return "", fmt.Errorf("invalid create_file arguments: %w", err)
			}
			if args.Name == "" {
				return "", fmt.Errorf("name is required")
			}
			tok, err := d.deps.OAuth.GetClient(ctx, subjectID)
			if err != nil {
				return "", err
			}
			fileID, err := d.deps.Drive.CreateFile(ctx, tok, args.Name, args.Content)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("created file id %s", fileID), nil
		},
		"update_file": func(ctx context.Context, input json.RawMessage) (string, error) {
			var args updateFileInput
			if err := json.Unmarshal(input, &args); err != nil {
				return "", fmt.Errorf("invalid update_file arguments: %w", err)
			}
			if args.FileID == "" {
				return "", fmt.Errorf("file_id is required")
			}
			tok, err := d.deps.OAuth.GetClient(ctx, subjectID)
			if err != nil {
				return "", err
			}
			if err := d.deps.Drive.UpdateFile(ctx, tok, args.FileID, args.Content); err != nil {
				return "", err
			}
			return fmt.Sprintf("updated file %s", args.FileID), nil
		},
		"read_file": func(ctx context.Context, input json.RawMessage) (string, error) {
			var args readFileInput
			if err := json.Unmarshal(input, &args); err != nil {
				return "", fmt.Errorf("invalid read_file arguments: %w", err)
			}
			if args.FileID == "" {
				return "", fmt.Errorf("file_id is required")
			}
			tok, err := d.deps.OAuth.GetClient(ctx, subjectID)
			if err != nil {
				return "", err
			}
			return d.deps.Drive.ReadFile(ctx, tok, args.FileID)
		},
	}
}

// handleToolAgent drives the bounded tool-use loop described in spec §4.7:
// up to maxToolIterations turns, executing any requested tool calls and
// feeding results back until the model replies with text only.
func (d *Dispatcher) handleToolAgent(ctx context.Context, ic IntentContext, kind string) Reply {
	if reply, ok := d.requireOAuth(ctx, ic.UserID); !ok {
		return reply
	}
	log := logger.For(fmt.Sprintf("intent-%s", kind))

	var (
		systemPrompt string
		tools        []llm.ToolDefinition
		executors    map[string]toolExecutor
	)
	switch kind {
	case "calendar":
		systemPrompt, tools, executors = calendarAgentPrompt, calendarTools(), d.calendarExecutors(ic.UserID)
	case "drive":
		systemPrompt, tools, executors = driveAgentPrompt, driveTools(), d.driveExecutors(ic.UserID)
	default:
		return Reply{Payload: render.ErrorBlocks(fmt.Sprintf("no tool agent for %q", kind))}
	}

	history := []llm.Message{{Role: llm.RoleUser, Text: ic.MessageText}}

	for i := 0; i < maxToolIterations; i++ {
		reply, err := d.deps.LLM.CompleteWithTools(ctx, systemPrompt, history, tools)
		if err != nil {
			log.Warn("tool-use turn failed", "kind", kind, "iteration", i, "err", err)
			return Reply{Payload: render.ErrorBlocks("The assistant hit an error: " + err.Error())}
		}
		if !reply.HasToolCalls() {
			return Reply{Payload: render.AgentResponseBlocks(kind, reply.Text)}
		}

		history = append(history, llm.Message{Role: llm.RoleAssistant, Text: reply.Text, ToolCalls: reply.ToolCalls})

		var results []llm.ToolResult
		for _, call := range reply.ToolCalls {
			exec, ok := executors[call.Name]
			if !ok {
				results = append(results, llm.ToolResult{ToolUseID: call.ID, Content: fmt.Sprintf("unknown tool %q", call.Name), IsError: true})
				continue
			}
			out, err := exec(ctx, call.Input)
			if err != nil {
				results = append(results, llm.ToolResult{ToolUseID: call.ID, Content: err.Error(), IsError: true})
				continue
			}
			results = append(results, llm.ToolResult{ToolUseID: call.ID, Content: out})
		}
		history = append(history, llm.Message{Role: llm.RoleUser, ToolResults: results})
	}

	return Reply{Payload: render.Payload{Text: fmt.Sprintf("I couldn't finish that %s request within the allotted steps.", kind)}}
}
