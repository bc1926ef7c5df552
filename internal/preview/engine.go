// Package preview implements the Interactive Preview Engine (C8): render a
// preview, persist its payload in the message's metadata, and later update
// the same message in place once the user acts on it. The engine never
// reads back blocks to recover state — metadata is the only source of
// truth for a button click or modal submission (spec §4.8).
//
// Split across three files, mirroring the bridge-bot's per-concern layout:
//   - engine.go — the struct, post/update plumbing, metadata decoding
//   - task.go — the task-from-conversation preview and its modal
//   - meeting.go — the meeting-notes preview and its modal
package preview

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/a2a"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/render"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/store"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/workspace"
)

// Slack event-type tags for message metadata (spec §4.8's "metadata field
// of shape {event_type, event_payload}").
const (
	eventTypeTaskPreview    = "task_preview"
	eventTypeMeetingPreview = "meeting_preview"
)

// Modal callback ids.
const (
	viewTaskEditSubmit    = "create_task_submit"
	viewMeetingEditSubmit = "meeting_edit_submit"
)

// Directory resolves a Slack user id to a display name for action
// attribution ("Cancelled by Alice"). Declared locally so this package
// doesn't pull in all of internal/workspace for one method.
type Directory interface {
	Name(ctx context.Context, userID string) string
}

// Deps bundles the engine's collaborators, built once in cmd/gateway.
type Deps struct {
	API             *slack.Client
	A2A             *a2a.Client
	ProductOwnerURL string
	Meetings        *store.Store
	Monday          *workspace.MondayClient
	Directory       Directory
	NotifyChannelID string
}

// Engine posts and resolves the two proactive preview flows (spec §4.8).
type Engine struct {
	api             *slack.Client
	a2aClient       *a2a.Client
	productOwnerURL string
	meetings        *store.Store
	monday          *workspace.MondayClient
	directory       Directory
	notifyChannelID string
}

func New(deps Deps) *Engine {
	return &Engine{
		api:             deps.API,
		a2aClient:       deps.A2A,
		productOwnerURL: deps.ProductOwnerURL,
		meetings:        deps.Meetings,
		monday:          deps.Monday,
		directory:       deps.Directory,
		notifyChannelID: deps.NotifyChannelID,
	}
}

// HandleBlockAction dispatches one of the five preview action buttons
// (spec §4.8, button resolution).
func (e *Engine) HandleBlockAction(ctx context.Context, callback *slack.InteractionCallback) error {
	if len(callback.ActionCallback.BlockActions) == 0 {
		return nil
	}
	action := callback.ActionCallback.BlockActions[0]
	switch action.ActionID {
	case render.ActionCreateTask:
		return e.resolveTaskCreate(ctx, callback)
	case render.ActionEditTask:
		return e.openTaskEditModal(ctx, callback)
	case render.ActionCancelTask:
		return e.resolveTaskCancel(ctx, callback)
	case render.ActionMeetingApprove:
		return e.openMeetingEditModal(ctx, callback)
	case render.ActionMeetingDismiss:
		return e.resolveMeetingDismiss(ctx, callback)
	default:
		return fmt.Errorf("preview: unhandled action %q", action.ActionID)
	}
}

// HandleViewSubmission dispatches one of the two modal submit callbacks
// (spec §4.8).
func (e *Engine) HandleViewSubmission(ctx context.Context, callback *slack.InteractionCallback) error {
	switch callback.View.CallbackID {
	case viewTaskEditSubmit:
		return e.submitTaskEdit(ctx, callback)
	case viewMeetingEditSubmit:
		return e.submitMeetingEdit(ctx, callback)
	default:
		return fmt.Errorf("preview: unhandled view %q", callback.View.CallbackID)
	}
}

// post renders payload, attaches event-type-tagged metadata, and posts to
// channelID (in threadTs if non-empty).
func (e *Engine) post(ctx context.Context, channelID, threadTs, eventType string, payload render.Payload, metadata any) error {
	fields, err := toFields(metadata)
	if err != nil {
		return fmt.Errorf("preview: encoding metadata: %w", err)
	}
	opts := []slack.MsgOption{
		slack.MsgOptionBlocks(payload.Blocks...),
		slack.MsgOptionText(payload.Text, false),
		slack.MsgOptionMetadata(slack.SlackMetadata{EventType: eventType, EventPayload: fields}),
	}
	if threadTs != "" {
		opts = append(opts, slack.MsgOptionTS(threadTs))
	}
	_, _, err = e.api.PostMessageContext(ctx, channelID, opts...)
	return err
}

// updateInPlace replaces a previously posted preview's blocks (spec §4.8:
// "update the message in place").
func (e *Engine) updateInPlace(ctx context.Context, channelID, ts string, payload render.Payload) error {
	_, _, _, err := e.api.UpdateMessageContext(ctx, channelID, ts,
		slack.MsgOptionBlocks(payload.Blocks...),
		slack.MsgOptionText(payload.Text, false),
	)
	return err
}

func toFields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// decodeMetadata re-decodes a posted message's event_payload into dst.
func decodeMetadata(callback *slack.InteractionCallback, dst any) error {
	raw, err := json.Marshal(callback.Message.Metadata.EventPayload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// blockValue reads one form field's value out of a view submission's
// state, preferring a selected option's value over free text.
func blockValue(state *slack.ViewState, blockID, actionID string) string {
	if state == nil {
		return ""
	}
	block, ok := state.Values[blockID]
	if !ok {
		return ""
	}
	action, ok := block[actionID]
	if !ok {
		return ""
	}
	if action.SelectedOption.Value != "" {
		return action.SelectedOption.Value
	}
	return action.Value
}
