// Package intenthandlers implements the Intent Handlers (C7): one handler
// per member of the closed intent set, each composing history fetch,
// context enrichment, a downstream call, and rendering (spec §4.7).
package intenthandlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/a2a"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/config"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/domain"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/intent"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/llm"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/logger"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/oauth"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/render"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/store"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/workspace"
)

// ChatMessage is one prior message in the enclosing channel, used to build
// the agent-chat and create-task context windows.
type ChatMessage struct {
	UserID string
	Text   string
}

// IntentContext is what every handler receives (spec §4.7).
type IntentContext struct {
	ThreadTs    string
	MessageText string
	ChannelID   string
	UserID      string
	History     []ChatMessage // non-bot messages, chronological order

	Session *intent.Result // resolved intent + agent key for this dispatch
	ContextID string       // "" for a brand-new thread-session
}

// Reply is what a handler hands back to the Slack transport layer for
// posting/updating the thread.
type Reply struct {
	Payload   render.Payload
	ContextID string // non-empty when the handler established/continued an A2A context

	// TaskPreview is set by the create-task handler; the Slack transport
	// layer (internal/preview) serializes it into the posted message's
	// metadata per spec §4.8's preview-persistence contract.
	TaskPreview *TaskPreviewData
}

// TaskPreviewData is everything the interactive preview engine needs to
// persist in message metadata and later replay without refetching (spec
// §4.8: "Metadata payload includes the serialized ExtractedTask ... and the
// serialized board and user lists").
type TaskPreviewData struct {
	Task      domain.ExtractedTask
	Boards    []domain.BoardRef
	Users     []domain.UserRef
	ChannelID string
	ThreadTs  string
	UserID    string
}

// Deps bundles every collaborator an intent handler might need. Built once
// in cmd/gateway and passed to NewDispatcher — no package-level singletons
// (REDESIGN FLAG, SPEC_FULL.md §5).
type Deps struct {
	A2A        *a2a.Client
	AgentURLs  map[config.AgentKey]string
	LLM        *llm.Client
	OAuth      *oauth.Broker
	Tokens     *store.Store
	Meetings   *store.Store
	Monday     *workspace.MondayClient
	Calendar   *workspace.CalendarClient
	Drive      *workspace.DriveClient
	OAuthAuthURLFor func(subjectID string) string
}

// Dispatcher routes a classified intent to its handler.
type Dispatcher struct {
	deps Deps

	meetingPreviewPoster func(ctx context.Context, eventID, title string, analysis domain.MeetingAnalysis) error
}

func NewDispatcher(deps Deps) *Dispatcher {
	return &Dispatcher{deps: deps}
}

// SetMeetingPreviewPoster wires the interactive preview engine's
// post-with-metadata call, so CheckRecentMeetings can hand it a freshly
// built meeting-notes preview (cmd/gateway calls this once at startup to
// break the import cycle between intenthandlers and preview).
func (d *Dispatcher) SetMeetingPreviewPoster(fn func(ctx context.Context, eventID, title string, analysis domain.MeetingAnalysis) error) {
	d.meetingPreviewPoster = fn
}

// Dispatch runs the handler for ic.Session.Intent.
func (d *Dispatcher) Dispatch(ctx context.Context, ic IntentContext) Reply {
	switch ic.Session.Intent {
	case intent.IntentAgentChat:
		return d.handleAgentChat(ctx, ic)
	case intent.IntentBoardStatus:
		return d.handleBoardStatus(ctx, ic)
	case intent.IntentCreateTask:
		return d.handleCreateTask(ctx, ic)
	case intent.IntentMeetingSync:
		return d.handleMeetingSyncTrigger(ctx, ic)
	case intent.IntentCalendar:
		return d.handleToolAgent(ctx, ic, "calendar")
	case intent.IntentDrive:
		return d.handleToolAgent(ctx, ic, "drive")
	default:
		return Reply{Payload: render.ErrorBlocks(fmt.Sprintf("unknown intent %q", ic.Session.Intent))}
	}
}

func (d *Dispatcher) agentURL(key config.AgentKey) string {
	return d.deps.AgentURLs[key]
}

// handleAgentChat composes the recent-channel-context prompt and forwards
// it to the resolved agent, preserving context-id continuity (spec §4.7).
func (d *Dispatcher) handleAgentChat(ctx context.Context, ic IntentContext) Reply {
	log := logger.For("intent-agent-chat")
	prompt := composeChatPrompt(ic.History, ic.MessageText)

	resp := d.deps.A2A.SendMessage(ctx, d.agentURL(ic.Session.AgentKey), prompt, ic.ContextID)
	if resp.Error != nil {
		if resp.Error.Code == a2a.TransportErrorCode {
			log.Warn("transport failure reaching agent", "agent", ic.Session.AgentKey, "err", resp.Error.Message)
			return Reply{Payload: render.WarningBlocks(fmt.Sprintf("Could not reach %s…", ic.Session.AgentKey))}
		}
		return Reply{Payload: render.ErrorBlocks(resp.Error.Message)}
	}
	if resp.Result == nil {
		return Reply{Payload: render.NoResponseBlocks()}
	}

	newContextID := resp.Result.ContextID
	if newContextID == "" {
		newContextID = ic.ContextID
	}
	return Reply{
		Payload:   render.AgentResponseBlocks(string(ic.Session.AgentKey), a2a.ExtractText(resp.Result)),
		ContextID: newContextID,
	}
}

func composeChatPrompt(history []ChatMessage, messageText string) string {
	var sb strings.Builder
	if len(history) > 0 {
		sb.WriteString("Recent Slack channel messages for context:\n")
		start := 0
		if len(history) > 15 {
			start = len(history) - 15
		}
		for _, m := range history[start:] {
			fmt.Fprintf(&sb, "- %s\n", m.Text)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "User request: %s", messageText)
	return sb.String()
}

// handleBoardStatus is a single-shot call with no contextId (spec §4.7).
func (d *Dispatcher) handleBoardStatus(ctx context.Context, ic IntentContext) Reply {
	resp := d.deps.A2A.SendMessage(ctx, d.agentURL(config.AgentScrumMaster), "Give me the current board status summary.", "")
	if resp.Error != nil {
		if resp.Error.Code == a2a.TransportErrorCode {
			return Reply{Payload: render.WarningBlocks("Could not reach scrum-master…")}
		}
		return Reply{Payload: render.ErrorBlocks(resp.Error.Message)}
	}
	if resp.Result == nil {
		return Reply{Payload: render.NoResponseBlocks()}
	}
	return Reply{Payload: render.StatusDashboardBlocks(a2a.ExtractText(resp.Result))}
}

// requiresOAuth renders a connect-link block when subjectID has no live
// OAuth connection, returning ok=false in that case.
func (d *Dispatcher) requireOAuth(ctx context.Context, subjectID string) (Reply, bool) {
	if d.deps.OAuth.IsConnected(ctx, subjectID) {
		return Reply{}, true
	}
	return Reply{Payload: render.ConnectBlocks(d.deps.OAuthAuthURLFor(subjectID))}, false
}
