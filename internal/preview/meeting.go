package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/domain"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/render"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/store"
)

// meetingPreviewPayload is the meeting-notes preview's event_payload (spec
// §4.8: "The whole MeetingAnalysis is serialized into message metadata
// under event_payload.analysis").
type meetingPreviewPayload struct {
	EventID  string                 `json:"eventId"`
	Title    string                 `json:"title"`
	Analysis domain.MeetingAnalysis `json:"analysis"`
}

type meetingEditPrivateMetadata struct {
	ChannelID string `json:"channelId"`
	MessageTS string `json:"messageTs"`
	EventID   string `json:"eventId"`
	Title     string `json:"title"`
}

const (
	blockMeetingBoard   = "meeting_board"
	blockMeetingSummary = "meeting_summary"
	blockMeetingDecisions = "meeting_decisions"
	actionItemSlots     = 5
)

func blockItemTitle(i int) string  { return fmt.Sprintf("meeting_item_%d_title", i) }
func blockItemDesc(i int) string   { return fmt.Sprintf("meeting_item_%d_description", i) }
func blockItemAssign(i int) string { return fmt.Sprintf("meeting_item_%d_assignee", i) }

// PostMeetingPreview renders and posts a meeting-notes preview to the
// gateway's configured notify channel (meeting sync has no originating
// Slack thread to post into, unlike the chat-triggered intents). This is
// the function intenthandlers.Dispatcher.SetMeetingPreviewPoster expects —
// cmd/gateway wires it at startup to break the import cycle (spec §4.7).
func (e *Engine) PostMeetingPreview(ctx context.Context, eventID, title string, analysis domain.MeetingAnalysis) error {
	payload := render.MeetingPreviewBlocks(eventID, title, analysis)
	metadata := meetingPreviewPayload{EventID: eventID, Title: title, Analysis: analysis}
	return e.post(ctx, e.notifyChannelID, "", eventTypeMeetingPreview, payload, metadata)
}

func (e *Engine) resolveMeetingDismiss(ctx context.Context, callback *slack.InteractionCallback) error {
	var md meetingPreviewPayload
	if err := decodeMetadata(callback, &md); err != nil {
		return fmt.Errorf("preview: decoding meeting metadata: %w", err)
	}
	if err := e.meetings.UpdateMeetingStatus(ctx, md.EventID, store.MeetingDismissed, ""); err != nil {
		return fmt.Errorf("preview: marking meeting dismissed: %w", err)
	}
	return e.updateInPlace(ctx, callback.Channel.ID, callback.Message.Timestamp, render.MeetingDismissedBlocks(md.Title))
}

func (e *Engine) openMeetingEditModal(ctx context.Context, callback *slack.InteractionCallback) error {
	var md meetingPreviewPayload
	if err := decodeMetadata(callback, &md); err != nil {
		return fmt.Errorf("preview: decoding meeting metadata: %w", err)
	}

	boards, err := e.monday.ListBoards(ctx)
	if err != nil {
		return fmt.Errorf("preview: listing boards for meeting edit: %w", err)
	}

	priv, err := json.Marshal(meetingEditPrivateMetadata{
		ChannelID: callback.Channel.ID, MessageTS: callback.Message.Timestamp,
		EventID: md.EventID, Title: md.Title,
	})
	if err != nil {
		return err
	}

	view := buildMeetingEditModal(md.Title, md.Analysis, boards, string(priv))
	_, err = e.api.OpenViewContext(ctx, callback.TriggerID, view)
	return err
}

func (e *Engine) submitMeetingEdit(ctx context.Context, callback *slack.InteractionCallback) error {
	var priv meetingEditPrivateMetadata
	if err := json.Unmarshal([]byte(callback.View.PrivateMetadata), &priv); err != nil {
		return fmt.Errorf("preview: decoding meeting edit private metadata: %w", err)
	}

	state := callback.View.State
	board := blockValue(state, blockMeetingBoard, blockMeetingBoard)
	summary := blockValue(state, blockMeetingSummary, blockMeetingSummary)
	decisions := splitLines(blockValue(state, blockMeetingDecisions, blockMeetingDecisions))

	var items []domain.ActionItem
	for i := 0; i < actionItemSlots; i++ {
		title := blockValue(state, blockItemTitle(i), blockItemTitle(i))
		if title == "" {
			continue
		}
		items = append(items, domain.ActionItem{
			Title:       title,
			Description: blockValue(state, blockItemDesc(i), blockItemDesc(i)),
			Assignee:    blockValue(state, blockItemAssign(i), blockItemAssign(i)),
		})
	}

	prompt := buildMeetingPrompt(board, priv.Title, summary, decisions, items)
	resp := e.a2aClient.SendMessage(ctx, e.productOwnerURL, prompt, "")

	var payload render.Payload
	if resp.Error != nil {
		payload = render.ErrorBlocks(resp.Error.Message)
	} else {
		if err := e.meetings.UpdateMeetingStatus(ctx, priv.EventID, store.MeetingApproved, ""); err != nil {
			return fmt.Errorf("preview: marking meeting approved: %w", err)
		}
		payload = render.MeetingConfirmationBlocks(priv.Title, e.directory.Name(ctx, callback.User.ID))
	}
	return e.updateInPlace(ctx, priv.ChannelID, priv.MessageTS, payload)
}

func buildMeetingPrompt(boardName, title, summary string, decisions []string, items []domain.ActionItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create tasks from the meeting %q on board %q.\nSummary: %s\n", title, boardName, summary)
	if len(decisions) > 0 {
		sb.WriteString("Decisions:\n")
		for _, d := range decisions {
			fmt.Fprintf(&sb, "- %s\n", d)
		}
	}
	for _, item := range items {
		fmt.Fprintf(&sb, "Action item: %q, description %q, assignee %q\n", item.Title, item.Description, item.Assignee)
	}
	return sb.String()
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func buildMeetingEditModal(title string, analysis domain.MeetingAnalysis, boards []domain.BoardRef, privateMetadata string) slack.ModalViewRequest {
	boardSelect := optionSelect(blockMeetingBoard, "Select a board", boardNames(boards), "")
	boardBlock := slack.NewInputBlock(blockMeetingBoard, slack.NewTextBlockObject("plain_text", "Board", false, false), nil, boardSelect)

	summaryInput := slack.NewPlainTextInputBlockElement(nil, blockMeetingSummary)
	summaryInput.InitialValue = analysis.Summary
	summaryInput.Multiline = true
	summaryBlock := slack.NewInputBlock(blockMeetingSummary, slack.NewTextBlockObject("plain_text", "Summary", false, false), nil, summaryInput)

	decisionsInput := slack.NewPlainTextInputBlockElement(nil, blockMeetingDecisions)
	decisionsInput.InitialValue = strings.Join(analysis.Decisions, "\n")
	decisionsInput.Multiline = true
	decisionsBlock := slack.NewInputBlock(blockMeetingDecisions, slack.NewTextBlockObject("plain_text", "Key decisions (one per line)", false, false), nil, decisionsInput)
	decisionsBlock.Optional = true

	blocks := []slack.Block{boardBlock, summaryBlock, decisionsBlock}
	for i := 0; i < actionItemSlots; i++ {
		var item domain.ActionItem
		if i < len(analysis.ActionItems) {
			item = analysis.ActionItems[i]
		}

		titleInput := slack.NewPlainTextInputBlockElement(nil, blockItemTitle(i))
		titleInput.InitialValue = item.Title
		titleBlock := slack.NewInputBlock(blockItemTitle(i), slack.NewTextBlockObject("plain_text", fmt.Sprintf("Action item %d title", i+1), false, false), nil, titleInput)
		titleBlock.Optional = true

		descInput := slack.NewPlainTextInputBlockElement(nil, blockItemDesc(i))
		descInput.InitialValue = item.Description
		descBlock := slack.NewInputBlock(blockItemDesc(i), slack.NewTextBlockObject("plain_text", fmt.Sprintf("Action item %d description", i+1), false, false), nil, descInput)
		descBlock.Optional = true

		assignInput := slack.NewPlainTextInputBlockElement(nil, blockItemAssign(i))
		assignInput.InitialValue = item.Assignee
		assignBlock := slack.NewInputBlock(blockItemAssign(i), slack.NewTextBlockObject("plain_text", fmt.Sprintf("Action item %d assignee", i+1), false, false), nil, assignInput)
		assignBlock.Optional = true

		blocks = append(blocks, titleBlock, descBlock, assignBlock)
	}

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      viewMeetingEditSubmit,
		Title:           slack.NewTextBlockObject("plain_text", "Approve Meeting Notes", false, false),
		Submit:          slack.NewTextBlockObject("plain_text", "Approve", false, false),
		Close:           slack.NewTextBlockObject("plain_text", "Cancel", false, false),
		PrivateMetadata: privateMetadata,
		Blocks:          slack.Blocks{BlockSet: blocks},
	}
}

func boardNames(boards []domain.BoardRef) []string {
	out := make([]string, 0, len(boards))
	for _, b := range boards {
		out = append(out, b.Name)
	}
	return out
}
