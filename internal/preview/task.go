package preview

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/domain"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/intenthandlers"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/render"
)

// taskPreviewPayload is the task-from-conversation preview's event_payload
// (spec §4.8: "Metadata payload includes the serialized ExtractedTask, the
// channel/thread/user IDs, and the serialized board and user lists").
type taskPreviewPayload struct {
	Task      domain.ExtractedTask `json:"task"`
	Boards    []domain.BoardRef    `json:"boards"`
	Users     []domain.UserRef     `json:"users"`
	ChannelID string               `json:"channelId"`
	ThreadTs  string               `json:"threadTs"`
	UserID    string               `json:"userId"`
}

// taskEditPrivateMetadata threads the original message location and the
// cached board/user lists through the edit modal's round trip, since a
// view submission carries only what was put in PrivateMetadata.
type taskEditPrivateMetadata struct {
	ChannelID string            `json:"channelId"`
	MessageTS string            `json:"messageTs"`
	Boards    []domain.BoardRef `json:"boards"`
	Users     []domain.UserRef  `json:"users"`
}

const (
	blockTaskName   = "task_name"
	blockTaskDesc   = "task_description"
	blockTaskBoard  = "task_board"
	blockTaskAssign = "task_assignee"
	blockTaskPrio   = "task_priority"
	blockTaskStatus = "task_status"
)

// PostTaskPreview posts the create-task handler's rendered preview with its
// metadata payload (spec §4.7 step 5, §4.8).
func (e *Engine) PostTaskPreview(ctx context.Context, data intenthandlers.TaskPreviewData) error {
	payload := render.TaskPreviewBlocks(data.Task)
	metadata := taskPreviewPayload{
		Task: data.Task, Boards: data.Boards, Users: data.Users,
		ChannelID: data.ChannelID, ThreadTs: data.ThreadTs, UserID: data.UserID,
	}
	return e.post(ctx, data.ChannelID, data.ThreadTs, eventTypeTaskPreview, payload, metadata)
}

func (e *Engine) resolveTaskCreate(ctx context.Context, callback *slack.InteractionCallback) error {
	var md taskPreviewPayload
	if err := decodeMetadata(callback, &md); err != nil {
		return fmt.Errorf("preview: decoding task metadata: %w", err)
	}

	resp := e.a2aClient.SendMessage(ctx, e.productOwnerURL, buildTaskPrompt(md.Task), "")
	var payload render.Payload
	if resp.Error != nil {
		payload = render.ErrorBlocks(resp.Error.Message)
	} else {
		payload = render.TaskConfirmationBlocks(md.Task.Name, e.directory.Name(ctx, callback.User.ID))
	}
	return e.updateInPlace(ctx, callback.Channel.ID, callback.Message.Timestamp, payload)
}

func (e *Engine) resolveTaskCancel(ctx context.Context, callback *slack.InteractionCallback) error {
	actor := e.directory.Name(ctx, callback.User.ID)
	return e.updateInPlace(ctx, callback.Channel.ID, callback.Message.Timestamp, render.TaskCancelledBlocks(actor))
}

func (e *Engine) openTaskEditModal(ctx context.Context, callback *slack.InteractionCallback) error {
	var md taskPreviewPayload
	if err := decodeMetadata(callback, &md); err != nil {
		return fmt.Errorf("preview: decoding task metadata: %w", err)
	}

	priv, err := json.Marshal(taskEditPrivateMetadata{
		ChannelID: callback.Channel.ID, MessageTS: callback.Message.Timestamp,
		Boards: md.Boards, Users: md.Users,
	})
	if err != nil {
		return err
	}

	view := buildTaskEditModal(md.Task, md.Boards, md.Users, string(priv))
	_, err = e.api.OpenViewContext(ctx, callback.TriggerID, view)
	return err
}

func (e *Engine) submitTaskEdit(ctx context.Context, callback *slack.InteractionCallback) error {
	var priv taskEditPrivateMetadata
	if err := json.Unmarshal([]byte(callback.View.PrivateMetadata), &priv); err != nil {
		return fmt.Errorf("preview: decoding task edit private metadata: %w", err)
	}

	state := callback.View.State
	task := domain.ExtractedTask{
		Name:        blockValue(state, blockTaskName, blockTaskName),
		Description: blockValue(state, blockTaskDesc, blockTaskDesc),
		Assignee:    blockValue(state, blockTaskAssign, blockTaskAssign),
		Priority:    domain.Priority(blockValue(state, blockTaskPrio, blockTaskPrio)),
		Status:      domain.TaskStatus(blockValue(state, blockTaskStatus, blockTaskStatus)),
	}
	if board := blockValue(state, blockTaskBoard, blockTaskBoard); board != "" {
		task.Description = fmt.Sprintf("%s\n(board: %s)", task.Description, board)
	}

	resp := e.a2aClient.SendMessage(ctx, e.productOwnerURL, buildTaskPrompt(task), "")
	var payload render.Payload
	if resp.Error != nil {
		payload = render.ErrorBlocks(resp.Error.Message)
	} else {
		payload = render.TaskConfirmationBlocks(task.Name, e.directory.Name(ctx, callback.User.ID))
	}
	return e.updateInPlace(ctx, priv.ChannelID, priv.MessageTS, payload)
}

func buildTaskPrompt(task domain.ExtractedTask) string {
	return fmt.Sprintf(
		"Create a task on the board with name %q, description %q, assignee %q, priority %s, status %s.",
		task.Name, task.Description, task.Assignee, task.Priority, task.Status,
	)
}

func buildTaskEditModal(task domain.ExtractedTask, boards []domain.BoardRef, users []domain.UserRef, privateMetadata string) slack.ModalViewRequest {
	nameInput := slack.NewPlainTextInputBlockElement(nil, blockTaskName)
	nameInput.InitialValue = task.Name
	nameBlock := slack.NewInputBlock(blockTaskName, slack.NewTextBlockObject("plain_text", "Name", false, false), nil, nameInput)

	descInput := slack.NewPlainTextInputBlockElement(nil, blockTaskDesc)
	descInput.InitialValue = task.Description
	descInput.Multiline = true
	descBlock := slack.NewInputBlock(blockTaskDesc, slack.NewTextBlockObject("plain_text", "Description", false, false), nil, descInput)
	descBlock.Optional = true

	boardOptions := make([]*slack.OptionBlockObject, 0, len(boards))
	for _, b := range boards {
		boardOptions = append(boardOptions, slack.NewOptionBlockObject(b.Name, slack.NewTextBlockObject("plain_text", b.Name, false, false), nil))
	}
	boardSelect := slack.NewOptionsSelectBlockElement("static_select", slack.NewTextBlockObject("plain_text", "Select a board", false, false), blockTaskBoard, boardOptions...)
	boardBlock := slack.NewInputBlock(blockTaskBoard, slack.NewTextBlockObject("plain_text", "Board", false, false), nil, boardSelect)
	boardBlock.Optional = true

	assigneeSelect := optionSelect(blockTaskAssign, "Select an assignee", userNames(users), task.Assignee)
	assigneeBlock := slack.NewInputBlock(blockTaskAssign, slack.NewTextBlockObject("plain_text", "Assignee", false, false), nil, assigneeSelect)
	assigneeBlock.Optional = true

	prioSelect := optionSelect(blockTaskPrio, "Priority", []string{
		string(domain.PriorityLow), string(domain.PriorityMedium), string(domain.PriorityHigh), string(domain.PriorityCritical),
	}, string(task.Priority))
	prioBlock := slack.NewInputBlock(blockTaskPrio, slack.NewTextBlockObject("plain_text", "Priority", false, false), nil, prioSelect)

	statusSelect := optionSelect(blockTaskStatus, "Status", []string{
		string(domain.TaskStatusToDo), string(domain.TaskStatusWorking), string(domain.TaskStatusInProgress), string(domain.TaskStatusDone),
	}, string(task.Status))
	statusBlock := slack.NewInputBlock(blockTaskStatus, slack.NewTextBlockObject("plain_text", "Status", false, false), nil, statusSelect)

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      viewTaskEditSubmit,
		Title:           slack.NewTextBlockObject("plain_text", "Edit Task", false, false),
		Submit:          slack.NewTextBlockObject("plain_text", "Save", false, false),
		Close:           slack.NewTextBlockObject("plain_text", "Cancel", false, false),
		PrivateMetadata: privateMetadata,
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			nameBlock, descBlock, boardBlock, assigneeBlock, prioBlock, statusBlock,
		}},
	}
}

func userNames(users []domain.UserRef) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Name)
	}
	return out
}

func optionSelect(actionID, placeholder string, values []string, selected string) *slack.SelectBlockElement {
	options := make([]*slack.OptionBlockObject, 0, len(values))
	var initial *slack.OptionBlockObject
	for _, v := range values {
		opt := slack.NewOptionBlockObject(v, slack.NewTextBlockObject("plain_text", v, false, false), nil)
		options = append(options, opt)
		if v == selected {
			initial = opt
		}
	}
	sel := slack.NewOptionsSelectBlockElement("static_select", slack.NewTextBlockObject("plain_text", placeholder, false, false), actionID, options...)
	if initial != nil {
		sel.InitialOption = initial
	}
	return sel
}
