package render

import (
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/domain"
)

func TestTaskPreviewBlocks_HasThreeActionButtonsWithCorrectStyles(t *testing.T) {
	payload := TaskPreviewBlocks(domain.ExtractedTask{Name: "Ship it", Priority: domain.PriorityHigh, Status: domain.TaskStatusToDo})

	require.Len(t, payload.Blocks, 3)
	actions, ok := payload.Blocks[2].(*slack.ActionBlock)
	require.True(t, ok)
	require.Len(t, actions.Elements.ElementSet, 3)

	createBtn := actions.Elements.ElementSet[0].(*slack.ButtonBlockElement)
	assert.Equal(t, ActionCreateTask, createBtn.ActionID)
	assert.Equal(t, slack.StylePrimary, createBtn.Style)

	cancelBtn := actions.Elements.ElementSet[2].(*slack.ButtonBlockElement)
	assert.Equal(t, ActionCancelTask, cancelBtn.ActionID)
	assert.Equal(t, slack.StyleDanger, cancelBtn.Style)
}

func TestMeetingPreviewBlocks_ListsActionItemsWithMetadata(t *testing.T) {
	analysis := domain.MeetingAnalysis{
		Summary:   "Discussed Q3 roadmap.",
		Decisions: []string{"Ship feature X by Friday"},
		ActionItems: []domain.ActionItem{
			{Title: "Write spec", Assignee: "Alice", Priority: "High"},
		},
	}
	payload := MeetingPreviewBlocks("evt-1", "Roadmap Sync", analysis)
	assert.Contains(t, payload.Text, "Roadmap Sync")

	actions, ok := payload.Blocks[2].(*slack.ActionBlock)
	require.True(t, ok)
	require.Len(t, actions.Elements.ElementSet, 2)
	approveBtn := actions.Elements.ElementSet[0].(*slack.ButtonBlockElement)
	assert.Equal(t, ActionMeetingApprove, approveBtn.ActionID)
	assert.Equal(t, "evt-1", approveBtn.Value)
}
