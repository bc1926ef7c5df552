package render

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/domain"
)

// Task-from-conversation preview action callback IDs (spec §4.8).
const (
	ActionCreateTask = "mention_create_task"
	ActionEditTask   = "mention_edit_task"
	ActionCancelTask = "mention_cancel_task"

	ActionMeetingApprove = "meeting_approve"
	ActionMeetingDismiss = "meeting_dismiss"
)

// TaskPreviewBlocks renders the header, field summary, and three action
// buttons for a task-from-conversation preview (spec §4.8).
func TaskPreviewBlocks(task domain.ExtractedTask) Payload {
	summary := fmt.Sprintf(
		"*Name:* %s\n*Description:* %s\n*Assignee:* %s\n*Priority:* %s\n*Status:* %s",
		task.Name, task.Description, valueOr(task.Assignee, "_unassigned_"), task.Priority, task.Status,
	)

	createBtn := slack.NewButtonBlockElement(ActionCreateTask, task.Name, slack.NewTextBlockObject("plain_text", "Create Task", false, false))
	createBtn.Style = slack.StylePrimary
	editBtn := slack.NewButtonBlockElement(ActionEditTask, task.Name, slack.NewTextBlockObject("plain_text", "Edit", false, false))
	cancelBtn := slack.NewButtonBlockElement(ActionCancelTask, task.Name, slack.NewTextBlockObject("plain_text", "Cancel", false, false))
	cancelBtn.Style = slack.StyleDanger

	blocks := []slack.Block{
		header("Task Preview"),
		section(summary),
		slack.NewActionBlock("", createBtn, editBtn, cancelBtn),
	}
	return Payload{Blocks: blocks, Text: "Task Preview: " + task.Name}
}

// TaskConfirmationBlocks replaces a resolved task preview in place.
func TaskConfirmationBlocks(taskName, actorName string) Payload {
	text := fmt.Sprintf(":white_check_mark: Task *%s* created by %s", taskName, actorName)
	return Payload{Blocks: []slack.Block{section(text)}, Text: text}
}

// TaskCancelledBlocks replaces a preview with a dismissal notice.
func TaskCancelledBlocks(actorName string) Payload {
	text := fmt.Sprintf(":no_entry_sign: Cancelled by %s", actorName)
	return Payload{Blocks: []slack.Block{section(text)}, Text: text}
}

// MeetingPreviewBlocks renders a meeting-notes analysis with approve/
// dismiss buttons (spec §4.8).
func MeetingPreviewBlocks(eventID, title string, analysis domain.MeetingAnalysis) Payload {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s*\n%s", title, analysis.Summary)
	if len(analysis.Decisions) > 0 {
		sb.WriteString("\n\n*Key decisions:*")
		for _, d := range analysis.Decisions {
			fmt.Fprintf(&sb, "\n• %s", d)
		}
	}
	if len(analysis.ActionItems) > 0 {
		sb.WriteString("\n\n*Action items:*")
		for i, item := range analysis.ActionItems {
			fmt.Fprintf(&sb, "\n%d. %s", i+1, item.Title)
			var meta []string
			if item.Assignee != "" {
				meta = append(meta, "assignee: "+item.Assignee)
			}
			if item.Priority != "" {
				meta = append(meta, "priority: "+item.Priority)
			}
			if item.Deadline != "" {
				meta = append(meta, "deadline: "+item.Deadline)
			}
			if len(meta) > 0 {
				sb.WriteString(" (" + strings.Join(meta, ", ") + ")")
			}
		}
	}

	approveBtn := slack.NewButtonBlockElement(ActionMeetingApprove, eventID, slack.NewTextBlockObject("plain_text", "Approve", false, false))
	approveBtn.Style = slack.StylePrimary
	dismissBtn := slack.NewButtonBlockElement(ActionMeetingDismiss, eventID, slack.NewTextBlockObject("plain_text", "Dismiss", false, false))

	blocks := []slack.Block{
		header("Meeting Notes"),
		section(sb.String()),
		slack.NewActionBlock("", approveBtn, dismissBtn),
	}
	return Payload{Blocks: blocks, Text: "Meeting Notes: " + title}
}

// MeetingConfirmationBlocks replaces a meeting preview in place once the
// approver's edit modal is submitted.
func MeetingConfirmationBlocks(title, approverName string) Payload {
	text := fmt.Sprintf(":white_check_mark: Meeting notes for *%s* approved by %s", title, approverName)
	return Payload{Blocks: []slack.Block{section(text)}, Text: text}
}

// MeetingDismissedBlocks replaces a meeting preview with a dismissal
// notice.
func MeetingDismissedBlocks(title string) Payload {
	text := fmt.Sprintf(":no_entry_sign: Meeting notes for *%s* dismissed", title)
	return Payload{Blocks: []slack.Block{section(text)}, Text: text}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
