package intenthandlers

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/domain"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/logger"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/render"
)

const taskExtractorSystemPrompt = `You extract a single actionable task from a Slack conversation transcript.
Reply with ONLY a JSON object of this exact shape, no prose, no code fences:
{"name": "...", "description": "...", "assignee": "...", "priority": "Low|Medium|High|Critical", "status": "ToDo|Working|InProgress|Done"}
If no assignee is mentioned, use an empty string. Default priority is "Medium" and default status is "ToDo".`

var imperativeTaskRe = regexp.MustCompile(`(?i)^\s*(create|add|make)\b`)

// handleCreateTask implements spec §4.7's five-step create-task flow:
// history fetch, author-name resolution (done by the caller before
// building ic.History), conditional append of the triggering message,
// parallel extractor/board/user fetch, and a preview render.
func (d *Dispatcher) handleCreateTask(ctx context.Context, ic IntentContext) Reply {
	log := logger.For("intent-create-task")

	transcript := ic.History
	if !imperativeTaskRe.MatchString(ic.MessageText) {
		transcript = append(append([]ChatMessage{}, transcript...), ChatMessage{UserID: ic.UserID, Text: ic.MessageText})
	}

	formatted := formatTranscript(transcript)

	var (
		analysis domain.ExtractedTask
		boards   []domain.BoardRef
		users    []domain.UserRef
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, err := d.deps.LLM.Complete(gctx, taskExtractorSystemPrompt, formatted)
		if err != nil {
			return fmt.Errorf("task extractor: %w", err)
		}
		return json.Unmarshal([]byte(stripFences(text)), &analysis)
	})
	g.Go(func() error {
		var err error
		boards, err = d.deps.Monday.ListBoards(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = d.deps.Monday.ListUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Warn("create-task enrichment failed", "err", err)
		return Reply{Payload: render.ErrorBlocks("Could not prepare a task preview: " + err.Error())}
	}

	if analysis.Priority == "" {
		analysis.Priority = domain.PriorityMedium
	}
	if analysis.Status == "" {
		analysis.Status = domain.TaskStatusToDo
	}

	return Reply{
		Payload: render.TaskPreviewBlocks(analysis),
		TaskPreview: &TaskPreviewData{
			Task:      analysis,
			Boards:    boards,
			Users:     users,
			ChannelID: ic.ChannelID,
			ThreadTs:  ic.ThreadTs,
			UserID:    ic.UserID,
		},
	}
}

// formatTranscript joins a transcript into extractor input. Text already
// carries the speaker's resolved display name (slackgw's fetchHistory
// prefixes it before History ever reaches the dispatcher), so this only
// needs to join lines, not re-prefix the raw Slack user ID.
func formatTranscript(msgs []ChatMessage) string {
	var sb strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&sb, "%s\n", m.Text)
	}
	return sb.String()
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
