package intenthandlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/domain"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/logger"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/meetingsync"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/render"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/store"
)

const meetingNotesSystemPrompt = `You analyze a meeting transcript and extract structured notes.
Reply with ONLY a JSON object of this exact shape, no prose, no code fences:
{"summary": "...", "decisions": ["..."], "actionItems": [{"title": "...", "description": "...", "assignee": "", "priority": "", "deadline": ""}]}
If there are no action items, return an empty actionItems array.`

// handleMeetingSyncTrigger is the Slack-triggered "/meeting-sync" path:
// require an OAuth connection, then run the same check the orchestrator
// runs reactively (spec §4.7).
func (d *Dispatcher) handleMeetingSyncTrigger(ctx context.Context, ic IntentContext) Reply {
	if reply, ok := d.requireOAuth(ctx, ic.UserID); !ok {
		return reply
	}

	counts, err := d.CheckRecentMeetings(ctx, ic.UserID)
	if err != nil {
		return Reply{Payload: render.ErrorBlocks("Meeting sync failed: " + err.Error())}
	}

	text := fmt.Sprintf(
		"Checked recent meetings: found %d, transcripts found %d, previews posted %d, skipped %d, errors %d.",
		counts.Found, counts.TranscriptsFound, counts.PreviewsPosted, counts.Skipped, counts.Errors,
	)
	return Reply{Payload: render.Payload{Blocks: nil, Text: text}}
}

// CheckRecentMeetings implements meetingsync.Service: it lists calendar
// events with conference data in the trailing 20-minute window, finds each
// unprocessed one's transcript, runs the meeting-notes extractor, and
// either marks it dismissed (no action items) or posts an approve/dismiss
// preview (spec §4.7, §4.10).
func (d *Dispatcher) CheckRecentMeetings(ctx context.Context, subjectID string) (meetingsync.Counts, error) {
	log := logger.For("intent-meeting-sync")
	counts := meetingsync.Counts{}

	tok, err := d.deps.OAuth.GetClient(ctx, subjectID)
	if err != nil {
		return counts, err
	}

	now := time.Now()
	events, err := d.deps.Calendar.ListEventsInWindow(ctx, tok, now.Add(-20*time.Minute), now)
	if err != nil {
		return counts, err
	}
	counts.Found = len(events)

	for _, ev := range events {
		processed, err := d.deps.Meetings.IsProcessed(ctx, ev.ID)
		if err != nil {
			counts.Errors++
			log.Warn("checking meeting processed state", "event_id", ev.ID, "err", err)
			continue
		}
		if processed {
			counts.Skipped++
			continue
		}

		fileID, err := d.deps.Drive.FindTranscript(ctx, tok, ev.Title)
		if err != nil {
			counts.Errors++
			log.Warn("transcript lookup failed", "event_id", ev.ID, "err", err)
			continue
		}
		if fileID == "" {
			counts.Errors++
			continue
		}
		counts.TranscriptsFound++

		transcript, err := d.deps.Drive.FetchTranscriptText(ctx, tok, fileID)
		if err != nil {
			counts.Errors++
			log.Warn("transcript download failed", "event_id", ev.ID, "err", err)
			continue
		}

		analysis, err := d.runMeetingNotesExtractor(ctx, transcript)
		if err != nil {
			counts.Errors++
			log.Warn("meeting-notes extraction failed", "event_id", ev.ID, "err", err)
			continue
		}

		if len(analysis.ActionItems) == 0 {
			if err := d.deps.Meetings.InsertMeeting(ctx, store.MeetingRecord{
				EventID:     ev.ID,
				Title:       ev.Title,
				ProcessedAt: now.UnixMilli(),
				Status:      store.MeetingDismissed,
			}); err != nil {
				counts.Errors++
				log.Warn("recording dismissed meeting", "event_id", ev.ID, "err", err)
			}
			continue
		}

		if err := d.deps.Meetings.InsertMeeting(ctx, store.MeetingRecord{
			EventID:     ev.ID,
			Title:       ev.Title,
			ProcessedAt: now.UnixMilli(),
			Status:      store.MeetingPending,
		}); err != nil {
			counts.Errors++
			log.Warn("recording pending meeting", "event_id", ev.ID, "err", err)
			continue
		}

		if err := d.postMeetingPreview(ctx, ev.ID, ev.Title, analysis); err != nil {
			counts.Errors++
			log.Warn("posting meeting preview", "event_id", ev.ID, "err", err)
			continue
		}
		counts.PreviewsPosted++
	}

	return counts, nil
}

func (d *Dispatcher) runMeetingNotesExtractor(ctx context.Context, transcript string) (domain.MeetingAnalysis, error) {
	var analysis domain.MeetingAnalysis
	text, err := d.deps.LLM.Complete(ctx, meetingNotesSystemPrompt, transcript)
	if err != nil {
		return analysis, err
	}
	if err := json.Unmarshal([]byte(stripFences(text)), &analysis); err != nil {
		return analysis, fmt.Errorf("decoding meeting analysis: %w", err)
	}
	return analysis, nil
}

// postMeetingPreview is a hook the Slack transport layer overrides via
// SetMeetingPreviewPoster (cmd/gateway wires it to internal/preview's
// actual message-post-with-metadata call); the default here is a no-op so
// CheckRecentMeetings degrades gracefully in tests that never set it.
func (d *Dispatcher) postMeetingPreview(ctx context.Context, eventID, title string, analysis domain.MeetingAnalysis) error {
	if d.meetingPreviewPoster == nil {
		return nil
	}
	return d.meetingPreviewPoster(ctx, eventID, title, analysis)
}
