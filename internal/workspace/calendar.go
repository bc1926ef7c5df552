package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// CalendarEvent is the subset of a Google Calendar event the meeting-sync
// orchestrator needs.
type CalendarEvent struct {
	ID              string
	Title           string
	End             time.Time
	HasConferenceData bool
}

// CalendarClient lists events for a pre-authenticated oauth2 client. Hand
// rolled REST, matching the A2A client's own stdlib-http idiom, rather than
// importing a generated Google API client the pack never uses.
type CalendarClient struct {
	httpClient func(ctx context.Context, tok *oauth2.Token) *http.Client
}

func NewCalendarClient(cfg oauth2.Config) *CalendarClient {
	return &CalendarClient{
		httpClient: func(ctx context.Context, tok *oauth2.Token) *http.Client {
			return cfg.Client(ctx, tok)
		},
	}
}

type gcalListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Summary string `json:"summary"`
		End     struct {
			DateTime time.Time `json:"dateTime"`
		} `json:"end"`
		ConferenceData *struct{} `json:"conferenceData"`
	} `json:"items"`
}

// ListEventsInWindow returns events in [from, to] that carry conference
// data, used both by the reactive checkRecentMeetings path and the
// orchestrator's own "today's remaining events" scan.
func (c *CalendarClient) ListEventsInWindow(ctx context.Context, tok *oauth2.Token, from, to time.Time) ([]CalendarEvent, error) {
	client := c.httpClient(ctx, tok)
	url := fmt.Sprintf(
		"https://www.googleapis.com/calendar/v3/calendars/primary/events?timeMin=%s&timeMax=%s&singleEvents=true&orderBy=startTime",
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("calendar: HTTP %d", resp.StatusCode)
	}

	var parsed gcalListResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("calendar: decoding response: %w", err)
	}

	out := make([]CalendarEvent, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.ConferenceData == nil {
			continue
		}
		out = append(out, CalendarEvent{
			ID:                item.ID,
			Title:             item.Summary,
			End:               item.End.DateTime,
			HasConferenceData: true,
		})
	}
	return out, nil
}

type gcalTimeField struct {
	DateTime string `json:"dateTime"`
}

type gcalEventRequest struct {
	Summary string         `json:"summary,omitempty"`
	Start   *gcalTimeField `json:"start,omitempty"`
	End     *gcalTimeField `json:"end,omitempty"`
}

type gcalEventResponse struct {
	ID string `json:"id"`
}

// CreateEvent creates a calendar event with the given title over [start,
// end], returning the new event's ID (spec §4.7's calendar tool set).
func (c *CalendarClient) CreateEvent(ctx context.Context, tok *oauth2.Token, title string, start, end time.Time) (string, error) {
	body, err := json.Marshal(gcalEventRequest{
		Summary: title,
		Start:   &gcalTimeField{DateTime: start.UTC().Format(time.RFC3339)},
		End:     &gcalTimeField{DateTime: end.UTC().Format(time.RFC3339)},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://www.googleapis.com/calendar/v3/calendars/primary/events", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient(ctx, tok).Do(req)
	if err != nil {
		return "", fmt.Errorf("calendar: create request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("calendar: create HTTP %d", resp.StatusCode)
	}
	var parsed gcalEventResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("calendar: decoding create response: %w", err)
	}
	return parsed.ID, nil
}

// UpdateEvent patches an existing event's title and/or end time. An empty
// title or zero end leaves that field unchanged.
func (c *CalendarClient) UpdateEvent(ctx context.Context, tok *oauth2.Token, eventID, title string, end time.Time) error {
	patch := gcalEventRequest{Summary: title}
	if !end.IsZero() {
		patch.End = &gcalTimeField{DateTime: end.UTC().Format(time.RFC3339)}
	}
	body, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	u := fmt.Sprintf("https://www.googleapis.com/calendar/v3/calendars/primary/events/%s", url.PathEscape(eventID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient(ctx, tok).Do(req)
	if err != nil {
		return fmt.Errorf("calendar: update request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("calendar: update HTTP %d", resp.StatusCode)
	}
	return nil
}

// DeleteEvent removes an event by ID. Google returns 410 for an
// already-deleted event; treated as success since the end state matches.
func (c *CalendarClient) DeleteEvent(ctx context.Context, tok *oauth2.Token, eventID string) error {
	u := fmt.Sprintf("https://www.googleapis.com/calendar/v3/calendars/primary/events/%s", url.PathEscape(eventID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient(ctx, tok).Do(req)
	if err != nil {
		return fmt.Errorf("calendar: delete request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusGone && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return fmt.Errorf("calendar: delete HTTP %d", resp.StatusCode)
	}
	return nil
}
