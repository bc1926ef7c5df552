// Package meetingsync schedules the reactive, per-meeting timers that drive
// the meeting-sync intent outside of a Slack-triggered request (spec §4.10).
// It is deliberately separate from internal/scheduler: meetings are
// event-driven in wall-clock time (keyed off each event's own end time),
// not cron-periodic.
package meetingsync

import (
	"context"
	"sync"
	"time"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/logger"
)

// Service is the subset of the meeting-sync intent handler the orchestrator
// drives. Declared locally (rather than imported from intenthandlers) so
// this package stays a leaf; internal/intenthandlers implements it.
type Service interface {
	CheckRecentMeetings(ctx context.Context, subjectID string) (Counts, error)
}

// Counts mirrors the return shape of checkRecentMeetings (spec §4.7/§4.10).
type Counts struct {
	Found           int
	TranscriptsFound int
	PreviewsPosted  int
	Skipped         int
	Errors          int
}

// CalendarLister is the calendar read the orchestrator itself needs to
// discover new events (distinct from the one checkRecentMeetings performs
// internally against a narrower window).
type CalendarLister interface {
	ListTodayRemainingEventIDs(ctx context.Context, subjectID string) ([]EventRef, error)
}

// EventRef is the minimal event shape the orchestrator schedules timers
// around.
type EventRef struct {
	ID  string
	End time.Time
}

const (
	firstAttemptLag = 2 * time.Minute
	retryLag        = 15 * time.Minute
	refreshInterval = time.Hour
)

type timerPair struct {
	first *time.Timer
	retry *time.Timer
}

// Orchestrator owns one timer pair per not-yet-resolved meeting, keyed by
// event id, plus an hourly background refresh that picks up newly created
// events without re-scheduling ones already tracked.
type Orchestrator struct {
	mu        sync.Mutex
	timers    map[string]*timerPair
	processed map[string]bool

	svc       Service
	calendar  CalendarLister
	subjectID string

	stopRefresh chan struct{}
	wg          sync.WaitGroup
}

func New(svc Service, calendar CalendarLister, subjectID string) *Orchestrator {
	return &Orchestrator{
		timers:      make(map[string]*timerPair),
		processed:   make(map[string]bool),
		svc:         svc,
		calendar:    calendar,
		subjectID:   subjectID,
		stopRefresh: make(chan struct{}),
	}
}

// Start performs the initial event scan and begins the hourly refresh loop.
func (o *Orchestrator) Start(ctx context.Context) {
	o.refresh(ctx)
	o.wg.Add(1)
	go o.refreshLoop(ctx)
}

// Stop cancels every outstanding timer deterministically and stops the
// refresh loop. Safe to call once during graceful shutdown (spec §6).
func (o *Orchestrator) Stop() {
	close(o.stopRefresh)
	o.wg.Wait()

	o.mu.Lock()
	defer o.mu.Unlock()
	for id, pair := range o.timers {
		pair.first.Stop()
		pair.retry.Stop()
		delete(o.timers, id)
	}
}

func (o *Orchestrator) refreshLoop(ctx context.Context) {
	defer o.wg.Done()
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.stopRefresh:
			return
		case <-ticker.C:
			o.refresh(ctx)
		}
	}
}

func (o *Orchestrator) refresh(ctx context.Context) {
	log := logger.For("meeting-sync-orchestrator")
	events, err := o.calendar.ListTodayRemainingEventIDs(ctx, o.subjectID)
	if err != nil {
		log.Warn("calendar refresh failed", "err", err)
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for _, ev := range events {
		if o.processed[ev.ID] {
			continue
		}
		if _, scheduled := o.timers[ev.ID]; scheduled {
			continue
		}
		o.scheduleLocked(ctx, ev)
	}
}

// scheduleLocked must be called with o.mu held.
func (o *Orchestrator) scheduleLocked(ctx context.Context, ev EventRef) {
	firstAt := time.Until(ev.End.Add(firstAttemptLag))
	retryAt := time.Until(ev.End.Add(retryLag))

	pair := &timerPair{}
	pair.first = time.AfterFunc(maxDuration(firstAt, 0), func() {
		o.fire(ctx, ev.ID, false)
	})
	pair.retry = time.AfterFunc(maxDuration(retryAt, 0), func() {
		o.fire(ctx, ev.ID, true)
	})
	o.timers[ev.ID] = pair
}

func (o *Orchestrator) fire(ctx context.Context, eventID string, isRetry bool) {
	log := logger.For("meeting-sync-orchestrator")

	o.mu.Lock()
	if o.processed[eventID] {
		o.cancelSiblingLocked(eventID)
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	counts, err := o.svc.CheckRecentMeetings(ctx, o.subjectID)
	if err != nil {
		log.Warn("checkRecentMeetings failed", "event_id", eventID, "retry", isRetry, "err", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if err == nil && counts.PreviewsPosted > 0 {
		o.processed[eventID] = true
		o.cancelSiblingLocked(eventID)
		return
	}
	if isRetry {
		o.processed[eventID] = true
		o.cancelSiblingLocked(eventID)
	}
	// first attempt with no preview posted: leave the retry timer pending.
}

// cancelSiblingLocked stops and forgets both timers for eventID. Must be
// called with o.mu held.
func (o *Orchestrator) cancelSiblingLocked(eventID string) {
	pair, ok := o.timers[eventID]
	if !ok {
		return
	}
	pair.first.Stop()
	pair.retry.Stop()
	delete(o.timers, eventID)
}

func maxDuration(d, floor time.Duration) time.Duration {
	if d < floor {
		return floor
	}
	return d
}
