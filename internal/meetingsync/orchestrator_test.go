package meetingsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu     sync.Mutex
	calls  int
	counts Counts
	err    error
}

func (f *fakeService) CheckRecentMeetings(ctx context.Context, subjectID string) (Counts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.counts, f.err
}

func (f *fakeService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCalendar struct {
	events []EventRef
	err    error
}

func (f *fakeCalendar) ListTodayRemainingEventIDs(ctx context.Context, subjectID string) ([]EventRef, error) {
	return f.events, f.err
}

// stubTimers pre-populates a far-future timer pair so fire/cancelSiblingLocked
// have something concrete to stop, without a real timer racing the test.
func stubTimers(o *Orchestrator, eventID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.timers[eventID] = &timerPair{
		first: time.NewTimer(time.Hour),
		retry: time.NewTimer(time.Hour),
	}
}

func TestFire_MarksProcessedAndCancelsSiblingWhenPreviewPosted(t *testing.T) {
	svc := &fakeService{counts: Counts{PreviewsPosted: 1}}
	o := New(svc, &fakeCalendar{}, "U1")
	stubTimers(o, "e1")

	o.fire(context.Background(), "e1", false)

	o.mu.Lock()
	defer o.mu.Unlock()
	assert.True(t, o.processed["e1"])
	assert.NotContains(t, o.timers, "e1")
}

func TestFire_FirstAttemptWithNoPreviewLeavesRetryPending(t *testing.T) {
	svc := &fakeService{counts: Counts{}}
	o := New(svc, &fakeCalendar{}, "U1")
	stubTimers(o, "e1")

	o.fire(context.Background(), "e1", false)

	o.mu.Lock()
	defer o.mu.Unlock()
	assert.False(t, o.processed["e1"])
	assert.Contains(t, o.timers, "e1", "the retry timer must not be cancelled after a fruitless first attempt")
}

func TestFire_RetryAttemptWithNoPreviewGivesUp(t *testing.T) {
	svc := &fakeService{counts: Counts{}}
	o := New(svc, &fakeCalendar{}, "U1")
	stubTimers(o, "e1")

	o.fire(context.Background(), "e1", true)

	o.mu.Lock()
	defer o.mu.Unlock()
	assert.True(t, o.processed["e1"], "a fruitless retry attempt must still mark the event resolved")
	assert.NotContains(t, o.timers, "e1")
}

func TestFire_SkipsAlreadyProcessedEvents(t *testing.T) {
	svc := &fakeService{counts: Counts{PreviewsPosted: 1}}
	o := New(svc, &fakeCalendar{}, "U1")
	o.mu.Lock()
	o.processed["e1"] = true
	o.mu.Unlock()
	stubTimers(o, "e1")

	o.fire(context.Background(), "e1", false)

	assert.Equal(t, 0, svc.callCount(), "an already-resolved event must never re-invoke CheckRecentMeetings")
}

func TestRefresh_SkipsProcessedAndAlreadyScheduledEvents(t *testing.T) {
	future := time.Now().Add(48 * time.Hour)
	cal := &fakeCalendar{events: []EventRef{
		{ID: "processed", End: future},
		{ID: "scheduled", End: future},
		{ID: "new", End: future},
	}}
	o := New(&fakeService{}, cal, "U1")
	o.mu.Lock()
	o.processed["processed"] = true
	o.mu.Unlock()
	stubTimers(o, "scheduled")

	o.refresh(context.Background())

	o.mu.Lock()
	defer o.mu.Unlock()
	assert.Contains(t, o.timers, "new", "an unseen event must get a fresh timer pair")
	assert.NotContains(t, o.timers, "processed", "a resolved event must never be rescheduled")

	for _, pair := range o.timers {
		pair.first.Stop()
		pair.retry.Stop()
	}
}

func TestRefresh_CalendarErrorIsNonFatal(t *testing.T) {
	o := New(&fakeService{}, &fakeCalendar{err: assert.AnError}, "U1")
	require.NotPanics(t, func() { o.refresh(context.Background()) })
	assert.Empty(t, o.timers)
}

func TestStop_StopsOutstandingTimersAndReturns(t *testing.T) {
	o := New(&fakeService{}, &fakeCalendar{}, "U1")
	stubTimers(o, "e1")

	done := make(chan struct{})
	go func() {
		o.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	assert.Empty(t, o.timers)
}
