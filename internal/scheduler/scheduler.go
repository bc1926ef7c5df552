// Package scheduler implements the Scheduled-Job Runtime (C9): register a
// job, validate its cron expression at startup, run it under a per-job
// overlap guard, and track consecutive failures — grounded on the cron
// engine + entry-map + overlap-guard idiom of teradata-labs-loom's
// pkg/scheduler/scheduler.go, generalized from workflow execution to this
// gateway's simpler execute(ctx) (Result, error) job contract.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/domain"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/logger"
)

// Result is what a job's ExecuteFn returns (spec §4.9).
type Result struct {
	Success bool
	Posted  bool
	Err     error
}

// ExecuteFn is one job's unit of work.
type ExecuteFn func(ctx context.Context) Result

// Job is a Scheduled Job entity (spec §3/§4.9).
type Job struct {
	ID             string
	Name           string
	CronExpression string
	Enabled        bool
	Execute        ExecuteFn
}

type jobState struct {
	job                 Job
	running             bool
	lastRunUnixMs       int64
	lastResult          Result
	consecutiveFailures int
}

// Scheduler runs registered jobs on their cron schedules. Constructed once
// and injected — never a package-level singleton.
type Scheduler struct {
	mu       sync.Mutex
	jobs     map[string]*jobState
	cronRef  *cron.Cron
	entries  map[string]cron.EntryID
	timezone *time.Location
	log      interface {
		Info(msg string, args ...any)
		Warn(msg string, args ...any)
		Error(msg string, args ...any)
	}
}

func New() *Scheduler {
	return &Scheduler{
		jobs:    make(map[string]*jobState),
		entries: make(map[string]cron.EntryID),
		log:     logger.For("scheduler"),
	}
}

// Register adds a job. Must be called before StartAll. Registering an
// enabled job with an invalid cron expression is caught by StartAll, not
// here, mirroring spec §4.9's "validated at startup" wording — all jobs are
// typically registered first, then StartAll validates the full set.
func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = &jobState{job: job}
}

// StartAll validates every enabled job's cron expression (a failure here is
// a ConfigError the caller should treat as fatal per spec §6), then starts
// the cron engine. Disabled jobs are never scheduled.
func (s *Scheduler) StartAll(timezone string) error {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("scheduler: invalid timezone %q: %w", timezone, err)
	}
	s.timezone = loc

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cronRef = cron.New(cron.WithLocation(loc))
	for id, st := range s.jobs {
		if !st.job.Enabled {
			continue
		}
		jobID := id
		entryID, err := s.cronRef.AddFunc(st.job.CronExpression, func() { s.runTick(jobID) })
		if err != nil {
			return fmt.Errorf("scheduler: invalid cron expression %q for job %q: %w", st.job.CronExpression, jobID, err)
		}
		s.entries[jobID] = entryID
	}
	s.cronRef.Start()
	s.log.Info("scheduler started", "timezone", timezone, "jobs", len(s.entries))
	return nil
}

// StopAll stops the cron engine, waiting for in-flight ticks to finish.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	cronRef := s.cronRef
	s.mu.Unlock()
	if cronRef == nil {
		return
	}
	ctx := cronRef.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

// runTick is the overlap-guarded entry point invoked by the cron engine.
func (s *Scheduler) runTick(jobID string) {
	s.mu.Lock()
	st, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if st.running {
		s.log.Warn("skipping tick, previous run still in flight", "job", jobID)
		s.mu.Unlock()
		return
	}
	st.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		st.running = false
		s.mu.Unlock()
	}()

	result := s.safeExecute(st.job)

	s.mu.Lock()
	st.lastRunUnixMs = time.Now().UnixMilli()
	st.lastResult = result
	if result.Success {
		st.consecutiveFailures = 0
	} else {
		st.consecutiveFailures++
	}
	s.mu.Unlock()
}

// safeExecute recovers a panicking job so one bad job can never crash the
// process (spec §4.9: "the runtime never crashes the process due to a job
// failure").
func (s *Scheduler) safeExecute(job Job) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("job panicked", "job", job.ID, "panic", r)
			result = Result{Success: false, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	return job.Execute(ctx)
}

// TriggerNow runs jobID's tick immediately, synchronously, bypassing the
// cron schedule — used by tests (spec §8 scenario S5).
func (s *Scheduler) TriggerNow(jobID string) {
	s.runTick(jobID)
}

// GetStatus returns a snapshot of every registered job's runtime state
// (spec §4.9).
func (s *Scheduler) GetStatus() []domain.JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.JobStatus, 0, len(s.jobs))
	for _, st := range s.jobs {
		errText := ""
		if st.lastResult.Err != nil {
			errText = st.lastResult.Err.Error()
		}
		out = append(out, domain.JobStatus{
			ID:                  st.job.ID,
			Name:                st.job.Name,
			CronExpression:      st.job.CronExpression,
			Enabled:             st.job.Enabled,
			Running:             st.running,
			LastRunUnixMs:       st.lastRunUnixMs,
			LastResultSuccess:   st.lastResult.Success,
			LastResultPosted:    st.lastResult.Posted,
			LastResultError:     errText,
			ConsecutiveFailures: st.consecutiveFailures,
		})
	}
	return out
}
