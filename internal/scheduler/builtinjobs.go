package scheduler

import (
	"context"
	"strings"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/a2a"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/render"
)

// staleTaskSentinel is the fixed literal a downstream agent returns to opt
// out of posting (spec §4.9, glossary "Sentinel reply").
const staleTaskSentinel = "NO_STALE_TASKS"

// Poster delivers a rendered payload to the configured notification
// channel. Implemented by internal/slackgw; declared here (rather than
// imported) so this package stays a leaf the Slack layer depends on, not
// the reverse.
type Poster interface {
	PostToNotifyChannel(ctx context.Context, payload render.Payload) error
}

// BuiltinJobDeps is what the three fixed scrum-master jobs need.
type BuiltinJobDeps struct {
	A2AClient      *a2a.Client
	ScrumMasterURL string
	Poster         Poster
}

// NewStandupJob wraps the scrum-master agent with a fixed prompt and the
// standup block style (spec §4.9).
func NewStandupJob(id string, cfg Job, deps BuiltinJobDeps) Job {
	cfg.ID = id
	cfg.Execute = func(ctx context.Context) Result {
		return runScrumMasterPrompt(ctx, deps, "Give me today's standup summary for the team.", render.StandupBlocks, false)
	}
	return cfg
}

// NewStaleTaskJob additionally honors the NO_STALE_TASKS sentinel: if the
// agent's reply contains it, the job succeeds without posting (spec §4.9,
// §8 property 9).
func NewStaleTaskJob(id string, cfg Job, deps BuiltinJobDeps) Job {
	cfg.ID = id
	cfg.Execute = func(ctx context.Context) Result {
		return runScrumMasterPrompt(ctx, deps, "List any stale tasks (no update in 3+ days). If there are none, reply with exactly NO_STALE_TASKS.", render.StaleTaskBlocks, true)
	}
	return cfg
}

// NewWeeklySummaryJob wraps the scrum-master agent's weekly rollup.
func NewWeeklySummaryJob(id string, cfg Job, deps BuiltinJobDeps) Job {
	cfg.ID = id
	cfg.Execute = func(ctx context.Context) Result {
		return runScrumMasterPrompt(ctx, deps, "Summarize this week's progress across the board.", render.WeeklySummaryBlocks, false)
	}
	return cfg
}

func runScrumMasterPrompt(ctx context.Context, deps BuiltinJobDeps, prompt string, renderFn func(string) render.Payload, honorSentinel bool) Result {
	resp := deps.A2AClient.SendMessage(ctx, deps.ScrumMasterURL, prompt, "")
	if resp.Error != nil {
		return Result{Success: false, Err: &jobError{resp.Error.Message}}
	}

	text := a2a.ExtractText(resp.Result)
	if honorSentinel && strings.Contains(text, staleTaskSentinel) {
		return Result{Success: true, Posted: false}
	}

	if err := deps.Poster.PostToNotifyChannel(ctx, renderFn(text)); err != nil {
		return Result{Success: false, Err: err}
	}
	return Result{Success: true, Posted: true}
}

type jobError struct{ msg string }

func (e *jobError) Error() string { return e.msg }
