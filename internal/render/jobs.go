package render

import (
	"fmt"
	"time"

	"github.com/slack-go/slack"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/domain"
)

// StatusDashboardBlocks renders the board-status intent's reply (spec
// §4.7).
func StatusDashboardBlocks(text string) Payload {
	body := ConvertMarkdown(text)
	return Payload{
		Blocks: []slack.Block{
			header("Board Status"),
			section(body),
		},
		Text: body,
	}
}

// StandupBlocks renders the daily-standup scheduled job's output (spec
// §4.9).
func StandupBlocks(text string) Payload {
	body := ConvertMarkdown(text)
	return Payload{Blocks: []slack.Block{header(":sunny: Daily Standup"), section(body)}, Text: body}
}

// StaleTaskBlocks renders the stale-task scheduled job's output.
func StaleTaskBlocks(text string) Payload {
	body := ConvertMarkdown(text)
	return Payload{Blocks: []slack.Block{header(":alarm_clock: Stale Tasks"), section(body)}, Text: body}
}

// WeeklySummaryBlocks renders the weekly-summary scheduled job's output.
func WeeklySummaryBlocks(text string) Payload {
	body := ConvertMarkdown(text)
	return Payload{Blocks: []slack.Block{header(":bar_chart: Weekly Summary"), section(body)}, Text: body}
}

// SchedulerStatusBlocks renders getStatus() for the /status and /scheduler
// slash commands (SPEC_FULL.md §4 supplemented feature).
func SchedulerStatusBlocks(statuses []domain.JobStatus) Payload {
	blocks := []slack.Block{header("Scheduler Status")}
	for _, st := range statuses {
		icon := ":large_green_circle:"
		if !st.Enabled {
			icon = ":white_circle:"
		} else if st.ConsecutiveFailures > 0 {
			icon = ":red_circle:"
		}
		line := fmt.Sprintf("%s *%s* (`%s`) — cron `%s`\nfailures: %d", icon, st.Name, st.ID, st.CronExpression, st.ConsecutiveFailures)
		if st.LastRunUnixMs > 0 {
			line += fmt.Sprintf(" · last run: %s", time.UnixMilli(st.LastRunUnixMs).Format(time.RFC3339))
		}
		if st.Running {
			line += " · _running now_"
		}
		blocks = append(blocks, section(line))
	}
	return Payload{Blocks: blocks, Text: "Scheduler Status"}
}

// AgentsCardBlocks renders the /agents slash command's static listing
// (SPEC_FULL.md §4 supplemented feature).
func AgentsCardBlocks(agentURLs map[string]string) Payload {
	blocks := []slack.Block{header("Configured Agents")}
	for key, url := range agentURLs {
		blocks = append(blocks, section(fmt.Sprintf("*%s* — `%s`", key, url)))
	}
	return Payload{Blocks: blocks, Text: "Configured Agents"}
}
