package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/gwerrors"
)

// cronParser matches robfig/cron/v3's standard 5-field parser, used only to
// validate expressions at startup (the scheduler itself builds its own
// cron.Cron with the same parser).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// AgentKey is the closed set of downstream worker agents (spec §3).
type AgentKey string

const (
	AgentProductOwner AgentKey = "product-owner"
	AgentDeveloper     AgentKey = "developer"
	AgentReviewer      AgentKey = "reviewer"
	AgentScrumMaster   AgentKey = "scrum-master"
)

// JobConfig is one scheduled job's enable flag + cron expression, read from
// <PREFIX>_ENABLED / <PREFIX>_CRON.
type JobConfig struct {
	Enabled bool
	Cron    string
}

// Config holds every environment variable the gateway recognizes (spec §6).
// Validate() must be called once at startup; a failure there is fatal
// (exit code 1, per spec §6).
type Config struct {
	SlackBotToken      string
	SlackSigningSecret string
	SlackAppToken      string

	LLMAPIKey string
	LLMModel  string

	NotifyChannelID string
	SharedSecret    string // X-API-Key required on outbound A2A + /api/agent-notify

	AgentBaseURLs map[AgentKey]string

	SchedulerEnabled bool
	SchedulerTZ      string
	Jobs             map[string]JobConfig // "standup", "stale-task", "weekly-summary"

	OAuthClientID     string
	OAuthClientSecret string
	OAuthRedirectURL  string
	OAuthSigningSecret string

	WorkspaceAPIToken string
	StaticUserMap     map[string]string // Slack user-id -> display name, missing_scope fallback

	TokenStorePath   string
	MeetingStorePath string

	HTTPAddr string

	// MeetingSyncSubjectID is the Slack user id whose connected Google
	// account the reactive meeting-sync orchestrator polls on a timer
	// (spec §4.10 has no Slack-triggered subject to key off of). Empty
	// disables the orchestrator; /meeting-sync keeps working per-user
	// regardless.
	MeetingSyncSubjectID string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return expandEnvVars(v)
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Load reads the process environment (after LoadEnvFiles has populated it)
// into a Config. It does not validate — call Validate separately so callers
// can decide how to report a ConfigError.
func Load() *Config {
	cfg := &Config{
		SlackBotToken:      os.Getenv("SLACK_BOT_TOKEN"),
		SlackSigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
		SlackAppToken:      os.Getenv("SLACK_APP_TOKEN"),

		LLMAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		LLMModel:  getenv("LLM_MODEL", "claude-sonnet-4-5"),

		NotifyChannelID: os.Getenv("NOTIFY_CHANNEL_ID"),
		SharedSecret:    os.Getenv("A2A_SHARED_SECRET"),

		AgentBaseURLs: map[AgentKey]string{
			AgentProductOwner: agentURL("PRODUCT_OWNER", "10001"),
			AgentDeveloper:    agentURL("DEVELOPER", "10002"),
			AgentReviewer:     agentURL("REVIEWER", "10003"),
			AgentScrumMaster:  agentURL("SCRUM_MASTER", "10004"),
		},

		SchedulerEnabled: getenvBool("SCHEDULER_ENABLED", true),
		SchedulerTZ:      getenv("SCHEDULER_TIMEZONE", "Asia/Jerusalem"),
		Jobs: map[string]JobConfig{
			"standup": {
				Enabled: getenvBool("STANDUP_ENABLED", true),
				Cron:    getenv("STANDUP_CRON", "0 9 * * 1-5"),
			},
			"stale-task": {
				Enabled: getenvBool("STALE_TASK_ENABLED", true),
				Cron:    getenv("STALE_TASK_CRON", "0 15 * * 1-5"),
			},
			"weekly-summary": {
				Enabled: getenvBool("WEEKLY_SUMMARY_ENABLED", true),
				Cron:    getenv("WEEKLY_SUMMARY_CRON", "0 17 * * 5"),
			},
		},

		OAuthClientID:      os.Getenv("OAUTH_CLIENT_ID"),
		OAuthClientSecret:  os.Getenv("OAUTH_CLIENT_SECRET"),
		OAuthRedirectURL:   os.Getenv("OAUTH_REDIRECT_URL"),
		OAuthSigningSecret: os.Getenv("OAUTH_SIGNING_SECRET"),

		WorkspaceAPIToken: getenv("WORKSPACE_API_TOKEN", os.Getenv("SLACK_BOT_TOKEN")),
		StaticUserMap:     parseStaticUserMap(os.Getenv("STATIC_USER_MAP")),

		TokenStorePath:   getenv("TOKEN_STORE_PATH", "./data/tokens.db"),
		MeetingStorePath: getenv("MEETING_STORE_PATH", "./data/meetings.db"),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		MeetingSyncSubjectID: os.Getenv("MEETING_SYNC_SUBJECT_ID"),
	}
	return cfg
}

func agentURL(prefix, defaultPort string) string {
	if full := os.Getenv(prefix + "_URL"); full != "" {
		return full
	}
	port := getenv(prefix+"_PORT", defaultPort)
	return "http://localhost:" + port + "/"
}

// parseStaticUserMap parses "U123=Alice,U456=Bob" into a lookup table, the
// missing_scope fallback for mention resolution (spec §4.6).
func parseStaticUserMap(raw string) map[string]string {
	out := map[string]string{}
	if raw == "" {
		return out
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		out[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return out
}

// Validate cascades through every required-field and cron-expression check.
// Per spec §6, a ConfigError here makes main exit(1).
func (c *Config) Validate() error {
	required := map[string]string{
		"SLACK_BOT_TOKEN":      c.SlackBotToken,
		"SLACK_SIGNING_SECRET": c.SlackSigningSecret,
		"SLACK_APP_TOKEN":      c.SlackAppToken,
		"ANTHROPIC_API_KEY":    c.LLMAPIKey,
	}
	for name, val := range required {
		if val == "" {
			return gwerrors.NewConfigError(fmt.Sprintf("missing required environment variable %s", name))
		}
	}

	if c.SchedulerEnabled {
		for name, job := range c.Jobs {
			if !job.Enabled {
				continue
			}
			if _, err := cronParser.Parse(job.Cron); err != nil {
				return gwerrors.NewConfigError(fmt.Sprintf("invalid cron expression for job %q: %v", name, err))
			}
		}
	}

	if _, err := time.LoadLocation(c.SchedulerTZ); err != nil {
		return gwerrors.NewConfigError(fmt.Sprintf("invalid scheduler timezone %q: %v", c.SchedulerTZ, err))
	}

	return nil
}
