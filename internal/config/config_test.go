package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_SIGNING_SECRET", "sig-test")
	t.Setenv("SLACK_APP_TOKEN", "xapp-test")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
}

func TestValidate_FailsWhenRequiredVarMissing(t *testing.T) {
	cfg := Load()
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidate_PassesWithRequiredVarsAndDefaults(t *testing.T) {
	setRequiredEnv(t)
	cfg := Load()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_FailsOnInvalidCronForEnabledJob(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STANDUP_CRON", "not a cron")
	cfg := Load()
	assert.Error(t, cfg.Validate())
}

func TestValidate_IgnoresInvalidCronForDisabledJob(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STANDUP_ENABLED", "false")
	t.Setenv("STANDUP_CRON", "not a cron")
	cfg := Load()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_FailsOnInvalidTimezone(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SCHEDULER_TIMEZONE", "Nowhere/Fake")
	cfg := Load()
	assert.Error(t, cfg.Validate())
}

func TestAgentURL_PrefersExplicitURLOverPort(t *testing.T) {
	t.Setenv("PRODUCT_OWNER_URL", "http://agents.internal/po")
	assert.Equal(t, "http://agents.internal/po", agentURL("PRODUCT_OWNER", "10001"))
}

func TestAgentURL_FallsBackToLocalhostPort(t *testing.T) {
	assert.Equal(t, "http://localhost:10001/", agentURL("PRODUCT_OWNER", "10001"))
}

func TestParseStaticUserMap(t *testing.T) {
	got := parseStaticUserMap("U123=Alice, U456=Bob")
	assert.Equal(t, map[string]string{"U123": "Alice", "U456": "Bob"}, got)
}

func TestParseStaticUserMap_Empty(t *testing.T) {
	assert.Empty(t, parseStaticUserMap(""))
}
