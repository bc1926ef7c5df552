// Package intent implements the Intent Router (C3): a three-tier classifier
// (deterministic keyword pre-filter, then an LLM call, then a broader
// keyword fallback) that always resolves to one of the six closed-set
// intents and one of the four agent keys.
package intent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/config"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/llm"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/logger"
)

// Intent is the closed set from spec §3.
type Intent string

const (
	IntentCreateTask   Intent = "create-task"
	IntentBoardStatus  Intent = "board-status"
	IntentMeetingSync  Intent = "meeting-sync"
	IntentCalendar     Intent = "calendar"
	IntentDrive        Intent = "drive"
	IntentAgentChat    Intent = "agent-chat"
)

func validIntent(i Intent) bool {
	switch i {
	case IntentCreateTask, IntentBoardStatus, IntentMeetingSync, IntentCalendar, IntentDrive, IntentAgentChat:
		return true
	default:
		return false
	}
}

// Result is what classify returns: an intent and the agent key that should
// handle it.
type Result struct {
	Intent   Intent
	AgentKey config.AgentKey
}

// tier1Rule is one ordered, first-match-wins keyword pre-filter entry
// (spec §4.3 table).
type tier1Rule struct {
	phrases []string
	result  Result
}

var tier1Rules = []tier1Rule{
	{[]string{"create a task", "create task", "make a task", "add a task", "new task"}, Result{IntentCreateTask, config.AgentProductOwner}},
	{[]string{"board status", "sprint status", "standup", "stand-up"}, Result{IntentBoardStatus, config.AgentScrumMaster}},
	{[]string{"sync meeting", "meeting sync", "sync meetings"}, Result{IntentMeetingSync, config.AgentProductOwner}},
	{[]string{"calendar", "schedule", "what's on my", "my agenda", "my meetings today", "book a meeting"}, Result{IntentCalendar, config.AgentProductOwner}},
	{[]string{"find the file", "search drive", "google drive", "my drive", "find the doc", "find document"}, Result{IntentDrive, config.AgentProductOwner}},
}

// tier3Rule is the broader fallback keyword set used both when no Tier 1
// rule fires and Tier 2 fails outright.
var tier3Rules = []tier1Rule{
	{[]string{"status", "blocked", "summary", "progress"}, Result{IntentBoardStatus, config.AgentScrumMaster}},
	{[]string{"task", "todo", "to-do"}, Result{IntentCreateTask, config.AgentProductOwner}},
	{[]string{"meeting", "transcript", "notes"}, Result{IntentMeetingSync, config.AgentProductOwner}},
	{[]string{"file", "document", "doc "}, Result{IntentDrive, config.AgentProductOwner}},
}

var defaultResult = Result{IntentAgentChat, config.AgentProductOwner}

func matchRules(lower string, rules []tier1Rule) (Result, bool) {
	for _, rule := range rules {
		for _, phrase := range rule.phrases {
			if strings.Contains(lower, phrase) {
				return rule.result, true
			}
		}
	}
	return Result{}, false
}

// tier3 is exported (lowercase text in, Result out) because it is also the
// fallback invoked whenever Tier 2 fails (spec §4.3).
func tier3(text string) Result {
	lower := strings.ToLower(text)
	if r, ok := matchRules(lower, tier3Rules); ok {
		return r
	}
	return defaultResult
}

const classifierSystemPrompt = `You are an intent classifier for a Slack-to-agent gateway. Given a user's message, respond with a single JSON object and nothing else: {"intent": "<intent>", "agentKey": "<agentKey>"}.

Valid intents: create-task, board-status, meeting-sync, calendar, drive, agent-chat.
Valid agent keys: product-owner, developer, reviewer, scrum-master.

Pick the intent that best matches what the user is asking for. When in doubt, use agent-chat with product-owner.`

type classifierReply struct {
	Intent   string `json:"intent"`
	AgentKey string `json:"agentKey"`
}

// Router classifies free text into (Intent, AgentKey). Constructed with an
// *llm.Client rather than reaching for a global — see SPEC_FULL.md §5.
type Router struct {
	llmClient *llm.Client
}

func NewRouter(llmClient *llm.Client) *Router {
	return &Router{llmClient: llmClient}
}

// Classify runs the three tiers in order and always returns a valid
// Result (spec §8 property 10): Tier 1 keyword match, else an LLM call
// parsed strictly against the closed sets, else the Tier 3 keyword
// fallback / default.
func (r *Router) Classify(ctx context.Context, text string) Result {
	log := logger.For("intent-router")
	lower := strings.ToLower(text)

	if result, ok := matchRules(lower, tier1Rules); ok {
		log.Info("classified via tier1", "intent", result.Intent, "agentKey", result.AgentKey)
		return result
	}

	if result, ok := r.tier2(ctx, text); ok {
		log.Info("classified via tier2", "intent", result.Intent, "agentKey", result.AgentKey)
		return result
	}

	result := tier3(text)
	log.Info("classified via tier3 fallback", "intent", result.Intent, "agentKey", result.AgentKey)
	return result
}

func (r *Router) tier2(ctx context.Context, text string) (Result, bool) {
	log := logger.For("intent-router")
	if r.llmClient == nil {
		return Result{}, false
	}

	reply, err := r.llmClient.Complete(ctx, classifierSystemPrompt, text)
	if err != nil {
		log.Warn("tier2 llm call failed", "err", err)
		return Result{}, false
	}

	cleaned := stripCodeFences(reply)
	var parsed classifierReply
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		log.Warn("tier2 reply not valid json", "err", err)
		return Result{}, false
	}

	result := Result{Intent: Intent(parsed.Intent), AgentKey: config.AgentKey(parsed.AgentKey)}
	if !validIntent(result.Intent) {
		log.Warn("tier2 reply had unknown intent", "intent", parsed.Intent)
		return Result{}, false
	}
	if !validAgentKey(result.AgentKey) {
		result.AgentKey = config.AgentProductOwner
	}
	return result, true
}

func validAgentKey(k config.AgentKey) bool {
	switch k {
	case config.AgentProductOwner, config.AgentDeveloper, config.AgentReviewer, config.AgentScrumMaster:
		return true
	default:
		return false
	}
}

// stripCodeFences removes a leading/trailing ``` or ```json fence, which
// LLMs commonly wrap JSON replies in despite being asked not to.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
