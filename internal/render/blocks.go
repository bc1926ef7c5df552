// Package render implements the Rendering Library (C11): pure functions
// from domain values to platform block payloads plus fallback text. Each
// block kind is built with slack-go/slack's own typed block structs rather
// than a stringly-typed map — the closed, compile-checked union the
// REDESIGN FLAG in SPEC_FULL.md §5 asks for.
package render

import (
	"fmt"

	"github.com/slack-go/slack"
)

// Payload is what every builder returns: blocks for rich clients plus a
// fallback text for notifications/screen readers (spec §4.11).
type Payload struct {
	Blocks []slack.Block
	Text   string
}

func section(mrkdwn string) *slack.SectionBlock {
	return slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", mrkdwn, false, false), nil, nil)
}

func header(text string) *slack.HeaderBlock {
	return slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", text, false, false))
}

// AgentResponseBlocks renders a successful agent reply attributed to
// agentKey.
func AgentResponseBlocks(agentKey, text string) Payload {
	body := ConvertMarkdown(text)
	return Payload{
		Blocks: []slack.Block{
			section(fmt.Sprintf("*%s*\n%s", agentKey, body)),
		},
		Text: body,
	}
}

// ErrorBlocks renders a JSON-RPC error field's message in the originating
// thread (spec §7, RemoteAgentError).
func ErrorBlocks(message string) Payload {
	text := fmt.Sprintf(":x: %s", message)
	return Payload{Blocks: []slack.Block{section(text)}, Text: text}
}

// WarningBlocks renders a transport failure as a non-fatal, user-visible
// warning (spec §7, TransportError).
func WarningBlocks(message string) Payload {
	text := fmt.Sprintf(":warning: %s", message)
	return Payload{Blocks: []slack.Block{section(text)}, Text: text}
}

// NoResponseBlocks renders the case where a JSON-RPC call succeeded but
// carried no task result.
func NoResponseBlocks() Payload {
	text := ":grey_question: The agent did not return a response."
	return Payload{Blocks: []slack.Block{section(text)}, Text: text}
}

// LoadingBlocks renders the ephemeral "working on it" block posted before
// dispatch (spec §4.6 step 4).
func LoadingBlocks() Payload {
	text := ":hourglass_flowing_sand: Working on it…"
	return Payload{Blocks: []slack.Block{section(text)}, Text: text}
}

// GreetingBlocks renders the fixed-text greeting for an empty mention
// (spec §4.6 step 2).
func GreetingBlocks() Payload {
	text := "Hey! How can I help?"
	return Payload{Blocks: []slack.Block{section(text)}, Text: text}
}

// ConnectBlocks renders a connect-to-Google link for an intent that
// requires OAuth but has no token record (spec §4.7, §7 AuthError).
func ConnectBlocks(authURL string) Payload {
	text := fmt.Sprintf(":link: Connect your Google account to use this: <%s|Connect>", authURL)
	return Payload{Blocks: []slack.Block{section(text)}, Text: text}
}
