package slackgw

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/config"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/intent"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/intenthandlers"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/logger"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/render"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/session"
)

var mentionRe = regexp.MustCompile(`<@([A-Za-z0-9]+)>`)

// handleMessageEvent implements loop suppression and routes a plain
// message event to either the threaded-reply or the direct-message flow
// (spec §4.6).
func (g *Gateway) handleMessageEvent(ctx context.Context, ev *slackevents.MessageEvent) {
	if ev.User == "" || ev.User == g.botUserID || ev.SubType != "" || ev.BotID != "" {
		return
	}
	if ev.ThreadTimeStamp != "" && ev.ThreadTimeStamp != ev.TimeStamp {
		g.handleThreadReply(ctx, ev)
		return
	}
	if ev.ChannelType == "im" {
		g.handleDirectMessage(ctx, ev)
	}
}

// handleAppMention resolves user mentions out of the text, greets on an
// empty mention, and otherwise starts a new turn rooted at the mention
// (or its existing thread) (spec §4.6).
func (g *Gateway) handleAppMention(ctx context.Context, ev *slackevents.AppMentionEvent) {
	if ev.User == "" || ev.User == g.botUserID {
		return
	}

	text := strings.TrimSpace(g.resolveMentions(ctx, ev.Text))
	if text == "" {
		if _, err := g.postPayload(ctx, ev.Channel, ev.TimeStamp, render.GreetingBlocks()); err != nil {
			logger.For("slackgw").Error("posting greeting", "err", err)
		}
		return
	}

	threadTs := ev.TimeStamp
	if ev.ThreadTimeStamp != "" {
		threadTs = ev.ThreadTimeStamp
	}
	g.dispatchNewTurn(ctx, ev.Channel, ev.User, threadTs, text)
}

// handleDirectMessage runs the same new-turn flow as a mention, treating
// the message's own timestamp as the new thread root (spec §4.6).
func (g *Gateway) handleDirectMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	text := strings.TrimSpace(g.resolveMentions(ctx, ev.Text))
	if text == "" {
		if _, err := g.postPayload(ctx, ev.Channel, ev.TimeStamp, render.GreetingBlocks()); err != nil {
			logger.For("slackgw").Error("posting greeting", "err", err)
		}
		return
	}
	g.dispatchNewTurn(ctx, ev.Channel, ev.User, ev.TimeStamp, text)
}

// handleThreadReply continues an existing session without reclassifying:
// a reply only continues if the thread's session is agent-chat, or the
// channel is a DM (spec §4.6).
func (g *Gateway) handleThreadReply(ctx context.Context, ev *slackevents.MessageEvent) {
	sess := g.deps.Sessions.Get(ev.ThreadTimeStamp)
	if sess == nil {
		return
	}
	isDM := ev.ChannelType == "im"
	if !isDM && (sess.Intent == nil || *sess.Intent != string(intent.IntentAgentChat)) {
		return
	}

	result := intent.Result{Intent: intent.IntentAgentChat, AgentKey: config.AgentKey(sess.AgentKey)}
	history := g.fetchHistory(ctx, ev.Channel)
	ic := intenthandlers.IntentContext{
		ThreadTs: ev.ThreadTimeStamp, MessageText: ev.Text, ChannelID: ev.Channel, UserID: ev.User,
		History: history, Session: &result, ContextID: sess.ContextID,
	}
	reply := g.deps.Dispatcher.Dispatch(ctx, ic)
	g.deliver(ctx, ev.Channel, ev.ThreadTimeStamp, reply)
}

// dispatchNewTurn classifies text and continues the turn.
func (g *Gateway) dispatchNewTurn(ctx context.Context, channelID, userID, threadTs, text string) {
	result := g.deps.Router.Classify(ctx, text)
	g.continueDispatch(ctx, channelID, userID, threadTs, text, result)
}

// continueDispatch posts the ephemeral loading block, upserts the thread's
// session, fetches channel history, and dispatches into the Intent
// Handlers (spec §4.6 steps 4-7).
func (g *Gateway) continueDispatch(ctx context.Context, channelID, userID, threadTs, text string, result intent.Result) {
	g.postEphemeral(ctx, channelID, userID, threadTs, render.LoadingBlocks())

	existing := g.deps.Sessions.Get(threadTs)
	contextID := ""
	if existing != nil {
		contextID = existing.ContextID
	}
	intentStr := string(result.Intent)
	g.deps.Sessions.Set(threadTs, session.Session{
		ContextID: contextID,
		AgentKey:  session.AgentKey(result.AgentKey),
		Intent:    &intentStr,
	})

	history := g.fetchHistory(ctx, channelID)
	ic := intenthandlers.IntentContext{
		ThreadTs: threadTs, MessageText: text, ChannelID: channelID, UserID: userID,
		History: history, Session: &result, ContextID: contextID,
	}
	reply := g.deps.Dispatcher.Dispatch(ctx, ic)
	g.deliver(ctx, channelID, threadTs, reply)
}

// deliver persists any updated agent context id, then either posts a task
// preview (with metadata, via the Preview Engine) or the reply's plain
// payload.
func (g *Gateway) deliver(ctx context.Context, channelID, threadTs string, reply intenthandlers.Reply) {
	if reply.ContextID != "" {
		if sess := g.deps.Sessions.Get(threadTs); sess != nil {
			sess.ContextID = reply.ContextID
			g.deps.Sessions.Set(threadTs, *sess)
		}
	}

	if reply.TaskPreview != nil {
		if err := g.deps.Preview.PostTaskPreview(ctx, *reply.TaskPreview); err != nil {
			logger.For("slackgw").Error("posting task preview", "err", err)
		}
		return
	}

	if _, err := g.postPayload(ctx, channelID, threadTs, reply.Payload); err != nil {
		logger.For("slackgw").Error("posting reply", "channel", channelID, "err", err)
	}
}

// resolveMentions drops the bot's own mention and replaces every other
// <@U...> with the mentioned user's display name (spec §4.6).
func (g *Gateway) resolveMentions(ctx context.Context, text string) string {
	return mentionRe.ReplaceAllStringFunc(text, func(m string) string {
		id := mentionRe.FindStringSubmatch(m)[1]
		if id == g.botUserID {
			return ""
		}
		return "@" + g.deps.Directory.Name(ctx, id)
	})
}

// fetchHistory returns up to the 20 most recent non-bot channel messages,
// oldest first, each prefixed with the sender's resolved display name
// (spec §4.7's "recent Slack channel messages for context").
func (g *Gateway) fetchHistory(ctx context.Context, channelID string) []intenthandlers.ChatMessage {
	log := logger.For("slackgw")

	resp, err := g.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     20,
	})
	if err != nil {
		log.Warn("fetching channel history failed", "channel", channelID, "err", err)
		return nil
	}

	msgs := make([]intenthandlers.ChatMessage, 0, len(resp.Messages))
	for i := len(resp.Messages) - 1; i >= 0; i-- {
		m := resp.Messages[i]
		if m.User == "" || m.User == g.botUserID || m.SubType != "" || m.BotID != "" {
			continue
		}
		msgs = append(msgs, intenthandlers.ChatMessage{
			UserID: m.User,
			Text:   fmt.Sprintf("%s: %s", g.deps.Directory.Name(ctx, m.User), m.Text),
		})
	}
	return msgs
}
