package slackgw

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/config"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/intent"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/logger"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/render"
)

// handleSlashCommand routes the supplemented slash-command surface
// (SPEC_FULL.md §4, supplemented feature: slash commands give every
// closed-set intent a direct entry point alongside mention/DM routing).
func (g *Gateway) handleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	switch cmd.Command {
	case "/agents":
		g.respondSlash(ctx, cmd, render.AgentsCardBlocks(stringifyAgentURLs(g.deps.AgentURLs)))
	case "/status", "/scheduler":
		g.respondSlash(ctx, cmd, render.SchedulerStatusBlocks(g.deps.Scheduler.GetStatus()))
	case "/google":
		g.handleGoogleCommand(ctx, cmd)
	case "/gcal":
		g.dispatchSlashIntent(ctx, cmd, intent.IntentCalendar, config.AgentProductOwner)
	case "/gdrive":
		g.dispatchSlashIntent(ctx, cmd, intent.IntentDrive, config.AgentProductOwner)
	case "/create-task":
		g.dispatchSlashIntent(ctx, cmd, intent.IntentCreateTask, config.AgentProductOwner)
	case "/meeting-sync":
		g.dispatchSlashIntent(ctx, cmd, intent.IntentMeetingSync, config.AgentProductOwner)
	default:
		g.respondSlash(ctx, cmd, render.ErrorBlocks(fmt.Sprintf("unknown command %q", cmd.Command)))
	}
}

// handleGoogleCommand implements /google connect|disconnect|status (spec
// §4.5).
func (g *Gateway) handleGoogleCommand(ctx context.Context, cmd slack.SlashCommand) {
	switch strings.TrimSpace(cmd.Text) {
	case "disconnect":
		if err := g.deps.OAuth.Disconnect(ctx, cmd.UserID); err != nil {
			g.respondSlash(ctx, cmd, render.ErrorBlocks("failed to disconnect: "+err.Error()))
			return
		}
		g.respondSlash(ctx, cmd, render.Payload{Text: "Disconnected your Google account."})
	case "status":
		if g.deps.OAuth.IsConnected(ctx, cmd.UserID) {
			g.respondSlash(ctx, cmd, render.Payload{Text: "Your Google account is connected."})
			return
		}
		g.respondSlash(ctx, cmd, render.ConnectBlocks(g.deps.OAuthAuthURLFor(cmd.UserID)))
	default:
		g.respondSlash(ctx, cmd, render.ConnectBlocks(g.deps.OAuthAuthURLFor(cmd.UserID)))
	}
}

// dispatchSlashIntent posts a placeholder message to establish a thread
// root, then runs the fixed intent through the same dispatch path a
// classified mention/DM would take.
func (g *Gateway) dispatchSlashIntent(ctx context.Context, cmd slack.SlashCommand, in intent.Intent, agentKey config.AgentKey) {
	ts, err := g.postPayload(ctx, cmd.ChannelID, "", render.LoadingBlocks())
	if err != nil {
		logger.For("slackgw").Error("posting slash-command placeholder", "command", cmd.Command, "err", err)
		return
	}
	g.continueDispatch(ctx, cmd.ChannelID, cmd.UserID, ts, cmd.Text, intent.Result{Intent: in, AgentKey: agentKey})
}

func (g *Gateway) respondSlash(ctx context.Context, cmd slack.SlashCommand, payload render.Payload) {
	if _, err := g.api.PostEphemeralContext(ctx, cmd.ChannelID, cmd.UserID,
		slack.MsgOptionBlocks(payload.Blocks...), slack.MsgOptionText(payload.Text, false),
	); err != nil {
		logger.For("slackgw").Error("responding to slash command failed", "command", cmd.Command, "err", err)
	}
}

func stringifyAgentURLs(agentURLs map[config.AgentKey]string) map[string]string {
	out := make(map[string]string, len(agentURLs))
	for k, v := range agentURLs {
		out[string(k)] = v
	}
	return out
}
