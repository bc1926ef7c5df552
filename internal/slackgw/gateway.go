// Package slackgw implements the Mention / DM / Thread Handlers (C6): the
// Socket Mode event loop, loop suppression, and dispatch into the Intent
// Handlers and Interactive Preview Engine. Grounded on the Socket Mode
// event-dispatch idiom (socketmode.Client + slackevents type-switch) a
// sibling bridge-bot in the retrieval pack uses for its own Slack
// integration.
//
// Split across three files:
//   - gateway.go — struct, Run, the Socket Mode event switch
//   - mentions.go — mention/DM/thread-reply handling, history fetch
//   - commands.go — slash command routing
package slackgw

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/config"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/intent"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/intenthandlers"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/logger"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/oauth"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/preview"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/render"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/scheduler"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/session"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/workspace"
)

// Deps bundles every collaborator the gateway dispatches into. Built once
// in cmd/gateway — no package-level singleton (SPEC_FULL.md §5).
type Deps struct {
	API    *slack.Client
	Socket *socketmode.Client

	Sessions   *session.Store
	Router     *intent.Router
	Dispatcher *intenthandlers.Dispatcher
	Directory  *workspace.Directory
	Scheduler  *scheduler.Scheduler
	Preview    *preview.Engine
	OAuth      *oauth.Broker

	AgentURLs       map[config.AgentKey]string
	NotifyChannelID string
	OAuthAuthURLFor func(subjectID string) string
}

// Gateway is the Slack Socket Mode transport layer.
type Gateway struct {
	api    *slack.Client
	socket *socketmode.Client
	deps   Deps

	botUserID string // resolved once in Run, read-only after
}

func New(deps Deps) *Gateway {
	return &Gateway{api: deps.API, socket: deps.Socket, deps: deps}
}

// Run authenticates, resolves the bot's own user id (used by loop
// suppression), and blocks on the Socket Mode event loop until ctx is
// cancelled.
func (g *Gateway) Run(ctx context.Context) error {
	log := logger.For("slackgw")

	auth, err := g.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slackgw: auth test: %w", err)
	}
	g.botUserID = auth.UserID
	log.Info("slack socket mode authenticated", "user_id", g.botUserID, "team", auth.Team)

	go g.handleEvents(ctx)
	return g.socket.RunContext(ctx)
}

func (g *Gateway) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-g.socket.Events:
			if !ok {
				return
			}
			g.handleEvent(ctx, evt)
		}
	}
}

func (g *Gateway) handleEvent(ctx context.Context, evt socketmode.Event) {
	log := logger.For("slackgw")

	switch evt.Type {
	case socketmode.EventTypeConnecting:
		log.Info("socket mode connecting")

	case socketmode.EventTypeConnected:
		log.Info("socket mode connected")

	case socketmode.EventTypeConnectionError:
		log.Error("socket mode connection error")

	case socketmode.EventTypeEventsAPI:
		event, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		g.socket.Ack(*evt.Request)
		g.handleEventsAPI(ctx, event)

	case socketmode.EventTypeInteractive:
		callback, ok := evt.Data.(slack.InteractionCallback)
		if !ok {
			return
		}
		g.handleInteraction(ctx, evt, callback)

	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		g.socket.Ack(*evt.Request)
		g.handleSlashCommand(ctx, cmd)
	}
}

func (g *Gateway) handleEventsAPI(ctx context.Context, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		g.handleMessageEvent(ctx, ev)
	case *slackevents.AppMentionEvent:
		g.handleAppMention(ctx, ev)
	}
}

// handleInteraction routes button clicks and modal submissions to the
// Interactive Preview Engine (spec §4.8).
func (g *Gateway) handleInteraction(ctx context.Context, evt socketmode.Event, callback slack.InteractionCallback) {
	log := logger.For("slackgw")
	switch callback.Type {
	case slack.InteractionTypeBlockActions:
		g.socket.Ack(*evt.Request)
		if err := g.deps.Preview.HandleBlockAction(ctx, &callback); err != nil {
			log.Error("handling block action", "err", err)
		}
	case slack.InteractionTypeViewSubmission:
		g.socket.Ack(*evt.Request)
		if err := g.deps.Preview.HandleViewSubmission(ctx, &callback); err != nil {
			log.Error("handling view submission", "err", err)
		}
	default:
		g.socket.Ack(*evt.Request)
	}
}

// postPayload posts payload to channelID (in threadTs if non-empty) and
// returns the new message's timestamp.
func (g *Gateway) postPayload(ctx context.Context, channelID, threadTs string, payload render.Payload) (string, error) {
	opts := []slack.MsgOption{slack.MsgOptionBlocks(payload.Blocks...), slack.MsgOptionText(payload.Text, false)}
	if threadTs != "" {
		opts = append(opts, slack.MsgOptionTS(threadTs))
	}
	_, ts, err := g.api.PostMessageContext(ctx, channelID, opts...)
	return ts, err
}

func (g *Gateway) postEphemeral(ctx context.Context, channelID, userID, threadTs string, payload render.Payload) {
	opts := []slack.MsgOption{slack.MsgOptionBlocks(payload.Blocks...), slack.MsgOptionText(payload.Text, false)}
	if threadTs != "" {
		opts = append(opts, slack.MsgOptionTS(threadTs))
	}
	if _, err := g.api.PostEphemeralContext(ctx, channelID, userID, opts...); err != nil {
		logger.For("slackgw").Warn("posting ephemeral block failed", "channel", channelID, "err", err)
	}
}

// PostToNotifyChannel implements scheduler.Poster for the built-in
// scrum-master jobs (spec §4.9).
func (g *Gateway) PostToNotifyChannel(ctx context.Context, payload render.Payload) error {
	_, err := g.postPayload(ctx, g.deps.NotifyChannelID, "", payload)
	return err
}

// PostToChannel implements webhook.NotifyPoster for /api/agent-notify
// (spec §6).
func (g *Gateway) PostToChannel(channelID, threadTs string, payload render.Payload) error {
	_, err := g.postPayload(context.Background(), channelID, threadTs, payload)
	return err
}
