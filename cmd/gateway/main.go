// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command gateway wires every gateway module into a single running
// process: one Slack Socket Mode connection, one HTTP listener for the
// agent-notify and OAuth-callback routes, one scheduler, and (if a meeting
// sync subject is configured) one reactive meeting-sync orchestrator.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/a2a"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/config"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/intent"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/intenthandlers"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/llm"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/logger"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/meetingsync"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/oauth"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/preview"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/scheduler"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/session"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/slackgw"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/store"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/webhook"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/workspace"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintln(os.Stderr, "loading .env files:", err)
		os.Exit(1)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	level, _ := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	output := os.Stderr
	if path := os.Getenv("LOG_FILE"); path != "" {
		file, cleanup, err := logger.OpenLogFile(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "opening log file:", err)
			os.Exit(1)
		}
		defer cleanup()
		output = file
	}
	logger.Init(level, output, os.Getenv("LOG_FORMAT"))
	log := logger.For("gateway")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	tokenStore, err := store.Open(cfg.TokenStorePath)
	if err != nil {
		log.Error("opening token store", "err", err)
		os.Exit(1)
	}
	meetingStore, err := store.Open(cfg.MeetingStorePath)
	if err != nil {
		log.Error("opening meeting store", "err", err)
		os.Exit(1)
	}

	a2aClient := a2a.NewClient(cfg.SharedSecret)
	llmClient := llm.NewClient(cfg.LLMAPIKey, cfg.LLMModel)
	sessionStore := session.NewStore()
	router := intent.NewRouter(llmClient)

	slackAPI := slack.New(cfg.SlackBotToken, slack.OptionAppLevelToken(cfg.SlackAppToken))
	socketClient := socketmode.New(slackAPI, socketmode.OptionDebug(level == -4 /* slog.LevelDebug */))

	directory := workspace.NewDirectory(slackAPI, cfg.StaticUserMap)
	mondayClient := workspace.NewMondayClient(cfg.WorkspaceAPIToken)

	oauthCfg := oauth2.Config{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		RedirectURL:  cfg.OAuthRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/calendar",
			"https://www.googleapis.com/auth/drive",
		},
		Endpoint: google.Endpoint,
	}
	broker := oauth.New(oauthCfg, cfg.OAuthSigningSecret, tokenStore)
	calendarClient := workspace.NewCalendarClient(oauthCfg)
	driveClient := workspace.NewDriveClient(oauthCfg)

	dispatcher := intenthandlers.NewDispatcher(intenthandlers.Deps{
		A2A: a2aClient, AgentURLs: cfg.AgentBaseURLs, LLM: llmClient,
		OAuth: broker, Tokens: tokenStore, Meetings: meetingStore,
		Monday: mondayClient, Calendar: calendarClient, Drive: driveClient,
		OAuthAuthURLFor: broker.AuthURL,
	})

	previewEngine := preview.New(preview.Deps{
		API: slackAPI, A2A: a2aClient, ProductOwnerURL: cfg.AgentBaseURLs[config.AgentProductOwner],
		Meetings: meetingStore, Monday: mondayClient, Directory: directory,
		NotifyChannelID: cfg.NotifyChannelID,
	})
	dispatcher.SetMeetingPreviewPoster(previewEngine.PostMeetingPreview)

	sched := scheduler.New()

	gw := slackgw.New(slackgw.Deps{
		API: slackAPI, Socket: socketClient,
		Sessions: sessionStore, Router: router, Dispatcher: dispatcher,
		Directory: directory, Scheduler: sched, Preview: previewEngine, OAuth: broker,
		AgentURLs: cfg.AgentBaseURLs, NotifyChannelID: cfg.NotifyChannelID,
		OAuthAuthURLFor: broker.AuthURL,
	})

	registerBuiltinJobs(sched, cfg, a2aClient, gw)
	if cfg.SchedulerEnabled {
		if err := sched.StartAll(cfg.SchedulerTZ); err != nil {
			log.Error("starting scheduler", "err", err)
			os.Exit(1)
		}
	}

	var orchestrator *meetingsync.Orchestrator
	if cfg.MeetingSyncSubjectID != "" {
		orchestrator = meetingsync.New(dispatcher, &calendarLister{broker: broker, calendar: calendarClient}, cfg.MeetingSyncSubjectID)
		orchestrator.Start(ctx)
		log.Info("meeting-sync orchestrator started", "subject", cfg.MeetingSyncSubjectID)
	} else {
		log.Info("meeting-sync orchestrator disabled: MEETING_SYNC_SUBJECT_ID not set")
	}

	webhookHandler := webhook.New(cfg.SharedSecret, gw, broker, func(subjectID string) {
		log.Info("google account connected", "subject", subjectID)
	})
	mux := chi.NewRouter()
	webhookHandler.Mount(mux)
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}

	errCh := make(chan error, 2)
	go func() {
		if err := gw.Run(ctx); err != nil {
			errCh <- fmt.Errorf("slack gateway: %w", err)
		}
	}()
	go func() {
		log.Info("http listener starting", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http listener: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error("fatal error, shutting down", "err", err)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown", "err", err)
	}
	sched.StopAll()
	if orchestrator != nil {
		orchestrator.Stop()
	}
	if err := tokenStore.Close(); err != nil {
		log.Warn("closing token store", "err", err)
	}
	if err := meetingStore.Close(); err != nil {
		log.Warn("closing meeting store", "err", err)
	}
	log.Info("shutdown complete")
}

func registerBuiltinJobs(sched *scheduler.Scheduler, cfg *config.Config, a2aClient *a2a.Client, poster scheduler.Poster) {
	deps := scheduler.BuiltinJobDeps{
		A2AClient:      a2aClient,
		ScrumMasterURL: cfg.AgentBaseURLs[config.AgentScrumMaster],
		Poster:         poster,
	}
	sched.Register(scheduler.NewStandupJob("standup", scheduler.Job{
		Name: "Daily Standup", CronExpression: cfg.Jobs["standup"].Cron, Enabled: cfg.Jobs["standup"].Enabled,
	}, deps))
	sched.Register(scheduler.NewStaleTaskJob("stale-task", scheduler.Job{
		Name: "Stale Task Check", CronExpression: cfg.Jobs["stale-task"].Cron, Enabled: cfg.Jobs["stale-task"].Enabled,
	}, deps))
	sched.Register(scheduler.NewWeeklySummaryJob("weekly-summary", scheduler.Job{
		Name: "Weekly Summary", CronExpression: cfg.Jobs["weekly-summary"].Cron, Enabled: cfg.Jobs["weekly-summary"].Enabled,
	}, deps))
}

// calendarLister adapts the OAuth broker and calendar client into the
// narrow read meetingsync.Orchestrator needs to discover today's remaining
// events — kept here rather than in internal/workspace since it needs the
// broker's per-subject token resolution, which workspace doesn't otherwise
// depend on.
type calendarLister struct {
	broker   *oauth.Broker
	calendar *workspace.CalendarClient
}

func (c *calendarLister) ListTodayRemainingEventIDs(ctx context.Context, subjectID string) ([]meetingsync.EventRef, error) {
	tok, err := c.broker.GetClient(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
	events, err := c.calendar.ListEventsInWindow(ctx, tok, now, endOfDay)
	if err != nil {
		return nil, err
	}

	out := make([]meetingsync.EventRef, 0, len(events))
	for _, ev := range events {
		if ev.End.Before(now) {
			continue
		}
		out = append(out, meetingsync.EventRef{ID: ev.ID, End: ev.End})
	}
	return out, nil
}
