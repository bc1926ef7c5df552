// Package webhook implements the gateway's two inbound HTTP routes (spec
// §6): the shared-secret-protected /api/agent-notify push endpoint and the
// OAuth redirect callback, both mounted on a chi router in cmd/gateway.
package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/slack-go/slack"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/logger"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/oauth"
	"github.com/m-AI-by-moveo/monday-for-agents/internal/render"
)

// notifyRequest is the inbound JSON body for POST /api/agent-notify (spec
// §6's Agent Notification Message shape, SPEC_FULL.md §4 supplemented
// feature). Blocks is kept raw since slack.Block is an interface;
// decodeBlocks dispatches it through slack-go's own per-type unmarshaling.
type notifyRequest struct {
	Channel  string          `json:"channel"`
	Text     string          `json:"text"`
	ThreadTs string          `json:"thread_ts,omitempty"`
	Blocks   json.RawMessage `json:"blocks,omitempty"`
}

// decodeBlocks parses a Block Kit blocks array the way Slack's own API
// responses carry it, by re-wrapping it into the shape slack.Blocks expects
// and letting its UnmarshalJSON pick the concrete Block type per element.
func decodeBlocks(raw json.RawMessage) ([]slack.Block, error) {
	wrapped := append(append([]byte(`{"blocks":`), raw...), '}')
	var parsed slack.Blocks
	if err := json.Unmarshal(wrapped, &parsed); err != nil {
		return nil, err
	}
	return parsed.BlockSet, nil
}

// Handler wires the agent-notify and OAuth-callback routes into a chi
// router.
type Handler struct {
	sharedSecret string
	poster       NotifyPoster
	broker       *oauth.Broker
	onConnected  func(subjectID string)
}

// NotifyPoster is the narrow posting capability /api/agent-notify needs.
type NotifyPoster interface {
	PostToChannel(channelID, threadTs string, payload render.Payload) error
}

func New(sharedSecret string, poster NotifyPoster, broker *oauth.Broker, onConnected func(subjectID string)) *Handler {
	return &Handler{sharedSecret: sharedSecret, poster: poster, broker: broker, onConnected: onConnected}
}

// Mount registers this handler's routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/api/agent-notify", h.handleAgentNotify)
	r.Get("/api/google/callback", h.handleOAuthCallback)
}

// handleAgentNotify requires the same X-API-Key shared secret A2A calls
// outbound with (REDESIGN FLAG, SPEC_FULL.md §5) and posts the given text
// to the given channel.
func (h *Handler) handleAgentNotify(w http.ResponseWriter, r *http.Request) {
	log := logger.For("webhook")

	if h.sharedSecret == "" || subtle.ConstantTimeCompare([]byte(r.Header.Get("X-API-Key")), []byte(h.sharedSecret)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "error": "invalid or missing X-API-Key"})
		return
	}

	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid JSON body"})
		return
	}
	if req.Channel == "" || req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "channel and text are required"})
		return
	}

	payload := render.Payload{Text: req.Text}
	if len(req.Blocks) > 0 {
		blocks, err := decodeBlocks(req.Blocks)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid blocks JSON"})
			return
		}
		payload.Blocks = blocks
	}
	if err := h.poster.PostToChannel(req.Channel, req.ThreadTs, payload); err != nil {
		log.Error("agent-notify post failed", "channel", req.Channel, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "failed to post message"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleOAuthCallback delegates state validation and token exchange to the
// OAuth broker (spec §4.5).
func (h *Handler) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	log := logger.For("webhook")

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		http.Error(w, "missing code or state", http.StatusBadRequest)
		return
	}

	subjectID, err := h.broker.HandleCallback(r.Context(), code, state)
	if err != nil {
		log.Warn("oauth callback failed", "err", err)
		http.Error(w, "oauth connection failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	if h.onConnected != nil {
		h.onConnected(subjectID)
	}

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<html><body>Google account connected. You can close this tab.</body></html>"))
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
