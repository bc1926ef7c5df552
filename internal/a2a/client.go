package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/logger"
)

// requestTimeout is the soft per-request deadline from spec §4.1: agents
// may be slow, and a timeout is reported as a synthetic error response, not
// a thrown failure.
const requestTimeout = 120 * time.Second

// Client speaks JSON-RPC 2.0 to a single downstream agent's base URL per
// call — there is one Client shared across all four agent base URLs,
// mirroring the REDESIGN FLAG that the A2A client is a constructed,
// injected dependency rather than a package-level singleton.
type Client struct {
	httpClient *http.Client
	sharedKey  string
	log        *slog.Logger
}

// NewClient constructs a Client. sharedKey, if non-empty, is sent as
// X-API-Key on every request (spec §4.1); pass "" when no shared secret is
// configured.
func NewClient(sharedKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		sharedKey:  sharedKey,
		log:        logger.For("a2a-client"),
	}
}

func synthError(format string, args ...interface{}) *Response {
	return &Response{
		JSONRPC: "2.0",
		Error: &RPCError{
			Code:    TransportErrorCode,
			Message: fmt.Sprintf(format, args...),
		},
	}
}

// do POSTs a JSON-RPC envelope to baseURL and decodes the response. All
// transport failures are converted to a synthetic -32000 response here —
// this method never returns a non-nil error to its A2A-level callers.
func (c *Client) do(ctx context.Context, baseURL string, req rpcRequest) *Response {
	body, err := json.Marshal(req)
	if err != nil {
		return synthError("encoding request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(body))
	if err != nil {
		return synthError("building request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Correlation-ID", uuid.NewString())
	if c.sharedKey != "" {
		httpReq.Header.Set("X-API-Key", c.sharedKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Warn("a2a transport failure", "url", baseURL, "method", req.Method, "err", err)
		return synthError("calling %s: %v", baseURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return synthError("reading response body: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return synthError("agent returned HTTP %d: %s", resp.StatusCode, string(raw))
	}

	var decoded Response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return synthError("decoding response: %v", err)
	}
	if decoded.Result == nil && decoded.Error == nil {
		return synthError("agent response had neither result nor error")
	}
	return &decoded
}

// SendMessage sends text as a new user turn. When contextID is non-empty,
// params.configuration.context_id is set, signaling a continuation of an
// existing conversation; when contextID is empty, the configuration key is
// omitted entirely rather than sent as null — downstream agents observe
// this to distinguish new vs. continuation (spec §4.1, property 1).
func (c *Client) SendMessage(ctx context.Context, baseURL, text, contextID string) *Response {
	params := messageSendParams{
		Message: Message{
			Role:      "user",
			Parts:     []Part{{Type: "text", Text: text}},
			MessageID: uuid.NewString(),
		},
	}
	if contextID != "" {
		params.Configuration = &messageSendConfiguration{ContextID: contextID}
	}

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  "message/send",
		Params:  params,
	}
	return c.do(ctx, baseURL, req)
}

// GetTask polls a previously created task by id.
func (c *Client) GetTask(ctx context.Context, baseURL, taskID string) *Response {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  "task/get",
		Params:  taskGetParams{ID: taskID},
	}
	return c.do(ctx, baseURL, req)
}

// ExtractText returns the first text part of a task's status message,
// accepting either the "type" or "kind" discriminator. Returns the fixed
// fallback literal when no text part is present (spec §4.1, property 11).
func ExtractText(task *Task) string {
	if task == nil {
		return ""
	}
	if task.Status.Message != nil {
		for _, p := range task.Status.Message.Parts {
			if d := p.discriminator(); d == "" || d == "text" {
				if p.Text != "" {
					return p.Text
				}
			}
		}
	}
	return fmt.Sprintf("[Agent task %s is %s]", task.ID, task.Status.State)
}
