// Package a2a implements a JSON-RPC 2.0 client for the Agent-to-Agent (A2A)
// protocol the gateway speaks to its four downstream worker agents.
package a2a

// TaskState is the closed set of states a downstream agent reports in a
// task envelope's status.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateFailed        TaskState = "failed"
	TaskStateCanceled      TaskState = "canceled"
)

// Part is one segment of a message; the gateway only produces and consumes
// the "text" kind, but accepts either the current "kind" discriminator or
// the older "type" one for forward/backward compatibility (spec §4.1).
type Part struct {
	Kind string `json:"kind,omitempty"`
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

func (p Part) discriminator() string {
	if p.Kind != "" {
		return p.Kind
	}
	return p.Type
}

// Message is a single turn in a task's history.
type Message struct {
	Role      string `json:"role"`
	Parts     []Part `json:"parts"`
	MessageID string `json:"messageId,omitempty"`
}

// Status is the task envelope's current state plus the latest agent
// message, if any.
type Status struct {
	State   TaskState `json:"state"`
	Message *Message  `json:"message,omitempty"`
}

// Task is the A2A task envelope produced by downstream agents (spec §3).
// The gateway only ever reads it.
type Task struct {
	ID        string    `json:"id"`
	ContextID string    `json:"contextId,omitempty"`
	Status    Status    `json:"status"`
	History   []Message `json:"history,omitempty"`
}

// RPCError is the JSON-RPC 2.0 error object. Code -32000 is reserved by this
// client for synthetic transport failures (spec §4.1); any other code and
// message come verbatim from the downstream agent.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// TransportErrorCode is the fixed code used for client-synthesized failures
// (timeouts, connection refused, non-2xx with unparseable body, …). It is
// never produced by a downstream agent, only by this client standing in for
// one, which is how callers tell "network to agent failed" apart from "the
// agent returned its own JSON-RPC error".
const TransportErrorCode = -32000

// Response is the envelope every call returns. Exactly one of Result or
// Error is populated; the client never returns both, and never throws
// instead of populating Error — that is the deliberate contract callers
// branch on (spec §4.1, property 2 in spec §8).
type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      string    `json:"id"`
	Result  *Task     `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// messageSendConfiguration carries the context id. It is a pointer field on
// the request so that omitting it entirely (vs. sending a null) is how new
// vs. continuation conversations are signaled to the agent — see
// sendMessage in client.go.
type messageSendConfiguration struct {
	ContextID string `json:"context_id"`
}

type messageSendParams struct {
	Message       Message                    `json:"message"`
	Configuration *messageSendConfiguration  `json:"configuration,omitempty"`
}

type taskGetParams struct {
	ID string `json:"id"`
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}
