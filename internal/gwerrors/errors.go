// Package gwerrors defines the gateway's error taxonomy (spec §7) as typed,
// wrappable sentinels so handlers can branch with errors.Is/errors.As
// instead of string-matching.
package gwerrors

import "fmt"

// Kind is one of the seven abstract error kinds from the error-handling
// design.
type Kind string

const (
	KindTransport    Kind = "transport"
	KindRemoteAgent  Kind = "remote-agent"
	KindInvalidInput Kind = "invalid-input"
	KindAuth         Kind = "auth"
	KindLLMParse     Kind = "llm-parse"
	KindConfig       Kind = "config"
	KindJob          Kind = "job"
)

// Error carries a Kind alongside the usual message/wrapped-cause pair so
// callers can errors.As into it and switch on Kind.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func NewTransportError(msg string, cause error) *Error { return newErr(KindTransport, msg, cause) }
func NewRemoteAgentError(msg string) *Error             { return newErr(KindRemoteAgent, msg, nil) }
func NewInvalidInputError(msg string) *Error            { return newErr(KindInvalidInput, msg, nil) }
func NewAuthError(msg string) *Error                    { return newErr(KindAuth, msg, nil) }
func NewLLMParseError(msg string, cause error) *Error   { return newErr(KindLLMParse, msg, cause) }
func NewConfigError(msg string) *Error                  { return newErr(KindConfig, msg, nil) }
func NewJobError(msg string, cause error) *Error        { return newErr(KindJob, msg, cause) }

// Sentinels for specific, identity-checked failure modes named in spec §4.5.
var (
	ErrInvalidState  = newErr(KindAuth, "oauth state HMAC mismatch", nil)
	ErrMissingTokens = newErr(KindAuth, "token exchange did not return both access and refresh tokens", nil)
	ErrNotConnected  = newErr(KindAuth, "no oauth token record for subject", nil)
)
