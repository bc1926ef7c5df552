// Package session implements the Thread-Session Store (C2): an in-memory
// map from a platform thread key to the conversation identity downstream
// agents need to see continuity.
package session

import "sync"

// AgentKey mirrors config.AgentKey without importing internal/config, so
// this package stays a leaf with no dependency on the rest of the gateway —
// the REDESIGN FLAG calls for this store to be a plain constructor-injected
// dependency, not a module other packages reach into.
type AgentKey string

// Session is the value half of the Thread-Session Store entity (spec §3).
// Intent is a pointer so "not yet classified" (nil) is distinguishable from
// the zero value of a string-based intent.
type Session struct {
	ContextID string
	AgentKey  AgentKey
	Intent    *string
}

// Store is a process-lifetime, in-memory thread-key -> Session map. It is
// never persisted (spec §9's first design note: a future iteration may add
// that; this one explicitly does not).
type Store struct {
	mu sync.RWMutex
	m  map[string]*Session
}

func NewStore() *Store {
	return &Store{m: make(map[string]*Session)}
}

// Get returns the session for threadKey, or nil if none exists yet.
func (s *Store) Get(threadKey string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.m[threadKey]
	if !ok {
		return nil
	}
	cp := *sess
	return &cp
}

// Set upserts the session for threadKey. Per the contextID-stability
// invariant (spec §3), callers must not change ContextID on an existing
// session; Set trusts the caller to have read-then-preserved it (handlers
// always do Get first and copy ContextID forward — see slackgw/dispatch.go).
func (s *Store) Set(threadKey string, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := sess
	s.m[threadKey] = &cp
}

// Clear removes the session for threadKey. Spec §3 says sessions are
// "never removed explicitly (process lifetime)" in normal operation; Clear
// exists for tests and for an explicit future admin action, not for any
// handler in this codebase.
func (s *Store) Clear(threadKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, threadKey)
}
