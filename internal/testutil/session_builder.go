package testutil

import (
	"github.com/hupe1980/agentcoord/core"
)

// SessionBuilder helps construct coordination sessions with fluent chaining
// for tests.
// Example:
//
//	sess := NewSessionBuilder("sess-1").User(7).Context("k", "v").Current(2).Build()
type SessionBuilder struct {
	id       string
	userID   int64
	taskType string
	initial  map[string]any
	current  *int64
	status   core.SessionStatus
}

// NewSessionBuilder creates a new builder for an active session with the
// given id, user 1 and task type "general".
func NewSessionBuilder(id string) *SessionBuilder {
	return &SessionBuilder{id: id, userID: 1, taskType: "general", initial: map[string]any{}}
}

// User sets the owning user (chainable).
func (b *SessionBuilder) User(id int64) *SessionBuilder { b.userID = id; return b }

// TaskType sets the task type (chainable).
func (b *SessionBuilder) TaskType(t string) *SessionBuilder { b.taskType = t; return b }

// Context sets or overwrites an initial context key (chainable).
func (b *SessionBuilder) Context(key string, val any) *SessionBuilder {
	b.initial[key] = val
	return b
}

// Current assigns the current agent (chainable).
func (b *SessionBuilder) Current(agentID int64) *SessionBuilder { b.current = &agentID; return b }

// Status overrides the lifecycle status (chainable).
func (b *SessionBuilder) Status(s core.SessionStatus) *SessionBuilder { b.status = s; return b }

// Build returns a *core.CoordinationSession.
func (b *SessionBuilder) Build() *core.CoordinationSession {
	initial := make(map[string]any, len(b.initial))
	for k, v := range b.initial {
		initial[k] = v
	}
	s := core.NewCoordinationSession(b.id, b.userID, b.taskType, initial)
	if b.current != nil {
		id := *b.current
		s.CurrentAgentID = &id
	}
	if b.status != "" {
		s.Status = b.status
	}
	return s
}
