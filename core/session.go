package core

import (
	"context"
	"maps"
	"time"
)

// SessionStatus is the lifecycle state of a coordination session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionError     SessionStatus = "error"
)

// HandoffRecord is the payload stored by the last successful handoff.
type HandoffRecord struct {
	FromAgentID int64          `json:"from_agent_id"`
	ToAgentID   int64          `json:"to_agent_id"`
	Data        map[string]any `json:"data,omitempty"`
	At          time.Time      `json:"at"`
}

// CoordinationSession tracks one in-flight coordinated task.
//
// Contract:
//   - Exactly one session exists per ID
//   - Only the coordinator mutates it, through SessionStore.Update
//   - Clone performs deep copies of maps so snapshots can diverge safely.
type CoordinationSession struct {
	ID             string         `json:"id"`
	UserID         int64          `json:"user_id"`
	TaskType       string         `json:"task_type"`
	InitialContext map[string]any `json:"initial_context"`
	Status         SessionStatus  `json:"status"`
	CurrentAgentID *int64         `json:"current_agent_id,omitempty"`
	TaskDetails    map[string]any `json:"task_details,omitempty"`
	Handoff        *HandoffRecord `json:"handoff,omitempty"`
	FailureReason  string         `json:"failure_reason,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewCoordinationSession creates an active session.
func NewCoordinationSession(id string, userID int64, taskType string, initial map[string]any) *CoordinationSession {
	now := time.Now().UTC()
	if initial == nil {
		initial = map[string]any{}
	}
	return &CoordinationSession{
		ID:             id,
		UserID:         userID,
		TaskType:       taskType,
		InitialContext: initial,
		Status:         SessionActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsActive reports whether the session still accepts mutations.
func (s *CoordinationSession) IsActive() bool {
	return s.Status == SessionActive
}

// Touch refreshes UpdatedAt.
func (s *CoordinationSession) Touch() {
	s.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *CoordinationSession) Clone() *CoordinationSession {
	c := *s
	c.InitialContext = maps.Clone(s.InitialContext)
	c.TaskDetails = maps.Clone(s.TaskDetails)
	if s.CurrentAgentID != nil {
		id := *s.CurrentAgentID
		c.CurrentAgentID = &id
	}
	if s.Handoff != nil {
		h := *s.Handoff
		h.Data = maps.Clone(s.Handoff.Data)
		c.Handoff = &h
	}
	return &c
}

// SessionStore persists coordination sessions.
//
// Update applies fn atomically to the stored session: fn sees the latest
// state, and if it returns an error nothing is written and that error is
// returned. Get and Update return ErrSessionNotFound for unknown ids.
type SessionStore interface {
	Create(ctx context.Context, s *CoordinationSession) error
	Get(ctx context.Context, id string) (*CoordinationSession, error)
	Update(ctx context.Context, id string, fn func(s *CoordinationSession) error) (*CoordinationSession, error)
}
