package core

import (
	"context"
	"time"
)

// AgentStatus is the lifecycle status of a registered agent.
type AgentStatus string

const (
	AgentActive   AgentStatus = "active"
	AgentInactive AgentStatus = "inactive"
	AgentBusy     AgentStatus = "busy"
)

// Agent is a registered specialist. It is read-only to the coordination
// engine; the registry backend owns it.
type Agent struct {
	ID           int64         `json:"id"`
	UUID         string        `json:"uuid"`
	Name         string        `json:"name"`
	Type         string        `json:"agent_type"`
	Capabilities CapabilitySet `json:"capabilities"`
	Status       AgentStatus   `json:"status"`
	IsActive     bool          `json:"is_active"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Eligible reports whether the agent may be selected: status active AND the
// active flag set.
func (a Agent) Eligible() bool {
	return a.Status == AgentActive && a.IsActive
}

// AgentFilter narrows ListAgents results. The zero value lists eligible agents.
type AgentFilter struct {
	Type            string
	Capability      Capability
	IncludeInactive bool
}

// Match reports whether a satisfies the filter.
func (f AgentFilter) Match(a Agent) bool {
	if !f.IncludeInactive && !a.Eligible() {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if f.Capability != "" && !a.Capabilities.Has(f.Capability) {
		return false
	}
	return true
}

// AgentRegistry reads registered agents.
//
// ListAgents returns agents ordered by id ascending. GetAgent returns
// ErrAgentNotFound for unknown ids.
type AgentRegistry interface {
	ListAgents(ctx context.Context, filter AgentFilter) ([]Agent, error)
	GetAgent(ctx context.Context, id int64) (*Agent, error)
}

// AgentResponseRecord is one immutable agent output.
type AgentResponseRecord struct {
	ID           int64     `json:"id"`
	UUID         string    `json:"uuid"`
	AgentID      int64     `json:"agent_id"`
	TaskID       string    `json:"task_id"`
	Response     string    `json:"response"`
	ResponseType string    `json:"response_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// ResponseStore appends and reads agent responses.
//
// ListByAgent returns the newest records first, at most limit (limit <= 0
// means no bound). ListByTask returns records oldest first.
type ResponseStore interface {
	Append(ctx context.Context, agentID int64, taskID, text, responseType string) (int64, error)
	ListByAgent(ctx context.Context, agentID int64, limit int) ([]AgentResponseRecord, error)
	ListByTask(ctx context.Context, taskID string) ([]AgentResponseRecord, error)
}
