package testutil

import (
	"github.com/hupe1980/agentcoord/core"
)

// AgentBuilder provides a fluent helper for constructing agents in tests.
// Example:
//
//	a := NewAgentBuilder(3, "pricing_advisor").Caps(core.CapPricingStrategy).Build()
//
// Built agents are eligible unless Inactive or Status says otherwise.
type AgentBuilder struct {
	agent core.Agent
	caps  []core.Capability
}

// NewAgentBuilder creates a builder for an active agent. The name defaults
// to the type.
func NewAgentBuilder(id int64, agentType string) *AgentBuilder {
	return &AgentBuilder{agent: core.Agent{
		ID:       id,
		Name:     agentType,
		Type:     agentType,
		Status:   core.AgentActive,
		IsActive: true,
	}}
}

// Name overrides the display name (chainable).
func (b *AgentBuilder) Name(n string) *AgentBuilder { b.agent.Name = n; return b }

// Caps appends capabilities (chainable).
func (b *AgentBuilder) Caps(caps ...core.Capability) *AgentBuilder {
	b.caps = append(b.caps, caps...)
	return b
}

// Status sets the lifecycle status (chainable).
func (b *AgentBuilder) Status(s core.AgentStatus) *AgentBuilder { b.agent.Status = s; return b }

// Inactive clears the active flag (chainable).
func (b *AgentBuilder) Inactive() *AgentBuilder { b.agent.IsActive = false; return b }

// Build returns the agent.
func (b *AgentBuilder) Build() core.Agent {
	a := b.agent
	a.Capabilities = core.NewCapabilitySet(b.caps...)
	return a
}
