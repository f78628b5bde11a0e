package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCapabilities(t *testing.T) {
	t.Run("known tags", func(t *testing.T) {
		set, err := ParseCapabilities(map[string]bool{"audience_analysis": true, "reporting": false})
		require.NoError(t, err)
		assert.True(t, set.Has(CapAudienceAnalysis))
		assert.False(t, set.Has(CapReporting))
		assert.Equal(t, []Capability{CapAudienceAnalysis}, set.Enabled())
	})

	t.Run("typo rejected", func(t *testing.T) {
		_, err := ParseCapabilities(map[string]bool{"audience_analysys": true})
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "capabilities", vErr.Field)
	})

	t.Run("lenient keeps unknown", func(t *testing.T) {
		set, err := DecodeCapabilities(map[string]bool{"hologram_design": true}, true)
		require.NoError(t, err)
		assert.True(t, set.Has("hologram_design"))
	})
}

func TestCapabilitySet_EnabledSorted(t *testing.T) {
	set := NewCapabilitySet(CapReporting, CapABTesting, CapKPITracking)
	assert.Equal(t, []string{"a_b_testing", "kpi_tracking", "reporting"}, set.Strings())
}

func TestCapabilitySet_JSON(t *testing.T) {
	set := NewCapabilitySet(CapPricingOptimization)
	data, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pricing_optimization":true}`, string(data))

	var decoded CapabilitySet
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Has(CapPricingOptimization))
}

func TestAgentFilter_Match(t *testing.T) {
	active := Agent{ID: 1, Type: "growth_advisor", Status: AgentActive, IsActive: true, Capabilities: NewCapabilitySet(CapAudienceAnalysis)}
	busy := Agent{ID: 2, Type: "growth_advisor", Status: AgentBusy, IsActive: true}
	flagged := Agent{ID: 3, Type: "growth_advisor", Status: AgentActive, IsActive: false}

	assert.True(t, AgentFilter{}.Match(active))
	assert.False(t, AgentFilter{}.Match(busy))
	assert.False(t, AgentFilter{}.Match(flagged))
	assert.True(t, AgentFilter{IncludeInactive: true}.Match(busy))
	assert.True(t, AgentFilter{Capability: CapAudienceAnalysis}.Match(active))
	assert.False(t, AgentFilter{Capability: CapReporting}.Match(active))
	assert.False(t, AgentFilter{Type: "pricing_advisor"}.Match(active))
}

func TestCallBudget(t *testing.T) {
	b := NewCallBudget(2)
	require.NoError(t, b.Acquire())
	require.NoError(t, b.Acquire())
	assert.ErrorIs(t, b.Acquire(), ErrBudgetExhausted)
	assert.Equal(t, 0, b.Remaining())

	unlimited := NewCallBudget(0)
	for i := 0; i < 5; i++ {
		require.NoError(t, unlimited.Acquire())
	}
	assert.Equal(t, -1, unlimited.Remaining())

	var nilBudget *CallBudget
	assert.NoError(t, nilBudget.Acquire())
}

func TestCallBudget_Context(t *testing.T) {
	assert.Nil(t, CallBudgetFrom(context.Background()))

	b := NewCallBudget(1)
	ctx := WithCallBudget(context.Background(), b)
	assert.Same(t, b, CallBudgetFrom(ctx))
}

func TestCapability_ValidateQuery(t *testing.T) {
	assert.NoError(t, Capability("").ValidateQuery())
	assert.NoError(t, CapPricingStrategy.ValidateQuery())
	assert.NoError(t, CapAnalysis.ValidateQuery())

	var vErr *ValidationError
	require.ErrorAs(t, Capability("pricing_stratgy").ValidateQuery(), &vErr)
	assert.Equal(t, "capability", vErr.Field)
}

func TestAgentSelection_Helpers(t *testing.T) {
	var empty *AgentSelection
	assert.True(t, empty.Empty())
	assert.ErrorIs(t, empty.RequireAgents(), ErrNoAgentsAvailable)

	sel := &AgentSelection{Agents: []SelectedAgent{
		{AgentID: 4, Role: RoleSupporting},
		{AgentID: 2, Role: RolePrimary},
	}}
	assert.Equal(t, []int64{4, 2}, sel.IDs())
	p, ok := sel.Primary()
	require.True(t, ok)
	assert.Equal(t, int64(2), p.AgentID)
}

func TestUnavailable(t *testing.T) {
	base := errors.New("boom")
	err := Unavailable("llm call", base)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, base)
	assert.Same(t, err, Unavailable("outer", err))
	assert.NoError(t, Unavailable("x", nil))
}
