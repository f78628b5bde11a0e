package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcoord/registry"
	"github.com/hupe1980/agentcoord/tool"
)

func TestBuild_PerTypeInstructions(t *testing.T) {
	b := NewBuilder()

	types := []string{
		registry.TypeGrowthAdvisor, registry.TypeContentAdvisor, registry.TypeBusinessAdvisor,
		registry.TypePricingAdvisor, registry.TypeAnalyticsAdvisor, registry.TypeCollaborationAdvisor,
		registry.TypePlatformAdvisor, registry.TypeEngagementAdvisor, registry.TypeOptimizationAdvisor,
	}
	seen := map[string]bool{}
	for _, typ := range types {
		t.Run(typ, func(t *testing.T) {
			instr := b.Instruction(typ)
			assert.NotEqual(t, DefaultInstruction, instr)
			assert.False(t, seen[instr], "instructions must differ per type")
			seen[instr] = true

			out := b.Build("grow my account", "Relevance: 0.90 - reels", typ)
			assert.Contains(t, out, instr)
		})
	}

	assert.Equal(t, DefaultInstruction, b.Instruction("mystery_advisor"))
	assert.Contains(t, b.Build("x", "", "mystery_advisor"), DefaultInstruction)
}

func TestBuild_Layout(t *testing.T) {
	out := NewBuilder().Build("  How do I price sponsored posts?  ", "Relevance: 0.87 - rate card", registry.TypePricingAdvisor)

	assert.True(t, strings.HasPrefix(out, "USER QUERY: How do I price sponsored posts?\n"))
	assert.Contains(t, out, "RELEVANT CONTEXT:\nRelevance: 0.87 - rate card")
	assert.Contains(t, out, "- Ground every recommendation in data returned by tools")
	assert.Contains(t, out, "never with a question")
	assert.Contains(t, out, "no generic introduction or filler phrasing")

	empty := NewBuilder().Build("task", "   ", registry.TypePricingAdvisor)
	assert.Contains(t, empty, "RELEVANT CONTEXT:\nNo relevant context available")
}

func TestBuild_IsPure(t *testing.T) {
	b := NewBuilder()
	first := b.Build("task", "ctx", registry.TypeGrowthAdvisor)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, b.Build("task", "ctx", registry.TypeGrowthAdvisor))
	}
}

func TestNewBuilder_InstructionOverrides(t *testing.T) {
	b := NewBuilder(func(o *Options) {
		o.Instructions = map[string]string{
			"compliance_advisor":       "Check disclosure rules.",
			registry.TypeGrowthAdvisor: "",
		}
	})
	assert.Equal(t, "Check disclosure rules.", b.Instruction("compliance_advisor"))
	assert.Equal(t, DefaultInstruction, b.Instruction(registry.TypeGrowthAdvisor))

	// the package table is left alone
	assert.NotEqual(t, DefaultInstruction, NewBuilder().Instruction(registry.TypeGrowthAdvisor))
}

func TestSystem(t *testing.T) {
	b := NewBuilder()
	out := b.System(registry.TypeAnalyticsAdvisor, []tool.Descriptor{
		{Name: "search_trends", Description: "Search trending topics"},
		{Name: "get_youtube_analytics"},
	})

	assert.Contains(t, out, "Your specialization: analytics_advisor")
	assert.Contains(t, out, "AVAILABLE TOOLS:\n- search_trends: Search trending topics\n- get_youtube_analytics: No description\n")

	none := b.System(registry.TypeGrowthAdvisor, nil)
	assert.Contains(t, none, "AVAILABLE TOOLS:\n- none\n")
}

func TestRender(t *testing.T) {
	out, err := Render("plain text", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)

	out, err = Render(`{{upper .name}} {{title .kind}} {{default "n/a" .missing}} {{join ", " .tags}}`, map[string]any{
		"name": "nova",
		"kind": "CREATOR",
		"tags": []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "NOVA Creator n/a a, b", out)

	_, err = Render("{{.broken", nil)
	assert.Error(t, err)
}
