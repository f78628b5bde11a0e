// Package prompt renders the task prompt and system context an advisor agent
// is executed with.
package prompt

import (
	"maps"
	"strings"
	"text/template"

	"github.com/hupe1980/agentcoord/logging"
	"github.com/hupe1980/agentcoord/registry"
)

// DefaultInstruction is used for agent types without a dedicated entry.
const DefaultInstruction = "Provide comprehensive recommendations based on current data and trends."

var instructions = map[string]string{
	registry.TypeGrowthAdvisor:        "Analyze trending content and engagement data to provide specific growth strategies. Reference actual influencers from search results with their follower growth rates and engagement metrics. Give growth targets with timelines and exact numbers.",
	registry.TypeContentAdvisor:       "Examine trending hashtags and platform data to recommend specific content strategies. Reference actual influencers from search results with their content performance and posting schedules. Give a content calendar with expected engagement rates.",
	registry.TypeBusinessAdvisor:      "Analyze market conditions and brand opportunities to suggest specific monetization strategies. Reference actual influencers from search results with their brand partnerships. Give revenue projections and partnership values as concrete financial targets.",
	registry.TypePricingAdvisor:       "Examine current market rates and competitive data to provide specific pricing recommendations. Reference actual influencer rates from search results. Give dollar amounts and rate ranges with the market positioning behind them.",
	registry.TypeAnalyticsAdvisor:     "Analyze performance metrics to provide specific optimization recommendations with measurable outcomes. Reference actual influencer performance data from search results. Give improvement targets with timelines and expected ROI.",
	registry.TypeCollaborationAdvisor: "Identify specific brand partnership opportunities based on current market trends and influencer data. Reference actual influencers from search results with their collaboration history. Give partnership values and collaboration rates.",
	registry.TypePlatformAdvisor:      "Recommend platform-specific strategies based on current platform trends and influencer performance. Reference specific influencers from search results with their platform metrics. Give optimization steps with expected performance improvements.",
	registry.TypeEngagementAdvisor:    "Analyze current engagement trends to suggest specific optimization strategies with measurable results. Reference actual influencer engagement data from search results. Give improvement tactics with expected engagement rates.",
	registry.TypeOptimizationAdvisor:  "Examine current analytics and market conditions to provide specific performance optimization recommendations. Reference actual influencer performance data from search results. Give optimization targets with their financial impact.",
}

var toolRules = []string{
	"Call relevant tools to get current data before responding",
	"Use search_trends for trending topics and hashtags",
	"Use search_influencers for influencer data and metrics",
	"Use search_content for content strategies and examples",
	"Use search_hashtags for trending hashtags and engagement data",
}

var responseRules = []string{
	"Ground every recommendation in data returned by tools",
	"Reference influencers from tool results by name",
	"Include exact follower counts, engagement rates and financial figures from tool data",
	"Give concrete timelines and measurable outcomes",
	"Start directly with recommendations, with no generic introduction or filler phrasing such as \"Let me help you\"",
	"End with concrete action steps and never with a question",
}

const taskTemplate = `USER QUERY: {{.Task}}

RELEVANT CONTEXT:
{{default "No relevant context available" .Context}}

AGENT-SPECIFIC INSTRUCTIONS:
{{.Instruction}}

TOOL CALLING REQUIREMENTS:
{{bullets .ToolRules}}

RESPONSE REQUIREMENTS:
{{bullets .ResponseRules}}

Use the context above and current tool data to give actionable recommendations.
`

// Options configure a Builder.
type Options struct {
	// Instructions override or extend the per-type instruction table.
	Instructions map[string]string

	Logger logging.Logger
}

// Builder renders task prompts. It is safe for concurrent use.
type Builder struct {
	instructions map[string]string
	task         *template.Template
	system       *template.Template
	logger       logging.Logger
}

// NewBuilder creates a builder with the built-in instruction table.
func NewBuilder(optFns ...func(o *Options)) *Builder {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	table := maps.Clone(instructions)
	for k, v := range opts.Instructions {
		if v == "" {
			delete(table, k)
			continue
		}
		table[k] = v
	}

	return &Builder{
		instructions: table,
		task:         mustParse("task", taskTemplate),
		system:       mustParse("system", systemTemplate),
		logger:       logging.OrNoOp(opts.Logger),
	}
}

// Instruction returns the instruction text for agentType.
func (b *Builder) Instruction(agentType string) string {
	if s, ok := b.instructions[agentType]; ok {
		return s
	}
	return DefaultInstruction
}

// Build renders the prompt for one agent. It never fails; if rendering
// breaks the bare task is returned.
func (b *Builder) Build(task, context, agentType string) string {
	out, err := execute(b.task, struct {
		Task          string
		Context       string
		Instruction   string
		ToolRules     []string
		ResponseRules []string
	}{
		Task:          strings.TrimSpace(task),
		Context:       strings.TrimSpace(context),
		Instruction:   b.Instruction(agentType),
		ToolRules:     toolRules,
		ResponseRules: responseRules,
	})
	if err != nil {
		b.logger.Error("prompt.build_failed", "agent_type", agentType, "error", err.Error())
		return task
	}
	b.logger.Debug("prompt.built", "agent_type", agentType, "chars", len(out))
	return out
}
