package selection

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentcoord/core"
)

var keywordRoutes = []struct {
	agentType string
	keywords  []string
}{
	{"growth_advisor", []string{"growth", "audience", "followers"}},
	{"business_advisor", []string{"business", "monetization", "revenue"}},
	{"content_advisor", []string{"content", "posting", "creative"}},
	{"analytics_advisor", []string{"analytics", "performance", "metrics"}},
}

const keywordDefaultType = "growth_advisor"

// KeywordFallback picks agents by keywords in description when no better
// signal exists. It returns every candidate of the matched type, or the
// first two candidates when none has that type.
func KeywordFallback(candidates []core.Agent, description string) []core.SelectedAgent {
	text := strings.ToLower(description)

	agentType := keywordDefaultType
	for _, r := range keywordRoutes {
		if containsAny(text, r.keywords) {
			agentType = r.agentType
			break
		}
	}

	var matched []core.Agent
	for _, a := range candidates {
		if a.Type == agentType {
			matched = append(matched, a)
		}
	}
	if len(matched) == 0 {
		matched = candidates[:min(2, len(candidates))]
	}

	out := make([]core.SelectedAgent, len(matched))
	for i, a := range matched {
		out[i] = selectedFrom(a, i, "Fallback selection due to LLM failure")
	}
	return out
}

// FallbackPlan builds the deterministic sequential plan for agents.
func FallbackPlan(agents []core.SelectedAgent) *core.OrchestrationPlan {
	plan := &core.OrchestrationPlan{
		ExecutionSequence:  make([]core.PlanStep, 0, len(agents)),
		DataFlow:           []core.DataFlow{},
		ConflictResolution: core.ConflictStrategy{Strategy: "sequential_execution"},
		SuccessMetrics:     []string{"task_completion", "response_quality"},
	}
	for i, a := range agents {
		plan.ExecutionSequence = append(plan.ExecutionSequence, core.PlanStep{
			AgentID:           a.AgentID,
			Step:              i + 1,
			Dependencies:      []int64{},
			ExpectedOutput:    fmt.Sprintf("Analysis and recommendations from %s", a.AgentType),
			HandoffConditions: []string{"task_completed"},
		})
	}
	if len(agents) > 0 {
		first := agents[0].AgentID
		plan.ConflictResolution.FallbackAgent = &first
	}
	return plan
}

// selectedFrom ranks the i-th agent of a deterministic selection: the first
// is primary with priority 1, the rest supporting with priority 2.
func selectedFrom(a core.Agent, i int, reasoning string) core.SelectedAgent {
	role, priority := core.RolePrimary, 1
	if i > 0 {
		role, priority = core.RoleSupporting, 2
	}
	return core.SelectedAgent{
		AgentID:      a.ID,
		AgentType:    a.Type,
		Name:         a.Name,
		Role:         role,
		Reasoning:    reasoning,
		Priority:     priority,
		Capabilities: a.Capabilities.Clone(),
	}
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
