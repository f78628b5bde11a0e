package selection

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/agentcoord/core"
)

// FormatProfiles renders agents for a selection prompt.
func FormatProfiles(agents []core.Agent) string {
	var b strings.Builder
	for i, a := range agents {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Agent ID: %d\nName: %s\nType: %s\nStatus: %s\nCapabilities: %s\n",
			a.ID, a.Name, a.Type, a.Status, strings.Join(a.Capabilities.Strings(), ", "))
	}
	return b.String()
}

// SelectionPrompt asks the model to choose agents for task.
func SelectionPrompt(task string, agents []core.Agent) string {
	return fmt.Sprintf(`You are an AI agent orchestrator. Select the most appropriate agents for this request.

TASK: %q

AVAILABLE AGENTS:
%s
Analyze the task requirements and the available agents. Select the agents that give the most effective solution for the scope and depth of the task. Only use agent ids from the list above.

Return a JSON array of selected agents:
[
  {
    "agent_id": <agent_id>,
    "agent_type": "<agent_type>",
    "role": "primary" or "supporting",
    "reasoning": "<why this agent>",
    "priority": <1-3, where 1 is highest>
  }
]`, task, FormatProfiles(agents))
}

// PlanPrompt asks the model for an orchestration plan.
func PlanPrompt(task string, agents []core.SelectedAgent) string {
	type brief struct {
		AgentID   int64     `json:"agent_id"`
		AgentType string    `json:"agent_type"`
		Name      string    `json:"name"`
		Role      core.Role `json:"role"`
		Priority  int       `json:"priority"`
	}
	briefs := make([]brief, len(agents))
	for i, a := range agents {
		briefs[i] = brief{a.AgentID, a.AgentType, a.Name, a.Role, a.Priority}
	}
	data, _ := json.MarshalIndent(briefs, "", "  ")

	return fmt.Sprintf(`Create an orchestration plan for these agents working on this task.

SELECTED AGENTS: %s
TASK: %s

ORCHESTRATION GUIDELINES:
1. Scope awareness: if the task says "only", "just" or "specifically", keep the plan focused and minimal
2. Efficiency: avoid unnecessary handoffs and dependencies for simple tasks
3. Parallel execution: simple tasks may run agents in parallel
4. Focused output: each agent's output must address the stated needs

Return a JSON object:
{
  "execution_sequence": [
    {"agent_id": <id>, "step": <n>, "dependencies": [<ids>], "expected_output": "<text>", "handoff_conditions": ["<condition>"]}
  ],
  "data_flow": [
    {"from_agent": <id>, "to_agent": <id>, "data_type": "<type>", "format": "<format>"}
  ],
  "conflict_resolution": {"strategy": "<approach>", "fallback_agent": <id>},
  "success_metrics": ["<metric>"]
}`, data, task)
}

// ConflictPrompt asks the model to resolve conflicts between agents.
func ConflictPrompt(conflicts []core.Conflict) string {
	data, _ := json.MarshalIndent(conflicts, "", "  ")
	return fmt.Sprintf(`Resolve the following conflicts between agent recommendations.

CONFLICTS: %s

Return a JSON object:
{
  "strategy": "<resolution approach>",
  "resolution": "<the reconciled recommendation>",
  "preferred_agent": <agent_id>
}`, data)
}
