package core

import "fmt"

// SelectionMode chooses how agents are selected for a task.
type SelectionMode string

const (
	ModeDatabase SelectionMode = "database"
	ModeLLM      SelectionMode = "llm"
	ModeHybrid   SelectionMode = "hybrid"
)

// ParseSelectionMode validates a configured mode string.
func ParseSelectionMode(s string) (SelectionMode, error) {
	switch m := SelectionMode(s); m {
	case ModeDatabase, ModeLLM, ModeHybrid:
		return m, nil
	default:
		return "", NewValidationError("mode", s, "must be one of database, llm, hybrid")
	}
}

// Complexity is the classifier output.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// ParseComplexity validates a complexity string.
func ParseComplexity(s string) (Complexity, error) {
	switch c := Complexity(s); c {
	case ComplexitySimple, ComplexityMedium, ComplexityComplex:
		return c, nil
	default:
		return "", NewValidationError("complexity", s, "must be one of simple, medium, complex")
	}
}

// Role is the part an agent plays in a selection.
type Role string

const (
	RolePrimary    Role = "primary"
	RoleSupporting Role = "supporting"
)

// TaskRequirements describe what a caller needs from the agent pool.
type TaskRequirements struct {
	Description string     `json:"task_description" validate:"max=4000"`
	Capability  Capability `json:"capability,omitempty"`
	TaskType    string     `json:"task_type,omitempty"`
}

// SelectedAgent is one ranked entry of an AgentSelection.
type SelectedAgent struct {
	AgentID      int64         `json:"agent_id"`
	AgentType    string        `json:"agent_type"`
	Name         string        `json:"name"`
	Role         Role          `json:"role"`
	Reasoning    string        `json:"reasoning"`
	Priority     int           `json:"priority"`
	Capabilities CapabilitySet `json:"capabilities"`
}

// AgentSelection is a ranked, non-persisted selection result.
type AgentSelection struct {
	Agents   []SelectedAgent `json:"agents"`
	Mode     SelectionMode   `json:"mode"`
	Fallback bool            `json:"fallback"`
	Reason   string          `json:"reason,omitempty"`
}

// Empty reports whether no agent qualified.
func (s *AgentSelection) Empty() bool {
	return s == nil || len(s.Agents) == 0
}

// RequireAgents returns ErrNoAgentsAvailable when the selection is empty.
func (s *AgentSelection) RequireAgents() error {
	if s.Empty() {
		return ErrNoAgentsAvailable
	}
	return nil
}

// IDs returns the selected agent ids in rank order.
func (s *AgentSelection) IDs() []int64 {
	if s == nil {
		return nil
	}
	ids := make([]int64, len(s.Agents))
	for i, a := range s.Agents {
		ids[i] = a.AgentID
	}
	return ids
}

// Primary returns the first agent with the primary role, else the first agent.
func (s *AgentSelection) Primary() (SelectedAgent, bool) {
	if s.Empty() {
		return SelectedAgent{}, false
	}
	for _, a := range s.Agents {
		if a.Role == RolePrimary {
			return a, true
		}
	}
	return s.Agents[0], true
}

func (s *AgentSelection) String() string {
	return fmt.Sprintf("selection(mode=%s, agents=%v, fallback=%t)", s.Mode, s.IDs(), s.Fallback)
}
