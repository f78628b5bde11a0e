package core

// PlanStep is one entry of an execution sequence.
type PlanStep struct {
	AgentID           int64    `json:"agent_id"`
	Step              int      `json:"step"`
	Dependencies      []int64  `json:"dependencies"`
	ExpectedOutput    string   `json:"expected_output"`
	HandoffConditions []string `json:"handoff_conditions"`
}

// DataFlow describes data passed between two agents.
type DataFlow struct {
	FromAgent int64  `json:"from_agent"`
	ToAgent   int64  `json:"to_agent"`
	DataType  string `json:"data_type"`
	Format    string `json:"format"`
}

// ConflictStrategy names how conflicting outputs are reconciled.
type ConflictStrategy struct {
	Strategy      string `json:"strategy"`
	FallbackAgent *int64 `json:"fallback_agent,omitempty"`
}

// OrchestrationPlan is built fresh for each coordinated task.
type OrchestrationPlan struct {
	ExecutionSequence  []PlanStep       `json:"execution_sequence"`
	DataFlow           []DataFlow       `json:"data_flow"`
	ConflictResolution ConflictStrategy `json:"conflict_resolution"`
	SuccessMetrics     []string         `json:"success_metrics"`
}

// Conflict is a disagreement detected across agent outputs.
type Conflict struct {
	Type           string  `json:"type"`
	AgentsInvolved []int64 `json:"agents_involved"`
	Description    string  `json:"conflict_description"`
	Severity       string  `json:"severity"`
}

// ConflictResolution is the outcome of resolving a set of conflicts.
type ConflictResolution struct {
	SessionID      string        `json:"session_id"`
	Mode           SelectionMode `json:"mode"`
	Strategy       string        `json:"strategy"`
	Resolution     string        `json:"resolution"`
	PreferredAgent *int64        `json:"preferred_agent,omitempty"`
	Conflicts      []Conflict    `json:"conflicts"`
	Found          bool          `json:"found"`
	Error          string        `json:"error,omitempty"`
}

// CoordinationResult is the outcome of coordinating a session. Mode is llm
// when a plan was built by the backend and database for the deterministic
// acknowledgement.
type CoordinationResult struct {
	SessionID string             `json:"session_id"`
	Found     bool               `json:"found"`
	Mode      SelectionMode      `json:"mode"`
	Status    string             `json:"status"`
	Message   string             `json:"result"`
	Selection *AgentSelection    `json:"selection,omitempty"`
	Plan      *OrchestrationPlan `json:"plan,omitempty"`
	Error     string             `json:"error,omitempty"`
}
