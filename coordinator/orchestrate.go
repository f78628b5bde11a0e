package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentcoord/core"
	"github.com/hupe1980/agentcoord/selection"
)

const (
	statusCompleted = "completed"
	msgCoordinated  = "Task coordinated successfully"
	msgNotFound     = "Coordination session not found"

	// StrategyPrimaryAgent is the deterministic conflict resolution.
	StrategyPrimaryAgent = "proceed_with_primary_agent"
)

// llmPath reports whether Coordinate and ResolveConflicts may use the backend.
func (c *Coordinator) llmPath() bool {
	return c.opts.Planner != nil && c.opts.Selector.Mode() != core.ModeDatabase
}

// Coordinate builds an orchestration plan for the session's task. With a
// planner configured in llm or hybrid mode the plan comes from the backend
// and the result is tagged llm. Every failure on that path, panics
// included, yields the database acknowledgement instead. An unknown session
// is reported through Found, not as an error.
func (c *Coordinator) Coordinate(ctx context.Context, sessionID string, task core.TaskRequirements) (*core.CoordinationResult, error) {
	if err := validateStruct(task); err != nil {
		return nil, err
	}

	if _, err := c.opts.Sessions.Get(ctx, sessionID); err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			return &core.CoordinationResult{SessionID: sessionID, Mode: core.ModeDatabase, Error: msgNotFound}, nil
		}
		return nil, err
	}

	ack := &core.CoordinationResult{
		SessionID: sessionID,
		Found:     true,
		Mode:      core.ModeDatabase,
		Status:    statusCompleted,
		Message:   msgCoordinated,
	}
	if !c.llmPath() {
		return ack, nil
	}

	sel, plan, err := c.planWithBackend(ctx, task)
	if err != nil {
		c.logger.Warn("coordinate.llm_failed", "session_id", sessionID, "error", err.Error())
		c.opts.Metrics.IncFallback("coordinate")
		if !sel.Empty() {
			ack.Selection = sel
			ack.Plan = selection.FallbackPlan(sel.Agents)
		}
		return ack, nil
	}

	c.logger.Info("coordinate.planned", "session_id", sessionID, "agents", sel.IDs(), "steps", len(plan.ExecutionSequence))
	return &core.CoordinationResult{
		SessionID: sessionID,
		Found:     true,
		Mode:      core.ModeLLM,
		Status:    statusCompleted,
		Message:   msgCoordinated,
		Selection: sel,
		Plan:      plan,
	}, nil
}

func (c *Coordinator) planWithBackend(ctx context.Context, task core.TaskRequirements) (sel *core.AgentSelection, plan *core.OrchestrationPlan, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while planning: %v", r)
		}
	}()

	sel, err = c.opts.Selector.Select(ctx, task)
	if err != nil {
		return nil, nil, err
	}
	if err := sel.RequireAgents(); err != nil {
		return sel, nil, err
	}
	plan, err = c.opts.Planner.Plan(ctx, task.Description, sel.Agents)
	if err != nil {
		return sel, nil, err
	}
	return sel, plan, nil
}

// ResolveConflicts reconciles conflicting agent outputs with the same
// fail-soft contract as Coordinate. The database answer keeps the session's
// current agent.
func (c *Coordinator) ResolveConflicts(ctx context.Context, sessionID string, conflicts []core.Conflict) (*core.ConflictResolution, error) {
	sess, err := c.opts.Sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			return &core.ConflictResolution{SessionID: sessionID, Mode: core.ModeDatabase, Conflicts: conflicts, Error: msgNotFound}, nil
		}
		return nil, err
	}

	fallback := &core.ConflictResolution{
		SessionID:      sessionID,
		Found:          true,
		Mode:           core.ModeDatabase,
		Strategy:       StrategyPrimaryAgent,
		Resolution:     "Proceed with primary agent",
		PreferredAgent: sess.CurrentAgentID,
		Conflicts:      conflicts,
	}
	if len(conflicts) == 0 || !c.llmPath() {
		return fallback, nil
	}

	res, err := c.resolveWithBackend(ctx, conflicts)
	if err != nil {
		c.logger.Warn("resolve.llm_failed", "session_id", sessionID, "error", err.Error())
		c.opts.Metrics.IncFallback("resolve")
		return fallback, nil
	}
	return &core.ConflictResolution{
		SessionID:      sessionID,
		Found:          true,
		Mode:           core.ModeLLM,
		Strategy:       res.Strategy,
		Resolution:     res.Resolution,
		PreferredAgent: res.PreferredAgent,
		Conflicts:      conflicts,
	}, nil
}

func (c *Coordinator) resolveWithBackend(ctx context.Context, conflicts []core.Conflict) (res *selection.Resolution, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while resolving: %v", r)
		}
	}()
	return c.opts.Planner.Resolve(ctx, conflicts)
}
