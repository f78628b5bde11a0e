package coordinator

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/agentcoord/agentcontext"
	"github.com/hupe1980/agentcoord/core"
	"github.com/hupe1980/agentcoord/executor"
	"github.com/hupe1980/agentcoord/logging"
	"github.com/hupe1980/agentcoord/memory"
	"github.com/hupe1980/agentcoord/metrics"
	"github.com/hupe1980/agentcoord/prompt"
	"github.com/hupe1980/agentcoord/registry"
	"github.com/hupe1980/agentcoord/selection"
	"github.com/hupe1980/agentcoord/session"
	"github.com/hupe1980/agentcoord/tool"
)

const defaultMaxParallel = 4

// Options configure a Coordinator. Unset stores default to in-memory
// implementations.
type Options struct {
	Sessions  core.SessionStore
	Responses core.ResponseStore
	Contexts  core.ContextStore

	// Selector picks agents. Defaults to database mode over the registry.
	Selector *selection.Selector

	// Planner builds plans and resolutions through the backend. Without it
	// Coordinate and ResolveConflicts always take the database path.
	Planner *selection.Planner

	Assembler *agentcontext.Assembler
	Builder   *prompt.Builder

	// Driver executes agent prompts in Recommend.
	Driver *executor.Driver

	// Gateway gathers tool data in Recommend and lists agent tools. Optional.
	Gateway *tool.Gateway

	// AllowUnassignedHandoff lets Handoff succeed on a session without a
	// current agent, whatever the from agent.
	AllowUnassignedHandoff bool

	// MaxParallel bounds concurrent agent executions in Recommend.
	MaxParallel int

	// CallBudget caps backend completions made by agents during one
	// Recommend run. 0 is unlimited.
	CallBudget int

	Logger  logging.Logger
	Metrics *metrics.Metrics
}

// Coordinator owns coordination sessions and drives agents through them.
type Coordinator struct {
	registry core.AgentRegistry
	opts     Options
	logger   logging.Logger
}

// New creates a coordinator over reg.
func New(reg core.AgentRegistry, optFns ...func(o *Options)) *Coordinator {
	opts := Options{MaxParallel: defaultMaxParallel}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Sessions == nil {
		opts.Sessions = session.NewInMemoryStore()
	}
	if opts.Responses == nil {
		opts.Responses = registry.NewInMemoryResponseStore()
	}
	if opts.Contexts == nil {
		opts.Contexts = memory.NewInMemoryStore()
	}
	if opts.Selector == nil {
		opts.Selector = selection.NewSelector(reg, func(o *selection.Options) {
			o.Logger = opts.Logger
			o.Metrics = opts.Metrics
		})
	}
	if opts.Assembler == nil {
		opts.Assembler = agentcontext.New(opts.Contexts, opts.Responses, func(o *agentcontext.Options) {
			o.Logger = opts.Logger
		})
	}
	if opts.Builder == nil {
		opts.Builder = prompt.NewBuilder(func(o *prompt.Options) { o.Logger = opts.Logger })
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = defaultMaxParallel
	}

	c := &Coordinator{registry: reg, opts: opts, logger: logging.OrNoOp(opts.Logger)}
	if n, ok := c.ActiveSessions(); ok {
		opts.Metrics.SetActiveSessions(n)
	}
	return c
}

// activeCounter is implemented by session stores that can count their
// active sessions cheaply.
type activeCounter interface {
	CountActive() int
}

// ActiveSessions returns the number of active sessions when the session
// store can count them.
func (c *Coordinator) ActiveSessions() (int, bool) {
	counter, ok := c.opts.Sessions.(activeCounter)
	if !ok {
		return 0, false
	}
	return counter.CountActive(), true
}

// Selector returns the agent selector in use.
func (c *Coordinator) Selector() *selection.Selector { return c.opts.Selector }

type createInput struct {
	UserID   int64  `json:"user_id" validate:"gt=0"`
	TaskType string `json:"task_type" validate:"required,max=100"`
}

// CreateSession allocates an active session and returns its id.
func (c *Coordinator) CreateSession(ctx context.Context, userID int64, taskType string, initialContext map[string]any) (string, error) {
	if err := validateStruct(createInput{UserID: userID, TaskType: taskType}); err != nil {
		return "", err
	}

	sess := core.NewCoordinationSession(uuid.NewString(), userID, taskType, maps.Clone(initialContext))
	if err := c.opts.Sessions.Create(ctx, sess); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	c.opts.Metrics.SessionOpened()
	c.logger.Info("session.created", "session_id", sess.ID, "user_id", userID, "task_type", taskType)
	return sess.ID, nil
}

// Session returns a snapshot of the session.
func (c *Coordinator) Session(ctx context.Context, sessionID string) (*core.CoordinationSession, error) {
	return c.opts.Sessions.Get(ctx, sessionID)
}

// GetAvailableAgents selects agents for the requirements under the
// configured mode. An empty selection is not an error; use RequireAgents to
// turn it into core.ErrNoAgentsAvailable.
func (c *Coordinator) GetAvailableAgents(ctx context.Context, userID int64, req core.TaskRequirements) (*core.AgentSelection, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	sel, err := c.opts.Selector.Select(ctx, req)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("agents.available", "user_id", userID, "agents", sel.IDs(), "mode", string(sel.Mode))
	return sel, nil
}

type assignInput struct {
	AgentID int64 `json:"agent_id" validate:"gt=0"`
}

// AssignTask makes agentID the session's current agent. It returns false,
// changing nothing, when the session is unknown or no longer active.
func (c *Coordinator) AssignTask(ctx context.Context, sessionID string, agentID int64, taskDetails map[string]any) (bool, error) {
	if err := validateStruct(assignInput{AgentID: agentID}); err != nil {
		return false, err
	}

	_, err := c.opts.Sessions.Update(ctx, sessionID, func(s *core.CoordinationSession) error {
		if !s.IsActive() {
			return core.ErrSessionClosed
		}
		id := agentID
		s.CurrentAgentID = &id
		s.TaskDetails = maps.Clone(taskDetails)
		return nil
	})
	if ok, err := c.mutationResult(err); !ok {
		c.logger.Debug("session.assign_skipped", "session_id", sessionID, "agent_id", agentID)
		return false, err
	}
	c.logger.Info("session.assigned", "session_id", sessionID, "agent_id", agentID)
	return true, nil
}

type handoffInput struct {
	FromAgentID int64 `json:"from_agent_id" validate:"gt=0"`
	ToAgentID   int64 `json:"to_agent_id" validate:"gt=0,nefield=FromAgentID"`
}

// Handoff moves the session from fromAgentID to toAgentID. The move only
// happens if fromAgentID is still the current agent; otherwise, or for an
// unknown or closed session, it returns false and changes nothing.
func (c *Coordinator) Handoff(ctx context.Context, sessionID string, fromAgentID, toAgentID int64, data map[string]any) (bool, error) {
	if err := validateStruct(handoffInput{FromAgentID: fromAgentID, ToAgentID: toAgentID}); err != nil {
		return false, err
	}

	_, err := c.opts.Sessions.Update(ctx, sessionID, func(s *core.CoordinationSession) error {
		if !s.IsActive() {
			return core.ErrSessionClosed
		}
		switch {
		case s.CurrentAgentID == nil && !c.opts.AllowUnassignedHandoff:
			return core.ErrHandoffRejected
		case s.CurrentAgentID != nil && *s.CurrentAgentID != fromAgentID:
			return core.ErrHandoffRejected
		}
		to := toAgentID
		s.CurrentAgentID = &to
		s.Handoff = &core.HandoffRecord{
			FromAgentID: fromAgentID,
			ToAgentID:   toAgentID,
			Data:        maps.Clone(data),
			At:          time.Now().UTC(),
		}
		return nil
	})
	ok, err := c.mutationResult(err)
	if err == nil {
		c.opts.Metrics.ObserveHandoff(ok)
	}
	c.logger.Info("session.handoff", "session_id", sessionID, "from", fromAgentID, "to", toAgentID, "accepted", ok)
	return ok, err
}

// Complete marks an active session completed.
func (c *Coordinator) Complete(ctx context.Context, sessionID string) (bool, error) {
	return c.close(ctx, sessionID, core.SessionCompleted, "")
}

// Fail marks an active session as failed with reason.
func (c *Coordinator) Fail(ctx context.Context, sessionID, reason string) (bool, error) {
	return c.close(ctx, sessionID, core.SessionError, reason)
}

func (c *Coordinator) close(ctx context.Context, sessionID string, status core.SessionStatus, reason string) (bool, error) {
	_, err := c.opts.Sessions.Update(ctx, sessionID, func(s *core.CoordinationSession) error {
		if !s.IsActive() {
			return core.ErrSessionClosed
		}
		s.Status = status
		s.FailureReason = reason
		return nil
	})
	ok, err := c.mutationResult(err)
	if ok {
		c.opts.Metrics.SessionClosed()
		c.logger.Info("session.closed", "session_id", sessionID, "status", string(status), "reason", reason)
	}
	return ok, err
}

// mutationResult maps the expected refusals of a session mutation to false.
func (c *Coordinator) mutationResult(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, core.ErrSessionClosed),
		errors.Is(err, core.ErrHandoffRejected):
		return false, nil
	default:
		return false, err
	}
}

type contextInput struct {
	UserID  int64 `json:"user_id" validate:"gt=0"`
	AgentID int64 `json:"agent_id" validate:"gte=0"`
	Window  int   `json:"context_window" validate:"gte=0,lte=50"`
}

// GetContextForAgentTask assembles the user's similarity context, the
// agent type's own context and the agent's recent responses. It reads only.
// An agent that cannot be looked up contributes no agent-scoped context.
func (c *Coordinator) GetContextForAgentTask(ctx context.Context, userID int64, promptText string, agentID int64, window int) (*agentcontext.Assembled, error) {
	if err := validateStruct(contextInput{UserID: userID, AgentID: agentID, Window: window}); err != nil {
		return nil, err
	}
	var agentType string
	if agentID > 0 {
		if a, err := c.registry.GetAgent(ctx, agentID); err == nil {
			agentType = a.Type
		} else {
			c.logger.Debug("context.agent_lookup_failed", "agent_id", agentID, "error", err.Error())
		}
	}
	return c.contextFor(ctx, userID, promptText, agentID, agentType, window)
}

func (c *Coordinator) contextFor(ctx context.Context, userID int64, promptText string, agentID int64, agentType string, window int) (*agentcontext.Assembled, error) {
	req := agentcontext.Request{
		OwnerKey: core.UserOwnerKey(userID),
		Prompt:   promptText,
		AgentID:  agentID,
		Window:   window,
	}
	if agentType != "" {
		req.AgentKey = core.AgentOwnerKey(agentType)
	}
	return c.opts.Assembler.Assemble(ctx, req)
}
