package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentcoord/agentcontext"
	"github.com/hupe1980/agentcoord/core"
	"github.com/hupe1980/agentcoord/logging"
	"github.com/hupe1980/agentcoord/tool"
)

const (
	// TaskTypeInfluencerAnalysis is the default task and response type of
	// Recommend.
	TaskTypeInfluencerAnalysis = "influencer_analysis"

	// AnalysisHint is the capability Recommend selects by first.
	AnalysisHint = core.CapAnalysis

	// MessageTypeAnalysisRequest tags the stored user request.
	MessageTypeAnalysisRequest = "analysis_request"

	ConflictPricing = "pricing_conflict"

	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// RecommendRequest is the input of Recommend.
type RecommendRequest struct {
	UserID   int64          `json:"user_id" validate:"gt=0"`
	Task     string         `json:"task" validate:"required,max=4000"`
	TaskType string         `json:"task_type,omitempty" validate:"max=100"`
	Context  map[string]any `json:"initial_context,omitempty"`

	// Capability overrides AnalysisHint.
	Capability core.Capability `json:"capability,omitempty"`

	// GatherTools are invoked once with the task as query before the agents
	// run; their results are stored as the user's context and as context of
	// every selected agent type.
	GatherTools []string `json:"gather_tools,omitempty"`
}

// AgentOutcome is one agent's part of a recommendation.
type AgentOutcome struct {
	AgentID    int64         `json:"agent_id"`
	AgentType  string        `json:"agent_type"`
	Status     string        `json:"status"`
	Response   string        `json:"response"`
	ResponseID int64         `json:"response_id,omitempty"`
	Tools      int           `json:"tools"`
	Context    string        `json:"context_used,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// HandoffOutcome records an attempted handoff.
type HandoffOutcome struct {
	FromAgentID int64  `json:"from_agent"`
	ToAgentID   int64  `json:"to_agent"`
	Reason      string `json:"reason"`
	Accepted    bool   `json:"accepted"`
}

// Recommendation is the result of Recommend.
type Recommendation struct {
	SessionID    string                   `json:"coordination_uuid"`
	Selection    *core.AgentSelection     `json:"selection"`
	Outcomes     []AgentOutcome           `json:"agent_responses"`
	Handoffs     []HandoffOutcome         `json:"handoff_results"`
	Coordination *core.CoordinationResult `json:"coordination_result,omitempty"`
	Conflicts    []core.Conflict          `json:"conflicts,omitempty"`
	Resolution   *core.ConflictResolution `json:"conflict_resolution,omitempty"`
	Stored       int                      `json:"stored_context_items"`
}

// Recommend runs the full advisory pipeline for one user task: open a
// session, remember the request as conversation context, select and assign
// agents, run every agent on its own context and
// tools, record their responses, hand off to an analytics agent when asked
// for, coordinate, and resolve pricing conflicts. The session is completed
// when at least one agent succeeded and failed otherwise.
//
// With no eligible agent it returns the partial recommendation together with
// core.ErrNoAgentsAvailable.
func (c *Coordinator) Recommend(ctx context.Context, req RecommendRequest) (*Recommendation, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	taskType := req.TaskType
	if taskType == "" {
		taskType = TaskTypeInfluencerAnalysis
	}

	sessionID, err := c.CreateSession(ctx, req.UserID, taskType, req.Context)
	if err != nil {
		return nil, err
	}
	defer logging.StartTimer(c.logger, "recommend", "session_id", sessionID)()

	if c.opts.CallBudget > 0 {
		ctx = core.WithCallBudget(ctx, core.NewCallBudget(c.opts.CallBudget))
	}
	rec := &Recommendation{SessionID: sessionID}
	fail := func(err error) (*Recommendation, error) {
		if _, ferr := c.Fail(context.WithoutCancel(ctx), sessionID, err.Error()); ferr != nil {
			c.logger.Warn("recommend.fail_session", "session_id", sessionID, "error", ferr.Error())
		}
		return rec, err
	}

	c.rememberRequest(ctx, sessionID, req, taskType)

	sel, err := c.selectForRecommend(ctx, req, taskType)
	if err != nil {
		return fail(err)
	}
	rec.Selection = sel
	if err := sel.RequireAgents(); err != nil {
		return fail(err)
	}

	for _, a := range sel.Agents {
		if _, err := c.AssignTask(ctx, sessionID, a.AgentID, map[string]any{
			"prompt":       req.Task,
			"agent_type":   a.AgentType,
			"capabilities": a.Capabilities.Strings(),
		}); err != nil {
			return fail(fmt.Errorf("assign agent %d: %w", a.AgentID, err))
		}
	}

	rec.Stored = c.gather(ctx, req, sel.Agents)

	rec.Outcomes, err = c.runAgents(ctx, sessionID, req, sel.Agents)
	if err != nil {
		return fail(err)
	}

	rec.Handoffs = c.detectHandoffs(ctx, sessionID, rec.Outcomes)

	rec.Coordination, err = c.Coordinate(ctx, sessionID, core.TaskRequirements{Description: req.Task, TaskType: taskType})
	if err != nil {
		return fail(err)
	}

	rec.Conflicts = IdentifyConflicts(rec.Outcomes)
	if len(rec.Conflicts) > 0 {
		rec.Resolution, err = c.ResolveConflicts(ctx, sessionID, rec.Conflicts)
		if err != nil {
			return fail(err)
		}
	}

	if succeeded(rec.Outcomes) {
		_, err = c.Complete(ctx, sessionID)
	} else {
		_, err = c.Fail(ctx, sessionID, "all agents failed")
	}
	return rec, err
}

// rememberRequest stores the task as a conversation item of the user.
// Failures are logged only.
func (c *Coordinator) rememberRequest(ctx context.Context, sessionID string, req RecommendRequest, taskType string) {
	_, err := c.opts.Assembler.Remember(ctx, core.UserOwnerKey(req.UserID), req.Task, core.ContextTypeConversation, map[string]any{
		"message_type": MessageTypeAnalysisRequest,
		"session_id":   sessionID,
		"task_type":    taskType,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		c.logger.Warn("recommend.remember_failed", "session_id", sessionID, "error", err.Error())
	}
}

func (c *Coordinator) selectForRecommend(ctx context.Context, req RecommendRequest, taskType string) (*core.AgentSelection, error) {
	hint := req.Capability
	if hint == "" {
		hint = AnalysisHint
	}
	sel, err := c.GetAvailableAgents(ctx, req.UserID, core.TaskRequirements{Description: req.Task, Capability: hint, TaskType: taskType})
	if err != nil {
		return nil, err
	}
	if !sel.Empty() {
		return sel, nil
	}
	c.logger.Debug("recommend.hint_empty", "capability", string(hint))
	return c.GetAvailableAgents(ctx, req.UserID, core.TaskRequirements{Description: req.Task, TaskType: taskType})
}

// gather invokes the requested tools and stores their results under the
// user's owner key and under the owner key of every selected agent type. It
// returns the number of items stored for the user. Failures are logged and
// skipped.
func (c *Coordinator) gather(ctx context.Context, req RecommendRequest, agents []core.SelectedAgent) int {
	if c.opts.Gateway == nil || len(req.GatherTools) == 0 {
		return 0
	}
	owner := core.UserOwnerKey(req.UserID)
	agentKeys := agentOwnerKeys(agents)

	stored := 0
	for _, name := range req.GatherTools {
		res, err := c.opts.Gateway.Invoke(ctx, name, map[string]any{"query": req.Task})
		if err != nil {
			c.logger.Warn("recommend.gather_failed", "tool", name, "error", err.Error())
			continue
		}
		items := agentcontext.ItemsFromContent(res.Content)
		n, err := c.opts.Assembler.Store(ctx, owner, items)
		if err != nil {
			c.logger.Warn("recommend.store_failed", "tool", name, "owner", owner, "error", err.Error())
		}
		stored += n
		for _, key := range agentKeys {
			if _, err := c.opts.Assembler.Store(ctx, key, items); err != nil {
				c.logger.Warn("recommend.store_failed", "tool", name, "owner", key, "error", err.Error())
			}
		}
	}
	return stored
}

func agentOwnerKeys(agents []core.SelectedAgent) []string {
	seen := make(map[string]bool, len(agents))
	var keys []string
	for _, a := range agents {
		if a.AgentType == "" || seen[a.AgentType] {
			continue
		}
		seen[a.AgentType] = true
		keys = append(keys, core.AgentOwnerKey(a.AgentType))
	}
	return keys
}

func (c *Coordinator) tools(agentType string) []tool.Descriptor {
	if c.opts.Gateway != nil {
		return c.opts.Gateway.ListTools(agentType)
	}
	return tool.NewCatalog().ForAgentType(agentType)
}

// runAgents executes every selected agent concurrently. Per-agent failures
// are reported in the outcome; only cancellation of ctx fails the run.
func (c *Coordinator) runAgents(ctx context.Context, sessionID string, req RecommendRequest, agents []core.SelectedAgent) ([]AgentOutcome, error) {
	outcomes := make([]AgentOutcome, len(agents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.MaxParallel)
	for i, a := range agents {
		g.Go(func() error {
			outcomes[i] = c.runAgent(gctx, sessionID, req, a)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, ctx.Err()
}

func (c *Coordinator) runAgent(ctx context.Context, sessionID string, req RecommendRequest, a core.SelectedAgent) AgentOutcome {
	start := time.Now()
	out := AgentOutcome{AgentID: a.AgentID, AgentType: a.AgentType, Status: OutcomeError}
	fail := func(err error) AgentOutcome {
		out.Response = "Error: " + err.Error()
		out.Duration = time.Since(start)
		c.logger.Warn("recommend.agent_failed", "session_id", sessionID, "agent_id", a.AgentID, "error", err.Error())
		return out
	}

	assembled, err := c.contextFor(ctx, req.UserID, req.Task, a.AgentID, a.AgentType, 0)
	if err != nil {
		return fail(fmt.Errorf("context: %w", err))
	}
	out.Context = assembled.Text

	tools := c.tools(a.AgentType)
	out.Tools = len(tools)

	if c.opts.Driver == nil {
		return fail(core.Unavailable("execute", errors.New("no execution backend configured")))
	}
	text, err := c.opts.Driver.Execute(ctx, c.opts.Builder.Build(req.Task, assembled.Text, a.AgentType), tools, a.AgentType)
	if err != nil {
		return fail(err)
	}

	out.Status = OutcomeSuccess
	out.Response = text
	out.Duration = time.Since(start)

	taskID := fmt.Sprintf("analysis_%s", sessionID)
	id, err := c.opts.Responses.Append(ctx, a.AgentID, taskID, text, TaskTypeInfluencerAnalysis)
	if err != nil {
		c.logger.Warn("recommend.record_failed", "agent_id", a.AgentID, "error", err.Error())
		return out
	}
	out.ResponseID = id
	return out
}

// detectHandoffs hands the session to an analytics agent for every
// successful non-analytics outcome that asks for analytics. Only the current
// agent can hand off, so at most one request per current agent succeeds.
func (c *Coordinator) detectHandoffs(ctx context.Context, sessionID string, outcomes []AgentOutcome) []HandoffOutcome {
	var requests []AgentOutcome
	for _, o := range outcomes {
		if o.Status == OutcomeSuccess && NeedsAnalytics(o) {
			requests = append(requests, o)
		}
	}
	if len(requests) == 0 {
		return nil
	}

	analysts, err := c.registry.ListAgents(ctx, core.AgentFilter{Capability: core.CapPerformanceAnalysis})
	if err != nil {
		c.logger.Warn("recommend.handoff_lookup_failed", "error", err.Error())
		return nil
	}

	var results []HandoffOutcome
	for _, o := range requests {
		to, ok := firstOther(analysts, o.AgentID)
		if !ok {
			continue
		}
		accepted, err := c.Handoff(ctx, sessionID, o.AgentID, to, map[string]any{
			"reason":                "detailed_analytics_required",
			"previous_analysis":     o.Response,
			"specialization_needed": "performance_metrics",
		})
		if err != nil {
			c.logger.Warn("recommend.handoff_failed", "from", o.AgentID, "to", to, "error", err.Error())
			continue
		}
		results = append(results, HandoffOutcome{
			FromAgentID: o.AgentID,
			ToAgentID:   to,
			Reason:      "analytics_specialization",
			Accepted:    accepted,
		})
	}
	return results
}

// NeedsAnalytics reports whether a non-analytics agent's response asks for
// analytics work.
func NeedsAnalytics(o AgentOutcome) bool {
	return !strings.Contains(o.AgentType, "analytics") &&
		strings.Contains(strings.ToLower(o.Response), "analytics")
}

func firstOther(agents []core.Agent, id int64) (int64, bool) {
	for _, a := range agents {
		if a.ID != id {
			return a.ID, true
		}
	}
	return 0, false
}

// IdentifyConflicts reports a medium pricing conflict when two or more
// successful agents give pricing advice.
func IdentifyConflicts(outcomes []AgentOutcome) []core.Conflict {
	var pricing []int64
	for _, o := range outcomes {
		if o.Status == OutcomeSuccess && strings.Contains(strings.ToLower(o.Response), "pricing") {
			pricing = append(pricing, o.AgentID)
		}
	}
	if len(pricing) < 2 {
		return nil
	}
	return []core.Conflict{{
		Type:           ConflictPricing,
		AgentsInvolved: pricing,
		Description:    "Multiple agents provided conflicting pricing strategies",
		Severity:       "medium",
	}}
}

func succeeded(outcomes []AgentOutcome) bool {
	for _, o := range outcomes {
		if o.Status == OutcomeSuccess {
			return true
		}
	}
	return false
}
