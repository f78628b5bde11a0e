package selection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/agentcoord/core"
	"github.com/hupe1980/agentcoord/llmjson"
	"github.com/hupe1980/agentcoord/logging"
	"github.com/hupe1980/agentcoord/model"
)

// ErrEmptyPlan is returned when the model's plan names none of the agents.
var ErrEmptyPlan = errors.New("plan has no usable steps")

// Resolution is the model's answer to a conflict set.
type Resolution struct {
	Strategy       string
	Resolution     string
	PreferredAgent *int64
}

// Planner builds orchestration plans and conflict resolutions through a
// backend.
type Planner struct {
	completer model.Completer
	timeout   time.Duration
	logger    logging.Logger
}

// NewPlanner creates a planner backed by c.
func NewPlanner(c model.Completer, timeout time.Duration, logger logging.Logger) *Planner {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Planner{completer: c, timeout: timeout, logger: logging.OrNoOp(logger)}
}

// Plan asks the backend for a plan over agents. Steps naming agents outside
// the selection are dropped. All failures wrap core.ErrUpstreamUnavailable.
func (p *Planner) Plan(ctx context.Context, task string, agents []core.SelectedAgent) (*core.OrchestrationPlan, error) {
	text, err := p.complete(ctx, PlanPrompt(task, agents))
	if err != nil {
		return nil, err
	}

	var plan core.OrchestrationPlan
	if err := llmjson.ExtractInto(text, &plan); err != nil {
		return nil, core.Unavailable("plan", err)
	}

	known := make(map[int64]bool, len(agents))
	for _, a := range agents {
		known[a.AgentID] = true
	}
	steps := plan.ExecutionSequence[:0]
	for _, st := range plan.ExecutionSequence {
		if known[st.AgentID] {
			steps = append(steps, st)
		}
	}
	if len(steps) == 0 {
		return nil, core.Unavailable("plan", ErrEmptyPlan)
	}
	plan.ExecutionSequence = steps
	if plan.DataFlow == nil {
		plan.DataFlow = []core.DataFlow{}
	}
	if fa := plan.ConflictResolution.FallbackAgent; fa != nil && !known[*fa] {
		plan.ConflictResolution.FallbackAgent = nil
	}
	return &plan, nil
}

// Resolve asks the backend to reconcile conflicts.
func (p *Planner) Resolve(ctx context.Context, conflicts []core.Conflict) (*Resolution, error) {
	text, err := p.complete(ctx, ConflictPrompt(conflicts))
	if err != nil {
		return nil, err
	}

	raw, err := llmjson.Extract(text)
	if err != nil {
		return nil, core.Unavailable("resolve", err)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, core.Unavailable("resolve", fmt.Errorf("%w: expected object", llmjson.ErrNoJSON))
	}

	res := &Resolution{
		Strategy:   doc.Get("strategy").String(),
		Resolution: doc.Get("resolution").String(),
	}
	if res.Strategy == "" {
		res.Strategy = "llm_resolution"
	}
	if pa := doc.Get("preferred_agent"); pa.Type == gjson.Number {
		id := pa.Int()
		res.PreferredAgent = &id
	}
	return res, nil
}

func (p *Planner) complete(ctx context.Context, prompt string) (string, error) {
	if p.completer == nil {
		return "", core.Unavailable("planner", errors.New("no backend configured"))
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.completer.Complete(ctx, model.Request{Prompt: prompt})
	if err != nil {
		p.logger.Warn("planner.call_failed", "error", err.Error())
		return "", core.Unavailable("planner", err)
	}
	return resp.Text, nil
}
