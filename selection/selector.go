package selection

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/agentcoord/core"
	"github.com/hupe1980/agentcoord/llmjson"
	"github.com/hupe1980/agentcoord/logging"
	"github.com/hupe1980/agentcoord/metrics"
	"github.com/hupe1980/agentcoord/model"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultReasoning = "Selected by LLM"
	defaultPriority  = 3
)

// Fallback reasons reported on selections and metrics.
const (
	ReasonNoBackend   = "no_backend"
	ReasonCallError   = "call_error"
	ReasonParseError  = "parse_error"
	ReasonNoUsable    = "no_usable_agents"
	ReasonRegistryErr = "registry_error"
)

// Options configure a Selector.
type Options struct {
	// Mode is the strategy used by Select.
	Mode core.SelectionMode

	// Threshold gates hybrid mode: simple tasks always use the capability
	// filter, medium tasks do too when Threshold is simple.
	Threshold core.Complexity

	// Completer backs the LLM path. Without it every mode behaves like
	// database mode.
	Completer model.Completer

	// Classifier rates task complexity in hybrid mode. Defaults to an
	// LLMClassifier when a Completer is set, else HeuristicClassifier.
	Classifier Classifier

	Limit   LimitPolicy
	Timeout time.Duration
	Logger  logging.Logger
	Metrics *metrics.Metrics
}

// Selector picks agents for a task from the registry.
type Selector struct {
	registry core.AgentRegistry
	opts     Options
	logger   logging.Logger
}

// NewSelector creates a selector over reg.
func NewSelector(reg core.AgentRegistry, optFns ...func(o *Options)) *Selector {
	opts := Options{
		Mode:      core.ModeDatabase,
		Threshold: core.ComplexityMedium,
		Limit:     DefaultLimitPolicy(),
		Timeout:   defaultTimeout,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	logger := logging.OrNoOp(opts.Logger)
	if opts.Classifier == nil {
		if opts.Completer != nil {
			opts.Classifier = NewLLMClassifier(opts.Completer, opts.Timeout, logger)
		} else {
			opts.Classifier = HeuristicClassifier{}
		}
	}
	return &Selector{registry: reg, opts: opts, logger: logger}
}

// Mode returns the configured selection mode.
func (s *Selector) Mode() core.SelectionMode { return s.opts.Mode }

// LLMEnabled reports whether an LLM backend is configured.
func (s *Selector) LLMEnabled() bool { return s.opts.Completer != nil }

// Classifier returns the complexity classifier in use.
func (s *Selector) Classifier() Classifier { return s.opts.Classifier }

// Select runs the configured mode.
func (s *Selector) Select(ctx context.Context, req core.TaskRequirements) (*core.AgentSelection, error) {
	return s.SelectWithMode(ctx, s.opts.Mode, req)
}

// SelectWithMode runs the given mode.
func (s *Selector) SelectWithMode(ctx context.Context, mode core.SelectionMode, req core.TaskRequirements) (*core.AgentSelection, error) {
	if err := req.Capability.ValidateQuery(); err != nil {
		return nil, err
	}

	var (
		sel *core.AgentSelection
		err error
	)
	switch mode {
	case core.ModeLLM:
		sel, err = s.LLMSelect(ctx, req)
	case core.ModeHybrid:
		sel, err = s.HybridSelect(ctx, req)
	case core.ModeDatabase, "":
		sel, err = s.DatabaseSelect(ctx, req.Capability)
	default:
		return nil, core.NewValidationError("mode", string(mode), "must be one of database, llm, hybrid")
	}
	if err != nil {
		return nil, err
	}

	s.opts.Metrics.ObserveSelection(string(sel.Mode), sel.Fallback, sel.Empty())
	s.logger.Debug("selection.done", "requested_mode", string(mode))
	logging.LogSelection(s.logger, string(sel.Mode), sel.IDs(), sel.Fallback, sel.Reason)
	return sel, nil
}

// DatabaseSelect returns every eligible agent having capability, or every
// eligible agent when capability is empty. Unknown capability tags are a
// *core.ValidationError; registry errors propagate.
func (s *Selector) DatabaseSelect(ctx context.Context, capability core.Capability) (*core.AgentSelection, error) {
	if err := capability.ValidateQuery(); err != nil {
		return nil, err
	}
	agents, err := s.eligible(ctx, capability)
	if err != nil {
		return nil, err
	}

	reasoning := "Eligible agent"
	if capability != "" {
		reasoning = fmt.Sprintf("Has capability %s", capability)
	}

	sel := &core.AgentSelection{Mode: core.ModeDatabase, Agents: make([]core.SelectedAgent, 0, len(agents))}
	for i, a := range agents {
		sel.Agents = append(sel.Agents, selectedFrom(a, i, reasoning))
	}
	return sel, nil
}

func (s *Selector) eligible(ctx context.Context, capability core.Capability) ([]core.Agent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	agents, err := s.registry.ListAgents(ctx, core.AgentFilter{Capability: capability})
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return agents, nil
}

// HybridSelect classifies the task and routes simple work to the capability
// filter and everything else to the LLM path.
func (s *Selector) HybridSelect(ctx context.Context, req core.TaskRequirements) (*core.AgentSelection, error) {
	complexity := s.opts.Classifier.Classify(ctx, req.Description)
	s.logger.Debug("selection.hybrid.classified", "complexity", string(complexity), "threshold", string(s.opts.Threshold))

	if UseDatabase(complexity, s.opts.Threshold) {
		sel, err := s.DatabaseSelect(ctx, req.Capability)
		if err != nil {
			return nil, err
		}
		sel.Reason = "complexity " + string(complexity)
		return sel, nil
	}
	return s.LLMSelect(ctx, req)
}

// UseDatabase is the hybrid routing rule.
func UseDatabase(complexity, threshold core.Complexity) bool {
	return complexity == core.ComplexitySimple ||
		(complexity == core.ComplexityMedium && threshold == core.ComplexitySimple)
}

// LLMSelect asks the backend to pick agents among the eligible ones. Any
// failure, or a reply naming no eligible agent, falls back to the
// capability filter. Keywords decide only when a hinted capability has no
// agents.
func (s *Selector) LLMSelect(ctx context.Context, req core.TaskRequirements) (*core.AgentSelection, error) {
	candidates, err := s.eligible(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &core.AgentSelection{Mode: core.ModeLLM}, nil
	}
	if s.opts.Completer == nil {
		return s.fallback(ctx, req, candidates, ReasonNoBackend)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	resp, err := s.opts.Completer.Complete(callCtx, model.Request{Prompt: SelectionPrompt(req.Description, candidates)})
	if err != nil {
		s.logger.Warn("selection.llm.call_failed", "error", err.Error())
		return s.fallback(ctx, req, candidates, ReasonCallError)
	}

	raw, err := llmjson.Extract(resp.Text)
	if err != nil {
		s.logger.Warn("selection.llm.parse_failed", "error", err.Error())
		return s.fallback(ctx, req, candidates, ReasonParseError)
	}

	agents := ValidateSelection(raw, candidates)
	if len(agents) == 0 {
		return s.fallback(ctx, req, candidates, ReasonNoUsable)
	}

	sel := &core.AgentSelection{Mode: core.ModeLLM, Agents: agents}
	if limited, ok := s.opts.Limit.Apply(agents, req.Description); ok {
		sel.Agents = limited
		sel.Reason = fmt.Sprintf("limited from %d agents", len(agents))
	}
	return sel, nil
}

// fallback degrades to the capability filter with whatever hint req carries.
// Without a hint that is every eligible agent. Keyword matching is used only
// when the hinted capability matches nothing or the filter fails.
func (s *Selector) fallback(ctx context.Context, req core.TaskRequirements, candidates []core.Agent, reason string) (*core.AgentSelection, error) {
	s.opts.Metrics.IncFallback(reason)

	sel, err := s.DatabaseSelect(ctx, req.Capability)
	if err == nil && !sel.Empty() {
		sel.Fallback = true
		sel.Reason = reason
		return sel, nil
	}
	if err != nil {
		s.logger.Warn("selection.fallback.capability_failed", "error", err.Error())
	}

	return &core.AgentSelection{
		Mode:     core.ModeDatabase,
		Agents:   KeywordFallback(candidates, req.Description),
		Fallback: true,
		Reason:   reason,
	}, nil
}

// ValidateSelection reads the model's selection from raw JSON (an array, or
// an object with an "agents" or "selected_agents" array) and keeps entries
// naming an eligible candidate, each at most once. Missing fields get
// defaults. The result is ordered by priority, then agent id.
func ValidateSelection(raw []byte, candidates []core.Agent) []core.SelectedAgent {
	doc := gjson.ParseBytes(raw)
	if doc.IsObject() {
		for _, key := range []string{"agents", "selected_agents", "selection"} {
			if v := doc.Get(key); v.IsArray() {
				doc = v
				break
			}
		}
	}
	if !doc.IsArray() {
		return nil
	}

	byID := make(map[int64]core.Agent, len(candidates))
	for _, a := range candidates {
		byID[a.ID] = a
	}

	seen := make(map[int64]bool)
	var out []core.SelectedAgent
	for _, item := range doc.Array() {
		idv := item.Get("agent_id")
		if !idv.Exists() || (idv.Type != gjson.Number && idv.Type != gjson.String) {
			continue
		}
		id := idv.Int()
		agent, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true

		role := core.Role(strings.ToLower(item.Get("role").String()))
		if role != core.RolePrimary && role != core.RoleSupporting {
			role = core.RoleSupporting
		}
		reasoning := item.Get("reasoning").String()
		if reasoning == "" {
			reasoning = defaultReasoning
		}
		priority := int(item.Get("priority").Int())
		if priority <= 0 {
			priority = defaultPriority
		}

		out = append(out, core.SelectedAgent{
			AgentID:      agent.ID,
			AgentType:    agent.Type,
			Name:         agent.Name,
			Role:         role,
			Reasoning:    reasoning,
			Priority:     priority,
			Capabilities: agent.Capabilities.Clone(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].AgentID < out[j].AgentID
	})
	return out
}
