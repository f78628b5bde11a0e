// Package agentcoord provides a high-level façade over the coordination
// engine: agent registry, selection, context assembly, agent execution and
// session handoffs. Most applications interact with this package by:
//  1. Creating an AgentCoord via New() (optionally overriding the default
//     in‑memory stores and supplying an LLM backend)
//  2. Selecting agents for a task (GetAvailableAgents) or running the full
//     advisory pipeline (Recommend)
//  3. Driving sessions explicitly (CreateSession, AssignTask, Handoff,
//     Coordinate, ResolveConflicts) when finer control is needed
//
// Without a backend every selection runs in database mode and Coordinate
// returns the database acknowledgement. All defaults are safe for local
// development and testing; production deployments typically supply the
// SQLite registry, a Redis session store and a structured logger.
package agentcoord

import (
	"time"

	"github.com/hupe1980/agentcoord/coordinator"
	"github.com/hupe1980/agentcoord/core"
	"github.com/hupe1980/agentcoord/executor"
	"github.com/hupe1980/agentcoord/logging"
	"github.com/hupe1980/agentcoord/metrics"
	"github.com/hupe1980/agentcoord/model"
	"github.com/hupe1980/agentcoord/prompt"
	"github.com/hupe1980/agentcoord/registry"
	"github.com/hupe1980/agentcoord/selection"
	"github.com/hupe1980/agentcoord/tool"
)

// Options configures the AgentCoord instance.
type Options struct {
	// Registry holds the agents. Defaults to an in-memory registry seeded
	// with the ten default advisors.
	Registry core.AgentRegistry

	// Stores (defaults to in-memory implementations if not provided)
	Sessions  core.SessionStore
	Responses core.ResponseStore
	Contexts  core.ContextStore

	// Backend enables the llm and hybrid paths and agent execution.
	Backend model.Completer

	// Mode selects agents. Defaults to hybrid with a backend, else database.
	Mode      core.SelectionMode
	Threshold core.Complexity
	Limit     selection.LimitPolicy

	// Timeout bounds each backend call.
	Timeout time.Duration

	// Transport dispatches tool calls. Without it agents see the catalog
	// but Recommend gathers no tool data.
	Transport tool.Transport

	// CallBudget caps backend calls per Recommend run. 0 is unlimited.
	CallBudget int

	// Logger (defaults to NoOp logger if nil)
	Logger  logging.Logger
	Metrics *metrics.Metrics
}

// AgentCoord is the high-level façade aggregating the coordinator and the
// components it drives.
type AgentCoord struct {
	*coordinator.Coordinator

	opts Options
}

// New creates a new AgentCoord instance with optional overrides.
func New(optFns ...func(o *Options)) *AgentCoord {
	opts := Options{
		Threshold: core.ComplexityMedium,
		Limit:     selection.DefaultLimitPolicy(),
		Timeout:   30 * time.Second,
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Registry == nil {
		opts.Registry = registry.NewInMemoryRegistry(registry.DefaultAgents()...)
	}
	if opts.Mode == "" {
		opts.Mode = core.ModeDatabase
		if opts.Backend != nil {
			opts.Mode = core.ModeHybrid
		}
	}

	selector := selection.NewSelector(opts.Registry, func(o *selection.Options) {
		o.Mode = opts.Mode
		o.Threshold = opts.Threshold
		o.Completer = opts.Backend
		o.Limit = opts.Limit
		o.Timeout = opts.Timeout
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
	})
	builder := prompt.NewBuilder(func(o *prompt.Options) { o.Logger = opts.Logger })

	var (
		planner *selection.Planner
		driver  *executor.Driver
		gateway *tool.Gateway
	)
	if opts.Transport != nil {
		gateway = tool.NewGateway(opts.Transport, func(o *tool.GatewayOptions) {
			o.Logger = opts.Logger
			o.Observer = opts.Metrics.ObserveToolCall
		})
	}
	if opts.Backend != nil {
		planner = selection.NewPlanner(opts.Backend, opts.Timeout, opts.Logger)
		driver = executor.NewDriver(executor.Static(opts.Backend), func(o *executor.Options) {
			if gateway != nil {
				o.Tools = gateway
			}
			o.Builder = builder
			o.Logger = opts.Logger
			o.Metrics = opts.Metrics
		})
	}

	c := coordinator.New(opts.Registry, func(o *coordinator.Options) {
		o.Sessions = opts.Sessions
		o.Responses = opts.Responses
		o.Contexts = opts.Contexts
		o.Selector = selector
		o.Planner = planner
		o.Builder = builder
		o.Driver = driver
		o.Gateway = gateway
		o.CallBudget = opts.CallBudget
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
	})
	return &AgentCoord{Coordinator: c, opts: opts}
}

// Mode returns the selection mode in use.
func (a *AgentCoord) Mode() core.SelectionMode { return a.opts.Mode }

// Registry returns the agent registry.
func (a *AgentCoord) Registry() core.AgentRegistry { return a.opts.Registry }
