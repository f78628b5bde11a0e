// Package executor runs a rendered prompt against the LLM backend on behalf
// of one advisor agent.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agentcoord/core"
	"github.com/hupe1980/agentcoord/logging"
	"github.com/hupe1980/agentcoord/metrics"
	"github.com/hupe1980/agentcoord/model"
	"github.com/hupe1980/agentcoord/prompt"
	"github.com/hupe1980/agentcoord/tool"
)

const (
	defaultTemperature   = 0.7
	defaultTopP          = 0.9
	defaultMaxTokens     = 2048
	defaultTimeout       = 120 * time.Second
	defaultMaxToolRounds = 3
	defaultMaxParallel   = 4
)

var (
	// ErrNoFactory is returned when a Driver has no way to create a backend.
	ErrNoFactory = errors.New("executor: no backend factory configured")

	// ErrUnansweredToolCalls is returned when the model answers only with
	// tool calls the driver cannot serve.
	ErrUnansweredToolCalls = errors.New("executor: model requested tools without answering")
)

// Factory creates the backend. It is called until it first succeeds.
type Factory func(ctx context.Context) (model.Completer, error)

// Static returns a Factory that always yields c.
func Static(c model.Completer) Factory {
	return func(context.Context) (model.Completer, error) { return c, nil }
}

// Options configure a Driver.
type Options struct {
	Temperature float64
	TopP        float64
	MaxTokens   int64

	// Timeout bounds a single completion.
	Timeout time.Duration

	// Budget caps completions across the driver's lifetime. Nil is unlimited.
	// A budget attached to the call context with core.WithCallBudget is
	// consumed as well.
	Budget *core.CallBudget

	// Tools dispatches tool calls requested by the model. Without it a reply
	// made only of tool calls fails with ErrUnansweredToolCalls.
	Tools ToolInvoker

	// MaxToolRounds bounds how often tool results are fed back to the model.
	MaxToolRounds int

	// MaxParallelTools bounds concurrent tool calls within one round.
	MaxParallelTools int

	// Builder renders the system context. Defaults to prompt.NewBuilder().
	Builder *prompt.Builder

	Logger  logging.Logger
	Metrics *metrics.Metrics
}

// Driver executes agent prompts. The backend is created on first use and
// shared by all later calls.
type Driver struct {
	factory Factory
	opts    Options
	builder *prompt.Builder
	logger  logging.Logger

	mu      sync.Mutex
	backend model.Completer
}

// NewDriver creates a driver that obtains its backend from factory.
func NewDriver(factory Factory, optFns ...func(o *Options)) *Driver {
	opts := Options{
		Temperature:      defaultTemperature,
		TopP:             defaultTopP,
		MaxTokens:        defaultMaxTokens,
		Timeout:          defaultTimeout,
		MaxToolRounds:    defaultMaxToolRounds,
		MaxParallelTools: defaultMaxParallel,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxToolRounds < 0 {
		opts.MaxToolRounds = 0
	}
	if opts.MaxParallelTools <= 0 {
		opts.MaxParallelTools = defaultMaxParallel
	}
	if opts.Builder == nil {
		opts.Builder = prompt.NewBuilder(func(o *prompt.Options) { o.Logger = opts.Logger })
	}
	return &Driver{
		factory: factory,
		opts:    opts,
		builder: opts.Builder,
		logger:  logging.OrNoOp(opts.Logger),
	}
}

// Backend returns the shared backend, creating it if needed.
func (d *Driver) Backend(ctx context.Context) (model.Completer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.backend != nil {
		return d.backend, nil
	}
	if d.factory == nil {
		return nil, ErrNoFactory
	}
	c, err := d.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	if c == nil {
		return nil, ErrNoFactory
	}
	d.backend = c
	d.logger.Info("executor.backend_created", "provider", c.Info().Provider, "model", c.Info().Name)
	return c, nil
}

// Execute sends prompt to the backend with a system context describing the
// agent's tools and returns the completion text. Tool calls in the reply are
// dispatched through Options.Tools and their results fed back to the model,
// at most MaxToolRounds times. Failures are returned wrapped in
// core.ErrUpstreamUnavailable.
func (d *Driver) Execute(ctx context.Context, promptText string, tools []tool.Descriptor, agentType string) (string, error) {
	backend, err := d.Backend(ctx)
	if err != nil {
		return "", core.Unavailable("execute", err)
	}

	req := model.Request{
		System:    d.builder.System(agentType, tools),
		Prompt:    promptText,
		Tools:     tool.Definitions(tools),
		MaxTokens: d.opts.MaxTokens,
	}
	if d.opts.Temperature > 0 {
		req.Temperature = model.Float(d.opts.Temperature)
	}
	if d.opts.TopP > 0 {
		req.TopP = model.Float(d.opts.TopP)
	}

	for round := 0; ; round++ {
		resp, err := d.complete(ctx, backend, req, agentType, round)
		if err != nil {
			return "", err
		}
		if len(resp.ToolCalls) == 0 {
			return resp.Text, nil
		}

		if d.opts.Tools == nil || round >= d.opts.MaxToolRounds {
			if strings.TrimSpace(resp.Text) != "" {
				d.logger.Warn("executor.tool_calls_dropped", "agent_type", agentType, "calls", len(resp.ToolCalls), "round", round)
				return resp.Text, nil
			}
			return "", core.Unavailable("execute", fmt.Errorf("%w: %s", ErrUnansweredToolCalls, callNames(resp.ToolCalls)))
		}

		results := d.callTools(ctx, agentType, resp.ToolCalls)
		req.Prompt = AppendToolResults(req.Prompt, resp.Text, results)
	}
}

func (d *Driver) complete(ctx context.Context, backend model.Completer, req model.Request, agentType string, round int) (*model.Response, error) {
	if err := d.opts.Budget.Acquire(); err != nil {
		return nil, core.Unavailable("execute", err)
	}
	if err := core.CallBudgetFrom(ctx).Acquire(); err != nil {
		return nil, core.Unavailable("execute", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	info := backend.Info()
	start := time.Now()
	resp, err := backend.Complete(ctx, req)
	dur := time.Since(start)
	d.opts.Metrics.ObserveLLMCall(info.Provider, info.Name, dur, err)
	if err == nil && resp == nil {
		err = errors.New("empty response")
	}
	if err != nil {
		logging.LogLLMCall(d.logger, info.Name, dur, err, "agent_type", agentType, "round", round)
		return nil, core.Unavailable("execute", err)
	}

	logging.LogLLMCall(d.logger, info.Name, dur, nil,
		"agent_type", agentType,
		"round", round,
		"tools", len(req.Tools),
		"tool_calls", len(resp.ToolCalls),
		"prompt_chars", len(req.Prompt),
		"response_chars", len(resp.Text),
	)
	return resp, nil
}
