package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentcoord/core"
	"github.com/hupe1980/agentcoord/logging"
)

const defaultTimeout = 30 * time.Second

// Observer receives the outcome of every dispatched invocation.
type Observer func(server, name string, dur time.Duration, err error)

// GatewayOptions configure a Gateway.
type GatewayOptions struct {
	// Timeout bounds each dispatched call.
	Timeout time.Duration

	// Routes override entries of the built-in routing table.
	Routes map[string]string

	// Catalog supplies schemas for argument validation. Tools missing from
	// the catalog are dispatched without validation.
	Catalog *Catalog

	Logger   logging.Logger
	Observer Observer
}

// Gateway validates, routes and dispatches tool calls.
type Gateway struct {
	transport Transport
	router    *Router
	catalog   *Catalog
	timeout   time.Duration
	logger    logging.Logger
	observer  Observer
}

// NewGateway creates a gateway dispatching over transport.
func NewGateway(transport Transport, optFns ...func(o *GatewayOptions)) *Gateway {
	opts := GatewayOptions{Timeout: defaultTimeout}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Catalog == nil {
		opts.Catalog = NewCatalog()
	}
	return &Gateway{
		transport: transport,
		router:    NewRouter(opts.Routes),
		catalog:   opts.Catalog,
		timeout:   opts.Timeout,
		logger:    logging.OrNoOp(opts.Logger),
		observer:  opts.Observer,
	}
}

// Catalog returns the descriptor catalog used for validation.
func (g *Gateway) Catalog() *Catalog { return g.catalog }

// Route returns the server family that would receive name.
func (g *Gateway) Route(name string) string { return g.router.Route(name) }

// ListTools returns the descriptors available to agentType.
func (g *Gateway) ListTools(agentType string) []Descriptor {
	return g.catalog.ForAgentType(agentType)
}

// Invoke validates params, resolves the server for name and dispatches the
// call. Failures are *ToolError; execution and timeout failures also satisfy
// errors.Is(err, core.ErrUpstreamUnavailable).
func (g *Gateway) Invoke(ctx context.Context, name string, params map[string]any) (*Result, error) {
	if name == "" {
		return nil, NewToolError(name, "tool name is empty", CodeRouting)
	}
	if params == nil {
		params = map[string]any{}
	}

	if d, ok := g.catalog.Lookup(name); ok && d.Parameters != nil {
		if err := ValidateParameters(params, d.Parameters); err != nil {
			g.logger.Warn("tool.invoke.validation_failed", "tool", name, "error", err.Error())
			return nil, &ToolError{
				Tool:    name,
				Message: fmt.Sprintf("parameter validation failed: %v", err),
				Code:    CodeValidation,
				Err:     err,
			}
		}
	}

	server := g.router.Route(name)
	if g.transport == nil {
		return nil, &ToolError{Tool: name, Server: server, Message: "no transport configured", Code: CodeRouting}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	g.logger.Debug("tool.invoke.start", "tool", name, "server", server)
	start := time.Now()

	res, err := g.transport.Call(ctx, server, name, params)
	dur := time.Since(start)
	if g.observer != nil {
		g.observer(server, name, dur, err)
	}

	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) && toolErr.Code != CodeExecution && toolErr.Code != CodeTimeout {
			return nil, toolErr
		}

		code := CodeExecution
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			code = CodeTimeout
		}
		logging.LogToolCall(g.logger, name, server, dur, err, "code", code)
		return nil, &ToolError{
			Tool:    name,
			Server:  server,
			Message: err.Error(),
			Code:    code,
			Err:     core.Unavailable("tool "+name, err),
		}
	}

	if res == nil {
		res = &Result{}
	}
	res.Tool = name
	res.Server = server
	res.Duration = dur

	logging.LogToolCall(g.logger, name, server, dur, nil)
	return res, nil
}
