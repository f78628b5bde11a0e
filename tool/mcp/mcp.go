// Package mcp implements tool.Transport over the Model Context Protocol. Each
// server family maps to one MCP server process reached over stdio; clients
// are started and initialized lazily on first use and reused afterwards.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"

	"github.com/hupe1980/agentcoord/logging"
	"github.com/hupe1980/agentcoord/tool"
)

// ServerConfig describes how to launch one MCP server.
type ServerConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
	Env     []string `mapstructure:"env"`
}

// ClientFactory creates a started, not yet initialized MCP client.
type ClientFactory func(ctx context.Context, name string, cfg ServerConfig) (*client.Client, error)

// StdioFactory launches cfg.Command as a subprocess speaking MCP over stdio.
func StdioFactory(_ context.Context, name string, cfg ServerConfig) (*client.Client, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("mcp: server %s has no command", name)
	}
	return client.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
}

// Options configure the transport.
type Options struct {
	ClientName    string
	ClientVersion string
	Factory       ClientFactory
	Logger        logging.Logger
}

// Transport dispatches tool calls to MCP servers.
type Transport struct {
	servers map[string]ServerConfig
	opts    Options

	mu    sync.Mutex
	conns map[string]*conn
}

type conn struct {
	mu     sync.Mutex
	client *client.Client
}

// New creates a transport for the given server configurations.
func New(servers map[string]ServerConfig, optFns ...func(o *Options)) *Transport {
	opts := Options{
		ClientName:    "agentcoord",
		ClientVersion: "0.1.0",
		Factory:       StdioFactory,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Transport{
		servers: servers,
		opts:    opts,
		conns:   make(map[string]*conn),
	}
}

// Servers returns the configured server names.
func (t *Transport) Servers() []string {
	out := make([]string, 0, len(t.servers))
	for name := range t.servers {
		out = append(out, name)
	}
	return out
}

func (t *Transport) conn(server string) (*conn, bool) {
	if _, ok := t.servers[server]; !ok {
		return nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.conns[server]
	if !ok {
		c = &conn{}
		t.conns[server] = c
	}
	return c, true
}

// ready returns an initialized client for server, starting it on first use.
// A failed start is not cached; the next call tries again.
func (t *Transport) ready(ctx context.Context, server string, c *conn) (*client.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	cli, err := t.opts.Factory(ctx, server, t.servers[server])
	if err != nil {
		return nil, fmt.Errorf("mcp: start %s: %w", server, err)
	}

	req := mcpgo.InitializeRequest{}
	req.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcpgo.Implementation{
		Name:    t.opts.ClientName,
		Version: t.opts.ClientVersion,
	}
	if _, err := cli.Initialize(ctx, req); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("mcp: initialize %s: %w", server, err)
	}

	t.opts.Logger.Info("mcp.client.ready", "server", server)
	c.client = cli
	return cli, nil
}

// Call invokes name on server.
func (t *Transport) Call(ctx context.Context, server, name string, params map[string]any) (*tool.Result, error) {
	c, ok := t.conn(server)
	if !ok {
		return nil, &tool.ToolError{Tool: name, Server: server, Message: "unknown MCP server", Code: tool.CodeRouting}
	}

	cli, err := t.ready(ctx, server, c)
	if err != nil {
		return nil, err
	}

	res, err := cli.CallTool(ctx, mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: params,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mcp: call %s on %s: %w", name, server, err)
	}

	text := resultText(res)
	if res.IsError {
		return nil, &tool.ToolError{Tool: name, Server: server, Message: text, Code: tool.CodeExecution, Err: errors.New(text)}
	}

	out := &tool.Result{Text: text}
	if gjson.Valid(text) {
		out.Content = gjson.Parse(text).Value()
	}
	return out, nil
}

// Close shuts down every started client.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs []error
	for name, c := range t.conns {
		c.mu.Lock()
		if c.client != nil {
			if err := c.client.Close(); err != nil {
				errs = append(errs, fmt.Errorf("mcp: close %s: %w", name, err))
			}
			c.client = nil
		}
		c.mu.Unlock()
	}
	return errors.Join(errs...)
}

func resultText(res *mcpgo.CallToolResult) string {
	var parts []string
	for _, content := range res.Content {
		switch tc := content.(type) {
		case mcpgo.TextContent:
			parts = append(parts, tc.Text)
		case *mcpgo.TextContent:
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var _ tool.Transport = (*Transport)(nil)
