package mcp

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcoord/tool"
)

func newSearchServer() *server.MCPServer {
	s := server.NewMCPServer("web-search-tools", "1.0.0", server.WithToolCapabilities(true))

	s.AddTool(mcpgo.NewTool("search_trends",
		mcpgo.WithDescription("Search trending topics"),
		mcpgo.WithString("query", mcpgo.Required()),
	), func(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		q, _ := req.GetArguments()["query"].(string)
		return mcpgo.NewToolResultText(fmt.Sprintf(`{"results":[{"title":"%s trends","relevance_score":0.9}]}`, q)), nil
	})

	s.AddTool(mcpgo.NewTool("search_hashtags",
		mcpgo.WithDescription("Search hashtags"),
	), func(context.Context, mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		return mcpgo.NewToolResultError("quota exceeded"), nil
	})

	s.AddTool(mcpgo.NewTool("plain"), func(context.Context, mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		return mcpgo.NewToolResultText("no json here"), nil
	})
	return s
}

func inProcessFactory(srv *server.MCPServer, starts *int32) ClientFactory {
	return func(ctx context.Context, _ string, _ ServerConfig) (*client.Client, error) {
		atomic.AddInt32(starts, 1)
		cli, err := client.NewInProcessClient(srv)
		if err != nil {
			return nil, err
		}
		if err := cli.Start(ctx); err != nil {
			return nil, err
		}
		return cli, nil
	}
}

func TestTransport_Call(t *testing.T) {
	ctx := context.Background()
	var starts int32
	tr := New(map[string]ServerConfig{tool.ServerWebSearch: {}}, func(o *Options) {
		o.Factory = inProcessFactory(newSearchServer(), &starts)
	})
	t.Cleanup(func() { _ = tr.Close() })

	res, err := tr.Call(ctx, tool.ServerWebSearch, "search_trends", map[string]any{"query": "fitness"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"results":[{"title":"fitness trends","relevance_score":0.9}]}`, res.Text)

	content, ok := res.Content.(map[string]any)
	require.True(t, ok)
	assert.Len(t, content["results"], 1)

	res, err = tr.Call(ctx, tool.ServerWebSearch, "plain", nil)
	require.NoError(t, err)
	assert.Equal(t, "no json here", res.Text)
	assert.Nil(t, res.Content)

	assert.Equal(t, int32(1), atomic.LoadInt32(&starts), "client is started once")
}

func TestTransport_ToolReportsError(t *testing.T) {
	var starts int32
	tr := New(map[string]ServerConfig{tool.ServerWebSearch: {}}, func(o *Options) {
		o.Factory = inProcessFactory(newSearchServer(), &starts)
	})
	t.Cleanup(func() { _ = tr.Close() })

	_, err := tr.Call(context.Background(), tool.ServerWebSearch, "search_hashtags", map[string]any{})
	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tool.CodeExecution, toolErr.Code)
	assert.Contains(t, toolErr.Message, "quota exceeded")
}

func TestTransport_UnknownServer(t *testing.T) {
	tr := New(map[string]ServerConfig{})
	_, err := tr.Call(context.Background(), "twitter-tools", "search_twitter_trends", nil)
	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tool.CodeRouting, toolErr.Code)
}

func TestTransport_ThroughGateway(t *testing.T) {
	var starts int32
	tr := New(map[string]ServerConfig{tool.ServerWebSearch: {}}, func(o *Options) {
		o.Factory = inProcessFactory(newSearchServer(), &starts)
	})
	t.Cleanup(func() { _ = tr.Close() })

	g := tool.NewGateway(tr)
	res, err := g.Invoke(context.Background(), "search_trends", map[string]any{"query": "yoga"})
	require.NoError(t, err)
	assert.Equal(t, tool.ServerWebSearch, res.Server)
	assert.Contains(t, res.Text, "yoga trends")
}

func TestStdioFactory_RequiresCommand(t *testing.T) {
	_, err := StdioFactory(context.Background(), "x", ServerConfig{})
	assert.Error(t, err)
}
