package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Func is a tool implemented in-process.
type Func func(ctx context.Context, params map[string]any) (any, error)

// LocalTransport serves tools from plain Go functions. It is used for offline
// runs and tests, and as a fallback server family next to remote ones.
//
// Functions are registered per tool name; the server passed to Call is only
// checked when the function was registered with an explicit server.
type LocalTransport struct {
	mu    sync.RWMutex
	funcs map[string]localFunc
}

type localFunc struct {
	server string
	fn     Func
}

// NewLocalTransport returns an empty local transport.
func NewLocalTransport() *LocalTransport {
	return &LocalTransport{funcs: make(map[string]localFunc)}
}

// Register binds fn to name. server may be empty to accept any routing.
func (t *LocalTransport) Register(server, name string, fn Func) *LocalTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.funcs[name] = localFunc{server: server, fn: fn}
	return t
}

// Call runs the registered function. Non-ToolError failures become
// EXECUTION_ERROR.
func (t *LocalTransport) Call(ctx context.Context, server, name string, params map[string]any) (*Result, error) {
	t.mu.RLock()
	lf, ok := t.funcs[name]
	t.mu.RUnlock()

	if !ok || (lf.server != "" && lf.server != server) {
		return nil, &ToolError{Tool: name, Server: server, Message: "tool not found", Code: CodeRouting}
	}

	out, err := lf.fn(ctx, params)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok {
			return nil, toolErr
		}
		return nil, &ToolError{Tool: name, Server: server, Message: err.Error(), Code: CodeExecution, Err: err}
	}

	var text string
	switch v := out.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode result of %s: %w", name, err)
		}
		text = string(b)
	}
	return &Result{Content: out, Text: text}, nil
}

var _ Transport = (*LocalTransport)(nil)
