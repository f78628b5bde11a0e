package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall represents a function call request surfaced by a model provider.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Request is a single-turn completion request. Nil sampling fields fall back
// to the backend's configured defaults; MaxTokens <= 0 does the same.
type Request struct {
	System      string           `json:"system,omitempty"`
	Prompt      string           `json:"prompt"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	TopP        *float64         `json:"top_p,omitempty"`
	MaxTokens   int64            `json:"max_tokens,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Response is the final completion text plus any tool calls requested.
type Response struct {
	ID           string      `json:"id"`
	Text         string      `json:"text"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "ollama", "mock"
	SupportsTools bool   `json:"supports_tools"`
}

// Completer is the minimal interface the coordination engine needs from an
// LLM backend.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// Float returns a pointer to v, for the optional sampling fields of Request.
func Float(v float64) *float64 { return &v }

// Observer receives the outcome of every completion made through Observe.
type Observer func(info Info, dur time.Duration, err error)

type observed struct {
	Completer
	fn Observer
}

// Observe wraps c so that fn is called after each completion.
func Observe(c Completer, fn Observer) Completer {
	if fn == nil {
		return c
	}
	return &observed{Completer: c, fn: fn}
}

func (o *observed) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := o.Completer.Complete(ctx, req)
	o.fn(o.Completer.Info(), time.Since(start), err)
	return resp, err
}

// ErrNoScriptedResponse is returned by MockCompleter when nothing matches.
var ErrNoScriptedResponse = errors.New("mock: no scripted response")

// MockCompleter is a scripted in‑memory Completer for tests & examples.
//
// Lookup order: Handler, then Err, then the first rule whose substring is
// contained in the prompt, then the FIFO queue, then the default text.
type MockCompleter struct {
	Handler func(ctx context.Context, req Request) (*Response, error)
	Err     error
	Delay   time.Duration
	Default string

	mu    sync.Mutex
	info  Info
	rules []mockRule
	queue []string
	calls []Request
}

type mockRule struct{ contains, text string }

// NewMockCompleter constructs a MockCompleter.
func NewMockCompleter(name string) *MockCompleter {
	return &MockCompleter{info: Info{Name: name, Provider: "mock", SupportsTools: true}}
}

// AddResponse answers prompts containing substr with text.
func (m *MockCompleter) AddResponse(substr, text string) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{contains: substr, text: text})
	return m
}

// Enqueue appends texts to be returned in order to unmatched prompts.
func (m *MockCompleter) Enqueue(texts ...string) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, texts...)
	return m
}

// Calls returns a copy of every request received.
func (m *MockCompleter) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Complete implements Completer.
func (m *MockCompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Handler != nil {
		return m.Handler(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rules {
		if strings.Contains(req.Prompt, r.contains) {
			return &Response{Text: r.text, FinishReason: "stop"}, nil
		}
	}
	if len(m.queue) > 0 {
		text := m.queue[0]
		m.queue = m.queue[1:]
		return &Response{Text: text, FinishReason: "stop"}, nil
	}
	if m.Default != "" {
		return &Response{Text: m.Default, FinishReason: "stop"}, nil
	}
	return nil, fmt.Errorf("%w for prompt %q", ErrNoScriptedResponse, truncate(req.Prompt, 60))
}

// Info implements Completer.
func (m *MockCompleter) Info() Info { return m.info }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ Completer = (*MockCompleter)(nil)
