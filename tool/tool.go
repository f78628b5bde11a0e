// Package tool implements the tool invocation gateway: agents name a tool,
// the gateway validates the arguments against the tool's schema, resolves the
// server family that hosts it through a static routing table and dispatches
// the call over a Transport with a bounded timeout.
package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentcoord/model"
)

// Error codes carried by ToolError.
const (
	CodeRouting    = "ROUTING_ERROR"
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeTimeout    = "TIMEOUT"
)

// Descriptor describes a tool as exposed to the model.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Definition converts the descriptor into a model tool definition.
func (d Descriptor) Definition() model.ToolDefinition {
	return model.ToolDefinition{Name: d.Name, Description: d.Description, Parameters: d.Parameters}
}

// Definitions converts a descriptor list for a model request.
func Definitions(descs []Descriptor) []model.ToolDefinition {
	out := make([]model.ToolDefinition, 0, len(descs))
	for _, d := range descs {
		out = append(out, d.Definition())
	}
	return out
}

// Result is the outcome of a successful invocation. Content holds the decoded
// JSON payload when the server answered with JSON, Text the raw answer.
type Result struct {
	Tool     string        `json:"tool"`
	Server   string        `json:"server"`
	Content  any           `json:"content,omitempty"`
	Text     string        `json:"text"`
	Duration time.Duration `json:"duration"`
}

// Transport delivers a call to a named tool server.
type Transport interface {
	Call(ctx context.Context, server, name string, params map[string]any) (*Result, error)
}

// ToolError represents errors that occur during tool invocation.
type ToolError struct {
	Tool    string `json:"tool"`
	Server  string `json:"server,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Err     error  `json:"-"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
