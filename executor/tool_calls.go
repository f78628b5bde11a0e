package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentcoord/model"
	"github.com/hupe1980/agentcoord/tool"
)

// ToolInvoker dispatches a named tool call. *tool.Gateway implements it.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, params map[string]any) (*tool.Result, error)
}

var _ ToolInvoker = (*tool.Gateway)(nil)

// ToolOutcome is the result of one model-requested tool call.
type ToolOutcome struct {
	CallID string
	Name   string
	Output string
	Err    error
}

// callTools runs one round of tool calls with bounded parallelism. Exactly
// one outcome is returned per call, in call order. Panics and failures become
// error outcomes.
func (d *Driver) callTools(ctx context.Context, agentType string, calls []model.ToolCall) []ToolOutcome {
	outcomes := make([]ToolOutcome, len(calls))

	var g errgroup.Group
	g.SetLimit(d.opts.MaxParallelTools)
	for i, call := range calls {
		g.Go(func() error {
			outcomes[i] = d.callTool(ctx, agentType, call)
			return nil
		})
	}
	_ = g.Wait()

	d.logger.Debug("executor.tool_round.complete", "agent_type", agentType, "count", len(calls))
	return outcomes
}

func (d *Driver) callTool(ctx context.Context, agentType string, call model.ToolCall) (out ToolOutcome) {
	out = ToolOutcome{CallID: call.ID, Name: call.Name}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("tool %s panicked: %v", call.Name, r)
			d.logger.Error("executor.tool.panic", "agent_type", agentType, "tool", call.Name, "recover", r)
		}
	}()

	params, err := decodeArguments(call.Arguments)
	if err != nil {
		out.Err = fmt.Errorf("decode arguments of %s: %w", call.Name, err)
		return out
	}

	res, err := d.opts.Tools.Invoke(ctx, call.Name, params)
	d.logger.Debug("executor.tool.executed", "agent_type", agentType, "tool", call.Name,
		"duration_ms", time.Since(start).Milliseconds(), "error", err != nil)
	if err != nil {
		out.Err = err
		return out
	}
	out.Output = resultText(res)
	return out
}

func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	params := map[string]any{}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return params, nil
}

func resultText(res *tool.Result) string {
	if res == nil {
		return ""
	}
	if res.Content != nil {
		if b, err := json.Marshal(res.Content); err == nil {
			return string(b)
		}
	}
	return res.Text
}

// AppendToolResults extends prompt with the model's interim text and the
// outcome of every tool call, for the next completion round.
func AppendToolResults(prompt, interim string, outcomes []ToolOutcome) string {
	var b strings.Builder
	b.WriteString(prompt)
	if s := strings.TrimSpace(interim); s != "" {
		b.WriteString("\n\nYOUR NOTES SO FAR:\n")
		b.WriteString(s)
	}
	b.WriteString("\n\nTOOL RESULTS:\n")
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(&b, "- %s: error: %s\n", o.Name, o.Err.Error())
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", o.Name, o.Output)
	}
	b.WriteString("\nUse these results to answer the user query.")
	return b.String()
}

func callNames(calls []model.ToolCall) string {
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}
