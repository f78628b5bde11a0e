package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcoord/model"
)

func TestModel_Complete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-sonnet-20241022",
			"stop_reason": "end_turn",
			"content": [{"type": "text", "text": "complex"}],
			"usage": {"input_tokens": 12, "output_tokens": 1}
		}`))
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})

	resp, err := m.Complete(context.Background(), model.Request{
		System: "classify",
		Prompt: "task",
		Tools: []model.ToolDefinition{{
			Name:       "search_web",
			Parameters: map[string]any{"properties": map[string]any{"query": map[string]any{"type": "string"}}, "required": []any{"query"}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "complex", resp.Text)
	assert.Equal(t, "end_turn", resp.FinishReason)
	assert.Equal(t, int64(13), resp.Usage.TotalTokens)

	assert.NotNil(t, body["system"])
	tools, ok := body["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	assert.Equal(t, "search_web", tools[0].(map[string]any)["name"])
	assert.Equal(t, "anthropic", m.Info().Provider)
}

func TestBuildTools_Required(t *testing.T) {
	tools := buildTools([]model.ToolDefinition{{
		Name:        "t",
		Description: "d",
		Parameters:  map[string]any{"required": []string{"a"}},
	}})
	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, []string{"a"}, tools[0].OfTool.InputSchema.Required)
}
