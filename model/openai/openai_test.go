package openai

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

func newTestServer(t *testing.T, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "llama3",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "[{\"agent_id\": 2}]"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
}

func TestModel_Complete(t *testing.T) {
	var body map[string]any
	srv := newTestServer(t, &body)
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.Model = "llama3"
		o.Provider = "ollama"
		o.BaseURL = srv.URL
		o.APIKey = "ollama"
	})

	resp, err := m.Complete(context.Background(), model.Request{
		System:      "system rules",
		Prompt:      "pick agents",
		Temperature: model.Float(0.2),
		MaxTokens:   300,
		Tools: []model.ToolDefinition{{
			Name:        "search_trends",
			Description: "Search trends",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{"query": map[string]any{"type": "string"}}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"agent_id": 2}]`, resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, int64(15), resp.Usage.TotalTokens)

	assert.Equal(t, "llama3", body["model"])
	assert.InDelta(t, 0.2, body["temperature"], 1e-9)
	assert.InDelta(t, 0.9, body["top_p"], 1e-9)
	assert.InDelta(t, 300, body["max_completion_tokens"], 1e-9)

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])

	tools, ok := body["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)

	info := m.Info()
	assert.Equal(t, "ollama", info.Provider)
	assert.Equal(t, "llama3", info.Name)
}

func TestModel_CompleteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "bad", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.BaseURL = srv.URL
		o.APIKey = "k"
	})
	_, err := m.Complete(context.Background(), model.Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai api error")
}
