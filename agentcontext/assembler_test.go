package agentcontext

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcoord/core"
	"github.com/hupe1980/agentcoord/memory"
	"github.com/hupe1980/agentcoord/registry"
)

type failingContexts struct{ err error }

func (f failingContexts) Upsert(context.Context, core.ContextItem) (string, error) {
	return "", f.err
}

func (f failingContexts) Query(context.Context, core.ContextQuery) ([]core.SearchResult, error) {
	return nil, f.err
}

func (f failingContexts) Scroll(context.Context, string, int, string) ([]core.SearchResult, error) {
	return nil, f.err
}

// leakyContexts ignores the owner key, so the assembler's own filter is tested.
type leakyContexts struct{ results []core.SearchResult }

func (l leakyContexts) Upsert(context.Context, core.ContextItem) (string, error) { return "x", nil }

func (l leakyContexts) Query(context.Context, core.ContextQuery) ([]core.SearchResult, error) {
	return l.results, nil
}

func (l leakyContexts) Scroll(context.Context, string, int, string) ([]core.SearchResult, error) {
	return l.results, nil
}

func seed(t *testing.T, store core.ContextStore, owner string, texts ...string) {
	t.Helper()
	for _, text := range texts {
		_, err := store.Upsert(context.Background(), core.ContextItem{OwnerKey: owner, Text: text, Type: core.ContextTypeSearchResult})
		require.NoError(t, err)
	}
}

func TestAssemble_DefaultLimits(t *testing.T) {
	ctx := context.Background()
	contexts := memory.NewInMemoryStore()
	responses := registry.NewInMemoryResponseStore()

	seed(t, contexts, "user_7",
		"instagram reels growth tips",
		"tiktok hashtag trends",
		"youtube shorts analytics",
		"brand partnership pricing",
		"newsletter engagement",
	)
	for i := 0; i < 8; i++ {
		_, err := responses.Append(ctx, 3, fmt.Sprintf("task-%d", i), fmt.Sprintf("advice %d", i), "influencer_analysis")
		require.NoError(t, err)
	}

	a := New(contexts, responses)
	out, err := a.Assemble(ctx, Request{OwnerKey: "user_7", Prompt: "grow on instagram", AgentID: 3})
	require.NoError(t, err)

	assert.Len(t, out.Similar, 3)
	assert.Len(t, out.Responses, 5)
	assert.Equal(t, "advice 7", out.Responses[0].Response)
	assert.Equal(t, 3, out.Metadata.Window)
	assert.Equal(t, 3, out.Metadata.SimilarCount)
	assert.Equal(t, 5, out.Metadata.ResponseCount)
	assert.Empty(t, out.Metadata.Errors)
	assert.Equal(t, "grow on instagram", out.Prompt)

	assert.True(t, strings.HasPrefix(out.Text, "Relevance: "))
	assert.Contains(t, out.Text, "\n\nRecent responses:")
	assert.Contains(t, out.Text, "(influencer_analysis): advice 7")
}

func TestAssemble_WindowOverride(t *testing.T) {
	contexts := memory.NewInMemoryStore()
	seed(t, contexts, "user_1", "a one", "b two", "c three", "d four")

	out, err := New(contexts, nil).Assemble(context.Background(), Request{OwnerKey: "user_1", Prompt: "one", Window: 1})
	require.NoError(t, err)
	assert.Len(t, out.Similar, 1)
	assert.Equal(t, 1, out.Metadata.Window)
}

func TestAssemble_NoContext(t *testing.T) {
	out, err := New(memory.NewInMemoryStore(), registry.NewInMemoryResponseStore()).
		Assemble(context.Background(), Request{OwnerKey: "user_9", Prompt: "anything", AgentID: 1})
	require.NoError(t, err)
	assert.Equal(t, NoContext, out.Text)
	assert.Empty(t, out.Similar)
	assert.Empty(t, out.Responses)
}

func TestAssemble_Truncates(t *testing.T) {
	contexts := memory.NewInMemoryStore()
	seed(t, contexts, "user_1", strings.Repeat("x", 500), strings.Repeat("y", 500), strings.Repeat("z", 500))

	out, err := New(contexts, nil).Assemble(context.Background(), Request{OwnerKey: "user_1", Prompt: "xyz"})
	require.NoError(t, err)
	assert.True(t, out.Metadata.Truncated)
	assert.Len(t, []rune(out.Text), 1000)

	small := New(contexts, nil, func(o *Options) { o.CharBudget = 20 })
	out, err = small.Assemble(context.Background(), Request{OwnerKey: "user_1", Prompt: "xyz"})
	require.NoError(t, err)
	assert.Len(t, []rune(out.Text), 20)
}

func TestAssemble_OwnerScoping(t *testing.T) {
	contexts := memory.NewInMemoryStore()
	seed(t, contexts, "user_A", "pricing for sponsored posts")
	seed(t, contexts, "user_B", "pricing for sponsored posts secret")

	out, err := New(contexts, nil).Assemble(context.Background(), Request{OwnerKey: "user_A", Prompt: "pricing"})
	require.NoError(t, err)
	require.Len(t, out.Similar, 1)
	assert.Equal(t, "user_A", out.Similar[0].OwnerKey)
	assert.NotContains(t, out.Text, "secret")

	leaky := leakyContexts{results: []core.SearchResult{
		{OwnerKey: "user_A", Text: "mine", Score: 0.9},
		{OwnerKey: "user_B", Text: "theirs", Score: 0.8},
	}}
	out, err = New(leaky, nil).Assemble(context.Background(), Request{OwnerKey: "user_A", Prompt: "p"})
	require.NoError(t, err)
	require.Len(t, out.Similar, 1)
	assert.Equal(t, "Relevance: 0.90 - mine", out.Text)
}

func TestAssemble_FailSoft(t *testing.T) {
	responses := registry.NewInMemoryResponseStore()
	_, err := responses.Append(context.Background(), 2, "t1", "keep posting", "influencer_analysis")
	require.NoError(t, err)

	a := New(failingContexts{err: errors.New("index offline")}, responses)
	out, err := a.Assemble(context.Background(), Request{OwnerKey: "user_1", Prompt: "p", AgentID: 2})
	require.NoError(t, err)
	assert.Empty(t, out.Similar)
	assert.Len(t, out.Responses, 1)
	require.Len(t, out.Metadata.Errors, 1)
	assert.Contains(t, out.Metadata.Errors[0], "index offline")
	assert.True(t, strings.HasPrefix(out.Text, NoContext))
}

func TestAssemble_Strict(t *testing.T) {
	a := New(failingContexts{err: errors.New("index offline")}, nil, func(o *Options) { o.Strict = true })
	_, err := a.Assemble(context.Background(), Request{OwnerKey: "user_1", Prompt: "p"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUpstreamUnavailable)
}

func TestAssemble_RequiresOwner(t *testing.T) {
	_, err := New(memory.NewInMemoryStore(), nil).Assemble(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestFormatResponses(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	text := FormatResponses([]core.AgentResponseRecord{
		{TaskID: "t1", Response: "post daily", ResponseType: "influencer_analysis", CreatedAt: at},
	})
	assert.Equal(t, "Recent responses:\n- [2025-03-01T12:00:00Z] t1 (influencer_analysis): post daily", text)
}

func TestTruncate(t *testing.T) {
	s, cut := Truncate("héllo", 2)
	assert.Equal(t, "hé", s)
	assert.True(t, cut)

	s, cut = Truncate("short", 10)
	assert.Equal(t, "short", s)
	assert.False(t, cut)

	s, cut = Truncate("unbounded", 0)
	assert.Equal(t, "unbounded", s)
	assert.False(t, cut)
}

func TestStoreAndItemsFromContent(t *testing.T) {
	ctx := context.Background()
	contexts := memory.NewInMemoryStore()
	a := New(contexts, nil)

	content := map[string]any{
		"results": []any{
			map[string]any{"title": "Reels trends", "content": "short looping videos"},
			map[string]any{"name": "@creator", "bio": "fitness coach"},
			map[string]any{"url": "https://example.com"},
			"not an object",
		},
	}
	items := ItemsFromContent(content)
	require.Len(t, items, 3)

	n, err := a.Store(ctx, "user_5", items)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stored, err := contexts.Scroll(ctx, "user_5", 10, core.ContextTypeSearchResult)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "@creator fitness coach", stored[0].Text)
	assert.Equal(t, "Reels trends short looping videos", stored[1].Text)
	assert.Equal(t, "Reels trends", stored[1].Metadata["title"])

	assert.Len(t, ItemsFromContent([]any{map[string]any{"a": 1}}), 1)
	assert.Empty(t, ItemsFromContent("plain text"))
	assert.Empty(t, ItemsFromContent(map[string]any{"other": []any{}}))
}

func TestStore_Errors(t *testing.T) {
	_, err := New(memory.NewInMemoryStore(), nil).Store(context.Background(), "", []map[string]any{{"title": "x"}})
	require.Error(t, err)

	n, err := New(failingContexts{err: errors.New("down")}, nil).
		Store(context.Background(), "user_1", []map[string]any{{"title": "a"}, {"title": "b"}})
	require.Error(t, err)
	assert.Equal(t, 0, n)

	n, err = New(nil, nil).Store(context.Background(), "user_1", []map[string]any{{"title": "a"}})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAssemble_AgentScope(t *testing.T) {
	ctx := context.Background()
	contexts := memory.NewInMemoryStore()
	seed(t, contexts, "user_5", "my reels get few views")
	seed(t, contexts, core.AgentOwnerKey("growth_advisor"), "reels posted at 6pm get more views")
	seed(t, contexts, core.AgentOwnerKey("pricing_advisor"), "reels rate cards start at $300")

	a := New(contexts, nil)
	out, err := a.Assemble(ctx, Request{
		OwnerKey: "user_5",
		AgentKey: core.AgentOwnerKey("growth_advisor"),
		Prompt:   "more views on reels",
	})
	require.NoError(t, err)
	require.Len(t, out.Similar, 2)
	assert.Contains(t, out.Text, "my reels get few views")
	assert.Contains(t, out.Text, "reels posted at 6pm")
	assert.NotContains(t, out.Text, "rate cards")
	assert.Equal(t, "agent_growth_advisor", out.Metadata.AgentKey)

	for i := 1; i < len(out.Similar); i++ {
		assert.GreaterOrEqual(t, out.Similar[i-1].Score, out.Similar[i].Score)
	}
}

func TestMergeScoped(t *testing.T) {
	user := []core.SearchResult{
		{OwnerKey: "user_1", Text: "a", Score: 0.5},
		{OwnerKey: "", Text: "ownerless", Score: 0.99},
		{OwnerKey: "user_2", Text: "foreign", Score: 0.98},
	}
	agentScope := []core.SearchResult{
		{OwnerKey: "agent_x", Text: "b", Score: 0.7},
		{OwnerKey: "agent_x", Text: "a", Score: 0.6},
		{OwnerKey: "agent_x", Text: "c", Score: 0.1},
	}

	out := MergeScoped(2, []string{"user_1", "agent_x"}, user, agentScope)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Text)
	assert.Equal(t, "a", out[1].Text)
	assert.Equal(t, "user_1", out[1].OwnerKey)

	assert.Empty(t, MergeScoped(3, []string{"user_1"}, []core.SearchResult{{Text: "ownerless"}}))
}

func TestRemember(t *testing.T) {
	ctx := context.Background()
	contexts := memory.NewInMemoryStore()
	a := New(contexts, nil)

	id, err := a.Remember(ctx, "user_3", "How do I grow?", core.ContextTypeConversation, map[string]any{"message_type": "analysis_request"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	items, err := contexts.Scroll(ctx, "user_3", 10, core.ContextTypeConversation)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "How do I grow?", items[0].Text)
	assert.Equal(t, "analysis_request", items[0].Metadata["message_type"])

	_, err = a.Remember(ctx, "", "x", core.ContextTypeConversation, nil)
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)

	id, err = New(nil, nil).Remember(ctx, "user_3", "x", core.ContextTypeConversation, nil)
	assert.NoError(t, err)
	assert.Empty(t, id)
}
