package chromem

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcoord/core"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New()
	require.NoError(t, err)
	return s
}

func TestStore_QueryScopedByOwner(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for i := 0; i < 4; i++ {
		_, err := s.Upsert(ctx, core.ContextItem{OwnerKey: "user_1", Text: fmt.Sprintf("tiktok trend report %d", i), Type: core.ContextTypeSearchResult})
		require.NoError(t, err)
	}
	_, err := s.Upsert(ctx, core.ContextItem{OwnerKey: "user_2", Text: "tiktok trend report secret", Type: core.ContextTypeSearchResult})
	require.NoError(t, err)

	res, err := s.Query(ctx, core.ContextQuery{OwnerKey: "user_1", Text: "tiktok trends", Limit: 3})
	require.NoError(t, err)
	require.Len(t, res, 3)
	for _, r := range res {
		assert.Equal(t, "user_1", r.OwnerKey)
		assert.NotContains(t, r.Text, "secret")
	}

	// limit larger than the owner's items is clamped
	res, err = s.Query(ctx, core.ContextQuery{OwnerKey: "user_2", Text: "tiktok", Limit: 10})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "user_2", res[0].OwnerKey)

	res, err = s.Query(ctx, core.ContextQuery{OwnerKey: "nobody", Text: "tiktok", Limit: 3})
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestStore_MetadataRoundTripAndTypeFilter(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.Upsert(ctx, core.ContextItem{OwnerKey: "o", Text: "brand deal rates", Type: core.ContextTypeSearchResult, Metadata: map[string]any{"source": "web"}})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, core.ContextItem{OwnerKey: "o", Text: "brand notes", Type: core.ContextTypeNote})
	require.NoError(t, err)

	res, err := s.Query(ctx, core.ContextQuery{OwnerKey: "o", Text: "brand", Limit: 5, Type: core.ContextTypeSearchResult})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "web", res[0].Metadata["source"])
	assert.Equal(t, 2, s.Count())
}

func TestStore_Scroll(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for _, text := range []string{"one", "two", "three"} {
		_, err := s.Upsert(ctx, core.ContextItem{OwnerKey: "o", Text: text})
		require.NoError(t, err)
	}
	_, err := s.Upsert(ctx, core.ContextItem{OwnerKey: "p", Text: "foreign"})
	require.NoError(t, err)

	res, err := s.Scroll(ctx, "o", 2, "")
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "three", res[0].Text)
	assert.Equal(t, "two", res[1].Text)

	all, err := s.Query(ctx, core.ContextQuery{OwnerKey: "o"})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
