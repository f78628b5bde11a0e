package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcoord/core"
	"github.com/hupe1980/agentcoord/internal/testutil"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, func(o *Options) { o.TTL = time.Hour }), mr
}

func TestStore_CreateGet(t *testing.T) {
	ctx := context.Background()
	s, mr := setupStore(t)

	sess := core.NewCoordinationSession("abc", 42, "influencer_analysis", map[string]any{"budget": 1000.0})
	require.NoError(t, s.Create(ctx, sess))
	assert.True(t, mr.Exists("agentcoord:session:abc"))
	assert.Equal(t, time.Hour, mr.TTL("agentcoord:session:abc"))

	assert.Error(t, s.Create(ctx, sess))

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, core.SessionActive, got.Status)
	assert.Equal(t, 1000.0, got.InitialContext["budget"])

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	s, _ := setupStore(t)
	require.NoError(t, s.Create(ctx, core.NewCoordinationSession("s1", 1, "t", nil)))

	updated, err := s.Update(ctx, "s1", func(cs *core.CoordinationSession) error {
		id := int64(3)
		cs.CurrentAgentID = &id
		cs.TaskDetails = map[string]any{"task": "audit"}
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, updated.CurrentAgentID)
	assert.Equal(t, int64(3), *updated.CurrentAgentID)

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "audit", got.TaskDetails["task"])

	_, err = s.Update(ctx, "s1", func(*core.CoordinationSession) error { return core.ErrHandoffRejected })
	assert.ErrorIs(t, err, core.ErrHandoffRejected)

	_, err = s.Update(ctx, "nope", func(*core.CoordinationSession) error { return nil })
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestStore_ConcurrentCAS(t *testing.T) {
	ctx := context.Background()
	s, _ := setupStore(t)
	from := int64(1)
	require.NoError(t, s.Create(ctx, testutil.NewSessionBuilder("s1").Current(from).Build()))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(to int64) {
			defer wg.Done()
			_, err := s.Update(ctx, "s1", func(cs *core.CoordinationSession) error {
				if cs.CurrentAgentID == nil || *cs.CurrentAgentID != from {
					return core.ErrHandoffRejected
				}
				cs.CurrentAgentID = &to
				return nil
			})
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(int64(10 + i))
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}
