package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcoord/core"
	"github.com/hupe1980/agentcoord/registry"
)

func setupStore(t *testing.T, lenient bool) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "agents.db")
	s, err := Open(context.Background(), &Config{Path: dbPath, Lenient: lenient})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func TestMigrations(t *testing.T) {
	t.Run("Should create all required tables", func(t *testing.T) {
		ctx := context.Background()
		dbPath := filepath.Join(t.TempDir(), "tables.db")
		require.NoError(t, ApplyMigrations(ctx, dbPath))

		db, err := sql.Open("sqlite", buildDSN(&Config{Path: dbPath}))
		require.NoError(t, err)
		defer db.Close()

		expected := map[string]bool{"agents": true, "agent_responses": true}
		rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'")
		require.NoError(t, err)
		defer rows.Close()
		for rows.Next() {
			var name string
			require.NoError(t, rows.Scan(&name))
			delete(expected, name)
		}
		require.NoError(t, rows.Err())
		assert.Empty(t, expected)
	})

	t.Run("Should be idempotent", func(t *testing.T) {
		ctx := context.Background()
		dbPath := filepath.Join(t.TempDir(), "twice.db")
		require.NoError(t, ApplyMigrations(ctx, dbPath))
		require.NoError(t, ApplyMigrations(ctx, dbPath))
	})
}

func TestStore_Agents(t *testing.T) {
	ctx := context.Background()

	t.Run("Should filter eligible agents by capability", func(t *testing.T) {
		s := setupStore(t, false)
		growth, err := s.Register(ctx, core.Agent{Name: "Growth", Type: "growth_advisor", Status: core.AgentActive, IsActive: true, Capabilities: core.NewCapabilitySet(core.CapAudienceAnalysis)})
		require.NoError(t, err)
		_, err = s.Register(ctx, core.Agent{Name: "Pricing", Type: "pricing_advisor", Status: core.AgentActive, IsActive: true, Capabilities: core.NewCapabilitySet(core.CapPricingOptimization)})
		require.NoError(t, err)
		_, err = s.Register(ctx, core.Agent{Name: "Idle", Type: "growth_advisor", Status: core.AgentInactive, IsActive: true, Capabilities: core.NewCapabilitySet(core.CapAudienceAnalysis)})
		require.NoError(t, err)

		agents, err := s.ListAgents(ctx, core.AgentFilter{Capability: core.CapAudienceAnalysis})
		require.NoError(t, err)
		require.Len(t, agents, 1)
		assert.Equal(t, growth.ID, agents[0].ID)
		assert.True(t, agents[0].Capabilities.Has(core.CapAudienceAnalysis))

		all, err := s.ListAgents(ctx, core.AgentFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		withInactive, err := s.ListAgents(ctx, core.AgentFilter{IncludeInactive: true, Type: "growth_advisor"})
		require.NoError(t, err)
		assert.Len(t, withInactive, 2)
	})

	t.Run("Should get agent by id", func(t *testing.T) {
		s := setupStore(t, false)
		created, err := s.Register(ctx, core.Agent{Name: "A", Type: "analytics_advisor", IsActive: true})
		require.NoError(t, err)

		got, err := s.GetAgent(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.UUID, got.UUID)
		assert.Equal(t, core.AgentActive, got.Status)
		assert.True(t, got.Eligible())

		_, err = s.GetAgent(ctx, 404)
		assert.ErrorIs(t, err, core.ErrAgentNotFound)
	})

	t.Run("Should update status", func(t *testing.T) {
		s := setupStore(t, false)
		created, err := s.Register(ctx, core.Agent{Name: "A", Type: "x", IsActive: true})
		require.NoError(t, err)

		require.NoError(t, s.SetStatus(ctx, created.ID, core.AgentBusy, true))
		agents, err := s.ListAgents(ctx, core.AgentFilter{})
		require.NoError(t, err)
		assert.Empty(t, agents)

		assert.ErrorIs(t, s.SetStatus(ctx, 999, core.AgentActive, true), core.ErrAgentNotFound)
	})

	t.Run("Should seed defaults once", func(t *testing.T) {
		s := setupStore(t, false)
		n, err := registry.Seed(ctx, s, s)
		require.NoError(t, err)
		assert.Equal(t, 10, n)

		n, err = registry.Seed(ctx, s, s)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestStore_UnknownCapabilities(t *testing.T) {
	ctx := context.Background()

	insertRaw := func(t *testing.T, s *Store) {
		t.Helper()
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO agents (uuid, name, agent_type, capabilities, status, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			"u-1", "Future", "future_advisor", `{"hologram_design": true}`, "active", true, s.now(), s.now())
		require.NoError(t, err)
	}

	t.Run("Should reject in strict mode", func(t *testing.T) {
		s := setupStore(t, false)
		insertRaw(t, s)
		_, err := s.ListAgents(ctx, core.AgentFilter{})
		var vErr *core.ValidationError
		assert.True(t, errors.As(err, &vErr))
	})

	t.Run("Should keep unknown tags in lenient mode", func(t *testing.T) {
		s := setupStore(t, true)
		insertRaw(t, s)
		agents, err := s.ListAgents(ctx, core.AgentFilter{})
		require.NoError(t, err)
		require.Len(t, agents, 1)
		assert.True(t, agents[0].Capabilities.Has("hologram_design"))
	})
}

func TestStore_UnknownCapabilityFilter(t *testing.T) {
	s := setupStore(t, true)
	_, err := s.ListAgents(context.Background(), core.AgentFilter{Capability: `x') OR 1=1 --`})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "capability", vErr.Field)
}

func TestStore_Responses(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t, false)
	a1, err := s.Register(ctx, core.Agent{Name: "A1", Type: "growth_advisor", IsActive: true})
	require.NoError(t, err)
	a2, err := s.Register(ctx, core.Agent{Name: "A2", Type: "pricing_advisor", IsActive: true})
	require.NoError(t, err)

	for _, text := range []string{"first", "second", "third"} {
		_, err := s.Append(ctx, a1.ID, "task-1", text, "influencer_analysis")
		require.NoError(t, err)
	}
	_, err = s.Append(ctx, a2.ID, "task-1", "pricing", "influencer_analysis")
	require.NoError(t, err)

	recent, err := s.ListByAgent(ctx, a1.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].Response)
	assert.Equal(t, "second", recent[1].Response)
	assert.NotEmpty(t, recent[0].UUID)

	byTask, err := s.ListByTask(ctx, "task-1")
	require.NoError(t, err)
	require.Len(t, byTask, 4)
	assert.Equal(t, "first", byTask[0].Response)
	assert.Equal(t, "pricing", byTask[3].Response)
	assert.True(t, byTask[0].CreatedAt.Before(byTask[3].CreatedAt))
}
