package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcoord/coordinator"
	"github.com/hupe1980/agentcoord/core"
	"github.com/hupe1980/agentcoord/model"
	"github.com/hupe1980/agentcoord/tool"
)

func executeCLI(t *testing.T, deps wireDeps, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCmd(deps)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// useTempStore points the CLI at a fresh SQLite file in database mode.
func useTempStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agentcoord.db")
	t.Setenv("AGENTCOORD_STORE_SQLITE_PATH", path)
	t.Setenv("AGENTCOORD_ORCHESTRATION_MODE", "database")
	t.Setenv("AGENTCOORD_LOGGING_LEVEL", "error")
	return path
}

func TestVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, wireDeps{}, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestMigrate_SeedsOnce(t *testing.T) {
	path := useTempStore(t)

	stdout, _, err := executeCLI(t, wireDeps{}, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "migrated "+path+", seeded 10 agents\n", stdout)

	stdout, _, err = executeCLI(t, wireDeps{}, "migrate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "seeded 0 agents")
}

func TestAgentsList(t *testing.T) {
	useTempStore(t)

	stdout, _, err := executeCLI(t, wireDeps{}, "agents", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ID")
	assert.Contains(t, stdout, "growth_advisor")
	assert.Contains(t, stdout, "optimization_advisor")

	stdout, _, err = executeCLI(t, wireDeps{}, "agents", "list", "--capability", "pricing_strategy", "--json")
	require.NoError(t, err)

	var agents []core.Agent
	require.NoError(t, json.Unmarshal([]byte(stdout), &agents))
	require.Len(t, agents, 1)
	assert.Equal(t, "pricing_advisor", agents[0].Type)
}

func TestAgentsList_UnknownCapability(t *testing.T) {
	useTempStore(t)

	_, _, err := executeCLI(t, wireDeps{}, "agents", "list", "--capability", "pricing_stratgy")
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "capability", verr.Field)
}

func TestClassify_Heuristic(t *testing.T) {
	useTempStore(t)

	stdout, _, err := executeCLI(t, wireDeps{}, "classify", "Write a comprehensive brand review")
	require.NoError(t, err)
	assert.Equal(t, "complexity: complex\nhybrid path: llm\n", stdout)

	stdout, _, err = executeCLI(t, wireDeps{}, "classify", "Only check my pricing")
	require.NoError(t, err)
	assert.Contains(t, stdout, "hybrid path: database")
}

func TestSelect(t *testing.T) {
	useTempStore(t)

	stdout, _, err := executeCLI(t, wireDeps{}, "select", "Help me price a sponsored post", "--capability", "pricing_strategy")
	require.NoError(t, err)

	var sel core.AgentSelection
	require.NoError(t, json.Unmarshal([]byte(stdout), &sel))
	assert.Equal(t, core.ModeDatabase, sel.Mode)
	require.Len(t, sel.Agents, 1)
	assert.Equal(t, "pricing_advisor", sel.Agents[0].AgentType)
	assert.Equal(t, core.RolePrimary, sel.Agents[0].Role)
}

func TestSelect_InvalidMode(t *testing.T) {
	useTempStore(t)

	_, _, err := executeCLI(t, wireDeps{}, "select", "anything", "--mode", "random")
	require.Error(t, err)
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRecommend(t *testing.T) {
	useTempStore(t)
	backend := model.NewMockCompleter("mock")
	backend.Default = "Raise your rate card by ten percent and post twice a week."

	stdout, _, err := executeCLI(t, wireDeps{backend: backend},
		"recommend", "--user", "7", "--task", "How should I price my reels?",
		"--capability", "pricing_strategy",
	)
	require.NoError(t, err)

	var rec coordinator.Recommendation
	require.NoError(t, json.Unmarshal([]byte(stdout), &rec))
	assert.NotEmpty(t, rec.SessionID)
	require.Len(t, rec.Outcomes, 1)
	assert.Equal(t, coordinator.OutcomeSuccess, rec.Outcomes[0].Status)
	assert.Equal(t, backend.Default, rec.Outcomes[0].Response)
	assert.NotZero(t, rec.Outcomes[0].ResponseID)
	require.NotNil(t, rec.Coordination)
	assert.Equal(t, core.ModeDatabase, rec.Coordination.Mode)

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].System, "Your specialization: pricing_advisor")
}

func TestRecommend_Metrics(t *testing.T) {
	useTempStore(t)
	backend := model.NewMockCompleter("mock")
	backend.Default = "Post daily."

	_, stderr, err := executeCLI(t, wireDeps{backend: backend},
		"--metrics", "recommend", "--user", "7", "--task", "Grow my audience", "--capability", "pricing_strategy",
	)
	require.NoError(t, err)
	assert.Contains(t, stderr, "agentcoord_llm_call_duration_seconds{")
	assert.Contains(t, stderr, "agentcoord_selection_selections_total{")
	assert.Contains(t, stderr, "agentcoord_coordinator_active_sessions{} 0")
}

func TestRecommend_NoBackend(t *testing.T) {
	useTempStore(t)

	stdout, _, err := executeCLI(t, wireDeps{},
		"recommend", "--user", "7", "--task", "Grow my audience", "--capability", "pricing_strategy",
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"status": "error"`)
	assert.Contains(t, stdout, "no execution backend configured")
}

func TestRecommend_RequiredFlags(t *testing.T) {
	useTempStore(t)

	_, _, err := executeCLI(t, wireDeps{}, "recommend", "--task", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "user" not set`)
}

func TestRecommend_GatherTools(t *testing.T) {
	useTempStore(t)
	backend := model.NewMockCompleter("mock")
	backend.Default = "Partner with @fitcoach."

	transport := tool.NewLocalTransport().Register("", "search_influencers", func(_ context.Context, params map[string]any) (any, error) {
		assert.Equal(t, "find fitness creators", params["query"])
		return []any{map[string]any{"name": "fitcoach", "bio": "fitness coach"}}, nil
	})

	stdout, _, err := executeCLI(t, wireDeps{backend: backend, transport: transport},
		"recommend", "--user", "7", "--task", "find fitness creators",
		"--capability", "pricing_strategy", "--tool", "search_influencers",
	)
	require.NoError(t, err)

	var rec coordinator.Recommendation
	require.NoError(t, json.Unmarshal([]byte(stdout), &rec))
	assert.Equal(t, 1, rec.Stored)
	require.Len(t, rec.Outcomes, 1)
	assert.Contains(t, rec.Outcomes[0].Context, "fitcoach")
}

func TestRecommend_RedisSessions(t *testing.T) {
	useTempStore(t)
	t.Setenv("AGENTCOORD_STORE_SESSIONS", "redis")

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backend := model.NewMockCompleter("mock")
	backend.Default = "Keep posting."

	stdout, _, err := executeCLI(t, wireDeps{backend: backend, redis: client},
		"recommend", "--user", "3", "--task", "Plan next week", "--capability", "pricing_strategy",
	)
	require.NoError(t, err)

	var rec coordinator.Recommendation
	require.NoError(t, json.Unmarshal([]byte(stdout), &rec))
	assert.True(t, mr.Exists("agentcoord:session:"+rec.SessionID))

	raw, err := mr.Get("agentcoord:session:" + rec.SessionID)
	require.NoError(t, err)
	assert.Contains(t, raw, `"status":"completed"`)
}

func TestInvalidConfigFile(t *testing.T) {
	useTempStore(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  format: xml\n"), 0o600))

	_, _, err := executeCLI(t, wireDeps{}, "--config", path, "agents", "list")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "logging.format"))
}
