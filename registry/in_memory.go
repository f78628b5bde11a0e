package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/agentcoord/core"
)

// AgentWriter registers agents. Both the in-memory and the SQLite registry
// implement it so Seed works against either.
type AgentWriter interface {
	Register(ctx context.Context, a core.Agent) (core.Agent, error)
}

// InMemoryRegistry is a volatile AgentRegistry backed by a map. Safe for
// concurrent access; returned agents are copies.
type InMemoryRegistry struct {
	mu     sync.RWMutex
	agents map[int64]core.Agent
	nextID int64
}

// NewInMemoryRegistry creates a registry, registering the given agents.
// Agents with a zero ID receive the next free id.
func NewInMemoryRegistry(agents ...core.Agent) *InMemoryRegistry {
	r := &InMemoryRegistry{agents: make(map[int64]core.Agent)}
	for _, a := range agents {
		_, _ = r.Register(context.Background(), a)
	}
	return r
}

// Register stores a. The capability set is validated strictly.
func (r *InMemoryRegistry) Register(_ context.Context, a core.Agent) (core.Agent, error) {
	if a.Name == "" {
		return core.Agent{}, core.NewValidationError("name", a.Name, "must not be empty")
	}
	if _, err := core.ParseCapabilities(a.Capabilities.Raw()); err != nil {
		return core.Agent{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == 0 {
		r.nextID++
		a.ID = r.nextID
	} else if a.ID > r.nextID {
		r.nextID = a.ID
	}
	if a.UUID == "" {
		a.UUID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = core.AgentActive
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	a.Capabilities = a.Capabilities.Clone()

	r.agents[a.ID] = a
	return a, nil
}

// SetStatus updates lifecycle status and the active flag of an agent.
func (r *InMemoryRegistry) SetStatus(_ context.Context, id int64, status core.AgentStatus, isActive bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return fmt.Errorf("agent %d: %w", id, core.ErrAgentNotFound)
	}
	a.Status = status
	a.IsActive = isActive
	a.UpdatedAt = time.Now().UTC()
	r.agents[id] = a
	return nil
}

// ListAgents returns agents matching filter ordered by id.
func (r *InMemoryRegistry) ListAgents(ctx context.Context, filter core.AgentFilter) ([]core.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := filter.Capability.ValidateQuery(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		if filter.Match(a) {
			a.Capabilities = a.Capabilities.Clone()
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetAgent returns the agent with id or core.ErrAgentNotFound.
func (r *InMemoryRegistry) GetAgent(ctx context.Context, id int64) (*core.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("agent %d: %w", id, core.ErrAgentNotFound)
	}
	a.Capabilities = a.Capabilities.Clone()
	return &a, nil
}

// InMemoryResponseStore keeps agent responses in insertion order.
type InMemoryResponseStore struct {
	mu      sync.RWMutex
	records []core.AgentResponseRecord
	nextID  int64
	now     func() time.Time
}

// NewInMemoryResponseStore creates an empty response store.
func NewInMemoryResponseStore() *InMemoryResponseStore {
	return &InMemoryResponseStore{now: func() time.Time { return time.Now().UTC() }}
}

// Append records a response and returns its id.
func (s *InMemoryResponseStore) Append(ctx context.Context, agentID int64, taskID, text, responseType string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.records = append(s.records, core.AgentResponseRecord{
		ID:           s.nextID,
		UUID:         uuid.NewString(),
		AgentID:      agentID,
		TaskID:       taskID,
		Response:     text,
		ResponseType: responseType,
		CreatedAt:    s.now(),
	})
	return s.nextID, nil
}

// ListByAgent returns the agent's newest responses first.
func (s *InMemoryResponseStore) ListByAgent(ctx context.Context, agentID int64, limit int) ([]core.AgentResponseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.AgentResponseRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].AgentID != agentID {
			continue
		}
		out = append(out, s.records[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ListByTask returns the task's responses oldest first.
func (s *InMemoryResponseStore) ListByTask(ctx context.Context, taskID string) ([]core.AgentResponseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.AgentResponseRecord
	for _, rec := range s.records {
		if rec.TaskID == taskID {
			out = append(out, rec)
		}
	}
	return out, nil
}

var (
	_ core.AgentRegistry = (*InMemoryRegistry)(nil)
	_ AgentWriter        = (*InMemoryRegistry)(nil)
	_ core.ResponseStore = (*InMemoryResponseStore)(nil)
)
