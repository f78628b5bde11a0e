package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/hupe1980/agentcoord/core"
	"github.com/hupe1980/agentcoord/registry"
)

// Config captures SQLite store configuration.
type Config struct {
	// Path is the database file location or ":memory:".
	Path string

	// BusyTimeout configures sqlite busy timeout via PRAGMA busy_timeout.
	BusyTimeout time.Duration

	// Lenient keeps capability tags unknown to this build instead of
	// failing the read.
	Lenient bool
}

func buildDSN(cfg *Config) string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_time_format", "sqlite")
	return "file:" + cfg.Path + "?" + q.Encode()
}

// Store is a SQLite-backed agent registry and response store.
type Store struct {
	db      *sql.DB
	lenient bool
	now     func() time.Time
}

// Open opens (creating if needed) the database and applies migrations.
func Open(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, core.NewValidationError("path", "", "sqlite path must not be empty")
	}
	db, err := sql.Open("sqlite", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	if cfg.Path == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return New(db, cfg.Lenient), nil
}

// New wraps an already migrated database.
func New(db *sql.DB, lenient bool) *Store {
	return &Store{db: db, lenient: lenient, now: func() time.Time { return time.Now().UTC() }}
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Agents ---

var agentColumns = []string{"id", "uuid", "name", "agent_type", "capabilities", "status", "is_active", "created_at", "updated_at"}

// Register inserts a new agent. Capabilities are validated strictly.
func (s *Store) Register(ctx context.Context, a core.Agent) (core.Agent, error) {
	if a.Name == "" {
		return core.Agent{}, core.NewValidationError("name", a.Name, "must not be empty")
	}
	if _, err := core.ParseCapabilities(a.Capabilities.Raw()); err != nil {
		return core.Agent{}, err
	}
	if a.UUID == "" {
		a.UUID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = core.AgentActive
	}
	now := s.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	caps, err := json.Marshal(a.Capabilities.Raw())
	if err != nil {
		return core.Agent{}, fmt.Errorf("sqlite: encode capabilities: %w", err)
	}

	cols := []string{"uuid", "name", "agent_type", "capabilities", "status", "is_active", "created_at", "updated_at"}
	vals := []any{a.UUID, a.Name, a.Type, string(caps), string(a.Status), a.IsActive, a.CreatedAt, a.UpdatedAt}
	if a.ID != 0 {
		cols = append([]string{"id"}, cols...)
		vals = append([]any{a.ID}, vals...)
	}
	q, args, err := squirrel.Insert("agents").Columns(cols...).Values(vals...).ToSql()
	if err != nil {
		return core.Agent{}, fmt.Errorf("sqlite: build insert agent: %w", err)
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return core.Agent{}, fmt.Errorf("sqlite: insert agent: %w", err)
	}
	if a.ID == 0 {
		if a.ID, err = res.LastInsertId(); err != nil {
			return core.Agent{}, fmt.Errorf("sqlite: last insert id: %w", err)
		}
	}
	return a, nil
}

// SetStatus updates lifecycle status and the active flag of an agent.
func (s *Store) SetStatus(ctx context.Context, id int64, status core.AgentStatus, isActive bool) error {
	const q = `UPDATE agents SET status = ?, is_active = ?, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, string(status), isActive, s.now(), id)
	if err != nil {
		return fmt.Errorf("sqlite: update agent status: %w", err)
	}
	if n, raErr := res.RowsAffected(); raErr == nil {
		if n == 0 {
			return fmt.Errorf("agent %d: %w", id, core.ErrAgentNotFound)
		}
	} else {
		return fmt.Errorf("sqlite: rows affected (update agent status): %w", raErr)
	}
	return nil
}

// ListAgents implements core.AgentRegistry.
func (s *Store) ListAgents(ctx context.Context, filter core.AgentFilter) ([]core.Agent, error) {
	sb := squirrel.Select(agentColumns...).From("agents").OrderBy("id ASC")
	if !filter.IncludeInactive {
		sb = sb.Where(squirrel.Eq{"status": string(core.AgentActive), "is_active": true})
	}
	if filter.Type != "" {
		sb = sb.Where(squirrel.Eq{"agent_type": filter.Type})
	}
	if filter.Capability != "" {
		if err := filter.Capability.ValidateQuery(); err != nil {
			return nil, err
		}
		sb = sb.Where(squirrel.Expr("json_extract(capabilities, ?) = 1", "$."+string(filter.Capability)))
	}
	q, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build list agents: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list agents: %w", err)
	}
	defer rows.Close()

	var out []core.Agent
	for rows.Next() {
		a, err := s.scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iter agents: %w", err)
	}
	return out, nil
}

// GetAgent implements core.AgentRegistry.
func (s *Store) GetAgent(ctx context.Context, id int64) (*core.Agent, error) {
	q, args, err := squirrel.Select(agentColumns...).From("agents").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build get agent: %w", err)
	}
	a, err := s.scanAgent(s.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("agent %d: %w", id, core.ErrAgentNotFound)
		}
		return nil, err
	}
	return &a, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanAgent(sc scanner) (core.Agent, error) {
	var (
		a      core.Agent
		caps   string
		status string
	)
	if err := sc.Scan(&a.ID, &a.UUID, &a.Name, &a.Type, &caps, &status, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("sqlite: scan agent: %w", err)
	}
	a.Status = core.AgentStatus(status)

	var raw map[string]bool
	if err := json.Unmarshal([]byte(caps), &raw); err != nil {
		return a, fmt.Errorf("sqlite: decode capabilities of agent %d: %w", a.ID, err)
	}
	set, err := core.DecodeCapabilities(raw, s.lenient)
	if err != nil {
		return a, fmt.Errorf("sqlite: agent %d: %w", a.ID, err)
	}
	a.Capabilities = set
	return a, nil
}

// --- Agent responses ---

var responseColumns = []string{"id", "uuid", "agent_id", "task_id", "response", "response_type", "created_at"}

// Append implements core.ResponseStore.
func (s *Store) Append(ctx context.Context, agentID int64, taskID, text, responseType string) (int64, error) {
	const q = `INSERT INTO agent_responses (uuid, agent_id, task_id, response, response_type, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, uuid.NewString(), agentID, taskID, text, responseType, s.now())
	if err != nil {
		return 0, fmt.Errorf("sqlite: append response: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: last insert id: %w", err)
	}
	return id, nil
}

// ListByAgent implements core.ResponseStore (newest first).
func (s *Store) ListByAgent(ctx context.Context, agentID int64, limit int) ([]core.AgentResponseRecord, error) {
	sb := squirrel.Select(responseColumns...).
		From("agent_responses").
		Where(squirrel.Eq{"agent_id": agentID}).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		sb = sb.Limit(uint64(limit))
	}
	return s.queryResponses(ctx, sb)
}

// ListByTask implements core.ResponseStore (oldest first).
func (s *Store) ListByTask(ctx context.Context, taskID string) ([]core.AgentResponseRecord, error) {
	sb := squirrel.Select(responseColumns...).
		From("agent_responses").
		Where(squirrel.Eq{"task_id": taskID}).
		OrderBy("created_at ASC", "id ASC")
	return s.queryResponses(ctx, sb)
}

func (s *Store) queryResponses(ctx context.Context, sb squirrel.SelectBuilder) ([]core.AgentResponseRecord, error) {
	q, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build list responses: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list responses: %w", err)
	}
	defer rows.Close()

	var out []core.AgentResponseRecord
	for rows.Next() {
		var r core.AgentResponseRecord
		if err := rows.Scan(&r.ID, &r.UUID, &r.AgentID, &r.TaskID, &r.Response, &r.ResponseType, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan response: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iter responses: %w", err)
	}
	return out, nil
}

var (
	_ core.AgentRegistry   = (*Store)(nil)
	_ core.ResponseStore   = (*Store)(nil)
	_ registry.AgentWriter = (*Store)(nil)
)
