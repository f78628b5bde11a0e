// Package redis provides a core.SessionStore backed by Redis. Sessions are
// stored as JSON; Update uses WATCH/MULTI so concurrent mutations of the same
// session from different processes cannot interleave.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/agentcoord/core"
)

const (
	defaultPrefix     = "agentcoord:session:"
	defaultTTL        = 24 * time.Hour
	defaultMaxRetries = 10
)

// ErrConflict is returned when optimistic retries are exhausted.
var ErrConflict = errors.New("redis: session update conflict")

// Options configure the Redis session store.
type Options struct {
	// KeyPrefix is prepended to the session id.
	KeyPrefix string

	// TTL bounds how long an untouched session is kept. Zero disables expiry.
	TTL time.Duration

	// MaxRetries bounds optimistic transaction retries per Update.
	MaxRetries int
}

// Store implements core.SessionStore on Redis.
type Store struct {
	client redis.UniversalClient
	opts   Options
}

// New creates a Redis session store.
func New(client redis.UniversalClient, optFns ...func(o *Options)) *Store {
	opts := Options{KeyPrefix: defaultPrefix, TTL: defaultTTL, MaxRetries: defaultMaxRetries}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	return &Store{client: client, opts: opts}
}

func (s *Store) key(id string) string {
	return s.opts.KeyPrefix + id
}

// Create stores a new session; an existing id is an error.
func (s *Store) Create(ctx context.Context, sess *core.CoordinationSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redis: encode session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(sess.ID), data, s.opts.TTL).Result()
	if err != nil {
		return fmt.Errorf("redis: create session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s already exists", sess.ID)
	}
	return nil
}

// Get loads a session or returns core.ErrSessionNotFound.
func (s *Store) Get(ctx context.Context, id string) (*core.CoordinationSession, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("session %s: %w", id, core.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("redis: get session: %w", err)
	}
	return decode(data)
}

// Update applies fn inside an optimistic transaction, retrying when another
// writer modified the session between read and commit.
func (s *Store) Update(ctx context.Context, id string, fn func(*core.CoordinationSession) error) (*core.CoordinationSession, error) {
	key := s.key(id)
	var result *core.CoordinationSession

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("session %s: %w", id, core.ErrSessionNotFound)
			}
			return fmt.Errorf("redis: get session: %w", err)
		}
		sess, err := decode(data)
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
		sess.Touch()
		out, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("redis: encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.opts.TTL)
			return nil
		})
		if err == nil {
			result = sess
		}
		return err
	}

	for i := 0; i < s.opts.MaxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("session %s: %w", id, ErrConflict)
}

func decode(data []byte) (*core.CoordinationSession, error) {
	var sess core.CoordinationSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("redis: decode session: %w", err)
	}
	return &sess, nil
}

var _ core.SessionStore = (*Store)(nil)
