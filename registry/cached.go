package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hupe1980/agentcoord/core"
)

const (
	defaultCacheSize = 128
	defaultCacheTTL  = 30 * time.Second
)

// CacheOptions configure Cached.
type CacheOptions struct {
	Size int
	TTL  time.Duration
}

// Cached wraps an AgentRegistry with an expiring LRU so repeated selections
// within the TTL do not hit the backing store. Errors are never cached.
type Cached struct {
	next   core.AgentRegistry
	lists  *expirable.LRU[string, []core.Agent]
	agents *expirable.LRU[int64, core.Agent]
}

// NewCached creates a caching decorator around next.
func NewCached(next core.AgentRegistry, optFns ...func(o *CacheOptions)) *Cached {
	opts := CacheOptions{Size: defaultCacheSize, TTL: defaultCacheTTL}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Size <= 0 {
		opts.Size = defaultCacheSize
	}
	return &Cached{
		next:   next,
		lists:  expirable.NewLRU[string, []core.Agent](opts.Size, nil, opts.TTL),
		agents: expirable.NewLRU[int64, core.Agent](opts.Size, nil, opts.TTL),
	}
}

func filterKey(f core.AgentFilter) string {
	return fmt.Sprintf("%s|%s|%t", f.Type, f.Capability, f.IncludeInactive)
}

// ListAgents implements core.AgentRegistry.
func (c *Cached) ListAgents(ctx context.Context, filter core.AgentFilter) ([]core.Agent, error) {
	key := filterKey(filter)
	if agents, ok := c.lists.Get(key); ok {
		return copyAgents(agents), nil
	}
	agents, err := c.next.ListAgents(ctx, filter)
	if err != nil {
		return nil, err
	}
	c.lists.Add(key, copyAgents(agents))
	return agents, nil
}

// GetAgent implements core.AgentRegistry.
func (c *Cached) GetAgent(ctx context.Context, id int64) (*core.Agent, error) {
	if a, ok := c.agents.Get(id); ok {
		a.Capabilities = a.Capabilities.Clone()
		return &a, nil
	}
	a, err := c.next.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	stored := *a
	stored.Capabilities = a.Capabilities.Clone()
	c.agents.Add(id, stored)
	return a, nil
}

// Invalidate drops every cached entry.
func (c *Cached) Invalidate() {
	c.lists.Purge()
	c.agents.Purge()
}

func copyAgents(in []core.Agent) []core.Agent {
	out := make([]core.Agent, len(in))
	for i, a := range in {
		a.Capabilities = a.Capabilities.Clone()
		out[i] = a
	}
	return out
}

var _ core.AgentRegistry = (*Cached)(nil)
