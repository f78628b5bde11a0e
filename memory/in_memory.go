package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hupe1980/agentcoord/core"
)

type storedItem struct {
	item core.ContextItem
	vec  []float32
	seq  int64
}

// InMemoryStore is a process‑local ContextStore. It offers owner-scoped
// upsert, similarity query and recency scroll.
//
// Concurrency: protected by RWMutex.
// Similarity: cosine over HashEmbedder vectors. Suitable for tests and
// single-node demos; use the chromem sub-package for a real vector index.
type InMemoryStore struct {
	mu       sync.RWMutex
	owners   map[string]map[string]*storedItem // ownerKey -> itemID -> item
	embedder *HashEmbedder
	seq      int64
}

// NewInMemoryStore creates a new in-memory context store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		owners:   make(map[string]map[string]*storedItem),
		embedder: NewHashEmbedder(0),
	}
}

// Upsert stores item under its owner key, generating an id when empty.
// An existing item with the same id and owner is replaced.
func (m *InMemoryStore) Upsert(ctx context.Context, item core.ContextItem) (string, error) {
	if item.OwnerKey == "" {
		return "", core.NewValidationError("owner_key", "", "must not be empty")
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	vec, err := m.embedder.Embed(ctx, item.Text)
	if err != nil {
		return "", err
	}
	item.Metadata = maps.Clone(item.Metadata)

	m.mu.Lock()
	defer m.mu.Unlock()
	items, ok := m.owners[item.OwnerKey]
	if !ok {
		items = make(map[string]*storedItem)
		m.owners[item.OwnerKey] = items
	}
	m.seq++
	items[item.ID] = &storedItem{item: item, vec: vec, seq: m.seq}
	return item.ID, nil
}

// Query returns the owner's items most similar to q.Text.
func (m *InMemoryStore) Query(ctx context.Context, q core.ContextQuery) ([]core.SearchResult, error) {
	if q.OwnerKey == "" {
		return nil, core.NewValidationError("owner_key", "", "must not be empty")
	}
	qvec, err := m.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	type scored struct {
		s     *storedItem
		score float64
	}
	var hits []scored
	for _, s := range m.owners[q.OwnerKey] {
		if q.Type != "" && s.item.Type != q.Type {
			continue
		}
		hits = append(hits, scored{s: s, score: Cosine(qvec, s.vec)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].s.seq > hits[j].s.seq
	})
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	out := make([]core.SearchResult, len(hits))
	for i, h := range hits {
		out[i] = toResult(h.s.item, h.score)
	}
	return out, nil
}

// Scroll lists the owner's items newest first without a similarity query.
func (m *InMemoryStore) Scroll(_ context.Context, ownerKey string, limit int, typeFilter string) ([]core.SearchResult, error) {
	if ownerKey == "" {
		return nil, core.NewValidationError("owner_key", "", "must not be empty")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]*storedItem, 0, len(m.owners[ownerKey]))
	for _, s := range m.owners[ownerKey] {
		if typeFilter != "" && s.item.Type != typeFilter {
			continue
		}
		items = append(items, s)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].seq > items[j].seq })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]core.SearchResult, len(items))
	for i, s := range items {
		out[i] = toResult(s.item, 0)
	}
	return out, nil
}

func toResult(item core.ContextItem, score float64) core.SearchResult {
	return core.SearchResult{
		ID:       item.ID,
		OwnerKey: item.OwnerKey,
		Text:     item.Text,
		Type:     item.Type,
		Score:    score,
		Metadata: maps.Clone(item.Metadata),
	}
}

var _ core.ContextStore = (*InMemoryStore)(nil)
