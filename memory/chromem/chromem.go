// Package chromem provides a core.ContextStore backed by the embedded
// chromem-go vector database. Embeddings come from memory.HashEmbedder unless
// a different embedding function is configured.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"github.com/hupe1980/agentcoord/core"
	"github.com/hupe1980/agentcoord/memory"
)

// Metadata keys reserved by the store.
const (
	metaOwnerKey = "owner_key"
	metaType     = "type"
	metaExtra    = "metadata_json"
)

// Options configure the chromem store.
type Options struct {
	Collection    string
	EmbeddingFunc chromem.EmbeddingFunc
}

// Store implements core.ContextStore on a chromem collection.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection

	mu     sync.RWMutex
	owners map[string][]string // ownerKey -> ids in insertion order
}

// New creates an in-process chromem-backed store.
func New(optFns ...func(o *Options)) (*Store, error) {
	opts := Options{Collection: "agent_context"}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.EmbeddingFunc == nil {
		opts.EmbeddingFunc = memory.NewHashEmbedder(0).Embed
	}

	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(opts.Collection, nil, opts.EmbeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("chromem: create collection: %w", err)
	}
	return &Store{db: db, collection: collection, owners: make(map[string][]string)}, nil
}

// Upsert implements core.ContextStore.
func (s *Store) Upsert(ctx context.Context, item core.ContextItem) (string, error) {
	if item.OwnerKey == "" {
		return "", core.NewValidationError("owner_key", "", "must not be empty")
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	extra, err := json.Marshal(item.Metadata)
	if err != nil {
		return "", fmt.Errorf("chromem: encode metadata: %w", err)
	}

	doc := chromem.Document{
		ID:      item.ID,
		Content: item.Text,
		Metadata: map[string]string{
			metaOwnerKey: item.OwnerKey,
			metaType:     item.Type,
			metaExtra:    string(extra),
		},
	}
	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("chromem: add document %s: %w", item.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.owners[item.OwnerKey]
	for i, id := range ids {
		if id == item.ID {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	s.owners[item.OwnerKey] = append(ids, item.ID)
	return item.ID, nil
}

// Query implements core.ContextStore. The owner key is always part of the
// where filter.
func (s *Store) Query(ctx context.Context, q core.ContextQuery) ([]core.SearchResult, error) {
	if q.OwnerKey == "" {
		return nil, core.NewValidationError("owner_key", "", "must not be empty")
	}
	if q.Text == "" {
		// chromem refuses empty query text
		return s.Scroll(ctx, q.OwnerKey, q.Limit, q.Type)
	}
	where := map[string]string{metaOwnerKey: q.OwnerKey}
	if q.Type != "" {
		where[metaType] = q.Type
	}

	s.mu.RLock()
	owned := len(s.owners[q.OwnerKey])
	s.mu.RUnlock()

	n := q.Limit
	if n <= 0 || n > owned {
		n = owned
	}
	// chromem rejects nResults above the collection size
	if c := s.collection.Count(); n > c {
		n = c
	}
	if n == 0 {
		return []core.SearchResult{}, nil
	}

	results, err := s.collection.Query(ctx, q.Text, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: query: %w", err)
	}
	out := make([]core.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Metadata[metaOwnerKey] != q.OwnerKey {
			continue
		}
		out = append(out, toResult(r.ID, r.Content, r.Metadata, float64(r.Similarity)))
	}
	return out, nil
}

// Scroll implements core.ContextStore, newest first.
func (s *Store) Scroll(ctx context.Context, ownerKey string, limit int, typeFilter string) ([]core.SearchResult, error) {
	if ownerKey == "" {
		return nil, core.NewValidationError("owner_key", "", "must not be empty")
	}
	s.mu.RLock()
	ids := append([]string(nil), s.owners[ownerKey]...)
	s.mu.RUnlock()

	out := make([]core.SearchResult, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		doc, err := s.collection.GetByID(ctx, ids[i])
		if err != nil {
			return nil, fmt.Errorf("chromem: get %s: %w", ids[i], err)
		}
		if doc.Metadata[metaOwnerKey] != ownerKey {
			continue
		}
		if typeFilter != "" && doc.Metadata[metaType] != typeFilter {
			continue
		}
		out = append(out, toResult(doc.ID, doc.Content, doc.Metadata, 0))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Count returns the number of documents across all owners.
func (s *Store) Count() int {
	return s.collection.Count()
}

func toResult(id, content string, meta map[string]string, score float64) core.SearchResult {
	r := core.SearchResult{
		ID:       id,
		OwnerKey: meta[metaOwnerKey],
		Text:     content,
		Type:     meta[metaType],
		Score:    score,
	}
	if raw := meta[metaExtra]; raw != "" && raw != "null" {
		_ = json.Unmarshal([]byte(raw), &r.Metadata)
	}
	return r
}

var _ core.ContextStore = (*Store)(nil)
