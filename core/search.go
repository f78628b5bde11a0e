package core

import (
	"context"
	"fmt"
)

// Context item type tags.
const (
	ContextTypeSearchResult = "search_result"
	ContextTypeNote         = "note"
	ContextTypeConversation = "conversation"
)

// ContextItem is a text snippet stored in the vector context store.
// OwnerKey scopes every retrieval.
type ContextItem struct {
	ID       string
	OwnerKey string
	Text     string
	Type     string
	Metadata map[string]any
}

// SearchResult represents a retrieved context item with a relevance score.
// Score is only meaningful for similarity queries.
type SearchResult struct {
	ID       string
	OwnerKey string
	Text     string
	Type     string
	Score    float64
	Metadata map[string]any
}

// ContextQuery describes a similarity query. Type is optional.
type ContextQuery struct {
	OwnerKey string
	Text     string
	Limit    int
	Type     string
}

// ContextStore defines owner-scoped storage and retrieval of context items.
// Implementations must never return items whose owner key differs from the
// one requested.
type ContextStore interface {
	Upsert(ctx context.Context, item ContextItem) (string, error)
	Query(ctx context.Context, q ContextQuery) ([]SearchResult, error)
	Scroll(ctx context.Context, ownerKey string, limit int, typeFilter string) ([]SearchResult, error)
}

// UserOwnerKey returns the owner key used for a user's context.
func UserOwnerKey(userID int64) string {
	return fmt.Sprintf("user_%d", userID)
}

// AgentOwnerKey returns the owner key used for an agent type's context.
func AgentOwnerKey(agentType string) string {
	return "agent_" + agentType
}
