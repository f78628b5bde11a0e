// Package agentcontext assembles the bounded context handed to an agent:
// similarity-retrieved snippets from the owner's vector context plus the
// agent's most recent responses.
package agentcontext

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentcoord/core"
	"github.com/hupe1980/agentcoord/logging"
)

const (
	defaultWindow        = 3
	defaultResponseLimit = 5
	defaultCharBudget    = 1000
	defaultTimeout       = 10 * time.Second

	// NoContext is the similarity section when nothing relevant was found.
	NoContext = "No relevant context available"
)

// Options configure an Assembler.
type Options struct {
	// Window is the default number of similarity results.
	Window int

	// ResponseLimit bounds the recent responses fetched per agent.
	ResponseLimit int

	// CharBudget bounds the similarity section in characters.
	CharBudget int

	// Timeout bounds each store fetch.
	Timeout time.Duration

	// Strict makes fetch failures fail Assemble instead of leaving the
	// section empty.
	Strict bool

	Logger logging.Logger
}

// Request selects what to assemble.
type Request struct {
	OwnerKey string
	Prompt   string
	AgentID  int64

	// AgentKey adds the agent type's own context scope to the similarity
	// query. Optional.
	AgentKey string

	// Window overrides Options.Window when positive.
	Window int
}

// Metadata describes an assembled payload.
type Metadata struct {
	OwnerKey      string   `json:"owner_key"`
	AgentKey      string   `json:"agent_key,omitempty"`
	AgentID       int64    `json:"agent_id"`
	Window        int      `json:"context_window"`
	SimilarCount  int      `json:"similar_count"`
	ResponseCount int      `json:"response_count"`
	Truncated     bool     `json:"truncated"`
	Errors        []string `json:"errors,omitempty"`
}

// Assembled is the context payload for one agent task.
type Assembled struct {
	Prompt    string                     `json:"current_prompt"`
	Text      string                     `json:"text"`
	Similar   []core.SearchResult        `json:"conversation_history"`
	Responses []core.AgentResponseRecord `json:"agent_responses"`
	Metadata  Metadata                   `json:"context_metadata"`
}

// Assembler merges similarity context and response history.
type Assembler struct {
	contexts  core.ContextStore
	responses core.ResponseStore
	opts      Options
	logger    logging.Logger
}

// New creates an assembler. Either store may be nil, which leaves its
// section empty.
func New(contexts core.ContextStore, responses core.ResponseStore, optFns ...func(o *Options)) *Assembler {
	opts := Options{
		Window:        defaultWindow,
		ResponseLimit: defaultResponseLimit,
		CharBudget:    defaultCharBudget,
		Timeout:       defaultTimeout,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Window <= 0 {
		opts.Window = defaultWindow
	}
	if opts.ResponseLimit <= 0 {
		opts.ResponseLimit = defaultResponseLimit
	}
	if opts.CharBudget <= 0 {
		opts.CharBudget = defaultCharBudget
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Assembler{contexts: contexts, responses: responses, opts: opts, logger: logging.OrNoOp(opts.Logger)}
}

// Assemble fetches both sections concurrently and formats them. It never
// writes to either store.
func (a *Assembler) Assemble(ctx context.Context, req Request) (*Assembled, error) {
	if req.OwnerKey == "" {
		return nil, core.NewValidationError("owner_key", req.OwnerKey, "must not be empty")
	}
	window := req.Window
	if window <= 0 {
		window = a.opts.Window
	}

	var (
		similar   []core.SearchResult
		agentSim  []core.SearchResult
		responses []core.AgentResponseRecord
		simErr    error
		agentErr  error
		respErr   error
	)

	g, gctx := errgroup.WithContext(ctx)
	if a.contexts != nil {
		g.Go(func() error {
			similar, simErr = a.query(gctx, req.OwnerKey, req.Prompt, window)
			return a.strict("similarity query", simErr)
		})
		if req.AgentKey != "" && req.AgentKey != req.OwnerKey {
			g.Go(func() error {
				agentSim, agentErr = a.query(gctx, req.AgentKey, req.Prompt, window)
				return a.strict("agent similarity query", agentErr)
			})
		}
	}
	if a.responses != nil && req.AgentID > 0 {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, a.opts.Timeout)
			defer cancel()
			responses, respErr = a.responses.ListByAgent(fctx, req.AgentID, a.opts.ResponseLimit)
			return a.strict("recent responses", respErr)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, core.Unavailable("assemble context", err)
	}

	out := &Assembled{
		Prompt: req.Prompt,
		Metadata: Metadata{
			OwnerKey: req.OwnerKey,
			AgentKey: req.AgentKey,
			AgentID:  req.AgentID,
			Window:   window,
		},
	}
	if simErr != nil {
		a.logger.Warn("context.similarity_failed", "owner", req.OwnerKey, "error", simErr.Error())
		out.Metadata.Errors = append(out.Metadata.Errors, "similarity: "+simErr.Error())
		similar = nil
	}
	if agentErr != nil {
		a.logger.Warn("context.agent_similarity_failed", "owner", req.AgentKey, "error", agentErr.Error())
		out.Metadata.Errors = append(out.Metadata.Errors, "agent similarity: "+agentErr.Error())
		agentSim = nil
	}
	if respErr != nil {
		a.logger.Warn("context.responses_failed", "agent_id", req.AgentID, "error", respErr.Error())
		out.Metadata.Errors = append(out.Metadata.Errors, "responses: "+respErr.Error())
		responses = nil
	}

	// Owner scoping is the store's contract; drop anything that slips through.
	scoped := MergeScoped(window, []string{req.OwnerKey, req.AgentKey}, similar, agentSim)

	out.Similar = scoped
	out.Responses = responses
	out.Metadata.SimilarCount = len(scoped)
	out.Metadata.ResponseCount = len(responses)

	section, truncated := Truncate(FormatSimilar(scoped), a.opts.CharBudget)
	out.Metadata.Truncated = truncated
	out.Text = section
	if len(responses) > 0 {
		out.Text += "\n\n" + FormatResponses(responses)
	}
	return out, nil
}

func (a *Assembler) query(ctx context.Context, owner, text string, limit int) ([]core.SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()
	return a.contexts.Query(ctx, core.ContextQuery{OwnerKey: owner, Text: text, Limit: limit})
}

func (a *Assembler) strict(what string, err error) error {
	if err != nil && a.opts.Strict {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

// MergeScoped keeps results owned by one of owners, drops repeated texts and
// returns the best limit results by score. Results with an empty owner key
// are dropped.
func MergeScoped(limit int, owners []string, lists ...[]core.SearchResult) []core.SearchResult {
	allowed := make(map[string]bool, len(owners))
	for _, o := range owners {
		if o != "" {
			allowed[o] = true
		}
	}

	seen := make(map[string]bool)
	var out []core.SearchResult
	for _, list := range lists {
		for _, r := range list {
			if !allowed[r.OwnerKey] || seen[r.Text] {
				continue
			}
			seen[r.Text] = true
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// FormatSimilar renders similarity results one per line.
func FormatSimilar(results []core.SearchResult) string {
	if len(results) == 0 {
		return NoContext
	}
	lines := make([]string, len(results))
	for i, r := range results {
		lines[i] = fmt.Sprintf("Relevance: %.2f - %s", r.Score, r.Text)
	}
	return strings.Join(lines, "\n")
}

// FormatResponses renders recent responses, newest first.
func FormatResponses(records []core.AgentResponseRecord) string {
	var b strings.Builder
	b.WriteString("Recent responses:")
	for _, r := range records {
		fmt.Fprintf(&b, "\n- [%s] %s (%s): %s", r.CreatedAt.UTC().Format(time.RFC3339), r.TaskID, r.ResponseType, r.Response)
	}
	return b.String()
}

// Truncate cuts s to at most n characters, keeping the beginning.
func Truncate(s string, n int) (string, bool) {
	if n <= 0 {
		return s, false
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s, false
	}
	return string(runes[:n]), true
}

// Store saves tool search results as search_result context items under
// owner. Each item contributes its title and content (or the closest
// equivalent fields) as text and is kept whole as metadata. It returns the
// number stored.
func (a *Assembler) Store(ctx context.Context, owner string, items []map[string]any) (int, error) {
	if a.contexts == nil {
		return 0, nil
	}
	if owner == "" {
		return 0, core.NewValidationError("owner_key", owner, "must not be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	var (
		n    int
		errs []error
	)
	for _, item := range items {
		title := firstNonEmpty(str(item["title"]), str(item["name"]))
		body := firstNonEmpty(str(item["content"]), str(item["snippet"]), str(item["bio"]), str(item["description"]))
		text := strings.TrimSpace(title + " " + body)
		if text == "" {
			continue
		}
		if _, err := a.contexts.Upsert(ctx, core.ContextItem{
			OwnerKey: owner,
			Text:     text,
			Type:     core.ContextTypeSearchResult,
			Metadata: item,
		}); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	if len(errs) > 0 {
		a.logger.Warn("context.store_failed", "owner", owner, "failed", len(errs))
	}
	return n, errors.Join(errs...)
}

// Remember stores a single context item of type typ under owner.
func (a *Assembler) Remember(ctx context.Context, owner, text, typ string, metadata map[string]any) (string, error) {
	if a.contexts == nil {
		return "", nil
	}
	if owner == "" {
		return "", core.NewValidationError("owner_key", owner, "must not be empty")
	}
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()
	return a.contexts.Upsert(ctx, core.ContextItem{OwnerKey: owner, Text: text, Type: typ, Metadata: metadata})
}

// ItemsFromContent extracts result items from a decoded tool payload: a list
// of objects, or an object holding one under a well-known key.
func ItemsFromContent(content any) []map[string]any {
	var list []any
	switch v := content.(type) {
	case []any:
		list = v
	case map[string]any:
		for _, key := range []string{"results", "items", "influencers", "trends", "hashtags"} {
			if l, ok := v[key].([]any); ok {
				list = l
				break
			}
		}
	}

	out := make([]map[string]any, 0, len(list))
	for _, e := range list {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
