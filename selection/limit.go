package selection

import (
	"slices"
	"strings"

	"github.com/hupe1980/agentcoord/core"
)

// LimitPolicy caps how many agents an LLM selection may keep, based on how
// many task areas the description names. Disabled policies pass selections
// through unchanged.
type LimitPolicy struct {
	Enabled bool `mapstructure:"enabled"`

	// Max is the hard upper bound applied after the heuristic.
	Max int `mapstructure:"max"`

	// Default is the limit used when no task area is recognized.
	Default int `mapstructure:"default"`
}

// DefaultLimitPolicy returns the disabled policy with its standard bounds.
func DefaultLimitPolicy() LimitPolicy {
	return LimitPolicy{Enabled: false, Max: 7, Default: 3}
}

// MaxAgents returns the limit for description.
func (p LimitPolicy) MaxAgents(description string) int {
	text := strings.ToLower(description)
	n := CountTaskAreas(text)
	if n == 0 {
		return p.Default
	}

	limit := n + 1
	for _, w := range words(text) {
		if slices.Contains(scopeWords, w) {
			limit = min(n, 2)
			break
		}
	}
	if p.Max > 0 && limit > p.Max {
		limit = p.Max
	}
	return limit
}

// Apply trims agents to the limit for description, keeping the highest
// priority entries. agents must already be ordered by priority.
func (p LimitPolicy) Apply(agents []core.SelectedAgent, description string) ([]core.SelectedAgent, bool) {
	if !p.Enabled {
		return agents, false
	}
	limit := p.MaxAgents(description)
	if limit <= 0 || len(agents) <= limit {
		return agents, false
	}

	kept := slices.Clone(agents[:limit])
	for i := range kept {
		kept[i].Reasoning = "Kept by selection limit. " + kept[i].Reasoning
	}
	return kept, true
}
