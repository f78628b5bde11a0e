package selection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentcoord/core"
	"github.com/hupe1980/agentcoord/logging"
	"github.com/hupe1980/agentcoord/model"
)

// Classifier rates how complex a task description is. Implementations never
// fail; anything they cannot decide is core.ComplexityMedium.
type Classifier interface {
	Classify(ctx context.Context, description string) core.Complexity
}

const classifyPrompt = `Analyze the complexity of this task and classify it as simple, medium, or complex.

TASK: %s

ANALYSIS GUIDELINES:
1. Scope indicators: words like "only", "just", "specifically", "focused" suggest SIMPLE complexity
2. Task count: count the distinct tasks or strategies mentioned
   - 1-2 specific tasks: simple
   - 3-4 related areas: medium
   - 5+ areas or "comprehensive": complex
3. Specificity: specific requests are usually simpler than broad requests

EXAMPLES:
- "I need help with social media strategy only": simple
- "I need social media, content and business strategy": medium
- "I need comprehensive analysis of everything": complex

Return only: simple, medium, or complex`

// LLMClassifier asks a backend to apply the complexity rubric.
type LLMClassifier struct {
	completer model.Completer
	timeout   time.Duration
	logger    logging.Logger
}

// NewLLMClassifier creates a classifier backed by c.
func NewLLMClassifier(c model.Completer, timeout time.Duration, logger logging.Logger) *LLMClassifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &LLMClassifier{completer: c, timeout: timeout, logger: logging.OrNoOp(logger)}
}

// Classify implements Classifier.
func (c *LLMClassifier) Classify(ctx context.Context, description string) core.Complexity {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.completer.Complete(ctx, model.Request{Prompt: fmt.Sprintf(classifyPrompt, description)})
	if err != nil {
		c.logger.Warn("classifier.call_failed", "error", err.Error())
		return core.ComplexityMedium
	}

	out := NormalizeComplexity(resp.Text)
	c.logger.Debug("classifier.result", "raw", resp.Text, "complexity", string(out))
	return out
}

// NormalizeComplexity maps raw model output onto the three-value enum.
// Surrounding whitespace, code fences, quotes and punctuation are ignored;
// everything else is medium.
func NormalizeComplexity(raw string) core.Complexity {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.Trim(s, " \t\r\n`'\"*.,;:!")
	if c, err := core.ParseComplexity(s); err == nil {
		return c
	}
	return core.ComplexityMedium
}

var scopeWords = []string{"only", "just", "specifically", "focused"}

// taskAreas are the named areas counted by the rubric; each entry counts once
// when any of its terms occurs.
var taskAreas = [][]string{
	{"social media"},
	{"business"},
	{"content"},
	{"analytics", "performance"},
	{"growth"},
	{"pricing", "monetization"},
	{"engagement", "community"},
	{"collaboration", "partnership"},
	{"compliance"},
	{"platform"},
}

// HeuristicClassifier applies the rubric locally without a backend.
type HeuristicClassifier struct{}

// Classify implements Classifier.
func (HeuristicClassifier) Classify(_ context.Context, description string) core.Complexity {
	text := strings.ToLower(description)

	for _, w := range words(text) {
		for _, sw := range scopeWords {
			if w == sw {
				return core.ComplexitySimple
			}
		}
	}
	if strings.Contains(text, "comprehensive") {
		return core.ComplexityComplex
	}

	n := CountTaskAreas(text)
	switch {
	case n >= 5:
		return core.ComplexityComplex
	case n >= 3:
		return core.ComplexityMedium
	case n >= 1:
		return core.ComplexitySimple
	default:
		return core.ComplexityMedium
	}
}

// CountTaskAreas counts the distinct named task areas mentioned in text.
func CountTaskAreas(text string) int {
	text = strings.ToLower(text)
	n := 0
	for _, terms := range taskAreas {
		for _, t := range terms {
			if strings.Contains(text, t) {
				n++
				break
			}
		}
	}
	return n
}

func words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_'
	})
}

var (
	_ Classifier = (*LLMClassifier)(nil)
	_ Classifier = HeuristicClassifier{}
)
