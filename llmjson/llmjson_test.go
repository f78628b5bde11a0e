package llmjson

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_Encodings(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"labeled fence", "```json\n[{\"agent_id\":1}]\n```"},
		{"generic fence", "```\n[{\"agent_id\":1}]\n```"},
		{"generic fence with tag", "```javascript\n[{\"agent_id\":1}]\n```"},
		{"prose wrapped", "Here are the agents: [{\"agent_id\":1}] hope that helps"},
		{"raw", `[{"agent_id":1}]`},
		{"raw with whitespace", "\n  [{\"agent_id\": 1}]  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []map[string]int
			require.NoError(t, ExtractInto(tt.text, &got))
			assert.Equal(t, []map[string]int{{"agent_id": 1}}, got)
		})
	}
}

func TestExtract_LabeledFenceWins(t *testing.T) {
	text := "Ignore {\"draft\": true}\n```json\n{\"final\": true}\n```"
	raw, err := Extract(text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"final": true}`, string(raw))
}

func TestExtract_ObjectInProse(t *testing.T) {
	v, err := ExtractValue(`The plan is {"execution_sequence": [{"agent_id": 2, "step": 1}]}. Done.`)
	require.NoError(t, err)
	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, m, "execution_sequence")
}

func TestExtract_Repair(t *testing.T) {
	t.Run("trailing comma", func(t *testing.T) {
		var got []map[string]int
		require.NoError(t, ExtractInto("```json\n[{\"agent_id\": 1,}]\n```", &got))
		assert.Equal(t, 1, got[0]["agent_id"])
	})

	t.Run("single quotes", func(t *testing.T) {
		var got []map[string]string
		require.NoError(t, ExtractInto(`Result: [{'role': 'primary'}]`, &got))
		assert.Equal(t, "primary", got[0]["role"])
	})
}

func TestExtract_NoJSON(t *testing.T) {
	for _, text := range []string{"", "I cannot help with that.", "   "} {
		_, err := Extract(text)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoJSON))

		var pe *ParseError
		require.True(t, errors.As(err, &pe))
		assert.Contains(t, pe.Attempts, StrategyWhole)
	}
}

func TestBracketed(t *testing.T) {
	s, ok := bracketed(`x {"a": [1, 2]} y`)
	require.True(t, ok)
	assert.Equal(t, `{"a": [1, 2]}`, s)

	s, ok = bracketed(`x [{"a": 1}] y`)
	require.True(t, ok)
	assert.Equal(t, `[{"a": 1}]`, s)

	_, ok = bracketed("] before [")
	assert.False(t, ok)
}
