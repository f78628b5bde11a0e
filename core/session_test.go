package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoordinationSession_Clone(t *testing.T) {
	s := NewCoordinationSession("s1", 7, "growth", map[string]any{"a": 1})
	id := int64(3)
	s.CurrentAgentID = &id
	s.TaskDetails = map[string]any{"step": "one"}
	s.Handoff = &HandoffRecord{FromAgentID: 1, ToAgentID: 3, Data: map[string]any{"k": "v"}}

	clone := s.Clone()
	assert.NotSame(t, s, clone)

	clone.InitialContext["b"] = 2
	clone.TaskDetails["step"] = "two"
	*clone.CurrentAgentID = 9
	clone.Handoff.Data["k"] = "changed"

	assert.NotContains(t, s.InitialContext, "b")
	assert.Equal(t, "one", s.TaskDetails["step"])
	assert.Equal(t, int64(3), *s.CurrentAgentID)
	assert.Equal(t, "v", s.Handoff.Data["k"])
}

func TestNewCoordinationSession_Defaults(t *testing.T) {
	s := NewCoordinationSession("s2", 1, "content", nil)
	assert.Equal(t, SessionActive, s.Status)
	assert.True(t, s.IsActive())
	assert.NotNil(t, s.InitialContext)
	assert.Nil(t, s.CurrentAgentID)
	assert.False(t, s.CreatedAt.IsZero())
}
