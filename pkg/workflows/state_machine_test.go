package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestMachine() *StateMachine[string] {
	return NewStateMachine(map[string][]string{
		"DRAFT":     {"SUBMITTED"},
		"SUBMITTED": {"APPROVED", "REJECTED"},
		"APPROVED":  {"ARCHIVED"},
		"REJECTED":  {},
		"ARCHIVED":  {},
		"ORPHAN":    {"ARCHIVED"},
	})
}

func TestCanTransition(t *testing.T) {
	sm := newTestMachine()

	assert.True(t, sm.CanTransition("DRAFT", "SUBMITTED"))
	assert.True(t, sm.CanTransition("SUBMITTED", "REJECTED"))
	assert.False(t, sm.CanTransition("DRAFT", "APPROVED"))
	assert.False(t, sm.CanTransition("REJECTED", "SUBMITTED"))
	assert.False(t, sm.CanTransition("UNKNOWN", "DRAFT"))
}

func TestTerminalAndKnown(t *testing.T) {
	sm := newTestMachine()

	assert.True(t, sm.IsTerminal("REJECTED"))
	assert.True(t, sm.IsTerminal("ARCHIVED"))
	assert.False(t, sm.IsTerminal("SUBMITTED"))
	assert.False(t, sm.IsTerminal("UNKNOWN"))
	assert.True(t, sm.Knows("DRAFT"))
	assert.False(t, sm.Knows("UNKNOWN"))
}

func TestGetAllowedTransitionsReturnsCopy(t *testing.T) {
	sm := newTestMachine()

	next := sm.GetAllowedTransitions("SUBMITTED")
	assert.ElementsMatch(t, []string{"APPROVED", "REJECTED"}, next)

	next[0] = "MUTATED"
	assert.ElementsMatch(t, []string{"APPROVED", "REJECTED"}, sm.GetAllowedTransitions("SUBMITTED"))
	assert.Empty(t, sm.GetAllowedTransitions("UNKNOWN"))
}

func TestReachable(t *testing.T) {
	sm := newTestMachine()

	reach := sm.Reachable("DRAFT")
	assert.True(t, reach["DRAFT"])
	assert.True(t, reach["ARCHIVED"])
	assert.True(t, reach["REJECTED"])
	assert.False(t, reach["ORPHAN"])
}
