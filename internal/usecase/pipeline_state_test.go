package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineState_ForwardPath(t *testing.T) {
	path := []PipelineState{StateIdle, StateRetrieving, StateFusing, StateReranking, StateGenerating, StateCompleted}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, path[i].CanTransition(path[i+1]), "%s -> %s", path[i], path[i+1])
	}
}

func TestPipelineState_NoSkippingStages(t *testing.T) {
	assert.False(t, StateIdle.CanTransition(StateFusing))
	assert.False(t, StateRetrieving.CanTransition(StateGenerating))
	assert.False(t, StateFusing.CanTransition(StateCompleted))
}

func TestPipelineState_NoBackwardTransition(t *testing.T) {
	assert.False(t, StateGenerating.CanTransition(StateRetrieving))
	assert.False(t, StateFusing.CanTransition(StateIdle))
}

func TestPipelineState_ErroredFromAnyNonTerminal(t *testing.T) {
	for _, s := range []PipelineState{StateIdle, StateRetrieving, StateFusing, StateReranking, StateGenerating} {
		assert.True(t, s.CanTransition(StateErrored), "from %s", s)
	}
}

func TestPipelineState_TerminalStatesRefuseTransitions(t *testing.T) {
	for _, s := range []PipelineState{StateCompleted, StateErrored} {
		assert.True(t, s.Terminal())
		for next := StateIdle; next <= StateErrored; next++ {
			assert.False(t, s.CanTransition(next), "%s -> %s", s, next)
		}
	}
}
