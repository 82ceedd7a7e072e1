package usecase

import "log/slog"

// PipelineState tags the lifecycle of one ask request. State moves
// forward through the stages in order; Errored is reachable from any
// non-terminal state and, like Completed, is terminal.
type PipelineState int

const (
	StateIdle PipelineState = iota
	StateRetrieving
	StateFusing
	StateReranking
	StateGenerating
	StateCompleted
	StateErrored
)

func (s PipelineState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRetrieving:
		return "retrieving"
	case StateFusing:
		return "fusing"
	case StateReranking:
		return "reranking"
	case StateGenerating:
		return "generating"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is allowed.
func (s PipelineState) Terminal() bool {
	return s == StateCompleted || s == StateErrored
}

// CanTransition reports whether moving from s to next is legal.
func (s PipelineState) CanTransition(next PipelineState) bool {
	if s.Terminal() {
		return false
	}
	if next == StateErrored {
		return true
	}
	return next == s+1 && next <= StateCompleted
}

// pipelineTracker is the explicit state value threaded through one
// request, so transitions show up in logs and stay testable.
type pipelineTracker struct {
	state   PipelineState
	queryID string
	logger  *slog.Logger
}

func newPipelineTracker(queryID string, logger *slog.Logger) *pipelineTracker {
	return &pipelineTracker{state: StateIdle, queryID: queryID, logger: logger}
}

func (t *pipelineTracker) advance(next PipelineState) {
	if !t.state.CanTransition(next) {
		t.logger.Warn("illegal_pipeline_transition",
			slog.String("query_id", t.queryID),
			slog.String("from", t.state.String()),
			slog.String("to", next.String()))
		return
	}
	t.logger.Debug("pipeline_transition",
		slog.String("query_id", t.queryID),
		slog.String("from", t.state.String()),
		slog.String("to", next.String()))
	t.state = next
}
