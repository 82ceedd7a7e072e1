package domain

import "errors"

// Failure taxonomy for the answer pipeline. Single-retriever and
// reranker failures are absorbed as degraded modes and never surface
// through these; the sentinels below mark conditions with no fallback.
var (
	// ErrAllRetrieversUnavailable means every retrieval method failed,
	// leaving nothing to fuse. No generation is attempted.
	ErrAllRetrieversUnavailable = errors.New("all retrievers unavailable")

	// ErrGenerationUnavailable means the generation service failed
	// before any token was delivered.
	ErrGenerationUnavailable = errors.New("generation service unavailable")
)
