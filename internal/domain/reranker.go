package domain

import "context"

// RerankCandidate is one chunk submitted for cross-encoder scoring.
type RerankCandidate struct {
	// ID is the chunk identifier, used to map results back.
	ID string
	// Content is the text scored against the query.
	Content string
	// Score is the pre-rerank retrieval score, kept for logging.
	Score float64
}

// RerankResult is a candidate rescored by the cross-encoder.
type RerankResult struct {
	ID string
	// Score is on the reranker's own scale and is not comparable to
	// fusion scores.
	Score float64
}

// Reranker scores a candidate batch against a query with a
// cross-encoder model. One call covers the whole batch; callers must
// fall back to their pre-rerank ordering when an error is returned.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]RerankResult, error)
	ModelName() string
}
