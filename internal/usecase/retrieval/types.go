package retrieval

import (
	"time"

	"docs-copilot/internal/domain"
)

// RankedList is one retriever's output for a single query. Rank is
// implied by position: the first element has rank 1. Lists are built
// fresh per query and never shared across queries.
type RankedList struct {
	Retriever string
	Chunks    []domain.RetrievedChunk
}

// FusedResult is one chunk after reciprocal rank fusion.
type FusedResult struct {
	Chunk domain.RetrievedChunk
	// FusedScore is comparable only within one fusion run.
	FusedScore float64
	// OriginRanks maps retriever name to the 1-based rank the chunk
	// held in that retriever's list. A retriever that did not return
	// the chunk has no entry.
	OriginRanks map[string]int
}

// RerankedResult pairs a fused candidate with its final relevance
// score. When the rerank stage fails open, RelevanceScore carries the
// fused score unchanged.
type RerankedResult struct {
	Fused          FusedResult
	RelevanceScore float64
}

// RerankOutcome is the rerank stage result. Degraded is set whenever
// the cross-encoder did not produce the ordering, so callers can tell
// full-quality responses from fail-open ones without reading logs.
type RerankOutcome struct {
	Results  []RerankedResult
	Degraded bool
	// Reason explains the degradation; empty when Degraded is false.
	Reason string
}

// RerankConfig holds rerank stage parameters.
type RerankConfig struct {
	Enabled bool
	TopN    int
	Timeout time.Duration
}
