package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"docs-copilot/internal/domain"
)

// Rerank refines fused candidates with a single batched cross-encoder
// call and truncates the result to cfg.TopN. The cross-encoder is a
// quality enhancement, not a correctness dependency: when it is
// disabled, unavailable, or times out, the stage fails open to the
// fused ordering and marks the outcome Degraded.
func Rerank(
	ctx context.Context,
	query string,
	fused []FusedResult,
	reranker domain.Reranker,
	cfg RerankConfig,
	logger *slog.Logger,
) RerankOutcome {
	if len(fused) == 0 {
		return RerankOutcome{Results: []RerankedResult{}}
	}
	if !cfg.Enabled || reranker == nil {
		return failOpen(fused, cfg.TopN, "reranking disabled")
	}

	candidates := make([]domain.RerankCandidate, len(fused))
	for i, f := range fused {
		candidates[i] = domain.RerankCandidate{
			ID:      f.Chunk.ID,
			Content: f.Chunk.Text,
			Score:   f.FusedScore,
		}
	}

	rerankStart := time.Now()
	rerankCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	reranked, err := reranker.Rerank(rerankCtx, query, candidates)
	cancel()

	if err != nil {
		logger.Warn("reranking_failed_fail_open",
			slog.String("error", err.Error()),
			slog.Int("candidate_count", len(candidates)),
			slog.Int64("duration_ms", time.Since(rerankStart).Milliseconds()))
		return failOpen(fused, cfg.TopN, "reranker unavailable: "+err.Error())
	}

	scores := make(map[string]float64, len(reranked))
	for _, r := range reranked {
		scores[r.ID] = r.Score
	}

	results := make([]RerankedResult, len(fused))
	for i, f := range fused {
		score, ok := scores[f.Chunk.ID]
		if !ok {
			// Candidates the service omitted keep their fused score and
			// sort after every rescored one.
			score = f.FusedScore
		}
		results[i] = RerankedResult{Fused: f, RelevanceScore: score}
	}
	sort.SliceStable(results, func(i, j int) bool {
		_, si := scores[results[i].Fused.Chunk.ID]
		_, sj := scores[results[j].Fused.Chunk.ID]
		if si != sj {
			return si
		}
		if si && sj {
			return results[i].RelevanceScore > results[j].RelevanceScore
		}
		return false
	})
	results = truncate(results, cfg.TopN)

	logger.Info("reranking_completed",
		slog.Int("candidate_count", len(candidates)),
		slog.Int("result_count", len(results)),
		slog.String("model", reranker.ModelName()),
		slog.Int64("duration_ms", time.Since(rerankStart).Milliseconds()))

	return RerankOutcome{Results: results}
}

func failOpen(fused []FusedResult, topN int, reason string) RerankOutcome {
	results := make([]RerankedResult, len(fused))
	for i, f := range fused {
		results[i] = RerankedResult{Fused: f, RelevanceScore: f.FusedScore}
	}
	return RerankOutcome{
		Results:  truncate(results, topN),
		Degraded: true,
		Reason:   reason,
	}
}

func truncate(results []RerankedResult, topN int) []RerankedResult {
	if topN > 0 && len(results) > topN {
		return results[:topN]
	}
	return results
}
