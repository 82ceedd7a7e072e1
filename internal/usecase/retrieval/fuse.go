package retrieval

import (
	"log/slog"
	"sort"
)

type fusedEntry struct {
	result  FusedResult
	minRank int
	seen    int
}

// Fuse merges zero or more ranked lists into a single ordering using
// reciprocal rank fusion: each chunk scores the sum of 1/(k+rank) over
// the lists that returned it. A chunk missing from a list contributes
// nothing for that list; it is never assumed to hold a worst-case rank.
//
// Output is ordered by descending fused score. Floating-point sums can
// tie, so ties are broken deterministically: the chunk with the smaller
// minimum origin rank wins, then first-seen input order (callers pass
// the dense list before the sparse one). The result is truncated to
// topK when topK > 0.
func Fuse(lists []RankedList, k float64, topK int, logger *slog.Logger) []FusedResult {
	entries := make(map[string]*fusedEntry)
	order := 0

	for _, list := range lists {
		for i, chunk := range list.Chunks {
			rank := i + 1
			e, ok := entries[chunk.ID]
			if !ok {
				e = &fusedEntry{
					result: FusedResult{
						Chunk:       chunk,
						OriginRanks: make(map[string]int),
					},
					minRank: rank,
					seen:    order,
				}
				order++
				entries[chunk.ID] = e
			}
			if _, dup := e.result.OriginRanks[list.Retriever]; dup {
				// A retriever listing the same chunk twice counts once,
				// at its best rank.
				continue
			}
			e.result.OriginRanks[list.Retriever] = rank
			e.result.FusedScore += 1.0 / (k + float64(rank))
			if rank < e.minRank {
				e.minRank = rank
			}
		}
	}

	fused := make([]*fusedEntry, 0, len(entries))
	for _, e := range entries {
		fused = append(fused, e)
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].result.FusedScore != fused[j].result.FusedScore {
			return fused[i].result.FusedScore > fused[j].result.FusedScore
		}
		if fused[i].minRank != fused[j].minRank {
			return fused[i].minRank < fused[j].minRank
		}
		return fused[i].seen < fused[j].seen
	})

	if topK > 0 && len(fused) > topK {
		fused = fused[:topK]
	}

	results := make([]FusedResult, len(fused))
	for i, e := range fused {
		results[i] = e.result
	}

	if logger != nil {
		listSizes := make([]int, len(lists))
		for i, l := range lists {
			listSizes[i] = len(l.Chunks)
		}
		logger.Debug("rrf_fusion_completed",
			slog.Int("list_count", len(lists)),
			slog.Any("list_sizes", listSizes),
			slog.Int("fused_count", len(results)))
	}

	return results
}
