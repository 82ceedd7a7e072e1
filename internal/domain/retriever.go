package domain

import "context"

// Retriever names used as keys in fusion origin-rank maps.
const (
	RetrieverDense  = "dense"
	RetrieverSparse = "sparse"
)

// Retriever returns chunks ranked by descending relevance under its own
// scoring model. An empty corpus or no chunk clearing the retriever's
// internal threshold yields an empty list, not an error; errors are
// reserved for service failures so callers can degrade to the other
// retriever.
type Retriever interface {
	// Name identifies the retrieval method (RetrieverDense/RetrieverSparse).
	Name() string
	// Retrieve returns at most limit chunks for the query. When sourceID
	// is non-empty, results are restricted to that source document.
	Retrieve(ctx context.Context, query, sourceID string, limit int) ([]RetrievedChunk, error)
}
