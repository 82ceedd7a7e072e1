package domain

import "context"

// DocumentRepository exposes corpus-level document metadata operations
// over the chunk store. It deliberately knows nothing about ingestion;
// chunks are written by an external pipeline.
type DocumentRepository interface {
	// ListSourceIDs returns the distinct source documents present in
	// the corpus, sorted ascending.
	ListSourceIDs(ctx context.Context) ([]string, error)
	// DeleteBySourceID removes every chunk belonging to the source and
	// returns the number of chunks deleted.
	DeleteBySourceID(ctx context.Context, sourceID string) (int64, error)
}
