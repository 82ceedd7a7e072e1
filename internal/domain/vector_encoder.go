package domain

import "context"

// Embedder encodes text into dense vectors for nearest-neighbor search.
type Embedder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}
