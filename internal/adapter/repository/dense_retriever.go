package repository

import (
	"context"
	"fmt"
	"log/slog"

	"docs-copilot/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type denseRetriever struct {
	pool     *pgxpool.Pool
	embedder domain.Embedder
	logger   *slog.Logger
}

// NewDenseRetriever creates a retriever backed by pgvector nearest
// neighbour search over the doc_chunks table.
func NewDenseRetriever(pool *pgxpool.Pool, embedder domain.Embedder, logger *slog.Logger) domain.Retriever {
	return &denseRetriever{pool: pool, embedder: embedder, logger: logger}
}

func (r *denseRetriever) Name() string {
	return domain.RetrieverDense
}

func (r *denseRetriever) Retrieve(ctx context.Context, query, sourceID string, limit int) ([]domain.RetrievedChunk, error) {
	embeddings, err := r.embedder.Encode(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}

	vec := pgvector.NewVector(embeddings[0])

	// Cosine distance; score is flipped so higher means closer.
	sql := `
		SELECT id, content, source_id, chunk_index, 1 - (embedding <=> $1) AS score
		FROM doc_chunks
		WHERE $2 = '' OR source_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, sql, vec, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.RetrievedChunk
	for rows.Next() {
		var c domain.RetrievedChunk
		if err := rows.Scan(&c.ID, &c.Text, &c.SourceID, &c.ChunkIndex, &c.Score); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	r.logger.Debug("dense_retrieval_completed",
		slog.Int("hits", len(chunks)),
		slog.String("source_id", sourceID))
	return chunks, nil
}
