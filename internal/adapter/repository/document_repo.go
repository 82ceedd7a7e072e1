package repository

import (
	"context"
	"fmt"

	"docs-copilot/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type documentRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository creates a repository for the ingested corpus.
func NewDocumentRepository(pool *pgxpool.Pool) domain.DocumentRepository {
	return &documentRepository{pool: pool}
}

func (r *documentRepository) ListSourceIDs(ctx context.Context) ([]string, error) {
	sql := `
		SELECT DISTINCT source_id
		FROM doc_chunks
		ORDER BY source_id ASC
	`
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to query source ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan source id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ids, nil
}

func (r *documentRepository) DeleteBySourceID(ctx context.Context, sourceID string) (int64, error) {
	sql := `
		DELETE FROM doc_chunks
		WHERE source_id = $1
	`
	tag, err := r.pool.Exec(ctx, sql, sourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks: %w", err)
	}
	return tag.RowsAffected(), nil
}
