package searchindex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"docs-copilot/internal/domain"
)

// Client queries the lexical search indexer. It serves as the sparse
// half of hybrid retrieval; scores are BM25-style and only the ordering
// is meaningful to fusion.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, timeoutSeconds int, logger *slog.Logger) *Client {
	timeout := 10 * time.Second
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type searchResponse struct {
	Query string      `json:"query"`
	Hits  []searchHit `json:"hits"`
}

type searchHit struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	SourceID   string  `json:"source_id"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

func (c *Client) Name() string {
	return domain.RetrieverSparse
}

func (c *Client) Retrieve(ctx context.Context, query, sourceID string, limit int) ([]domain.RetrievedChunk, error) {
	u, err := url.Parse(fmt.Sprintf("%s/v1/search", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	q := u.Query()
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	if sourceID != "" {
		q.Set("source_id", sourceID)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status: %d", resp.StatusCode)
	}

	var sResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	chunks := make([]domain.RetrievedChunk, len(sResp.Hits))
	for i, h := range sResp.Hits {
		chunks[i] = domain.RetrievedChunk{
			ID:         h.ID,
			Text:       h.Content,
			SourceID:   h.SourceID,
			ChunkIndex: h.ChunkIndex,
			Score:      h.Score,
		}
	}

	c.logger.Debug("sparse_retrieval_completed",
		slog.Int("hits", len(chunks)),
		slog.String("source_id", sourceID))
	return chunks, nil
}

var _ domain.Retriever = (*Client)(nil)
