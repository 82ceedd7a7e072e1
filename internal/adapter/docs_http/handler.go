package docs_http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"docs-copilot/internal/domain"
	"docs-copilot/internal/usecase"

	"github.com/labstack/echo/v4"
)

// Pinger reports backing store health for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	askUsecase usecase.AskUsecase
	docRepo    domain.DocumentRepository
	db         Pinger
	logger     *slog.Logger
}

func NewHandler(askUsecase usecase.AskUsecase, docRepo domain.DocumentRepository, db Pinger, logger *slog.Logger) *Handler {
	return &Handler{
		askUsecase: askUsecase,
		docRepo:    docRepo,
		db:         db,
		logger:     logger,
	}
}

type askRequest struct {
	Query     string `json:"query"`
	SourceID  string `json:"source_id"`
	MaxTokens int    `json:"max_tokens"`
}

func (r askRequest) toInput() usecase.AskInput {
	return usecase.AskInput{
		Query:     r.Query,
		SourceID:  r.SourceID,
		MaxTokens: r.MaxTokens,
	}
}

// Ask answers a question in one response.
// (POST /v1/ask)
func (h *Handler) Ask(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	output, err := h.askUsecase.Execute(c.Request().Context(), req.toInput())
	if err != nil {
		return h.askError(c, err)
	}

	return c.JSON(http.StatusOK, output)
}

func (h *Handler) askError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, usecase.ErrEmptyQuery):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrAllRetrieversUnavailable):
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrGenerationUnavailable):
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

type searchRequest struct {
	Query    string `json:"query"`
	SourceID string `json:"source_id"`
}

type searchHitResponse struct {
	ID             string         `json:"id"`
	Text           string         `json:"text"`
	SourceID       string         `json:"source_id"`
	ChunkIndex     int            `json:"chunk_index"`
	FusedScore     float64        `json:"fused_score"`
	RelevanceScore float64        `json:"relevance_score"`
	OriginRanks    map[string]int `json:"origin_ranks"`
}

type searchResponse struct {
	QueryID           string              `json:"query_id"`
	Hits              []searchHitResponse `json:"hits"`
	DegradedRetrieval bool                `json:"degraded_retrieval"`
	DegradedRerank    bool                `json:"degraded_rerank"`
}

// Search runs retrieval, fusion and reranking without generation.
// (POST /v1/search)
func (h *Handler) Search(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	output, err := h.askUsecase.Retrieve(c.Request().Context(), usecase.AskInput{
		Query:    req.Query,
		SourceID: req.SourceID,
	})
	if err != nil {
		return h.askError(c, err)
	}

	hits := make([]searchHitResponse, 0, len(output.Hits))
	for _, hit := range output.Hits {
		hits = append(hits, searchHitResponse{
			ID:             hit.Fused.Chunk.ID,
			Text:           hit.Fused.Chunk.Text,
			SourceID:       hit.Fused.Chunk.SourceID,
			ChunkIndex:     hit.Fused.Chunk.ChunkIndex,
			FusedScore:     hit.Fused.FusedScore,
			RelevanceScore: hit.RelevanceScore,
			OriginRanks:    hit.Fused.OriginRanks,
		})
	}

	return c.JSON(http.StatusOK, searchResponse{
		QueryID:           output.QueryID,
		Hits:              hits,
		DegradedRetrieval: output.DegradedRetrieval,
		DegradedRerank:    output.DegradedRerank,
	})
}

// ListDocuments returns the distinct source IDs of the ingested corpus.
// (GET /v1/documents)
func (h *Handler) ListDocuments(c echo.Context) error {
	ids, err := h.docRepo.ListSourceIDs(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(http.StatusOK, map[string]any{"source_ids": ids, "count": len(ids)})
}

// DeleteDocument removes every chunk of one source document.
// (DELETE /v1/documents/:source_id)
func (h *Handler) DeleteDocument(c echo.Context) error {
	sourceID := c.Param("source_id")
	if sourceID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "source_id is required"})
	}

	deleted, err := h.docRepo.DeleteBySourceID(c.Request().Context(), sourceID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	h.logger.Info("document_deleted",
		slog.String("source_id", sourceID),
		slog.Int64("chunks_deleted", deleted))
	return c.JSON(http.StatusOK, map[string]any{"source_id": sourceID, "chunks_deleted": deleted})
}

// Health is the liveness probe.
// (GET /healthz)
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready is the readiness probe; it checks the backing store.
// (GET /readyz)
func (h *Handler) Ready(c echo.Context) error {
	if h.db != nil {
		if err := h.db.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}
