package docs_http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docs-copilot/internal/domain"
	"docs-copilot/internal/usecase"
	"docs-copilot/internal/usecase/retrieval"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAskUsecase struct {
	out         *usecase.AskOutput
	err         error
	events      []usecase.StreamEvent
	retrieveOut *usecase.RetrieveOutput
}

func (s *stubAskUsecase) Execute(ctx context.Context, input usecase.AskInput) (*usecase.AskOutput, error) {
	return s.out, s.err
}

func (s *stubAskUsecase) Stream(ctx context.Context, input usecase.AskInput) <-chan usecase.StreamEvent {
	ch := make(chan usecase.StreamEvent, len(s.events))
	for _, ev := range s.events {
		ch <- ev
	}
	close(ch)
	return ch
}

func (s *stubAskUsecase) Retrieve(ctx context.Context, input usecase.AskInput) (*usecase.RetrieveOutput, error) {
	return s.retrieveOut, s.err
}

type stubDocRepo struct {
	ids     []string
	deleted int64
	err     error
}

func (s *stubDocRepo) ListSourceIDs(ctx context.Context) ([]string, error) {
	return s.ids, s.err
}

func (s *stubDocRepo) DeleteBySourceID(ctx context.Context, sourceID string) (int64, error) {
	return s.deleted, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestServer(ask usecase.AskUsecase, docs domain.DocumentRepository) *echo.Echo {
	e := echo.New()
	h := NewHandler(ask, docs, nil, testLogger())
	RegisterRoutes(e, h, RateLimit(100, 100))
	return e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Ask_Success(t *testing.T) {
	ask := &stubAskUsecase{out: &usecase.AskOutput{
		QueryID: "q-1",
		Answer:  "FastAPI builds on Starlette.",
		Sources: []domain.SourceCitation{{SourceID: "fastapi.md", ChunkIndex: 1, Score: 0.9, Text: "..."}},
		UsedRAG: true,
	}}
	e := newTestServer(ask, &stubDocRepo{})

	rec := doJSON(e, http.MethodPost, "/v1/ask", `{"query":"What is FastAPI?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var out usecase.AskOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "q-1", out.QueryID)
	assert.True(t, out.UsedRAG)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "fastapi.md", out.Sources[0].SourceID)
}

func TestHandler_Ask_EmptyQuery(t *testing.T) {
	ask := &stubAskUsecase{err: usecase.ErrEmptyQuery}
	e := newTestServer(ask, &stubDocRepo{})

	rec := doJSON(e, http.MethodPost, "/v1/ask", `{"query":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Ask_RetrieversUnavailable(t *testing.T) {
	ask := &stubAskUsecase{err: domain.ErrAllRetrieversUnavailable}
	e := newTestServer(ask, &stubDocRepo{})

	rec := doJSON(e, http.MethodPost, "/v1/ask", `{"query":"q"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandler_AskStream_EventOrder(t *testing.T) {
	ask := &stubAskUsecase{events: []usecase.StreamEvent{
		{Kind: usecase.StreamEventKindSources, Payload: usecase.StreamSources{
			QueryID: "q-1",
			Sources: []domain.SourceCitation{{SourceID: "fastapi.md"}},
			UsedRAG: true,
		}},
		{Kind: usecase.StreamEventKindContent, Payload: "Fast"},
		{Kind: usecase.StreamEventKindContent, Payload: "API"},
		{Kind: usecase.StreamEventKindDone, Payload: usecase.StreamDone{QueryID: "q-1", Answer: "FastAPI"}},
	}}
	e := newTestServer(ask, &stubDocRepo{})

	rec := doJSON(e, http.MethodPost, "/v1/ask/stream", `{"query":"q"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))

	body := rec.Body.String()
	sourcesAt := strings.Index(body, "event: sources")
	contentAt := strings.Index(body, "event: content")
	doneAt := strings.Index(body, "event: done")
	require.NotEqual(t, -1, sourcesAt)
	require.NotEqual(t, -1, contentAt)
	require.NotEqual(t, -1, doneAt)
	assert.Less(t, sourcesAt, contentAt)
	assert.Less(t, contentAt, doneAt)
	assert.Equal(t, 1, strings.Count(body, "event: sources"))
	assert.Contains(t, body, `data: "Fast"`)
	assert.Contains(t, body, `"answer":"FastAPI"`)
}

func TestHandler_AskStream_ErrorEvent(t *testing.T) {
	ask := &stubAskUsecase{events: []usecase.StreamEvent{
		{Kind: usecase.StreamEventKindError, Payload: "all retrievers unavailable"},
	}}
	e := newTestServer(ask, &stubDocRepo{})

	rec := doJSON(e, http.MethodPost, "/v1/ask/stream", `{"query":"q"}`)

	body := rec.Body.String()
	assert.Contains(t, body, "event: error")
	assert.NotContains(t, body, "event: sources")
	assert.NotContains(t, body, "event: done")
}

func TestHandler_Search(t *testing.T) {
	ask := &stubAskUsecase{retrieveOut: &usecase.RetrieveOutput{
		QueryID: "q-2",
		Hits: []retrieval.RerankedResult{{
			Fused: retrieval.FusedResult{
				Chunk:       domain.RetrievedChunk{ID: "B", Text: "hybrid", SourceID: "fastapi.md", ChunkIndex: 1},
				FusedScore:  0.032,
				OriginRanks: map[string]int{"dense": 2, "sparse": 1},
			},
			RelevanceScore: 0.97,
		}},
		DegradedRerank: true,
	}}
	e := newTestServer(ask, &stubDocRepo{})

	rec := doJSON(e, http.MethodPost, "/v1/search", `{"query":"hybrid"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var out searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "q-2", out.QueryID)
	assert.True(t, out.DegradedRerank)
	require.Len(t, out.Hits, 1)
	assert.Equal(t, "B", out.Hits[0].ID)
	assert.Equal(t, 0.97, out.Hits[0].RelevanceScore)
	assert.Equal(t, map[string]int{"dense": 2, "sparse": 1}, out.Hits[0].OriginRanks)
}

func TestHandler_ListDocuments(t *testing.T) {
	e := newTestServer(&stubAskUsecase{}, &stubDocRepo{ids: []string{"a.md", "b.md"}})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":2`)
}

func TestHandler_DeleteDocument(t *testing.T) {
	e := newTestServer(&stubAskUsecase{}, &stubDocRepo{deleted: 7})

	req := httptest.NewRequest(http.MethodDelete, "/v1/documents/a.md", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"chunks_deleted":7`)
}

func TestRateLimit_Returns429(t *testing.T) {
	e := echo.New()
	h := NewHandler(&stubAskUsecase{out: &usecase.AskOutput{}}, &stubDocRepo{}, nil, testLogger())
	RegisterRoutes(e, h, RateLimit(1, 1))

	first := doJSON(e, http.MethodPost, "/v1/ask", `{"query":"q"}`)
	second := doJSON(e, http.MethodPost, "/v1/ask", `{"query":"q"}`)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRequestTracking_Headers(t *testing.T) {
	e := echo.New()
	e.Use(RequestTracking(testLogger()))
	h := NewHandler(&stubAskUsecase{out: &usecase.AskOutput{}}, &stubDocRepo{}, nil, testLogger())
	RegisterRoutes(e, h, RateLimit(100, 100))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
	assert.NotEmpty(t, rec.Header().Get(headerProcessTime))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "caller-supplied")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "caller-supplied", rec.Header().Get(headerRequestID))
}

func TestHandler_Health(t *testing.T) {
	e := newTestServer(&stubAskUsecase{}, &stubDocRepo{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
