package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"docs-copilot/internal/domain"
	"docs-copilot/internal/usecase/retrieval"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

// PipelineConfig holds the tunables of the answer pipeline. The RRF
// smoothing constant and truncation sizes are deliberate parameters,
// not constants.
type PipelineConfig struct {
	RRFK             float64
	SearchLimit      int
	FusionTopK       int
	RerankTopN       int
	RerankEnabled    bool
	RetrieverTimeout time.Duration
	RerankTimeout    time.Duration
	MaxTokens        int
	ContextMaxChars  int
	CacheSize        int
	CacheTTL         time.Duration
}

type cacheEntry struct {
	output    *AskOutput
	expiresAt time.Time
}

type askUsecase struct {
	dense    domain.Retriever
	sparse   domain.Retriever
	reranker domain.Reranker
	llm      domain.LLMClient
	cfg      PipelineConfig
	cache    *lru.Cache[string, cacheEntry]
	logger   *slog.Logger
}

// NewAskUsecase wires the retrieval, fusion, rerank, and generation
// stages into one answer pipeline.
func NewAskUsecase(
	dense, sparse domain.Retriever,
	reranker domain.Reranker,
	llm domain.LLMClient,
	cfg PipelineConfig,
	logger *slog.Logger,
) (AskUsecase, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	cache, err := lru.New[string, cacheEntry](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create answer cache: %w", err)
	}
	return &askUsecase{
		dense:    dense,
		sparse:   sparse,
		reranker: reranker,
		llm:      llm,
		cfg:      cfg,
		cache:    cache,
		logger:   logger,
	}, nil
}

func (u *askUsecase) Execute(ctx context.Context, input AskInput) (*AskOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	input.Query = query

	if out, ok := u.cachedAnswer(input); ok {
		u.logger.Info("answer_cache_hit", slog.String("query_id", out.QueryID))
		return out, nil
	}

	queryID := uuid.NewString()
	st := newPipelineTracker(queryID, u.logger)

	st.advance(StateRetrieving)
	lists, failed, err := u.retrieveLists(ctx, input)
	if err != nil {
		st.advance(StateErrored)
		return nil, err
	}

	st.advance(StateFusing)
	fused := retrieval.Fuse(lists, u.cfg.RRFK, u.cfg.FusionTopK, u.logger)

	st.advance(StateReranking)
	outcome := retrieval.Rerank(ctx, query, fused, u.reranker, u.rerankConfig(), u.logger)

	contextText, sources := buildContext(outcome.Results, u.cfg.ContextMaxChars)
	usedRAG := len(sources) > 0
	if sources == nil {
		sources = []domain.SourceCitation{}
	}
	prompt := buildFallbackPrompt(query)
	if usedRAG {
		prompt = buildGroundedPrompt(query, contextText)
	}

	st.advance(StateGenerating)
	resp, err := u.llm.Generate(ctx, prompt, u.maxTokens(input))
	if err != nil {
		st.advance(StateErrored)
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationUnavailable, err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		st.advance(StateErrored)
		return nil, fmt.Errorf("%w: empty response", domain.ErrGenerationUnavailable)
	}

	st.advance(StateCompleted)
	output := &AskOutput{
		QueryID:        queryID,
		Answer:         strings.TrimSpace(resp.Text),
		Sources:        sources,
		UsedRAG:        usedRAG,
		DegradedRerank: outcome.Degraded,
		Truncated:      !resp.Done,
	}

	u.logger.Info("ask_completed",
		slog.String("query_id", queryID),
		slog.Bool("used_rag", usedRAG),
		slog.Bool("degraded_rerank", outcome.Degraded),
		slog.Int("source_count", len(sources)),
		slog.Any("failed_retrievers", failed))

	if !output.Truncated {
		u.storeCache(input, output)
	}
	return output, nil
}

func (u *askUsecase) Retrieve(ctx context.Context, input AskInput) (*RetrieveOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	input.Query = query

	queryID := uuid.NewString()
	lists, failed, err := u.retrieveLists(ctx, input)
	if err != nil {
		return nil, err
	}

	fused := retrieval.Fuse(lists, u.cfg.RRFK, u.cfg.FusionTopK, u.logger)
	outcome := retrieval.Rerank(ctx, query, fused, u.reranker, u.rerankConfig(), u.logger)

	return &RetrieveOutput{
		QueryID:           queryID,
		Hits:              outcome.Results,
		DegradedRetrieval: len(failed) > 0,
		DegradedRerank:    outcome.Degraded,
	}, nil
}

// retrieveLists fans out to both retrievers concurrently, each under
// its own timeout. A single failure degrades to the surviving list;
// only both failing is fatal. The dense list always precedes the
// sparse one so fusion tie-breaking stays deterministic.
func (u *askUsecase) retrieveLists(ctx context.Context, input AskInput) ([]retrieval.RankedList, []string, error) {
	type retrieverResult struct {
		name   string
		chunks []domain.RetrievedChunk
		err    error
	}

	retrievers := []domain.Retriever{u.dense, u.sparse}
	results := make([]retrieverResult, len(retrievers))

	searchStart := time.Now()
	g := new(errgroup.Group)
	for i, r := range retrievers {
		g.Go(func() error {
			rctx, cancel := context.WithTimeout(ctx, u.cfg.RetrieverTimeout)
			defer cancel()
			chunks, err := r.Retrieve(rctx, input.Query, input.SourceID, u.cfg.SearchLimit)
			results[i] = retrieverResult{name: r.Name(), chunks: chunks, err: err}
			// A retriever failure is absorbed, not propagated.
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var lists []retrieval.RankedList
	var failed []string
	for _, res := range results {
		if res.err != nil {
			u.logger.Warn("retriever_failed",
				slog.String("retriever", res.name),
				slog.String("error", res.err.Error()))
			failed = append(failed, res.name)
			continue
		}
		lists = append(lists, retrieval.RankedList{Retriever: res.name, Chunks: res.chunks})
	}

	if len(lists) == 0 {
		errs := make([]string, len(results))
		for i, res := range results {
			errs[i] = fmt.Sprintf("%s: %v", res.name, res.err)
		}
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrAllRetrieversUnavailable, strings.Join(errs, "; "))
	}

	u.logger.Info("hybrid_retrieval_completed",
		slog.Int("list_count", len(lists)),
		slog.Any("failed_retrievers", failed),
		slog.Int64("duration_ms", time.Since(searchStart).Milliseconds()))

	return lists, failed, nil
}

func (u *askUsecase) rerankConfig() retrieval.RerankConfig {
	return retrieval.RerankConfig{
		Enabled: u.cfg.RerankEnabled,
		TopN:    u.cfg.RerankTopN,
		Timeout: u.cfg.RerankTimeout,
	}
}

func (u *askUsecase) maxTokens(input AskInput) int {
	if input.MaxTokens > 0 {
		return input.MaxTokens
	}
	return u.cfg.MaxTokens
}

func (u *askUsecase) cacheKey(input AskInput) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", input.Query, input.SourceID, u.maxTokens(input))))
	return hex.EncodeToString(sum[:])
}

func (u *askUsecase) cachedAnswer(input AskInput) (*AskOutput, bool) {
	key := u.cacheKey(input)
	entry, ok := u.cache.Get(key)
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		u.cache.Remove(key)
		return nil, false
	}
	return entry.output, true
}

func (u *askUsecase) storeCache(input AskInput, output *AskOutput) {
	u.cache.Add(u.cacheKey(input), cacheEntry{
		output:    output,
		expiresAt: time.Now().Add(u.cfg.CacheTTL),
	})
}
