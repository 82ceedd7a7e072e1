package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docs-copilot/internal/domain"
	"docs-copilot/internal/usecase/retrieval"

	"github.com/google/uuid"
)

// Stream runs the answer pipeline and relays generation fragments to
// the caller incrementally. The sources event is emitted exactly once,
// before the first content fragment; concatenating every content
// payload reproduces the answer delivered in the terminal done event.
//
// A caller disconnect (ctx cancellation) stops forwarding and releases
// the upstream generation call; it is cleanup, not an error. An
// upstream failure after the first fragment ends the stream as a
// truncated completion instead of injecting an error into content the
// caller has already consumed.
func (u *askUsecase) Stream(ctx context.Context, input AskInput) <-chan StreamEvent {
	events := make(chan StreamEvent, 4)
	go func() {
		defer close(events)

		query := strings.TrimSpace(input.Query)
		if query == "" {
			u.send(ctx, events, StreamEvent{Kind: StreamEventKindError, Payload: ErrEmptyQuery.Error()})
			return
		}
		input.Query = query

		if out, ok := u.cachedAnswer(input); ok {
			u.logger.Info("answer_cache_hit", slog.String("query_id", out.QueryID))
			u.replayCached(ctx, events, out)
			return
		}

		queryID := uuid.NewString()
		st := newPipelineTracker(queryID, u.logger)

		st.advance(StateRetrieving)
		lists, _, err := u.retrieveLists(ctx, input)
		if err != nil {
			st.advance(StateErrored)
			u.send(ctx, events, StreamEvent{Kind: StreamEventKindError, Payload: err.Error()})
			return
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

		meta := StreamSources{
			QueryID:        queryID,
			Sources:        sources,
			UsedRAG:        usedRAG,
			DegradedRerank: outcome.Degraded,
		}
		if !u.send(ctx, events, StreamEvent{Kind: StreamEventKindSources, Payload: meta}) {
			return
		}

		prompt := buildFallbackPrompt(query)
		if usedRAG {
			prompt = buildGroundedPrompt(query, contextText)
		}

		st.advance(StateGenerating)
		chunkCh, errCh, err := u.llm.GenerateStream(ctx, prompt, u.maxTokens(input))
		if err != nil {
			st.advance(StateErrored)
			u.send(ctx, events, StreamEvent{
				Kind:    StreamEventKindError,
				Payload: fmt.Sprintf("%v: %v", domain.ErrGenerationUnavailable, err),
			})
			return
		}

		var builder strings.Builder
		delivered := false
		truncated := false
		chunkStream, errStream := chunkCh, errCh

		for chunkStream != nil || errStream != nil {
			select {
			case <-ctx.Done():
				// Caller disconnected. The shared ctx has already
				// released the upstream call; nothing left to deliver.
				u.logger.Info("client_disconnected",
					slog.String("query_id", queryID),
					slog.Bool("partial_answer", delivered))
				return
			case chunk, ok := <-chunkStream:
				if !ok {
					chunkStream = nil
					continue
				}
				if chunk.Content != "" {
					builder.WriteString(chunk.Content)
					if !u.send(ctx, events, StreamEvent{Kind: StreamEventKindContent, Payload: chunk.Content}) {
						return
					}
					delivered = true
				}
				if chunk.Done {
					chunkStream = nil
					errStream = nil
				}
			case streamErr, ok := <-errStream:
				if !ok {
					errStream = nil
					continue
				}
				if !delivered {
					st.advance(StateErrored)
					u.send(ctx, events, StreamEvent{
						Kind:    StreamEventKindError,
						Payload: fmt.Sprintf("%v: %v", domain.ErrGenerationUnavailable, streamErr),
					})
					return
				}
				// Fragments are already with the caller; end early as a
				// truncated completion rather than erroring mid-stream.
				u.logger.Warn("generation_stream_truncated",
					slog.String("query_id", queryID),
					slog.String("error", streamErr.Error()))
				truncated = true
				chunkStream = nil
				errStream = nil
			}
		}

		st.advance(StateCompleted)
		answer := builder.String()
		u.send(ctx, events, StreamEvent{Kind: StreamEventKindDone, Payload: StreamDone{
			QueryID:   queryID,
			Answer:    answer,
			Truncated: truncated,
		}})

		u.logger.Info("ask_stream_completed",
			slog.String("query_id", queryID),
			slog.Bool("used_rag", usedRAG),
			slog.Bool("truncated", truncated),
			slog.Int("answer_chars", len(answer)))

		if !truncated && strings.TrimSpace(answer) != "" {
			u.storeCache(input, &AskOutput{
				QueryID:        queryID,
				Answer:         answer,
				Sources:        sources,
				UsedRAG:        usedRAG,
				DegradedRerank: outcome.Degraded,
			})
		}
	}()
	return events
}

// replayCached emits a cached answer as a short simulated stream.
func (u *askUsecase) replayCached(ctx context.Context, events chan<- StreamEvent, out *AskOutput) {
	sources := out.Sources
	if sources == nil {
		sources = []domain.SourceCitation{}
	}
	if !u.send(ctx, events, StreamEvent{Kind: StreamEventKindSources, Payload: StreamSources{
		QueryID:        out.QueryID,
		Sources:        sources,
		UsedRAG:        out.UsedRAG,
		DegradedRerank: out.DegradedRerank,
	}}) {
		return
	}
	if !u.send(ctx, events, StreamEvent{Kind: StreamEventKindContent, Payload: out.Answer}) {
		return
	}
	u.send(ctx, events, StreamEvent{Kind: StreamEventKindDone, Payload: StreamDone{
		QueryID: out.QueryID,
		Answer:  out.Answer,
	}})
}

func (u *askUsecase) send(ctx context.Context, events chan<- StreamEvent, event StreamEvent) bool {
	select {
	case <-ctx.Done():
		return false
	case events <- event:
		return true
	}
}
