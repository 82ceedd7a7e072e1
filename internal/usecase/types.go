package usecase

import (
	"context"
	"errors"

	"docs-copilot/internal/domain"
	"docs-copilot/internal/usecase/retrieval"
)

// ErrEmptyQuery rejects requests whose query is blank after trimming.
var ErrEmptyQuery = errors.New("query is required")

// AskInput carries the parameters of one question over the corpus.
type AskInput struct {
	Query string
	// SourceID optionally restricts retrieval to one source document.
	SourceID string
	// MaxTokens overrides the configured generation budget when > 0.
	MaxTokens int
}

// AskOutput is the normalized non-streaming answer.
type AskOutput struct {
	QueryID string                  `json:"query_id"`
	Answer  string                  `json:"answer"`
	Sources []domain.SourceCitation `json:"sources"`
	// UsedRAG is false when retrieval produced nothing and the model
	// answered from general knowledge.
	UsedRAG bool `json:"used_rag"`
	// DegradedRerank is true when the cross-encoder stage failed open.
	DegradedRerank bool `json:"degraded_rerank"`
	// Truncated is true when generation ended before its done signal.
	Truncated bool `json:"truncated,omitempty"`
}

// RetrieveOutput is the retrieval-only preview result (no generation).
type RetrieveOutput struct {
	QueryID string
	Hits    []retrieval.RerankedResult
	// DegradedRetrieval is true when one retriever failed and fusion
	// ran on the surviving list alone.
	DegradedRetrieval bool
	DegradedRerank    bool
}

// AskUsecase answers questions over the document corpus.
type AskUsecase interface {
	Execute(ctx context.Context, input AskInput) (*AskOutput, error)
	Stream(ctx context.Context, input AskInput) <-chan StreamEvent
	Retrieve(ctx context.Context, input AskInput) (*RetrieveOutput, error)
}

type StreamEventKind string

const (
	StreamEventKindSources StreamEventKind = "sources"
	StreamEventKindContent StreamEventKind = "content"
	StreamEventKindDone    StreamEventKind = "done"
	StreamEventKindError   StreamEventKind = "error"
)

// StreamEvent is one caller-facing event. Per query the stream carries
// exactly one sources event, then zero or more content events whose
// concatenated payloads form the full answer, then one terminal done
// or error event.
type StreamEvent struct {
	Kind    StreamEventKind
	Payload any
}

// StreamSources is the payload of the sources event.
type StreamSources struct {
	QueryID        string                  `json:"query_id"`
	Sources        []domain.SourceCitation `json:"sources"`
	UsedRAG        bool                    `json:"used_rag"`
	DegradedRerank bool                    `json:"degraded_rerank"`
}

// StreamDone is the payload of the terminal done event.
type StreamDone struct {
	QueryID   string `json:"query_id"`
	Answer    string `json:"answer"`
	Truncated bool   `json:"truncated,omitempty"`
}
