package domain

// RetrievedChunk is a single scored chunk produced by a retriever.
// Instances are immutable once returned; downstream stages build new
// values instead of mutating them.
type RetrievedChunk struct {
	// ID is the chunk identifier, unique within the corpus.
	ID string
	// Text is the chunk content.
	Text string
	// SourceID identifies the originating document (e.g. filename).
	SourceID string
	// ChunkIndex is the chunk position within its source document.
	ChunkIndex int
	// Score is on the retriever's own scale and is not comparable
	// across retrievers.
	Score float64
}

// SourceCitation is one entry of the source list delivered to the
// caller alongside a generated answer.
type SourceCitation struct {
	SourceID   string  `json:"source_id"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}
