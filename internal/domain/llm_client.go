package domain

import "context"

// LLMResponse carries a complete generation and whether it finished.
type LLMResponse struct {
	Text string
	Done bool
}

// LLMStreamChunk is one incrementally delivered fragment of a
// generation. Concatenating Content of every chunk in arrival order
// reconstructs the full answer text. Done marks the end-of-stream
// signal; no further chunks follow it.
type LLMStreamChunk struct {
	Content string
	Done    bool
}

// LLMClient sends prompts to a generation service.
type LLMClient interface {
	// Generate blocks until the full response is available.
	Generate(ctx context.Context, prompt string, maxTokens int) (*LLMResponse, error)
	// GenerateStream starts a streaming generation. Fragments arrive on
	// the first channel in emission order; a transport failure after
	// setup arrives on the second. Both channels are closed when the
	// stream ends. Cancelling ctx releases the upstream call.
	GenerateStream(ctx context.Context, prompt string, maxTokens int) (<-chan LLMStreamChunk, <-chan error, error)
	// ModelName returns the model identifier for logging.
	ModelName() string
}
