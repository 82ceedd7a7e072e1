package usecase

import (
	"fmt"
	"strings"

	"docs-copilot/internal/domain"
	"docs-copilot/internal/usecase/retrieval"
)

const groundedSystemPrompt = `You are an AI assistant that answers questions using the provided context.
Use ONLY the context to answer. If the context does not contain the answer, say "I don't know based on the provided documents."
Cite relevant points in your own words; do not invent sources.`

const fallbackSystemPrompt = `You are a helpful assistant. No documents were found, so answer from your general knowledge.`

// buildContext assembles the generation context and the citation list
// from reranked hits, stopping once the character budget is exhausted.
// Sources mirror the chunks that made it into the context, so the
// caller is never shown a citation the model did not see.
func buildContext(hits []retrieval.RerankedResult, maxChars int) (string, []domain.SourceCitation) {
	var parts []string
	var sources []domain.SourceCitation

	currentLen := 0
	for _, hit := range hits {
		text := hit.Fused.Chunk.Text
		if text == "" {
			continue
		}
		if currentLen+len(text)+2 > maxChars {
			break
		}
		currentLen += len(text) + 2
		parts = append(parts, text)
		sources = append(sources, domain.SourceCitation{
			SourceID:   hit.Fused.Chunk.SourceID,
			ChunkIndex: hit.Fused.Chunk.ChunkIndex,
			Score:      hit.RelevanceScore,
			Text:       text,
		})
	}

	return strings.Join(parts, "\n\n"), sources
}

func buildGroundedPrompt(question, contextText string) string {
	return fmt.Sprintf("%s\n\nQuestion:\n%s\n\nContext:\n%s", groundedSystemPrompt, question, contextText)
}

func buildFallbackPrompt(question string) string {
	return fmt.Sprintf("%s\n\nQuestion:\n%s", fallbackSystemPrompt, question)
}
