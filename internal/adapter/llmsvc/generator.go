package llmsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"docs-copilot/internal/domain"
)

const keepAliveSeconds = 600

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string         `json:"model"`
	Messages  []chatMessage  `json:"messages"`
	Stream    bool           `json:"stream"`
	KeepAlive int            `json:"keep_alive"`
	Options   map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Generator sends prompts to the model server's chat endpoint.
type Generator struct {
	BaseURL string
	Model   string
	Client  *http.Client
	logger  *slog.Logger
}

// NewGenerator constructs a generator using the provided endpoint and model name.
// The client timeout covers an entire streamed response, so it is generous.
func NewGenerator(baseURL, model string, logger *slog.Logger) *Generator {
	return &Generator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

func (g *Generator) chatRequest(ctx context.Context, prompt string, maxTokens int, stream bool) (*http.Request, error) {
	reqBody := chatRequest{
		Model:     g.Model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		Stream:    stream,
		KeepAlive: keepAliveSeconds,
		Options: map[string]any{
			"temperature": 0.2,
		},
	}
	if maxTokens > 0 {
		reqBody.Options["num_predict"] = maxTokens
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", g.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Generate sends the prompt and returns the complete assistant message.
func (g *Generator) Generate(ctx context.Context, prompt string, maxTokens int) (*domain.LLMResponse, error) {
	req, err := g.chatRequest(ctx, prompt, maxTokens, false)
	if err != nil {
		return nil, err
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call generation endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("generation endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %w", err)
	}

	return &domain.LLMResponse{
		Text: strings.TrimSpace(chatResp.Message.Content),
		Done: chatResp.Done,
	}, nil
}

// GenerateStream sends the prompt with streaming enabled and relays the
// NDJSON fragments as they arrive. Both returned channels are closed when
// the stream ends; cancelling ctx aborts the response body read.
func (g *Generator) GenerateStream(ctx context.Context, prompt string, maxTokens int) (<-chan domain.LLMStreamChunk, <-chan error, error) {
	req, err := g.chatRequest(ctx, prompt, maxTokens, true)
	if err != nil {
		return nil, nil, err
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to call generation endpoint: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("generation endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	chunkCh := make(chan domain.LLMStreamChunk)
	errCh := make(chan error, 1)

	go func() {
		defer close(chunkCh)
		defer close(errCh)
		defer func() { _ = resp.Body.Close() }()

		decoder := json.NewDecoder(resp.Body)
		for {
			var line chatResponse
			if err := decoder.Decode(&line); err != nil {
				if errors.Is(err, io.EOF) || ctx.Err() != nil {
					return
				}
				errCh <- fmt.Errorf("failed to decode stream line: %w", err)
				return
			}

			chunk := domain.LLMStreamChunk{
				Content: line.Message.Content,
				Done:    line.Done,
			}
			select {
			case <-ctx.Done():
				return
			case chunkCh <- chunk:
			}
			if line.Done {
				return
			}
		}
	}()

	return chunkCh, errCh, nil
}

// ModelName returns the wrapped model name.
func (g *Generator) ModelName() string {
	return g.Model
}

var _ domain.LLMClient = (*Generator)(nil)
