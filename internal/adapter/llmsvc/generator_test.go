package llmsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"docs-copilot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, false, req["stream"])
		assert.Equal(t, "test-model", req["model"])
		opts := req["options"].(map[string]any)
		assert.Equal(t, float64(128), opts["num_predict"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, `{"message":{"content":" a full answer "},"done":true}`)
	}))
	defer server.Close()

	gen := NewGenerator(server.URL, "test-model", testLogger())
	resp, err := gen.Generate(context.Background(), "prompt", 128)
	require.NoError(t, err)
	assert.Equal(t, "a full answer", resp.Text)
	assert.True(t, resp.Done)
}

func TestGenerator_Generate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("model loading"))
	}))
	defer server.Close()

	gen := NewGenerator(server.URL, "test-model", testLogger())
	_, err := gen.Generate(context.Background(), "prompt", 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestGenerator_GenerateStream_RelaysFragments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, true, req["stream"])

		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"message":{"content":"Hello"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":" world"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":""},"done":true}`)
	}))
	defer server.Close()

	gen := NewGenerator(server.URL, "test-model", testLogger())
	chunkCh, errCh, err := gen.GenerateStream(context.Background(), "prompt", 0)
	require.NoError(t, err)

	var b strings.Builder
	var sawDone bool
	for chunk := range chunkCh {
		b.WriteString(chunk.Content)
		if chunk.Done {
			sawDone = true
		}
	}
	assert.Equal(t, "Hello world", b.String())
	assert.True(t, sawDone)
	assert.NoError(t, <-errCh)
}

func TestGenerator_GenerateStream_MalformedLine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"message":{"content":"ok"},"done":false}`)
		fmt.Fprintln(w, `not json`)
	}))
	defer server.Close()

	gen := NewGenerator(server.URL, "test-model", testLogger())
	chunkCh, errCh, err := gen.GenerateStream(context.Background(), "prompt", 0)
	require.NoError(t, err)

	var fragments []domain.LLMStreamChunk
	for chunk := range chunkCh {
		fragments = append(fragments, chunk)
	}
	require.Len(t, fragments, 1)
	streamErr := <-errCh
	require.Error(t, streamErr)
	assert.Contains(t, streamErr.Error(), "failed to decode stream line")
}

func TestGenerator_GenerateStream_SetupError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	gen := NewGenerator(server.URL, "test-model", testLogger())
	_, _, err := gen.GenerateStream(context.Background(), "prompt", 0)
	assert.Error(t, err)
}

func TestGenerator_GenerateStream_ContextCancelStops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "application/x-ndjson")
		for i := 0; i < 100; i++ {
			fmt.Fprintln(w, `{"message":{"content":"x"},"done":false}`)
			flusher.Flush()
			time.Sleep(5 * time.Millisecond)
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := NewGenerator(server.URL, "test-model", testLogger())
	chunkCh, errCh, err := gen.GenerateStream(ctx, "prompt", 0)
	require.NoError(t, err)

	received := 0
	for chunk := range chunkCh {
		_ = chunk
		received++
		if received == 3 {
			cancel()
		}
	}
	assert.Less(t, received, 100)
	assert.NoError(t, <-errCh)
}
