package docs_http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"docs-copilot/internal/usecase"

	"github.com/labstack/echo/v4"
)

// sseWriter emits Server-Sent Events and flushes after each one so
// fragments reach the client as they are produced, not when the
// response buffer fills.
type sseWriter struct {
	resp *echo.Response
}

func newSSEWriter(c echo.Context) *sseWriter {
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	// Tell reverse proxies not to buffer the stream.
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)
	return &sseWriter{resp: resp}
}

func (w *sseWriter) write(kind usecase.StreamEventKind, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", kind, err)
	}
	if _, err := fmt.Fprintf(w.resp, "event: %s\ndata: %s\n\n", kind, data); err != nil {
		return fmt.Errorf("failed to write %s event: %w", kind, err)
	}
	w.resp.Flush()
	return nil
}

// AskStream answers a question as a Server-Sent Events stream.
// (POST /v1/ask/stream)
func (h *Handler) AskStream(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	ctx := c.Request().Context()
	events := h.askUsecase.Stream(ctx, req.toInput())

	writer := newSSEWriter(c)
	for event := range events {
		if err := writer.write(event.Kind, event.Payload); err != nil {
			// The client is gone; drain via ctx cancellation upstream.
			return nil
		}
	}
	return nil
}
