package docs_http

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires the handler onto the echo instance. The rate
// limiter guards only the endpoints that reach the model server.
func RegisterRoutes(e *echo.Echo, h *Handler, askLimiter echo.MiddlewareFunc) {
	e.GET("/healthz", h.Health)
	e.GET("/readyz", h.Ready)

	v1 := e.Group("/v1")
	v1.POST("/ask", h.Ask, askLimiter)
	v1.POST("/ask/stream", h.AskStream, askLimiter)
	v1.POST("/search", h.Search)
	v1.GET("/documents", h.ListDocuments)
	v1.DELETE("/documents/:source_id", h.DeleteDocument)
}
