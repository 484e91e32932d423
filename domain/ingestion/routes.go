package ingestion

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the edge ingestion endpoints
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/ingest")

	g.POST("/edges", h.EnqueueEdge)
	g.GET("/jobs/:id", h.GetJob)
	g.GET("/stats", h.GetStats)
}
