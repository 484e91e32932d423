package vocabulary

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the vocabulary operator surface
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/vocabulary")

	g.GET("", h.ListTypes)
	g.GET("/stats", h.GetStats)
	g.GET("/categories", h.ListCategories)
	g.GET("/synonyms", h.ListSynonyms)
	g.GET("/history", h.GetHistory)

	g.POST("/admit", h.AdmitEdge)
	g.POST("/prune", h.TriggerPruning)
	g.POST("/restore", h.RestoreType)
	g.POST("/unmerge", h.Unmerge)

	g.GET("/recommendations", h.ListRecommendations)
	g.POST("/recommendations/:id/approve", h.ApproveRecommendation)
	g.POST("/recommendations/:id/reject", h.RejectRecommendation)

	g.GET("/proposals", h.ListProposals)
	g.POST("/proposals/:id/approve", h.ApproveProposal)
	g.POST("/proposals/:id/reject", h.RejectProposal)

	g.GET("/preferences", h.ListPreferences)
	g.POST("/preferences", h.AddPreference)

	g.GET("/config", h.GetConfig)
	g.PUT("/config", h.UpdateConfig)
}
