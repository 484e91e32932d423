package vocabulary

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/emergent-company/vocab/pkg/apperror"
)

// Handler exposes the vocabulary operator surface over HTTP
type Handler struct {
	manager *Manager
	repo    *Repository
}

// NewHandler creates a new vocabulary handler
func NewHandler(manager *Manager, repo *Repository) *Handler {
	return &Handler{manager: manager, repo: repo}
}

// ListTypes handles GET /api/vocabulary
func (h *Handler) ListTypes(c echo.Context) error {
	types, err := h.repo.GetActiveTypes(c.Request().Context())
	if err != nil {
		return apperror.NewInternal("failed to list vocabulary", err)
	}
	return c.JSON(http.StatusOK, types)
}

// GetStats handles GET /api/vocabulary/stats
func (h *Handler) GetStats(c echo.Context) error {
	ctx := c.Request().Context()

	size, err := h.repo.CountActiveTypes(ctx)
	if err != nil {
		return apperror.NewInternal("failed to count types", err)
	}
	categories, err := h.repo.CountActiveCategories(ctx)
	if err != nil {
		return apperror.NewInternal("failed to count categories", err)
	}

	settings := h.manager.Settings()
	cfg := settings.Current()
	curve := settings.Curve()
	pressure := curve.Pressure(size)
	blocked := curve.Blocked(size)

	return c.JSON(http.StatusOK, VocabularyStats{
		Size:          size,
		Pressure:      pressure,
		Zone:          ZoneName(pressure, blocked),
		Min:           cfg.Min,
		Max:           cfg.Max,
		HardLimit:     cfg.HardLimit,
		CategoryCount: categories,
		PruningMode:   cfg.PruningMode,
		Blocked:       blocked,
	})
}

// ListCategories handles GET /api/vocabulary/categories
func (h *Handler) ListCategories(c echo.Context) error {
	stats, err := h.repo.GetCategoryStats(c.Request().Context())
	if err != nil {
		return apperror.NewInternal("failed to get category stats", err)
	}
	return c.JSON(http.StatusOK, stats)
}

// AdmitEdge handles POST /api/vocabulary/admit
func (h *Handler) AdmitEdge(c echo.Context) error {
	var req AdmitRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.Label == "" {
		return apperror.NewBadRequest("label is required")
	}

	srcID, err := uuid.Parse(req.SrcID)
	if err != nil {
		return apperror.NewBadRequest("srcId must be a UUID")
	}
	dstID, err := uuid.Parse(req.DstID)
	if err != nil {
		return apperror.NewBadRequest("dstId must be a UUID")
	}
	if req.Confidence <= 0 {
		req.Confidence = 1
	}

	result, err := h.manager.AdmitEdge(c.Request().Context(), AdmitEdgeRequest{
		Label:      req.Label,
		SrcID:      srcID,
		DstID:      dstID,
		Confidence: req.Confidence,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, result)
}

// ListRecommendations handles GET /api/vocabulary/recommendations
func (h *Handler) ListRecommendations(c echo.Context) error {
	recs, err := h.repo.ListRecommendations(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return apperror.NewInternal("failed to list recommendations", err)
	}
	return c.JSON(http.StatusOK, recs)
}

// ApproveRecommendation handles POST /api/vocabulary/recommendations/:id/approve
func (h *Handler) ApproveRecommendation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.NewBadRequest("id must be a UUID")
	}

	result, err := h.manager.ApproveRecommendation(c.Request().Context(), id, "operator")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// RejectRecommendation handles POST /api/vocabulary/recommendations/:id/reject
func (h *Handler) RejectRecommendation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.NewBadRequest("id must be a UUID")
	}

	var req RejectRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	if err := h.manager.RejectRecommendation(c.Request().Context(), id, "operator", req.Reason); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListProposals handles GET /api/vocabulary/proposals
func (h *Handler) ListProposals(c echo.Context) error {
	proposals, err := h.repo.ListCategoryProposals(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return apperror.NewInternal("failed to list proposals", err)
	}
	return c.JSON(http.StatusOK, proposals)
}

// ApproveProposal handles POST /api/vocabulary/proposals/:id/approve
func (h *Handler) ApproveProposal(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.NewBadRequest("id must be a UUID")
	}
	if err := h.manager.ResolveCategoryProposal(c.Request().Context(), id, true); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RejectProposal handles POST /api/vocabulary/proposals/:id/reject
func (h *Handler) RejectProposal(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.NewBadRequest("id must be a UUID")
	}
	if err := h.manager.ResolveCategoryProposal(c.Request().Context(), id, false); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RestoreType handles POST /api/vocabulary/restore
func (h *Handler) RestoreType(c echo.Context) error {
	var req RestoreRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.Type == "" {
		return apperror.NewBadRequest("type is required")
	}

	entry, err := h.manager.RestoreType(c.Request().Context(), req.Type, PerformerUser)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

// Unmerge handles POST /api/vocabulary/unmerge
func (h *Handler) Unmerge(c echo.Context) error {
	var req UnmergeRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.Source == "" {
		return apperror.NewBadRequest("source is required")
	}

	entry, err := h.manager.Unmerge(c.Request().Context(), req.Source, PerformerUser)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

// GetHistory handles GET /api/vocabulary/history
func (h *Handler) GetHistory(c echo.Context) error {
	limit, offset := intParam(c, "limit", 100), intParam(c, "offset", 0)
	entries, err := h.manager.Ledger().List(c.Request().Context(), limit, offset)
	if err != nil {
		return apperror.NewInternal("failed to list history", err)
	}
	return c.JSON(http.StatusOK, entries)
}

// GetConfig handles GET /api/vocabulary/config
func (h *Handler) GetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, h.manager.Settings().Current())
}

// UpdateConfig handles PUT /api/vocabulary/config
func (h *Handler) UpdateConfig(c echo.Context) error {
	var update ConfigUpdate
	if err := c.Bind(&update); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	cfg, err := h.manager.Settings().Update(update)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cfg)
}

// TriggerPruning handles POST /api/vocabulary/prune
func (h *Handler) TriggerPruning(c echo.Context) error {
	rec, err := h.manager.RunPruningCycle(c.Request().Context())
	if err != nil {
		return err
	}
	if rec == nil {
		return c.NoContent(http.StatusAccepted)
	}
	return c.JSON(http.StatusOK, rec)
}

// ListSynonyms handles GET /api/vocabulary/synonyms
func (h *Handler) ListSynonyms(c echo.Context) error {
	candidates, err := h.manager.SynonymSweep(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, candidates)
}

// ListPreferences handles GET /api/vocabulary/preferences
func (h *Handler) ListPreferences(c echo.Context) error {
	prefs, err := h.repo.ListActivePreferences(c.Request().Context())
	if err != nil {
		return apperror.NewInternal("failed to list preferences", err)
	}
	return c.JSON(http.StatusOK, prefs)
}

// AddPreference handles POST /api/vocabulary/preferences
func (h *Handler) AddPreference(c echo.Context) error {
	var req PreferenceRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.Rule == "" {
		return apperror.NewBadRequest("rule is required")
	}

	pref := &DecisionPreference{Rule: req.Rule, CreatedBy: "operator"}
	if err := h.repo.AddPreference(c.Request().Context(), pref); err != nil {
		return apperror.NewInternal("failed to add preference", err)
	}
	return c.JSON(http.StatusCreated, pref)
}

func intParam(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
