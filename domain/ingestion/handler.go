package ingestion

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/emergent-company/vocab/internal/jobs"
	"github.com/emergent-company/vocab/pkg/apperror"
)

// Handler exposes the edge ingestion HTTP surface
type Handler struct {
	service *Service
	worker  *jobs.Worker
}

// NewHandler creates the ingestion handler
func NewHandler(service *Service, worker *jobs.Worker) *Handler {
	return &Handler{service: service, worker: worker}
}

// EnqueueRequest is the payload for submitting an edge
type EnqueueRequest struct {
	Label      string  `json:"label"`
	SrcID      string  `json:"srcId"`
	DstID      string  `json:"dstId"`
	Confidence float32 `json:"confidence"`
	Priority   int     `json:"priority"`
}

// EnqueueEdge accepts an extracted edge for asynchronous admission
func (h *Handler) EnqueueEdge(c echo.Context) error {
	var req EnqueueRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	srcID, err := uuid.Parse(req.SrcID)
	if err != nil {
		return apperror.NewBadRequest("srcId must be a valid UUID")
	}
	dstID, err := uuid.Parse(req.DstID)
	if err != nil {
		return apperror.NewBadRequest("dstId must be a valid UUID")
	}

	job := &EdgeIngestJob{
		Label:      req.Label,
		SrcID:      srcID,
		DstID:      dstID,
		Confidence: req.Confidence,
		Priority:   req.Priority,
	}
	if err := h.service.Enqueue(c.Request().Context(), job); err != nil {
		return err
	}

	return c.JSON(http.StatusAccepted, map[string]any{
		"jobId":  job.ID,
		"status": "pending",
	})
}

// GetStats reports queue depth and worker throughput
func (h *Handler) GetStats(c echo.Context) error {
	stats, err := h.service.Queue().GetStats(c.Request().Context())
	if err != nil {
		return apperror.NewInternal("failed to load queue stats", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"queue":  stats,
		"worker": h.worker.Metrics(),
	})
}

// GetJob returns a single ingest job with its admission result
func (h *Handler) GetJob(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.NewBadRequest("id must be a valid UUID")
	}

	job, err := h.service.GetJob(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if job == nil {
		return apperror.NewNotFound("ingest job", id.String())
	}
	return c.JSON(http.StatusOK, job)
}
