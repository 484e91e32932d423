package ingestion

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/emergent-company/vocab/domain/vocabulary"
	"github.com/emergent-company/vocab/internal/config"
	"github.com/emergent-company/vocab/internal/jobs"
	"github.com/emergent-company/vocab/pkg/apperror"
	"github.com/emergent-company/vocab/pkg/logger"
)

// Service enqueues extracted edges and drives them through admission
type Service struct {
	db      bun.IDB
	queue   *jobs.Queue
	manager *vocabulary.Manager
	log     *slog.Logger
	batch   int
}

// NewService creates the edge ingestion service
func NewService(db bun.IDB, cfg *config.Config, manager *vocabulary.Manager, log *slog.Logger) *Service {
	queue := jobs.NewQueue(db, jobs.QueueConfig{
		TableName:   "kb.edge_ingest_jobs",
		MaxAttempts: cfg.Ingestion.MaxAttempts,
		BatchSize:   cfg.Ingestion.WorkerBatchSize,
	}, log.With(logger.Scope("edge-queue")))

	return &Service{
		db:      db,
		queue:   queue,
		manager: manager,
		log:     log.With(logger.Scope("ingestion")),
		batch:   cfg.Ingestion.WorkerBatchSize,
	}
}

// Queue exposes the underlying job queue (stats, stale recovery)
func (s *Service) Queue() *jobs.Queue {
	return s.queue
}

// Enqueue persists an edge for asynchronous admission
func (s *Service) Enqueue(ctx context.Context, job *EdgeIngestJob) error {
	if _, err := vocabulary.ValidateLabel(job.Label); err != nil {
		// Fail fast on malformed labels instead of burning queue retries
		return err
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Confidence <= 0 {
		job.Confidence = 1
	}
	if _, err := s.db.NewInsert().Model(job).Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue edge: %w", err)
	}
	return nil
}

// GetJob loads a single ingest job, nil when it does not exist
func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*EdgeIngestJob, error) {
	job := new(EdgeIngestJob)
	err := s.db.NewSelect().Model(job).Where("eij.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	return job, nil
}

// ProcessBatch claims pending jobs and admits each edge. One bad edge
// never aborts the batch.
func (s *Service) ProcessBatch(ctx context.Context) error {
	ids, err := s.queue.Dequeue(ctx, s.batch)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := s.processOne(ctx, id); err != nil {
			s.log.Error("edge job failed", logger.Error(err), slog.String("job_id", id))
		}
	}
	return nil
}

func (s *Service) processOne(ctx context.Context, id string) error {
	job := new(EdgeIngestJob)
	if err := s.db.NewSelect().Model(job).Where("eij.id = ?", id).Scan(ctx); err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}

	result, err := s.manager.AdmitEdge(ctx, vocabulary.AdmitEdgeRequest{
		Label:      job.Label,
		SrcID:      job.SrcID,
		DstID:      job.DstID,
		Confidence: job.Confidence,
	})
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) && appErr.Code == "validation_error" {
			// Rejection is a terminal outcome, not a retryable failure
			s.recordResult(ctx, job.ID, map[string]any{"rejected": appErr.Message})
			return s.queue.MarkCompleted(ctx, id)
		}
		// Capacity, paused-expansion, and provider errors are
		// retryable-later conditions
		return s.queue.MarkFailed(ctx, id, job.AttemptCount, err.Error())
	}

	s.recordResult(ctx, job.ID, map[string]any{
		"edgeId":          result.EdgeID.String(),
		"type":            result.Type.Name,
		"created":         result.Created,
		"reversedWarning": result.ReversedWarning,
	})
	return s.queue.MarkCompleted(ctx, id)
}

func (s *Service) recordResult(ctx context.Context, id uuid.UUID, result map[string]any) {
	_, err := s.db.NewUpdate().
		Model((*EdgeIngestJob)(nil)).
		Set("result = ?", result).
		Set("updated_at = now()").
		Where("eij.id = ?", id).
		Exec(ctx)
	if err != nil {
		s.log.Error("failed to record job result", logger.Error(err))
	}
}
