package ingestion

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/emergent-company/vocab/internal/config"
	"github.com/emergent-company/vocab/internal/jobs"
	"github.com/emergent-company/vocab/pkg/logger"
)

// Module provides the edge ingestion pipeline
var Module = fx.Module("ingestion",
	fx.Provide(
		NewService,
		NewIngestWorker,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(runIngestWorker),
)

// NewIngestWorker creates the polling worker that drains the edge queue
func NewIngestWorker(service *Service, cfg *config.Config, log *slog.Logger) *jobs.Worker {
	return jobs.NewWorker(jobs.WorkerConfig{
		Name:                "edge-ingest",
		PollInterval:        cfg.Ingestion.WorkerInterval(),
		BatchSize:           cfg.Ingestion.WorkerBatchSize,
		RecoverStaleOnStart: true,
	}, log, service.ProcessBatch)
}

// runIngestWorker ties the worker to the application lifecycle. Stale
// jobs left in 'processing' by a crashed instance are recovered before
// polling begins.
func runIngestWorker(lc fx.Lifecycle, worker *jobs.Worker, service *Service, log *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			recovered, err := service.Queue().RecoverStaleJobs(ctx, 10)
			if err != nil {
				log.Warn("stale job recovery failed", logger.Error(err))
			} else if recovered > 0 {
				log.Info("recovered stale ingest jobs", slog.Int("count", recovered))
			}
			return worker.Start(context.Background())
		},
		OnStop: func(ctx context.Context) error {
			return worker.Stop(ctx)
		},
	})
}
