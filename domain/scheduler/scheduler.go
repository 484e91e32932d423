// Package scheduler runs periodic maintenance for the vocabulary engine.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/emergent-company/vocab/domain/vocabulary"
	"github.com/emergent-company/vocab/internal/config"
	"github.com/emergent-company/vocab/pkg/logger"
)

// Scheduler owns the cron runner for background maintenance jobs
type Scheduler struct {
	cron    *cron.Cron
	manager *vocabulary.Manager
	log     *slog.Logger
}

// NewScheduler creates the scheduler and registers the synonym sweep.
// Schedules use six fields (seconds first).
func NewScheduler(cfg *config.Config, manager *vocabulary.Manager, log *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		manager: manager,
		log:     log.With(logger.Scope("scheduler")),
	}

	_, err := s.cron.AddFunc(cfg.Ingestion.SynonymSweepSchedule, s.runSynonymSweep)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins the cron runner
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron runner and waits for running jobs
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runSynonymSweep() {
	candidates, err := s.manager.SynonymSweep(context.Background())
	if err != nil {
		s.log.Error("synonym sweep failed", logger.Error(err))
		return
	}
	s.log.Info("synonym sweep finished", slog.Int("candidates", len(candidates)))
}
