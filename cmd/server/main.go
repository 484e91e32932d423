// Package main provides the entry point for the vocabulary engine API server
package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/emergent-company/vocab/domain/graph"
	"github.com/emergent-company/vocab/domain/health"
	"github.com/emergent-company/vocab/domain/ingestion"
	"github.com/emergent-company/vocab/domain/scheduler"
	"github.com/emergent-company/vocab/domain/vocabulary"
	"github.com/emergent-company/vocab/internal/config"
	"github.com/emergent-company/vocab/internal/database"
	"github.com/emergent-company/vocab/internal/migrate"
	"github.com/emergent-company/vocab/internal/server"
	"github.com/emergent-company/vocab/pkg/embeddings"
	"github.com/emergent-company/vocab/pkg/llm"
	"github.com/emergent-company/vocab/pkg/logger"
)

func main() {
	// Load .env if present (for local development). Load() won't
	// overwrite existing vars, Overload() will.
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	fx.New(
		// Logging
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure modules
		logger.Module,
		config.Module,
		database.Module,

		// Migrations run before the server starts accepting traffic:
		// lifecycle hooks fire in registration order
		migrate.Module,
		fx.Invoke(runMigrations),

		server.Module,

		// Provider clients
		embeddings.Module,
		llm.Module,

		// Domain modules
		health.Module,
		graph.Module,
		vocabulary.Module,
		ingestion.Module,

		// Scheduler module (cron-based maintenance)
		scheduler.Module,
	).Run()
}

func runMigrations(lc fx.Lifecycle, m *migrate.Migrator) {
	lc.Append(fx.Hook{
		OnStart: m.Up,
	})
}
