package vocabulary

import (
	"context"

	"go.uber.org/fx"

	"github.com/emergent-company/vocab/internal/config"
	"github.com/emergent-company/vocab/pkg/embeddings"
	"github.com/emergent-company/vocab/pkg/llm"
)

// Module provides the vocabulary engine
var Module = fx.Module("vocabulary",
	fx.Provide(
		NewRepository,
		NewMetrics,
		NewExecutor,
		NewLedger,
		NewGate,
		NewManager,
		NewAITLWorker,
		NewHandler,
		func(cfg *config.Config) (*Settings, error) {
			return NewSettings(cfg.Vocabulary)
		},
		func(svc *embeddings.Service) Embedder { return svc },
		func(svc *llm.Service) Reasoner { return svc },
	),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(runAITLWorker),
)

// runAITLWorker ties the AITL review loop to the application lifecycle
func runAITLWorker(lc fx.Lifecycle, worker *AITLWorker) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			worker.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			worker.Stop()
			return nil
		},
	})
}
