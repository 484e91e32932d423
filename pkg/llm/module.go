package llm

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/emergent-company/vocab/internal/config"
	"github.com/emergent-company/vocab/pkg/llm/genai"
)

// Module provides the llm fx.Module
var Module = fx.Module("llm",
	fx.Provide(NewService),
)

// Service wraps a Provider with lazy client initialization
type Service struct {
	provider Provider
	log      *slog.Logger
}

// NewService creates a new llm service
func NewService(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) *Service {
	rCfg := cfg.Reasoning

	svc := &Service{
		provider: NewNoopProvider(),
		log:      log,
	}

	if !rCfg.IsEnabled() {
		log.Info("reasoning provider disabled - no configuration provided")
		return svc
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("initializing Google Generative AI chat client",
				slog.String("model", rCfg.Model),
			)

			client, err := genai.NewClient(ctx, genai.Config{
				APIKey:      rCfg.GoogleAPIKey,
				Model:       rCfg.Model,
				Temperature: rCfg.Temperature,
			}, genai.WithLogger(log))
			if err != nil {
				log.Error("failed to initialize chat client", slog.String("error", err.Error()))
				// Keep noop provider
				return nil // Don't fail startup
			}
			svc.provider = client
			log.Info("Google Generative AI chat client initialized")
			return nil
		},
	})

	return svc
}

// NewServiceWithProvider creates a service backed by the given provider (for testing)
func NewServiceWithProvider(p Provider, log *slog.Logger) *Service {
	return &Service{provider: p, log: log}
}

// Complete generates a completion for the given prompt
func (s *Service) Complete(ctx context.Context, prompt string) (string, error) {
	return s.provider.Complete(ctx, prompt)
}

// IsConfigured returns true if a real provider is available
func (s *Service) IsConfigured() bool {
	return s.provider.IsConfigured()
}
