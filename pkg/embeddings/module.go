package embeddings

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
	"golang.org/x/time/rate"

	"github.com/emergent-company/vocab/internal/config"
	"github.com/emergent-company/vocab/pkg/embeddings/genai"
)

// Module provides the embeddings fx.Module
var Module = fx.Module("embeddings",
	fx.Provide(NewService),
)

// Service provides embedding generation with caching and rate limiting.
// Relationship label embeddings never change once computed, so cache
// entries are kept for the lifetime of the process.
type Service struct {
	client  Client
	cache   *Cache
	limiter *rate.Limiter
	log     *slog.Logger
	enabled bool
}

// NewService creates a new embeddings service
func NewService(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) *Service {
	embCfg := cfg.Embeddings

	svc := &Service{
		client:  NewNoopClient(),
		cache:   NewCache(),
		limiter: rate.NewLimiter(rate.Limit(embCfg.RequestsPerSecond), 1),
		log:     log,
		enabled: false,
	}

	if !embCfg.IsEnabled() {
		log.Info("embeddings service disabled - no configuration provided")
		return svc
	}

	// Initialize client on startup
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("initializing Google Generative AI embeddings client",
				slog.String("model", embCfg.Model),
			)

			client, err := genai.NewClient(ctx, genai.Config{
				APIKey: embCfg.GoogleAPIKey,
				Model:  embCfg.Model,
			}, genai.WithLogger(log))
			if err != nil {
				log.Error("failed to initialize Generative AI client", slog.String("error", err.Error()))
				// Keep noop client
				return nil // Don't fail startup
			}
			svc.client = client
			svc.enabled = true
			log.Info("Google Generative AI embeddings client initialized")
			return nil
		},
	})

	return svc
}

// NewNoopService creates a service with a noop client (for testing)
func NewNoopService(log *slog.Logger) *Service {
	return &Service{
		client:  NewNoopClient(),
		cache:   NewCache(),
		limiter: rate.NewLimiter(rate.Inf, 1),
		log:     log,
		enabled: false,
	}
}

// NewServiceWithClient creates a service backed by the given client (for testing)
func NewServiceWithClient(client Client, log *slog.Logger) *Service {
	return &Service{
		client:  client,
		cache:   NewCache(),
		limiter: rate.NewLimiter(rate.Inf, 1),
		log:     log,
		enabled: true,
	}
}

// IsEnabled returns true if embeddings are available
func (s *Service) IsEnabled() bool {
	return s.enabled
}

// EmbedQuery generates an embedding for a single query, consulting the
// cache before making a provider call.
func (s *Service) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if emb, ok := s.cache.Get(query); ok {
		return emb, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	emb, err := s.client.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	if emb != nil {
		s.cache.Set(query, emb)
	}
	return emb, nil
}

// EmbedDocuments generates embeddings for multiple documents. Cached
// entries are served locally; only the misses go to the provider.
func (s *Service) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	results := make([][]float32, len(documents))
	var misses []string
	var missIdx []int

	for i, doc := range documents {
		if emb, ok := s.cache.Get(doc); ok {
			results[i] = emb
			continue
		}
		misses = append(misses, doc)
		missIdx = append(missIdx, i)
	}

	if len(misses) == 0 {
		return results, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	embs, err := s.client.EmbedDocuments(ctx, misses)
	if err != nil {
		return nil, err
	}
	if embs == nil {
		return results, nil
	}

	for i, emb := range embs {
		if i >= len(missIdx) {
			break
		}
		results[missIdx[i]] = emb
		if emb != nil {
			s.cache.Set(misses[i], emb)
		}
	}
	return results, nil
}

// CacheSize returns the number of cached embeddings
func (s *Service) CacheSize() int {
	return s.cache.Len()
}
