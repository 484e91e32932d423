// Package config loads immutable application configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config holds all application configuration
type Config struct {
	// Server settings
	ServerPort    int    `env:"SERVER_PORT" envDefault:"3004"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	// Database settings
	Database DatabaseConfig

	// Vocabulary engine settings
	Vocabulary VocabularyConfig

	// Embeddings provider configuration
	Embeddings EmbeddingsConfig

	// Reasoning provider configuration (AITL decisions, category naming)
	Reasoning ReasoningConfig

	// Ingestion worker configuration
	Ingestion IngestionConfig

	// Server timeouts
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"vocab"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database     string        `env:"POSTGRES_DB" envDefault:"vocab"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// VocabularyConfig holds the capacity window and decision policy knobs.
// All values are runtime-adjustable through the operator API; this struct
// only provides the boot-time defaults.
type VocabularyConfig struct {
	// Min is the vocabulary size below which pruning pressure is zero
	Min int `env:"VOCAB_MIN" envDefault:"30"`

	// Max is the soft capacity; pressure reaches the top of the curve here
	Max int `env:"VOCAB_MAX" envDefault:"90"`

	// HardLimit blocks all new admissions when reached
	HardLimit int `env:"VOCAB_HARD_LIMIT" envDefault:"200"`

	// CategoryMin / CategoryMax bound the active category count
	CategoryMin int `env:"CATEGORY_MIN" envDefault:"8"`
	CategoryMax int `env:"CATEGORY_MAX" envDefault:"15"`

	// PruningMode selects the decision workflow: naive, hitl, or aitl
	PruningMode string `env:"PRUNING_MODE" envDefault:"hitl"`

	// AggressivenessProfile names the pressure curve: linear, ease,
	// aggressive, gentle, exponential, or custom
	AggressivenessProfile string `env:"AGGRESSIVENESS_PROFILE" envDefault:"ease"`

	// AggressivenessPoints supplies the two Bezier control points for the
	// custom profile as "x1,y1,x2,y2"
	AggressivenessPoints string `env:"AGGRESSIVENESS_POINTS" envDefault:""`

	// CurveProfilesPath optionally points at a YAML file overriding the
	// built-in curve presets
	CurveProfilesPath string `env:"CURVE_PROFILES_PATH" envDefault:""`

	// AITLConfidenceThreshold is the minimum reasoning confidence for
	// auto-execution; lower confidence falls back to HITL
	AITLConfidenceThreshold float64 `env:"AITL_CONFIDENCE_THRESHOLD" envDefault:"0.7"`

	// AITLTimeout bounds a single reasoning call
	AITLTimeout time.Duration `env:"AITL_TIMEOUT" envDefault:"60s"`

	// PruneBatchBuffer is the headroom added beyond the strict minimum in
	// emergency pruning so the next admission does not immediately re-trigger
	PruneBatchBuffer int `env:"PRUNE_BATCH_BUFFER" envDefault:"5"`

	// SynonymMergeThreshold is the cosine similarity above which a pair is a
	// high-confidence merge candidate
	SynonymMergeThreshold float64 `env:"SYNONYM_MERGE_THRESHOLD" envDefault:"0.90"`

	// SynonymReviewThreshold flags pairs for manual review only
	SynonymReviewThreshold float64 `env:"SYNONYM_REVIEW_THRESHOLD" envDefault:"0.70"`

	// CategoryFitThreshold is the minimum mean similarity for assigning a new
	// type to an existing category without a proposal
	CategoryFitThreshold float64 `env:"CATEGORY_FIT_THRESHOLD" envDefault:"0.3"`
}

// Validate checks the window bounds for internal consistency.
func (v *VocabularyConfig) Validate() error {
	if v.Min <= 0 || v.Max <= v.Min || v.HardLimit <= v.Max {
		return fmt.Errorf("invalid vocabulary window: min=%d max=%d hard_limit=%d", v.Min, v.Max, v.HardLimit)
	}
	if v.CategoryMin <= 0 || v.CategoryMax < v.CategoryMin {
		return fmt.Errorf("invalid category window: min=%d max=%d", v.CategoryMin, v.CategoryMax)
	}
	switch v.PruningMode {
	case "naive", "hitl", "aitl":
	default:
		return fmt.Errorf("invalid pruning mode: %s", v.PruningMode)
	}
	if v.AITLConfidenceThreshold < 0 || v.AITLConfidenceThreshold > 1 {
		return fmt.Errorf("invalid AITL confidence threshold: %f", v.AITLConfidenceThreshold)
	}
	return nil
}

// EmbeddingsConfig holds embedding provider configuration
type EmbeddingsConfig struct {
	// GoogleAPIKey enables the Generative AI embeddings client
	GoogleAPIKey string `env:"GOOGLE_API_KEY" envDefault:""`

	// Model is the embedding model name
	Model string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-004"`

	// Dimension is the embedding dimension
	Dimension int `env:"EMBEDDING_DIMENSION" envDefault:"768"`

	// RequestsPerSecond rate-limits outbound embedding calls
	RequestsPerSecond float64 `env:"EMBEDDING_RPS" envDefault:"10"`

	// Timeout bounds a single provider call
	Timeout time.Duration `env:"EMBEDDING_TIMEOUT" envDefault:"30s"`

	// NetworkDisabled forces the noop client (for testing)
	NetworkDisabled bool `env:"EMBEDDINGS_NETWORK_DISABLED" envDefault:"false"`
}

// IsEnabled returns true if embeddings are configured
func (e *EmbeddingsConfig) IsEnabled() bool {
	if e.NetworkDisabled {
		return false
	}
	return e.GoogleAPIKey != ""
}

// ReasoningConfig holds the reasoning provider configuration
type ReasoningConfig struct {
	// GoogleAPIKey enables the Generative AI chat client
	GoogleAPIKey string `env:"GOOGLE_API_KEY" envDefault:""`

	// Model is the chat model name
	Model string `env:"REASONING_MODEL" envDefault:"gemini-2.5-flash"`

	// Temperature for completions
	Temperature float64 `env:"REASONING_TEMPERATURE" envDefault:"0"`

	// Timeout bounds a single reasoning call
	Timeout time.Duration `env:"REASONING_TIMEOUT" envDefault:"60s"`

	// NetworkDisabled forces the noop provider (for testing)
	NetworkDisabled bool `env:"REASONING_NETWORK_DISABLED" envDefault:"false"`
}

// IsEnabled returns true if the reasoning provider is configured
func (r *ReasoningConfig) IsEnabled() bool {
	if r.NetworkDisabled {
		return false
	}
	return r.GoogleAPIKey != ""
}

// IngestionConfig holds edge ingestion worker configuration
type IngestionConfig struct {
	// WorkerIntervalMs is the queue polling interval in milliseconds
	WorkerIntervalMs int `env:"INGEST_WORKER_INTERVAL_MS" envDefault:"1000"`

	// WorkerBatchSize is the number of jobs claimed per poll
	WorkerBatchSize int `env:"INGEST_WORKER_BATCH_SIZE" envDefault:"25"`

	// MaxAttempts caps retries for a single edge admission job
	MaxAttempts int `env:"INGEST_MAX_ATTEMPTS" envDefault:"5"`

	// SynonymSweepSchedule is a cron expression for the periodic synonym scan
	SynonymSweepSchedule string `env:"SYNONYM_SWEEP_SCHEDULE" envDefault:"0 0 3 * * *"`
}

// WorkerInterval returns the polling interval as a Duration
func (i *IngestionConfig) WorkerInterval() time.Duration {
	return time.Duration(i.WorkerIntervalMs) * time.Millisecond
}

// NewConfig loads configuration from environment variables
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Vocabulary.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vocabulary config: %w", err)
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.ServerPort),
		slog.String("db_host", cfg.Database.Host),
		slog.String("pruning_mode", cfg.Vocabulary.PruningMode),
		slog.Int("vocab_max", cfg.Vocabulary.Max),
	)

	return cfg, nil
}
