package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig(slog.Default())
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Vocabulary.Min)
	assert.Equal(t, 90, cfg.Vocabulary.Max)
	assert.Equal(t, 200, cfg.Vocabulary.HardLimit)
	assert.Equal(t, 8, cfg.Vocabulary.CategoryMin)
	assert.Equal(t, 15, cfg.Vocabulary.CategoryMax)
	assert.Equal(t, "hitl", cfg.Vocabulary.PruningMode)
	assert.Equal(t, "ease", cfg.Vocabulary.AggressivenessProfile)
	assert.InDelta(t, 0.7, cfg.Vocabulary.AITLConfidenceThreshold, 1e-9)
	assert.Equal(t, 5, cfg.Vocabulary.PruneBatchBuffer)
	assert.InDelta(t, 0.90, cfg.Vocabulary.SynonymMergeThreshold, 1e-9)
	assert.InDelta(t, 0.3, cfg.Vocabulary.CategoryFitThreshold, 1e-9)
}

func TestNewConfig_EnvOverrides(t *testing.T) {
	t.Setenv("VOCAB_MAX", "120")
	t.Setenv("PRUNING_MODE", "aitl")
	t.Setenv("AITL_CONFIDENCE_THRESHOLD", "0.85")

	cfg, err := NewConfig(slog.Default())
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.Vocabulary.Max)
	assert.Equal(t, "aitl", cfg.Vocabulary.PruningMode)
	assert.InDelta(t, 0.85, cfg.Vocabulary.AITLConfidenceThreshold, 1e-9)
}

func TestNewConfig_InvalidWindow(t *testing.T) {
	t.Setenv("VOCAB_MIN", "100")
	t.Setenv("VOCAB_MAX", "90")

	_, err := NewConfig(slog.Default())
	assert.Error(t, err)
}

func TestNewConfig_InvalidMode(t *testing.T) {
	t.Setenv("PRUNING_MODE", "autopilot")

	_, err := NewConfig(slog.Default())
	assert.Error(t, err)
}

func TestVocabularyConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*VocabularyConfig)
		wantErr bool
	}{
		{"defaults ok", func(v *VocabularyConfig) {}, false},
		{"hard limit below max", func(v *VocabularyConfig) { v.HardLimit = 50 }, true},
		{"category max below min", func(v *VocabularyConfig) { v.CategoryMax = 3 }, true},
		{"threshold out of range", func(v *VocabularyConfig) { v.AITLConfidenceThreshold = 1.5 }, true},
		{"naive mode ok", func(v *VocabularyConfig) { v.PruningMode = "naive" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := VocabularyConfig{
				Min: 30, Max: 90, HardLimit: 200,
				CategoryMin: 8, CategoryMax: 15,
				PruningMode:             "hitl",
				AITLConfidenceThreshold: 0.7,
			}
			tt.mutate(&v)
			err := v.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: 5433, User: "u", Password: "p",
		Database: "vocab", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://u:p@db:5433/vocab?sslmode=disable", d.DSN())
}
