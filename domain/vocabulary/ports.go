package vocabulary

import (
	"context"
)

// Embedder supplies label embeddings for admission and synonym detection
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	IsEnabled() bool
}

// Reasoner supplies completions for AITL decisions and category naming
type Reasoner interface {
	Complete(ctx context.Context, prompt string) (string, error)
	IsConfigured() bool
}
