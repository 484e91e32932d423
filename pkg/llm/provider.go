// Package llm provides interfaces for language model providers.
package llm

import (
	"context"
)

// Provider is an interface for LLM providers
type Provider interface {
	// Complete generates a completion for the given prompt
	Complete(ctx context.Context, prompt string) (string, error)

	// IsConfigured returns true if the provider is properly configured
	IsConfigured() bool
}

// NoopProvider is a Provider that is never configured
type NoopProvider struct{}

// NewNoopProvider creates a new NoopProvider
func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

// Complete returns an empty completion
func (p *NoopProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return "", nil
}

// IsConfigured returns false
func (p *NoopProvider) IsConfigured() bool {
	return false
}
