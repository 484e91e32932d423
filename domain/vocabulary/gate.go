package vocabulary

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/emergent-company/vocab/pkg/apperror"
	"github.com/emergent-company/vocab/pkg/logger"
	"github.com/emergent-company/vocab/pkg/mathutil"
)

var labelPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{2,49}$`)

// Labels that carry no relationship semantics and are never admitted
var labelBlacklist = map[string]bool{
	"RELATED":    true,
	"ASSOCIATED": true,
	"LINKED":     true,
	"CONNECTED":  true,
	"HAS":        true,
	"IS":         true,
}

// reversedSuffix marks labels like CREATED_BY that usually express the
// inverse of an existing relationship. Flagged as a warning, not rejected.
const reversedSuffix = "_BY"

// ValidateLabel checks a candidate label's format. It returns whether
// the label smells like a reversed relationship, and a validation error
// for malformed or blacklisted labels.
func ValidateLabel(label string) (reversed bool, err error) {
	if !labelPattern.MatchString(label) {
		return false, apperror.NewValidation(
			fmt.Sprintf("label %q must be 3-50 uppercase alphanumeric/underscore characters", label))
	}
	if labelBlacklist[label] {
		return false, apperror.NewValidation(fmt.Sprintf("label %q is blacklisted", label))
	}
	return strings.HasSuffix(label, reversedSuffix), nil
}

// CategoryFit is the outcome of classifying a label against the
// existing categories.
type CategoryFit struct {
	// Best is the closest category regardless of confidence
	Best string

	// Confidence is the mean similarity against Best's members
	Confidence float64

	// Confidences holds the per-category mean similarities
	Confidences map[string]float64

	// Fits is true when Confidence meets the assignment threshold
	Fits bool
}

// ClassifyCategory scores a label embedding against each category by
// mean cosine similarity over the category's member-type embeddings.
// Categories whose members all lack embeddings are skipped.
func ClassifyCategory(labelEmb []float32, types []RelationshipType, threshold float64) CategoryFit {
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, rt := range types {
		if len(rt.Embedding) == 0 {
			continue
		}
		sums[rt.Category] += mathutil.CosineSimilarity(labelEmb, rt.Embedding)
		counts[rt.Category]++
	}

	fit := CategoryFit{Confidences: make(map[string]float64, len(sums))}
	for category, sum := range sums {
		mean := sum / float64(counts[category])
		fit.Confidences[category] = mean
		// Ties break on category name so the assignment is deterministic
		// regardless of map iteration order
		if fit.Best == "" || mean > fit.Confidence || (mean == fit.Confidence && category < fit.Best) {
			fit.Best = category
			fit.Confidence = mean
		}
	}
	fit.Fits = fit.Best != "" && fit.Confidence >= threshold
	return fit
}

// Admission is the result of admitting a label into the vocabulary
type Admission struct {
	// Type is the admitted (or pre-existing) relationship type
	Type *RelationshipType

	// Created is true when this call created the type row
	Created bool

	// ReversedWarning flags labels ending in _BY
	ReversedWarning bool

	// Proposal is set when no category fit and one was proposed
	Proposal *CategoryProposal
}

// gateStore is the persistence surface admission needs
type gateStore interface {
	GetType(ctx context.Context, name string) (*RelationshipType, error)
	ReactivateType(ctx context.Context, name string) error
	GetActiveTypes(ctx context.Context) ([]RelationshipType, error)
	InsertTypeIfAbsentUnderCap(ctx context.Context, rt *RelationshipType, hardLimit int) (bool, error)
	CountActiveCategories(ctx context.Context) (int, error)
	CreateCategoryProposal(ctx context.Context, proposal *CategoryProposal) error
}

// Gate validates and admits novel relationship types
type Gate struct {
	repo     gateStore
	embedder Embedder
	settings *Settings
	log      *slog.Logger
}

// NewGate creates a new expansion gate
func NewGate(repo *Repository, embedder Embedder, settings *Settings, log *slog.Logger) *Gate {
	return &Gate{
		repo:     repo,
		embedder: embedder,
		settings: settings,
		log:      log.With(logger.Scope("expansion-gate")),
	}
}

// Admit validates label and, if novel, inserts it with a category
// assigned by embedding similarity. Admission is idempotent: concurrent
// calls for the same label yield exactly one row, and subsequent calls
// return the existing type.
func (g *Gate) Admit(ctx context.Context, label string) (*Admission, error) {
	reversed, err := ValidateLabel(label)
	if err != nil {
		return nil, err
	}

	// Fast path: the label is already in the vocabulary
	existing, err := g.repo.GetType(ctx, label)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if !existing.IsActive {
			// A previously merged/pruned label showing up again is
			// re-activated rather than duplicated
			if err := g.repo.ReactivateType(ctx, label); err != nil {
				return nil, err
			}
			existing.IsActive = true
		}
		return &Admission{Type: existing, ReversedWarning: reversed}, nil
	}

	embedding, err := g.embedder.EmbedQuery(ctx, label)
	if err != nil {
		return nil, apperror.ErrProviderUnavailable.WithInternal(err)
	}

	cfg := g.settings.Current()

	types, err := g.repo.GetActiveTypes(ctx)
	if err != nil {
		return nil, err
	}

	fit := ClassifyCategory(embedding, types, cfg.CategoryFitThreshold)
	if fit.Best == "" {
		// Empty vocabulary or no embeddings at all: nothing to compare
		// against, fall back to the semantic catch-all
		fit.Best = "semantic"
	}

	rt := &RelationshipType{
		Name:            label,
		Category:        fit.Best,
		Embedding:       embedding,
		IsActive:        true,
		ReversedWarning: reversed,
		Synonyms:        []string{},
	}

	created, err := g.repo.InsertTypeIfAbsentUnderCap(ctx, rt, cfg.HardLimit)
	if err != nil {
		return nil, err
	}

	admission := &Admission{
		Type:            rt,
		Created:         created,
		ReversedWarning: reversed,
	}

	if !created {
		// Either another job admitted the label first, or the insert's
		// capacity guard refused the row at the hard limit
		existing, err := g.repo.GetType(ctx, label)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, apperror.ErrCapacityExceeded.WithMessage(
				fmt.Sprintf("vocabulary at hard limit; label %q refused", label))
		}
		admission.Type = existing
		return admission, nil
	}

	if reversed {
		g.log.Warn("admitted label smells like a reversed relationship",
			slog.String("label", label),
		)
	}

	if !fit.Fits {
		proposal, err := g.proposeCategory(ctx, label, fit)
		if err != nil {
			// The type is admitted either way; proposal failure only
			// loses the review request
			g.log.Error("failed to create category proposal", logger.Error(err),
				slog.String("label", label))
		} else {
			admission.Proposal = proposal
		}
	}

	g.log.Info("admitted relationship type",
		slog.String("label", label),
		slog.String("category", fit.Best),
		slog.Float64("category_confidence", fit.Confidence),
	)
	return admission, nil
}

// proposeCategory queues a new-category request for review. The type
// keeps its fallback category until resolution, so admission never
// blocks. When the category window is already full no proposal is
// created; operators must merge categories first.
func (g *Gate) proposeCategory(ctx context.Context, label string, fit CategoryFit) (*CategoryProposal, error) {
	cfg := g.settings.Current()

	count, err := g.repo.CountActiveCategories(ctx)
	if err != nil {
		return nil, err
	}
	if count >= cfg.CategoryMax {
		g.log.Warn("category window full, keeping fallback assignment",
			slog.String("label", label),
			slog.Int("categories", count),
		)
		return nil, nil
	}

	proposal := &CategoryProposal{
		ProposedName:     proposedCategoryName(label),
		TriggerType:      label,
		Confidences:      fit.Confidences,
		FallbackCategory: fit.Best,
		Status:           ProposalPending,
	}
	if err := g.repo.CreateCategoryProposal(ctx, proposal); err != nil {
		return nil, err
	}
	return proposal, nil
}

// proposedCategoryName derives a placeholder category name from the
// triggering label; the final name is chosen at approval time.
func proposedCategoryName(label string) string {
	return strings.ToLower(strings.ReplaceAll(label, "_", "-"))
}
