package vocabulary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/emergent-company/vocab/pkg/logger"
)

// DecisionWorkflow turns a pruning plan into an executed or pending
// recommendation, according to the operator-trust tier.
type DecisionWorkflow interface {
	// Decide processes the plan and returns the resulting recommendation
	Decide(ctx context.Context, plan *Plan) (*PruningRecommendation, error)

	// Mode returns the workflow's mode name
	Mode() string
}

// recommendationStore persists recommendations and their state machine
type recommendationStore interface {
	CreateRecommendation(ctx context.Context, rec *PruningRecommendation) error
	TransitionRecommendation(ctx context.Context, id uuid.UUID, from []string, to string, decidedBy string) error
}

// recommendationExecutor applies an approved recommendation
type recommendationExecutor interface {
	Execute(ctx context.Context, rec *PruningRecommendation, performer string) *ExecutionResult
}

// workflowDeps is shared by all three workflow implementations
type workflowDeps struct {
	repo     recommendationStore
	executor recommendationExecutor
	log      *slog.Logger
}

// NewWorkflow returns the workflow implementation for mode. The mode set
// is closed: anything other than naive/hitl/aitl is an error.
func NewWorkflow(mode string, repo recommendationStore, executor recommendationExecutor, log *slog.Logger) (DecisionWorkflow, error) {
	deps := workflowDeps{
		repo:     repo,
		executor: executor,
		log:      log.With(logger.Scope("decision-workflow")),
	}
	switch mode {
	case ModeNaive:
		return &naiveWorkflow{deps}, nil
	case ModeHITL:
		return &hitlWorkflow{deps}, nil
	case ModeAITL:
		return &aitlWorkflow{deps}, nil
	default:
		return nil, fmt.Errorf("unknown pruning mode: %s", mode)
	}
}

// recommendationFromPlan builds the persisted form of a plan
func recommendationFromPlan(plan *Plan, mode string) *PruningRecommendation {
	return &PruningRecommendation{
		Action:         plan.Action,
		Targets:        plan.Targets,
		Aggressiveness: plan.Pressure,
		Rationale:      plan.Rationale,
		Status:         RecommendationPending,
		Mode:           mode,
	}
}

// naiveWorkflow executes the selected action immediately, no approval
type naiveWorkflow struct {
	workflowDeps
}

func (w *naiveWorkflow) Mode() string { return ModeNaive }

func (w *naiveWorkflow) Decide(ctx context.Context, plan *Plan) (*PruningRecommendation, error) {
	rec := recommendationFromPlan(plan, ModeNaive)
	rec.Status = RecommendationApproved
	system := PerformerSystem
	rec.DecidedBy = &system

	if err := w.repo.CreateRecommendation(ctx, rec); err != nil {
		return nil, err
	}

	result := w.executor.Execute(ctx, rec, PerformerSystem)
	if err := w.repo.TransitionRecommendation(ctx, rec.ID,
		[]string{RecommendationApproved}, RecommendationExecuted, PerformerSystem); err != nil {
		return nil, err
	}
	rec.Status = RecommendationExecuted

	w.log.Info("naive workflow executed plan",
		slog.String("action", plan.Action),
		slog.Int("succeeded", len(result.Executed)),
		slog.Int("failed", len(result.Failed)),
	)
	return rec, nil
}

// hitlWorkflow persists a pending recommendation and waits for an
// explicit operator decision through the API.
type hitlWorkflow struct {
	workflowDeps
}

func (w *hitlWorkflow) Mode() string { return ModeHITL }

func (w *hitlWorkflow) Decide(ctx context.Context, plan *Plan) (*PruningRecommendation, error) {
	rec := recommendationFromPlan(plan, ModeHITL)
	if err := w.repo.CreateRecommendation(ctx, rec); err != nil {
		return nil, err
	}

	w.log.Info("recommendation awaiting operator approval",
		slog.String("id", rec.ID.String()),
		slog.String("action", plan.Action),
	)
	return rec, nil
}

// aitlWorkflow persists a pending AITL recommendation. The reasoning
// call happens on the AITL worker, never on the ingestion hot path.
type aitlWorkflow struct {
	workflowDeps
}

func (w *aitlWorkflow) Mode() string { return ModeAITL }

func (w *aitlWorkflow) Decide(ctx context.Context, plan *Plan) (*PruningRecommendation, error) {
	rec := recommendationFromPlan(plan, ModeAITL)
	if err := w.repo.CreateRecommendation(ctx, rec); err != nil {
		return nil, err
	}

	w.log.Info("recommendation queued for AI review",
		slog.String("id", rec.ID.String()),
		slog.String("action", plan.Action),
	)
	return rec, nil
}

// BuildDecisionPrompt renders the structured prompt for an AITL review,
// including the learned operator preferences.
func BuildDecisionPrompt(rec *PruningRecommendation, prefs []DecisionPreference) string {
	var b strings.Builder

	b.WriteString("You are reviewing a vocabulary pruning recommendation for a knowledge graph.\n\n")
	fmt.Fprintf(&b, "Action: %s\nPressure at generation: %.2f\nRationale: %s\n\n", rec.Action, rec.Aggressiveness, rec.Rationale)

	if len(rec.Targets.Merges) > 0 {
		b.WriteString("Proposed merges (source -> target, cosine similarity, combined edges):\n")
		for _, m := range rec.Targets.Merges {
			fmt.Fprintf(&b, "- %s -> %s (%.2f, %d edges)\n", m.Source, m.Target, m.Similarity, m.EdgeImpact)
		}
		b.WriteString("\n")
	}
	if len(rec.Targets.Prunes) > 0 {
		b.WriteString("Proposed prunes (types to deactivate):\n")
		for _, p := range rec.Targets.Prunes {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteString("\n")
	}

	if len(prefs) > 0 {
		b.WriteString("Operator preferences you MUST respect:\n")
		for _, p := range prefs {
			fmt.Fprintf(&b, "- %s\n", p.Rule)
		}
		b.WriteString("\n")
	}

	b.WriteString("Respond with a single JSON object:\n")
	b.WriteString(`{"decision": "approve"|"reject"|"modify", "confidence": 0.0-1.0, "reasoning": "..."}`)
	b.WriteString("\n")
	return b.String()
}
