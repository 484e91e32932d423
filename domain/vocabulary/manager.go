package vocabulary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/emergent-company/vocab/domain/graph"
	"github.com/emergent-company/vocab/pkg/apperror"
	"github.com/emergent-company/vocab/pkg/logger"
)

// AdmitEdgeRequest is one ingested relationship edge
type AdmitEdgeRequest struct {
	Label      string
	SrcID      uuid.UUID
	DstID      uuid.UUID
	Confidence float32
}

// AdmitEdgeResult reports what admission did
type AdmitEdgeResult struct {
	Type            *RelationshipType `json:"type"`
	Created         bool              `json:"created"`
	ReversedWarning bool              `json:"reversedWarning"`
	EdgeID          uuid.UUID         `json:"edgeId"`
	Proposal        *CategoryProposal `json:"proposal,omitempty"`
}

// vocabStore is the vocabulary persistence surface the manager
// orchestrates over
type vocabStore interface {
	recommendationStore
	CountActiveTypes(ctx context.Context) (int, error)
	GetType(ctx context.Context, name string) (*RelationshipType, error)
	IncrementUsage(ctx context.Context, name string) error
	GetActiveTypes(ctx context.Context) ([]RelationshipType, error)
	UpdateTypeStats(ctx context.Context, rt *RelationshipType) error
	HasUnresolvedRecommendation(ctx context.Context) (bool, error)
	GetRecommendation(ctx context.Context, id uuid.UUID) (*PruningRecommendation, error)
	AppendHistory(ctx context.Context, entry *HistoryEntry) error
	AddPreference(ctx context.Context, pref *DecisionPreference) error
	GetCategoryProposal(ctx context.Context, id uuid.UUID) (*CategoryProposal, error)
	ResolveCategoryProposal(ctx context.Context, id uuid.UUID, status string) error
	CreateCategory(ctx context.Context, category *Category, categoryMax int) error
	ReassignTypeCategory(ctx context.Context, typeName, category string) error
}

// edgeStore is the graph surface the manager needs
type edgeStore interface {
	CreateEdge(ctx context.Context, edge *graph.Edge) error
	GetAllUsageStats(ctx context.Context) (map[string]*graph.UsageStats, error)
}

// Manager orchestrates the vocabulary engine. It owns all state
// transitions: admission through the gate, capacity checks, pruning
// cycle triggering, and operator decisions.
type Manager struct {
	repo     vocabStore
	store    edgeStore
	gate     *Gate
	detector func() *SynonymDetector
	executor recommendationExecutor
	ledger   *Ledger
	settings *Settings
	metrics  *Metrics
	log      *slog.Logger

	// pruneInFlight makes the pruning cycle single-flight: concurrent
	// over-capacity observations skip triggering a second cycle.
	pruneInFlight atomic.Bool
}

// NewManager creates the vocabulary manager
func NewManager(
	repo *Repository,
	store *graph.Repository,
	gate *Gate,
	executor *Executor,
	ledger *Ledger,
	settings *Settings,
	metrics *Metrics,
	log *slog.Logger,
) *Manager {
	m := &Manager{
		repo:     repo,
		store:    store,
		gate:     gate,
		executor: executor,
		ledger:   ledger,
		settings: settings,
		metrics:  metrics,
		log:      log.With(logger.Scope("vocab-manager")),
	}
	m.detector = func() *SynonymDetector {
		cfg := settings.Current()
		return NewSynonymDetector(cfg.SynonymMergeThreshold, cfg.SynonymReviewThreshold)
	}
	return m
}

// Ledger exposes the history ledger for the operator surface
func (m *Manager) Ledger() *Ledger {
	return m.ledger
}

// Settings exposes the runtime configuration
func (m *Manager) Settings() *Settings {
	return m.settings
}

// AdmitEdge is the hot path called for every ingested relationship edge:
// validate/admit the label, create the edge, bump usage, and check
// capacity. Validation failures reject only this edge; they never abort
// the surrounding document pipeline.
func (m *Manager) AdmitEdge(ctx context.Context, req AdmitEdgeRequest) (*AdmitEdgeResult, error) {
	size, err := m.repo.CountActiveTypes(ctx)
	if err != nil {
		return nil, err
	}
	m.metrics.VocabularySize.Set(float64(size))

	existing, err := m.repo.GetType(ctx, req.Label)
	if err != nil {
		return nil, err
	}
	novel := existing == nil || !existing.IsActive

	if novel && m.settings.Curve().Blocked(size) {
		// Hard limit: usage of existing types continues, novel labels
		// are refused until operators create headroom
		m.metrics.Rejections.WithLabelValues("capacity").Inc()
		return nil, apperror.ErrCapacityExceeded.WithMessage(
			fmt.Sprintf("vocabulary at hard limit (%d types); label %q refused", size, req.Label))
	}

	if novel {
		// While a recommendation awaits a decision the vocabulary must
		// not keep growing underneath it. Deferred labels come back
		// through the ingestion queue's retry schedule.
		pending, err := m.repo.HasUnresolvedRecommendation(ctx)
		if err != nil {
			return nil, err
		}
		if pending {
			m.metrics.Rejections.WithLabelValues("paused").Inc()
			return nil, apperror.ErrExpansionPaused.WithMessage(
				fmt.Sprintf("recommendation awaiting decision; novel label %q deferred", req.Label))
		}
	}

	admission, err := m.gate.Admit(ctx, req.Label)
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) && appErr.Code == "validation_error" {
			m.metrics.Rejections.WithLabelValues("validation").Inc()
		} else {
			m.metrics.Rejections.WithLabelValues("provider").Inc()
		}
		return nil, err
	}

	edge := &graph.Edge{
		SrcID:      req.SrcID,
		DstID:      req.DstID,
		Type:       admission.Type.Name,
		Confidence: req.Confidence,
	}
	if err := m.store.CreateEdge(ctx, edge); err != nil {
		return nil, err
	}
	if err := m.repo.IncrementUsage(ctx, admission.Type.Name); err != nil {
		return nil, err
	}

	if admission.Created {
		m.metrics.Admissions.WithLabelValues("created").Inc()
		size++
	} else {
		m.metrics.Admissions.WithLabelValues("existing").Inc()
	}

	m.checkCapacity(ctx, size)

	return &AdmitEdgeResult{
		Type:            admission.Type,
		Created:         admission.Created,
		ReversedWarning: admission.ReversedWarning,
		EdgeID:          edge.ID,
		Proposal:        admission.Proposal,
	}, nil
}

// checkCapacity triggers a pruning cycle when pressure warrants one.
// Only one cycle runs at a time; concurrent observers skip. Missing a
// trigger is safe since the next admission re-checks.
func (m *Manager) checkCapacity(ctx context.Context, size int) {
	pressure := m.settings.Curve().Pressure(size)
	m.metrics.Pressure.Set(pressure)

	if pressure < zoneMerge {
		return
	}

	if !m.pruneInFlight.CompareAndSwap(false, true) {
		return
	}
	defer m.pruneInFlight.Store(false)

	// No new cycle while a recommendation awaits a decision
	pending, err := m.repo.HasUnresolvedRecommendation(ctx)
	if err != nil {
		m.log.Error("failed to check pending recommendations", logger.Error(err))
		return
	}
	if pending {
		m.log.Debug("pruning paused: recommendation awaiting decision")
		return
	}

	if _, err := m.runCycle(ctx); err != nil {
		m.log.Error("pruning cycle failed", logger.Error(err))
	}
}

// RunPruningCycle evaluates the vocabulary and, when pressure warrants,
// produces (and possibly executes) a recommendation. Used by the
// operator API and the maintenance scheduler; returns nil when another
// cycle is already in flight.
func (m *Manager) RunPruningCycle(ctx context.Context) (*PruningRecommendation, error) {
	if !m.pruneInFlight.CompareAndSwap(false, true) {
		return nil, nil
	}
	defer m.pruneInFlight.Store(false)
	return m.runCycle(ctx)
}

func (m *Manager) runCycle(ctx context.Context) (*PruningRecommendation, error) {
	types, err := m.RefreshStatistics(ctx)
	if err != nil {
		return nil, err
	}
	size := len(types)

	candidates := m.detector().Detect(types)
	cfg := m.settings.Current()
	plan := SelectStrategy(size, m.settings.Curve(), cfg, types, candidates)

	m.metrics.PruningCycles.WithLabelValues(plan.Action).Inc()
	m.log.Info("pruning cycle evaluated",
		slog.Int("size", size),
		slog.Float64("pressure", plan.Pressure),
		slog.String("action", plan.Action),
		slog.Int("synonym_candidates", len(candidates)),
	)

	if plan.Action == ActionNone || (!plan.Mutates() && plan.Action != ActionBlock) {
		return nil, nil
	}
	if plan.Action == ActionBlock {
		m.log.Error("vocabulary at hard limit; manual intervention required",
			slog.Int("size", size),
		)
		return nil, nil
	}

	workflow, err := NewWorkflow(cfg.PruningMode, m.repo, m.executor, m.log)
	if err != nil {
		return nil, err
	}
	return workflow.Decide(ctx, plan)
}

// RefreshStatistics recomputes usage statistics and value scores for the
// whole active vocabulary from the graph, persisting the results, and
// returns the refreshed snapshot.
func (m *Manager) RefreshStatistics(ctx context.Context) ([]RelationshipType, error) {
	types, err := m.repo.GetActiveTypes(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := m.store.GetAllUsageStats(ctx)
	if err != nil {
		return nil, err
	}

	for i := range types {
		ApplyStats(&types[i], stats[types[i].Name])
		if err := m.repo.UpdateTypeStats(ctx, &types[i]); err != nil {
			return nil, err
		}
	}

	m.metrics.VocabularySize.Set(float64(len(types)))
	return types, nil
}

// SynonymSweep refreshes statistics and reports current synonym
// candidates without mutating anything. Run periodically off-peak.
func (m *Manager) SynonymSweep(ctx context.Context) ([]SynonymCandidate, error) {
	types, err := m.RefreshStatistics(ctx)
	if err != nil {
		return nil, err
	}

	candidates := m.detector().Detect(types)
	for _, c := range candidates {
		band := "merge"
		if c.ReviewOnly {
			band = "review"
		}
		m.log.Info("synonym candidate",
			slog.String("source", c.Source),
			slog.String("target", c.Target),
			slog.Float64("similarity", c.Similarity),
			slog.String("band", band),
		)
	}
	return candidates, nil
}

// ApproveRecommendation executes a pending (or escalated) recommendation
// on behalf of an operator.
func (m *Manager) ApproveRecommendation(ctx context.Context, id uuid.UUID, decidedBy string) (*ExecutionResult, error) {
	if err := m.repo.TransitionRecommendation(ctx, id,
		[]string{RecommendationPending, RecommendationEscalated}, RecommendationApproved, decidedBy); err != nil {
		return nil, err
	}

	rec, err := m.repo.GetRecommendation(ctx, id)
	if err != nil {
		return nil, err
	}

	result := m.executor.Execute(ctx, rec, PerformerUser)
	if err := m.repo.TransitionRecommendation(ctx, id,
		[]string{RecommendationApproved}, RecommendationExecuted, decidedBy); err != nil {
		return nil, err
	}

	m.metrics.Merges.Add(float64(countKind(result.Executed, "merge")))
	m.metrics.Prunes.Add(float64(countKind(result.Executed, "prune")))
	return result, nil
}

// RejectRecommendation cancels a pending recommendation. No side effects
// beyond the status change and an audit entry.
func (m *Manager) RejectRecommendation(ctx context.Context, id uuid.UUID, decidedBy, reason string) error {
	if err := m.repo.TransitionRecommendation(ctx, id,
		[]string{RecommendationPending, RecommendationEscalated, RecommendationAIDecided},
		RecommendationRejected, decidedBy); err != nil {
		return err
	}

	rec, err := m.repo.GetRecommendation(ctx, id)
	if err != nil {
		return err
	}

	entry := &HistoryEntry{
		Action:      HistoryDecision,
		TypeNames:   targetNames(rec.Targets),
		PerformedBy: PerformerUser,
		Snapshot:    Snapshot{Note: "rejected: " + reason},
	}
	if err := m.repo.AppendHistory(ctx, entry); err != nil {
		return err
	}

	// A human overriding an AI verdict is worth learning from
	if rec.Mode == ModeAITL && rec.Status == RecommendationRejected && rec.AIReasoning != nil {
		pref := &DecisionPreference{
			Rule:      fmt.Sprintf("operator rejected %s of %v: %s", rec.Action, targetNames(rec.Targets), reason),
			CreatedBy: decidedBy,
		}
		if err := m.repo.AddPreference(ctx, pref); err != nil {
			m.log.Error("failed to record learned preference", logger.Error(err))
		}
	}
	return nil
}

// RestoreType reverses the latest prune of typeName
func (m *Manager) RestoreType(ctx context.Context, typeName, performer string) (*HistoryEntry, error) {
	entry, err := m.ledger.RestoreType(ctx, typeName, performer)
	if err != nil {
		return nil, err
	}
	m.metrics.Restores.Inc()
	return entry, nil
}

// Unmerge reverses the latest merge of source
func (m *Manager) Unmerge(ctx context.Context, source, performer string) (*HistoryEntry, error) {
	entry, err := m.ledger.Unmerge(ctx, source, performer)
	if err != nil {
		return nil, err
	}
	m.metrics.Restores.Inc()
	return entry, nil
}

// ResolveCategoryProposal approves or rejects a pending proposal. On
// approval the category is created (window permitting) and the
// triggering type moves into it.
func (m *Manager) ResolveCategoryProposal(ctx context.Context, id uuid.UUID, approve bool) error {
	proposal, err := m.repo.GetCategoryProposal(ctx, id)
	if err != nil {
		return err
	}

	if !approve {
		return m.repo.ResolveCategoryProposal(ctx, id, ProposalRejected)
	}

	cfg := m.settings.Current()
	category := &Category{
		Name:        proposal.ProposedName,
		Description: fmt.Sprintf("proposed for %s", proposal.TriggerType),
		SeedTypes:   []string{proposal.TriggerType},
		IsActive:    true,
	}
	if err := m.repo.CreateCategory(ctx, category, cfg.CategoryMax); err != nil {
		return err
	}
	if err := m.repo.ReassignTypeCategory(ctx, proposal.TriggerType, category.Name); err != nil {
		return err
	}
	return m.repo.ResolveCategoryProposal(ctx, id, ProposalApproved)
}

func countKind(subs []SubActionResult, kind string) int {
	n := 0
	for _, s := range subs {
		if s.Kind == kind && s.Error == "" {
			n++
		}
	}
	return n
}

func targetNames(t RecommendationTargets) []string {
	names := make([]string, 0, len(t.Merges)+len(t.Prunes))
	for _, mp := range t.Merges {
		names = append(names, mp.Source)
	}
	return append(names, t.Prunes...)
}
