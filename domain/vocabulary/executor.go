package vocabulary

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/emergent-company/vocab/domain/graph"
	"github.com/emergent-company/vocab/internal/database"
	"github.com/emergent-company/vocab/pkg/logger"
)

// mutationStore is the combined vocabulary+graph surface a single
// mutation (merge, prune, restore, unmerge) runs against, always inside
// one transaction.
type mutationStore interface {
	GetType(ctx context.Context, name string) (*RelationshipType, error)
	RecordMerge(ctx context.Context, source, target string) error
	DeactivateType(ctx context.Context, name string) error
	RestoreTypeRow(ctx context.Context, rt *RelationshipType) error
	RemoveSynonym(ctx context.Context, source, target string) error
	AppendHistory(ctx context.Context, entry *HistoryEntry) error
	RewireEdges(ctx context.Context, fromTypes []string, toType string) ([]uuid.UUID, error)
	RewireEdgesByID(ctx context.Context, ids []uuid.UUID, toType string) error
	SoftDeleteEdgesByType(ctx context.Context, types []string) ([]uuid.UUID, error)
	RestoreEdgesByID(ctx context.Context, ids []uuid.UUID) error
}

// txRunner runs fn against a mutation store, committing only when fn
// returns nil
type txRunner func(ctx context.Context, fn func(ctx context.Context, store mutationStore) error) error

// bunMutationStore joins the vocabulary and graph repositories bound to
// one transaction
type bunMutationStore struct {
	*Repository
	edges *graph.Repository
}

func (s *bunMutationStore) RewireEdges(ctx context.Context, fromTypes []string, toType string) ([]uuid.UUID, error) {
	return s.edges.RewireEdges(ctx, fromTypes, toType)
}

func (s *bunMutationStore) RewireEdgesByID(ctx context.Context, ids []uuid.UUID, toType string) error {
	return s.edges.RewireEdgesByID(ctx, ids, toType)
}

func (s *bunMutationStore) SoftDeleteEdgesByType(ctx context.Context, types []string) ([]uuid.UUID, error) {
	return s.edges.SoftDeleteEdgesByType(ctx, types)
}

func (s *bunMutationStore) RestoreEdgesByID(ctx context.Context, ids []uuid.UUID) error {
	return s.edges.RestoreEdgesByID(ctx, ids)
}

// newBunTxRunner wraps each mutation in its own SafeTx
func newBunTxRunner(db *bun.DB, log *slog.Logger) txRunner {
	return func(ctx context.Context, fn func(ctx context.Context, store mutationStore) error) error {
		tx, err := database.BeginSafeTx(ctx, db)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		store := &bunMutationStore{
			Repository: NewRepository(tx),
			edges:      graph.NewRepository(tx, log),
		}
		if err := fn(ctx, store); err != nil {
			return err
		}
		return tx.Commit()
	}
}

// SubActionResult records the outcome of one merge or prune within a
// batch. Batches are atomic per type, not per batch: a failed sub-action
// leaves the rest of the batch intact and is reported here.
type SubActionResult struct {
	Kind   string `json:"kind"` // merge | prune
	Source string `json:"source"`
	Target string `json:"target,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ExecutionResult summarizes an executed recommendation
type ExecutionResult struct {
	Executed []SubActionResult `json:"executed"`
	Failed   []SubActionResult `json:"failed"`
}

// Executor applies approved pruning recommendations to the vocabulary
// and the graph. Every sub-action runs in its own transaction and writes
// its own history entry, so partial completion is always auditable.
type Executor struct {
	inTx txRunner
	log  *slog.Logger
}

// NewExecutor creates a new executor
func NewExecutor(db *bun.DB, log *slog.Logger) *Executor {
	return &Executor{
		inTx: newBunTxRunner(db, log),
		log:  log.With(logger.Scope("vocab-executor")),
	}
}

// Execute applies the recommendation's targets. performer is recorded in
// the history entries (system for naive, user for approved HITL, ai for
// auto-executed AITL).
func (e *Executor) Execute(ctx context.Context, rec *PruningRecommendation, performer string) *ExecutionResult {
	result := &ExecutionResult{}

	for _, pair := range rec.Targets.Merges {
		sub := SubActionResult{Kind: "merge", Source: pair.Source, Target: pair.Target}
		if err := e.mergeOne(ctx, pair, performer); err != nil {
			sub.Error = err.Error()
			result.Failed = append(result.Failed, sub)
			e.log.Error("merge failed", logger.Error(err),
				slog.String("source", pair.Source),
				slog.String("target", pair.Target),
			)
			continue
		}
		result.Executed = append(result.Executed, sub)
	}

	for _, name := range rec.Targets.Prunes {
		sub := SubActionResult{Kind: "prune", Source: name}
		if err := e.pruneOne(ctx, name, performer); err != nil {
			sub.Error = err.Error()
			result.Failed = append(result.Failed, sub)
			e.log.Error("prune failed", logger.Error(err), slog.String("type", name))
			continue
		}
		result.Executed = append(result.Executed, sub)
	}

	e.log.Info("recommendation executed",
		slog.String("id", rec.ID.String()),
		slog.Int("succeeded", len(result.Executed)),
		slog.Int("failed", len(result.Failed)),
	)
	return result
}

// mergeOne rewires all edges of pair.Source onto pair.Target, marks the
// source inactive as a synonym, and writes a merge history entry with a
// snapshot sufficient to unmerge.
func (e *Executor) mergeOne(ctx context.Context, pair MergePair, performer string) error {
	return e.inTx(ctx, func(ctx context.Context, store mutationStore) error {
		source, err := store.GetType(ctx, pair.Source)
		if err != nil {
			return err
		}
		if source == nil {
			return fmt.Errorf("merge source %s not found", pair.Source)
		}

		edgeIDs, err := store.RewireEdges(ctx, []string{pair.Source}, pair.Target)
		if err != nil {
			return err
		}

		if err := store.RecordMerge(ctx, pair.Source, pair.Target); err != nil {
			return err
		}

		target := pair.Target
		entry := &HistoryEntry{
			Action:      HistoryMerge,
			TypeNames:   []string{pair.Source},
			PerformedBy: performer,
			MergeTarget: &target,
			Snapshot: Snapshot{
				Types:       []RelationshipType{*source},
				EdgeIDs:     edgeIDs,
				MergeTarget: pair.Target,
			},
		}
		return store.AppendHistory(ctx, entry)
	})
}

// pruneOne deactivates a type and soft-deletes its edges, snapshotting
// both so the type can be restored exactly.
func (e *Executor) pruneOne(ctx context.Context, name string, performer string) error {
	return e.inTx(ctx, func(ctx context.Context, store mutationStore) error {
		rt, err := store.GetType(ctx, name)
		if err != nil {
			return err
		}
		if rt == nil {
			return fmt.Errorf("prune target %s not found", name)
		}

		edgeIDs, err := store.SoftDeleteEdgesByType(ctx, []string{name})
		if err != nil {
			return err
		}

		if err := store.DeactivateType(ctx, name); err != nil {
			return err
		}

		entry := &HistoryEntry{
			Action:      HistoryPrune,
			TypeNames:   []string{name},
			PerformedBy: performer,
			Snapshot: Snapshot{
				Types:   []RelationshipType{*rt},
				EdgeIDs: edgeIDs,
			},
		}
		return store.AppendHistory(ctx, entry)
	})
}
