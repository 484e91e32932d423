package vocabulary

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/emergent-company/vocab/pkg/apperror"
	"github.com/emergent-company/vocab/pkg/logger"
)

// historyReader is the read side of the ledger
type historyReader interface {
	ListHistory(ctx context.Context, limit, offset int) ([]HistoryEntry, error)
	LatestHistoryFor(ctx context.Context, typeName, action string) (*HistoryEntry, error)
}

// Ledger reads the append-only history and reverses recorded mutations.
// Restore and unmerge are themselves new mutations producing their own
// entries; history is never edited in place.
type Ledger struct {
	reader historyReader
	inTx   txRunner
	log    *slog.Logger
}

// NewLedger creates a new history ledger
func NewLedger(db *bun.DB, repo *Repository, log *slog.Logger) *Ledger {
	return &Ledger{
		reader: repo,
		inTx:   newBunTxRunner(db, log),
		log:    log.With(logger.Scope("history-ledger")),
	}
}

// List returns history entries newest first
func (l *Ledger) List(ctx context.Context, limit, offset int) ([]HistoryEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return l.reader.ListHistory(ctx, limit, offset)
}

// RestoreType reverses the most recent prune of typeName: the type row
// is written back from the snapshot and its soft-deleted edges return.
func (l *Ledger) RestoreType(ctx context.Context, typeName, performer string) (*HistoryEntry, error) {
	pruned, err := l.reader.LatestHistoryFor(ctx, typeName, HistoryPrune)
	if err != nil {
		return nil, err
	}
	if pruned == nil {
		return nil, apperror.NewNotFound("prune history for type", typeName)
	}
	if len(pruned.Snapshot.Types) == 0 {
		return nil, apperror.ErrRollbackFailed.WithMessage(
			fmt.Sprintf("prune entry %d has no type snapshot", pruned.ID))
	}

	entry := &HistoryEntry{
		Action:      HistoryRestore,
		TypeNames:   []string{typeName},
		PerformedBy: performer,
		Snapshot: Snapshot{
			EdgeIDs: pruned.Snapshot.EdgeIDs,
			Note:    fmt.Sprintf("reversed prune entry %d", pruned.ID),
		},
	}

	err = l.inTx(ctx, func(ctx context.Context, store mutationStore) error {
		snapshot := pruned.Snapshot.Types[0]
		if err := store.RestoreTypeRow(ctx, &snapshot); err != nil {
			return err
		}
		if err := store.RestoreEdgesByID(ctx, pruned.Snapshot.EdgeIDs); err != nil {
			return err
		}
		return store.AppendHistory(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("restored pruned type",
		slog.String("type", typeName),
		slog.Int64("prune_entry", pruned.ID),
	)
	return entry, nil
}

// Unmerge reverses the most recent merge of source: the source row is
// restored and exactly the edges rewired by the merge are re-tagged back
// from the target, recovering the original edge-type distribution.
func (l *Ledger) Unmerge(ctx context.Context, source, performer string) (*HistoryEntry, error) {
	merged, err := l.reader.LatestHistoryFor(ctx, source, HistoryMerge)
	if err != nil {
		return nil, err
	}
	if merged == nil {
		return nil, apperror.NewNotFound("merge history for type", source)
	}
	if len(merged.Snapshot.Types) == 0 || merged.Snapshot.MergeTarget == "" {
		return nil, apperror.ErrRollbackFailed.WithMessage(
			fmt.Sprintf("merge entry %d has an incomplete snapshot", merged.ID))
	}

	entry := &HistoryEntry{
		Action:      HistoryUnmerge,
		TypeNames:   []string{source},
		PerformedBy: performer,
		MergeTarget: &merged.Snapshot.MergeTarget,
		Snapshot: Snapshot{
			EdgeIDs:     merged.Snapshot.EdgeIDs,
			MergeTarget: merged.Snapshot.MergeTarget,
			Note:        fmt.Sprintf("reversed merge entry %d", merged.ID),
		},
	}

	err = l.inTx(ctx, func(ctx context.Context, store mutationStore) error {
		snapshot := merged.Snapshot.Types[0]
		if err := store.RestoreTypeRow(ctx, &snapshot); err != nil {
			return err
		}
		if err := store.RewireEdgesByID(ctx, merged.Snapshot.EdgeIDs, source); err != nil {
			return err
		}
		if err := store.RemoveSynonym(ctx, source, merged.Snapshot.MergeTarget); err != nil {
			return err
		}
		return store.AppendHistory(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("unmerged type",
		slog.String("source", source),
		slog.String("target", merged.Snapshot.MergeTarget),
		slog.Int64("merge_entry", merged.ID),
	)
	return entry, nil
}
