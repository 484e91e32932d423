package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/emergent-company/vocab/pkg/logger"
)

// Repository provides access to graph nodes and edges
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new graph repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("graph-repository")),
	}
}

// CreateNode inserts a node
func (r *Repository) CreateNode(ctx context.Context, node *Node) error {
	if node.ID == uuid.Nil {
		node.ID = uuid.New()
	}
	if _, err := r.db.NewInsert().Model(node).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}
	return nil
}

// GetNode fetches a node by ID
func (r *Repository) GetNode(ctx context.Context, id uuid.UUID) (*Node, error) {
	node := new(Node)
	if err := r.db.NewSelect().Model(node).Where("n.id = ?", id).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	return node, nil
}

// CreateEdge inserts a typed edge between two nodes
func (r *Repository) CreateEdge(ctx context.Context, edge *Edge) error {
	if edge.ID == uuid.Nil {
		edge.ID = uuid.New()
	}
	if _, err := r.db.NewInsert().Model(edge).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create edge: %w", err)
	}
	return nil
}

// TraverseEdge records a traversal: the edge's traversal count and both
// endpoint access counts are incremented.
func (r *Repository) TraverseEdge(ctx context.Context, edgeID uuid.UUID) error {
	edge := new(Edge)
	err := r.db.NewUpdate().
		Model(edge).
		Set("traversal_count = traversal_count + 1").
		Where("e.id = ?", edgeID).
		Where("e.deleted_at IS NULL").
		Returning("*").
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to traverse edge: %w", err)
	}

	_, err = r.db.NewUpdate().
		Model((*Node)(nil)).
		Set("access_count = access_count + 1").
		Where("n.id IN (?)", bun.In([]uuid.UUID{edge.SrcID, edge.DstID})).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to bump node access counts: %w", err)
	}
	return nil
}

// CountEdgesByType returns the number of active edges with the given type
func (r *Repository) CountEdgesByType(ctx context.Context, typeName string) (int64, error) {
	count, err := r.db.NewSelect().
		Model((*Edge)(nil)).
		Where("e.type = ?", typeName).
		Where("e.deleted_at IS NULL").
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count edges: %w", err)
	}
	return int64(count), nil
}

// GetUsageStats computes usage statistics for a single relationship type
func (r *Repository) GetUsageStats(ctx context.Context, typeName string) (*UsageStats, error) {
	stats, err := r.getUsageStats(ctx, []string{typeName})
	if err != nil {
		return nil, err
	}
	if s, ok := stats[typeName]; ok {
		return s, nil
	}
	// No edges yet: everything is zero
	return &UsageStats{Type: typeName}, nil
}

// GetAllUsageStats computes usage statistics for every type that has at
// least one active edge, keyed by type name.
func (r *Repository) GetAllUsageStats(ctx context.Context) (map[string]*UsageStats, error) {
	return r.getUsageStats(ctx, nil)
}

func (r *Repository) getUsageStats(ctx context.Context, types []string) (map[string]*UsageStats, error) {
	var rows []struct {
		Type         string  `bun:"type"`
		UsageCount   int64   `bun:"usage_count"`
		AvgTraversal float64 `bun:"avg_traversal"`
		BridgeCount  int64   `bun:"bridge_count"`
		Recent       int64   `bun:"recent"`
		Prior        int64   `bun:"prior"`
	}

	q := r.db.NewSelect().
		TableExpr("kb.graph_edges AS e").
		Join("JOIN kb.graph_nodes AS src ON src.id = e.src_id").
		Join("JOIN kb.graph_nodes AS dst ON dst.id = e.dst_id").
		ColumnExpr("e.type").
		ColumnExpr("count(*) AS usage_count").
		ColumnExpr("coalesce(avg(e.traversal_count), 0) AS avg_traversal").
		ColumnExpr(
			"count(*) FILTER (WHERE (src.access_count < ? AND dst.access_count > ?) OR (src.access_count > ? AND dst.access_count < ?)) AS bridge_count",
			lowActivityMax, highActivityMin, highActivityMin, lowActivityMax,
		).
		ColumnExpr("count(*) FILTER (WHERE e.created_at > now() - interval '14 days') AS recent").
		ColumnExpr("count(*) FILTER (WHERE e.created_at <= now() - interval '14 days' AND e.created_at > now() - interval '28 days') AS prior").
		Where("e.deleted_at IS NULL").
		GroupExpr("e.type")

	if len(types) > 0 {
		q = q.Where("e.type IN (?)", bun.In(types))
	}

	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to compute usage stats: %w", err)
	}

	stats := make(map[string]*UsageStats, len(rows))
	for _, row := range rows {
		stats[row.Type] = &UsageStats{
			Type:         row.Type,
			UsageCount:   row.UsageCount,
			AvgTraversal: row.AvgTraversal,
			BridgeCount:  row.BridgeCount,
			Trend14d:     trend(row.Recent, row.Prior),
		}
	}
	return stats, nil
}

// trend is the relative growth of edge creation over the last 14 days
// compared to the 14 days before that.
func trend(recent, prior int64) float64 {
	if prior == 0 {
		if recent == 0 {
			return 0
		}
		return 1
	}
	return float64(recent-prior) / float64(prior)
}

// RewireEdges relabels all active edges of the given types to toType and
// returns the IDs of the affected edges so the operation can be undone.
func (r *Repository) RewireEdges(ctx context.Context, fromTypes []string, toType string) ([]uuid.UUID, error) {
	if len(fromTypes) == 0 {
		return nil, nil
	}

	var ids []uuid.UUID
	err := r.db.NewUpdate().
		Model((*Edge)(nil)).
		Set("type = ?", toType).
		Where("e.type IN (?)", bun.In(fromTypes)).
		Where("e.deleted_at IS NULL").
		Returning("e.id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("failed to rewire edges: %w", err)
	}

	r.log.Info("rewired edges",
		slog.Int("count", len(ids)),
		slog.String("to", toType),
	)
	return ids, nil
}

// RewireEdgesByID relabels specific edges to toType. Used by unmerge to
// send edges back to a restored type.
func (r *Repository) RewireEdgesByID(ctx context.Context, ids []uuid.UUID, toType string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.NewUpdate().
		Model((*Edge)(nil)).
		Set("type = ?", toType).
		Where("e.id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to rewire edges by id: %w", err)
	}
	return nil
}

// SoftDeleteEdgesByType marks all active edges of the given types deleted
// and returns the affected edge IDs for the history snapshot.
func (r *Repository) SoftDeleteEdgesByType(ctx context.Context, types []string) ([]uuid.UUID, error) {
	if len(types) == 0 {
		return nil, nil
	}

	var ids []uuid.UUID
	err := r.db.NewUpdate().
		Model((*Edge)(nil)).
		Set("deleted_at = ?", time.Now()).
		Where("e.type IN (?)", bun.In(types)).
		Where("e.deleted_at IS NULL").
		Returning("e.id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("failed to soft-delete edges: %w", err)
	}
	return ids, nil
}

// RestoreEdgesByID clears deleted_at on the given edges. Used by restore
// to bring a pruned type's edges back.
func (r *Repository) RestoreEdgesByID(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.NewUpdate().
		Model((*Edge)(nil)).
		Set("deleted_at = NULL").
		Where("e.id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore edges: %w", err)
	}
	return nil
}
