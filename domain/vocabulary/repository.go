package vocabulary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/emergent-company/vocab/pkg/apperror"
)

// Repository handles database operations for the vocabulary engine
type Repository struct {
	db bun.IDB
}

// NewRepository creates a new vocabulary repository
func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *Repository) WithTx(tx bun.Tx) *Repository {
	return &Repository{db: tx}
}

// --- relationship types ---

// GetType fetches a type by name; returns (nil, nil) when absent
func (r *Repository) GetType(ctx context.Context, name string) (*RelationshipType, error) {
	rt := new(RelationshipType)
	err := r.db.NewSelect().Model(rt).Where("rt.name = ?", name).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get type: %w", err)
	}
	return rt, nil
}

// InsertTypeIfAbsentUnderCap atomically creates the type row if no row
// with the same name exists AND the active vocabulary is still below
// hardLimit. Both checks ride on a single guarded insert, so concurrent
// admissions can neither duplicate a label nor push the count past the
// limit. Returns true when this call created the row.
func (r *Repository) InsertTypeIfAbsentUnderCap(ctx context.Context, rt *RelationshipType, hardLimit int) (bool, error) {
	res, err := r.db.NewRaw(`
		INSERT INTO kb.relationship_types
			(name, category, embedding, is_active, reversed_warning, synonyms)
		SELECT ?, ?, ?, true, ?, ?
		WHERE (SELECT count(*) FROM kb.relationship_types WHERE is_active) < ?
		ON CONFLICT (name) DO NOTHING`,
		rt.Name, rt.Category, pgdialect.Array(rt.Embedding), rt.ReversedWarning,
		pgdialect.Array(rt.Synonyms), hardLimit).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to insert type: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return affected == 1, nil
}

// ReactivateType flips a logically deleted type back to active
func (r *Repository) ReactivateType(ctx context.Context, name string) error {
	_, err := r.db.NewUpdate().
		Model((*RelationshipType)(nil)).
		Set("is_active = true").
		Set("updated_at = now()").
		Where("rt.name = ?", name).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to reactivate type: %w", err)
	}
	return nil
}

// GetActiveTypes returns all active types including cached embeddings
func (r *Repository) GetActiveTypes(ctx context.Context) ([]RelationshipType, error) {
	var types []RelationshipType
	err := r.db.NewSelect().
		Model(&types).
		Where("rt.is_active").
		Order("rt.name").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active types: %w", err)
	}
	return types, nil
}

// CountActiveTypes returns the current vocabulary size
func (r *Repository) CountActiveTypes(ctx context.Context) (int, error) {
	count, err := r.db.NewSelect().
		Model((*RelationshipType)(nil)).
		Where("rt.is_active").
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count active types: %w", err)
	}
	return count, nil
}

// IncrementUsage bumps a type's usage counter on edge creation
func (r *Repository) IncrementUsage(ctx context.Context, name string) error {
	_, err := r.db.NewUpdate().
		Model((*RelationshipType)(nil)).
		Set("usage_count = usage_count + 1").
		Set("updated_at = now()").
		Where("rt.name = ?", name).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return nil
}

// UpdateTypeStats persists recomputed usage statistics and value score
func (r *Repository) UpdateTypeStats(ctx context.Context, rt *RelationshipType) error {
	_, err := r.db.NewUpdate().
		Model(rt).
		Column("usage_count", "avg_traversal_count", "bridge_count", "trend_14d", "value_score").
		Set("updated_at = now()").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update type stats: %w", err)
	}
	return nil
}

// DeactivateType logically deletes a type. Builtins are refused.
func (r *Repository) DeactivateType(ctx context.Context, name string) error {
	rt, err := r.GetType(ctx, name)
	if err != nil {
		return err
	}
	if rt == nil {
		return apperror.NewNotFound("RelationshipType", name)
	}
	if rt.IsBuiltin {
		return apperror.NewInvariantViolation(fmt.Sprintf("builtin type %s cannot be deleted", name))
	}

	_, err = r.db.NewUpdate().
		Model((*RelationshipType)(nil)).
		Set("is_active = false").
		Set("updated_at = now()").
		Where("rt.name = ?", name).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to deactivate type: %w", err)
	}
	return nil
}

// RecordMerge marks source inactive and registers it as a synonym of
// target. The caller is responsible for rewiring the edges.
func (r *Repository) RecordMerge(ctx context.Context, source, target string) error {
	if err := r.DeactivateType(ctx, source); err != nil {
		return err
	}
	_, err := r.db.NewUpdate().
		Model((*RelationshipType)(nil)).
		Set("synonyms = array_append(synonyms, ?)", source).
		Set("updated_at = now()").
		Where("rt.name = ?", target).
		Where("NOT (? = ANY(synonyms))", source).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record synonym: %w", err)
	}
	return nil
}

// RemoveSynonym detaches a synonym from its merge target (unmerge)
func (r *Repository) RemoveSynonym(ctx context.Context, source, target string) error {
	_, err := r.db.NewUpdate().
		Model((*RelationshipType)(nil)).
		Set("synonyms = array_remove(synonyms, ?)", source).
		Set("updated_at = now()").
		Where("rt.name = ?", target).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove synonym: %w", err)
	}
	return nil
}

// RestoreTypeRow writes back a full snapshot row, reactivating it
func (r *Repository) RestoreTypeRow(ctx context.Context, rt *RelationshipType) error {
	rt.IsActive = true
	_, err := r.db.NewInsert().
		Model(rt).
		On("CONFLICT (name) DO UPDATE").
		Set("category = EXCLUDED.category").
		Set("embedding = EXCLUDED.embedding").
		Set("usage_count = EXCLUDED.usage_count").
		Set("is_active = true").
		Set("synonyms = EXCLUDED.synonyms").
		Set("updated_at = now()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore type row: %w", err)
	}
	return nil
}

// --- categories ---

// GetCategories returns all active categories
func (r *Repository) GetCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	err := r.db.NewSelect().
		Model(&categories).
		Where("c.is_active").
		Order("c.name").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// CountActiveCategories returns the active category count
func (r *Repository) CountActiveCategories(ctx context.Context) (int, error) {
	count, err := r.db.NewSelect().
		Model((*Category)(nil)).
		Where("c.is_active").
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return count, nil
}

// CategoryStats is the per-category summary exposed to operators
type CategoryStats struct {
	Name        string  `bun:"name" json:"name"`
	IsProtected bool    `bun:"is_protected" json:"isProtected"`
	TypeCount   int     `bun:"type_count" json:"typeCount"`
	TotalUsage  int64   `bun:"total_usage" json:"totalUsage"`
	AvgScore    float64 `bun:"avg_score" json:"avgScore"`
}

// GetCategoryStats aggregates type counts and scores per category
func (r *Repository) GetCategoryStats(ctx context.Context) ([]CategoryStats, error) {
	var stats []CategoryStats
	err := r.db.NewSelect().
		TableExpr("kb.categories AS c").
		Join("LEFT JOIN kb.relationship_types AS rt ON rt.category = c.name AND rt.is_active").
		ColumnExpr("c.name").
		ColumnExpr("c.is_protected").
		ColumnExpr("count(rt.name) AS type_count").
		ColumnExpr("coalesce(sum(rt.usage_count), 0) AS total_usage").
		ColumnExpr("coalesce(avg(rt.value_score), 0) AS avg_score").
		Where("c.is_active").
		GroupExpr("c.name, c.is_protected").
		OrderExpr("c.name").
		Scan(ctx, &stats)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate category stats: %w", err)
	}
	return stats, nil
}

// CreateCategory inserts a new category, enforcing the category window
func (r *Repository) CreateCategory(ctx context.Context, category *Category, categoryMax int) error {
	count, err := r.CountActiveCategories(ctx)
	if err != nil {
		return err
	}
	if count >= categoryMax {
		return apperror.NewInvariantViolation(
			fmt.Sprintf("category count %d already at maximum %d; merge categories first", count, categoryMax))
	}

	_, err = r.db.NewInsert().Model(category).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// --- category proposals ---

// CreateCategoryProposal queues a proposal for review
func (r *Repository) CreateCategoryProposal(ctx context.Context, proposal *CategoryProposal) error {
	if proposal.ID == uuid.Nil {
		proposal.ID = uuid.New()
	}
	if _, err := r.db.NewInsert().Model(proposal).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create category proposal: %w", err)
	}
	return nil
}

// GetCategoryProposal fetches a proposal by ID
func (r *Repository) GetCategoryProposal(ctx context.Context, id uuid.UUID) (*CategoryProposal, error) {
	proposal := new(CategoryProposal)
	err := r.db.NewSelect().Model(proposal).Where("cp.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("CategoryProposal", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category proposal: %w", err)
	}
	return proposal, nil
}

// ListCategoryProposals returns proposals, optionally filtered by status
func (r *Repository) ListCategoryProposals(ctx context.Context, status string) ([]CategoryProposal, error) {
	var proposals []CategoryProposal
	q := r.db.NewSelect().Model(&proposals).Order("cp.created_at DESC")
	if status != "" {
		q = q.Where("cp.status = ?", status)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list category proposals: %w", err)
	}
	return proposals, nil
}

// ResolveCategoryProposal marks a pending proposal approved or rejected
func (r *Repository) ResolveCategoryProposal(ctx context.Context, id uuid.UUID, status string) error {
	res, err := r.db.NewUpdate().
		Model((*CategoryProposal)(nil)).
		Set("status = ?", status).
		Set("resolved_at = now()").
		Where("cp.id = ?", id).
		Where("cp.status = ?", ProposalPending).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve proposal: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return apperror.ErrConflict.WithMessage("proposal is not pending")
	}
	return nil
}

// ReassignTypeCategory moves a type to a different category
func (r *Repository) ReassignTypeCategory(ctx context.Context, typeName, category string) error {
	_, err := r.db.NewUpdate().
		Model((*RelationshipType)(nil)).
		Set("category = ?", category).
		Set("updated_at = now()").
		Where("rt.name = ?", typeName).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to reassign category: %w", err)
	}
	return nil
}

// --- pruning recommendations ---

// CreateRecommendation persists a new recommendation
func (r *Repository) CreateRecommendation(ctx context.Context, rec *PruningRecommendation) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if _, err := r.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create recommendation: %w", err)
	}
	return nil
}

// GetRecommendation fetches a recommendation by ID
func (r *Repository) GetRecommendation(ctx context.Context, id uuid.UUID) (*PruningRecommendation, error) {
	rec := new(PruningRecommendation)
	err := r.db.NewSelect().Model(rec).Where("pr.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("PruningRecommendation", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation: %w", err)
	}
	return rec, nil
}

// ListRecommendations returns recommendations, optionally by status
func (r *Repository) ListRecommendations(ctx context.Context, status string) ([]PruningRecommendation, error) {
	var recs []PruningRecommendation
	q := r.db.NewSelect().Model(&recs).Order("pr.created_at DESC").Limit(200)
	if status != "" {
		q = q.Where("pr.status = ?", status)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	return recs, nil
}

// ListPendingAITL returns pending AITL recommendations oldest first
func (r *Repository) ListPendingAITL(ctx context.Context, limit int) ([]PruningRecommendation, error) {
	var recs []PruningRecommendation
	err := r.db.NewSelect().
		Model(&recs).
		Where("pr.status = ?", RecommendationPending).
		Where("pr.mode = ?", ModeAITL).
		Order("pr.created_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending AITL recommendations: %w", err)
	}
	return recs, nil
}

// HasUnresolvedRecommendation reports whether any recommendation is
// still awaiting a decision. Admission-triggered pruning pauses while
// one is open.
func (r *Repository) HasUnresolvedRecommendation(ctx context.Context) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*PruningRecommendation)(nil)).
		Where("pr.status IN (?)", bun.In([]string{RecommendationPending, RecommendationAIDecided, RecommendationEscalated})).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check pending recommendations: %w", err)
	}
	return count > 0, nil
}

// TransitionRecommendation moves a recommendation from one status to
// another atomically; a conflict error is returned when the row is no
// longer in the expected state.
func (r *Repository) TransitionRecommendation(ctx context.Context, id uuid.UUID, from []string, to string, decidedBy string) error {
	q := r.db.NewUpdate().
		Model((*PruningRecommendation)(nil)).
		Set("status = ?", to).
		Set("updated_at = now()").
		Where("pr.id = ?", id).
		Where("pr.status IN (?)", bun.In(from))
	if decidedBy != "" {
		q = q.Set("decided_by = ?", decidedBy)
	}
	if to == RecommendationExecuted {
		q = q.Set("executed_at = now()")
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to transition recommendation: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return apperror.ErrConflict.WithMessage(
			fmt.Sprintf("recommendation %s is not in state %v", id, from))
	}
	return nil
}

// RecordAIDecision stores the reasoning outcome on a recommendation
func (r *Repository) RecordAIDecision(ctx context.Context, id uuid.UUID, confidence float64, reasoning, status string) error {
	_, err := r.db.NewUpdate().
		Model((*PruningRecommendation)(nil)).
		Set("confidence = ?", confidence).
		Set("ai_reasoning = ?", reasoning).
		Set("status = ?", status).
		Set("decided_by = 'ai'").
		Set("updated_at = now()").
		Where("pr.id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record AI decision: %w", err)
	}
	return nil
}

// --- history ---

// AppendHistory writes one append-only history entry
func (r *Repository) AppendHistory(ctx context.Context, entry *HistoryEntry) error {
	if _, err := r.db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// ListHistory returns history entries newest first
func (r *Repository) ListHistory(ctx context.Context, limit, offset int) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	err := r.db.NewSelect().
		Model(&entries).
		Order("vh.id DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return entries, nil
}

// LatestHistoryFor returns the most recent entry of the given action
// that touched typeName, or nil when none exists.
func (r *Repository) LatestHistoryFor(ctx context.Context, typeName, action string) (*HistoryEntry, error) {
	entry := new(HistoryEntry)
	err := r.db.NewSelect().
		Model(entry).
		Where("vh.action = ?", action).
		Where("? = ANY(vh.type_names)", typeName).
		Order("vh.id DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find history entry: %w", err)
	}
	return entry, nil
}

// --- decision preferences ---

// AddPreference appends a learned operator rule
func (r *Repository) AddPreference(ctx context.Context, pref *DecisionPreference) error {
	if pref.ID == uuid.Nil {
		pref.ID = uuid.New()
	}
	if _, err := r.db.NewInsert().Model(pref).Exec(ctx); err != nil {
		return fmt.Errorf("failed to add preference: %w", err)
	}
	return nil
}

// ListActivePreferences returns all active rules oldest first
func (r *Repository) ListActivePreferences(ctx context.Context) ([]DecisionPreference, error) {
	var prefs []DecisionPreference
	err := r.db.NewSelect().
		Model(&prefs).
		Where("dp.is_active").
		Order("dp.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	return prefs, nil
}
