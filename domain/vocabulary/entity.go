// Package vocabulary implements the self-regulating relationship-type
// taxonomy: admission of novel labels, structural value scoring, synonym
// merging, pressure-driven pruning, and full rollback history.
package vocabulary

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RelationshipType is a named edge label in the taxonomy
type RelationshipType struct {
	bun.BaseModel `bun:"table:kb.relationship_types,alias:rt"`

	Name            string    `bun:"name,pk" json:"name"`
	Category        string    `bun:"category,notnull" json:"category"`
	Embedding       []float32 `bun:"embedding,array" json:"-"`
	UsageCount      int64     `bun:"usage_count,notnull,default:0" json:"usageCount"`
	AvgTraversal    float64   `bun:"avg_traversal_count,notnull,default:0" json:"avgTraversalCount"`
	BridgeCount     int64     `bun:"bridge_count,notnull,default:0" json:"bridgeCount"`
	Trend14d        float64   `bun:"trend_14d,notnull,default:0" json:"trend14d"`
	ValueScore      float64   `bun:"value_score,notnull,default:0" json:"valueScore"`
	IsBuiltin       bool      `bun:"is_builtin,notnull,default:false" json:"isBuiltin"`
	IsActive        bool      `bun:"is_active,notnull,default:true" json:"isActive"`
	Synonyms        []string  `bun:"synonyms,array" json:"synonyms"`
	ReversedWarning bool      `bun:"reversed_warning,notnull,default:false" json:"reversedWarning"`
	FirstSeenAt     time.Time `bun:"first_seen_at,notnull,default:now()" json:"firstSeenAt"`
	UpdatedAt       time.Time `bun:"updated_at,notnull,default:now()" json:"updatedAt"`
}

// Category groups relationship types
type Category struct {
	bun.BaseModel `bun:"table:kb.categories,alias:c"`

	Name        string    `bun:"name,pk" json:"name"`
	Description string    `bun:"description,notnull,default:''" json:"description"`
	IsProtected bool      `bun:"is_protected,notnull,default:false" json:"isProtected"`
	IsActive    bool      `bun:"is_active,notnull,default:true" json:"isActive"`
	SeedTypes   []string  `bun:"seed_types,array" json:"seedTypes"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:now()" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:now()" json:"updatedAt"`
}

// Proposal statuses
const (
	ProposalPending  = "pending"
	ProposalApproved = "approved"
	ProposalRejected = "rejected"
)

// CategoryProposal is a pending request for a new category, created when
// no existing category fits an admitted type. The triggering type keeps
// its fallback category until the proposal is resolved.
type CategoryProposal struct {
	bun.BaseModel `bun:"table:kb.category_proposals,alias:cp"`

	ID               uuid.UUID          `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	ProposedName     string             `bun:"proposed_name,notnull" json:"proposedName"`
	TriggerType      string             `bun:"trigger_type,notnull" json:"triggerType"`
	Confidences      map[string]float64 `bun:"confidences,type:jsonb" json:"confidences"`
	FallbackCategory string             `bun:"fallback_category,notnull" json:"fallbackCategory"`
	Status           string             `bun:"status,notnull,default:'pending'" json:"status"`
	CreatedAt        time.Time          `bun:"created_at,notnull,default:now()" json:"createdAt"`
	ResolvedAt       *time.Time         `bun:"resolved_at" json:"resolvedAt,omitempty"`
}

// Pruning actions
const (
	ActionNone      = "none"
	ActionMerge     = "merge"
	ActionPrune     = "prune"
	ActionMixed     = "mixed"
	ActionEmergency = "emergency"
	ActionBlock     = "block"
)

// Pruning modes
const (
	ModeNaive = "naive"
	ModeHITL  = "hitl"
	ModeAITL  = "aitl"
)

// Recommendation statuses
const (
	RecommendationPending   = "pending"
	RecommendationApproved  = "approved"
	RecommendationRejected  = "rejected"
	RecommendationExecuted  = "executed"
	RecommendationAIDecided = "ai_decided"
	RecommendationEscalated = "escalated"
)

// MergePair is one source-into-target merge within a recommendation
type MergePair struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Similarity float64 `json:"similarity"`
	EdgeImpact int64   `json:"edgeImpact"`
}

// RecommendationTargets holds the concrete actions of a recommendation
type RecommendationTargets struct {
	Merges []MergePair `json:"merges,omitempty"`
	Prunes []string    `json:"prunes,omitempty"`
}

// PruningRecommendation is a batch decision awaiting execution or approval
type PruningRecommendation struct {
	bun.BaseModel `bun:"table:kb.pruning_recommendations,alias:pr"`

	ID             uuid.UUID             `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	Action         string                `bun:"action,notnull" json:"action"`
	Targets        RecommendationTargets `bun:"targets,type:jsonb" json:"targets"`
	Aggressiveness float64               `bun:"aggressiveness,notnull" json:"aggressiveness"`
	Rationale      string                `bun:"rationale,notnull,default:''" json:"rationale"`
	Status         string                `bun:"status,notnull,default:'pending'" json:"status"`
	Mode           string                `bun:"mode,notnull" json:"mode"`
	Confidence     *float64              `bun:"confidence" json:"confidence,omitempty"`
	AIReasoning    *string               `bun:"ai_reasoning" json:"aiReasoning,omitempty"`
	DecidedBy      *string               `bun:"decided_by" json:"decidedBy,omitempty"`
	CreatedAt      time.Time             `bun:"created_at,notnull,default:now()" json:"createdAt"`
	UpdatedAt      time.Time             `bun:"updated_at,notnull,default:now()" json:"updatedAt"`
	ExecutedAt     *time.Time            `bun:"executed_at" json:"executedAt,omitempty"`
}

// History actions
const (
	HistoryAdmit    = "admit"
	HistoryMerge    = "merge"
	HistoryPrune    = "prune"
	HistoryRestore  = "restore"
	HistoryUnmerge  = "unmerge"
	HistoryDecision = "decision"
)

// Performers
const (
	PerformerSystem = "system"
	PerformerUser   = "user"
	PerformerAI     = "ai"
)

// Snapshot captures enough state to fully reverse a mutation
type Snapshot struct {
	// Types are the full rows as they were before the mutation
	Types []RelationshipType `json:"types,omitempty"`

	// EdgeIDs are the edges rewired or soft-deleted by the mutation
	EdgeIDs []uuid.UUID `json:"edgeIds,omitempty"`

	// MergeTarget is the surviving type for merge entries
	MergeTarget string `json:"mergeTarget,omitempty"`

	// Note carries free-form context (decision rationale, admit category)
	Note string `json:"note,omitempty"`
}

// HistoryEntry is one append-only record of a vocabulary mutation
type HistoryEntry struct {
	bun.BaseModel `bun:"table:kb.vocabulary_history,alias:vh"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Action      string    `bun:"action,notnull" json:"action"`
	TypeNames   []string  `bun:"type_names,array" json:"typeNames"`
	PerformedBy string    `bun:"performed_by,notnull" json:"performedBy"`
	MergeTarget *string   `bun:"merge_target" json:"mergeTarget,omitempty"`
	Snapshot    Snapshot  `bun:"snapshot,type:jsonb" json:"snapshot"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:now()" json:"createdAt"`
}

// DecisionPreference is one learned operator rule consulted before any
// AITL decision (e.g. "never prune MOTIVATED_BY").
type DecisionPreference struct {
	bun.BaseModel `bun:"table:kb.decision_preferences,alias:dp"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	Rule      string    `bun:"rule,notnull" json:"rule"`
	CreatedBy string    `bun:"created_by,notnull,default:'operator'" json:"createdBy"`
	IsActive  bool      `bun:"is_active,notnull,default:true" json:"isActive"`
	CreatedAt time.Time `bun:"created_at,notnull,default:now()" json:"createdAt"`
}
