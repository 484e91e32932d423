// Package graph stores knowledge-graph nodes and edges and derives the
// usage statistics the vocabulary engine scores relationship types with.
package graph

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Node is a knowledge-graph node
type Node struct {
	bun.BaseModel `bun:"table:kb.graph_nodes,alias:n"`

	ID          uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	AccessCount int64     `bun:"access_count,notnull,default:0" json:"accessCount"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:now()" json:"createdAt"`
}

// Edge is a typed, directed relationship between two nodes
type Edge struct {
	bun.BaseModel `bun:"table:kb.graph_edges,alias:e"`

	ID             uuid.UUID  `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	SrcID          uuid.UUID  `bun:"src_id,notnull,type:uuid" json:"srcId"`
	DstID          uuid.UUID  `bun:"dst_id,notnull,type:uuid" json:"dstId"`
	Type           string     `bun:"type,notnull" json:"type"`
	Confidence     float32    `bun:"confidence,notnull,default:1.0" json:"confidence"`
	TraversalCount int64      `bun:"traversal_count,notnull,default:0" json:"traversalCount"`
	CreatedAt      time.Time  `bun:"created_at,notnull,default:now()" json:"createdAt"`
	DeletedAt      *time.Time `bun:"deleted_at" json:"deletedAt,omitempty"`
}

// UsageStats aggregates how a relationship type is used across the graph
type UsageStats struct {
	Type            string  `json:"type"`
	UsageCount      int64   `json:"usageCount"`
	AvgTraversal    float64 `json:"avgTraversal"`
	BridgeCount     int64   `json:"bridgeCount"`
	Trend14d        float64 `json:"trend14d"`
	OldestEdgeAgeHr float64 `json:"oldestEdgeAgeHr"`
}

// Activity thresholds for bridge detection. An edge is a bridge when it
// connects a rarely-accessed node to a frequently-accessed one.
const (
	lowActivityMax   = 10
	highActivityMin  = 100
	trendWindowHours = 14 * 24
)
