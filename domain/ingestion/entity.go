// Package ingestion feeds extracted relationship edges through the
// vocabulary engine on a persistent queue, so a burst of documents never
// overwhelms admission and failed edges retry with backoff.
package ingestion

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// EdgeIngestJob is one queued relationship edge awaiting admission
type EdgeIngestJob struct {
	bun.BaseModel `bun:"table:kb.edge_ingest_jobs,alias:eij"`

	ID           uuid.UUID      `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	Label        string         `bun:"label,notnull" json:"label"`
	SrcID        uuid.UUID      `bun:"src_id,notnull,type:uuid" json:"srcId"`
	DstID        uuid.UUID      `bun:"dst_id,notnull,type:uuid" json:"dstId"`
	Confidence   float32        `bun:"confidence,notnull,default:1.0" json:"confidence"`
	Status       string         `bun:"status,notnull,default:'pending'" json:"status"`
	Priority     int            `bun:"priority,notnull,default:0" json:"priority"`
	AttemptCount int            `bun:"attempt_count,notnull,default:0" json:"attemptCount"`
	LastError    *string        `bun:"last_error" json:"lastError,omitempty"`
	Result       map[string]any `bun:"result,type:jsonb" json:"result,omitempty"`
	ScheduledAt  time.Time      `bun:"scheduled_at,notnull,default:now()" json:"scheduledAt"`
	StartedAt    *time.Time     `bun:"started_at" json:"startedAt,omitempty"`
	CompletedAt  *time.Time     `bun:"completed_at" json:"completedAt,omitempty"`
	CreatedAt    time.Time      `bun:"created_at,notnull,default:now()" json:"createdAt"`
	UpdatedAt    time.Time      `bun:"updated_at,notnull,default:now()" json:"updatedAt"`
}
