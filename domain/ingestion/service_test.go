package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/vocab/pkg/apperror"
)

// Malformed labels never reach the queue: enqueueing fails fast instead
// of burning worker retries on an edge that can never be admitted.
func TestEnqueueRejectsInvalidLabel(t *testing.T) {
	svc := &Service{log: slog.Default()}

	job := &EdgeIngestJob{
		Label: "related",
		SrcID: uuid.New(),
		DstID: uuid.New(),
	}
	err := svc.Enqueue(context.Background(), job)
	require.Error(t, err)

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "validation_error", appErr.Code)
}

func TestEnqueueRejectsBlacklistedLabel(t *testing.T) {
	svc := &Service{log: slog.Default()}

	err := svc.Enqueue(context.Background(), &EdgeIngestJob{
		Label: "RELATED",
		SrcID: uuid.New(),
		DstID: uuid.New(),
	})
	assert.Error(t, err)
}
