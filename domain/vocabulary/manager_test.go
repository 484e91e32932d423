package vocabulary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/vocab/pkg/apperror"
)

func testManager(t *testing.T, mem *memStore) *Manager {
	t.Helper()

	settings, err := NewSettings(testVocabConfig())
	require.NoError(t, err)

	m := &Manager{
		repo:  mem,
		store: mem,
		gate: &Gate{
			repo:     mem,
			embedder: &countingEmbedder{vector: []float32{1, 0}},
			settings: settings,
			log:      slog.Default(),
		},
		executor: &countingExecutor{},
		settings: settings,
		metrics:  testMetrics,
		log:      slog.Default(),
	}
	m.detector = func() *SynonymDetector {
		cfg := settings.Current()
		return NewSynonymDetector(cfg.SynonymMergeThreshold, cfg.SynonymReviewThreshold)
	}
	return m
}

func seedActiveTypes(mem *memStore, n int) {
	for i := 0; i < n; i++ {
		mem.addType(RelationshipType{
			Name:      fmt.Sprintf("TYPE_%03d", i),
			Category:  "semantic",
			Embedding: []float32{1, 0},
			IsActive:  true,
		})
	}
}

func admitReq(label string) AdmitEdgeRequest {
	return AdmitEdgeRequest{Label: label, SrcID: uuid.New(), DstID: uuid.New(), Confidence: 1}
}

// At the hard limit a novel label is refused outright and nothing is
// written: no type row, no edge, no history entry.
func TestAdmitEdgeRefusesNovelLabelAtHardLimit(t *testing.T) {
	ctx := context.Background()
	mem := newMemStore()
	seedActiveTypes(mem, 200) // testVocabConfig hard limit
	m := testManager(t, mem)

	_, err := m.AdmitEdge(ctx, admitReq("NOVEL_THING"))
	require.Error(t, err)

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "capacity_exceeded", appErr.Code)

	rt, err := mem.GetType(ctx, "NOVEL_THING")
	require.NoError(t, err)
	assert.Nil(t, rt)
	assert.Empty(t, mem.edges)
	assert.Empty(t, mem.history)

	size, err := mem.CountActiveTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 200, size)
}

// Edges over existing types keep flowing at the hard limit; only
// expansion is blocked.
func TestAdmitEdgeExistingLabelPassesAtHardLimit(t *testing.T) {
	ctx := context.Background()
	mem := newMemStore()
	seedActiveTypes(mem, 200)
	m := testManager(t, mem)

	res, err := m.AdmitEdge(ctx, admitReq("TYPE_000"))
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Len(t, mem.edges, 1)
}

// While a recommendation awaits a decision, novel labels are deferred
// with a retryable error rather than admitted underneath the pending
// decision. Existing labels are unaffected, and the same novel label is
// admitted once the recommendation resolves.
func TestAdmitEdgeDefersNovelLabelWhileRecommendationPending(t *testing.T) {
	ctx := context.Background()
	mem := newMemStore()
	seedActiveTypes(mem, 50)
	require.NoError(t, mem.CreateRecommendation(ctx, &PruningRecommendation{
		Action: ActionMerge,
		Mode:   ModeHITL,
		Status: RecommendationPending,
	}))
	m := testManager(t, mem)

	_, err := m.AdmitEdge(ctx, admitReq("BRAND_NEW"))
	require.Error(t, err)

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "expansion_paused", appErr.Code)

	rt, err := mem.GetType(ctx, "BRAND_NEW")
	require.NoError(t, err)
	assert.Nil(t, rt, "deferred label must not be admitted")

	res, err := m.AdmitEdge(ctx, admitReq("TYPE_001"))
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Len(t, mem.edges, 1)

	for _, rec := range mem.recs {
		rec.Status = RecommendationRejected
	}

	res, err = m.AdmitEdge(ctx, admitReq("BRAND_NEW"))
	require.NoError(t, err)
	assert.True(t, res.Created)
}
