package vocabulary

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/vocab/pkg/apperror"
)

func TestValidateLabel(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		reversed bool
		wantErr  bool
	}{
		{"valid simple", "ENABLES", false, false},
		{"valid with underscore", "DEPENDS_ON", false, false},
		{"valid with digits", "RELATES_2X", false, false},
		{"minimum length", "ABC", false, false},
		{"lowercase rejected", "xyz", false, true},
		{"mixed case rejected", "Enables", false, true},
		{"too short", "AB", false, true},
		{"too long", "A_VERY_LONG_LABEL_THAT_GOES_WELL_PAST_THE_FIFTY_CHARACTER_LIMIT", false, true},
		{"spaces rejected", "PART OF", false, true},
		{"blacklisted", "RELATED", false, true},
		{"reversed smell flagged not rejected", "CREATES_BY", true, false},
		{"another reversed", "OWNED_BY", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reversed, err := ValidateLabel(tt.label)
			if tt.wantErr {
				require.Error(t, err)
				var appErr *apperror.Error
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, "validation_error", appErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.reversed, reversed)
		})
	}
}

func TestClassifyCategoryAssignsBestFit(t *testing.T) {
	types := []RelationshipType{
		{Name: "CAUSES", Category: "causal", Embedding: []float32{1, 0, 0}},
		{Name: "ENABLES", Category: "causal", Embedding: []float32{0.9, 0.1, 0}},
		{Name: "LOCATED_IN", Category: "spatial", Embedding: []float32{0, 1, 0}},
	}

	fit := ClassifyCategory([]float32{1, 0, 0}, types, 0.3)
	assert.Equal(t, "causal", fit.Best)
	assert.True(t, fit.Fits)
	assert.Greater(t, fit.Confidences["causal"], fit.Confidences["spatial"])
}

// Low confidences everywhere still yield a fallback: the closest
// category is assigned even though it is below the threshold.
func TestClassifyCategoryFallbackBelowThreshold(t *testing.T) {
	types := []RelationshipType{
		{Name: "CAUSES", Category: "causal", Embedding: []float32{1, 0, 0, 0}},
		{Name: "PART_OF", Category: "structural", Embedding: []float32{0, 1, 0, 0}},
		{Name: "PRECEDES", Category: "temporal", Embedding: []float32{0, 0, 1, 0}},
	}

	// Roughly equidistant from everything, slightly closest to causal
	labelEmb := []float32{0.28, 0.22, 0.19, 0.92}
	fit := ClassifyCategory(labelEmb, types, 0.3)

	assert.Equal(t, "causal", fit.Best, "fallback is the closest category regardless of fit")
	assert.False(t, fit.Fits)
	assert.Less(t, fit.Confidence, 0.3)
}

func TestClassifyCategorySkipsMissingEmbeddings(t *testing.T) {
	types := []RelationshipType{
		{Name: "CAUSES", Category: "causal"}, // no embedding
	}
	fit := ClassifyCategory([]float32{1, 0}, types, 0.3)
	assert.Empty(t, fit.Best)
	assert.False(t, fit.Fits)
}

func TestProposedCategoryName(t *testing.T) {
	assert.Equal(t, "transforms", proposedCategoryName("TRANSFORMS"))
	assert.Equal(t, "feeds-into", proposedCategoryName("FEEDS_INTO"))
}

// Equal mean similarities must not leave the assignment to map
// iteration order: the lexicographically smaller category wins.
func TestClassifyCategoryTieBreaksOnName(t *testing.T) {
	types := []RelationshipType{
		{Name: "BETA_ONE", Category: "beta", Embedding: []float32{1, 0}},
		{Name: "ALPHA_ONE", Category: "alpha", Embedding: []float32{1, 0}},
	}

	for i := 0; i < 50; i++ {
		fit := ClassifyCategory([]float32{1, 0}, types, 0.3)
		require.Equal(t, "alpha", fit.Best)
		assert.InDelta(t, fit.Confidences["alpha"], fit.Confidences["beta"], 1e-9)
	}
}

func testGate(t *testing.T, repo gateStore, embedder Embedder) *Gate {
	t.Helper()
	settings, err := NewSettings(testVocabConfig())
	require.NoError(t, err)
	return &Gate{repo: repo, embedder: embedder, settings: settings, log: slog.Default()}
}

type failingLookupStore struct {
	*memStore
}

func (s *failingLookupStore) GetType(ctx context.Context, name string) (*RelationshipType, error) {
	return nil, errors.New("connection reset")
}

// A failed vocabulary lookup surfaces as an error; it must not fall
// through to the novel-label path and burn an embedding call.
func TestAdmitPropagatesLookupErrors(t *testing.T) {
	embedder := &countingEmbedder{vector: []float32{1, 0}}
	gate := testGate(t, &failingLookupStore{newMemStore()}, embedder)

	_, err := gate.Admit(context.Background(), "TRANSFORMS")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 0, embedder.calls)
}

// When the insert's capacity guard refuses the row at the hard limit,
// admission reports capacity exhaustion instead of a phantom type.
func TestAdmitRefusedByCapacityGuard(t *testing.T) {
	ctx := context.Background()
	mem := newMemStore()
	seedActiveTypes(mem, 200) // testVocabConfig hard limit
	gate := testGate(t, mem, &countingEmbedder{vector: []float32{1, 0}})

	_, err := gate.Admit(ctx, "OVERFLOWS")
	require.Error(t, err)

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "capacity_exceeded", appErr.Code)

	rt, err := mem.GetType(ctx, "OVERFLOWS")
	require.NoError(t, err)
	assert.Nil(t, rt)
}
