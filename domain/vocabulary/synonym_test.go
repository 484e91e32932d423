package vocabulary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testType(name string, embedding []float32, usage int64, builtin bool) RelationshipType {
	return RelationshipType{
		Name:       name,
		Embedding:  embedding,
		UsageCount: usage,
		ValueScore: float64(usage),
		IsBuiltin:  builtin,
		IsActive:   true,
	}
}

func TestDetectBands(t *testing.T) {
	d := NewSynonymDetector(0.90, 0.70)

	types := []RelationshipType{
		testType("ENABLES", []float32{1, 0, 0}, 40, false),
		testType("FACILITATES", []float32{0.99, 0.14, 0}, 10, false), // ~0.99 similar
		testType("LOCATED_IN", []float32{0, 1, 0}, 30, false),       // orthogonal
		testType("NEAR", []float32{0.55, 0.83, 0}, 5, false),        // ~0.83 vs LOCATED_IN
	}

	candidates := d.Detect(types)
	require.Len(t, candidates, 2)

	// Highest edge impact first: ENABLES+FACILITATES = 50
	assert.Equal(t, "FACILITATES", candidates[0].Source)
	assert.Equal(t, "ENABLES", candidates[0].Target)
	assert.False(t, candidates[0].ReviewOnly)
	assert.GreaterOrEqual(t, candidates[0].Similarity, 0.90)

	assert.Equal(t, "NEAR", candidates[1].Source)
	assert.Equal(t, "LOCATED_IN", candidates[1].Target)
	assert.True(t, candidates[1].ReviewOnly, "0.70-0.89 band is review only")
}

func TestDetectSkipsMissingEmbeddings(t *testing.T) {
	d := NewSynonymDetector(0.90, 0.70)
	types := []RelationshipType{
		testType("A_TYPE", nil, 10, false),
		testType("B_TYPE", []float32{1, 0}, 10, false),
	}
	assert.Empty(t, d.Detect(types))
}

func TestOrientPairBuiltinOnlyTarget(t *testing.T) {
	builtin := testType("CAUSES", []float32{1, 0}, 2, true)
	discovered := testType("TRIGGERS", []float32{1, 0}, 50, false)

	src, dst, ok := orientPair(&discovered, &builtin)
	require.True(t, ok)
	assert.Equal(t, "TRIGGERS", src.Name, "builtin must never be the merge source")
	assert.Equal(t, "CAUSES", dst.Name)

	otherBuiltin := testType("ENABLES", []float32{1, 0}, 2, true)
	_, _, ok = orientPair(&builtin, &otherBuiltin)
	assert.False(t, ok, "two builtins are not mergeable")
}

func TestSelectMergeBatchNoChains(t *testing.T) {
	candidates := []SynonymCandidate{
		{Source: "A_X", Target: "B_X", Similarity: 0.95, EdgeImpact: 100},
		{Source: "B_X", Target: "C_X", Similarity: 0.94, EdgeImpact: 90}, // B_X already consumed
		{Source: "D_X", Target: "E_X", Similarity: 0.91, EdgeImpact: 50},
		{Source: "F_X", Target: "G_X", Similarity: 0.80, EdgeImpact: 200, ReviewOnly: true},
	}

	batch := SelectMergeBatch(candidates, 10)
	require.Len(t, batch, 2)
	assert.Equal(t, "A_X", batch[0].Source)
	assert.Equal(t, "D_X", batch[1].Source)
}

func TestSelectMergeBatchRespectsLimit(t *testing.T) {
	candidates := []SynonymCandidate{
		{Source: "A_X", Target: "B_X", Similarity: 0.95, EdgeImpact: 10},
		{Source: "C_X", Target: "D_X", Similarity: 0.93, EdgeImpact: 8},
		{Source: "E_X", Target: "F_X", Similarity: 0.92, EdgeImpact: 5},
	}

	assert.Len(t, SelectMergeBatch(candidates, 2), 2)
	assert.Empty(t, SelectMergeBatch(candidates, 0))
}
