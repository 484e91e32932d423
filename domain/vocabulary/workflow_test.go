package vocabulary

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkflowClosedModeSet(t *testing.T) {
	log := slog.Default()

	for _, mode := range []string{ModeNaive, ModeHITL, ModeAITL} {
		w, err := NewWorkflow(mode, nil, nil, log)
		require.NoError(t, err, mode)
		assert.Equal(t, mode, w.Mode())
	}

	_, err := NewWorkflow("autopilot", nil, nil, log)
	assert.Error(t, err)
}

func TestBuildDecisionPrompt(t *testing.T) {
	rec := &PruningRecommendation{
		Action:         ActionMixed,
		Aggressiveness: 0.82,
		Rationale:      "mixed zone",
		Targets: RecommendationTargets{
			Merges: []MergePair{{Source: "IGNITES", Target: "SPARKS", Similarity: 0.94, EdgeImpact: 21}},
			Prunes: []string{"UNUSED_A"},
		},
	}
	prefs := []DecisionPreference{
		{Rule: "never prune MOTIVATED_BY"},
	}

	prompt := BuildDecisionPrompt(rec, prefs)
	assert.Contains(t, prompt, "IGNITES -> SPARKS")
	assert.Contains(t, prompt, "UNUSED_A")
	assert.Contains(t, prompt, "never prune MOTIVATED_BY")
	assert.Contains(t, prompt, `"decision"`)
}

func TestZoneName(t *testing.T) {
	assert.Equal(t, "monitor", ZoneName(0.1, false))
	assert.Equal(t, "watch", ZoneName(0.3, false))
	assert.Equal(t, "merge", ZoneName(0.6, false))
	assert.Equal(t, "mixed", ZoneName(0.8, false))
	assert.Equal(t, "emergency", ZoneName(0.95, false))
	assert.Equal(t, "block", ZoneName(1.0, true))
}

func TestRecommendationFromPlan(t *testing.T) {
	plan := &Plan{
		Action:    ActionMerge,
		Pressure:  0.6,
		Rationale: "merge zone",
		Targets: RecommendationTargets{
			Merges: []MergePair{{Source: "A_X", Target: "B_X", Similarity: 0.92}},
		},
	}

	rec := recommendationFromPlan(plan, ModeHITL)
	assert.Equal(t, ActionMerge, rec.Action)
	assert.Equal(t, RecommendationPending, rec.Status)
	assert.Equal(t, ModeHITL, rec.Mode)
	assert.InDelta(t, 0.6, rec.Aggressiveness, 1e-9)
	assert.Len(t, rec.Targets.Merges, 1)
}
