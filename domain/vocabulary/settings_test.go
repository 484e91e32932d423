package vocabulary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/vocab/internal/config"
)

func testVocabConfig() config.VocabularyConfig {
	return config.VocabularyConfig{
		Min:                     30,
		Max:                     90,
		HardLimit:               200,
		CategoryMin:             8,
		CategoryMax:             15,
		PruningMode:             ModeHITL,
		AggressivenessProfile:   "ease",
		AITLConfidenceThreshold: 0.7,
		PruneBatchBuffer:        5,
		SynonymMergeThreshold:   0.90,
		SynonymReviewThreshold:  0.70,
		CategoryFitThreshold:    0.3,
	}
}

func TestNewSettings(t *testing.T) {
	settings, err := NewSettings(testVocabConfig())
	require.NoError(t, err)

	cfg := settings.Current()
	assert.Equal(t, 90, cfg.Max)
	assert.Equal(t, ModeHITL, cfg.PruningMode)
	assert.Equal(t, "ease", settings.Curve().Profile())
}

func TestNewSettingsRejectsBadWindow(t *testing.T) {
	bad := testVocabConfig()
	bad.HardLimit = 50
	_, err := NewSettings(bad)
	assert.Error(t, err)
}

func TestSettingsUpdatePartial(t *testing.T) {
	settings, err := NewSettings(testVocabConfig())
	require.NoError(t, err)

	newMax := 120
	mode := ModeAITL
	cfg, err := settings.Update(ConfigUpdate{Max: &newMax, PruningMode: &mode})
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.Max)
	assert.Equal(t, ModeAITL, cfg.PruningMode)
	assert.Equal(t, 30, cfg.Min, "untouched fields keep their values")

	// The curve follows the new window
	_, max, _ := settings.Curve().Window()
	assert.Equal(t, 120, max)
}

func TestSettingsUpdateRejectsAtomically(t *testing.T) {
	settings, err := NewSettings(testVocabConfig())
	require.NoError(t, err)

	badMode := "yolo"
	newMax := 120
	_, err = settings.Update(ConfigUpdate{Max: &newMax, PruningMode: &badMode})
	require.Error(t, err)

	cfg := settings.Current()
	assert.Equal(t, 90, cfg.Max, "nothing applies when any field is invalid")
	assert.Equal(t, ModeHITL, cfg.PruningMode)
}

func TestSettingsUpdateRebuildsCurveProfile(t *testing.T) {
	settings, err := NewSettings(testVocabConfig())
	require.NoError(t, err)

	profile := "aggressive"
	_, err = settings.Update(ConfigUpdate{AggressivenessProfile: &profile})
	require.NoError(t, err)
	assert.Equal(t, "aggressive", settings.Curve().Profile())

	unknown := "no-such-curve"
	_, err = settings.Update(ConfigUpdate{AggressivenessProfile: &unknown})
	assert.Error(t, err)
	assert.Equal(t, "aggressive", settings.Curve().Profile())
}
