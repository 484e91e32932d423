package vocabulary

import (
	"fmt"
	"sync"
	"time"

	"github.com/emergent-company/vocab/internal/config"
	"github.com/emergent-company/vocab/pkg/apperror"
)

// RuntimeConfig is the adjustable policy of the vocabulary engine. The
// boot values come from the environment; operators can change them at
// runtime through the API.
type RuntimeConfig struct {
	Min                     int     `json:"vocabMin"`
	Max                     int     `json:"vocabMax"`
	HardLimit               int     `json:"hardLimit"`
	CategoryMin             int     `json:"categoryMin"`
	CategoryMax             int     `json:"categoryMax"`
	PruningMode             string  `json:"pruningMode"`
	AggressivenessProfile   string  `json:"aggressivenessProfile"`
	AggressivenessPoints    string  `json:"aggressivenessPoints,omitempty"`
	AITLConfidenceThreshold float64 `json:"aitlConfidenceThreshold"`
	PruneBatchBuffer        int     `json:"pruneBatchBuffer"`
	SynonymMergeThreshold   float64 `json:"synonymMergeThreshold"`
	SynonymReviewThreshold  float64 `json:"synonymReviewThreshold"`
	CategoryFitThreshold    float64 `json:"categoryFitThreshold"`
}

func (rc *RuntimeConfig) validate() error {
	if rc.Min <= 0 || rc.Max <= rc.Min || rc.HardLimit <= rc.Max {
		return fmt.Errorf("invalid vocabulary window: min=%d max=%d hard_limit=%d", rc.Min, rc.Max, rc.HardLimit)
	}
	if rc.CategoryMin <= 0 || rc.CategoryMax < rc.CategoryMin {
		return fmt.Errorf("invalid category window: min=%d max=%d", rc.CategoryMin, rc.CategoryMax)
	}
	switch rc.PruningMode {
	case ModeNaive, ModeHITL, ModeAITL:
	default:
		return fmt.Errorf("invalid pruning mode: %s", rc.PruningMode)
	}
	if rc.AITLConfidenceThreshold < 0 || rc.AITLConfidenceThreshold > 1 {
		return fmt.Errorf("invalid AITL confidence threshold: %f", rc.AITLConfidenceThreshold)
	}
	if rc.SynonymReviewThreshold > rc.SynonymMergeThreshold {
		return fmt.Errorf("review threshold %f above merge threshold %f", rc.SynonymReviewThreshold, rc.SynonymMergeThreshold)
	}
	return nil
}

// ConfigUpdate is a partial runtime configuration change; nil fields are
// left untouched.
type ConfigUpdate struct {
	Min                     *int     `json:"vocabMin,omitempty"`
	Max                     *int     `json:"vocabMax,omitempty"`
	HardLimit               *int     `json:"hardLimit,omitempty"`
	CategoryMin             *int     `json:"categoryMin,omitempty"`
	CategoryMax             *int     `json:"categoryMax,omitempty"`
	PruningMode             *string  `json:"pruningMode,omitempty"`
	AggressivenessProfile   *string  `json:"aggressivenessProfile,omitempty"`
	AggressivenessPoints    *string  `json:"aggressivenessPoints,omitempty"`
	AITLConfidenceThreshold *float64 `json:"aitlConfidenceThreshold,omitempty"`
	PruneBatchBuffer        *int     `json:"pruneBatchBuffer,omitempty"`
}

// Settings holds the engine's runtime configuration and the pressure
// curve derived from it. All reads see a consistent snapshot.
type Settings struct {
	mu           sync.RWMutex
	cfg          RuntimeConfig
	curve        *Curve
	profilesPath string
	aitlTimeout  time.Duration
}

// NewSettings builds runtime settings from the boot configuration
func NewSettings(vc config.VocabularyConfig) (*Settings, error) {
	cfg := RuntimeConfig{
		Min:                     vc.Min,
		Max:                     vc.Max,
		HardLimit:               vc.HardLimit,
		CategoryMin:             vc.CategoryMin,
		CategoryMax:             vc.CategoryMax,
		PruningMode:             vc.PruningMode,
		AggressivenessProfile:   vc.AggressivenessProfile,
		AggressivenessPoints:    vc.AggressivenessPoints,
		AITLConfidenceThreshold: vc.AITLConfidenceThreshold,
		PruneBatchBuffer:        vc.PruneBatchBuffer,
		SynonymMergeThreshold:   vc.SynonymMergeThreshold,
		SynonymReviewThreshold:  vc.SynonymReviewThreshold,
		CategoryFitThreshold:    vc.CategoryFitThreshold,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	curve, err := NewCurve(cfg.AggressivenessProfile, cfg.AggressivenessPoints, cfg.Min, cfg.Max, cfg.HardLimit, vc.CurveProfilesPath)
	if err != nil {
		return nil, err
	}

	timeout := vc.AITLTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Settings{
		cfg:          cfg,
		curve:        curve,
		profilesPath: vc.CurveProfilesPath,
		aitlTimeout:  timeout,
	}, nil
}

// AITLTimeout bounds a single reasoning call
func (s *Settings) AITLTimeout() time.Duration {
	return s.aitlTimeout
}

// Current returns a copy of the runtime configuration
func (s *Settings) Current() RuntimeConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Curve returns the active pressure curve
func (s *Settings) Curve() *Curve {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.curve
}

// Update applies a partial configuration change, rebuilding the pressure
// curve when the window or profile changed. Invalid updates are rejected
// atomically: either the whole change applies or none of it does.
func (s *Settings) Update(u ConfigUpdate) (RuntimeConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	if u.Min != nil {
		next.Min = *u.Min
	}
	if u.Max != nil {
		next.Max = *u.Max
	}
	if u.HardLimit != nil {
		next.HardLimit = *u.HardLimit
	}
	if u.CategoryMin != nil {
		next.CategoryMin = *u.CategoryMin
	}
	if u.CategoryMax != nil {
		next.CategoryMax = *u.CategoryMax
	}
	if u.PruningMode != nil {
		next.PruningMode = *u.PruningMode
	}
	if u.AggressivenessProfile != nil {
		next.AggressivenessProfile = *u.AggressivenessProfile
	}
	if u.AggressivenessPoints != nil {
		next.AggressivenessPoints = *u.AggressivenessPoints
	}
	if u.AITLConfidenceThreshold != nil {
		next.AITLConfidenceThreshold = *u.AITLConfidenceThreshold
	}
	if u.PruneBatchBuffer != nil {
		next.PruneBatchBuffer = *u.PruneBatchBuffer
	}

	if err := next.validate(); err != nil {
		return s.cfg, apperror.NewValidation(err.Error())
	}

	curve, err := NewCurve(next.AggressivenessProfile, next.AggressivenessPoints, next.Min, next.Max, next.HardLimit, s.profilesPath)
	if err != nil {
		return s.cfg, apperror.NewValidation(err.Error())
	}

	s.cfg = next
	s.curve = curve
	return s.cfg, nil
}
