package vocabulary

import (
	"sort"

	"github.com/emergent-company/vocab/pkg/mathutil"
)

// SynonymCandidate is a near-duplicate type pair found by embedding
// similarity. Source is the type that would be merged away, Target the
// one that survives.
type SynonymCandidate struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Similarity float64 `json:"similarity"`

	// EdgeImpact is the combined active edge count of both members.
	// Ranking by impact prefers merges that preserve the most data.
	EdgeImpact int64 `json:"edgeImpact"`

	// ReviewOnly marks pairs in the manual-review band: flagged but
	// never auto-merged.
	ReviewOnly bool `json:"reviewOnly"`
}

// SynonymDetector finds merge candidates among the active vocabulary
type SynonymDetector struct {
	mergeThreshold  float64
	reviewThreshold float64
}

// NewSynonymDetector creates a detector with the given similarity bands
func NewSynonymDetector(mergeThreshold, reviewThreshold float64) *SynonymDetector {
	return &SynonymDetector{
		mergeThreshold:  mergeThreshold,
		reviewThreshold: reviewThreshold,
	}
}

// Detect computes pairwise cosine similarity over the given types and
// returns candidates at or above the review threshold, ranked by edge
// impact descending. Types without a cached embedding are skipped.
// Builtin types are only ever proposed as merge targets.
func (d *SynonymDetector) Detect(types []RelationshipType) []SynonymCandidate {
	var candidates []SynonymCandidate

	for i := 0; i < len(types); i++ {
		if len(types[i].Embedding) == 0 {
			continue
		}
		for j := i + 1; j < len(types); j++ {
			if len(types[j].Embedding) == 0 {
				continue
			}

			sim := mathutil.CosineSimilarity(types[i].Embedding, types[j].Embedding)
			if sim < d.reviewThreshold {
				continue
			}

			source, target, ok := orientPair(&types[i], &types[j])
			if !ok {
				continue
			}

			candidates = append(candidates, SynonymCandidate{
				Source:     source.Name,
				Target:     target.Name,
				Similarity: sim,
				EdgeImpact: source.UsageCount + target.UsageCount,
				ReviewOnly: sim < d.mergeThreshold,
			})
		}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].EdgeImpact != candidates[b].EdgeImpact {
			return candidates[a].EdgeImpact > candidates[b].EdgeImpact
		}
		return candidates[a].Similarity > candidates[b].Similarity
	})

	return candidates
}

// orientPair decides which member of a similar pair survives. Builtins
// are never merged away; among non-builtins the higher-value member is
// kept. A pair of two builtins is not mergeable at all.
func orientPair(a, b *RelationshipType) (source, target *RelationshipType, ok bool) {
	switch {
	case a.IsBuiltin && b.IsBuiltin:
		return nil, nil, false
	case a.IsBuiltin:
		return b, a, true
	case b.IsBuiltin:
		return a, b, true
	case a.ValueScore >= b.ValueScore:
		return b, a, true
	default:
		return a, b, true
	}
}

// SelectMergeBatch picks up to n high-confidence candidates such that no
// type appears in more than one merge. Chained merges within a single
// cycle (A into B while B merges into C) are excluded.
func SelectMergeBatch(candidates []SynonymCandidate, n int) []MergePair {
	if n <= 0 {
		return nil
	}

	used := make(map[string]bool)
	var batch []MergePair
	for _, c := range candidates {
		if len(batch) >= n {
			break
		}
		if c.ReviewOnly {
			continue
		}
		if used[c.Source] || used[c.Target] {
			continue
		}
		used[c.Source] = true
		used[c.Target] = true
		batch = append(batch, MergePair{
			Source:     c.Source,
			Target:     c.Target,
			Similarity: c.Similarity,
			EdgeImpact: c.EdgeImpact,
		})
	}
	return batch
}
