package vocabulary

import (
	"fmt"
	"math"
	"sort"
)

// Pressure zone boundaries
const (
	zoneWatch     = 0.2
	zoneMerge     = 0.5
	zoneMixed     = 0.7
	zoneEmergency = 0.9
)

// Plan is the action a pruning cycle should take
type Plan struct {
	Action    string                `json:"action"`
	Pressure  float64               `json:"pressure"`
	Size      int                   `json:"size"`
	BatchSize int                   `json:"batchSize"`
	Targets   RecommendationTargets `json:"targets"`
	Rationale string                `json:"rationale"`
}

// Mutates reports whether the plan carries any destructive action
func (p *Plan) Mutates() bool {
	return len(p.Targets.Merges) > 0 || len(p.Targets.Prunes) > 0
}

// SelectStrategy maps the current pressure to a pruning plan. Two rules
// hold regardless of zone: builtin types are never pruned, and synonym
// merges are always taken before pruning anything that has edges.
func SelectStrategy(size int, curve *Curve, cfg RuntimeConfig, types []RelationshipType, candidates []SynonymCandidate) *Plan {
	if curve.Blocked(size) {
		return &Plan{
			Action:    ActionBlock,
			Pressure:  1,
			Size:      size,
			Rationale: fmt.Sprintf("vocabulary size %d reached hard limit %d; admissions blocked pending manual intervention", size, cfg.HardLimit),
		}
	}

	pressure := curve.Pressure(size)
	plan := &Plan{Pressure: pressure, Size: size}

	switch {
	case pressure < zoneWatch:
		plan.Action = ActionNone
		plan.Rationale = fmt.Sprintf("monitor zone (pressure %.2f): no action", pressure)

	case pressure < zoneMerge:
		plan.Action = ActionNone
		plan.Rationale = fmt.Sprintf("watch zone (pressure %.2f): %d synonym candidates flagged, no mutation", pressure, len(candidates))

	case pressure < zoneMixed:
		plan.Action = ActionMerge
		plan.BatchSize = batchFromPressure(pressure)
		plan.Targets.Merges = SelectMergeBatch(candidates, plan.BatchSize)
		if len(plan.Targets.Merges) == 0 {
			// No mergeable synonyms: only never-used types may go
			plan.Targets.Prunes = zeroEdgePrunes(types, plan.BatchSize)
			plan.Rationale = fmt.Sprintf("merge zone (pressure %.2f): no synonym pairs, pruning %d zero-edge types", pressure, len(plan.Targets.Prunes))
		} else {
			plan.Rationale = fmt.Sprintf("merge zone (pressure %.2f): merging %d synonym pairs", pressure, len(plan.Targets.Merges))
		}

	case pressure < zoneEmergency:
		plan.Action = ActionMixed
		plan.BatchSize = batchFromPressure(pressure)
		half := (plan.BatchSize + 1) / 2
		plan.Targets.Merges = SelectMergeBatch(candidates, half)
		remaining := plan.BatchSize - len(plan.Targets.Merges)
		plan.Targets.Prunes = zeroEdgePrunes(types, remaining)

		if shortfall := remaining - len(plan.Targets.Prunes); shortfall > 0 {
			// Last resort: lossy pruning of low-value types with edges
			plan.Targets.Prunes = append(plan.Targets.Prunes,
				lowValuePrunes(types, shortfall, plan.Targets)...)
		}
		plan.Rationale = fmt.Sprintf("mixed zone (pressure %.2f): %d merges, %d prunes", pressure, len(plan.Targets.Merges), len(plan.Targets.Prunes))

	default:
		plan.Action = ActionEmergency
		needed := size - cfg.Max
		if needed < 0 {
			needed = 0
		}
		plan.BatchSize = needed + cfg.PruneBatchBuffer
		if plan.BatchSize < 5 {
			plan.BatchSize = 5
		}

		plan.Targets.Merges = SelectMergeBatch(candidates, plan.BatchSize)
		remaining := plan.BatchSize - len(plan.Targets.Merges)
		plan.Targets.Prunes = zeroEdgePrunes(types, remaining)

		// Safe actions first; only reach for types with edges when the
		// strict minimum of headroom is still not covered
		safe := len(plan.Targets.Merges) + len(plan.Targets.Prunes)
		if safe < needed {
			plan.Targets.Prunes = append(plan.Targets.Prunes,
				lowValuePrunes(types, needed-safe, plan.Targets)...)
		}
		plan.Rationale = fmt.Sprintf("emergency zone (pressure %.2f, size %d over max %d): %d merges, %d prunes", pressure, size, cfg.Max, len(plan.Targets.Merges), len(plan.Targets.Prunes))
	}

	return plan
}

// batchFromPressure is ceil(pressure*10), tolerating the float noise the
// curve solver introduces at exact zone boundaries.
func batchFromPressure(pressure float64) int {
	return int(math.Ceil(pressure*10 - 1e-9))
}

// zeroEdgePrunes returns up to n never-used, non-builtin type names
func zeroEdgePrunes(types []RelationshipType, n int) []string {
	if n <= 0 {
		return nil
	}
	var out []string
	for _, rt := range types {
		if len(out) >= n {
			break
		}
		if rt.IsBuiltin || !rt.IsActive || rt.UsageCount > 0 {
			continue
		}
		out = append(out, rt.Name)
	}
	return out
}

// lowValuePrunes returns up to n non-builtin types with edges, lowest
// value score first, excluding anything already targeted by the plan.
func lowValuePrunes(types []RelationshipType, n int, taken RecommendationTargets) []string {
	if n <= 0 {
		return nil
	}

	used := make(map[string]bool)
	for _, m := range taken.Merges {
		used[m.Source] = true
		used[m.Target] = true
	}
	for _, p := range taken.Prunes {
		used[p] = true
	}

	eligible := make([]RelationshipType, 0, len(types))
	for _, rt := range types {
		if rt.IsBuiltin || !rt.IsActive || rt.UsageCount == 0 || used[rt.Name] {
			continue
		}
		eligible = append(eligible, rt)
	}

	sort.SliceStable(eligible, func(a, b int) bool {
		return eligible[a].ValueScore < eligible[b].ValueScore
	})

	if n > len(eligible) {
		n = len(eligible)
	}
	out := make([]string, 0, n)
	for _, rt := range eligible[:n] {
		out = append(out, rt.Name)
	}
	return out
}
