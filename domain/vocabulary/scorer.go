package vocabulary

import (
	"math"

	"github.com/emergent-company/vocab/domain/graph"
)

// Score weights. Usage dominates, but structural bridging lets a rarely
// used type outscore a frequently used yet structurally inert one.
const (
	weightUsage     = 1.0
	weightTraversal = 0.5
	weightBridge    = 0.3
	weightTrend     = 0.2
)

// ValueScore computes the structural value of a relationship type from
// its graph usage statistics. Builtin types are scored like any other so
// they can be ranked as merge targets, even though they are never
// eligible for elimination.
func ValueScore(stats *graph.UsageStats) float64 {
	if stats == nil {
		return 0
	}
	return float64(stats.UsageCount)*weightUsage +
		(stats.AvgTraversal/100)*weightTraversal +
		(float64(stats.BridgeCount)/10)*weightBridge +
		math.Max(0, stats.Trend14d)*weightTrend
}

// ApplyStats copies usage statistics onto a type and recomputes its score
func ApplyStats(rt *RelationshipType, stats *graph.UsageStats) {
	if stats == nil {
		rt.UsageCount = 0
		rt.AvgTraversal = 0
		rt.BridgeCount = 0
		rt.Trend14d = 0
		rt.ValueScore = 0
		return
	}
	rt.UsageCount = stats.UsageCount
	rt.AvgTraversal = stats.AvgTraversal
	rt.BridgeCount = stats.BridgeCount
	rt.Trend14d = stats.Trend14d
	rt.ValueScore = ValueScore(stats)
}
