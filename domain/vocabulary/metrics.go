package vocabulary

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the engine's observable state
type Metrics struct {
	VocabularySize  prometheus.Gauge
	Pressure        prometheus.Gauge
	CategoryCount   prometheus.Gauge
	Admissions      *prometheus.CounterVec
	Rejections      *prometheus.CounterVec
	Merges          prometheus.Counter
	Prunes          prometheus.Counter
	Restores        prometheus.Counter
	PruningCycles   *prometheus.CounterVec
	Recommendations *prometheus.GaugeVec
}

// NewMetrics registers the vocabulary metrics on the default registry
func NewMetrics() *Metrics {
	return &Metrics{
		VocabularySize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vocab_active_types",
			Help: "Number of active relationship types",
		}),
		Pressure: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vocab_pruning_pressure",
			Help: "Current pruning pressure in [0,1]",
		}),
		CategoryCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vocab_active_categories",
			Help: "Number of active categories",
		}),
		Admissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vocab_admissions_total",
			Help: "Admitted labels by outcome",
		}, []string{"outcome"}), // created | existing
		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vocab_rejections_total",
			Help: "Rejected labels by reason",
		}, []string{"reason"}), // validation | capacity | provider | paused
		Merges: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vocab_merges_total",
			Help: "Executed synonym merges",
		}),
		Prunes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vocab_prunes_total",
			Help: "Executed type prunes",
		}),
		Restores: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vocab_restores_total",
			Help: "Restore and unmerge operations",
		}),
		PruningCycles: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vocab_pruning_cycles_total",
			Help: "Pruning cycles by resulting action",
		}, []string{"action"}),
		Recommendations: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vocab_recommendations",
			Help: "Recommendations by status",
		}, []string{"status"}),
	}
}
