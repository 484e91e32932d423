package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrend(t *testing.T) {
	tests := []struct {
		name   string
		recent int64
		prior  int64
		want   float64
	}{
		{"no edges at all", 0, 0, 0},
		{"new type, all recent", 10, 0, 1},
		{"doubled", 20, 10, 1},
		{"flat", 10, 10, 0},
		{"halved", 5, 10, -0.5},
		{"died out", 0, 10, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, trend(tt.recent, tt.prior), 1e-9)
		})
	}
}
