package annealing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextTemperature(t *testing.T) {
	tests := []struct {
		name string
		t    float64
		rate float64
		want float64
	}{
		{"geometric decay", 1, 90, 0.9},
		{"half", 0.5, 50, 0.25},
		{"rate 100 never decays", 0.7, 100, 0.7},
		{"rate 0 drops to floor", 1, 0, FloorTemperature},
		{"clamped at floor", 0.0015, 50, FloorTemperature},
		{"held at floor", FloorTemperature, 50, FloorTemperature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, NextTemperature(tt.t, tt.rate), 1e-12)
		})
	}
}

func TestNextTemperatureMonotone(t *testing.T) {
	for _, rate := range []float64{0, 1, 37.5, 90, 99.9, 100} {
		temp := InitialTemperature
		for i := 0; i < 10000; i++ {
			next := NextTemperature(temp, rate)
			assert.LessOrEqual(t, next, temp)
			assert.GreaterOrEqual(t, next, FloorTemperature)
			temp = next
		}
	}
}
