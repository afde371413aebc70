package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversine_ZeroDistance(t *testing.T) {
	assert.Equal(t, 0.0, Haversine(37.7749, -122.4194, 37.7749, -122.4194))
}

func TestHaversine_KnownDistance(t *testing.T) {
	// San Francisco to Oakland, roughly 13.5 km great-circle
	d := Haversine(37.7749, -122.4194, 37.8044, -122.2712)
	assert.InDelta(t, 13.5, d, 0.5)
}

func TestHaversine_SymmetricAndRounded(t *testing.T) {
	a := Haversine(12.9716, 77.5946, 13.0827, 80.2707)
	b := Haversine(13.0827, 80.2707, 12.9716, 77.5946)
	assert.Equal(t, a, b)
	assert.Equal(t, a, float64(int(a*100))/100)
}

func TestEstimateDuration_LinearModel(t *testing.T) {
	assert.Equal(t, 0, EstimateDuration(0))
	assert.Equal(t, 15, EstimateDuration(5))
	assert.Equal(t, 2, EstimateDuration(0.5)) // 1.5 rounds up
}
