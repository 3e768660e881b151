package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name             string
		lat1, lon1       float64
		lat2, lon2       float64
		wantMeters       float64
		tolerancePercent float64
	}{
		{
			name: "Singapore CBD to Changi Airport",
			lat1: 1.2830, lon1: 103.8513, // Raffles Place
			lat2: 1.3644, lon2: 103.9915, // Changi Airport
			wantMeters:       18_023, // ~18 km great-circle
			tolerancePercent: 1,
		},
		{
			name: "London to Paris",
			lat1: 51.5074, lon1: -0.1278,
			lat2: 48.8566, lon2: 2.3522,
			wantMeters:       343_500, // ~343.5 km
			tolerancePercent: 1,
		},
		{
			name: "Short distance (~100m)",
			lat1: 1.3521, lon1: 103.8198,
			lat2: 1.3530, lon2: 103.8198,
			wantMeters:       100,
			tolerancePercent: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InEpsilon(t, tt.wantMeters, got, tt.tolerancePercent/100)
		})
	}

	assert.Zero(t, Haversine(1.3521, 103.8198, 1.3521, 103.8198))
}

func TestEquirectangularDist(t *testing.T) {
	// At Singapore latitude, equirectangular should be very close to Haversine.
	lat1, lon1 := 1.3521, 103.8198
	lat2, lon2 := 1.3600, 103.8300

	h := Haversine(lat1, lon1, lat2, lon2)
	e := EquirectangularDist(lat1, lon1, lat2, lon2)
	assert.InEpsilon(t, h, e, 0.005)
}

func TestBox(t *testing.T) {
	min, max := Box(1.35, 103.82, 1000)
	assert.Less(t, min[0], 1.35)
	assert.Greater(t, max[0], 1.35)
	// The box edge is ~1 km from the centre along both axes.
	assert.InEpsilon(t, 1000, Haversine(1.35, 103.82, max[0], 103.82), 0.01)
	assert.InEpsilon(t, 1000, Haversine(1.35, 103.82, 1.35, max[1]), 0.01)

	min, max = Box(90, 0, 1000)
	assert.Equal(t, -180.0, min[1])
	assert.Equal(t, 180.0, max[1])
}

func BenchmarkHaversine(b *testing.B) {
	for b.Loop() {
		Haversine(1.3521, 103.8198, 1.2905, 103.8520)
	}
}
