// Package geo provides the distance helpers used for street edge lengths and
// coordinate snapping.
package geo

import "math"

const earthRadiusMeters = 6_371_000.0

// metersPerDegree is the length of one degree of latitude.
const metersPerDegree = math.Pi / 180 * earthRadiusMeters

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// EquirectangularDist returns an approximate distance in meters.
// Use for candidate ranking, not for edge lengths.
func EquirectangularDist(lat1, lon1, lat2, lon2 float64) float64 {
	x := (lon2 - lon1) * math.Cos((lat1+lat2)/2*math.Pi/180)
	y := lat2 - lat1
	return math.Sqrt(x*x+y*y) * metersPerDegree
}

// Box returns the [lat, lon] corners of a square of half-width radius meters
// centred on a point. Longitude span widens with latitude; near the poles the
// box covers every longitude.
func Box(lat, lon, radius float64) (min, max [2]float64) {
	dLat := radius / metersPerDegree
	cos := math.Cos(lat * math.Pi / 180)
	dLon := 180.0
	if cos > 1e-9 {
		dLon = math.Min(180, dLat/cos)
	}
	return [2]float64{lat - dLat, lon - dLon}, [2]float64{lat + dLat, lon + dLon}
}
