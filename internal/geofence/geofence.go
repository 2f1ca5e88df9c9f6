// Package geofence computes great-circle distances and radius membership for
// circular geofences. It is pure: no persistence, no side effects.
package geofence

import "math"

// earthRadiusM is the mean Earth radius in meters.
const earthRadiusM = 6371000.0

// Distance returns the great-circle (haversine) distance in meters between
// two WGS84 coordinates. Symmetric; zero for identical points.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// Result holds the outcome of a geofence evaluation.
type Result struct {
	DistanceM    float64
	WithinRadius bool
}

// Evaluate tests location (lat, lng) against a circular geofence centered at
// (centerLat, centerLng) with the given radius in meters. A distance exactly
// equal to the radius passes.
func Evaluate(centerLat, centerLng, radiusM, lat, lng float64) Result {
	d := Distance(centerLat, centerLng, lat, lng)
	return Result{DistanceM: d, WithinRadius: d <= radiusM}
}
