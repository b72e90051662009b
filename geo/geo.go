// Package geo provides great-circle distance calculations shared by the
// dedup ledger and the GPS sources.
package geo

import (
	"math"
)

// earthRadius is the mean radius of the earth in meters
const earthRadius = 6371000.0

// Haversine returns the great-circle distance in meters between two
// latitude/longitude coordinates given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {

	rLat1 := lat1 * math.Pi / 180
	rLon1 := lon1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	rLon2 := lon2 * math.Pi / 180

	dLat := rLat2 - rLat1
	dLon := rLon2 - rLon1

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadius * 2 * math.Asin(math.Sqrt(a))
}
