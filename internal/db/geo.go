package db

import (
	"math"

	"github.com/banshee-data/track.report/internal/track"
)

const earthRadiusMeters = 6371008.8

// Haversine returns the great-circle distance in meters between two
// coordinates given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

// PathLength sums the great-circle legs between consecutive points.
func PathLength(t track.Track) float64 {
	var d float64
	for i := 1; i < len(t); i++ {
		d += Haversine(t[i-1].Lat, t[i-1].Lon, t[i].Lat, t[i].Lon)
	}
	return d
}
