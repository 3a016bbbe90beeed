package matching

import (
	"math"

	"servicehub/models"
)

// DistanceFunc returns the distance between two points in kilometres.
type DistanceFunc func(a, b models.GeoPoint) float64

const earthRadiusKm = 6371.0

// Haversine is the great-circle distance between a and b.
func Haversine(a, b models.GeoPoint) float64 {
	lat1, lon1 := a.Lat(), a.Lon()
	lat2, lon2 := b.Lat(), b.Lon()
	dLat := (lat2 - lat1) * (math.Pi / 180)
	dLon := (lon2 - lon1) * (math.Pi / 180)
	lat1Rad := lat1 * (math.Pi / 180)
	lat2Rad := lat2 * (math.Pi / 180)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// Euclidean projects both points onto a plane (equirectangular) and measures
// the straight-line distance. Good enough for city-scale radii.
func Euclidean(a, b models.GeoPoint) float64 {
	meanLat := (a.Lat() + b.Lat()) / 2 * (math.Pi / 180)
	x := (b.Lon() - a.Lon()) * (math.Pi / 180) * math.Cos(meanLat)
	y := (b.Lat() - a.Lat()) * (math.Pi / 180)
	return earthRadiusKm * math.Sqrt(x*x+y*y)
}
