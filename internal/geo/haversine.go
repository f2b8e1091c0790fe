// Package geo holds the great-circle math used both as the optimization
// objective and as the fallback when road routing is unavailable.
package geo

import (
	"math"

	"route-planner-service/internal/domain"
)

const (
	// EarthRadiusKm is the mean Earth radius used by HaversineKm.
	EarthRadiusKm = 6371.0

	// FallbackSpeedKmh is the average speed assumed for legs without road data.
	FallbackSpeedKmh = 50.0
)

// HaversineKm returns the great-circle distance between a and b in kilometers.
func HaversineKm(a, b domain.Coordinate) float64 {
	dLat := degToRad(b.Lat - a.Lat)
	dLon := degToRad(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat + math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*sinLon*sinLon
	// Rounding can push h marginally above 1 for antipodal points.
	h = math.Min(1, h)

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// PathKm sums the great-circle distances between consecutive points.
func PathKm(points ...domain.Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += HaversineKm(points[i-1], points[i])
	}
	return total
}

// EstimateMinutes converts a distance to a driving time at FallbackSpeedKmh.
func EstimateMinutes(km float64) float64 {
	return km / FallbackSpeedKmh * 60
}

// EstimateLeg builds a straight-line leg between a and b.
func EstimateLeg(a, b domain.Coordinate) domain.RouteLeg {
	km := HaversineKm(a, b)
	return domain.RouteLeg{
		DistanceKm:      km,
		DurationMinutes: EstimateMinutes(km),
		Estimated:       true,
	}
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }
