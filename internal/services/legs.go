package services

import (
	"route-planner-service/internal/domain"
	"route-planner-service/internal/geo"
)

// ResolveLegs returns exactly one leg per consecutive pair of points.
//
// Road legs are used when the router returned one per pair. A response with
// any other length is discarded as a whole, and every index without a road
// leg falls back to a great-circle estimate at geo.FallbackSpeedKmh.
func ResolveLegs(points []domain.Coordinate, road []domain.RouteLeg) []domain.RouteLeg {
	want := len(points) - 1
	if want <= 0 {
		return []domain.RouteLeg{}
	}
	if len(road) != want {
		road = nil
	}

	legs := make([]domain.RouteLeg, want)
	for i := range legs {
		if i < len(road) {
			legs[i] = road[i]
			continue
		}
		legs[i] = geo.EstimateLeg(points[i], points[i+1])
	}
	return legs
}
