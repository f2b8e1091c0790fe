package ports

import (
	"context"
	"route-planner-service/internal/domain"
)

// Contract for retrieving road-network legs along an ordered coordinate sequence.
type RoadRouter interface {
	// Route returns len(coords)-1 legs, or an error wrapping
	// domain.ErrRoutingUnavailable.
	Route(ctx context.Context, coords []domain.Coordinate) ([]domain.RouteLeg, error)
}

// Persistent cache of legs keyed by origin and destination coordinates.
type LegCache interface {
	GetMany(ctx context.Context, pairs []CoordinatePair) (map[CoordinatePair]domain.RouteLeg, error)
	PutMany(ctx context.Context, legs map[CoordinatePair]domain.RouteLeg) error
}

// Origin and destination of a single leg, used as a cache key.
type CoordinatePair struct {
	From domain.Coordinate
	To   domain.Coordinate
}
