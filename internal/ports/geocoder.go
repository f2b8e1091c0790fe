package ports

import (
	"context"
	"route-planner-service/internal/domain"
)

// Contract for resolving a free-text address to a coordinate.
type Geocoder interface {
	// Resolve returns the best candidate for query. The boolean is false when
	// the address could not be located, whatever the cause.
	Resolve(ctx context.Context, query string) (domain.GeocodeResult, bool)
}

// Persistent address -> geocode result cache.
type GeocodeCache interface {
	Get(ctx context.Context, address string) (domain.GeocodeResult, bool, error)
	Put(ctx context.Context, address string, result domain.GeocodeResult) error
}
