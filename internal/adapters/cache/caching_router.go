package cache

import (
	"context"
	"log"

	"route-planner-service/internal/domain"
	"route-planner-service/internal/platform/metrics"
	"route-planner-service/internal/platform/obs"
	"route-planner-service/internal/ports"
)

// CachingRoadRouter answers from the leg cache when every leg of the sequence
// is known, and otherwise makes the single batched call and stores its legs.
type CachingRoadRouter struct {
	next  ports.RoadRouter
	cache ports.LegCache
}

func NewCachingRoadRouter(next ports.RoadRouter, cache ports.LegCache) *CachingRoadRouter {
	return &CachingRoadRouter{next: next, cache: cache}
}

func (r *CachingRoadRouter) Route(ctx context.Context, coords []domain.Coordinate) ([]domain.RouteLeg, error) {
	if len(coords) < 2 {
		return r.next.Route(ctx, coords)
	}

	pairs := make([]ports.CoordinatePair, 0, len(coords)-1)
	for i := 1; i < len(coords); i++ {
		pairs = append(pairs, ports.CoordinatePair{From: coords[i-1], To: coords[i]})
	}

	hits, err := r.cache.GetMany(ctx, pairs)
	if err != nil {
		log.Printf("run_id=%s distance cache read failed: %v", obs.RunID(ctx), err)
		hits = nil
	}

	if len(hits) > 0 {
		legs := make([]domain.RouteLeg, 0, len(pairs))
		for _, p := range pairs {
			leg, ok := hits[p]
			if !ok {
				break
			}
			legs = append(legs, leg)
		}
		if len(legs) == len(pairs) {
			metrics.RoutingRequests.WithLabelValues("cache_hit").Inc()
			return legs, nil
		}
	}

	legs, err := r.next.Route(ctx, coords)
	if err != nil {
		return nil, err
	}

	if len(legs) == len(pairs) {
		fresh := make(map[ports.CoordinatePair]domain.RouteLeg, len(pairs))
		for i, p := range pairs {
			fresh[p] = legs[i]
		}
		if err := r.cache.PutMany(ctx, fresh); err != nil {
			log.Printf("run_id=%s distance cache write failed: %v", obs.RunID(ctx), err)
		}
	}

	return legs, nil
}
