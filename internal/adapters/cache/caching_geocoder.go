package cache

import (
	"context"
	"log"

	"route-planner-service/internal/domain"
	"route-planner-service/internal/platform/metrics"
	"route-planner-service/internal/platform/obs"
	"route-planner-service/internal/ports"
)

// CachingGeocoder consults a persistent cache before the wrapped geocoder.
// Hits never reach the provider, so they do not consume its rate limit.
// Cache errors are logged and treated as misses.
type CachingGeocoder struct {
	next  ports.Geocoder
	cache ports.GeocodeCache
}

func NewCachingGeocoder(next ports.Geocoder, cache ports.GeocodeCache) *CachingGeocoder {
	return &CachingGeocoder{next: next, cache: cache}
}

func (g *CachingGeocoder) Resolve(ctx context.Context, query string) (domain.GeocodeResult, bool) {
	res, ok, err := g.cache.Get(ctx, query)
	if err != nil {
		log.Printf("run_id=%s geocode cache read failed: %v", obs.RunID(ctx), err)
	}
	if ok {
		metrics.GeocodeRequests.WithLabelValues("cache_hit").Inc()
		return res, true
	}

	res, ok = g.next.Resolve(ctx, query)
	if !ok {
		return domain.GeocodeResult{}, false
	}

	if err := g.cache.Put(ctx, query, res); err != nil {
		log.Printf("run_id=%s geocode cache write failed: %v", obs.RunID(ctx), err)
	}
	return res, true
}
