// Package osrm fetches road-network legs from an OSRM-compatible routing service.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"route-planner-service/internal/adapters/upstream"
	"route-planner-service/internal/domain"
	"route-planner-service/internal/platform/metrics"
	"route-planner-service/internal/platform/obs"
)

type routeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Legs []struct {
			Distance float64 `json:"distance"` // meters
			Duration float64 `json:"duration"` // seconds
		} `json:"legs"`
	} `json:"routes"`
}

// Router implements ports.RoadRouter with a single /route call per sequence.
type Router struct {
	api     *upstream.Client
	profile string
}

func NewRouter(baseURL, profile, userAgent string) *Router {
	if profile == "" {
		profile = "driving"
	}
	return &Router{
		api:     upstream.NewClient(baseURL, userAgent, 15*time.Second),
		profile: profile,
	}
}

// Route returns one leg per consecutive coordinate pair.
// Any failure is reported as domain.ErrRoutingUnavailable.
func (r *Router) Route(ctx context.Context, coords []domain.Coordinate) (legs []domain.RouteLeg, err error) {
	if len(coords) < 2 {
		return []domain.RouteLeg{}, nil
	}

	defer obs.Time(ctx, "osrm.Route")(&err)
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "unavailable"
		}
		metrics.RoutingRequests.WithLabelValues(outcome).Inc()
	}()

	path := fmt.Sprintf("/route/v1/%s/%s", r.profile, encodeCoordinates(coords))
	params := map[string]string{
		"overview": "false",
		"steps":    "false",
	}

	resp, err := r.api.DoWithRetry(ctx, func() (*http.Request, error) {
		return r.api.NewRequest(ctx, path, params)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: route request: %v", domain.ErrRoutingUnavailable, err)
	}
	defer resp.Body.Close()

	var rr routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("%w: decode route response: %v", domain.ErrRoutingUnavailable, err)
	}

	if rr.Code != "Ok" {
		return nil, fmt.Errorf("%w: routing code %q: %s", domain.ErrRoutingUnavailable, rr.Code, rr.Message)
	}
	if len(rr.Routes) == 0 {
		return nil, fmt.Errorf("%w: empty route list", domain.ErrRoutingUnavailable)
	}

	raw := rr.Routes[0].Legs
	if len(raw) != len(coords)-1 {
		return nil, fmt.Errorf(
			"%w: leg count mismatch: got %d, want %d",
			domain.ErrRoutingUnavailable, len(raw), len(coords)-1,
		)
	}

	// Convert meters/seconds to kilometers/minutes at the boundary.
	legs = make([]domain.RouteLeg, 0, len(raw))
	for _, l := range raw {
		legs = append(legs, domain.RouteLeg{
			DistanceKm:      l.Distance / 1000,
			DurationMinutes: l.Duration / 60,
		})
	}

	return legs, nil
}

// encodeCoordinates renders "lon,lat;lon,lat;..." as OSRM expects.
func encodeCoordinates(coords []domain.Coordinate) string {
	parts := make([]string, 0, len(coords))
	for _, c := range coords {
		parts = append(parts,
			strconv.FormatFloat(c.Lon, 'f', 6, 64)+","+strconv.FormatFloat(c.Lat, 'f', 6, 64),
		)
	}
	return strings.Join(parts, ";")
}
