// Package ors fetches road-network legs from the OpenRouteService directions API.
// It is the alternative to the OSRM router for deployments holding an ORS key.
package ors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"route-planner-service/internal/adapters/upstream"
	"route-planner-service/internal/domain"
	"route-planner-service/internal/platform/metrics"
	"route-planner-service/internal/platform/obs"
)

const DefaultBaseURL = "https://api.openrouteservice.org"

type directionsRequest struct {
	Coordinates  [][]float64 `json:"coordinates"`
	Instructions bool        `json:"instructions"`
}

type directionsResponse struct {
	Routes []struct {
		Segments []struct {
			Distance float64 `json:"distance"` // meters
			Duration float64 `json:"duration"` // seconds
		} `json:"segments"`
	} `json:"routes"`
}

// Router implements ports.RoadRouter with one directions call per sequence.
type Router struct {
	api     *upstream.Client
	profile string
}

func NewRouter(baseURL, apiKey, profile string) (*Router, error) {
	if apiKey == "" {
		return nil, errors.New("ors: api key is empty")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if profile == "" {
		profile = "driving-car"
	}

	api := upstream.NewClient(baseURL, "", 15*time.Second)
	api.APIKey = apiKey

	return &Router{api: api, profile: profile}, nil
}

// Route returns one leg per consecutive coordinate pair.
// Any failure is reported as domain.ErrRoutingUnavailable.
func (r *Router) Route(ctx context.Context, coords []domain.Coordinate) (legs []domain.RouteLeg, err error) {
	if len(coords) < 2 {
		return []domain.RouteLeg{}, nil
	}

	defer obs.Time(ctx, "ors.Route")(&err)
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "unavailable"
		}
		metrics.RoutingRequests.WithLabelValues(outcome).Inc()
	}()

	body := directionsRequest{Coordinates: make([][]float64, 0, len(coords))}
	for _, c := range coords {
		// ORS expects [lon, lat].
		body.Coordinates = append(body.Coordinates, []float64{c.Lon, c.Lat})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal directions request: %v", domain.ErrRoutingUnavailable, err)
	}

	path := fmt.Sprintf("/v2/directions/%s/json", r.profile)
	resp, err := r.api.DoWithRetry(ctx, func() (*http.Request, error) {
		return r.api.NewJSONRequest(ctx, path, payload)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: directions request: %v", domain.ErrRoutingUnavailable, err)
	}
	defer resp.Body.Close()

	var dr directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("%w: decode directions response: %v", domain.ErrRoutingUnavailable, err)
	}
	if len(dr.Routes) == 0 {
		return nil, fmt.Errorf("%w: empty route list", domain.ErrRoutingUnavailable)
	}

	segments := dr.Routes[0].Segments
	if len(segments) != len(coords)-1 {
		return nil, fmt.Errorf(
			"%w: segment count mismatch: got %d, want %d",
			domain.ErrRoutingUnavailable, len(segments), len(coords)-1,
		)
	}

	legs = make([]domain.RouteLeg, 0, len(segments))
	for _, s := range segments {
		legs = append(legs, domain.RouteLeg{
			DistanceKm:      s.Distance / 1000,
			DurationMinutes: s.Duration / 60,
		})
	}

	return legs, nil
}
