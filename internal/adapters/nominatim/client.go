// Package nominatim resolves free-text addresses through a Nominatim-compatible
// geocoding service (OpenStreetMap search API).
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"route-planner-service/internal/adapters/upstream"
	"route-planner-service/internal/domain"
	"route-planner-service/internal/platform/metrics"
	"route-planner-service/internal/platform/obs"
)

var errNoCandidates = errors.New("no candidates")

// searchResult mirrors the relevant parts of the /search payload (format=jsonv2).
type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type Options struct {
	BaseURL string
	// UserAgent identifies the application, as required by the usage policy.
	UserAgent    string
	Email        string
	CountryCodes string
	MinInterval  time.Duration
	Timeout      time.Duration
	Clock        Clock
}

// Client implements ports.Geocoder against Nominatim.
//
// Calls are serialised: the mutex guarantees a single request in flight and the
// throttle keeps at least MinInterval between the end of one request and the
// start of the next. The client is safe for concurrent use.
type Client struct {
	api          *upstream.Client
	throttle     *Throttle
	email        string
	countryCodes string

	mu sync.Mutex
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.UserAgent) == "" {
		return nil, errors.New("nominatim: user agent is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	return &Client{
		api:          upstream.NewClient(opts.BaseURL, opts.UserAgent, opts.Timeout),
		throttle:     NewThrottle(opts.MinInterval, opts.Clock),
		email:        opts.Email,
		countryCodes: opts.CountryCodes,
	}, nil
}

// Resolve returns the first candidate for query.
//
// Every failure (no candidate, timeout, non-2xx, bad payload) is reported as
// not found; the cause is only logged.
func (c *Client) Resolve(ctx context.Context, query string) (domain.GeocodeResult, bool) {
	q := strings.TrimSpace(query)
	if q == "" {
		metrics.GeocodeRequests.WithLabelValues("not_found").Inc()
		return domain.GeocodeResult{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.search(ctx, q)
	switch {
	case errors.Is(err, errNoCandidates):
		metrics.GeocodeRequests.WithLabelValues("not_found").Inc()
		log.Printf("run_id=%s geocode not found query=%q", obs.RunID(ctx), q)
		return domain.GeocodeResult{}, false
	case err != nil:
		metrics.GeocodeRequests.WithLabelValues("error").Inc()
		log.Printf("run_id=%s geocode failed query=%q err=%v", obs.RunID(ctx), q, err)
		return domain.GeocodeResult{}, false
	}

	metrics.GeocodeRequests.WithLabelValues("found").Inc()
	return res, true
}

func (c *Client) search(ctx context.Context, q string) (_ domain.GeocodeResult, err error) {
	defer obs.Time(ctx, "nominatim.search")(&err)

	waited, err := c.throttle.Wait(ctx)
	if err != nil {
		return domain.GeocodeResult{}, fmt.Errorf("wait for rate limit: %w", err)
	}
	defer c.throttle.Release()
	metrics.GeocodeThrottleWait.Observe(waited.Seconds())

	params := map[string]string{
		"q":      q,
		"format": "jsonv2",
		"limit":  "1",
	}
	if c.countryCodes != "" {
		params["countrycodes"] = c.countryCodes
	}
	if c.email != "" {
		params["email"] = c.email
	}

	req, err := c.api.NewRequest(ctx, "/search", params)
	if err != nil {
		return domain.GeocodeResult{}, err
	}

	// No retry: a retry would burn another slot of the provider's rate limit.
	resp, err := c.api.Do(req)
	if err != nil {
		return domain.GeocodeResult{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.GeocodeResult{}, fmt.Errorf("decode search response: %w", err)
	}

	if len(results) == 0 {
		return domain.GeocodeResult{}, errNoCandidates
	}

	return toResult(results[0])
}

func toResult(r searchResult) (domain.GeocodeResult, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(r.Lat), 64)
	if err != nil {
		return domain.GeocodeResult{}, fmt.Errorf("invalid latitude %q: %w", r.Lat, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(r.Lon), 64)
	if err != nil {
		return domain.GeocodeResult{}, fmt.Errorf("invalid longitude %q: %w", r.Lon, err)
	}

	coord := domain.Coordinate{Lat: lat, Lon: lon}
	if !coord.Valid() {
		return domain.GeocodeResult{}, fmt.Errorf("coordinate out of range: %s", coord)
	}

	return domain.GeocodeResult{
		Coordinate:  coord,
		DisplayName: strings.TrimSpace(r.DisplayName),
	}, nil
}
