package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"route-planner-service/internal/domain"
	"route-planner-service/internal/platform/metrics"
	"route-planner-service/internal/platform/obs"
	"route-planner-service/internal/ports"
)

// State is a step of the planning pipeline as seen by a Session.
type State string

const (
	StateIdle             State = "idle"
	StateFetchingBookings State = "fetching_bookings"
	StateGeocoding        State = "geocoding"
	StateOptimizing       State = "optimizing"
	StateRoadRouting      State = "road_routing"
	StateScheduling       State = "scheduling"
	StateComplete         State = "complete"
	StateFailed           State = "failed"
)

// Terminal reports whether no further transition follows s within a run.
func (s State) Terminal() bool { return s == StateComplete || s == StateFailed }

// Observer receives pipeline transitions and geocoding progress.
// Returning an error from either callback stops the run at that boundary.
type Observer interface {
	Transition(State) error
	Progress(current, total int) error
}

type nopObserver struct{}

func (nopObserver) Transition(State) error  { return nil }
func (nopObserver) Progress(int, int) error { return nil }

// Planner runs the bookings → geocoding → optimizing → road routing →
// scheduling pipeline for one date.
type Planner struct {
	bookings              ports.BookingSource
	geocoder              ports.Geocoder
	router                ports.RoadRouter
	defaultInstallMinutes int
}

func NewPlanner(
	bookings ports.BookingSource,
	geocoder ports.Geocoder,
	router ports.RoadRouter,
	defaultInstallMinutes int,
) *Planner {
	return &Planner{
		bookings:              bookings,
		geocoder:              geocoder,
		router:                router,
		defaultInstallMinutes: defaultInstallMinutes,
	}
}

// Plan builds the itinerary for params.
//
// A zero InstallDurationMinutes uses the planner default. Unresolved stop
// addresses, an unresolved end address and an unavailable router produce
// warnings on the itinerary rather than errors.
func (p *Planner) Plan(ctx context.Context, params domain.PlanningParameters, o Observer) (it *domain.Itinerary, err error) {
	defer obs.Time(ctx, "planner.Plan")(&err)

	if o == nil {
		o = nopObserver{}
	}

	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	startAt, err := params.StartAt()
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	install := params.InstallDurationMinutes
	if install == 0 {
		install = p.defaultInstallMinutes
	}

	// Fetching bookings.
	done, err := enter(o, StateFetchingBookings)
	if err != nil {
		return nil, err
	}
	bookings, err := p.bookings.ListBookingsByDate(ctx, params.Date)
	done()
	if err != nil {
		return nil, fmt.Errorf("plan: list bookings: %w", err)
	}
	if len(bookings) == 0 {
		return nil, fmt.Errorf("plan: date=%s: %w", params.Date.Format("2006-01-02"), domain.ErrEmptyBookingSet)
	}

	// Geocoding.
	done, err = enter(o, StateGeocoding)
	if err != nil {
		return nil, err
	}
	g, err := p.geocodeAll(ctx, params, bookings, o)
	done()
	if err != nil {
		return nil, err
	}

	// Optimizing.
	done, err = enter(o, StateOptimizing)
	if err != nil {
		return nil, err
	}
	if len(g.located) == 0 {
		done()
		return nil, fmt.Errorf("plan: %d bookings: %w", len(bookings), domain.ErrNoLocatableStops)
	}
	ordered := Optimize(g.start.Coordinate, g.located, g.end)
	log.Printf("run_id=%s op=optimize stops=%d great_circle_km=%.2f",
		obs.RunID(ctx), len(ordered), RouteCost(g.start.Coordinate, ordered, g.end))
	done()

	// Road routing.
	done, err = enter(o, StateRoadRouting)
	if err != nil {
		return nil, err
	}
	points := make([]domain.Coordinate, 0, len(ordered)+2)
	points = append(points, g.start.Coordinate)
	for _, s := range ordered {
		points = append(points, *s.Coordinate)
	}
	if g.end != nil {
		points = append(points, *g.end)
	}

	road, rerr := p.router.Route(ctx, points)
	switch {
	case rerr != nil:
		log.Printf("run_id=%s op=route fallback=great_circle err=%v", obs.RunID(ctx), rerr)
		g.warnings = append(g.warnings, domain.Warning{
			Kind:    domain.WarningRoutingUnavailable,
			Message: "road routing unavailable, travel times estimated",
		})
	case len(road) != len(points)-1:
		log.Printf("run_id=%s op=route fallback=great_circle legs=%d want=%d", obs.RunID(ctx), len(road), len(points)-1)
		g.warnings = append(g.warnings, domain.Warning{
			Kind:    domain.WarningRoutingUnavailable,
			Message: "road routing returned an unexpected number of legs, travel times estimated",
		})
	}
	legs := ResolveLegs(points, road)
	done()

	// Scheduling.
	done, err = enter(o, StateScheduling)
	if err != nil {
		return nil, err
	}
	scheduled, ret, err := BuildSchedule(ordered, legs, startAt, install)
	done()
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	it = &domain.Itinerary{
		Date:       params.Date,
		StartLabel: g.start.DisplayName,
		StartTime:  startAt,
		EndLabel:   g.endLabel,
		Stops:      scheduled,
		Unresolved: g.unresolved,
		ReturnLeg:  ret,
		Warnings:   g.warnings,
	}
	for _, l := range legs {
		it.TotalDistanceKm += l.DistanceKm
		it.TotalDurationMinutes += l.DurationMinutes
	}

	return it, nil
}

type geocoded struct {
	start      domain.GeocodeResult
	end        *domain.Coordinate
	endLabel   string
	located    []domain.Stop
	unresolved []domain.Stop
	warnings   []domain.Warning
}

// geocodeAll resolves the start, then every booking in order, then the
// optional end. Progress is reported after each address.
func (p *Planner) geocodeAll(
	ctx context.Context,
	params domain.PlanningParameters,
	bookings []domain.Booking,
	o Observer,
) (*geocoded, error) {
	total := len(bookings) + 1
	if params.HasEnd() {
		total++
	}
	current := 0
	step := func() error {
		current++
		return o.Progress(current, total)
	}

	g := &geocoded{}

	start, ok := p.geocoder.Resolve(ctx, params.StartAddress)
	if err := step(); err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("plan: %q: %w", params.StartAddress, domain.ErrStartUnresolved)
	}
	if start.DisplayName == "" {
		start.DisplayName = params.StartAddress
	}
	g.start = start

	for _, b := range bookings {
		s := domain.NewStop(b)
		res, ok := p.geocoder.Resolve(ctx, s.AddressQuery)
		if err := step(); err != nil {
			return nil, err
		}

		if !ok {
			g.unresolved = append(g.unresolved, s)
			g.warnings = append(g.warnings, domain.Warning{
				Kind:    domain.WarningAddressUnresolved,
				StopID:  s.ID,
				Message: fmt.Sprintf("%s: %q", domain.ErrAddressUnresolved, s.AddressQuery),
			})
			continue
		}

		c := res.Coordinate
		s.Coordinate = &c
		g.located = append(g.located, s)
	}

	if !params.HasEnd() {
		return g, nil
	}

	end, ok := p.geocoder.Resolve(ctx, params.EndAddress)
	if err := step(); err != nil {
		return nil, err
	}
	if !ok {
		g.warnings = append(g.warnings, domain.Warning{
			Kind:    domain.WarningEndUnresolved,
			Message: fmt.Sprintf("end address %q unresolved, route ends at the last stop", params.EndAddress),
		})
		return g, nil
	}

	c := end.Coordinate
	g.end = &c
	g.endLabel = end.DisplayName
	if g.endLabel == "" {
		g.endLabel = params.EndAddress
	}

	return g, nil
}

// enter reports a transition and returns a func recording the stage duration.
func enter(o Observer, s State) (func(), error) {
	if err := o.Transition(s); err != nil {
		return nil, err
	}
	started := time.Now()
	return func() {
		metrics.StageDuration.WithLabelValues(string(s)).Observe(time.Since(started).Seconds())
	}, nil
}

// ReasonCancelled marks a run stopped by its context rather than by its data.
const ReasonCancelled = "cancelled"

// FailureReason maps a run error to the short code exposed to callers.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCancelled
	case errors.Is(err, domain.ErrStartUnresolved):
		return "start_unresolved"
	case errors.Is(err, domain.ErrNoLocatableStops):
		return "no_locatable_stops"
	case errors.Is(err, domain.ErrInvalidParameters):
		return "invalid_parameters"
	case errors.Is(err, domain.ErrEmptyBookingSet):
		return "nothing_to_plan"
	default:
		return "internal"
	}
}
