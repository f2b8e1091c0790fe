package services

import (
	"context"
	"math"
	"sync"
	"time"

	"route-planner-service/internal/domain"
)

var paris = domain.Coordinate{Lat: 48.8566, Lon: 2.3522}

// northOf returns the point km kilometres due north of c.
func northOf(c domain.Coordinate, km float64) domain.Coordinate {
	return domain.Coordinate{Lat: c.Lat + km/6371*180/math.Pi, Lon: c.Lon}
}

type fakeBookings struct {
	bookings []domain.Booking
	err      error
}

func (f fakeBookings) ListBookingsByDate(context.Context, time.Time) ([]domain.Booking, error) {
	return f.bookings, f.err
}

type fakeGeocoder map[string]domain.Coordinate

func (f fakeGeocoder) Resolve(_ context.Context, query string) (domain.GeocodeResult, bool) {
	c, ok := f[query]
	if !ok {
		return domain.GeocodeResult{}, false
	}
	return domain.GeocodeResult{Coordinate: c, DisplayName: query + " (resolved)"}, true
}

// gateGeocoder blocks its first lookup until release is closed.
type gateGeocoder struct {
	next    fakeGeocoder
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGateGeocoder(next fakeGeocoder) *gateGeocoder {
	return &gateGeocoder{next: next, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gateGeocoder) Resolve(ctx context.Context, query string) (domain.GeocodeResult, bool) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.next.Resolve(ctx, query)
}

// blockingGeocoder blocks every lookup until ctx ends, then reports not found.
type blockingGeocoder struct {
	entered chan struct{}
	once    sync.Once
}

func newBlockingGeocoder() *blockingGeocoder {
	return &blockingGeocoder{entered: make(chan struct{})}
}

func (g *blockingGeocoder) Resolve(ctx context.Context, _ string) (domain.GeocodeResult, bool) {
	g.once.Do(func() { close(g.entered) })
	<-ctx.Done()
	return domain.GeocodeResult{}, false
}

type fakeRouter struct {
	mu     sync.Mutex
	legs   []domain.RouteLeg
	err    error
	calls  int
	points [][]domain.Coordinate
}

func (f *fakeRouter) Route(_ context.Context, coords []domain.Coordinate) ([]domain.RouteLeg, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.points = append(f.points, coords)
	if f.err != nil {
		return nil, f.err
	}
	return f.legs, nil
}

type recordingObserver struct {
	states   []State
	progress [][2]int
	failOn   int
}

func (r *recordingObserver) Transition(s State) error {
	r.states = append(r.states, s)
	return nil
}

func (r *recordingObserver) Progress(current, total int) error {
	r.progress = append(r.progress, [2]int{current, total})
	if r.failOn > 0 && current == r.failOn {
		return errSuperseded
	}
	return nil
}

func planDate() time.Time { return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) }

func at(hour, minute int) time.Time { return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC) }

func booking(id, address string) domain.Booking {
	return domain.Booking{ID: id, ClientName: "client " + id, LocationFields: []string{address}, Date: planDate()}
}
