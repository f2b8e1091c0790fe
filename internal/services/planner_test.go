package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route-planner-service/internal/domain"
)

func parisParams() domain.PlanningParameters {
	return domain.PlanningParameters{
		Date:                   planDate(),
		StartAddress:           "depot",
		StartTime:              "08:00",
		InstallDurationMinutes: 30,
	}
}

func parisGeocoder() fakeGeocoder {
	return fakeGeocoder{
		"depot":     paris,
		"near road": northOf(paris, 5),
		"far road":  northOf(paris, 12),
		"warehouse": northOf(paris, 20),
	}
}

func TestPlanFallsBackWhenRoutingUnavailable(t *testing.T) {
	router := &fakeRouter{err: fmt.Errorf("%w: osrm down", domain.ErrRoutingUnavailable)}
	p := NewPlanner(
		fakeBookings{bookings: []domain.Booking{booking("2", "far road"), booking("1", "near road")}},
		parisGeocoder(),
		router,
		45,
	)
	obs := &recordingObserver{}

	it, err := p.Plan(context.Background(), parisParams(), obs)
	require.NoError(t, err)

	require.Equal(t, []string{"1", "2"}, stopIDs(it.Stops))
	assert.Equal(t, at(8, 15), it.Stops[0].EstimatedArrival)
	assert.Equal(t, at(8, 45), it.Stops[0].EstimatedDeparture)
	assert.Equal(t, at(9, 0), it.Stops[1].EstimatedArrival)
	assert.Equal(t, at(9, 30), it.Stops[1].EstimatedDeparture)
	assert.Nil(t, it.ReturnLeg)
	assert.False(t, it.HasEnd())

	require.Len(t, it.Warnings, 1)
	assert.Equal(t, domain.WarningRoutingUnavailable, it.Warnings[0].Kind)
	assert.InDelta(t, 12, it.TotalDistanceKm, 1e-6)
	assert.Equal(t, "depot (resolved)", it.StartLabel)
	assert.Equal(t, at(8, 0), it.StartTime)

	assert.Equal(t, []State{
		StateFetchingBookings, StateGeocoding, StateOptimizing, StateRoadRouting, StateScheduling,
	}, obs.states)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, obs.progress)
	assert.Equal(t, 1, router.calls)
}

func TestPlanUsesRoadLegs(t *testing.T) {
	router := &fakeRouter{legs: []domain.RouteLeg{
		{DistanceKm: 6.5, DurationMinutes: 14},
		{DistanceKm: 8, DurationMinutes: 20},
		{DistanceKm: 9.5, DurationMinutes: 12},
	}}
	params := parisParams()
	params.EndAddress = "warehouse"

	p := NewPlanner(
		fakeBookings{bookings: []domain.Booking{booking("1", "near road"), booking("2", "far road")}},
		parisGeocoder(),
		router,
		45,
	)

	it, err := p.Plan(context.Background(), params, nil)
	require.NoError(t, err)
	assert.Empty(t, it.Warnings)

	require.Len(t, router.points, 1)
	assert.Len(t, router.points[0], 4)

	// 08:14 → 08:15, 09:05 → 09:15, 09:57 → 10:00.
	assert.Equal(t, at(8, 15), it.Stops[0].EstimatedArrival)
	assert.Equal(t, at(9, 15), it.Stops[1].EstimatedArrival)
	require.NotNil(t, it.ReturnLeg)
	assert.Equal(t, at(10, 0), it.ReturnLeg.ArrivalTime)
	assert.Equal(t, "warehouse (resolved)", it.EndLabel)
	assert.InDelta(t, 24, it.TotalDistanceKm, 1e-9)
	assert.InDelta(t, 46, it.TotalDurationMinutes, 1e-9)
}

func TestPlanLegCountMismatchFallsBackEveryLeg(t *testing.T) {
	router := &fakeRouter{legs: []domain.RouteLeg{
		{DistanceKm: 6.5, DurationMinutes: 14},
		{DistanceKm: 8, DurationMinutes: 20},
	}}
	params := parisParams()
	params.EndAddress = "warehouse"

	p := NewPlanner(
		fakeBookings{bookings: []domain.Booking{booking("1", "near road"), booking("2", "far road")}},
		parisGeocoder(),
		router,
		45,
	)

	it, err := p.Plan(context.Background(), params, nil)
	require.NoError(t, err)

	require.Len(t, it.Warnings, 1)
	assert.Equal(t, domain.WarningRoutingUnavailable, it.Warnings[0].Kind)
	require.NotNil(t, it.ReturnLeg)
	assert.InDelta(t, 8, it.ReturnLeg.DistanceKm, 1e-6)
	assert.InDelta(t, 5, it.Stops[0].DistanceFromPreviousKm, 1e-6)
}

func TestPlanReportsUnresolvedStops(t *testing.T) {
	p := NewPlanner(
		fakeBookings{bookings: []domain.Booking{
			booking("1", "near road"),
			booking("2", "nowhere at all"),
			booking("3", "far road"),
		}},
		parisGeocoder(),
		&fakeRouter{err: domain.ErrRoutingUnavailable},
		30,
	)

	it, err := p.Plan(context.Background(), parisParams(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "3"}, stopIDs(it.Stops))
	require.Len(t, it.Unresolved, 1)
	assert.Equal(t, "2", it.Unresolved[0].ID)
	assert.False(t, it.Unresolved[0].Locatable())

	var unresolved []domain.Warning
	for _, w := range it.Warnings {
		if w.Kind == domain.WarningAddressUnresolved {
			unresolved = append(unresolved, w)
		}
	}
	require.Len(t, unresolved, 1)
	assert.Equal(t, "2", unresolved[0].StopID)
}

func TestPlanEndUnresolvedPlansWithoutEnd(t *testing.T) {
	router := &fakeRouter{err: domain.ErrRoutingUnavailable}
	params := parisParams()
	params.EndAddress = "the moon"

	p := NewPlanner(
		fakeBookings{bookings: []domain.Booking{booking("1", "near road")}},
		parisGeocoder(),
		router,
		30,
	)
	obs := &recordingObserver{}

	it, err := p.Plan(context.Background(), params, obs)
	require.NoError(t, err)

	assert.Nil(t, it.ReturnLeg)
	assert.False(t, it.HasEnd())
	require.Len(t, router.points, 1)
	assert.Len(t, router.points[0], 2)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, obs.progress)

	kinds := make([]domain.WarningKind, 0, len(it.Warnings))
	for _, w := range it.Warnings {
		kinds = append(kinds, w.Kind)
	}
	assert.Contains(t, kinds, domain.WarningEndUnresolved)
}

func TestPlanFatalOutcomes(t *testing.T) {
	storeErr := errors.New("connection refused")

	tests := []struct {
		name     string
		bookings fakeBookings
		params   func(domain.PlanningParameters) domain.PlanningParameters
		want     error
		reason   string
	}{
		{
			name:     "start unresolved",
			bookings: fakeBookings{bookings: []domain.Booking{booking("1", "near road")}},
			params: func(p domain.PlanningParameters) domain.PlanningParameters {
				p.StartAddress = "atlantis"
				return p
			},
			want:   domain.ErrStartUnresolved,
			reason: "start_unresolved",
		},
		{
			name:     "no locatable stops",
			bookings: fakeBookings{bookings: []domain.Booking{booking("1", "nowhere"), booking("2", "elsewhere")}},
			want:     domain.ErrNoLocatableStops,
			reason:   "no_locatable_stops",
		},
		{
			name:     "empty booking set",
			bookings: fakeBookings{},
			want:     domain.ErrEmptyBookingSet,
			reason:   "nothing_to_plan",
		},
		{
			name:     "booking store failure",
			bookings: fakeBookings{err: storeErr},
			want:     storeErr,
			reason:   "internal",
		},
		{
			name:     "invalid start time",
			bookings: fakeBookings{bookings: []domain.Booking{booking("1", "near road")}},
			params: func(p domain.PlanningParameters) domain.PlanningParameters {
				p.StartTime = "eight"
				return p
			},
			want:   domain.ErrInvalidParameters,
			reason: "invalid_parameters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := &fakeRouter{}
			p := NewPlanner(tt.bookings, parisGeocoder(), router, 30)

			params := parisParams()
			if tt.params != nil {
				params = tt.params(params)
			}

			it, err := p.Plan(context.Background(), params, nil)
			require.Error(t, err)
			assert.Nil(t, it)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.reason, FailureReason(err))
			assert.Zero(t, router.calls)
		})
	}
}

func TestPlanStopsWhenObserverAborts(t *testing.T) {
	router := &fakeRouter{}
	p := NewPlanner(
		fakeBookings{bookings: []domain.Booking{booking("1", "near road"), booking("2", "far road")}},
		parisGeocoder(),
		router,
		30,
	)
	obs := &recordingObserver{failOn: 2}

	_, err := p.Plan(context.Background(), parisParams(), obs)
	require.ErrorIs(t, err, errSuperseded)
	assert.Len(t, obs.progress, 2)
	assert.Zero(t, router.calls)
}

func TestPlanUsesDefaultInstallDuration(t *testing.T) {
	params := parisParams()
	params.InstallDurationMinutes = 0

	p := NewPlanner(
		fakeBookings{bookings: []domain.Booking{booking("1", "near road")}},
		parisGeocoder(),
		&fakeRouter{err: domain.ErrRoutingUnavailable},
		60,
	)

	it, err := p.Plan(context.Background(), params, nil)
	require.NoError(t, err)
	assert.Equal(t, at(9, 15), it.Stops[0].EstimatedDeparture)
}
