package services

import (
	"fmt"
	"math"
	"time"

	"route-planner-service/internal/domain"
)

const quarterHour = 15 * time.Minute

// CeilQuarterHour rounds t up to the next quarter hour on the wall clock.
// Times already on a quarter are returned unchanged.
func CeilQuarterHour(t time.Time) time.Time {
	rem := time.Duration(t.Minute()%15)*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
	if rem == 0 {
		return t
	}
	return t.Add(quarterHour - rem)
}

// BuildSchedule assigns arrival and departure times to ordered stops.
//
// legs[i] is the leg arriving at stops[i]; a trailing extra leg, when
// present, is the return to the end location. Every arrival and departure is
// rounded up to a quarter hour and each step starts from the previous
// rounded time. The input slices are not modified.
func BuildSchedule(
	stops []domain.Stop,
	legs []domain.RouteLeg,
	start time.Time,
	installMinutes int,
) ([]domain.Stop, *domain.ReturnLeg, error) {
	if len(legs) != len(stops) && len(legs) != len(stops)+1 {
		return nil, nil, fmt.Errorf("build schedule: %d legs for %d stops", len(legs), len(stops))
	}

	install := time.Duration(installMinutes) * time.Minute
	current := start

	out := make([]domain.Stop, len(stops))
	for i, s := range stops {
		leg := legs[i]

		current = CeilQuarterHour(current.Add(minutes(leg.DurationMinutes)))
		s.EstimatedArrival = current

		current = CeilQuarterHour(current.Add(install))
		s.EstimatedDeparture = current

		s.TravelMinutes = leg.DurationMinutes
		s.DistanceFromPreviousKm = leg.DistanceKm
		out[i] = s
	}

	if len(legs) == len(stops) {
		return out, nil, nil
	}

	last := legs[len(legs)-1]
	current = CeilQuarterHour(current.Add(minutes(last.DurationMinutes)))

	return out, &domain.ReturnLeg{
		DistanceKm:      last.DistanceKm,
		DurationMinutes: last.DurationMinutes,
		ArrivalTime:     current,
	}, nil
}

// minutes converts fractional minutes to a duration, rounded to the second
// so float noise cannot push a time across a quarter boundary.
func minutes(m float64) time.Duration {
	return time.Duration(math.Round(m*60)) * time.Second
}
