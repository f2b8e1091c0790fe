package domain

import "time"

// Represents one delivery visit within a planning run.
// A Stop is created from a booking snapshot, filled in by the optimizer and the
// schedule builder, and discarded with the run. It is never persisted.
type Stop struct {
	ID                     string
	ClientName             string
	AddressQuery           string
	Coordinate             *Coordinate
	DistanceFromPreviousKm float64
	TravelMinutes          float64
	EstimatedArrival       time.Time
	EstimatedDeparture     time.Time
}

// NewStop builds an unresolved stop from a booking.
func NewStop(b Booking) Stop {
	return Stop{
		ID:           b.ID,
		ClientName:   b.ClientName,
		AddressQuery: b.AddressQuery(),
	}
}

// Locatable reports whether geocoding produced a coordinate for the stop.
func (s Stop) Locatable() bool { return s.Coordinate != nil }

// Travel segment between two consecutive points of an ordered route.
// Estimated is set when the leg comes from the great-circle fallback
// rather than the road routing service.
type RouteLeg struct {
	DistanceKm      float64
	DurationMinutes float64
	Estimated       bool
}
