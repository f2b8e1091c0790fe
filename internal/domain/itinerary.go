package domain

import "time"

type WarningKind string

const (
	WarningAddressUnresolved  WarningKind = "address_unresolved"
	WarningRoutingUnavailable WarningKind = "routing_unavailable"
	WarningEndUnresolved      WarningKind = "end_unresolved"
)

// Non-fatal problem collected during a planning run.
type Warning struct {
	Kind    WarningKind
	StopID  string
	Message string
}

// Final leg from the last stop back to the end location.
type ReturnLeg struct {
	DistanceKm      float64
	DurationMinutes float64
	ArrivalTime     time.Time
}

// Represents the scheduled delivery day produced by a planning run.
//
// Stops are in final delivery order and every one of them has a coordinate.
// Bookings whose address could not be located are kept in Unresolved, each
// with a matching warning, so callers can flag them instead of losing them.
type Itinerary struct {
	Date                 time.Time
	StartLabel           string
	StartTime            time.Time
	EndLabel             string
	Stops                []Stop
	Unresolved           []Stop
	ReturnLeg            *ReturnLeg
	Warnings             []Warning
	TotalDistanceKm      float64
	TotalDurationMinutes float64
}

// HasEnd reports whether the itinerary finishes at a separate end location.
func (it *Itinerary) HasEnd() bool { return it.EndLabel != "" }
