package domain

import "errors"

var (
	// Per-stop, non-fatal: the stop is excluded from routing and reported.
	ErrAddressUnresolved = errors.New("address unresolved")
	// Non-fatal: legs fall back to great-circle estimates.
	ErrRoutingUnavailable = errors.New("routing unavailable")
	// Fatal: no itinerary without a start point.
	ErrStartUnresolved = errors.New("start address unresolved")
	// Fatal for the run: every candidate stop failed geocoding.
	ErrNoLocatableStops = errors.New("no locatable stops")
	// Terminal but not an error: nothing to plan for the date.
	ErrEmptyBookingSet = errors.New("no bookings for date")

	ErrInvalidParameters = errors.New("invalid planning parameters")
)
