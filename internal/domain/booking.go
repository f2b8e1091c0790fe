package domain

import (
	"strings"
	"time"
)

// Read-only snapshot of a booking due for delivery on a given date.
// Bookings are owned by the external booking store; the planner never writes them.
type Booking struct {
	ID             string
	ClientName     string
	LocationFields []string
	Date           time.Time
}

// AddressQuery joins the non-empty location fields into a single geocoding query.
func (b Booking) AddressQuery() string {
	parts := make([]string, 0, len(b.LocationFields))
	for _, f := range b.LocationFields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		parts = append(parts, f)
	}
	return strings.Join(parts, ", ")
}
