package ports

import (
	"context"
	"route-planner-service/internal/domain"
	"time"
)

// Port: read-only boundary to the external booking store.
type BookingSource interface {
	// Return the bookings due for delivery on date, in a stable order.
	ListBookingsByDate(ctx context.Context, date time.Time) ([]domain.Booking, error)
}
