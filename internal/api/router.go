package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"route-planner-service/internal/api/handlers"
	"route-planner-service/internal/platform/metrics"
	"route-planner-service/internal/ports"
	"route-planner-service/internal/services"
)

// Options carries the request defaults and health checks for NewRouter.
type Options struct {
	DefaultStartAddress string
	Location            *time.Location
	Heartbeat           time.Duration
	HealthChecks        map[string]func(ctx context.Context) error
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(bookings ports.BookingSource, manager *services.Manager, opts Options) http.Handler {
	mux := http.NewServeMux()

	healthHandler := &handlers.HealthHandler{Checks: opts.HealthChecks}
	bookingHandler := &handlers.BookingHandler{Source: bookings, Location: opts.Location}
	planHandler := &handlers.PlanHandler{
		Manager:             manager,
		DefaultStartAddress: opts.DefaultStartAddress,
		Location:            opts.Location,
		Heartbeat:           opts.Heartbeat,
	}

	mux.HandleFunc("/health", healthHandler.Health)
	mux.HandleFunc("/bookings", bookingHandler.List)
	mux.HandleFunc("/plans", planHandler.Start)
	mux.HandleFunc("/plans/{id}", planHandler.Session)
	mux.HandleFunc("/plans/{id}/reset", planHandler.Reset)
	mux.HandleFunc("/plans/{id}/events", planHandler.Events)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return requestIDMiddleware(loggingMiddleware(mux))
}
