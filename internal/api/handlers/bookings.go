package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"route-planner-service/internal/api/dto"
	"route-planner-service/internal/ports"
)

// BookingHandler exposes the read-only booking lookup used to preview a day.
type BookingHandler struct {
	Source   ports.BookingSource
	Location *time.Location
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		writeError(w, r, http.StatusBadRequest, "date is required")
		return
	}
	date, err := parseDate(raw, h.Location)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	bookings, err := h.Source.ListBookingsByDate(r.Context(), date)
	if err != nil {
		log.Printf("list bookings failed: date=%s err=%v", raw, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListBookingsResponse{
		Date:     date.Format(dto.DateLayout),
		Bookings: make([]dto.BookingResponse, 0, len(bookings)),
	}
	for _, b := range bookings {
		res.Bookings = append(res.Bookings, dto.BookingResponse{
			ID:             b.ID,
			ClientName:     b.ClientName,
			LocationFields: b.LocationFields,
			Address:        b.AddressQuery(),
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

func parseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(dto.DateLayout, raw, loc)
}
