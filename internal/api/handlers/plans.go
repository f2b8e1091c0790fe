package handlers

import (
	"net/http"
	"strings"
	"time"

	"route-planner-service/internal/api/dto"
	"route-planner-service/internal/domain"
	"route-planner-service/internal/services"
)

const defaultStartTime = "08:00"

// PlanHandler starts planning sessions and exposes their state.
// Planning runs in the background; callers poll the snapshot or follow the
// event stream.
type PlanHandler struct {
	Manager             *services.Manager
	DefaultStartAddress string
	Location            *time.Location
	Heartbeat           time.Duration
}

// Start handles POST /plans.
func (h *PlanHandler) Start(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	params, ok := h.decodeParams(w, r)
	if !ok {
		return
	}

	id, err := h.Manager.StartPlanning(params)
	if err != nil {
		writeServiceError(w, r, "start planning", err)
		return
	}

	w.Header().Set("Location", "/plans/"+id)
	writeJSON(w, r, http.StatusAccepted, dto.StartPlanResponse{SessionID: id})
}

// Session handles GET (snapshot), PUT (replan) and DELETE (remove) on
// /plans/{id}.
func (h *PlanHandler) Session(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		snap, err := h.Manager.Snapshot(id)
		if err != nil {
			writeServiceError(w, r, "get plan", err)
			return
		}
		writeJSON(w, r, http.StatusOK, snapshotResponse(snap))

	case http.MethodPut:
		params, ok := h.decodeParams(w, r)
		if !ok {
			return
		}
		if err := h.Manager.Replan(id, params); err != nil {
			writeServiceError(w, r, "replan", err)
			return
		}
		writeJSON(w, r, http.StatusAccepted, dto.StartPlanResponse{SessionID: id})

	case http.MethodDelete:
		if err := h.Manager.Remove(id); err != nil {
			writeServiceError(w, r, "remove plan", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", strings.Join([]string{http.MethodGet, http.MethodPut, http.MethodDelete}, ", "))
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// Reset handles POST /plans/{id}/reset. The session stays addressable and
// returns to idle.
func (h *PlanHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := r.PathValue("id")
	if err := h.Manager.Reset(id); err != nil {
		writeServiceError(w, r, "reset plan", err)
		return
	}
	snap, err := h.Manager.Snapshot(id)
	if err != nil {
		writeServiceError(w, r, "reset plan", err)
		return
	}
	writeJSON(w, r, http.StatusOK, snapshotResponse(snap))
}

// decodeParams reads a PlanRequest and applies the request defaults. It writes
// the error response itself and reports whether the caller may continue.
func (h *PlanHandler) decodeParams(w http.ResponseWriter, r *http.Request) (domain.PlanningParameters, bool) {
	var req dto.PlanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return domain.PlanningParameters{}, false
	}

	date, err := parseDate(strings.TrimSpace(req.Date), h.Location)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return domain.PlanningParameters{}, false
	}

	start := strings.TrimSpace(req.StartAddress)
	if start == "" {
		start = strings.TrimSpace(h.DefaultStartAddress)
	}
	startTime := strings.TrimSpace(req.StartTime)
	if startTime == "" {
		startTime = defaultStartTime
	}

	return domain.PlanningParameters{
		Date:                   date,
		StartAddress:           start,
		EndAddress:             strings.TrimSpace(req.EndAddress),
		StartTime:              startTime,
		InstallDurationMinutes: req.InstallMinutes,
	}, true
}

func snapshotResponse(s services.Snapshot) dto.SnapshotResponse {
	return dto.SnapshotResponse{
		SessionID:     s.ID,
		State:         string(s.State),
		Progress:      dto.ProgressResponse{Current: s.Current, Total: s.Total},
		Itinerary:     itineraryResponse(s.Itinerary),
		NothingToPlan: s.NothingToPlan,
		Reason:        s.Reason,
		UpdatedAt:     s.UpdatedAt,
	}
}

func itineraryResponse(it *domain.Itinerary) *dto.ItineraryResponse {
	if it == nil {
		return nil
	}

	res := &dto.ItineraryResponse{
		Date:                 it.Date.Format(dto.DateLayout),
		Start:                it.StartLabel,
		StartTime:            it.StartTime,
		End:                  it.EndLabel,
		Stops:                make([]dto.StopResponse, 0, len(it.Stops)),
		Unresolved:           make([]dto.StopResponse, 0, len(it.Unresolved)),
		Warnings:             make([]dto.WarningResponse, 0, len(it.Warnings)),
		TotalDistanceKm:      it.TotalDistanceKm,
		TotalDurationMinutes: it.TotalDurationMinutes,
	}

	for _, s := range it.Stops {
		res.Stops = append(res.Stops, stopResponse(s))
	}
	for _, s := range it.Unresolved {
		res.Unresolved = append(res.Unresolved, stopResponse(s))
	}
	for _, w := range it.Warnings {
		res.Warnings = append(res.Warnings, dto.WarningResponse{
			Kind:    string(w.Kind),
			StopID:  w.StopID,
			Message: w.Message,
		})
	}
	if it.ReturnLeg != nil {
		res.ReturnLeg = &dto.ReturnLegResponse{
			DistanceKm:      it.ReturnLeg.DistanceKm,
			DurationMinutes: it.ReturnLeg.DurationMinutes,
			ArriveAt:        it.ReturnLeg.ArrivalTime,
		}
	}

	return res
}

func stopResponse(s domain.Stop) dto.StopResponse {
	res := dto.StopResponse{
		ID:                     s.ID,
		ClientName:             s.ClientName,
		Address:                s.AddressQuery,
		DistanceFromPreviousKm: s.DistanceFromPreviousKm,
		TravelMinutes:          s.TravelMinutes,
	}
	if s.Coordinate != nil {
		res.Coordinate = &dto.CoordinateResponse{Lat: s.Coordinate.Lat, Lon: s.Coordinate.Lon}
	}
	if !s.EstimatedArrival.IsZero() {
		arrive := s.EstimatedArrival
		depart := s.EstimatedDeparture
		res.ArriveAt = &arrive
		res.DepartAt = &depart
	}
	return res
}
