package dto

import "time"

type PlanRequest struct {
	Date           string `json:"date"`
	StartAddress   string `json:"start_address"`
	EndAddress     string `json:"end_address"`
	StartTime      string `json:"start_time"`
	InstallMinutes int    `json:"install_minutes"`
}

type StartPlanResponse struct {
	SessionID string `json:"session_id"`
}

type CoordinateResponse struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type StopResponse struct {
	ID                     string              `json:"id"`
	ClientName             string              `json:"client_name"`
	Address                string              `json:"address"`
	Coordinate             *CoordinateResponse `json:"coordinate,omitempty"`
	DistanceFromPreviousKm float64             `json:"distance_from_previous_km"`
	TravelMinutes          float64             `json:"travel_minutes"`
	ArriveAt               *time.Time          `json:"arrive_at,omitempty"`
	DepartAt               *time.Time          `json:"depart_at,omitempty"`
}

type ReturnLegResponse struct {
	DistanceKm      float64   `json:"distance_km"`
	DurationMinutes float64   `json:"duration_minutes"`
	ArriveAt        time.Time `json:"arrive_at"`
}

type WarningResponse struct {
	Kind    string `json:"kind"`
	StopID  string `json:"stop_id,omitempty"`
	Message string `json:"message"`
}

type ItineraryResponse struct {
	Date                 string             `json:"date"`
	Start                string             `json:"start"`
	StartTime            time.Time          `json:"start_time"`
	End                  string             `json:"end,omitempty"`
	Stops                []StopResponse     `json:"stops"`
	Unresolved           []StopResponse     `json:"unresolved"`
	ReturnLeg            *ReturnLegResponse `json:"return_leg,omitempty"`
	Warnings             []WarningResponse  `json:"warnings"`
	TotalDistanceKm      float64            `json:"total_distance_km"`
	TotalDurationMinutes float64            `json:"total_duration_minutes"`
}

type ProgressResponse struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

type SnapshotResponse struct {
	SessionID     string             `json:"session_id"`
	State         string             `json:"state"`
	Progress      ProgressResponse   `json:"progress"`
	Itinerary     *ItineraryResponse `json:"itinerary,omitempty"`
	NothingToPlan bool               `json:"nothing_to_plan"`
	Reason        string             `json:"reason,omitempty"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// EventResponse is the data payload of one server-sent event.
type EventResponse struct {
	State         string             `json:"state"`
	Progress      *ProgressResponse  `json:"progress,omitempty"`
	Itinerary     *ItineraryResponse `json:"itinerary,omitempty"`
	NothingToPlan bool               `json:"nothing_to_plan,omitempty"`
	Reason        string             `json:"reason,omitempty"`
}
