package dto

// DateLayout is the calendar date format accepted and returned by the API.
const DateLayout = "2006-01-02"

type BookingResponse struct {
	ID             string   `json:"id"`
	ClientName     string   `json:"client_name"`
	LocationFields []string `json:"location_fields"`
	Address        string   `json:"address"`
}

type ListBookingsResponse struct {
	Date     string            `json:"date"`
	Bookings []BookingResponse `json:"bookings"`
}
