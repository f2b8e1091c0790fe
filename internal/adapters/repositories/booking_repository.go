package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"route-planner-service/internal/domain"
	"route-planner-service/internal/platform/obs"
)

// SQL-backed implementation of the BookingSource port.
// Placeholder is "?" for SQLite and "$1" for Postgres; the query is otherwise shared.
type SQLBookingRepository struct {
	DB          *sql.DB
	Placeholder string
}

func NewSqliteBookingRepository(db *sql.DB) *SQLBookingRepository {
	return &SQLBookingRepository{DB: db, Placeholder: "?"}
}

func NewPostgresBookingRepository(db *sql.DB) *SQLBookingRepository {
	return &SQLBookingRepository{DB: db, Placeholder: "$1"}
}

// Return the bookings due on date, ordered by id.
func (s *SQLBookingRepository) ListBookingsByDate(ctx context.Context, date time.Time) (_ []domain.Booking, err error) {
	defer obs.Time(ctx, "bookings.ListByDate")(&err)

	if s.DB == nil {
		return nil, errors.New("booking repository: DB is nil")
	}

	query := `
	SELECT
		id,
		client_name,
		location_fields
	FROM bookings
	WHERE delivery_date = ` + s.Placeholder + `
	ORDER BY id;
	`

	day := date.Format(DateLayout)
	rows, err := s.DB.QueryContext(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("list bookings: query bookings table: %w", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0, 16)
	for rows.Next() {
		var b domain.Booking
		var rawFields string
		if err := rows.Scan(&b.ID, &b.ClientName, &rawFields); err != nil {
			return nil, fmt.Errorf("list bookings: scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(rawFields), &b.LocationFields); err != nil {
			return nil, fmt.Errorf("list bookings: decode location fields id=%q: %w", b.ID, err)
		}
		b.Date = date
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings: row iteration: %w", err)
	}

	return bookings, nil
}
