package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// DateLayout is the storage format of bookings.delivery_date.
const DateLayout = "2006-01-02"

// Initialize the database schema. The DDL is accepted by both SQLite and Postgres.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createBookingsQuery := `
	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		client_name TEXT NOT NULL,
		location_fields TEXT NOT NULL,
		delivery_date TEXT NOT NULL
	);
	`

	createBookingsIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_bookings_delivery_date
    ON bookings(delivery_date);
	`

	createDistanceCacheQuery := `
	CREATE TABLE IF NOT EXISTS distance_cache (
        origin TEXT NOT NULL,
        destination TEXT NOT NULL,
        distance_km DOUBLE PRECISION NOT NULL,
        duration_minutes DOUBLE PRECISION NOT NULL,
        PRIMARY KEY (origin, destination)
    );
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
        address TEXT PRIMARY KEY,
        lat DOUBLE PRECISION NOT NULL,
        lon DOUBLE PRECISION NOT NULL,
        display_name TEXT NOT NULL
    );
	`

	statements := []string{
		createBookingsQuery,
		createBookingsIndexQuery,
		createDistanceCacheQuery,
		createGeocodeCacheQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type BookingSeed struct {
	ID             string   `json:"id"`
	ClientName     string   `json:"client_name"`
	LocationFields []string `json:"location_fields"`
	Date           string   `json:"date"`
}

// Populate the bookings table from a JSON file. placeholder selects the
// bind style of the target database ("?" for SQLite, "$" for Postgres).
func SeedFromJSON(db *sql.DB, jsonPath string, placeholder string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed bookings: read %q: %w", jsonPath, err)
	}

	var data []BookingSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed bookings: parse json: %w", err)
	}

	for i, item := range data {
		if strings.TrimSpace(item.ID) == "" {
			return fmt.Errorf("seed bookings: item at index %d: id cannot be empty", i+1)
		}
		if _, err := time.Parse(DateLayout, item.Date); err != nil {
			return fmt.Errorf("seed bookings: item %q: invalid date %q", item.ID, item.Date)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed bookings: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO bookings (id, client_name, location_fields, delivery_date)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE
	SET client_name = EXCLUDED.client_name,
		location_fields = EXCLUDED.location_fields,
		delivery_date = EXCLUDED.delivery_date;
	`
	if placeholder == "$" {
		query = strings.NewReplacer("(?, ?, ?, ?)", "($1, $2, $3, $4)").Replace(query)
	}

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("seed bookings: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range data {
		fields, err := json.Marshal(b.LocationFields)
		if err != nil {
			return fmt.Errorf("seed bookings: encode fields id=%q: %w", b.ID, err)
		}
		if _, err := stmt.Exec(b.ID, strings.TrimSpace(b.ClientName), string(fields), b.Date); err != nil {
			return fmt.Errorf("seed bookings: insert id=%q: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed bookings: commit tx: %w", err)
	}

	return nil
}
