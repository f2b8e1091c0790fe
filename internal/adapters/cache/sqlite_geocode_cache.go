package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"route-planner-service/internal/domain"
)

// SQLite backed cache mapping address strings to geocode results.
// Keys are normalized (whitespace collapsed, lower-cased) before use.
type SqliteGeocodeCache struct {
	DB *sql.DB
}

func NewSqliteGeocodeCache(db *sql.DB) *SqliteGeocodeCache {
	return &SqliteGeocodeCache{DB: db}
}

// Fetch the cached result for address.
func (s *SqliteGeocodeCache) Get(ctx context.Context, address string) (domain.GeocodeResult, bool, error) {
	if s.DB == nil {
		return domain.GeocodeResult{}, false, errors.New("geocode cache: db is nil")
	}

	address = normalize(address)
	if address == "" {
		return domain.GeocodeResult{}, false, nil
	}

	q := `
	SELECT
        lat,
        lon,
        display_name
    FROM geocode_cache
    WHERE address = ?;
	`

	var res domain.GeocodeResult
	err := s.DB.QueryRowContext(ctx, q, address).Scan(&res.Coordinate.Lat, &res.Coordinate.Lon, &res.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GeocodeResult{}, false, nil
	}
	if err != nil {
		return domain.GeocodeResult{}, false, fmt.Errorf("get geocode cache: query geocode_cache table: %w", err)
	}

	return res, true, nil
}

// Store an address -> result mapping in the cache.
func (s *SqliteGeocodeCache) Put(ctx context.Context, address string, res domain.GeocodeResult) error {
	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}

	address = normalize(address)
	if address == "" {
		return fmt.Errorf("insert geocode cache: empty address key")
	}

	_, err := s.DB.ExecContext(ctx, `
	INSERT OR REPLACE INTO geocode_cache (
        address,
        lat,
        lon,
        display_name
    )
    VALUES (?, ?, ?, ?);
	`, address, res.Coordinate.Lat, res.Coordinate.Lon, res.DisplayName)
	if err != nil {
		return fmt.Errorf("insert geocode cache address=%q: %w", address, err)
	}

	return nil
}
