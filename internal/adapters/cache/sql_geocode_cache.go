package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"route-planner-service/internal/domain"
	"route-planner-service/internal/platform/obs"
)

// SQLGeocodeCache is a Postgres-backed cache mapping addresses to geocode results.
type SQLGeocodeCache struct {
	DB *sql.DB
}

func NewSQLGeocodeCache(db *sql.DB) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: db}
}

// Fetch the cached result for address.
func (s *SQLGeocodeCache) Get(ctx context.Context, address string) (_ domain.GeocodeResult, _ bool, err error) {
	defer obs.Time(ctx, "geocode.cache.Get")(&err)

	if s.DB == nil {
		return domain.GeocodeResult{}, false, errors.New("geocode cache: db is nil")
	}

	address = normalize(address)
	if address == "" {
		return domain.GeocodeResult{}, false, nil
	}

	q := `
	SELECT lat, lon, display_name
    FROM geocode_cache
    WHERE address = $1;
	`

	var res domain.GeocodeResult
	err = s.DB.QueryRowContext(ctx, q, address).Scan(&res.Coordinate.Lat, &res.Coordinate.Lon, &res.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GeocodeResult{}, false, nil
	}
	if err != nil {
		return domain.GeocodeResult{}, false, fmt.Errorf("get geocode cache: query geocode_cache table: %w", err)
	}

	return res, true, nil
}

// Store an address -> result mapping in the cache.
func (s *SQLGeocodeCache) Put(ctx context.Context, address string, res domain.GeocodeResult) error {
	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}

	address = normalize(address)
	if address == "" {
		return fmt.Errorf("insert geocode cache: empty address key")
	}

	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO geocode_cache (address, lat, lon, display_name)
    VALUES ($1, $2, $3, $4)
	ON CONFLICT (address) DO UPDATE
	SET lat = EXCLUDED.lat,
		lon = EXCLUDED.lon,
		display_name = EXCLUDED.display_name;
	`, address, res.Coordinate.Lat, res.Coordinate.Lon, res.DisplayName)
	if err != nil {
		return fmt.Errorf("insert geocode cache address=%q: %w", address, err)
	}

	return nil
}

// normalize ensures consistent cache keys by collapsing whitespace and case.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
