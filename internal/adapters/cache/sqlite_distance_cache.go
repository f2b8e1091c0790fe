package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"route-planner-service/internal/domain"
	"route-planner-service/internal/ports"
)

// SQLite backed cache of road legs keyed by origin and destination coordinates.
type SqliteDistanceCache struct {
	DB *sql.DB
}

func NewSqliteDistanceCache(db *sql.DB) *SqliteDistanceCache {
	return &SqliteDistanceCache{DB: db}
}

// Fetch cached legs for the given coordinate pairs.
func (s *SqliteDistanceCache) GetMany(
	ctx context.Context,
	pairs []ports.CoordinatePair,
) (map[ports.CoordinatePair]domain.RouteLeg, error) {
	if s.DB == nil {
		return nil, errors.New("distance cache: db is nil")
	}

	if len(pairs) == 0 {
		return map[ports.CoordinatePair]domain.RouteLeg{}, nil
	}

	wanted, origins, destinations := pairKeys(pairs)

	args := make([]any, 0, len(origins)+len(destinations))
	for _, o := range origins {
		args = append(args, o)
	}
	for _, d := range destinations {
		args = append(args, d)
	}

	// SQLite does not support binding slices directly in an IN (...) clause.
	// Only the placeholder structure is interpolated; all values remain parameterized.
	q := fmt.Sprintf(`
	SELECT
        origin,
        destination,
        distance_km,
        duration_minutes
    FROM distance_cache
    WHERE origin IN (%s)
        AND destination IN (%s);
	`, placeholders(len(origins)), placeholders(len(destinations)))

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get distance cache: query distance_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[ports.CoordinatePair]domain.RouteLeg, len(wanted))
	for rows.Next() {
		var origin, dest string
		var leg domain.RouteLeg
		if err := rows.Scan(&origin, &dest, &leg.DistanceKm, &leg.DurationMinutes); err != nil {
			return nil, fmt.Errorf("get distance cache: scan rows: %w", err)
		}
		if p, ok := wanted[origin+"|"+dest]; ok {
			out[p] = leg
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get distance cache: row iteration: %w", err)
	}

	return out, nil
}

// Store many road legs.
func (s *SqliteDistanceCache) PutMany(ctx context.Context, legs map[ports.CoordinatePair]domain.RouteLeg) error {
	if s.DB == nil {
		return errors.New("distance cache: db is nil")
	}

	if len(legs) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert distance cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO distance_cache (
        origin,
        destination,
        distance_km,
        duration_minutes
    )
    VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("insert distance cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for p, leg := range legs {
		if leg.Estimated {
			continue
		}
		if _, err := stmt.ExecContext(ctx, p.From.String(), p.To.String(), leg.DistanceKm, leg.DurationMinutes); err != nil {
			return fmt.Errorf("insert distance cache %s -> %s: %w", p.From, p.To, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert distance cache commit: %w", err)
	}

	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
