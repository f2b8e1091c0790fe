package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"route-planner-service/internal/domain"
	"route-planner-service/internal/platform/obs"
	"route-planner-service/internal/ports"
)

// SQLDistanceCache is a Postgres-backed cache of road legs keyed by
// origin and destination coordinates.
type SQLDistanceCache struct {
	DB *sql.DB
}

func NewSQLDistanceCache(db *sql.DB) *SQLDistanceCache {
	return &SQLDistanceCache{DB: db}
}

// Fetch cached legs for the given coordinate pairs. Missing pairs are absent
// from the result.
func (s *SQLDistanceCache) GetMany(
	ctx context.Context,
	pairs []ports.CoordinatePair,
) (_ map[ports.CoordinatePair]domain.RouteLeg, err error) {
	defer obs.Time(ctx, "distance.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("distance cache: db is nil")
	}

	if len(pairs) == 0 {
		return map[ports.CoordinatePair]domain.RouteLeg{}, nil
	}

	wanted, origins, destinations := pairKeys(pairs)

	q := `
	SELECT origin, destination, distance_km, duration_minutes
    FROM distance_cache
    WHERE origin = ANY($1::text[])
        AND destination = ANY($2::text[]);
	`

	rows, err := s.DB.QueryContext(ctx, q, origins, destinations)
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
		// The ANY/ANY filter is a cross product; keep only requested pairs.
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
func (s *SQLDistanceCache) PutMany(
	ctx context.Context,
	legs map[ports.CoordinatePair]domain.RouteLeg,
) error {
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
	INSERT INTO distance_cache (origin, destination, distance_km, duration_minutes)
    VALUES ($1, $2, $3, $4)
	ON CONFLICT (origin, destination) DO UPDATE
	SET distance_km = EXCLUDED.distance_km,
		duration_minutes = EXCLUDED.duration_minutes;
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

// pairKeys indexes pairs by "origin|destination" and returns the distinct
// origin and destination keys.
func pairKeys(pairs []ports.CoordinatePair) (map[string]ports.CoordinatePair, []string, []string) {
	wanted := make(map[string]ports.CoordinatePair, len(pairs))
	seenOrigin := map[string]struct{}{}
	seenDest := map[string]struct{}{}
	origins := make([]string, 0, len(pairs))
	destinations := make([]string, 0, len(pairs))

	for _, p := range pairs {
		o, d := p.From.String(), p.To.String()
		wanted[o+"|"+d] = p

		if _, ok := seenOrigin[o]; !ok {
			seenOrigin[o] = struct{}{}
			origins = append(origins, o)
		}
		if _, ok := seenDest[d]; !ok {
			seenDest[d] = struct{}{}
			destinations = append(destinations, d)
		}
	}

	return wanted, origins, destinations
}
