package repositories

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"route-planner-service/internal/platform/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const seedJSON = `[
  {"id": "B-2", "client_name": "Boulangerie Martin", "location_fields": ["4 rue Oberkampf", "75011", "Paris"], "date": "2026-03-02"},
  {"id": "B-1", "client_name": "Café Lumière", "location_fields": ["12 avenue Jean Jaurès", "", "Montreuil"], "date": "2026-03-02"},
  {"id": "B-3", "client_name": "Hôtel du Nord", "location_fields": ["102 quai de Jemmapes", "Paris"], "date": "2026-03-03"}
]`

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, InitSchema(conn))
	return conn
}

func TestListBookingsByDate(t *testing.T) {
	conn := openTestDB(t)

	seedPath := filepath.Join(t.TempDir(), "bookings.json")
	require.NoError(t, os.WriteFile(seedPath, []byte(seedJSON), 0o600))
	require.NoError(t, SeedFromJSON(conn, seedPath, "?"))

	repo := NewSqliteBookingRepository(conn)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	bookings, err := repo.ListBookingsByDate(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, bookings, 2)

	assert.Equal(t, "B-1", bookings[0].ID)
	assert.Equal(t, "Café Lumière", bookings[0].ClientName)
	assert.Equal(t, "12 avenue Jean Jaurès, Montreuil", bookings[0].AddressQuery())
	assert.Equal(t, "B-2", bookings[1].ID)
	assert.Equal(t, day, bookings[1].Date)

	none, err := repo.ListBookingsByDate(context.Background(), day.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSeedFromJSONIsIdempotent(t *testing.T) {
	conn := openTestDB(t)

	seedPath := filepath.Join(t.TempDir(), "bookings.json")
	require.NoError(t, os.WriteFile(seedPath, []byte(seedJSON), 0o600))
	require.NoError(t, SeedFromJSON(conn, seedPath, "?"))
	require.NoError(t, SeedFromJSON(conn, seedPath, "?"))

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM bookings`).Scan(&n))
	assert.Equal(t, 3, n)
}

func TestSeedFromJSONRejectsBadDate(t *testing.T) {
	conn := openTestDB(t)

	seedPath := filepath.Join(t.TempDir(), "bookings.json")
	require.NoError(t, os.WriteFile(seedPath, []byte(`[{"id":"X","client_name":"x","location_fields":[],"date":"02/03/2026"}]`), 0o600))

	assert.Error(t, SeedFromJSON(conn, seedPath, "?"))
}
