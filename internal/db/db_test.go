package db

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nitin1612/bus-tracking-app/internal/transit"
)

func setupSQLite(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := OpenSQLite(filepath.Join(t.TempDir(), "transit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ctx := context.Background()
	require.NoError(t, Ping(ctx, conn))
	require.NoError(t, EnsureSchema(ctx, conn))
	require.NoError(t, EnsureSchema(ctx, conn), "schema creation is idempotent")

	stmts := []string{
		`INSERT INTO bus_stops (id, name, lat, lon, buses) VALUES (2, 'Peelamedu Junction', 3.0, 4.0, '6A')`,
		`INSERT INTO bus_stops (id, name, lat, lon, buses) VALUES (1, 'Gandhipuram Bus Stand', 1.0, 2.0, '6A, 45 ,')`,
		`INSERT INTO bus_stops (id, name, lat, lon) VALUES (3, 'Ukkadam', NULL, NULL)`,
		`INSERT INTO bus_routes (id, bus_no, from_stage, to_stage, first_bus, last_bus, frequency_mins) VALUES (1, ' 6A ', 'Gandhipuram', 'Peelamedu', '05:30', '22:10', 15)`,
		`INSERT INTO bus_routes (id, bus_no, from_stage, to_stage) VALUES (2, '45', 'Ukkadam', 'Town Hall')`,
		`INSERT INTO recent_selections (id, kind, ref) VALUES (1, 'Stop', 'Ukkadam')`,
		`INSERT INTO recent_selections (id, kind, ref) VALUES (2, 'bus', '6A')`,
	}
	for _, s := range stmts {
		_, err := conn.ExecContext(ctx, s)
		require.NoError(t, err)
	}
	return conn
}

func TestFetchStops(t *testing.T) {
	conn := setupSQLite(t)

	stops, err := FetchStops(context.Background(), conn)
	require.NoError(t, err)
	require.Len(t, stops, 3)

	assert.Equal(t, "Gandhipuram Bus Stand", stops[0].Name, "ordered by id")
	assert.Equal(t, transit.Coord{Lat: 1, Lon: 2}, stops[0].Position)
	assert.Equal(t, []string{"6A", "45"}, stops[0].Buses)

	assert.True(t, math.IsNaN(stops[2].Position.Lat))
	assert.False(t, stops[2].Position.Valid())
	assert.Empty(t, stops[2].Buses)
}

func TestFetchRoutes(t *testing.T) {
	conn := setupSQLite(t)

	routes, err := FetchRoutes(context.Background(), conn)
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, transit.Route{
		BusNo: "6A", From: "Gandhipuram", To: "Peelamedu",
		FirstBus: "05:30", LastBus: "22:10", FrequencyMins: 15,
	}, routes[0])
	assert.Equal(t, 0, routes[1].FrequencyMins)
	assert.Empty(t, routes[1].FirstBus)
}

func TestFetchRecent(t *testing.T) {
	conn := setupSQLite(t)

	refs, err := FetchRecent(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, []RecentRef{{Kind: "stop", Ref: "Ukkadam"}, {Kind: "bus", Ref: "6A"}}, refs)
}

func TestWithDBName(t *testing.T) {
	got, err := WithDBName("postgres://u:p@localhost:5432/postgres?sslmode=disable", "coimbatore_2025")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost:5432/coimbatore_2025?sslmode=disable", got)

	got, err = WithDBName("u@localhost/base", "/other")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u@localhost/other", got)

	_, err = WithDBName("", "x")
	assert.Error(t, err)
	_, err = WithDBName("mysql://localhost/db", "x")
	assert.Error(t, err)
	_, err = WithDBName("postgres://localhost/db", " ")
	assert.Error(t, err)
}

func TestParseBuses(t *testing.T) {
	assert.Nil(t, ParseBuses(""))
	assert.Equal(t, []string{"1C", "70"}, ParseBuses(" 1C,,70 "))
}
