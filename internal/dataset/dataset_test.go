package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nitin1612/bus-tracking-app/internal/db"
	"github.com/Nitin1612/bus-tracking-app/internal/transit"
)

const stopsJSON = `{"busstops":[
  {"id":1,"name":"Gandhipuram Bus Stand","lat":1.0,"lon":2.0,"buses":["6A",45]},
  {"id":2,"name":"Peelamedu Junction","lat":3.0,"lon":4.0,"buses":["6A"]},
  {"id":3,"name":"Ukkadam","lat":0,"lon":0},
  {"id":4,"name":"Town Hall"}
]}`

const routesJSON = `{"busroutes":[
  {"busNo":"6A","from":"Gandhipuram","to":"Peelamedu","firstBus":"05:30","lastBus":"22:10","frequencyMins":15},
  {"busNo":45,"from":"Ukkadam","to":"Town Hall","firstBus":"06:00","lastBus":"21:00","frequencyMins":20}
]}`

const recentJSON = `{
  "recentStops":[{"name":"Ukkadam","buses":["45"]}],
  "recentBuses":[{"busNo":"6A","from":"Gandhipuram","to":"Peelamedu"}]
}`

func writeDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestDecodeStops(t *testing.T) {
	stops, err := DecodeStops(strings.NewReader(stopsJSON))
	require.NoError(t, err)
	require.Len(t, stops, 4)

	assert.Equal(t, []string{"6A", "45"}, stops[0].Buses)
	assert.True(t, stops[0].Position.Valid())
	assert.False(t, stops[2].Position.Valid(), "(0,0) is the unknown sentinel")
	assert.False(t, stops[3].Position.Valid(), "absent coordinates are missing")
}

func TestDecodeRoutesAcceptsNumericBusNo(t *testing.T) {
	routes, err := DecodeRoutes(strings.NewReader(routesJSON))
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, transit.RouteNumber("45"), routes[1].BusNo)
	assert.Equal(t, 20, routes[1].FrequencyMins)
}

func TestDecodeErrors(t *testing.T) {
	_, err := DecodeStops(strings.NewReader(`{"busstops":[{"name":12}]}`))
	assert.Error(t, err)
	_, err = DecodeRoutes(strings.NewReader(`{"busroutes":[{"busNo":true}]}`))
	assert.Error(t, err)
	_, err = DecodeRecent(strings.NewReader(`[`))
	assert.Error(t, err)
}

func TestLoadJSONDir(t *testing.T) {
	dir := writeDir(t, map[string]string{
		StopsFile:  stopsJSON,
		RoutesFile: routesJSON,
		RecentFile: recentJSON,
	})

	d, err := LoadJSONDir(dir)
	require.NoError(t, err)
	assert.Len(t, d.Stops, 4)
	assert.Len(t, d.Routes, 2)
	require.Len(t, d.Recent.Stops, 1)
	assert.Equal(t, "Ukkadam", d.Recent.Stops[0].Name)
	require.Len(t, d.Recent.Routes, 1)
	assert.Equal(t, transit.RouteNumber("6A"), d.Recent.Routes[0].BusNo)
	assert.Equal(t, "4 stops (2 located, 50%), 2 routes, 1 recent stops, 1 recent routes", d.Summary())

	idx := d.Index()
	_, ok := idx.FindRouteByNumber("45")
	assert.True(t, ok)
}

func TestLoadJSONDirWithoutRecent(t *testing.T) {
	dir := writeDir(t, map[string]string{StopsFile: stopsJSON, RoutesFile: routesJSON})
	d, err := LoadJSONDir(dir)
	require.NoError(t, err)
	assert.Empty(t, d.Recent.Stops)
	assert.Empty(t, d.Recent.Routes)
}

func TestLoadJSONDirMissingStops(t *testing.T) {
	dir := writeDir(t, map[string]string{RoutesFile: routesJSON})
	_, err := LoadJSONDir(dir)
	assert.Error(t, err)
}

func TestLoadSQL(t *testing.T) {
	ctx := context.Background()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "transit.db"))
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, db.EnsureSchema(ctx, conn))

	for _, s := range []string{
		`INSERT INTO bus_stops (id, name, lat, lon, buses) VALUES (1, 'Gandhipuram Bus Stand', 1.0, 2.0, '6A')`,
		`INSERT INTO bus_routes (id, bus_no, from_stage, to_stage) VALUES (1, '6A', 'Gandhipuram', 'Peelamedu')`,
		`INSERT INTO recent_selections (id, kind, ref) VALUES (1, 'stop', 'Gandhipuram Bus Stand')`,
		`INSERT INTO recent_selections (id, kind, ref) VALUES (2, 'bus', '6a')`,
		`INSERT INTO recent_selections (id, kind, ref) VALUES (3, 'stop', 'Nowhere')`,
	} {
		_, err := conn.ExecContext(ctx, s)
		require.NoError(t, err)
	}

	d, err := LoadSQL(ctx, conn)
	require.NoError(t, err)
	assert.Len(t, d.Stops, 1)
	assert.Len(t, d.Routes, 1)
	assert.Len(t, d.Recent.Stops, 1)
	require.Len(t, d.Recent.Routes, 1)
	assert.Equal(t, transit.RouteNumber("6A"), d.Recent.Routes[0].BusNo)
}
