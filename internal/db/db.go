package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Nitin1612/bus-tracking-app/internal/transit"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// schemaSQL is shared by Postgres and SQLite; it only uses types both accept.
//
//go:embed schema.sql
var schemaSQL string

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// OpenSQLite opens a SQLite dataset file. The dataset is read once at
// startup, so a single connection is enough.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// EnsureSchema creates the dataset tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// FetchStops returns all stops in id order. NULL coordinates are reported as
// missing rather than as the (0,0) sentinel.
func FetchStops(ctx context.Context, db *sql.DB) ([]transit.Stop, error) {
	q := `SELECT name, lat, lon, COALESCE(buses, '') FROM bus_stops ORDER BY id`
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query bus_stops: %w", err)
	}
	defer rows.Close()

	var stops []transit.Stop
	for rows.Next() {
		var s transit.Stop
		var lat, lon sql.NullFloat64
		var buses string
		if err := rows.Scan(&s.Name, &lat, &lon, &buses); err != nil {
			return nil, err
		}
		s.Position = transit.Coord{Lat: nullFloat(lat), Lon: nullFloat(lon)}
		s.Buses = ParseBuses(buses)
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

// FetchRoutes returns all routes in id order.
func FetchRoutes(ctx context.Context, db *sql.DB) ([]transit.Route, error) {
	q := `SELECT bus_no, from_stage, to_stage,
                 COALESCE(first_bus, ''), COALESCE(last_bus, ''), COALESCE(frequency_mins, 0)
          FROM bus_routes ORDER BY id`
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query bus_routes: %w", err)
	}
	defer rows.Close()

	var routes []transit.Route
	for rows.Next() {
		var r transit.Route
		var busNo string
		if err := rows.Scan(&busNo, &r.From, &r.To, &r.FirstBus, &r.LastBus, &r.FrequencyMins); err != nil {
			return nil, err
		}
		r.BusNo = transit.RouteNumber(strings.TrimSpace(busNo))
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

// RecentRef points at a stop name (kind "stop") or a bus number (kind "route" or "bus").
type RecentRef struct {
	Kind string
	Ref  string
}

func FetchRecent(ctx context.Context, db *sql.DB) ([]RecentRef, error) {
	rows, err := db.QueryContext(ctx, `SELECT kind, ref FROM recent_selections ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query recent_selections: %w", err)
	}
	defer rows.Close()
	var refs []RecentRef
	for rows.Next() {
		var r RecentRef
		if err := rows.Scan(&r.Kind, &r.Ref); err != nil {
			return nil, err
		}
		r.Kind = strings.ToLower(strings.TrimSpace(r.Kind))
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// ParseBuses splits the comma separated buses column.
func ParseBuses(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func nullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
