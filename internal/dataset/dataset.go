// Package dataset loads the static stop, route and recent-selection records
// the finder serves. Records are loaded once and never written back.
package dataset

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/Nitin1612/bus-tracking-app/internal/db"
	"github.com/Nitin1612/bus-tracking-app/internal/transit"
)

const (
	StopsFile  = "busstops.json"
	RoutesFile = "busroutes.json"
	RecentFile = "recent.json"
)

type Dataset struct {
	Stops  []transit.Stop
	Routes []transit.Route
	Recent transit.RecentSnapshot
}

func (d *Dataset) Index() *transit.Index { return transit.NewIndex(d.Stops, d.Routes) }

// raw structures matching the JSON files
type rawStop struct {
	Name  string                `json:"name"`
	Lat   *float64              `json:"lat"`
	Lon   *float64              `json:"lon"`
	Buses []transit.RouteNumber `json:"buses"`
}

type rawRoute struct {
	BusNo         transit.RouteNumber `json:"busNo"`
	From          string              `json:"from"`
	To            string              `json:"to"`
	FirstBus      string              `json:"firstBus"`
	LastBus       string              `json:"lastBus"`
	FrequencyMins int                 `json:"frequencyMins"`
}

func (r rawStop) stop() transit.Stop {
	s := transit.Stop{Name: r.Name, Position: transit.Missing()}
	if r.Lat != nil {
		s.Position.Lat = *r.Lat
	}
	if r.Lon != nil {
		s.Position.Lon = *r.Lon
	}
	for _, b := range r.Buses {
		s.Buses = append(s.Buses, b.String())
	}
	return s
}

func (r rawRoute) route() transit.Route {
	return transit.Route{
		BusNo:         r.BusNo,
		From:          r.From,
		To:            r.To,
		FirstBus:      r.FirstBus,
		LastBus:       r.LastBus,
		FrequencyMins: r.FrequencyMins,
	}
}

// DecodeStops parses a {"busstops": [...]} document.
func DecodeStops(r io.Reader) ([]transit.Stop, error) {
	var doc struct {
		Stops []rawStop `json:"busstops"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode stops: %w", err)
	}
	stops := make([]transit.Stop, 0, len(doc.Stops))
	for _, s := range doc.Stops {
		stops = append(stops, s.stop())
	}
	return stops, nil
}

// DecodeRoutes parses a {"busroutes": [...]} document.
func DecodeRoutes(r io.Reader) ([]transit.Route, error) {
	var doc struct {
		Routes []rawRoute `json:"busroutes"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode routes: %w", err)
	}
	routes := make([]transit.Route, 0, len(doc.Routes))
	for _, rt := range doc.Routes {
		routes = append(routes, rt.route())
	}
	return routes, nil
}

// DecodeRecent parses a {"recentStops": [...], "recentBuses": [...]} document.
func DecodeRecent(r io.Reader) (transit.RecentSnapshot, error) {
	var doc struct {
		Stops  []rawStop  `json:"recentStops"`
		Routes []rawRoute `json:"recentBuses"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return transit.RecentSnapshot{}, fmt.Errorf("decode recent: %w", err)
	}
	var snap transit.RecentSnapshot
	for _, s := range doc.Stops {
		snap.Stops = append(snap.Stops, s.stop())
	}
	for _, rt := range doc.Routes {
		snap.Routes = append(snap.Routes, rt.route())
	}
	return snap, nil
}

// LoadJSONDir reads busstops.json and busroutes.json from dir, plus
// recent.json when present.
func LoadJSONDir(dir string) (*Dataset, error) {
	d := &Dataset{}
	var err error
	if d.Stops, err = decodeFile(filepath.Join(dir, StopsFile), DecodeStops); err != nil {
		return nil, err
	}
	if d.Routes, err = decodeFile(filepath.Join(dir, RoutesFile), DecodeRoutes); err != nil {
		return nil, err
	}
	d.Recent, err = decodeFile(filepath.Join(dir, RecentFile), DecodeRecent)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		log.Printf("no %s in %s, recent list is empty", RecentFile, dir)
		d.Recent = transit.RecentSnapshot{}
	}
	return d, nil
}

func decodeFile[T any](path string, decode func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	v, err := decode(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// LoadSQL reads the dataset tables from a Postgres or SQLite connection.
// Recent references that do not resolve to a loaded record are skipped.
func LoadSQL(ctx context.Context, conn *sql.DB) (*Dataset, error) {
	stops, err := db.FetchStops(ctx, conn)
	if err != nil {
		return nil, err
	}
	routes, err := db.FetchRoutes(ctx, conn)
	if err != nil {
		return nil, err
	}
	refs, err := db.FetchRecent(ctx, conn)
	if err != nil {
		return nil, err
	}
	d := &Dataset{Stops: stops, Routes: routes}
	d.Recent = resolveRecent(transit.NewIndex(stops, routes), refs)
	return d, nil
}

func resolveRecent(idx *transit.Index, refs []db.RecentRef) transit.RecentSnapshot {
	var snap transit.RecentSnapshot
	for _, ref := range refs {
		switch ref.Kind {
		case "stop":
			if s, ok := idx.StopByName(ref.Ref); ok {
				snap.Stops = append(snap.Stops, s)
				continue
			}
		case "route", "bus":
			if r, ok := idx.FindRouteByNumber(ref.Ref); ok {
				snap.Routes = append(snap.Routes, r)
				continue
			}
		}
		log.Printf("recent %s %q does not match the dataset, skipped", ref.Kind, ref.Ref)
	}
	return snap
}

// Summary describes a dataset for startup logs.
func (d *Dataset) Summary() string {
	located := 0
	for _, s := range d.Stops {
		if s.Position.Valid() {
			located++
		}
	}
	pct := 0.0
	if len(d.Stops) > 0 {
		pct = math.Round(float64(located) / float64(len(d.Stops)) * 100)
	}
	return fmt.Sprintf("%d stops (%d located, %.0f%%), %d routes, %d recent stops, %d recent routes",
		len(d.Stops), located, pct, len(d.Routes), len(d.Recent.Stops), len(d.Recent.Routes))
}
