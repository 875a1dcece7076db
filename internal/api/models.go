package api

import (
	"time"

	"github.com/Nitin1612/bus-tracking-app/internal/search"
	"github.com/Nitin1612/bus-tracking-app/internal/transit"
)

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// StopView is a stop as served over HTTP. Lat and Lon are null when the
// dataset has no usable position for the stop.
type StopView struct {
	Name  string   `json:"name"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Buses []string `json:"buses"`
}

type RouteView struct {
	BusNo         string `json:"busNo"`
	From          string `json:"from"`
	To            string `json:"to"`
	FirstBus      string `json:"firstBus,omitempty"`
	LastBus       string `json:"lastBus,omitempty"`
	FrequencyMins int    `json:"frequencyMins,omitempty"`
}

func stopView(s transit.Stop) StopView {
	v := StopView{Name: s.Name, Buses: s.Buses}
	if v.Buses == nil {
		v.Buses = []string{}
	}
	if s.Position.Valid() {
		lat, lon := s.Position.Lat, s.Position.Lon
		v.Lat, v.Lon = &lat, &lon
	}
	return v
}

func routeView(r transit.Route) RouteView {
	return RouteView{
		BusNo:         r.BusNo.String(),
		From:          r.From,
		To:            r.To,
		FirstBus:      r.FirstBus,
		LastBus:       r.LastBus,
		FrequencyMins: r.FrequencyMins,
	}
}

func stopViews(stops []transit.Stop) []StopView {
	out := make([]StopView, 0, len(stops))
	for _, s := range stops {
		out = append(out, stopView(s))
	}
	return out
}

func routeViews(routes []transit.Route) []RouteView {
	out := make([]RouteView, 0, len(routes))
	for _, r := range routes {
		out = append(out, routeView(r))
	}
	return out
}

// OverviewResponse is the JSON response for GET /api/overview
type OverviewResponse struct {
	Stops        int       `json:"stops"`
	LocatedStops int       `json:"locatedStops"`
	Routes       int       `json:"routes"`
	Sessions     int       `json:"sessions"`
	CheckedAt    time.Time `json:"checkedAt"`
}

// SuggestResponse is the JSON response for GET /api/suggest and PUT /api/sessions/{id}/query
type SuggestResponse struct {
	Query       string              `json:"query"`
	Suggestions []search.Suggestion `json:"suggestions"`
	Count       int                 `json:"count"`
}

// StopsResponse is the JSON response for GET /api/stops
type StopsResponse struct {
	Stops []StopView `json:"stops"`
	Count int        `json:"count"`
}

// RecentResponse is the JSON response for GET /api/recent
type RecentResponse struct {
	Stops  []StopView  `json:"stops"`
	Routes []RouteView `json:"routes"`
}

// CursorResponse is the JSON response for POST /api/sessions/{id}/cursor
type CursorResponse struct {
	Cursor int                `json:"cursor"`
	Active *search.Suggestion `json:"active"`
}

type queryRequest struct {
	Query string `json:"query"`
}

type cursorRequest struct {
	Direction string `json:"direction"`
}

type locationFields struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}
