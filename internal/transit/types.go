package transit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Coord is a WGS84 position. A component is NaN when the dataset had no value for it.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Missing returns the coordinate used for stops without a known position.
func Missing() Coord { return Coord{Lat: math.NaN(), Lon: math.NaN()} }

// Valid reports whether c is a usable position: both components present,
// inside WGS84 bounds and not the (0,0) "unknown" sentinel.
func (c Coord) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return false
	}
	return !(c.Lat == 0 && c.Lon == 0)
}

func (c Coord) String() string { return fmt.Sprintf("(%.6f, %.6f)", c.Lat, c.Lon) }

type Stop struct {
	Name     string
	Position Coord
	Buses    []string // serving route numbers, dataset order
}

type Route struct {
	BusNo         RouteNumber
	From          string // free-text endpoint label, not a stop identity
	To            string
	FirstBus      string
	LastBus       string
	FrequencyMins int
}

// RouteNumber is a bus number. Datasets carry it either as a JSON string
// ("6A") or as a bare number (45); both decode to the same text.
type RouteNumber string

func (n RouteNumber) String() string { return string(n) }

func (n *RouteNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = RouteNumber(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("route number must be a string or number: %w", err)
	}
	*n = RouteNumber(num.String())
	return nil
}

// RecentSnapshot is the static "recently used" list shipped with the dataset.
// It is read-only; selections are never written back.
type RecentSnapshot struct {
	Stops  []Stop
	Routes []Route
}

func lower(s string) string { return strings.ToLower(s) }
