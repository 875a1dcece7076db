package waypoint

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Nitin1612/bus-tracking-app/internal/selection"
	"github.com/Nitin1612/bus-tracking-app/internal/transit"
)

// Reasons a waypoint pair is absent. None of them is a fault: callers simply
// draw no path.
var (
	ErrNoSelection         = errors.New("nothing selected")
	ErrNoMatch             = errors.New("no matching route or stop")
	ErrMissingCoordinates  = errors.New("stop has no usable coordinates")
	ErrLocationUnavailable = errors.New("device location unavailable")
	ErrStaleResolution     = errors.New("location resolved after selection changed")
)

// Locator is a one-shot device position provider.
type Locator interface {
	CurrentPosition(ctx context.Context) (transit.Coord, error)
}

type LocatorFunc func(ctx context.Context) (transit.Coord, error)

func (f LocatorFunc) CurrentPosition(ctx context.Context) (transit.Coord, error) { return f(ctx) }

// Pair is the ordered (origin, destination) handed to the map renderer.
type Pair struct {
	Origin      transit.Coord `json:"origin"`
	Destination transit.Coord `json:"destination"`
}

// DistanceMeters is the great-circle distance between the endpoints.
func (p Pair) DistanceMeters() float64 {
	return haversine(p.Origin.Lat, p.Origin.Lon, p.Destination.Lat, p.Destination.Lon)
}

// ComputeRouteWaypoints resolves a route's endpoint labels to stops and
// returns their positions. Endpoint labels are matched with the index's
// first-substring-match lookup.
func ComputeRouteWaypoints(idx *transit.Index, busNo string) (Pair, error) {
	route, ok := idx.FindRouteByNumber(busNo)
	if !ok {
		return Pair{}, fmt.Errorf("route %q: %w", busNo, ErrNoMatch)
	}
	from, ok := idx.FindStopByNameContains(route.From)
	if !ok {
		return Pair{}, fmt.Errorf("route %s origin %q: %w", route.BusNo, route.From, ErrNoMatch)
	}
	to, ok := idx.FindStopByNameContains(route.To)
	if !ok {
		return Pair{}, fmt.Errorf("route %s destination %q: %w", route.BusNo, route.To, ErrNoMatch)
	}
	if !from.Position.Valid() {
		return Pair{}, fmt.Errorf("stop %q: %w", from.Name, ErrMissingCoordinates)
	}
	if !to.Position.Valid() {
		return Pair{}, fmt.Errorf("stop %q: %w", to.Name, ErrMissingCoordinates)
	}
	return Pair{Origin: from.Position, Destination: to.Position}, nil
}

// StopDestination returns the position of the named stop, the destination
// of a location path.
func StopDestination(idx *transit.Index, name string) (transit.Coord, error) {
	stop, ok := idx.StopByName(name)
	if !ok {
		return transit.Coord{}, fmt.Errorf("stop %q: %w", name, ErrNoMatch)
	}
	if !stop.Position.Valid() {
		return transit.Coord{}, fmt.Errorf("stop %q: %w", name, ErrMissingCoordinates)
	}
	return stop.Position, nil
}

// ComputeWaypoints is the blocking form of a plan: the location path waits
// for loc in the caller's goroutine. A nil loc means no provider.
func ComputeWaypoints(ctx context.Context, idx *transit.Index, sel selection.Selection, loc Locator) (Pair, error) {
	switch sel.Kind() {
	case selection.KindRoute:
		busNo, _ := sel.Route()
		return ComputeRouteWaypoints(idx, busNo)
	case selection.KindStop:
		name, _ := sel.Stop()
		dest, err := StopDestination(idx, name)
		if err != nil {
			return Pair{}, err
		}
		origin, err := locate(ctx, loc)
		if err != nil {
			return Pair{}, err
		}
		return Pair{Origin: origin, Destination: dest}, nil
	default:
		return Pair{}, ErrNoSelection
	}
}

// locate asks loc for one position and folds every failure into
// ErrLocationUnavailable.
func locate(ctx context.Context, loc Locator) (transit.Coord, error) {
	if loc == nil {
		return transit.Coord{}, ErrLocationUnavailable
	}
	pos, err := loc.CurrentPosition(ctx)
	if err != nil {
		if errors.Is(err, ErrLocationUnavailable) {
			return transit.Coord{}, err
		}
		return transit.Coord{}, fmt.Errorf("%w: %w", ErrLocationUnavailable, err)
	}
	if !pos.Valid() {
		return transit.Coord{}, fmt.Errorf("%w: invalid position %s", ErrLocationUnavailable, pos)
	}
	return pos, nil
}

// haversine distance in meters
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
