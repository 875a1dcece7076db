package selection

import (
	"fmt"
	"strings"

	"github.com/Nitin1612/bus-tracking-app/internal/transit"
)

// ConflictPolicy decides which match wins when free text matches both a
// route number and a stop name.
type ConflictPolicy int

const (
	// StopWinsOnConflict keeps the historical behaviour: the stop match
	// replaces the route match. Pending product review.
	StopWinsOnConflict ConflictPolicy = iota
	RouteWinsOnConflict
)

func (p ConflictPolicy) String() string {
	if p == RouteWinsOnConflict {
		return "route-wins"
	}
	return "stop-wins"
}

// ParseConflictPolicy accepts "stop-wins" and "route-wins"; empty means stop-wins.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stop-wins":
		return StopWinsOnConflict, nil
	case "route-wins":
		return RouteWinsOnConflict, nil
	default:
		return 0, fmt.Errorf("unknown conflict policy %q", s)
	}
}

type Resolver struct {
	Index  *transit.Index
	Policy ConflictPolicy
}

func NewResolver(idx *transit.Index, policy ConflictPolicy) *Resolver {
	return &Resolver{Index: idx, Policy: policy}
}

// Resolve turns a user action into a Selection. Explicit picks are taken as
// is; free text is looked up both as an exact route number and as a stop
// name substring, and the two results are combined by the conflict policy.
// Finding nothing, or an explicit pick with a blank value, yields None
// without an error. The only error is an input kind the resolver does not know.
func (r *Resolver) Resolve(in Input) (Selection, error) {
	switch in.Kind {
	case InputRoute:
		if strings.TrimSpace(in.Value) == "" {
			return None(), nil
		}
		return Route(in.Value), nil
	case InputStop:
		if strings.TrimSpace(in.Value) == "" {
			return None(), nil
		}
		return Stop(in.Value), nil
	case InputFree:
		return r.resolveFree(in.Value), nil
	default:
		return None(), fmt.Errorf("unknown selection input kind %q", in.Kind)
	}
}

func (r *Resolver) resolveFree(text string) Selection {
	if strings.TrimSpace(text) == "" || r.Index == nil {
		return None()
	}
	q := strings.ToLower(text)

	route, routeOK := r.Index.FindRouteByNumber(q)
	stop, stopOK := r.Index.FindStopByNameContains(q)

	switch {
	case routeOK && stopOK:
		if r.Policy == RouteWinsOnConflict {
			return Route(route.BusNo.String())
		}
		return Stop(stop.Name)
	case stopOK:
		return Stop(stop.Name)
	case routeOK:
		return Route(route.BusNo.String())
	default:
		return None()
	}
}
