package transit

import (
	"sort"
	"strings"
)

// Index is a read-only, case-insensitive view over the static stop and route
// records. Lookups never fail loudly: an absent match is reported with ok=false.
type Index struct {
	stops  []Stop
	routes []Route

	stopKeys  []string // lowercased stop names, same order as stops
	routeKeys []string // lowercased bus numbers, same order as routes

	byName map[string]int // exact stop name -> position
	byBus  map[string]int // lowercased bus number -> first position
}

func NewIndex(stops []Stop, routes []Route) *Index {
	idx := &Index{
		stops:     make([]Stop, len(stops)),
		routes:    make([]Route, len(routes)),
		stopKeys:  make([]string, len(stops)),
		routeKeys: make([]string, len(routes)),
		byName:    make(map[string]int, len(stops)),
		byBus:     make(map[string]int, len(routes)),
	}
	for i, s := range stops {
		s.Buses = append([]string(nil), s.Buses...)
		idx.stops[i] = s
		idx.stopKeys[i] = lower(s.Name)
		if _, seen := idx.byName[s.Name]; !seen {
			idx.byName[s.Name] = i
		}
	}
	for i, r := range routes {
		idx.routes[i] = r
		key := lower(r.BusNo.String())
		idx.routeKeys[i] = key
		if _, seen := idx.byBus[key]; !seen {
			idx.byBus[key] = i
		}
	}
	return idx
}

// Stops returns the stops in dataset order. Callers must not modify the slice.
func (x *Index) Stops() []Stop { return x.stops }

// Routes returns the routes in dataset order. Callers must not modify the slice.
func (x *Index) Routes() []Route { return x.routes }

// FindRouteByNumber matches text against bus numbers exactly, ignoring case.
func (x *Index) FindRouteByNumber(text string) (Route, bool) {
	i, ok := x.byBus[lower(text)]
	if !ok {
		return Route{}, false
	}
	return x.routes[i], true
}

// FindStopByNameContains returns the first stop, in index order, whose name
// contains text ignoring case. It is deliberately not a best-match search.
func (x *Index) FindStopByNameContains(text string) (Stop, bool) {
	q := lower(text)
	for i, key := range x.stopKeys {
		if strings.Contains(key, q) {
			return x.stops[i], true
		}
	}
	return Stop{}, false
}

// StopByName is an exact, case-sensitive lookup on the stop identity.
func (x *Index) StopByName(name string) (Stop, bool) {
	i, ok := x.byName[name]
	if !ok {
		return Stop{}, false
	}
	return x.stops[i], true
}

// StopsByService lists stops whose name contains query (ignoring case, blank
// matches all), most-served first and then by name. limit <= 0 means all.
func (x *Index) StopsByService(query string, limit int) []Stop {
	q := lower(strings.TrimSpace(query))
	out := make([]Stop, 0, len(x.stops))
	for i, key := range x.stopKeys {
		if q == "" || strings.Contains(key, q) {
			out = append(out, x.stops[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Buses) != len(out[j].Buses) {
			return len(out[i].Buses) > len(out[j].Buses)
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
