// Package search ranks incremental suggestions for a partial query.
//
// Matching is a case-insensitive substring test: a route matches when its bus
// number contains the query, a stop when its name does. All route matches
// come before all stop matches and each group keeps dataset order, capped at
// Limit entries per kind. The ranker is pure and cheap enough to run on
// every keystroke.
package search

import (
	"fmt"
	"strings"

	"github.com/Nitin1612/bus-tracking-app/internal/selection"
	"github.com/Nitin1612/bus-tracking-app/internal/transit"
)

// DefaultLimit is the number of suggestions kept per entity kind.
const DefaultLimit = 6

type Kind string

const (
	KindRoute Kind = "route"
	KindStop  Kind = "stop"
)

type Suggestion struct {
	Kind  Kind   `json:"kind"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Input builds the selection input for a picked suggestion.
func (s Suggestion) Input() selection.Input {
	if s.Kind == KindRoute {
		return selection.RouteInput(s.Value)
	}
	return selection.StopInput(s.Value)
}

type Ranker struct {
	Limit int // per kind; <= 0 means DefaultLimit
}

// Suggest ranks with DefaultLimit.
func Suggest(query string, stops []transit.Stop, routes []transit.Route) []Suggestion {
	return Ranker{}.Suggest(query, stops, routes)
}

func (r Ranker) Suggest(query string, stops []transit.Stop, routes []transit.Route) []Suggestion {
	out := []Suggestion{}
	if strings.TrimSpace(query) == "" {
		return out
	}
	limit := r.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := strings.ToLower(query)

	n := 0
	for _, rt := range routes {
		if n == limit {
			break
		}
		busNo := rt.BusNo.String()
		if busNo == "" || !strings.Contains(strings.ToLower(busNo), q) {
			continue
		}
		out = append(out, Suggestion{
			Kind:  KindRoute,
			Label: fmt.Sprintf("%s — %s → %s", busNo, rt.From, rt.To),
			Value: busNo,
		})
		n++
	}

	n = 0
	for _, s := range stops {
		if n == limit {
			break
		}
		if s.Name == "" || !strings.Contains(strings.ToLower(s.Name), q) {
			continue
		}
		out = append(out, Suggestion{Kind: KindStop, Label: s.Name, Value: s.Name})
		n++
	}
	return out
}
