package session

import (
	"context"
	"sync"
	"time"

	"github.com/Nitin1612/bus-tracking-app/internal/search"
	"github.com/Nitin1612/bus-tracking-app/internal/selection"
	"github.com/Nitin1612/bus-tracking-app/internal/transit"
	"github.com/Nitin1612/bus-tracking-app/internal/waypoint"
)

// Metrics receives session observations; the Prometheus collector implements it.
type Metrics interface {
	SuggestionsObserve(routes, stops int)
	ResolutionInc(input, result string)
	SessionOpenedInc()
	ActiveSessionsSet(n int)
}

// Deps are shared by every session.
type Deps struct {
	Index    *transit.Index
	Ranker   search.Ranker
	Resolver *selection.Resolver

	// LocatorFor returns the default device location provider of a session.
	// Nil, or a nil result, means no provider.
	LocatorFor func(sessionID string) waypoint.Locator

	// RendererFor returns extra map renderers for a session, e.g. a NATS publisher.
	RendererFor func(sessionID string) waypoint.Renderer

	LocationTimeout time.Duration
	PlannerMetrics  waypoint.Metrics
	Metrics         Metrics
}

// Session is one user's search state: the query being typed, its
// suggestions and cursor, the current selection and its waypoint plan.
type Session struct {
	ID      string
	Created time.Time

	deps    Deps
	planner *waypoint.Planner
	layer   *waypoint.PathLayer

	mu          sync.Mutex
	query       string
	suggestions []search.Suggestion
	cursor      search.Cursor
	selected    selection.Selection
}

func New(id string, deps Deps) *Session {
	s := &Session{
		ID:          id,
		Created:     time.Now().UTC(),
		deps:        deps,
		layer:       waypoint.NewPathLayer(),
		suggestions: []search.Suggestion{},
		cursor:      search.NewCursor(0),
	}
	var renderer waypoint.Renderer = s.layer
	if deps.RendererFor != nil {
		if extra := deps.RendererFor(id); extra != nil {
			renderer = waypoint.Renderers{s.layer, extra}
		}
	}
	var loc waypoint.Locator
	if deps.LocatorFor != nil {
		loc = deps.LocatorFor(id)
	}
	opts := []waypoint.Option{
		waypoint.WithRenderer(renderer),
		waypoint.WithLocationTimeout(deps.LocationTimeout),
	}
	if deps.PlannerMetrics != nil {
		opts = append(opts, waypoint.WithMetrics(deps.PlannerMetrics))
	}
	s.planner = waypoint.NewPlanner(deps.Index, loc, opts...)
	return s
}

// SetQuery replaces the query, recomputes suggestions and resets the cursor.
func (s *Session) SetQuery(q string) []search.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = q
	s.suggestions = s.deps.Ranker.Suggest(q, s.deps.Index.Stops(), s.deps.Index.Routes())
	s.cursor.Reset(len(s.suggestions))
	if s.deps.Metrics != nil {
		routes := 0
		for _, sg := range s.suggestions {
			if sg.Kind == search.KindRoute {
				routes++
			}
		}
		s.deps.Metrics.SuggestionsObserve(routes, len(s.suggestions)-routes)
	}
	return s.suggestions
}

func (s *Session) MoveDown() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor.Down()
	return s.cursor.Index()
}

func (s *Session) MoveUp() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor.Up()
	return s.cursor.Index()
}

// Confirm resolves the highlighted suggestion, or the raw query as free text.
// loc overrides the device location provider for this selection only.
func (s *Session) Confirm(ctx context.Context, loc waypoint.Locator) (waypoint.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(ctx, s.cursor.Confirm(s.query, s.suggestions), loc)
}

// Select resolves an explicit input, such as a picked suggestion or a recent entry.
func (s *Session) Select(ctx context.Context, in selection.Input, loc waypoint.Locator) (waypoint.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(ctx, in, loc)
}

func (s *Session) applyLocked(ctx context.Context, in selection.Input, loc waypoint.Locator) (waypoint.Plan, error) {
	sel, err := s.deps.Resolver.Resolve(in)
	if err != nil {
		return s.planner.Current(), err
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.ResolutionInc(string(in.Kind), sel.Kind().String())
	}
	s.selected = sel
	s.query = ""
	s.suggestions = []search.Suggestion{}
	s.cursor.Reset(0)
	return s.planner.Update(ctx, sel, loc), nil
}

func (s *Session) Selection() selection.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

func (s *Session) Plan() waypoint.Plan { return s.planner.Current() }

// Wait blocks until a pending location request has finished.
func (s *Session) Wait() { s.planner.Wait() }

func (s *Session) Path() (waypoint.Path, bool) { return s.layer.Current() }

func (s *Session) Close() { s.planner.Close() }

type Snapshot struct {
	ID          string              `json:"id"`
	Created     time.Time           `json:"created"`
	Query       string              `json:"query"`
	Cursor      int                 `json:"cursor"`
	Suggestions []search.Suggestion `json:"suggestions"`
	Selection   selection.Selection `json:"selection"`
	Plan        waypoint.Plan       `json:"plan"`
	Path        *waypoint.Path      `json:"path"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		ID:          s.ID,
		Created:     s.Created,
		Query:       s.query,
		Cursor:      s.cursor.Index(),
		Suggestions: s.suggestions,
		Selection:   s.selected,
	}
	s.mu.Unlock()
	snap.Plan = s.planner.Current()
	if p, ok := s.layer.Current(); ok {
		snap.Path = &p
	}
	return snap
}
