package waypoint

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Nitin1612/bus-tracking-app/internal/selection"
	"github.com/Nitin1612/bus-tracking-app/internal/transit"
)

const DefaultLocationTimeout = 5 * time.Second

type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending" // waiting for the device location
	StatusReady   Status = "ready"
	StatusAbsent  Status = "absent"
)

// Plan is the planner's view of the current selection.
type Plan struct {
	Generation uint64
	Selection  selection.Selection
	Status     Status
	Pair       Pair  // set when Status is StatusReady
	Reason     error // set when Status is StatusAbsent
}

// Waypoints returns the pair when the plan produced one.
func (p Plan) Waypoints() (Pair, bool) { return p.Pair, p.Status == StatusReady }

func (p Plan) MarshalJSON() ([]byte, error) {
	type wire struct {
		Generation     uint64              `json:"generation"`
		Selection      selection.Selection `json:"selection"`
		Status         Status              `json:"status"`
		Waypoints      *Pair               `json:"waypoints"`
		DistanceMeters float64             `json:"distanceMeters,omitempty"`
		Reason         string              `json:"reason,omitempty"`
	}
	w := wire{Generation: p.Generation, Selection: p.Selection, Status: p.Status}
	if pair, ok := p.Waypoints(); ok {
		w.Waypoints = &pair
		w.DistanceMeters = pair.DistanceMeters()
	}
	if p.Reason != nil {
		w.Reason = p.Reason.Error()
	}
	return json.Marshal(w)
}

// Metrics receives planner observations. Implementations must be cheap.
type Metrics interface {
	PlanObserve(outcome string)
	LocationObserve(d time.Duration, err error)
	StaleDiscardInc()
}

type Option func(*Planner)

func WithRenderer(r Renderer) Option {
	return func(p *Planner) {
		if r != nil {
			p.renderer = r
		}
	}
}

func WithMetrics(m Metrics) Option { return func(p *Planner) { p.metrics = m } }

func WithLocationTimeout(d time.Duration) Option {
	return func(p *Planner) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// Planner recomputes the waypoint pair on every selection change. Each change
// starts a new generation; a location request finishing under an older
// generation is discarded.
type Planner struct {
	index    *transit.Index
	locator  Locator
	renderer Renderer
	metrics  Metrics
	timeout  time.Duration

	mu      sync.Mutex
	gen     uint64
	current Plan
	cancel  context.CancelFunc // pending location request, if any
	wg      sync.WaitGroup
}

// NewPlanner builds a planner. loc is the default location provider and may be nil.
func NewPlanner(idx *transit.Index, loc Locator, opts ...Option) *Planner {
	p := &Planner{
		index:    idx,
		locator:  loc,
		renderer: nopRenderer{},
		timeout:  DefaultLocationTimeout,
		current:  Plan{Status: StatusIdle},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Update discards the previous plan and computes one for sel. Route plans
// finish before Update returns; stop plans return StatusPending and finish
// when the location request does. loc overrides the default provider for this
// update only. ctx bounds the location request and must outlive the call.
func (p *Planner) Update(ctx context.Context, sel selection.Selection, loc Locator) Plan {
	if loc == nil {
		loc = p.locator
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.gen++
	gen := p.gen
	p.current = Plan{Generation: gen, Selection: sel, Status: StatusIdle}
	p.renderer.ClearPath()
	p.renderer.SelectionChanged(sel)

	switch sel.Kind() {
	case selection.KindRoute:
		busNo, _ := sel.Route()
		pair, err := ComputeRouteWaypoints(p.index, busNo)
		p.settleLocked(pair, err)
	case selection.KindStop:
		name, _ := sel.Stop()
		dest, err := StopDestination(p.index, name)
		if err != nil {
			p.settleLocked(Pair{}, err)
			break
		}
		if loc == nil {
			p.settleLocked(Pair{}, ErrLocationUnavailable)
			break
		}
		reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
		p.cancel = cancel
		p.current.Status = StatusPending
		p.wg.Add(1)
		go p.locate(reqCtx, cancel, gen, loc, dest)
	default:
		p.settleLocked(Pair{}, ErrNoSelection)
	}
	return p.current
}

func (p *Planner) locate(ctx context.Context, cancel context.CancelFunc, gen uint64, loc Locator, dest transit.Coord) {
	defer p.wg.Done()
	defer cancel()

	start := time.Now()
	origin, err := locate(ctx, loc)
	if p.metrics != nil {
		p.metrics.LocationObserve(time.Since(start), err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		if p.metrics != nil {
			p.metrics.StaleDiscardInc()
		}
		log.Printf("location result for generation %d discarded: %v", gen, ErrStaleResolution)
		return
	}
	p.cancel = nil
	if err != nil {
		log.Printf("location for %s unavailable: %v", p.current.Selection, err)
		p.settleLocked(Pair{}, err)
		return
	}
	p.settleLocked(Pair{Origin: origin, Destination: dest}, nil)
}

func (p *Planner) settleLocked(pair Pair, err error) {
	if err != nil {
		p.current.Status = StatusAbsent
		p.current.Pair = Pair{}
		p.current.Reason = err
	} else {
		p.current.Status = StatusReady
		p.current.Pair = pair
		p.current.Reason = nil
		p.renderer.DrawPath(pair)
	}
	if p.metrics != nil {
		p.metrics.PlanObserve(Outcome(err))
	}
}

// Current returns the latest plan.
func (p *Planner) Current() Plan {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Wait blocks until no location request is in flight.
func (p *Planner) Wait() { p.wg.Wait() }

// Close cancels a pending location request and waits for it to unwind. Its
// result, if any, is discarded.
func (p *Planner) Close() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.gen++
	p.mu.Unlock()
	p.wg.Wait()
}

// Outcome names the result of a plan for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ready"
	case errors.Is(err, ErrNoSelection):
		return "no_selection"
	case errors.Is(err, ErrNoMatch):
		return "no_match"
	case errors.Is(err, ErrMissingCoordinates):
		return "missing_coordinates"
	case errors.Is(err, ErrLocationUnavailable):
		return "location_unavailable"
	case errors.Is(err, ErrStaleResolution):
		return "stale"
	default:
		return "error"
	}
}
