package waypoint

import (
	"sync"

	"github.com/Nitin1612/bus-tracking-app/internal/selection"
)

// Renderer is the map collaborator. ClearPath is always called before a new
// plan is computed; DrawPath only when a complete pair exists.
type Renderer interface {
	SelectionChanged(sel selection.Selection)
	ClearPath()
	DrawPath(pair Pair)
}

// Renderers fans every call out in order.
type Renderers []Renderer

func (rs Renderers) SelectionChanged(sel selection.Selection) {
	for _, r := range rs {
		r.SelectionChanged(sel)
	}
}

func (rs Renderers) ClearPath() {
	for _, r := range rs {
		r.ClearPath()
	}
}

func (rs Renderers) DrawPath(pair Pair) {
	for _, r := range rs {
		r.DrawPath(pair)
	}
}

type nopRenderer struct{}

func (nopRenderer) SelectionChanged(selection.Selection) {}
func (nopRenderer) ClearPath()                          {}
func (nopRenderer) DrawPath(Pair)                       {}

// Path is a drawn path handle on a PathLayer.
type Path struct {
	ID   uint64 `json:"id"`
	Pair Pair   `json:"pair"`
}

// PathLayer is an in-memory drawing surface holding at most one path. The
// previous handle is released before a new one is acquired, so repeated
// selections never accumulate paths.
type PathLayer struct {
	mu        sync.Mutex
	next      uint64
	current   *Path
	selection selection.Selection
	acquired  int
	released  int
}

func NewPathLayer() *PathLayer { return &PathLayer{} }

func (l *PathLayer) SelectionChanged(sel selection.Selection) {
	l.mu.Lock()
	l.selection = sel
	l.mu.Unlock()
}

func (l *PathLayer) ClearPath() {
	l.mu.Lock()
	l.releaseLocked()
	l.mu.Unlock()
}

func (l *PathLayer) DrawPath(pair Pair) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releaseLocked()
	l.next++
	l.current = &Path{ID: l.next, Pair: pair}
	l.acquired++
}

func (l *PathLayer) releaseLocked() {
	if l.current == nil {
		return
	}
	l.current = nil
	l.released++
}

// Current returns the path on the layer, if any.
func (l *PathLayer) Current() (Path, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return Path{}, false
	}
	return *l.current, true
}

func (l *PathLayer) Selection() selection.Selection {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.selection
}

// Live is the number of acquired paths not yet released. Never more than one.
func (l *PathLayer) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquired - l.released
}
