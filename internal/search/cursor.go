package search

import "github.com/Nitin1612/bus-tracking-app/internal/selection"

// Cursor is the keyboard highlight over a suggestion list. It sits at -1
// until moved and is clamped to the list bounds afterwards.
type Cursor struct {
	index int
	size  int
}

func NewCursor(size int) Cursor { return Cursor{index: -1, size: size} }

func (c Cursor) Index() int { return c.index }

// Reset is called whenever the query changes.
func (c *Cursor) Reset(size int) {
	c.index = -1
	c.size = size
}

func (c *Cursor) Down() {
	if c.size == 0 {
		c.index = -1
		return
	}
	if c.index < c.size-1 {
		c.index++
	}
}

func (c *Cursor) Up() {
	if c.size == 0 {
		c.index = -1
		return
	}
	if c.index > 0 {
		c.index--
	} else {
		c.index = 0
	}
}

// Confirm returns the input for the highlighted suggestion, or a free-text
// input carrying query when nothing valid is highlighted.
func (c Cursor) Confirm(query string, suggestions []Suggestion) selection.Input {
	if c.index >= 0 && c.index < len(suggestions) {
		return suggestions[c.index].Input()
	}
	return selection.FreeInput(query)
}
