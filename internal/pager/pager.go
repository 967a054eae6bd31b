// Package pager implements the chapter carousel controller: one active slide
// out of N, and an indicator strip panned so the active indicator stays
// inside a window whose width depends on the viewport.
//
// A Controller is driven by a single event loop. It is not safe for
// concurrent use; every operation finishes its state change before it
// returns and emits display commands synchronously.
package pager

import "fmt"

// State is a snapshot of the controller's pager state.
type State struct {
	SelectedIndex int
	DisplayLimit  int
	StripOffset   int
	Class         string
	PrevEnabled   bool
	NextEnabled   bool
}

// Controller owns the selection and indicator strip state for one page.
type Controller struct {
	keys      []string
	itemWidth int
	viewport  Viewport
	display   Display

	state       State
	initialized bool
}

// New creates a controller for the slides identified by keys, in order.
// A nil display discards every command.
func New(keys []string, itemWidth int, viewport Viewport, display Display) (*Controller, error) {
	if len(keys) == 0 {
		return nil, ErrNoSlides
	}
	if itemWidth <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidItemWidth, itemWidth)
	}
	if err := viewport.Validate(); err != nil {
		return nil, fmt.Errorf("invalid viewport table: %w", err)
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, k)
		}
		seen[k] = true
	}
	if display == nil {
		display = discard{}
	}
	return &Controller{
		keys:      append([]string(nil), keys...),
		itemWidth: itemWidth,
		viewport:  viewport,
		display:   display,
	}, nil
}

// Init selects the slide named by initialKey, or the first slide when the
// key is empty or unknown, sizes the window for viewportWidth and emits the
// initial slide, offset and edge commands. Calling Init again restarts the
// page from scratch.
//
// A non-empty key that matches no slide still initializes the pager at the
// first slide, and Init returns ErrUnknownKey so the caller can report it.
func (c *Controller) Init(viewportWidth int, initialKey string) error {
	index, err := c.IndexOf(initialKey)
	if err != nil {
		index = 0
	}
	if initialKey == "" {
		err = nil
	}
	class, limit := c.viewport.Classify(viewportWidth)
	c.state = State{
		SelectedIndex: index,
		DisplayLimit:  c.effectiveLimit(limit),
		Class:         class,
	}
	c.initialized = true
	c.reposition()

	c.display.ActivateSlide(index)
	c.emitStrip()
	return err
}

// SelectSlide makes index the active slide and brings its indicator into
// view. An out-of-range index leaves everything untouched.
func (c *Controller) SelectSlide(index int) error {
	if !c.initialized {
		return ErrNotInitialized
	}
	if index < 0 || index >= len(c.keys) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(c.keys))
	}

	previous := c.state.SelectedIndex
	c.state.SelectedIndex = index
	c.reposition()

	if previous != index {
		c.display.DeactivateSlide(previous)
	}
	c.display.ActivateSlide(index)
	c.emitStrip()
	c.display.SetFragment(c.keys[index])
	c.display.ScrollToSlide(index)
	return nil
}

// SelectByKey selects the slide carrying key.
func (c *Controller) SelectByKey(key string) error {
	if !c.initialized {
		return ErrNotInitialized
	}
	index, err := c.IndexOf(key)
	if err != nil {
		return err
	}
	return c.SelectSlide(index)
}

// Step pans the indicator window one item towards edge without changing the
// selection. Stepping towards a disabled edge does nothing.
func (c *Controller) Step(edge Edge) error {
	if !c.initialized {
		return ErrNotInitialized
	}
	switch edge {
	case EdgePrevious:
		if !c.state.PrevEnabled {
			return nil
		}
		c.state.StripOffset += c.itemWidth
	case EdgeNext:
		if !c.state.NextEnabled {
			return nil
		}
		c.state.StripOffset -= c.itemWidth
	default:
		return fmt.Errorf("unknown edge %q", edge)
	}
	c.updateEdges()
	c.emitStrip()
	return nil
}

// Resize re-derives the display limit for a new viewport width. The strip is
// repositioned around the current selection only when the limit changes.
func (c *Controller) Resize(viewportWidth int) error {
	if !c.initialized {
		return ErrNotInitialized
	}
	class, limit := c.viewport.Classify(viewportWidth)
	c.state.Class = class
	limit = c.effectiveLimit(limit)
	if limit == c.state.DisplayLimit {
		return nil
	}
	c.state.DisplayLimit = limit
	c.reposition()
	c.emitStrip()
	return nil
}

// IndexOf returns the position of the slide carrying key.
func (c *Controller) IndexOf(key string) (int, error) {
	for i, k := range c.keys {
		if k == key {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// State returns a copy of the current pager state.
func (c *Controller) State() State {
	return c.state
}

// Len returns the number of slides.
func (c *Controller) Len() int {
	return len(c.keys)
}

// Key returns the key of the slide at index.
func (c *Controller) Key(index int) string {
	return c.keys[index]
}

// ItemWidth returns the indicator width the controller pans by.
func (c *Controller) ItemWidth() int {
	return c.itemWidth
}

// Initialized reports whether Init has run.
func (c *Controller) Initialized() bool {
	return c.initialized
}

func (c *Controller) layout() Layout {
	return Layout{Count: len(c.keys), Limit: c.state.DisplayLimit, ItemWidth: c.itemWidth}
}

func (c *Controller) effectiveLimit(limit int) int {
	if limit > len(c.keys) {
		return len(c.keys)
	}
	if limit < 1 {
		return 1
	}
	return limit
}

func (c *Controller) reposition() {
	c.state.StripOffset = c.layout().Offset(c.state.SelectedIndex)
	c.updateEdges()
}

func (c *Controller) updateEdges() {
	c.state.PrevEnabled, c.state.NextEnabled = c.layout().Edges(c.state.StripOffset)
}

func (c *Controller) emitStrip() {
	c.display.SetStripOffset(c.state.StripOffset)
	c.display.SetEdgeEnabled(EdgePrevious, c.state.PrevEnabled)
	c.display.SetEdgeEnabled(EdgeNext, c.state.NextEnabled)
}
