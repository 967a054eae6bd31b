package pager

import "fmt"

// Breakpoint maps every viewport width strictly below Below to Class.
type Breakpoint struct {
	Class        string
	Below        int
	DisplayLimit int
}

// Viewport is the ordered breakpoint table used to derive the display limit
// from a viewport width. Breakpoints are checked in ascending order of Below
// and the first match wins; widths past the last breakpoint fall into the
// default class.
type Viewport struct {
	Breakpoints  []Breakpoint
	DefaultClass string
	DefaultLimit int
}

// DefaultViewport returns the phone/tablet/desktop table the chapter pager
// ships with.
func DefaultViewport() Viewport {
	return Viewport{
		Breakpoints: []Breakpoint{
			{Class: "xs", Below: 320, DisplayLimit: 1},
			{Class: "sm", Below: 480, DisplayLimit: 3},
		},
		DefaultClass: "default",
		DefaultLimit: 5,
	}
}

// Validate checks the table is ordered and every limit can show an item.
func (v Viewport) Validate() error {
	if v.DefaultLimit < 1 {
		return fmt.Errorf("default display limit must be at least 1, got %d", v.DefaultLimit)
	}
	seen := make(map[string]bool, len(v.Breakpoints)+1)
	if v.DefaultClass != "" {
		seen[v.DefaultClass] = true
	}
	prev := 0
	for i, bp := range v.Breakpoints {
		if bp.Class == "" {
			return fmt.Errorf("breakpoint %d: class is required", i)
		}
		if seen[bp.Class] {
			return fmt.Errorf("breakpoint %d: class %q declared twice", i, bp.Class)
		}
		seen[bp.Class] = true
		if bp.DisplayLimit < 1 {
			return fmt.Errorf("breakpoint %q: display limit must be at least 1, got %d", bp.Class, bp.DisplayLimit)
		}
		if bp.Below <= prev {
			return fmt.Errorf("breakpoint %q: widths must be strictly ascending (%d after %d)", bp.Class, bp.Below, prev)
		}
		prev = bp.Below
	}
	return nil
}

// Classify returns the viewport class and display limit for width.
func (v Viewport) Classify(width int) (string, int) {
	for _, bp := range v.Breakpoints {
		if width < bp.Below {
			return bp.Class, bp.DisplayLimit
		}
	}
	class := v.DefaultClass
	if class == "" {
		class = "default"
	}
	return class, v.DefaultLimit
}
