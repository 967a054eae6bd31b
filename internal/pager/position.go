package pager

// Margins returns how many indicators stay visible to the left and to the
// right of the selected one while it sits inside the window.
//
// Odd limits center the selection (3 -> 1,1; 5 -> 2,2). Even limits never
// center (2 -> 0,1; 4 -> 0,1): the window starts at the selection and flips
// to the right-pinned position only at the last index. Offsets are clamped
// to the strip bounds, so the window still never runs past either end.
func Margins(limit int) (left, right int) {
	if limit <= 1 {
		return 0, 0
	}
	if limit%2 == 0 {
		return 0, 1
	}
	m := (limit - 1) / 2
	return m, m
}

// Layout is the indicator strip geometry: Count items of ItemWidth pixels
// seen through a window Limit items wide.
type Layout struct {
	Count     int
	Limit     int
	ItemWidth int
}

// Steps is the number of items the window can move right from offset 0.
func (l Layout) Steps() int {
	if l.Count <= l.Limit {
		return 0
	}
	return l.Count - l.Limit
}

// MinOffset is the most negative strip offset, reached when the last item
// is at the right edge of the window.
func (l Layout) MinOffset() int {
	return -(l.Steps() * l.ItemWidth)
}

// Offset computes the strip offset that keeps the indicator at index
// visible: pinned left near the start, pinned right near the end, and
// otherwise shifted so the selection sits after Margins(Limit) left items.
func (l Layout) Offset(index int) int {
	if l.Steps() == 0 {
		return 0
	}
	left, right := Margins(l.Limit)
	switch {
	case index < left:
		return 0
	case index > l.Count-1-right:
		return l.MinOffset()
	}
	return l.clamp(-((index - left) * l.ItemWidth))
}

// Edges reports whether stepping the window towards the previous or next
// items is still possible from offset.
func (l Layout) Edges(offset int) (prevEnabled, nextEnabled bool) {
	return offset != 0, offset != l.MinOffset()
}

func (l Layout) clamp(offset int) int {
	if offset > 0 {
		return 0
	}
	if lo := l.MinOffset(); offset < lo {
		return lo
	}
	return offset
}
