// Package compare models the before/after reveal control and renders its
// composite image.
package compare

// DefaultSplit is where the divider starts.
const DefaultSplit = 50.0

// SplitAt converts a horizontal pointer coordinate to a split percentage of a
// container starting at left with the given width. The result is clamped to
// [0,100]; a container without width yields 0.
func SplitAt(x, left, width float64) float64 {
	if width <= 0 {
		return 0
	}
	offset := x - left
	if offset < 0 {
		offset = 0
	}
	if offset > width {
		offset = width
	}
	return offset / width * 100
}

// Viewer tracks the divider position and the drag gesture over a container.
// It is not safe for concurrent use.
type Viewer struct {
	left     float64
	width    float64
	split    float64
	dragging bool
}

// NewViewer returns a viewer over a container spanning [left, left+width).
func NewViewer(left, width float64) *Viewer {
	return &Viewer{left: left, width: width, split: DefaultSplit}
}

// Resize updates the container bounds. The split percentage is kept.
func (v *Viewer) Resize(left, width float64) {
	v.left = left
	v.width = width
}

// Split returns the revealed percentage of the after image.
func (v *Viewer) Split() float64 {
	return v.split
}

// SetSplit places the divider directly, clamped to [0,100].
func (v *Viewer) SetSplit(split float64) {
	v.split = clamp(split)
}

// Dragging reports whether a drag is in progress.
func (v *Viewer) Dragging() bool {
	return v.dragging
}

// Contains reports whether x falls inside the container.
func (v *Viewer) Contains(x float64) bool {
	return x >= v.left && x < v.left+v.width
}

// PointerDown starts a drag when x is inside the container and moves the
// divider there. It returns whether a drag started.
func (v *Viewer) PointerDown(x float64) bool {
	if !v.Contains(x) {
		return false
	}
	v.dragging = true
	v.split = SplitAt(x, v.left, v.width)
	return true
}

// PointerMove tracks x while dragging; outside a drag it does nothing.
func (v *Viewer) PointerMove(x float64) {
	if !v.dragging {
		return
	}
	v.split = SplitAt(x, v.left, v.width)
}

// PointerUp ends the drag wherever the pointer is.
func (v *Viewer) PointerUp() {
	v.dragging = false
}

// TouchStart mirrors PointerDown for touch input.
func (v *Viewer) TouchStart(x float64) bool {
	return v.PointerDown(x)
}

// TouchMove mirrors PointerMove.
func (v *Viewer) TouchMove(x float64) {
	v.PointerMove(x)
}

// TouchEnd mirrors PointerUp.
func (v *Viewer) TouchEnd() {
	v.PointerUp()
}

func clamp(split float64) float64 {
	switch {
	case split < 0:
		return 0
	case split > 100:
		return 100
	default:
		return split
	}
}
