package canvas

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	MinScale = 0.1
	MaxScale = 3.0

	// WheelZoomFactor is the per-notch step for wheel input.
	WheelZoomFactor = 1.1
	// ButtonZoomFactor is the step for the discrete zoom in/out controls.
	ButtonZoomFactor = 1.2
)

// Viewport maps screen coordinates to world coordinates:
//
//	world = (screen - offset) / scale
//	screen = world*scale + offset
type Viewport struct {
	scale  float64
	offset Point
}

// NewViewport returns a viewport with the identity transform.
func NewViewport() *Viewport {
	return &Viewport{scale: 1}
}

func (v *Viewport) Scale() float64 { return v.scale }

func (v *Viewport) Offset() Point { return v.offset }

// ZoomPercent is the scale rounded to a whole percentage, as shown by zoom controls.
func (v *Viewport) ZoomPercent() int {
	return int(math.Round(v.scale * 100))
}

func (v *Viewport) ToWorld(screen Point) Point {
	return r2.Scale(1/v.scale, r2.Sub(screen, v.offset))
}

func (v *Viewport) ToScreen(world Point) Point {
	return r2.Add(r2.Scale(v.scale, world), v.offset)
}

// ZoomAt multiplies the scale by delta, clamped to [MinScale, MaxScale], and
// moves the offset so the world point under screen stays under screen.
// It reports whether the transform changed. Non-positive or non-finite
// deltas are ignored.
func (v *Viewport) ZoomAt(screen Point, delta float64) bool {
	if !finite(delta) || delta <= 0 || !finitePoint(screen) {
		return false
	}
	newScale := clamp(v.scale*delta, MinScale, MaxScale)
	if newScale == v.scale {
		return false
	}
	anchor := v.ToWorld(screen)
	v.scale = newScale
	v.offset = r2.Sub(screen, r2.Scale(newScale, anchor))
	return true
}

// PanBy adds a screen-space delta to the offset. Pan is not scale-compensated.
func (v *Viewport) PanBy(delta Point) bool {
	if !finitePoint(delta) || (delta.X == 0 && delta.Y == 0) {
		return false
	}
	v.offset = r2.Add(v.offset, delta)
	return true
}

// Reset restores the identity transform.
func (v *Viewport) Reset() bool {
	changed := v.scale != 1 || v.offset != (Point{})
	v.scale = 1
	v.offset = Point{}
	return changed
}

func (v *Viewport) setOffset(p Point) {
	v.offset = p
}

// WheelDelta converts a wheel event's vertical delta into a zoom factor:
// positive deltas zoom in, anything else zooms out.
func WheelDelta(deltaY float64) float64 {
	if deltaY > 0 {
		return WheelZoomFactor
	}
	return 1 / WheelZoomFactor
}

// ViewportState is the serialisable view of a Viewport.
type ViewportState struct {
	Scale       float64 `json:"scale"`
	OffsetX     float64 `json:"offsetX"`
	OffsetY     float64 `json:"offsetY"`
	ZoomPercent int     `json:"zoomPercent"`
}

func (v *Viewport) State() ViewportState {
	return ViewportState{
		Scale:       v.scale,
		OffsetX:     v.offset.X,
		OffsetY:     v.offset.Y,
		ZoomPercent: v.ZoomPercent(),
	}
}
