// Package canvas is the spatial interaction engine behind a staging canvas:
// viewport transform, grid/world mapping, drop placement and selection.
//
// A Session is not safe for concurrent use. Callers serialise input events
// for a session so that each transition runs to completion before the next.
package canvas

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a 2D point in either world or screen space.
type Point = r2.Vec

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finitePoint(p Point) bool {
	return finite(p.X) && finite(p.Y)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
