package canvas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewportIdentity(t *testing.T) {
	v := NewViewport()

	p := Point{X: 120, Y: -40}
	assert.Equal(t, p, v.ToWorld(p))
	assert.Equal(t, p, v.ToScreen(p))
	assert.Equal(t, 100, v.ZoomPercent())
}

func TestViewportZoomKeepsPointerAnchored(t *testing.T) {
	tests := []struct {
		name   string
		screen Point
		factor float64
	}{
		{name: "wheel in", screen: Point{X: 300, Y: 200}, factor: WheelZoomFactor},
		{name: "wheel out", screen: Point{X: 10, Y: 590}, factor: 1 / WheelZoomFactor},
		{name: "button in", screen: Point{X: 400, Y: 300}, factor: ButtonZoomFactor},
		{name: "clamped", screen: Point{X: 55, Y: 66}, factor: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewViewport()
			v.PanBy(Point{X: 17, Y: -23})

			before := v.ToScreen(v.ToWorld(tt.screen))
			world := v.ToWorld(tt.screen)
			v.ZoomAt(tt.screen, tt.factor)
			after := v.ToScreen(world)

			assert.InDelta(t, before.X, after.X, 1e-9)
			assert.InDelta(t, before.Y, after.Y, 1e-9)
		})
	}
}

func TestViewportZoomClamps(t *testing.T) {
	v := NewViewport()
	for i := 0; i < 100; i++ {
		v.ZoomAt(Point{X: 10, Y: 10}, WheelZoomFactor)
		assert.LessOrEqual(t, v.Scale(), MaxScale)
	}
	assert.Equal(t, MaxScale, v.Scale())

	for i := 0; i < 200; i++ {
		v.ZoomAt(Point{X: 10, Y: 10}, 1/ButtonZoomFactor)
		assert.GreaterOrEqual(t, v.Scale(), MinScale)
	}
	assert.Equal(t, MinScale, v.Scale())
}

func TestViewportZoomAtSaturatedScaleIsNoop(t *testing.T) {
	v := NewViewport()
	v.ZoomAt(Point{}, 10)
	offset := v.Offset()

	assert.False(t, v.ZoomAt(Point{X: 200, Y: 200}, 2))
	assert.Equal(t, offset, v.Offset())
}

func TestViewportZoomIgnoresInvalidFactor(t *testing.T) {
	v := NewViewport()
	for _, f := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.False(t, v.ZoomAt(Point{X: 5, Y: 5}, f))
	}
	assert.Equal(t, 1.0, v.Scale())
	assert.Equal(t, Point{}, v.Offset())
}

func TestViewportPanIsNotScaleCompensated(t *testing.T) {
	v := NewViewport()
	v.ZoomAt(Point{}, 2)
	v.PanBy(Point{X: 30, Y: -10})

	assert.Equal(t, Point{X: 30, Y: -10}, v.Offset())
	assert.Equal(t, Point{X: 0, Y: 0}, v.ToWorld(Point{X: 30, Y: -10}))
}

func TestViewportReset(t *testing.T) {
	v := NewViewport()
	v.ZoomAt(Point{X: 100, Y: 100}, 1.5)
	v.PanBy(Point{X: 4, Y: 4})

	assert.True(t, v.Reset())
	assert.Equal(t, 1.0, v.Scale())
	assert.Equal(t, Point{}, v.Offset())
	assert.False(t, v.Reset())
}

func TestWheelDelta(t *testing.T) {
	assert.Equal(t, WheelZoomFactor, WheelDelta(120))
	assert.InDelta(t, 1/WheelZoomFactor, WheelDelta(-120), 1e-12)
}
