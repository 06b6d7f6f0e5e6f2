package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const eps = 1e-9

func TestZoomAtKeepsAnchorStationary(t *testing.T) {
	v := New(DefaultMinScale, DefaultMaxScale)
	v.PanBy(Point{X: -120, Y: 40})

	anchor := Point{X: 300, Y: 200}
	before := v.ToWorld(anchor)

	v.ZoomAt(anchor, 1.5)

	assert.InDelta(t, 1.5, v.Scale, eps)
	after := v.ToWorld(anchor)
	assert.InDelta(t, before.X, after.X, eps)
	assert.InDelta(t, before.Y, after.Y, eps)
}

func TestZoomRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := New(DefaultMinScale, DefaultMaxScale)
		v.Scale = rapid.Float64Range(0.5, 2).Draw(rt, "scale")
		v.Offset = Point{
			X: rapid.Float64Range(-5000, 5000).Draw(rt, "ox"),
			Y: rapid.Float64Range(-5000, 5000).Draw(rt, "oy"),
		}
		anchor := Point{
			X: rapid.Float64Range(0, 2000).Draw(rt, "ax"),
			Y: rapid.Float64Range(0, 2000).Draw(rt, "ay"),
		}
		// Keep both steps inside the scale bounds so clamping cannot interfere.
		factor := rapid.Float64Range(0.5, 1.9).Draw(rt, "factor")

		origScale, origOffset := v.Scale, v.Offset
		v.ZoomAt(anchor, factor)
		v.ZoomAt(anchor, 1/factor)

		if d := v.Scale - origScale; d > 1e-9 || d < -1e-9 {
			rt.Fatalf("scale drifted: %v -> %v", origScale, v.Scale)
		}
		if d := v.Offset.Dist(origOffset); d > 1e-6 {
			rt.Fatalf("offset drifted by %v", d)
		}
	})
}

func TestScaleAlwaysClamped(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := New(0.25, 3)
		steps := rapid.SliceOfN(rapid.Float64Range(0.01, 100), 1, 20).Draw(rt, "factors")
		for _, factor := range steps {
			v.ZoomAt(Point{X: 10, Y: 10}, factor)
			if v.Scale < v.MinScale || v.Scale > v.MaxScale {
				rt.Fatalf("scale %v outside [%v, %v]", v.Scale, v.MinScale, v.MaxScale)
			}
		}
	})
}

func TestZoomAtClampedKeepsAnchor(t *testing.T) {
	v := New(0.5, 2)
	anchor := Point{X: 50, Y: 80}
	before := v.ToWorld(anchor)

	v.ZoomAt(anchor, 10)

	assert.Equal(t, 2.0, v.Scale)
	after := v.ToWorld(anchor)
	assert.InDelta(t, before.X, after.X, eps)
	assert.InDelta(t, before.Y, after.Y, eps)
}

func TestZoomAtIgnoresInvalidFactor(t *testing.T) {
	v := New(DefaultMinScale, DefaultMaxScale)
	v.ZoomAt(Point{X: 1, Y: 1}, 0)
	v.ZoomAt(Point{X: 1, Y: 1}, -2)
	assert.Equal(t, 1.0, v.Scale)
	assert.Equal(t, Point{}, v.Offset)
}

func TestPanByDoesNotTouchScaleAndIsUnbounded(t *testing.T) {
	v := New(DefaultMinScale, DefaultMaxScale)
	v.ZoomAt(Point{}, 2)

	v.PanBy(Point{X: -1e6, Y: 5e5})

	assert.Equal(t, 2.0, v.Scale)
	assert.Equal(t, Point{X: -1e6, Y: 5e5}, v.Offset)
}

func TestFitToContent(t *testing.T) {
	v := New(DefaultMinScale, DefaultMaxScale)

	// Short content: scale capped at 1.2.
	v.FitToContent(6000, 100, 4700, 1200, 800)
	assert.InDelta(t, 1.2, v.Scale, eps)
	assert.InDelta(t, 600-4700*1.2, v.Offset.X, eps)
	assert.InDelta(t, (800-100*1.2)/2, v.Offset.Y, eps)

	// Tall content: 0.75 * 800 / 1000 = 0.6.
	v.FitToContent(6000, 1000, 4700, 1200, 800)
	assert.InDelta(t, 0.6, v.Scale, eps)
	assert.InDelta(t, 600-4700*0.6, v.Offset.X, eps)
	assert.InDelta(t, (800-1000*0.6)/2, v.Offset.Y, eps)

	// Today column lands in the middle of the viewport.
	local := v.ToLocal(Point{X: 4700, Y: 0})
	assert.InDelta(t, 600, local.X, eps)
}

func TestFitToContentClampsToMinScale(t *testing.T) {
	v := New(0.5, 3)
	v.FitToContent(1000, 100000, 500, 1000, 600)
	assert.Equal(t, 0.5, v.Scale)
}

func TestTransformRoundTrip(t *testing.T) {
	v := New(DefaultMinScale, DefaultMaxScale)
	v.ZoomAt(Point{X: 10, Y: 20}, 1.7)
	v.PanBy(Point{X: 33, Y: -12})

	world := Point{X: 123.5, Y: 77.25}
	back := v.ToWorld(v.ToLocal(world))
	require.InDelta(t, world.X, back.X, eps)
	require.InDelta(t, world.Y, back.Y, eps)

	m := v.Transform()
	assert.Equal(t, v.Scale, m.A)
	assert.Equal(t, v.Scale, m.D)
	assert.Zero(t, m.B)
	assert.Zero(t, m.C)
	assert.Equal(t, v.Offset.X, m.E)
	assert.Equal(t, v.Offset.Y, m.F)
}

func TestNewFallsBackToDefaults(t *testing.T) {
	v := New(0, -1)
	assert.Equal(t, DefaultMinScale, v.MinScale)
	assert.Equal(t, DefaultMaxScale, v.MaxScale)
	assert.Equal(t, 1.0, v.Scale)

	v.ZoomAt(Point{}, 2)
	v.PanBy(Point{X: 5, Y: 5})
	v.Reset()
	assert.Equal(t, 1.0, v.Scale)
	assert.Equal(t, Point{}, v.Offset)
}
