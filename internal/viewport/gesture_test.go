package viewport

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func down(id int, x, y float64) PointerEvent {
	return PointerEvent{Kind: PointerDown, PointerID: id, Position: Point{X: x, Y: y}}
}

func move(id int, x, y float64) PointerEvent {
	return PointerEvent{Kind: PointerMove, PointerID: id, Position: Point{X: x, Y: y}}
}

func up(id int) PointerEvent {
	return PointerEvent{Kind: PointerUp, PointerID: id}
}

func TestSinglePointerDragPans(t *testing.T) {
	v := New(DefaultMinScale, DefaultMaxScale)
	g := NewGestureTracker()

	g.Handle(v, down(1, 100, 100), Content{})
	g.Handle(v, move(1, 130, 90), Content{})
	g.Handle(v, move(1, 150, 95), Content{})
	g.Handle(v, up(1), Content{})

	assert.Equal(t, Point{X: 50, Y: -5}, v.Offset)
	assert.Equal(t, 1.0, v.Scale)
	assert.Zero(t, g.Active())

	// Moves without a pointer down are ignored.
	g.Handle(v, move(1, 500, 500), Content{})
	assert.Equal(t, Point{X: 50, Y: -5}, v.Offset)
}

func TestPinchZoomsAboutMidpoint(t *testing.T) {
	v := New(DefaultMinScale, DefaultMaxScale)
	g := NewGestureTracker()

	g.Handle(v, down(1, 100, 200), Content{})
	g.Handle(v, down(2, 300, 200), Content{})
	mid := Point{X: 200, Y: 200}
	worldAtMid := v.ToWorld(mid)

	// Spread symmetrically: distance 200 -> 300 -> 400, midpoint ends where it began.
	g.Handle(v, move(1, 0, 200), Content{})
	g.Handle(v, move(2, 400, 200), Content{})

	assert.InDelta(t, 2.0, v.Scale, eps)
	after := v.ToWorld(mid)
	assert.InDelta(t, worldAtMid.X, after.X, eps)
	assert.InDelta(t, worldAtMid.Y, after.Y, eps)
}

func TestTwoFingerPanWithoutSpread(t *testing.T) {
	v := New(DefaultMinScale, DefaultMaxScale)
	g := NewGestureTracker()

	g.Handle(v, down(1, 0, 0), Content{})
	g.Handle(v, down(2, 100, 0), Content{})
	g.Handle(v, move(1, 0, 40), Content{})
	g.Handle(v, move(2, 100, 40), Content{})

	assert.InDelta(t, 1.0, v.Scale, 1e-9)
	assert.InDelta(t, 0, v.Offset.X, 1e-9)
	assert.InDelta(t, 40, v.Offset.Y, 1e-9)
}

func TestPinchAndPanCombined(t *testing.T) {
	v := New(DefaultMinScale, DefaultMaxScale)
	g := NewGestureTracker()

	g.Handle(v, down(1, 100, 100), Content{})
	g.Handle(v, down(2, 200, 100), Content{})
	startMid := Point{X: 150, Y: 100}
	worldAtStart := v.ToWorld(startMid)

	// Second finger moves so the pair both spreads and translates.
	g.Handle(v, move(2, 300, 100), Content{})

	newMid := Point{X: 200, Y: 100}
	assert.InDelta(t, 2.0, v.Scale, eps)
	// The content that was under the starting midpoint follows the fingers.
	got := v.ToLocal(worldAtStart)
	assert.InDelta(t, newMid.X, got.X, eps)
	assert.InDelta(t, newMid.Y, got.Y, eps)
}

func TestLiftingOneFingerReturnsToPan(t *testing.T) {
	v := New(DefaultMinScale, DefaultMaxScale)
	g := NewGestureTracker()

	g.Handle(v, down(1, 0, 0), Content{})
	g.Handle(v, down(2, 100, 0), Content{})
	g.Handle(v, up(2), Content{})
	assert.Equal(t, 1, g.Active())

	g.Handle(v, move(1, 10, 10), Content{})
	assert.Equal(t, Point{X: 10, Y: 10}, v.Offset)
	assert.Equal(t, 1.0, v.Scale)
}

func TestWheelAndButtons(t *testing.T) {
	v := New(DefaultMinScale, DefaultMaxScale)
	g := NewGestureTracker()

	g.Handle(v, PointerEvent{Kind: Wheel, Position: Point{X: 40, Y: 40}, DeltaY: -100}, Content{})
	assert.InDelta(t, math.Exp(0.15), v.Scale, eps)
	g.Handle(v, PointerEvent{Kind: Wheel, Position: Point{X: 40, Y: 40}, DeltaY: 100}, Content{})
	assert.InDelta(t, 1.0, v.Scale, eps)
	assert.InDelta(t, 0, v.Offset.X, 1e-9)

	center := Point{X: 400, Y: 300}
	worldAtCenter := v.ToWorld(center)
	g.Handle(v, PointerEvent{Kind: ZoomIn, ViewportWidth: 800, ViewportHeight: 600}, Content{})
	assert.InDelta(t, ButtonZoomFactor, v.Scale, eps)
	after := v.ToWorld(center)
	assert.InDelta(t, worldAtCenter.X, after.X, eps)

	g.Handle(v, PointerEvent{Kind: ZoomOut, ViewportWidth: 800, ViewportHeight: 600}, Content{})
	assert.InDelta(t, 1.0, v.Scale, eps)
}

func TestFitEvent(t *testing.T) {
	v := New(DefaultMinScale, DefaultMaxScale)
	g := NewGestureTracker()

	g.Handle(v, PointerEvent{Kind: Fit, ViewportWidth: 1000, ViewportHeight: 500}, Content{Width: 3000, Height: 250, TargetX: 2000})

	assert.InDelta(t, 1.2, v.Scale, eps)
	assert.InDelta(t, 500-2000*1.2, v.Offset.X, eps)
}
