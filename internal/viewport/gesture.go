package viewport

import "math"

// EventKind enumerates the input events the tracker understands.
type EventKind string

const (
	PointerDown   EventKind = "pointerdown"
	PointerMove   EventKind = "pointermove"
	PointerUp     EventKind = "pointerup"
	PointerCancel EventKind = "pointercancel"
	Wheel         EventKind = "wheel"
	ZoomIn        EventKind = "zoomin"
	ZoomOut       EventKind = "zoomout"
	Fit           EventKind = "fit"
)

// Zoom steps.
const (
	ButtonZoomFactor = 1.2
	// WheelSensitivity converts wheel delta pixels into an exponential zoom.
	WheelSensitivity = 0.0015
)

// PointerEvent is a single input event in local (screen) coordinates.
type PointerEvent struct {
	Kind      EventKind `json:"kind"`
	PointerID int       `json:"pointer_id"`
	Position  Point     `json:"position"`
	// DeltaY is the wheel delta; negative zooms in.
	DeltaY float64 `json:"delta_y"`
	// ViewportWidth and ViewportHeight size the visible window; zoom
	// buttons anchor at its center.
	ViewportWidth  float64 `json:"viewport_width"`
	ViewportHeight float64 `json:"viewport_height"`
}

// Content describes what Fit events should frame.
type Content struct {
	Width   float64
	Height  float64
	TargetX float64
}

// GestureTracker turns pointer events into viewport updates. It keeps no
// state beyond the active pointers and the last two-finger midpoint and
// distance.
type GestureTracker struct {
	pointers map[int]Point
	order    []int
	lastMid  Point
	lastDist float64
}

// NewGestureTracker returns an idle tracker.
func NewGestureTracker() *GestureTracker {
	return &GestureTracker{pointers: make(map[int]Point)}
}

// Active returns the number of pointers currently down.
func (g *GestureTracker) Active() int {
	return len(g.order)
}

// Handle applies ev to v. content is only used by Fit events.
func (g *GestureTracker) Handle(v *Viewport, ev PointerEvent, content Content) {
	switch ev.Kind {
	case PointerDown:
		if _, ok := g.pointers[ev.PointerID]; !ok {
			g.order = append(g.order, ev.PointerID)
		}
		g.pointers[ev.PointerID] = ev.Position
		g.resetPinch()
	case PointerMove:
		g.move(v, ev)
	case PointerUp, PointerCancel:
		g.release(ev.PointerID)
	case Wheel:
		v.ZoomAt(ev.Position, math.Exp(-ev.DeltaY*WheelSensitivity))
	case ZoomIn:
		v.ZoomAt(center(ev), ButtonZoomFactor)
	case ZoomOut:
		v.ZoomAt(center(ev), 1/ButtonZoomFactor)
	case Fit:
		v.FitToContent(content.Width, content.Height, content.TargetX, ev.ViewportWidth, ev.ViewportHeight)
	}
}

func (g *GestureTracker) move(v *Viewport, ev PointerEvent) {
	prev, ok := g.pointers[ev.PointerID]
	if !ok {
		return
	}
	g.pointers[ev.PointerID] = ev.Position

	switch len(g.order) {
	case 1:
		v.PanBy(ev.Position.Sub(prev))
	default:
		a, b := g.pointers[g.order[0]], g.pointers[g.order[1]]
		mid := a.Mid(b)
		dist := a.Dist(b)
		// Zoom about the previous midpoint, then translate by the midpoint
		// delta, so the content under the fingers stays under them.
		if g.lastDist > 0 && dist > 0 {
			v.ZoomAt(g.lastMid, dist/g.lastDist)
		}
		v.PanBy(mid.Sub(g.lastMid))
		g.lastMid = mid
		g.lastDist = dist
	}
}

func (g *GestureTracker) release(id int) {
	if _, ok := g.pointers[id]; !ok {
		return
	}
	delete(g.pointers, id)
	for i, pid := range g.order {
		if pid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	g.resetPinch()
}

func (g *GestureTracker) resetPinch() {
	if len(g.order) < 2 {
		g.lastDist = 0
		return
	}
	a, b := g.pointers[g.order[0]], g.pointers[g.order[1]]
	g.lastMid = a.Mid(b)
	g.lastDist = a.Dist(b)
}

func center(ev PointerEvent) Point {
	return Point{X: ev.ViewportWidth / 2, Y: ev.ViewportHeight / 2}
}
