// Package viewport maps the logical grid (world space) onto the visible
// window (local space) under pan and zoom.
//
// local = world*Scale + Offset, with a uniform scale clamped to
// [MinScale, MaxScale]. The offset is never clamped: content may be panned
// fully off-screen.
package viewport

import "math"

// Default scale bounds.
const (
	DefaultMinScale = 0.2
	DefaultMaxScale = 4.0
)

// FitMaxScale caps the scale chosen by FitToContent.
const FitMaxScale = 1.2

// FitHeightRatio is the share of the viewport height the content may fill
// after FitToContent.
const FitHeightRatio = 0.75

// Point is a 2D coordinate or vector.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Mid returns the midpoint of p and q.
func (p Point) Mid(q Point) Point { return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2} }

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Matrix is a 2D affine transform in CSS matrix(a, b, c, d, e, f) order.
type Matrix struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
	D float64 `json:"d"`
	E float64 `json:"e"`
	F float64 `json:"f"`
}

// Apply maps p through the matrix.
func (m Matrix) Apply(p Point) Point {
	return Point{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

// Viewport holds the pan offset and zoom scale.
type Viewport struct {
	Offset   Point   `json:"offset"`
	Scale    float64 `json:"scale"`
	MinScale float64 `json:"min_scale"`
	MaxScale float64 `json:"max_scale"`
}

// New returns an identity viewport with the given scale bounds. Invalid
// bounds fall back to the defaults.
func New(minScale, maxScale float64) *Viewport {
	if minScale <= 0 || maxScale < minScale {
		minScale, maxScale = DefaultMinScale, DefaultMaxScale
	}
	v := &Viewport{MinScale: minScale, MaxScale: maxScale}
	v.Scale = v.clamp(1)
	return v
}

func (v *Viewport) clamp(scale float64) float64 {
	if math.IsNaN(scale) || math.IsInf(scale, 0) {
		return v.Scale
	}
	return math.Min(v.MaxScale, math.Max(v.MinScale, scale))
}

// Transform returns the world-to-local matrix.
func (v *Viewport) Transform() Matrix {
	return Matrix{A: v.Scale, D: v.Scale, E: v.Offset.X, F: v.Offset.Y}
}

// ToWorld converts a local (screen) point to world coordinates.
func (v *Viewport) ToWorld(local Point) Point {
	return Point{
		X: (local.X - v.Offset.X) / v.Scale,
		Y: (local.Y - v.Offset.Y) / v.Scale,
	}
}

// ToLocal converts a world point to local (screen) coordinates.
func (v *Viewport) ToLocal(world Point) Point {
	return v.Transform().Apply(world)
}

// ZoomAt rescales by factor about anchor so the world point under the
// anchor stays put. The resulting scale is clamped.
func (v *Viewport) ZoomAt(anchor Point, factor float64) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	world := v.ToWorld(anchor)
	v.Scale = v.clamp(v.Scale * factor)
	v.Offset = Point{
		X: anchor.X - world.X*v.Scale,
		Y: anchor.Y - world.Y*v.Scale,
	}
}

// PanBy translates the offset by delta.
func (v *Viewport) PanBy(delta Point) {
	v.Offset = v.Offset.Add(delta)
}

// FitToContent picks a scale that fits the content height into the
// viewport, centers targetX horizontally and centers the content vertically.
func (v *Viewport) FitToContent(contentWidth, contentHeight, targetX, viewportWidth, viewportHeight float64) {
	scale := FitMaxScale
	if contentHeight > 0 {
		scale = math.Min(FitHeightRatio*viewportHeight/contentHeight, FitMaxScale)
	}
	v.Scale = v.clamp(scale)
	v.Offset = Point{
		X: viewportWidth/2 - targetX*v.Scale,
		Y: (viewportHeight - contentHeight*v.Scale) / 2,
	}
}

// Reset restores the identity transform.
func (v *Viewport) Reset() {
	v.Offset = Point{}
	v.Scale = v.clamp(1)
}
