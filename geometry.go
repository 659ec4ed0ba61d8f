package flowcanvas

import "math"

// Node geometry in canvas units.
const (
	NodeWidth    = 200.0
	NodeHeight   = 80.0
	HandleRadius = 8.0
)

// Zoom limits.
const (
	MinZoom = 0.1
	MaxZoom = 3.0
)

// Viewport is the pan/zoom state of a canvas element. Origin is the
// element's top-left corner in screen coordinates.
type Viewport struct {
	Origin Point   `json:"origin"`
	Pan    Point   `json:"pan"`
	Zoom   float64 `json:"zoom"`
}

// DefaultViewport has no pan and zoom 1.
func DefaultViewport() Viewport {
	return Viewport{Zoom: 1}
}

// ClampZoom limits z to [MinZoom, MaxZoom]. NaN maps to 1.
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	return math.Min(MaxZoom, math.Max(MinZoom, z))
}

// ScreenToCanvas converts a screen coordinate into a canvas coordinate:
// (screen - origin - pan) / zoom.
func ScreenToCanvas(screen, origin, pan Point, zoom float64) Point {
	return screen.Sub(origin).Sub(pan).Scale(1 / zoom)
}

// CanvasToScreen applies the layer transform translate(pan) scale(zoom) and
// the element origin. It is the inverse of ScreenToCanvas.
func CanvasToScreen(canvas, origin, pan Point, zoom float64) Point {
	return canvas.Scale(zoom).Add(pan).Add(origin)
}

// ToCanvas converts a screen coordinate using v.
func (v Viewport) ToCanvas(screen Point) Point {
	return ScreenToCanvas(screen, v.Origin, v.Pan, v.Zoom)
}

// ToScreen converts a canvas coordinate using v.
func (v Viewport) ToScreen(canvas Point) Point {
	return CanvasToScreen(canvas, v.Origin, v.Pan, v.Zoom)
}

// ZoomAt multiplies the zoom by factor while keeping the canvas point under
// screen fixed.
func (v Viewport) ZoomAt(screen Point, factor float64) Viewport {
	anchor := v.ToCanvas(screen)
	v.Zoom = ClampZoom(v.Zoom * factor)
	// pan = screen - origin - anchor*zoom
	v.Pan = screen.Sub(v.Origin).Sub(anchor.Scale(v.Zoom))
	return v
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// NodeBounds returns the rectangle occupied by a node at pos.
func NodeBounds(pos Point) Rect {
	return Rect{X: pos.X, Y: pos.Y, Width: NodeWidth, Height: NodeHeight}
}

// OutputHandle is the connection handle on the node's right edge.
func OutputHandle(pos Point) Point {
	return Point{X: pos.X + NodeWidth, Y: pos.Y + NodeHeight/2}
}

// InputHandle is the connection handle on the node's left edge.
func InputHandle(pos Point) Point {
	return Point{X: pos.X, Y: pos.Y + NodeHeight/2}
}

func withinHandle(p, handle Point) bool {
	return math.Hypot(p.X-handle.X, p.Y-handle.Y) <= HandleRadius
}
