package flowcanvas

import (
	"math"
	"strconv"
	"strings"
)

// Curve and arrowhead geometry in canvas units.
const (
	MinControlOffset = 40.0
	ArrowLength      = 10.0
	ArrowHalfWidth   = 5.0
)

// Preview is the connection being drawn.
type Preview struct {
	SourceID string
	Pointer  Point
}

// Scene is the input of Project.
type Scene struct {
	Nodes      []Node
	Edges      []Edge
	Overlay    map[string]Point
	Viewport   Viewport
	Selection  Selection
	Hover      Target
	Session    SessionKind
	DraggingID string
	Preview    *Preview
}

// DrawList is the geometry of one frame, in canvas coordinates. Transform
// maps it onto the screen.
type DrawList struct {
	Transform string      `json:"transform"`
	Viewport  Viewport    `json:"viewport"`
	Session   SessionKind `json:"session"`
	Nodes     []NodeShape `json:"nodes"`
	Edges     []EdgeShape `json:"edges"`
	Preview   *EdgeShape  `json:"preview,omitempty"`
}

// NodeShape is a projected node.
type NodeShape struct {
	ID       string        `json:"id"`
	Category Category      `json:"category"`
	Title    string        `json:"title"`
	Style    CategoryStyle `json:"style"`
	Bounds   Rect          `json:"bounds"`
	Input    Point         `json:"input"`
	Output   Point         `json:"output"`
	Selected bool          `json:"selected,omitempty"`
	Hovered  bool          `json:"hovered,omitempty"`
	Dragging bool          `json:"dragging,omitempty"`
}

// EdgeShape is a projected edge: one cubic segment plus an arrowhead.
type EdgeShape struct {
	ID          string   `json:"id,omitempty"`
	SourceID    string   `json:"source_id"`
	TargetID    string   `json:"target_id,omitempty"`
	Label       string   `json:"label,omitempty"`
	Start       Point    `json:"start"`
	End         Point    `json:"end"`
	Control1    Point    `json:"control1"`
	Control2    Point    `json:"control2"`
	Path        string   `json:"path"`
	Arrow       [3]Point `json:"arrow"`
	Selected    bool     `json:"selected,omitempty"`
	Highlighted bool     `json:"highlighted,omitempty"`
}

// Project maps a scene to its draw list. Node positions come from the overlay
// when present, so edges follow nodes while they are dragged.
func Project(sc Scene) DrawList {
	dl := DrawList{
		Transform: LayerTransform(sc.Viewport),
		Viewport:  sc.Viewport,
		Session:   sc.Session,
		Nodes:     make([]NodeShape, 0, len(sc.Nodes)),
		Edges:     make([]EdgeShape, 0, len(sc.Edges)),
	}
	if dl.Session == "" {
		dl.Session = Idle
	}

	positions := make(map[string]Point, len(sc.Nodes))
	for _, n := range sc.Nodes {
		pos := n.Position
		if p, ok := sc.Overlay[n.ID]; ok {
			pos = p
		}
		positions[n.ID] = pos
		dl.Nodes = append(dl.Nodes, NodeShape{
			ID:       n.ID,
			Category: n.Category,
			Title:    n.Title,
			Style:    n.Category.Style(),
			Bounds:   NodeBounds(pos),
			Input:    InputHandle(pos),
			Output:   OutputHandle(pos),
			Selected: sc.Selection.HasNode(n.ID),
			Hovered:  sc.Hover.NodeID == n.ID && sc.Hover.Kind != TargetNone,
			Dragging: sc.DraggingID == n.ID,
		})
	}

	focus := func(id string) bool {
		return sc.Selection.HasNode(id) || (sc.Hover.NodeID == id && sc.Hover.Kind != TargetNone)
	}
	for _, e := range sc.Edges {
		from, ok1 := positions[e.SourceID]
		to, ok2 := positions[e.TargetID]
		if !ok1 || !ok2 {
			continue
		}
		shape := curve(OutputHandle(from), InputHandle(to))
		shape.ID = e.ID
		shape.SourceID = e.SourceID
		shape.TargetID = e.TargetID
		shape.Label = e.Label
		shape.Selected = sc.Selection.HasEdge(e.ID)
		shape.Highlighted = focus(e.SourceID) || focus(e.TargetID)
		dl.Edges = append(dl.Edges, shape)
	}

	if sc.Preview != nil {
		if from, ok := positions[sc.Preview.SourceID]; ok {
			shape := curve(OutputHandle(from), sc.Preview.Pointer)
			shape.SourceID = sc.Preview.SourceID
			shape.Highlighted = true
			dl.Preview = &shape
		}
	}
	return dl
}

// LayerTransform renders v as the SVG transform applied to the elements
// layer.
func LayerTransform(v Viewport) string {
	return "translate(" + num(v.Pan.X) + "," + num(v.Pan.Y) + ") scale(" + num(v.Zoom) + ")"
}

// curve builds a cubic from start to end whose control points are pushed
// horizontally away from both ends.
func curve(start, end Point) EdgeShape {
	dx := math.Max(math.Abs(end.X-start.X)/2, MinControlOffset)
	c1 := Point{X: start.X + dx, Y: start.Y}
	c2 := Point{X: end.X - dx, Y: end.Y}

	var b strings.Builder
	b.WriteString("M ")
	writePoint(&b, start)
	b.WriteString(" C ")
	writePoint(&b, c1)
	b.WriteString(", ")
	writePoint(&b, c2)
	b.WriteString(", ")
	writePoint(&b, end)

	return EdgeShape{
		Start:    start,
		End:      end,
		Control1: c1,
		Control2: c2,
		Path:     b.String(),
		Arrow:    arrowhead(c2, end),
	}
}

// arrowhead points along the tangent at the curve's end, which for a cubic
// is the direction from the second control point to the end point.
func arrowhead(from, tip Point) [3]Point {
	dx, dy := tip.X-from.X, tip.Y-from.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		dx, dy, l = 1, 0, 1
	}
	ux, uy := dx/l, dy/l
	base := Point{X: tip.X - ux*ArrowLength, Y: tip.Y - uy*ArrowLength}
	return [3]Point{
		tip,
		{X: base.X - uy*ArrowHalfWidth, Y: base.Y + ux*ArrowHalfWidth},
		{X: base.X + uy*ArrowHalfWidth, Y: base.Y - ux*ArrowHalfWidth},
	}
}

func writePoint(b *strings.Builder, p Point) {
	b.WriteString(num(p.X))
	b.WriteByte(' ')
	b.WriteString(num(p.Y))
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
