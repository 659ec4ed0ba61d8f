package flowcanvas

import (
	"errors"
	"slices"
)

// SessionKind names the drag session states.
type SessionKind string

const (
	Idle              SessionKind = "idle"
	PanningCanvas     SessionKind = "panning_canvas"
	MovingNode        SessionKind = "moving_node"
	DrawingConnection SessionKind = "drawing_connection"
)

// Session is the in-progress pointer gesture. A nil Session means Idle.
type Session interface {
	Kind() SessionKind
}

// PanSession drags the whole canvas.
type PanSession struct {
	StartPointer Point
	StartPan     Point
}

// MoveSession drags one node.
type MoveSession struct {
	NodeID        string
	StartPointer  Point
	StartPosition Point
}

// ConnectSession draws a connection out of SourceID. Pointer is the live
// preview endpoint in canvas coordinates.
type ConnectSession struct {
	SourceID string
	Pointer  Point
}

func (*PanSession) Kind() SessionKind     { return PanningCanvas }
func (*MoveSession) Kind() SessionKind    { return MovingNode }
func (*ConnectSession) Kind() SessionKind { return DrawingConnection }

// TargetKind classifies what lies under the pointer.
type TargetKind string

const (
	TargetNone         TargetKind = ""
	TargetBackground   TargetKind = "background"
	TargetNode         TargetKind = "node"
	TargetOutputHandle TargetKind = "output"
	TargetInputHandle  TargetKind = "input"
)

// Target is the element a pointer event landed on.
type Target struct {
	Kind   TargetKind `json:"kind"`
	NodeID string     `json:"node_id,omitempty"`
}

// Outcome reports what a finished gesture did.
type Outcome struct {
	Kind     SessionKind `json:"kind"`
	Changed  bool        `json:"changed"`
	NodeID   string      `json:"node_id,omitempty"`
	Position *Point      `json:"position,omitempty"`
	Edge     *Edge       `json:"edge,omitempty"`
	Decision *Decision   `json:"decision,omitempty"`
	Err      error       `json:"-"`
}

// Canvas is the interaction model of one workflow canvas: the editor state,
// the viewport, the single active drag session and the transient position
// overlay. A Canvas is not safe for concurrent use.
type Canvas struct {
	editor  *Editor
	view    Viewport
	session Session
	overlay map[string]Point
	hover   Target
}

// NewCanvas opens a canvas on w with the default viewport.
func NewCanvas(w Workflow) *Canvas {
	return &Canvas{
		editor:  NewEditor(w),
		view:    DefaultViewport(),
		overlay: make(map[string]Point),
	}
}

// Editor returns the editor backing the canvas.
func (c *Canvas) Editor() *Editor { return c.editor }

// Workflow returns the committed workflow document.
func (c *Canvas) Workflow() Workflow { return c.editor.Workflow() }

// Viewport returns the current pan/zoom state.
func (c *Canvas) Viewport() Viewport { return c.view }

// SetOrigin records where the canvas element sits on screen.
func (c *Canvas) SetOrigin(origin Point) { c.view.Origin = origin }

// SetZoom sets the zoom factor, clamped to [MinZoom, MaxZoom].
func (c *Canvas) SetZoom(z float64) { c.view.Zoom = ClampZoom(z) }

// ZoomAt zooms by factor around the screen point.
func (c *Canvas) ZoomAt(screen Point, factor float64) { c.view = c.view.ZoomAt(screen, factor) }

// Session returns the active session, or nil when idle.
func (c *Canvas) Session() Session { return c.session }

// State returns the current session state.
func (c *Canvas) State() SessionKind {
	if c.session == nil {
		return Idle
	}
	return c.session.Kind()
}

// Transient returns the uncommitted position of a node being dragged.
func (c *Canvas) Transient(nodeID string) (Point, bool) {
	p, ok := c.overlay[nodeID]
	return p, ok
}

// Hover returns the element under the pointer as of the last idle move.
func (c *Canvas) Hover() Target { return c.hover }

// position returns the overlay position if present, else the committed one.
func (c *Canvas) position(n Node) Point {
	if p, ok := c.overlay[n.ID]; ok {
		return p
	}
	return n.Position
}

// TargetAt hit-tests a screen point. Handles win over node bodies and later
// nodes (drawn on top) win over earlier ones.
func (c *Canvas) TargetAt(screen Point) Target {
	p := c.view.ToCanvas(screen)
	nodes := c.editor.state.Workflow.Nodes
	for i := len(nodes) - 1; i >= 0; i-- {
		pos := c.position(nodes[i])
		switch {
		case withinHandle(p, OutputHandle(pos)):
			return Target{Kind: TargetOutputHandle, NodeID: nodes[i].ID}
		case withinHandle(p, InputHandle(pos)):
			return Target{Kind: TargetInputHandle, NodeID: nodes[i].ID}
		case NodeBounds(pos).Contains(p):
			return Target{Kind: TargetNode, NodeID: nodes[i].ID}
		}
	}
	return Target{Kind: TargetBackground}
}

// PointerDown starts a gesture on target. It returns false and does nothing
// while another gesture is active or when target cannot start one.
func (c *Canvas) PointerDown(screen Point, target Target) bool {
	if c.session != nil {
		return false
	}

	switch target.Kind {
	case TargetBackground:
		c.session = &PanSession{StartPointer: screen, StartPan: c.view.Pan}
		_ = c.editor.Dispatch(SetSelection{})
		return true

	case TargetNode:
		n, ok := c.editor.state.Workflow.Node(target.NodeID)
		if !ok {
			return false
		}
		c.session = &MoveSession{NodeID: n.ID, StartPointer: screen, StartPosition: n.Position}
		_ = c.editor.Dispatch(SetSelection{Selection: Selection{NodeIDs: []string{n.ID}}})
		return true

	case TargetOutputHandle:
		if _, ok := c.editor.state.Workflow.Node(target.NodeID); !ok {
			return false
		}
		c.session = &ConnectSession{SourceID: target.NodeID, Pointer: c.view.ToCanvas(screen)}
		return true
	}
	return false
}

// PointerMove advances the active gesture. While idle it only tracks hover.
func (c *Canvas) PointerMove(screen Point) {
	switch s := c.session.(type) {
	case nil:
		c.hover = c.TargetAt(screen)
	case *PanSession:
		c.view.Pan = s.StartPan.Add(screen.Sub(s.StartPointer))
	case *MoveSession:
		c.overlay[s.NodeID] = s.StartPosition.Add(screen.Sub(s.StartPointer).Scale(1 / c.view.Zoom))
	case *ConnectSession:
		s.Pointer = c.view.ToCanvas(screen)
	}
}

// PointerUp ends the active gesture. A node move is committed; a connection
// dropped on an input handle is validated and, if accepted, added.
func (c *Canvas) PointerUp(screen Point, target Target) Outcome {
	if c.session == nil {
		return Outcome{Kind: Idle}
	}
	c.PointerMove(screen)

	s := c.session
	c.session = nil

	switch s := s.(type) {
	case *MoveSession:
		return c.commitMove(s)
	case *ConnectSession:
		return c.connect(s, target)
	}
	return Outcome{Kind: s.Kind()}
}

// PointerLeave ends the active gesture exactly like a PointerUp over nothing.
func (c *Canvas) PointerLeave(screen Point) Outcome {
	return c.PointerUp(screen, Target{})
}

func (c *Canvas) commitMove(s *MoveSession) Outcome {
	out := Outcome{Kind: MovingNode, NodeID: s.NodeID}
	pos, ok := c.overlay[s.NodeID]
	delete(c.overlay, s.NodeID)
	if !ok || pos == s.StartPosition {
		return out
	}
	if err := c.editor.Dispatch(MoveNode{NodeID: s.NodeID, To: pos}); err != nil {
		out.Err = err
		return out
	}
	out.Changed = true
	out.Position = &pos
	return out
}

func (c *Canvas) connect(s *ConnectSession, target Target) Outcome {
	out := Outcome{Kind: DrawingConnection}
	if target.Kind != TargetInputHandle || target.NodeID == "" {
		return out
	}

	w := c.editor.state.Workflow
	d := ValidateConnection(s.SourceID, target.NodeID, w.Edges)
	out.Decision = &d
	if !d.Accepted {
		return out
	}

	e := Edge{ID: NewID(), SourceID: s.SourceID, TargetID: target.NodeID}
	if err := c.editor.Dispatch(AddEdge{Edge: e}); err != nil {
		out.Err = err
		return out
	}
	out.Changed = true
	out.Edge = &e
	return out
}

// DropNode places a new node from the palette at the screen point.
// The pointer lands on the node's centre.
func (c *Canvas) DropNode(cat Category, title string, screen Point) (Node, error) {
	p := c.view.ToCanvas(screen)
	n := Node{
		ID:       NewID(),
		Category: cat,
		Title:    title,
		Position: Point{X: p.X - NodeWidth/2, Y: p.Y - NodeHeight/2},
	}
	if n.Title == "" {
		n.Title = cat.Style().Label
	}
	if err := c.editor.Dispatch(AddNode{Node: n}); err != nil {
		return Node{}, err
	}
	return n, nil
}

// DeleteSelection removes every selected edge and node. Edges touching a
// deleted node go with it.
func (c *Canvas) DeleteSelection() (bool, error) {
	sel := c.editor.state.Selection
	if sel.Empty() {
		return false, nil
	}
	var errs []error
	for _, id := range slices.Clone(sel.EdgeIDs) {
		if err := c.editor.Dispatch(RemoveEdge{EdgeID: id}); err != nil && !errors.Is(err, ErrEdgeNotFound) {
			errs = append(errs, err)
		}
	}
	for _, id := range slices.Clone(sel.NodeIDs) {
		if err := c.editor.Dispatch(RemoveNode{NodeID: id}); err != nil && !errors.Is(err, ErrNodeNotFound) {
			errs = append(errs, err)
		}
		delete(c.overlay, id)
	}
	_ = c.editor.Dispatch(SetSelection{})
	return true, errors.Join(errs...)
}

// Scene captures everything the render projector needs.
func (c *Canvas) Scene() Scene {
	sc := Scene{
		Nodes:     c.editor.state.Workflow.Nodes,
		Edges:     c.editor.state.Workflow.Edges,
		Overlay:   c.overlay,
		Viewport:  c.view,
		Selection: c.editor.state.Selection,
		Hover:     c.hover,
		Session:   c.State(),
	}
	switch s := c.session.(type) {
	case *MoveSession:
		sc.DraggingID = s.NodeID
	case *ConnectSession:
		sc.Preview = &Preview{SourceID: s.SourceID, Pointer: s.Pointer}
	}
	return sc
}
