package flowcanvas

import (
	"fmt"
	"strings"
)

// Category classifies a workflow node.
type Category int

const (
	CategoryTrigger Category = iota
	CategoryAction
	CategoryLogic
	CategoryFlow
	CategoryIntegration
)

// CategoryStyle holds the presentation attributes of a category.
type CategoryStyle struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var categoryNames = [...]string{
	CategoryTrigger:     "trigger",
	CategoryAction:      "action",
	CategoryLogic:       "logic",
	CategoryFlow:        "flow",
	CategoryIntegration: "integration",
}

var categoryStyles = [...]CategoryStyle{
	CategoryTrigger:     {Label: "Trigger", Color: "#10b981", Icon: "zap"},
	CategoryAction:      {Label: "Action", Color: "#3b82f6", Icon: "play"},
	CategoryLogic:       {Label: "Logic", Color: "#f59e0b", Icon: "git-branch"},
	CategoryFlow:        {Label: "Flow", Color: "#8b5cf6", Icon: "workflow"},
	CategoryIntegration: {Label: "Integration", Color: "#ec4899", Icon: "plug"},
}

// Categories lists every category in palette order.
func Categories() []Category {
	return []Category{CategoryTrigger, CategoryAction, CategoryLogic, CategoryFlow, CategoryIntegration}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c >= CategoryTrigger && c <= CategoryIntegration
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// Style returns the presentation attributes for c.
// Unknown categories get a neutral grey style.
func (c Category) Style() CategoryStyle {
	if !c.Valid() {
		return CategoryStyle{Label: "Unknown", Color: "#6b7280", Icon: "circle"}
	}
	return categoryStyles[c]
}

// ParseCategory converts the lower-case category name into a Category.
func ParseCategory(s string) (Category, error) {
	for i, name := range categoryNames {
		if strings.EqualFold(s, name) {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("flowcanvas: unknown category %q", s)
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("flowcanvas: invalid category %d", int(c))
	}
	return []byte(categoryNames[c]), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Point is a 2D coordinate, either in screen or canvas space.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale multiplies both coordinates by f.
func (p Point) Scale(f float64) Point { return Point{p.X * f, p.Y * f} }

// Workflow is the document edited on the canvas: nodes, edges and a version
// counter bumped on every mutation.
type Workflow struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Version int    `json:"version" yaml:"version"`
	Nodes   []Node `json:"nodes" yaml:"nodes"`
	Edges   []Edge `json:"edges" yaml:"edges"`
}

// Node is a single workflow step placed on the canvas.
type Node struct {
	ID          string   `json:"id,omitempty" yaml:"id,omitempty"`
	Category    Category `json:"category" yaml:"category"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Position    Point    `json:"position" yaml:"position"`
}

// Edge is a directed connection from SourceID to TargetID.
// Condition, when set, is an expression evaluated by the execution backend.
type Edge struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	SourceID  string `json:"source_id" yaml:"source"`
	TargetID  string `json:"target_id" yaml:"target"`
	Label     string `json:"label,omitempty" yaml:"label,omitempty"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// WorkflowSummary is the listing view of a stored workflow.
type WorkflowSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Version   int    `json:"version"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

// Node returns the node with the given id.
func (w Workflow) Node(id string) (Node, bool) {
	if i := w.nodeIndex(id); i >= 0 {
		return w.Nodes[i], true
	}
	return Node{}, false
}

// Edge returns the edge with the given id.
func (w Workflow) Edge(id string) (Edge, bool) {
	if i := w.edgeIndex(id); i >= 0 {
		return w.Edges[i], true
	}
	return Edge{}, false
}

func (w Workflow) nodeIndex(id string) int {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func (w Workflow) edgeIndex(id string) int {
	for i := range w.Edges {
		if w.Edges[i].ID == id {
			return i
		}
	}
	return -1
}

// Summary returns the listing view of w.
func (w Workflow) Summary() WorkflowSummary {
	return WorkflowSummary{
		ID:        w.ID,
		Name:      w.Name,
		Version:   w.Version,
		NodeCount: len(w.Nodes),
		EdgeCount: len(w.Edges),
	}
}

// Clone returns a deep copy of w.
func (w Workflow) Clone() Workflow {
	w.Nodes = append([]Node(nil), w.Nodes...)
	w.Edges = append([]Edge(nil), w.Edges...)
	return w
}
