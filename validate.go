package flowcanvas

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
)

var (
	ErrConnectionRejected = errors.New("flowcanvas: connection rejected")
	ErrSelfConnection     = fmt.Errorf("%w: self-connection", ErrConnectionRejected)
	ErrDuplicateEdge      = fmt.Errorf("%w: duplicate", ErrConnectionRejected)
	ErrCircularDependency = fmt.Errorf("%w: circular dependency", ErrConnectionRejected)
)

// Reason explains why a proposed connection was rejected.
// The zero value means the connection was accepted.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonSelfConnection Reason = "self-connection"
	ReasonDuplicate      Reason = "duplicate"
	ReasonCircular       Reason = "circular dependency"
)

// Severity grades a rejection for presentation. A duplicate attempt is a
// warning (the graph already holds what the user asked for); the others are
// errors.
type Severity string

const (
	SeverityNone    Severity = ""
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Decision is the validator verdict for one proposed edge.
type Decision struct {
	Accepted bool     `json:"accepted"`
	Reason   Reason   `json:"reason,omitempty"`
	Severity Severity `json:"severity,omitempty"`
}

// Accept is the accepting Decision.
var Accept = Decision{Accepted: true}

func reject(r Reason, s Severity) Decision {
	return Decision{Reason: r, Severity: s}
}

// Err returns nil for an accepted decision and the matching sentinel error
// otherwise.
func (d Decision) Err() error {
	if d.Accepted {
		return nil
	}
	switch d.Reason {
	case ReasonSelfConnection:
		return ErrSelfConnection
	case ReasonDuplicate:
		return ErrDuplicateEdge
	case ReasonCircular:
		return ErrCircularDependency
	}
	return ErrConnectionRejected
}

// RejectionOf recovers the rejecting Decision behind an error produced by
// Decision.Err, possibly wrapped.
func RejectionOf(err error) (Decision, bool) {
	switch {
	case errors.Is(err, ErrSelfConnection):
		return reject(ReasonSelfConnection, SeverityError), true
	case errors.Is(err, ErrDuplicateEdge):
		return reject(ReasonDuplicate, SeverityWarning), true
	case errors.Is(err, ErrCircularDependency):
		return reject(ReasonCircular, SeverityError), true
	}
	return Decision{}, false
}

// ValidateConnection decides whether the edge sourceID → targetID may be
// added to edges. Checks run in order: self-connection, duplicate, cycle.
func ValidateConnection(sourceID, targetID string, edges []Edge) Decision {
	if sourceID == targetID {
		return reject(ReasonSelfConnection, SeverityError)
	}
	for _, e := range edges {
		if e.SourceID == sourceID && e.TargetID == targetID {
			return reject(ReasonDuplicate, SeverityWarning)
		}
	}
	if Reachable(targetID, sourceID, edges) {
		return reject(ReasonCircular, SeverityError)
	}
	return Accept
}

// Reachable reports whether to can be reached from from by following edges
// source → target. Each node is expanded at most once, so malformed (cyclic)
// inputs still terminate.
func Reachable(from, to string, edges []Edge) bool {
	adj := adjacency(edges)
	visited := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == to {
			return true
		}
		for _, next := range adj[id] {
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

func adjacency(edges []Edge) map[string][]string {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.SourceID] = append(adj[e.SourceID], e.TargetID)
	}
	return adj
}

// ValidateCondition checks that an edge condition is a well-formed
// expression. An empty condition is always valid.
func ValidateCondition(cond string) error {
	if cond == "" {
		return nil
	}
	if _, err := expr.Compile(cond); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}
	return nil
}

// ValidateWorkflow checks a whole document: unique node ids, edges pointing
// at existing nodes, no self loops, no duplicate edges, valid conditions and
// an acyclic edge set.
func ValidateWorkflow(w *Workflow) error {
	nodes := make(map[string]bool, len(w.Nodes))
	for _, n := range w.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node without id", ErrInvalidWorkflow)
		}
		if nodes[n.ID] {
			return fmt.Errorf("%w: duplicate node id %q", ErrInvalidWorkflow, n.ID)
		}
		if !n.Category.Valid() {
			return fmt.Errorf("%w: node %q: invalid category %d", ErrInvalidWorkflow, n.ID, int(n.Category))
		}
		nodes[n.ID] = true
	}

	type pair struct{ from, to string }
	seen := make(map[pair]bool, len(w.Edges))
	for _, e := range w.Edges {
		if !nodes[e.SourceID] {
			return fmt.Errorf("%w: edge %s source %q: %w", ErrInvalidWorkflow, e.ID, e.SourceID, ErrNodeNotFound)
		}
		if !nodes[e.TargetID] {
			return fmt.Errorf("%w: edge %s target %q: %w", ErrInvalidWorkflow, e.ID, e.TargetID, ErrNodeNotFound)
		}
		if e.SourceID == e.TargetID {
			return fmt.Errorf("%w: edge %s: %w", ErrInvalidWorkflow, e.ID, ErrSelfConnection)
		}
		p := pair{e.SourceID, e.TargetID}
		if seen[p] {
			return fmt.Errorf("%w: edge %s: %w", ErrInvalidWorkflow, e.ID, ErrDuplicateEdge)
		}
		seen[p] = true
		if err := ValidateCondition(e.Condition); err != nil {
			return fmt.Errorf("%w: edge %s: %w", ErrInvalidWorkflow, e.ID, err)
		}
	}

	return validateAcyclic(w.Nodes, w.Edges)
}

// validateAcyclic checks that the edges don't form a cycle using DFS.
func validateAcyclic(nodes []Node, edges []Edge) error {
	adj := adjacency(edges)

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)

	state := make(map[string]int, len(nodes))
	order := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := state[n.ID]; !ok {
			state[n.ID] = unvisited
			order = append(order, n.ID)
		}
	}

	var dfs func(id string) bool
	dfs = func(id string) bool {
		state[id] = visiting
		for _, next := range adj[id] {
			switch state[next] {
			case visiting:
				return true
			case unvisited:
				if dfs(next) {
					return true
				}
			}
		}
		state[id] = visited
		return false
	}

	for _, id := range order {
		if state[id] == unvisited && dfs(id) {
			return ErrCycleDetected
		}
	}

	return nil
}
