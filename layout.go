package flowcanvas

// Auto-layout spacing in canvas units.
const (
	LayoutMarginX = 40.0
	LayoutMarginY = 40.0
	LayoutGapX    = 100.0
	LayoutGapY    = 40.0
)

// Layout assigns every node a position by layering the graph: a node's column
// is the length of the longest path reaching it, and rows follow insertion
// order within a column. Nodes left unplaced because the input contains a
// cycle share one extra column after the last.
func Layout(nodes []Node, edges []Edge) map[string]Point {
	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}

	indegree := make(map[string]int, len(nodes))
	adj := make(map[string][]string)
	for _, e := range edges {
		if !known[e.SourceID] || !known[e.TargetID] {
			continue
		}
		adj[e.SourceID] = append(adj[e.SourceID], e.TargetID)
		indegree[e.TargetID]++
	}

	layer := make(map[string]int, len(nodes))
	var queue []string
	for _, n := range nodes {
		if indegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	placed := make(map[string]bool, len(nodes))
	maxLayer := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		placed[id] = true
		for _, next := range adj[id] {
			if layer[id]+1 > layer[next] {
				layer[next] = layer[id] + 1
			}
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
		if layer[id] > maxLayer {
			maxLayer = layer[id]
		}
	}

	rows := make(map[int]int)
	out := make(map[string]Point, len(nodes))
	for _, n := range nodes {
		col := layer[n.ID]
		if !placed[n.ID] {
			col = maxLayer + 1
		}
		row := rows[col]
		rows[col]++
		out[n.ID] = Point{
			X: LayoutMarginX + float64(col)*(NodeWidth+LayoutGapX),
			Y: LayoutMarginY + float64(row)*(NodeHeight+LayoutGapY),
		}
	}
	return out
}
