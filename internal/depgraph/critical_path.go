package depgraph

// CriticalPath is the longest story-point-weighted path through the
// hard-edge DAG. Items on it have zero scheduling slack: any slip delays
// the whole PI.
type CriticalPath struct {
	ItemIDs     []string `json:"item_ids"`
	TotalPoints int      `json:"total_points"`
}

// ComputeCriticalPath finds the longest path over hard blocks-edges,
// weighted by effective story points. Soft edges are excluded. Ties are
// broken by earliest item creation time, then by id, so the result is
// deterministic. The graph must be acyclic; callers run TopologicalOrder
// first and remove cycles.
func (g *Graph) ComputeCriticalPath() (*CriticalPath, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	adj := g.hardAdjacency()

	weight := func(id string) int {
		item, ok := g.Item(id)
		if !ok {
			return 1
		}
		return item.EffectivePoints()
	}

	// best[id] is the heaviest path ending at id; prev[id] its predecessor.
	best := make(map[string]int, len(order))
	prev := make(map[string]string, len(order))
	for _, id := range order {
		best[id] = weight(id)
	}

	for _, node := range order {
		for _, next := range adj[node] {
			candidate := best[node] + weight(next)
			switch {
			case candidate > best[next]:
				best[next] = candidate
				prev[next] = node
			case candidate == best[next]:
				if g.prefersPredecessor(node, prev[next]) {
					prev[next] = node
				}
			}
		}
	}

	var endID string
	var endPoints int
	for _, id := range order {
		if best[id] > endPoints || (best[id] == endPoints && g.prefersEnd(id, endID)) {
			endID = id
			endPoints = best[id]
		}
	}
	if endID == "" {
		return &CriticalPath{}, nil
	}

	var path []string
	for id := endID; id != ""; id = prev[id] {
		path = append([]string{id}, path...)
		if _, ok := prev[id]; !ok {
			break
		}
	}
	return &CriticalPath{ItemIDs: path, TotalPoints: endPoints}, nil
}

// prefersPredecessor reports whether a should replace b as the recorded
// predecessor on an equal-weight path: earlier creation wins, id breaks
// the remaining tie.
func (g *Graph) prefersPredecessor(a, b string) bool {
	if b == "" {
		return true
	}
	itemA, okA := g.Item(a)
	itemB, okB := g.Item(b)
	if okA && okB && !itemA.CreatedAt.Equal(itemB.CreatedAt) {
		return itemA.CreatedAt.Before(itemB.CreatedAt)
	}
	return a < b
}

func (g *Graph) prefersEnd(a, b string) bool {
	return g.prefersPredecessor(a, b)
}
