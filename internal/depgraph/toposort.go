package depgraph

import (
	"fmt"
	"sort"
	"strings"
)

// CyclicDependencyError reports hard-edge cycles as ordered node-id chains
// so the caller can break the weakest edge in each chain. A transitive
// cycle through N items is reported as one N-node chain.
type CyclicDependencyError struct {
	Chains [][]string
}

func (e *CyclicDependencyError) Error() string {
	chains := make([]string, len(e.Chains))
	for i, chain := range e.Chains {
		chains[i] = strings.Join(chain, " → ")
	}
	return fmt.Sprintf("cyclic hard dependencies: %s", strings.Join(chains, "; "))
}

// TopologicalOrder sorts the graph's nodes so that every hard blocks-edge
// points forward (Kahn's algorithm). Nodes of equal rank keep a stable
// order (by id). If any hard-edge cycle remains, a CyclicDependencyError
// with the offending chains is returned.
func (g *Graph) TopologicalOrder() ([]string, error) {
	adj := g.hardAdjacency()

	indegree := make(map[string]int, len(adj))
	for _, id := range g.order {
		indegree[id] = 0
	}
	for _, targets := range adj {
		for _, t := range targets {
			indegree[t]++
		}
	}

	var frontier []string
	for _, id := range g.order {
		if indegree[id] == 0 {
			frontier = append(frontier, id)
		}
	}
	sort.Strings(frontier)

	order := make([]string, 0, len(adj))
	for len(frontier) > 0 {
		node := frontier[0]
		frontier = frontier[1:]
		order = append(order, node)

		var freed []string
		for _, t := range adj[node] {
			indegree[t]--
			if indegree[t] == 0 {
				freed = append(freed, t)
			}
		}
		sort.Strings(freed)
		frontier = mergeSorted(frontier, freed)
	}

	if len(order) != len(adj) {
		unsorted := make(map[string]bool)
		for id, deg := range indegree {
			if deg > 0 {
				unsorted[id] = true
			}
		}
		return nil, &CyclicDependencyError{Chains: g.cycleChains(adj, unsorted)}
	}
	return order, nil
}

// TopologicalRanks returns each node's depth in the hard-edge DAG: nodes
// with no hard predecessors have rank 0, and every hard blocks-edge
// increases rank by at least one.
func (g *Graph) TopologicalRanks() (map[string]int, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	adj := g.hardAdjacency()
	ranks := make(map[string]int, len(order))
	for _, node := range order {
		for _, t := range adj[node] {
			if ranks[node]+1 > ranks[t] {
				ranks[t] = ranks[node] + 1
			}
		}
	}
	return ranks, nil
}

// cycleChains extracts ordered cycles from the unsorted node set using
// strongly connected components, so a 3-hop cycle surfaces as one 3-node
// chain rather than three 2-node reports. Chains start at their smallest
// node id and are sorted by that id for determinism.
func (g *Graph) cycleChains(adj map[string][]string, unsorted map[string]bool) [][]string {
	var chains [][]string
	for _, scc := range stronglyConnected(adj, unsorted) {
		if len(scc) < 2 {
			continue
		}
		chains = append(chains, orderChain(adj, scc))
	}
	sort.Slice(chains, func(i, j int) bool {
		return chains[i][0] < chains[j][0]
	})
	return chains
}

// stronglyConnected runs Tarjan's algorithm restricted to the given node
// subset and returns components in deterministic order.
func stronglyConnected(adj map[string][]string, subset map[string]bool) [][]string {
	index := make(map[string]int, len(subset))
	lowlink := make(map[string]int, len(subset))
	onStack := make(map[string]bool, len(subset))
	var stack []string
	var counter int
	var components [][]string

	var strongconnect func(node string)
	strongconnect = func(node string) {
		index[node] = counter
		lowlink[node] = counter
		counter++
		stack = append(stack, node)
		onStack[node] = true

		for _, next := range adj[node] {
			if !subset[next] {
				continue
			}
			if _, seen := index[next]; !seen {
				strongconnect(next)
				if lowlink[next] < lowlink[node] {
					lowlink[node] = lowlink[next]
				}
			} else if onStack[next] && index[next] < lowlink[node] {
				lowlink[node] = index[next]
			}
		}

		if lowlink[node] == index[node] {
			var component []string
			for {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[top] = false
				component = append(component, top)
				if top == node {
					break
				}
			}
			components = append(components, component)
		}
	}

	roots := make([]string, 0, len(subset))
	for id := range subset {
		roots = append(roots, id)
	}
	sort.Strings(roots)
	for _, id := range roots {
		if _, seen := index[id]; !seen {
			strongconnect(id)
		}
	}
	return components
}

// orderChain walks the cycle's edges starting from the smallest node id so
// the chain reads in dependency order.
func orderChain(adj map[string][]string, scc []string) []string {
	inSCC := make(map[string]bool, len(scc))
	for _, id := range scc {
		inSCC[id] = true
	}
	start := scc[0]
	for _, id := range scc {
		if id < start {
			start = id
		}
	}

	chain := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for len(chain) < len(scc) {
		advanced := false
		for _, next := range adj[current] {
			if inSCC[next] && !visited[next] {
				chain = append(chain, next)
				visited[next] = true
				current = next
				advanced = true
				break
			}
		}
		if !advanced {
			// Component has internal branching; append remaining members
			// in id order so the report is still complete.
			rest := make([]string, 0, len(scc)-len(chain))
			for _, id := range scc {
				if !visited[id] {
					rest = append(rest, id)
				}
			}
			sort.Strings(rest)
			chain = append(chain, rest...)
			break
		}
	}
	return chain
}

// mergeSorted merges two sorted string slices.
func mergeSorted(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
