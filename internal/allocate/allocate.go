// Package allocate assigns work items to iterations with greedy,
// dependency-respecting bin packing. Items are processed in topological
// order so predecessors land no later than their successors; each item
// takes the earliest iteration whose remaining team capacity can absorb it
// without exceeding the utilization ceiling or eating into the reserved
// buffer.
package allocate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/depgraph"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

// OverAllocationError reports items that could not be placed within the
// iteration count. The partial plan is still returned: unplaced items are
// listed explicitly, never silently dropped.
type OverAllocationError struct {
	UnplacedItemIDs []string
}

func (e *OverAllocationError) Error() string {
	return fmt.Sprintf("over-allocation: %d items did not fit: %s",
		len(e.UnplacedItemIDs), strings.Join(e.UnplacedItemIDs, ", "))
}

// Allocator performs capacity-aware iteration planning.
type Allocator struct {
	maxUtilization float64
	bufferFraction float64
}

// NewAllocator creates an allocator. Zero values fall back to a 0.90
// utilization ceiling and a 0.15 buffer.
func NewAllocator(maxUtilization, bufferFraction float64) *Allocator {
	if maxUtilization <= 0 || maxUtilization > 1 {
		maxUtilization = 0.90
	}
	if bufferFraction < 0 || bufferFraction >= 1 {
		bufferFraction = 0.15
	}
	return &Allocator{maxUtilization: maxUtilization, bufferFraction: bufferFraction}
}

// Result is the allocation outcome: the iteration sequence plus any items
// that did not fit.
type Result struct {
	Iterations []types.IterationPlan
	Unplaced   []string
}

// Allocate places every item into one of iterationCount iterations.
// Items too large for allocation (undecomposed stories) and items with
// unknown teams are rejected up front as validation errors. Returns the
// partial result together with an OverAllocationError when some items do
// not fit.
func (a *Allocator) Allocate(ctx context.Context, pi *types.ProgramIncrement, items []types.WorkItem, graph *depgraph.Graph, teams []types.Team, iterationCount int) (*Result, error) {
	if iterationCount <= 0 {
		return nil, fmt.Errorf("iteration count must be positive (got %d)", iterationCount)
	}
	if len(teams) == 0 {
		return nil, fmt.Errorf("at least one team is required")
	}
	teamByID := make(map[string]types.Team, len(teams))
	for _, team := range teams {
		if err := team.Validate(); err != nil {
			return nil, fmt.Errorf("invalid team %s: %w", team.ID, err)
		}
		teamByID[team.ID] = team
	}
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid work item %s: %w", items[i].ID, err)
		}
		if items[i].NeedsDecomposition() {
			return nil, fmt.Errorf("item %s has %d points and must be decomposed before allocation",
				items[i].ID, items[i].StoryPoints)
		}
		if _, ok := teamByID[items[i].TeamID]; !ok {
			return nil, fmt.Errorf("item %s references unknown team %q", items[i].ID, items[i].TeamID)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ranks, err := graph.TopologicalRanks()
	if err != nil {
		return nil, err // CyclicDependencyError blocks allocation entirely
	}

	ordered := orderForAllocation(items, ranks)
	state := newAllocationState(pi, teams, iterationCount, a.maxUtilization, a.bufferFraction)

	blockers := hardBlockers(graph)
	placed := make(map[string]int, len(items)) // item id → iteration index

	var unplaced []string
	for _, item := range ordered {
		earliest := 0
		feasible := true
		for _, blocker := range blockers[item.ID] {
			idx, ok := placed[blocker]
			if !ok {
				// Predecessor itself did not fit; the successor cannot be
				// scheduled either.
				feasible = false
				break
			}
			if idx > earliest {
				earliest = idx
			}
		}
		if !feasible {
			unplaced = append(unplaced, item.ID)
			continue
		}

		idx := state.place(item, earliest)
		if idx < 0 {
			unplaced = append(unplaced, item.ID)
			continue
		}
		placed[item.ID] = idx
	}

	result := &Result{Iterations: state.iterations(), Unplaced: unplaced}
	if len(unplaced) > 0 {
		sort.Strings(unplaced)
		return result, &OverAllocationError{UnplacedItemIDs: unplaced}
	}
	return result, nil
}

// orderForAllocation sorts items by topological rank; within a rank,
// higher business priority first (0 is most urgent), then fewer points so
// small items deliver value early, then id for stability.
func orderForAllocation(items []types.WorkItem, ranks map[string]int) []types.WorkItem {
	ordered := append([]types.WorkItem(nil), items...)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := ranks[ordered[i].ID], ranks[ordered[j].ID]
		if ri != rj {
			return ri < rj
		}
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		if ordered[i].EffectivePoints() != ordered[j].EffectivePoints() {
			return ordered[i].EffectivePoints() < ordered[j].EffectivePoints()
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

// hardBlockers returns, per item, the ids of items that must be placed in
// the same or an earlier iteration.
func hardBlockers(graph *depgraph.Graph) map[string][]string {
	blockers := make(map[string][]string)
	for _, rel := range graph.HardEdges() {
		if rel.Kind != types.KindBlocks {
			continue
		}
		blockers[rel.TargetID] = append(blockers[rel.TargetID], rel.SourceID)
	}
	return blockers
}
