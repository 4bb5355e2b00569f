package optimize

import (
	"fmt"
	"sort"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/value"
)

// recommend derives ranked improvement actions from the scored plan.
// Output order is deterministic: impact descending, then code, then item.
func (o *Optimizer) recommend(plan *types.ARTPlan, analyses []*value.Analysis) []Recommendation {
	var recs []Recommendation

	recs = append(recs, o.recommendMoves(plan)...)
	recs = append(recs, o.recommendSplits(plan)...)
	recs = append(recs, o.recommendRisks(analyses)...)

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Impact != recs[j].Impact {
			return recs[i].Impact > recs[j].Impact
		}
		if recs[i].Code != recs[j].Code {
			return recs[i].Code < recs[j].Code
		}
		return recs[i].ItemID < recs[j].ItemID
	})
	return recs
}

// recommendMoves proposes moving the smallest item out of each iteration
// above the target band into the most underutilized one below it.
func (o *Optimizer) recommendMoves(plan *types.ARTPlan) []Recommendation {
	var recs []Recommendation

	lowest := -1
	var lowestUtilization float64
	for i := range plan.Iterations {
		u := plan.Iterations[i].Utilization()
		if u < o.targetLow && (lowest == -1 || u < lowestUtilization) {
			lowest = plan.Iterations[i].Index
			lowestUtilization = u
		}
	}

	for i := range plan.Iterations {
		it := &plan.Iterations[i]
		u := it.Utilization()
		if u <= o.targetHigh || len(it.AllocatedItems) == 0 {
			continue
		}

		smallest := it.AllocatedItems[0]
		for _, a := range it.AllocatedItems[1:] {
			if a.StoryPoints < smallest.StoryPoints ||
				(a.StoryPoints == smallest.StoryPoints && a.ItemID < smallest.ItemID) {
				smallest = a
			}
		}

		target := lowest
		if target == -1 || target == it.Index {
			recs = append(recs, Recommendation{
				Code:          CodeAddBuffer,
				Message:       fmt.Sprintf("iteration %d runs at %.0f%% utilization with nowhere to shed load; reduce scope or add capacity", it.Index+1, u*100),
				FromIteration: it.Index,
				Impact:        u - o.targetHigh,
			})
			continue
		}
		recs = append(recs, Recommendation{
			Code:          CodeMoveItem,
			Message:       fmt.Sprintf("move item %s from iteration %d to iteration %d to resolve the capacity overrun", smallest.ItemID, it.Index+1, target+1),
			ItemID:        smallest.ItemID,
			FromIteration: it.Index,
			ToIteration:   target,
			Impact:        u - o.targetHigh,
		})
	}

	// A plan that is both over and under the band benefits from a general
	// rebalance even if single moves do not close the gap.
	var over, under bool
	for i := range plan.Iterations {
		u := plan.Iterations[i].Utilization()
		if u > o.targetHigh {
			over = true
		}
		if u < o.targetLow {
			under = true
		}
	}
	if over && under {
		recs = append(recs, Recommendation{
			Code:    CodeRebalanceIteration,
			Message: "utilization is uneven across iterations; re-run allocation after applying moves",
			Impact:  0.1,
		})
	}
	return recs
}

// recommendSplits proposes splitting unplaced or low-confidence large
// items so the allocator has smaller pieces to pack.
func (o *Optimizer) recommendSplits(plan *types.ARTPlan) []Recommendation {
	var recs []Recommendation
	for _, id := range plan.UnplacedItems {
		item := plan.ItemByID(id)
		points := 0
		if item != nil {
			points = item.StoryPoints
		}
		if points >= types.MaxStoryPoints {
			recs = append(recs, Recommendation{
				Code:    CodeSplitItem,
				Message: fmt.Sprintf("item %s (%d points) did not fit in any iteration; split it into smaller stories", id, points),
				ItemID:  id,
				Impact:  0.5,
			})
		} else {
			recs = append(recs, Recommendation{
				Code:    CodeAddBuffer,
				Message: fmt.Sprintf("item %s did not fit in any iteration; extend the PI or reduce the buffer", id),
				ItemID:  id,
				Impact:  0.4,
			})
		}
	}

	for i := range plan.Iterations {
		for _, a := range plan.Iterations[i].AllocatedItems {
			if a.Confidence < 0.7 && a.StoryPoints >= types.MaxStoryPoints {
				recs = append(recs, Recommendation{
					Code:          CodeSplitItem,
					Message:       fmt.Sprintf("item %s was placed with low confidence (%.2f); splitting it would give the allocator room", a.ItemID, a.Confidence),
					ItemID:        a.ItemID,
					FromIteration: a.IterationIndex,
					Impact:        0.7 - a.Confidence,
				})
			}
		}
	}
	return recs
}

// recommendRisks converts gate blockers into resolve-risk actions.
func (o *Optimizer) recommendRisks(analyses []*value.Analysis) []Recommendation {
	var recs []Recommendation
	for _, analysis := range analyses {
		for _, gate := range analysis.Gates {
			if gate.Passed {
				continue
			}
			for _, blocker := range gate.Blockers {
				recs = append(recs, Recommendation{
					Code:          CodeResolveRisk,
					Message:       fmt.Sprintf("iteration %d %s gate: %s", analysis.IterationIndex+1, gate.Gate, blocker),
					FromIteration: analysis.IterationIndex,
					Impact:        0.3,
				})
			}
		}
	}
	return recs
}
