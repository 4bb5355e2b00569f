package allocate

import (
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

// iterationState tracks remaining capacity for one iteration while the
// packing loop runs.
type iterationState struct {
	plan types.IterationPlan
	// usable is the per-team point budget after reserving the buffer and
	// applying the utilization ceiling.
	usable map[string]float64
	used   map[string]float64
}

// allocationState is the mutable working set of the packing loop. Only the
// allocator touches it; the returned IterationPlans are plain values.
type allocationState struct {
	iters          []*iterationState
	maxUtilization float64
}

func newAllocationState(pi *types.ProgramIncrement, teams []types.Team, iterationCount int, maxUtilization, bufferFraction float64) *allocationState {
	// The effective ceiling honors both constraints: utilization stays
	// under maxUtilization and the buffer fraction is never allocated.
	effective := maxUtilization
	if 1-bufferFraction < effective {
		effective = 1 - bufferFraction
	}

	state := &allocationState{maxUtilization: maxUtilization}
	for i := 0; i < iterationCount; i++ {
		var total float64
		usable := make(map[string]float64, len(teams))
		used := make(map[string]float64, len(teams))
		for _, team := range teams {
			capacity := team.IterationCapacity()
			total += capacity
			usable[team.ID] = capacity * effective
		}
		it := &iterationState{
			plan: types.IterationPlan{
				Index:         i,
				TotalCapacity: total,
			},
			usable: usable,
			used:   used,
		}
		if pi != nil {
			it.plan.StartDate, it.plan.EndDate = pi.IterationWindow(i)
		}
		state.iters = append(state.iters, it)
	}
	return state
}

// place assigns the item to the earliest iteration at or after earliest
// with room in the item's team budget. Returns the iteration index, or -1
// if no iteration fits.
func (s *allocationState) place(item types.WorkItem, earliest int) int {
	points := float64(item.EffectivePoints())
	for idx := earliest; idx < len(s.iters); idx++ {
		it := s.iters[idx]
		if it.used[item.TeamID]+points > it.usable[item.TeamID] {
			continue
		}
		confidence := s.confidence(item, idx, earliest, it)
		it.used[item.TeamID] += points
		it.plan.AllocatedPoints += item.EffectivePoints()
		it.plan.AllocatedItems = append(it.plan.AllocatedItems, types.AllocatedWorkItem{
			ItemID:         item.ID,
			IterationIndex: idx,
			StoryPoints:    item.StoryPoints,
			TeamID:         item.TeamID,
			Confidence:     confidence,
		})
		return idx
	}
	return -1
}

// confidence scores how cleanly the placement satisfied its constraints:
// 1.0 for an item landing in its earliest feasible iteration with headroom,
// lower when it slipped later or pushed utilization near the ceiling.
func (s *allocationState) confidence(item types.WorkItem, idx, earliest int, it *iterationState) float64 {
	score := 1.0
	score -= 0.15 * float64(idx-earliest)
	if it.plan.TotalCapacity > 0 {
		utilization := float64(it.plan.AllocatedPoints+item.EffectivePoints()) / it.plan.TotalCapacity
		if utilization > s.maxUtilization*0.9 {
			score -= 0.1
		}
	}
	if score < 0 {
		return 0
	}
	return score
}

func (s *allocationState) iterations() []types.IterationPlan {
	out := make([]types.IterationPlan, len(s.iters))
	for i, it := range s.iters {
		out[i] = it.plan
	}
	return out
}
