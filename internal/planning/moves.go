package planning

import (
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/optimize"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

// applyMoves applies MOVE_ITEM recommendations that keep the plan legal:
// the destination must have capacity headroom and every hard ordering
// constraint must still hold. Returns how many moves were applied.
func (c *Coordinator) applyMoves(plan *types.ARTPlan, recs []optimize.Recommendation) int {
	moved := 0
	for _, rec := range recs {
		if rec.Code != optimize.CodeMoveItem {
			continue
		}
		if c.applyMove(plan, rec) {
			moved++
		}
	}
	return moved
}

func (c *Coordinator) applyMove(plan *types.ARTPlan, rec optimize.Recommendation) bool {
	if rec.ToIteration < 0 || rec.ToIteration >= len(plan.Iterations) {
		return false
	}
	from := plan.IterationOf(rec.ItemID)
	if from < 0 || from == rec.ToIteration {
		return false
	}

	item := plan.ItemByID(rec.ItemID)
	if item == nil {
		return false
	}
	points := item.EffectivePoints()

	dst := &plan.Iterations[rec.ToIteration]
	if !fitsCeiling(dst, points, c.ceiling()) {
		return false
	}
	if !orderingHolds(plan, rec.ItemID, rec.ToIteration) {
		return false
	}

	src := &plan.Iterations[from]
	for i, allocated := range src.AllocatedItems {
		if allocated.ItemID != rec.ItemID {
			continue
		}
		src.AllocatedItems = append(src.AllocatedItems[:i], src.AllocatedItems[i+1:]...)
		src.AllocatedPoints -= points
		allocated.IterationIndex = rec.ToIteration
		dst.AllocatedItems = append(dst.AllocatedItems, allocated)
		dst.AllocatedPoints += points
		return true
	}
	return false
}

// ceiling is the effective utilization limit honoring both the ceiling
// and the reserved buffer, mirroring the allocator.
func (c *Coordinator) ceiling() float64 {
	limit := c.cfg.Allocation.MaxUtilization
	if buffered := 1 - c.cfg.Allocation.BufferFraction; buffered < limit {
		limit = buffered
	}
	return limit
}

func fitsCeiling(it *types.IterationPlan, points int, ceiling float64) bool {
	if it.TotalCapacity <= 0 {
		return false
	}
	return float64(it.AllocatedPoints+points) <= it.TotalCapacity*ceiling
}

// orderingHolds checks that moving the item to the candidate iteration
// keeps every hard blocks-edge satisfied in both directions.
func orderingHolds(plan *types.ARTPlan, itemID string, to int) bool {
	for _, rel := range plan.Edges {
		if rel.Strength != types.StrengthHard || rel.Kind != types.KindBlocks {
			continue
		}
		switch {
		case rel.SourceID == itemID:
			dependent := plan.IterationOf(rel.TargetID)
			if dependent >= 0 && to > dependent {
				return false
			}
		case rel.TargetID == itemID:
			blocker := plan.IterationOf(rel.SourceID)
			if blocker >= 0 && to < blocker {
				return false
			}
		}
	}
	return true
}
