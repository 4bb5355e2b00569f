package planning

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/decompose"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

// retryFailed gives stories the engine could not split one more chance:
// the story is halved into two coarse slices, and each slice is
// decomposed normally. Returns children per rescued parent id plus the
// ids that remain infeasible.
func (c *Coordinator) retryFailed(backlog []types.WorkItem, failed []decompose.ItemError) (map[string][]types.WorkItem, []string) {
	if len(failed) == 0 {
		return nil, nil
	}

	byID := make(map[string]types.WorkItem, len(backlog))
	for _, item := range backlog {
		byID[item.ID] = item
	}

	rescued := make(map[string][]types.WorkItem)
	var infeasible []string
	for _, f := range failed {
		parent, ok := byID[f.ItemID]
		if !ok {
			infeasible = append(infeasible, f.ItemID)
			continue
		}
		children, err := c.halveAndSplit(parent)
		if err != nil {
			infeasible = append(infeasible, f.ItemID)
			continue
		}
		rescued[parent.ID] = children
	}
	sort.Strings(infeasible)
	return rescued, infeasible
}

// halveAndSplit cuts the story into two halves and decomposes each half
// that is still oversized. Point totals are preserved throughout.
func (c *Coordinator) halveAndSplit(parent types.WorkItem) ([]types.WorkItem, error) {
	first := parent
	first.ID = uuid.NewString()
	first.ParentID = parent.ID
	first.StoryPoints = (parent.StoryPoints + 1) / 2
	first.Title = fmt.Sprintf("%s (slice 1/2)", parent.Title)

	second := parent
	second.ID = uuid.NewString()
	second.ParentID = parent.ID
	second.StoryPoints = parent.StoryPoints - first.StoryPoints
	second.Title = fmt.Sprintf("%s (slice 2/2)", parent.Title)

	// Split acceptance criteria between the halves; the engine distributes
	// them further when the halves themselves need splitting.
	mid := (len(parent.AcceptanceCriteria) + 1) / 2
	first.AcceptanceCriteria = parent.AcceptanceCriteria[:mid]
	second.AcceptanceCriteria = parent.AcceptanceCriteria[mid:]

	var out []types.WorkItem
	for _, half := range []types.WorkItem{first, second} {
		if !half.NeedsDecomposition() {
			out = append(out, half)
			continue
		}
		result, err := c.engine.Decompose(half)
		if err != nil {
			return nil, err
		}
		out = append(out, result.Children...)
	}
	return out, nil
}
