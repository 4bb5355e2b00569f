// Package decompose splits oversized stories into allocatable sub-items.
//
// A story larger than the configured point cap is split into 2-4 children
// whose points sum to the parent's and whose acceptance criteria cover the
// parent's exactly. The split is deterministic: point distribution is as
// even as possible, with the leading children taking one extra point each
// when the total does not divide evenly, and criteria are assigned
// round-robin in their original order.
package decompose

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

// ErrDecompositionInfeasible is returned when no split into the allowed
// number of children can bring every child under the point cap. The caller
// decides whether to re-decompose recursively.
var ErrDecompositionInfeasible = errors.New("decomposition infeasible")

// CriterionAssignment records which child an original acceptance criterion
// was assigned to.
type CriterionAssignment struct {
	Index     int    `json:"index"` // position in the parent's criteria
	Criterion string `json:"criterion"`
	ChildID   string `json:"child_id"`
}

// Result holds the outcome of decomposing one parent item. Parent is a
// read-only snapshot; Children are new items ready to be created in the
// tracker.
type Result struct {
	Parent   types.WorkItem        `json:"parent"`
	Children []types.WorkItem      `json:"children"`
	Mapping  []CriterionAssignment `json:"mapping"`
}

// Engine splits stories according to the configured limits.
type Engine struct {
	maxPoints   int
	maxChildren int
}

// NewEngine creates a decomposition engine. Zero values fall back to the
// standard limits (5 points, 4 children).
func NewEngine(maxPoints, maxChildren int) *Engine {
	if maxPoints <= 0 {
		maxPoints = types.MaxStoryPoints
	}
	if maxChildren < 2 {
		maxChildren = 4
	}
	return &Engine{maxPoints: maxPoints, maxChildren: maxChildren}
}

// Decompose splits an oversized item into compliant sub-items. It must only
// be called for items where NeedsDecomposition() is true; calling it for a
// compliant item is a validation error.
func (e *Engine) Decompose(item types.WorkItem) (*Result, error) {
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("invalid work item %s: %w", item.ID, err)
	}
	if item.StoryPoints <= e.maxPoints {
		return nil, fmt.Errorf("item %s has %d points, nothing to decompose", item.ID, item.StoryPoints)
	}

	k, err := e.childCount(item.StoryPoints)
	if err != nil {
		return nil, fmt.Errorf("item %s (%d points): %w", item.ID, item.StoryPoints, err)
	}

	points := splitPoints(item.StoryPoints, k)
	children := make([]types.WorkItem, k)
	for i := 0; i < k; i++ {
		children[i] = types.WorkItem{
			ID:          uuid.NewString(),
			Title:       fmt.Sprintf("%s (part %d/%d)", item.Title, i+1, k),
			Description: childDescription(item, i+1, k),
			StoryPoints: points[i],
			Type:        types.TypeStory,
			ParentID:    item.ID,
			TeamID:      item.TeamID,
			Priority:    item.Priority,
			Status:      types.StatusTodo,
			Labels:      append([]string(nil), item.Labels...),
			CreatedAt:   item.CreatedAt,
		}
	}

	mapping := assignCriteria(item.AcceptanceCriteria, children)
	for _, m := range mapping {
		for i := range children {
			if children[i].ID == m.ChildID {
				children[i].AcceptanceCriteria = append(children[i].AcceptanceCriteria, m.Criterion)
			}
		}
	}

	result := &Result{Parent: item, Children: children, Mapping: mapping}
	if err := verifyCompleteness(result); err != nil {
		// Invariant violation after the fact is fatal: never hand a
		// partial decomposition to the caller.
		return nil, fmt.Errorf("decomposition of %s violated invariants: %w", item.ID, err)
	}
	return result, nil
}

// childCount picks the smallest k in [2, maxChildren] whose even split
// keeps every child at or under the point cap.
func (e *Engine) childCount(storyPoints int) (int, error) {
	for k := 2; k <= e.maxChildren; k++ {
		if ceilDiv(storyPoints, k) <= e.maxPoints {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: cannot split %d points into ≤%d children of ≤%d points",
		ErrDecompositionInfeasible, storyPoints, e.maxChildren, e.maxPoints)
}

// splitPoints distributes points as evenly as possible across k children.
// The first total%k children take one extra point, so no child exceeds
// ceil(total/k) and childCount's feasibility proof holds for every child.
func splitPoints(total, k int) []int {
	base := total / k
	rem := total % k
	points := make([]int, k)
	for i := range points {
		points[i] = base
		if i < rem {
			points[i]++
		}
	}
	return points
}

// assignCriteria distributes criteria round-robin across children,
// preserving original order within each child.
func assignCriteria(criteria []string, children []types.WorkItem) []CriterionAssignment {
	mapping := make([]CriterionAssignment, 0, len(criteria))
	for i, c := range criteria {
		child := children[i%len(children)]
		mapping = append(mapping, CriterionAssignment{
			Index:     i,
			Criterion: c,
			ChildID:   child.ID,
		})
	}
	return mapping
}

// verifyCompleteness enforces the completeness invariant: the union of the
// children's criteria equals the parent's, with no duplicates, omissions,
// or additions.
func verifyCompleteness(r *Result) error {
	remaining := make(map[string]int, len(r.Parent.AcceptanceCriteria))
	for _, c := range r.Parent.AcceptanceCriteria {
		remaining[c]++
	}
	for _, child := range r.Children {
		for _, c := range child.AcceptanceCriteria {
			if remaining[c] == 0 {
				return fmt.Errorf("criterion %q duplicated or not present on parent", c)
			}
			remaining[c]--
		}
	}
	for c, n := range remaining {
		if n > 0 {
			return fmt.Errorf("criterion %q missing from all children", c)
		}
	}

	var sum int
	for _, child := range r.Children {
		if child.StoryPoints > types.MaxStoryPoints {
			return fmt.Errorf("child %s has %d points, exceeds cap", child.ID, child.StoryPoints)
		}
		sum += child.StoryPoints
	}
	if sum != r.Parent.StoryPoints {
		return fmt.Errorf("child points sum %d != parent points %d", sum, r.Parent.StoryPoints)
	}
	return nil
}

func childDescription(parent types.WorkItem, n, k int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Part %d of %d split from %s.", n, k, parent.ID)
	if parent.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(parent.Description)
	}
	return b.String()
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
