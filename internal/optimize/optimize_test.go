package optimize

import (
	"reflect"
	"testing"
	"time"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

func item(id string, points int) types.WorkItem {
	return types.WorkItem{
		ID:                 id,
		Title:              "Item " + id,
		StoryPoints:        points,
		Type:               types.TypeStory,
		TeamID:             "team-a",
		Status:             types.StatusTodo,
		AcceptanceCriteria: []string{"WHEN shipped THEN value is delivered"},
		CreatedAt:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// buildPlan creates an allocated plan with the given points per iteration
// against a fixed capacity of 10.
func buildPlan(pointsPerIteration ...[]int) *types.ARTPlan {
	plan := &types.ARTPlan{
		PIID:   "pi-1",
		TeamID: "team-a",
		Status: types.PlanStatusValidated,
	}
	n := 0
	for idx, points := range pointsPerIteration {
		it := types.IterationPlan{Index: idx, TotalCapacity: 10}
		for _, p := range points {
			n++
			w := item(itemID(n), p)
			plan.Items = append(plan.Items, w)
			it.AllocatedItems = append(it.AllocatedItems, types.AllocatedWorkItem{
				ItemID: w.ID, IterationIndex: idx, StoryPoints: p, TeamID: "team-a", Confidence: 1,
			})
			it.AllocatedPoints += w.EffectivePoints()
		}
		plan.Iterations = append(plan.Iterations, it)
	}
	return plan
}

func itemID(n int) string {
	return "wi-" + string(rune('a'+n-1))
}

func TestOptimizeIsIdempotent(t *testing.T) {
	plan := buildPlan([]int{5, 3}, []int{4, 3}, []int{2})

	opt := NewOptimizer(0.65, 0.90)
	first, err := opt.Optimize(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := opt.Optimize(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("optimizing the same plan twice produced different results")
	}

	// Optimizing the already-scored output changes nothing either.
	third, err := opt.Optimize(&first.Plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if third.ReadinessScore != first.ReadinessScore {
		t.Errorf("readiness drifted across passes: %.4f vs %.4f", first.ReadinessScore, third.ReadinessScore)
	}
	if !reflect.DeepEqual(third.Recommendations, first.Recommendations) {
		t.Error("recommendations drifted across passes")
	}
}

func TestOptimizeDoesNotMutateInput(t *testing.T) {
	plan := buildPlan([]int{5, 3}, []int{4})
	before := plan.ReadinessScore

	opt := NewOptimizer(0.65, 0.90)
	if _, err := opt.Optimize(plan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.ReadinessScore != before {
		t.Error("optimizer mutated the input plan")
	}
	if plan.Status != types.PlanStatusValidated {
		t.Error("optimizer changed plan status")
	}
}

func TestOptimizeReadinessInRange(t *testing.T) {
	plan := buildPlan([]int{5, 3}, []int{4, 4}, []int{3, 5})
	opt := NewOptimizer(0.65, 0.90)
	result, err := opt.Optimize(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ReadinessScore < 0 || result.ReadinessScore > 1 {
		t.Errorf("readiness out of range: %.2f", result.ReadinessScore)
	}
}

func TestOptimizeRecommendsMoveForOverUtilizedIteration(t *testing.T) {
	// Iteration 0 at 100%, iteration 1 nearly idle.
	plan := buildPlan([]int{5, 4, 1}, []int{1})

	opt := NewOptimizer(0.65, 0.90)
	result, err := opt.Optimize(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var move *Recommendation
	for i := range result.Recommendations {
		if result.Recommendations[i].Code == CodeMoveItem {
			move = &result.Recommendations[i]
			break
		}
	}
	if move == nil {
		t.Fatalf("expected a MOVE_ITEM recommendation, got %+v", result.Recommendations)
	}
	if move.FromIteration != 0 || move.ToIteration != 1 {
		t.Errorf("expected move from iteration 0 to 1, got %d → %d", move.FromIteration, move.ToIteration)
	}
	// The smallest item in the overloaded iteration is the one to move.
	if item := plan.ItemByID(move.ItemID); item == nil || item.StoryPoints != 1 {
		t.Errorf("expected the 1-point item to be moved, got %s", move.ItemID)
	}
}

func TestOptimizeFlagsUnplacedItems(t *testing.T) {
	plan := buildPlan([]int{5})
	big := item("wi-unplaced", 5)
	plan.Items = append(plan.Items, big)
	plan.UnplacedItems = []string{"wi-unplaced"}

	opt := NewOptimizer(0.65, 0.90)
	result, err := opt.Optimize(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := false
	for _, rec := range result.Recommendations {
		if rec.Code == CodeSplitItem && rec.ItemID == "wi-unplaced" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected SPLIT_ITEM for the unplaced 5-point item, got %+v", result.Recommendations)
	}
	if result.RiskCount == 0 {
		t.Error("unplaced items must count as risk")
	}
}

func TestOptimizeRecommendationsAreRanked(t *testing.T) {
	plan := buildPlan([]int{5, 4, 1}, []int{1})
	plan.UnplacedItems = nil

	opt := NewOptimizer(0.65, 0.90)
	result, err := opt.Optimize(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(result.Recommendations); i++ {
		if result.Recommendations[i].Impact > result.Recommendations[i-1].Impact {
			t.Errorf("recommendations not ranked by impact: %+v", result.Recommendations)
		}
	}
}
