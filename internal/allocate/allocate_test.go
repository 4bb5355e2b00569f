package allocate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/depgraph"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

func item(id string, points, priority int) types.WorkItem {
	return types.WorkItem{
		ID:          id,
		Title:       "Item " + id,
		StoryPoints: points,
		Priority:    priority,
		Type:        types.TypeStory,
		TeamID:      "team-a",
		Status:      types.StatusTodo,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func hardEdge(source, target string) types.DependencyRelationship {
	return types.DependencyRelationship{
		SourceID:        source,
		TargetID:        target,
		Kind:            types.KindBlocks,
		Strength:        types.StrengthHard,
		DetectionMethod: types.MethodManual,
		Confidence:      1.0,
	}
}

func team(velocity float64) []types.Team {
	return []types.Team{{
		ID:              "team-a",
		Name:            "Team A",
		MemberCount:     6,
		AverageVelocity: velocity,
		CapacityFactor:  1.0,
	}}
}

func testPI() *types.ProgramIncrement {
	return &types.ProgramIncrement{
		ID:                  "pi-1",
		StartDate:           time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		EndDate:             time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC),
		IterationLengthDays: 15,
	}
}

func mustGraph(t *testing.T, items []types.WorkItem, edges ...types.DependencyRelationship) *depgraph.Graph {
	t.Helper()
	g := depgraph.NewGraph(items)
	for _, e := range edges {
		if err := g.AddEdge(e); err != nil {
			t.Fatalf("adding edge: %v", err)
		}
	}
	return g
}

func TestAllocateNeverExceedsMaxUtilization(t *testing.T) {
	items := []types.WorkItem{
		item("wi-1", 5, 1), item("wi-2", 5, 1), item("wi-3", 5, 1),
		item("wi-4", 5, 1), item("wi-5", 5, 1), item("wi-6", 5, 1),
	}
	alloc := NewAllocator(0.90, 0.15)
	result, err := alloc.Allocate(context.Background(), testPI(), items, mustGraph(t, items), team(10), 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, it := range result.Iterations {
		if u := it.Utilization(); u > 0.90 {
			t.Errorf("iteration %d utilization %.2f exceeds 0.90", it.Index, u)
		}
	}
}

func TestAllocateRespectsBufferFraction(t *testing.T) {
	// Capacity 10, buffer 0.2 → at most 8 points per iteration even
	// though maxUtilization alone would allow 9.
	items := []types.WorkItem{item("wi-1", 5, 1), item("wi-2", 4, 1)}
	alloc := NewAllocator(0.90, 0.20)
	result, err := alloc.Allocate(context.Background(), testPI(), items, mustGraph(t, items), team(10), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Iterations[0].AllocatedPoints > 8 {
		t.Errorf("buffer not reserved: iteration 0 has %d points", result.Iterations[0].AllocatedPoints)
	}
}

func TestAllocateRespectsDependencyOrder(t *testing.T) {
	items := []types.WorkItem{item("wi-a", 5, 1), item("wi-b", 5, 1), item("wi-c", 5, 1)}
	graph := mustGraph(t, items, hardEdge("wi-a", "wi-b"), hardEdge("wi-b", "wi-c"))

	alloc := NewAllocator(0.90, 0.15)
	result, err := alloc.Allocate(context.Background(), testPI(), items, graph, team(10), 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	index := make(map[string]int)
	for _, it := range result.Iterations {
		for _, a := range it.AllocatedItems {
			index[a.ItemID] = it.Index
		}
	}
	if index["wi-a"] > index["wi-b"] || index["wi-b"] > index["wi-c"] {
		t.Errorf("dependency order violated: %v", index)
	}
}

func TestAllocateCyclicGraphFails(t *testing.T) {
	items := []types.WorkItem{item("wi-a", 3, 1), item("wi-b", 3, 1)}
	graph := mustGraph(t, items, hardEdge("wi-a", "wi-b"), hardEdge("wi-b", "wi-a"))

	alloc := NewAllocator(0.90, 0.15)
	_, err := alloc.Allocate(context.Background(), testPI(), items, graph, team(10), 6)
	var cycErr *depgraph.CyclicDependencyError
	if !errors.As(err, &cycErr) {
		t.Fatalf("expected CyclicDependencyError, got %v", err)
	}
}

func TestAllocateOverAllocationReportsUnplaced(t *testing.T) {
	items := []types.WorkItem{
		item("wi-1", 5, 1), item("wi-2", 5, 1), item("wi-3", 5, 1), item("wi-4", 5, 1),
	}
	// Capacity 10 × 0.85 usable = 8.5 → one 5-point item per iteration.
	alloc := NewAllocator(0.90, 0.15)
	result, err := alloc.Allocate(context.Background(), testPI(), items, mustGraph(t, items), team(10), 2)

	var overErr *OverAllocationError
	if !errors.As(err, &overErr) {
		t.Fatalf("expected OverAllocationError, got %v", err)
	}
	if len(overErr.UnplacedItemIDs) != 2 {
		t.Errorf("expected 2 unplaced items, got %v", overErr.UnplacedItemIDs)
	}
	if result == nil {
		t.Fatal("partial result must be returned alongside the error")
	}
	placed := 0
	for _, it := range result.Iterations {
		placed += len(it.AllocatedItems)
	}
	if placed+len(result.Unplaced) != len(items) {
		t.Errorf("items lost: %d placed, %d unplaced, %d total", placed, len(result.Unplaced), len(items))
	}
}

func TestAllocateTieBreaksByPriorityThenSize(t *testing.T) {
	items := []types.WorkItem{
		item("wi-low", 3, 3),
		item("wi-urgent", 5, 0),
		item("wi-small", 1, 1),
		item("wi-medium", 3, 1),
	}
	// Room for only some items in iteration 0: capacity 10 × 0.85 = 8.5.
	alloc := NewAllocator(0.90, 0.15)
	result, err := alloc.Allocate(context.Background(), testPI(), items, mustGraph(t, items), team(10), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := result.Iterations[0]
	if !first.ContainsItem("wi-urgent") {
		t.Error("highest priority item should land in iteration 0")
	}
	if !first.ContainsItem("wi-small") {
		t.Error("smaller item should be favored over larger at equal priority")
	}
	if first.ContainsItem("wi-low") {
		t.Error("low priority item should be displaced to iteration 1")
	}
}

func TestAllocateSingleSmallItem(t *testing.T) {
	items := []types.WorkItem{item("wi-1", 1, 1)}
	alloc := NewAllocator(0.90, 0.15)
	result, err := alloc.Allocate(context.Background(), testPI(), items, mustGraph(t, items), team(40), 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := result.Iterations[0]
	if !first.ContainsItem("wi-1") {
		t.Fatal("single unconstrained item must allocate to iteration 1")
	}
	want := 1.0 / 40.0
	if got := first.Utilization(); got != want {
		t.Errorf("expected utilization %.4f, got %.4f", want, got)
	}
	if first.AllocatedItems[0].Confidence != 1.0 {
		t.Errorf("unconstrained placement should have confidence 1.0, got %.2f",
			first.AllocatedItems[0].Confidence)
	}
}

func TestAllocateZeroPointItemWeighsOne(t *testing.T) {
	items := []types.WorkItem{item("wi-zero", 0, 1)}
	alloc := NewAllocator(0.90, 0.15)
	result, err := alloc.Allocate(context.Background(), testPI(), items, mustGraph(t, items), team(10), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Iterations[0].AllocatedPoints != 1 {
		t.Errorf("zero-point item should consume 1 point, got %d", result.Iterations[0].AllocatedPoints)
	}
}

func TestAllocateRejectsUndecomposedStory(t *testing.T) {
	items := []types.WorkItem{item("wi-big", 8, 1)}
	alloc := NewAllocator(0.90, 0.15)
	_, err := alloc.Allocate(context.Background(), testPI(), items, mustGraph(t, items), team(10), 6)
	if err == nil {
		t.Fatal("8-point story must be rejected before allocation")
	}
}

func TestAllocateRejectsUnknownTeam(t *testing.T) {
	bad := item("wi-1", 3, 1)
	bad.TeamID = "ghost-team"
	alloc := NewAllocator(0.90, 0.15)
	_, err := alloc.Allocate(context.Background(), testPI(), []types.WorkItem{bad}, mustGraph(t, []types.WorkItem{bad}), team(10), 6)
	if err == nil {
		t.Fatal("unknown team must be rejected")
	}
}

func TestAllocateUnplacedBlockerCascades(t *testing.T) {
	// wi-a cannot fit anywhere, so its dependent wi-b must also be
	// reported unplaced instead of jumping the queue.
	items := []types.WorkItem{item("wi-a", 5, 1), item("wi-b", 1, 1)}
	graph := mustGraph(t, items, hardEdge("wi-a", "wi-b"))

	alloc := NewAllocator(0.90, 0.15)
	result, err := alloc.Allocate(context.Background(), testPI(), items, graph, []types.Team{{
		ID: "team-a", Name: "A", MemberCount: 2, AverageVelocity: 2, CapacityFactor: 1.0,
	}}, 2)

	var overErr *OverAllocationError
	if !errors.As(err, &overErr) {
		t.Fatalf("expected OverAllocationError, got %v", err)
	}
	if len(result.Unplaced) != 2 {
		t.Errorf("expected both items unplaced, got %v", result.Unplaced)
	}
}
