package decompose

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

func story(id string, points int, criteria ...string) types.WorkItem {
	return types.WorkItem{
		ID:                 id,
		Title:              "Story " + id,
		StoryPoints:        points,
		Type:               types.TypeStory,
		TeamID:             "team-a",
		Status:             types.StatusTodo,
		AcceptanceCriteria: criteria,
	}
}

func TestDecomposePointDistribution(t *testing.T) {
	tests := []struct {
		points     int
		wantK      int
		wantPoints []int
	}{
		{points: 6, wantK: 2, wantPoints: []int{3, 3}},
		{points: 7, wantK: 2, wantPoints: []int{4, 3}},
		{points: 8, wantK: 2, wantPoints: []int{4, 4}},
		{points: 10, wantK: 2, wantPoints: []int{5, 5}},
		{points: 11, wantK: 3, wantPoints: []int{4, 4, 3}},
		{points: 13, wantK: 3, wantPoints: []int{5, 4, 4}},
		// 14, 18, and 19 leave a remainder that would breach the cap if a
		// single child absorbed it; they must still split cleanly.
		{points: 14, wantK: 3, wantPoints: []int{5, 5, 4}},
		{points: 15, wantK: 3, wantPoints: []int{5, 5, 5}},
		{points: 16, wantK: 4, wantPoints: []int{4, 4, 4, 4}},
		{points: 18, wantK: 4, wantPoints: []int{5, 5, 4, 4}},
		{points: 19, wantK: 4, wantPoints: []int{5, 5, 5, 4}},
		{points: 20, wantK: 4, wantPoints: []int{5, 5, 5, 5}},
	}

	engine := NewEngine(0, 0)
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_points", tt.points), func(t *testing.T) {
			result, err := engine.Decompose(story("wi-1", tt.points))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(result.Children) != tt.wantK {
				t.Fatalf("expected %d children, got %d", tt.wantK, len(result.Children))
			}
			sum := 0
			for i, child := range result.Children {
				if child.StoryPoints != tt.wantPoints[i] {
					t.Errorf("child %d: expected %d points, got %d", i, tt.wantPoints[i], child.StoryPoints)
				}
				if child.StoryPoints > types.MaxStoryPoints {
					t.Errorf("child %d exceeds point cap: %d", i, child.StoryPoints)
				}
				if child.ParentID != "wi-1" {
					t.Errorf("child %d missing parent reference", i)
				}
				sum += child.StoryPoints
			}
			if sum != tt.points {
				t.Errorf("child points sum %d != parent %d", sum, tt.points)
			}
		})
	}
}

func TestDecomposeInfeasible(t *testing.T) {
	engine := NewEngine(0, 0)
	_, err := engine.Decompose(story("wi-big", 25))
	if !errors.Is(err, ErrDecompositionInfeasible) {
		t.Fatalf("expected ErrDecompositionInfeasible, got %v", err)
	}
}

func TestDecomposeRejectsCompliantItem(t *testing.T) {
	engine := NewEngine(0, 0)
	if _, err := engine.Decompose(story("wi-small", 5)); err == nil {
		t.Fatal("expected error decomposing a compliant item")
	}
}

func TestCriteriaCompleteness(t *testing.T) {
	criteria := []string{"c1", "c2", "c3", "c4", "c5"}
	engine := NewEngine(0, 0)
	result, err := engine.Decompose(story("wi-1", 8, criteria...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Union of child criteria must equal parent criteria, no dups.
	seen := make(map[string]int)
	for _, child := range result.Children {
		for _, c := range child.AcceptanceCriteria {
			seen[c]++
		}
	}
	for _, c := range criteria {
		if seen[c] != 1 {
			t.Errorf("criterion %q appears %d times across children, expected exactly once", c, seen[c])
		}
	}
	if len(result.Mapping) != len(criteria) {
		t.Errorf("mapping covers %d criteria, expected %d", len(result.Mapping), len(criteria))
	}
}

func TestCriteriaRoundRobinPreservesOrder(t *testing.T) {
	engine := NewEngine(0, 0)
	result, err := engine.Decompose(story("wi-1", 6, "a", "b", "c", "d"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Two children: round-robin gives [a, c] and [b, d].
	first := result.Children[0].AcceptanceCriteria
	second := result.Children[1].AcceptanceCriteria
	if len(first) != 2 || first[0] != "a" || first[1] != "c" {
		t.Errorf("first child criteria out of order: %v", first)
	}
	if len(second) != 2 || second[0] != "b" || second[1] != "d" {
		t.Errorf("second child criteria out of order: %v", second)
	}
}

func TestDecomposeBatchCollectsFailures(t *testing.T) {
	engine := NewEngine(0, 0)
	items := []types.WorkItem{
		story("wi-1", 3),
		story("wi-2", 8, "c1", "c2"),
		story("wi-3", 25), // infeasible
	}

	batch, err := engine.DecomposeBatch(context.Background(), items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Results) != 1 {
		t.Errorf("expected 1 decomposition, got %d", len(batch.Results))
	}
	if len(batch.Failed) != 1 || batch.Failed[0].ItemID != "wi-3" {
		t.Errorf("expected wi-3 in failures, got %+v", batch.Failed)
	}

	// The failed parent stays in the backlog rather than vanishing.
	all := batch.Items()
	found := false
	for _, item := range all {
		if item.ID == "wi-3" {
			found = true
		}
		if item.ID == "wi-2" {
			t.Error("decomposed parent wi-2 should not appear in the flattened backlog")
		}
	}
	if !found {
		t.Error("infeasible item wi-3 was silently dropped from the backlog")
	}
}

func TestDecomposeBatchCancellation(t *testing.T) {
	engine := NewEngine(0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.DecomposeBatch(ctx, []types.WorkItem{story("wi-1", 8)})
	if err == nil {
		t.Fatal("expected context error")
	}
}
