package value

import (
	"testing"
	"time"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/depgraph"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

func item(id, title string, points int) types.WorkItem {
	return types.WorkItem{
		ID:                 id,
		Title:              title,
		StoryPoints:        points,
		Type:               types.TypeStory,
		TeamID:             "team-a",
		Status:             types.StatusTodo,
		AcceptanceCriteria: []string{"WHEN done THEN it works"},
		CreatedAt:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		title string
		want  Stream
	}{
		{"Add checkout promo codes", StreamCustomerFacing},
		{"GDPR data retention audit", StreamCompliance},
		{"Fix auth token vulnerability", StreamRiskReduction},
		{"Terraform module for staging cluster", StreamPlatform},
		{"Refactor order service for new framework", StreamTechnicalEnabler},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			it := item("wi-1", tt.title, 3)
			if got := Classify(&it); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestClassifyEnablerDefault(t *testing.T) {
	it := item("wi-1", "Groundwork for later", 3)
	it.Type = types.TypeEnabler
	if got := Classify(&it); got != StreamTechnicalEnabler {
		t.Errorf("enabler without keywords should classify as technical-enabler, got %s", got)
	}
}

func planWith(items []types.WorkItem, iterationItems map[int][]string) *types.ARTPlan {
	plan := &types.ARTPlan{
		PIID:   "pi-1",
		TeamID: "team-a",
		Status: types.PlanStatusAllocated,
		Items:  items,
	}
	maxIdx := 0
	for idx := range iterationItems {
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	for i := 0; i <= maxIdx; i++ {
		it := types.IterationPlan{Index: i, TotalCapacity: 40}
		for _, id := range iterationItems[i] {
			for _, w := range items {
				if w.ID == id {
					it.AllocatedItems = append(it.AllocatedItems, types.AllocatedWorkItem{
						ItemID: id, IterationIndex: i, StoryPoints: w.StoryPoints, TeamID: w.TeamID,
					})
					it.AllocatedPoints += w.EffectivePoints()
				}
			}
		}
		plan.Iterations = append(plan.Iterations, it)
	}
	return plan
}

func TestAllGatesPass(t *testing.T) {
	items := []types.WorkItem{item("wi-1", "Checkout page", 3), item("wi-2", "Search page", 2)}
	plan := planWith(items, map[int][]string{0: {"wi-1", "wi-2"}})

	analyzer := NewAnalyzer(depgraph.NewGraph(items))
	analysis := analyzer.AnalyzeIteration(plan, &plan.Iterations[0])

	if !analysis.DeliversWorkingSoftware {
		t.Errorf("expected all gates to pass, blockers: %v", analysis.Blockers())
	}
	if len(analysis.Gates) != 4 {
		t.Errorf("expected 4 gates, got %d", len(analysis.Gates))
	}
	if analysis.Score <= 0 || analysis.Score > 1 {
		t.Errorf("score out of range: %.2f", analysis.Score)
	}
}

func TestDefinitionOfDoneGateFails(t *testing.T) {
	noCriteria := item("wi-1", "Checkout page", 3)
	noCriteria.AcceptanceCriteria = nil
	items := []types.WorkItem{noCriteria}
	plan := planWith(items, map[int][]string{0: {"wi-1"}})

	analyzer := NewAnalyzer(depgraph.NewGraph(items))
	analysis := analyzer.AnalyzeIteration(plan, &plan.Iterations[0])

	if analysis.DeliversWorkingSoftware {
		t.Fatal("missing acceptance criteria must fail the definition-of-done gate")
	}
	var gate *GateResult
	for i := range analysis.Gates {
		if analysis.Gates[i].Gate == GateDefinitionOfDone {
			gate = &analysis.Gates[i]
		}
	}
	if gate == nil || gate.Passed || len(gate.Blockers) != 1 {
		t.Errorf("expected one named definition-of-done blocker, got %+v", gate)
	}
}

func TestIntegrationGateFailsOnForwardDependency(t *testing.T) {
	items := []types.WorkItem{item("wi-a", "API", 3), item("wi-b", "UI", 2)}
	graph := depgraph.NewGraph(items)
	if err := graph.AddEdge(types.DependencyRelationship{
		SourceID: "wi-a", TargetID: "wi-b", Kind: types.KindBlocks,
		Strength: types.StrengthHard, DetectionMethod: types.MethodManual, Confidence: 1,
	}); err != nil {
		t.Fatal(err)
	}

	// wi-b ships in iteration 0 but its blocker wi-a only ships in 1.
	plan := planWith(items, map[int][]string{0: {"wi-b"}, 1: {"wi-a"}})

	analyzer := NewAnalyzer(graph)
	analysis := analyzer.AnalyzeIteration(plan, &plan.Iterations[0])

	if analysis.DeliversWorkingSoftware {
		t.Fatal("forward hard dependency must fail the integration gate")
	}
	found := false
	for _, g := range analysis.Gates {
		if g.Gate == GateIntegration && !g.Passed {
			found = true
		}
	}
	if !found {
		t.Errorf("expected integration gate failure, gates: %+v", analysis.Gates)
	}

	// The later iteration itself is clean.
	second := analyzer.AnalyzeIteration(plan, &plan.Iterations[1])
	if !second.DeliversWorkingSoftware {
		t.Errorf("iteration 1 should pass, blockers: %v", second.Blockers())
	}
}

func TestDeployabilityGate(t *testing.T) {
	flagged := item("wi-1", "Checkout page", 3)
	flagged.Status = types.StatusIncomplete
	items := []types.WorkItem{flagged}
	plan := planWith(items, map[int][]string{0: {"wi-1"}})

	analyzer := NewAnalyzer(depgraph.NewGraph(items))
	analysis := analyzer.AnalyzeIteration(plan, &plan.Iterations[0])

	for _, g := range analysis.Gates {
		if g.Gate == GateDeployability {
			if g.Passed {
				t.Error("incomplete item must fail the deployability gate")
			}
		}
	}
}

func TestRollbackSafetyGate(t *testing.T) {
	infra := item("wi-1", "Rotate database credentials", 2)
	infra.Labels = []string{LabelSharedInfra}
	items := []types.WorkItem{infra}
	plan := planWith(items, map[int][]string{0: {"wi-1"}})

	analyzer := NewAnalyzer(depgraph.NewGraph(items))
	analysis := analyzer.AnalyzeIteration(plan, &plan.Iterations[0])
	if analysis.DeliversWorkingSoftware {
		t.Fatal("shared-infra item without rollback note must fail rollback safety")
	}

	// Adding the note fixes the gate.
	items[0].RollbackNote = "flag-off via LaunchDarkly, revert migration 042"
	plan = planWith(items, map[int][]string{0: {"wi-1"}})
	analysis = analyzer.AnalyzeIteration(plan, &plan.Iterations[0])
	if !analysis.DeliversWorkingSoftware {
		t.Errorf("rollback note should satisfy the gate, blockers: %v", analysis.Blockers())
	}
}

func TestPlanScoreAveragesIterations(t *testing.T) {
	items := []types.WorkItem{item("wi-1", "Checkout page", 3), item("wi-2", "Search page", 2)}
	plan := planWith(items, map[int][]string{0: {"wi-1"}, 1: {"wi-2"}})

	analyzer := NewAnalyzer(depgraph.NewGraph(items))
	analyses := analyzer.AnalyzePlan(plan)
	if len(analyses) != 2 {
		t.Fatalf("expected 2 analyses, got %d", len(analyses))
	}
	score := PlanScore(analyses)
	if score <= 0 || score > 1 {
		t.Errorf("plan score out of range: %.2f", score)
	}
}
