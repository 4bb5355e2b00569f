package value

import (
	"fmt"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

// GateType identifies the working-software gates.
type GateType string

const (
	GateDefinitionOfDone GateType = "definition_of_done"
	GateIntegration      GateType = "integration_completeness"
	GateDeployability    GateType = "deployability"
	GateRollbackSafety   GateType = "rollback_safety"
)

// GateResult is the outcome of one working-software gate.
type GateResult struct {
	Gate     GateType `json:"gate"`
	Passed   bool     `json:"passed"`
	Blockers []string `json:"blockers,omitempty"`
}

// LabelSharedInfra marks items that touch shared infrastructure and must
// carry a rollback or flag-off note.
const LabelSharedInfra = "shared-infra"

// runGates executes all four gates in order. Gates keep running after a
// failure so the analysis reports every blocker, not just the first.
func (a *Analyzer) runGates(plan *types.ARTPlan, iteration *types.IterationPlan) []GateResult {
	return []GateResult{
		a.gateDefinitionOfDone(plan, iteration),
		a.gateIntegration(plan, iteration),
		a.gateDeployability(plan, iteration),
		a.gateRollbackSafety(plan, iteration),
	}
}

// gateDefinitionOfDone requires every allocated story to have non-empty
// acceptance criteria.
func (a *Analyzer) gateDefinitionOfDone(plan *types.ARTPlan, iteration *types.IterationPlan) GateResult {
	result := GateResult{Gate: GateDefinitionOfDone, Passed: true}
	for _, allocated := range iteration.AllocatedItems {
		item := plan.ItemByID(allocated.ItemID)
		if item == nil {
			continue
		}
		if item.Type == types.TypeStory && len(item.AcceptanceCriteria) == 0 {
			result.Passed = false
			result.Blockers = append(result.Blockers,
				fmt.Sprintf("story %s has no acceptance criteria", item.ID))
		}
	}
	return result
}

// gateIntegration requires that no hard dependency of an allocated item
// lands in a later iteration or remains unplaced: software shipped this
// iteration must not depend on something that does not exist yet.
func (a *Analyzer) gateIntegration(plan *types.ARTPlan, iteration *types.IterationPlan) GateResult {
	result := GateResult{Gate: GateIntegration, Passed: true}
	if a.graph == nil {
		return result
	}
	for _, rel := range a.graph.HardEdges() {
		if rel.Kind != types.KindBlocks {
			continue
		}
		if !iteration.ContainsItem(rel.TargetID) {
			continue
		}
		sourceIteration := plan.IterationOf(rel.SourceID)
		if sourceIteration == -1 || sourceIteration > iteration.Index {
			result.Passed = false
			result.Blockers = append(result.Blockers,
				fmt.Sprintf("item %s depends on %s which is not delivered by iteration %d",
					rel.TargetID, rel.SourceID, iteration.Index+1))
		}
	}
	return result
}

// gateDeployability rejects items flagged incomplete or missing an owning
// team.
func (a *Analyzer) gateDeployability(plan *types.ARTPlan, iteration *types.IterationPlan) GateResult {
	result := GateResult{Gate: GateDeployability, Passed: true}
	for _, allocated := range iteration.AllocatedItems {
		item := plan.ItemByID(allocated.ItemID)
		if item == nil {
			continue
		}
		if item.Status == types.StatusIncomplete {
			result.Passed = false
			result.Blockers = append(result.Blockers,
				fmt.Sprintf("item %s is flagged incomplete", item.ID))
		}
		if item.TeamID == "" {
			result.Passed = false
			result.Blockers = append(result.Blockers,
				fmt.Sprintf("item %s has no owning team", item.ID))
		}
	}
	return result
}

// gateRollbackSafety requires a rollback or flag-off note on every item
// touching shared infrastructure.
func (a *Analyzer) gateRollbackSafety(plan *types.ARTPlan, iteration *types.IterationPlan) GateResult {
	result := GateResult{Gate: GateRollbackSafety, Passed: true}
	for _, allocated := range iteration.AllocatedItems {
		item := plan.ItemByID(allocated.ItemID)
		if item == nil {
			continue
		}
		if item.HasLabel(LabelSharedInfra) && item.RollbackNote == "" {
			result.Passed = false
			result.Blockers = append(result.Blockers,
				fmt.Sprintf("item %s touches shared infrastructure without a rollback note", item.ID))
		}
	}
	return result
}
