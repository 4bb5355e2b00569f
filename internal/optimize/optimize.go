// Package optimize scores overall ART plan health and proposes ranked
// rebalancing actions. The optimizer never mutates the plan: the caller
// applies accepted recommendations and re-runs the allocator. Running it
// twice over the same input yields an identical result.
package optimize

import (
	"fmt"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/depgraph"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/value"
)

// Recommendation codes, ordered roughly by how directly they unblock a
// committed PI.
const (
	CodeMoveItem           = "MOVE_ITEM"
	CodeRebalanceIteration = "REBALANCE_ITERATION"
	CodeSplitItem          = "SPLIT_ITEM"
	CodeResolveRisk        = "RESOLVE_RISK"
	CodeAddBuffer          = "ADD_BUFFER"
)

// Recommendation is one proposed improvement action.
type Recommendation struct {
	Code          string  `json:"code"`
	Message       string  `json:"message"`
	ItemID        string  `json:"item_id,omitempty"`
	FromIteration int     `json:"from_iteration,omitempty"`
	ToIteration   int     `json:"to_iteration,omitempty"`
	// Impact ranks recommendations; higher means applying it moves the
	// readiness score more.
	Impact float64 `json:"impact"`
}

// OptimizedPlan is the scoring outcome plus ranked recommendations. Plan
// is a scored copy; the input plan is left untouched.
type OptimizedPlan struct {
	Plan             types.ARTPlan    `json:"plan"`
	ReadinessScore   float64          `json:"readiness_score"`
	ValueScore       float64          `json:"value_score"`
	UtilizationScore float64          `json:"utilization_score"`
	RiskCount        int              `json:"risk_count"`
	Recommendations  []Recommendation `json:"recommendations"`
}

// Optimizer computes readiness against a target utilization band.
type Optimizer struct {
	targetLow  float64
	targetHigh float64
}

// NewOptimizer creates an optimizer. Zero values fall back to the 0.65 to
// 0.90 target band.
func NewOptimizer(targetLow, targetHigh float64) *Optimizer {
	if targetLow <= 0 || targetLow >= 1 {
		targetLow = 0.65
	}
	if targetHigh <= targetLow || targetHigh > 1 {
		targetHigh = 0.90
	}
	return &Optimizer{targetLow: targetLow, targetHigh: targetHigh}
}

// Optimize scores the plan and produces ranked improvement actions.
func (o *Optimizer) Optimize(plan *types.ARTPlan) (*OptimizedPlan, error) {
	if len(plan.Iterations) == 0 {
		return nil, fmt.Errorf("plan has no iterations to optimize")
	}

	graph := depgraph.NewGraph(plan.Items)
	for _, rel := range plan.Edges {
		if err := graph.AddEdge(rel); err != nil {
			return nil, fmt.Errorf("rebuilding dependency snapshot: %w", err)
		}
	}

	analyzer := value.NewAnalyzer(graph)
	analyses := analyzer.AnalyzePlan(plan)
	valueScore := value.PlanScore(analyses)

	utilizationScore := o.utilizationScore(plan)
	riskCount := len(plan.UnplacedItems)
	for _, a := range analyses {
		riskCount += a.RiskCount
	}
	riskPenalty := float64(riskCount) * 0.1
	if riskPenalty > 1 {
		riskPenalty = 1
	}

	readiness := 0.4*utilizationScore + 0.4*valueScore + 0.2*(1-riskPenalty)
	if readiness < 0 {
		readiness = 0
	}
	if readiness > 1 {
		readiness = 1
	}

	scored := *plan
	scored.ReadinessScore = readiness
	scored.ValueDeliveryScore = valueScore
	scored.CapacityUtilization = plan.AverageUtilization()

	return &OptimizedPlan{
		Plan:             scored,
		ReadinessScore:   readiness,
		ValueScore:       valueScore,
		UtilizationScore: utilizationScore,
		RiskCount:        riskCount,
		Recommendations:  o.recommend(plan, analyses),
	}, nil
}

// utilizationScore rewards iterations inside the target band. Utilization
// is a band target, not a number to maximize: both idle and overloaded
// iterations pull the score down.
func (o *Optimizer) utilizationScore(plan *types.ARTPlan) float64 {
	var sum float64
	for i := range plan.Iterations {
		u := plan.Iterations[i].Utilization()
		switch {
		case u >= o.targetLow && u <= o.targetHigh:
			sum += 1
		case u < o.targetLow:
			sum += 1 - (o.targetLow-u)/o.targetLow
		default:
			over := (u - o.targetHigh) / (1 - o.targetHigh)
			if over > 1 {
				over = 1
			}
			sum += 1 - over
		}
	}
	return sum / float64(len(plan.Iterations))
}
