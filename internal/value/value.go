// Package value analyzes iterations for business value and working-software
// deliverability. Each allocated item is classified into a value stream and
// every iteration runs a four-gate working-software pipeline; failures
// surface as specific, named blockers.
package value

import (
	"sort"
	"strings"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/depgraph"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

// Stream is the value stream an item contributes to.
type Stream string

const (
	StreamCustomerFacing   Stream = "customer-facing"
	StreamTechnicalEnabler Stream = "technical-enabler"
	StreamRiskReduction    Stream = "risk-reduction"
	StreamCompliance       Stream = "compliance"
	StreamPlatform         Stream = "platform"
)

// streamWeights bias the value score toward directly visible customer
// value while still crediting enabling work.
var streamWeights = map[Stream]float64{
	StreamCustomerFacing:   1.0,
	StreamRiskReduction:    0.8,
	StreamCompliance:       0.7,
	StreamTechnicalEnabler: 0.6,
	StreamPlatform:         0.5,
}

// streamKeywords drive classification; the first stream whose keywords
// match wins, checked in a fixed order for determinism.
var streamKeywords = []struct {
	stream   Stream
	keywords []string
}{
	{StreamCompliance, []string{"compliance", "gdpr", "audit", "regulation", "regulatory", "legal", "policy"}},
	{StreamRiskReduction, []string{"security", "vulnerability", "risk", "hardening", "incident", "failover", "backup"}},
	{StreamPlatform, []string{"platform", "infrastructure", "deploy", "pipeline", "cluster", "terraform", "monitoring"}},
	{StreamTechnicalEnabler, []string{"refactor", "migration", "upgrade", "tooling", "framework", "tech debt", "enabler", "spike"}},
}

// Classify assigns an item to a value stream. Enabler-typed items default
// to technical-enabler; everything unmatched is customer-facing, the most
// common case for story work.
func Classify(item *types.WorkItem) Stream {
	text := strings.ToLower(item.Title + " " + item.Description)
	for _, entry := range streamKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.stream
			}
		}
	}
	if item.Type == types.TypeEnabler {
		return StreamTechnicalEnabler
	}
	return StreamCustomerFacing
}

// Analysis is the per-iteration value delivery result.
type Analysis struct {
	IterationIndex int `json:"iteration_index"`

	// Score combines value-stream coverage, the working-software outcome,
	// and risk count into [0,1].
	Score float64 `json:"score"`

	// StreamPoints is the allocated points per value stream.
	StreamPoints map[Stream]int `json:"stream_points"`

	// Gates holds the four working-software gate results in run order.
	Gates []GateResult `json:"gates"`

	// DeliversWorkingSoftware is true only when every gate passed.
	DeliversWorkingSoftware bool `json:"delivers_working_software"`

	// RiskCount is the number of blockers across all failed gates.
	RiskCount int `json:"risk_count"`
}

// Blockers returns every named blocker across failed gates.
func (a *Analysis) Blockers() []string {
	var out []string
	for _, g := range a.Gates {
		out = append(out, g.Blockers...)
	}
	return out
}

// Analyzer runs value delivery analysis against a plan's dependency
// snapshot.
type Analyzer struct {
	graph *depgraph.Graph
}

// NewAnalyzer creates an analyzer over the pass's dependency graph.
func NewAnalyzer(graph *depgraph.Graph) *Analyzer {
	return &Analyzer{graph: graph}
}

// AnalyzeIteration scores one iteration of the plan.
func (a *Analyzer) AnalyzeIteration(plan *types.ARTPlan, iteration *types.IterationPlan) *Analysis {
	analysis := &Analysis{
		IterationIndex: iteration.Index,
		StreamPoints:   make(map[Stream]int),
	}

	var weighted, totalPoints float64
	for _, allocated := range iteration.AllocatedItems {
		item := plan.ItemByID(allocated.ItemID)
		if item == nil {
			continue
		}
		stream := Classify(item)
		points := item.EffectivePoints()
		analysis.StreamPoints[stream] += points
		weighted += streamWeights[stream] * float64(points)
		totalPoints += float64(points)
	}

	streamScore := 0.0
	if totalPoints > 0 {
		streamScore = weighted / totalPoints
	}

	analysis.Gates = a.runGates(plan, iteration)
	passed := 0
	for _, g := range analysis.Gates {
		if g.Passed {
			passed++
		} else {
			analysis.RiskCount += len(g.Blockers)
		}
	}
	analysis.DeliversWorkingSoftware = passed == len(analysis.Gates)
	gateScore := float64(passed) / float64(len(analysis.Gates))

	// Risk penalty saturates: a handful of blockers hurts, dozens do not
	// drive the score below zero.
	riskPenalty := float64(analysis.RiskCount) * 0.05
	if riskPenalty > 0.3 {
		riskPenalty = 0.3
	}

	score := 0.5*streamScore + 0.5*gateScore - riskPenalty
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	analysis.Score = score
	return analysis
}

// AnalyzePlan analyzes every iteration and returns the results in
// iteration order.
func (a *Analyzer) AnalyzePlan(plan *types.ARTPlan) []*Analysis {
	out := make([]*Analysis, 0, len(plan.Iterations))
	for i := range plan.Iterations {
		out = append(out, a.AnalyzeIteration(plan, &plan.Iterations[i]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IterationIndex < out[j].IterationIndex })
	return out
}

// PlanScore is the mean iteration score, the plan-level value delivery
// number consumed by the optimizer.
func PlanScore(analyses []*Analysis) float64 {
	if len(analyses) == 0 {
		return 0
	}
	var sum float64
	for _, a := range analyses {
		sum += a.Score
	}
	return sum / float64(len(analyses))
}
