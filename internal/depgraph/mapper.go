package depgraph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

// Candidate is a scored edge proposed by one detection pass. Candidates
// with Kind blocks are directed (source blocks target); related candidates
// carry canonical orientation (lower id first) so passes agree on pairs.
type Candidate struct {
	SourceID   string
	TargetID   string
	Kind       types.DependencyKind
	Method     types.DetectionMethod
	Confidence float64
	Rationale  string
}

// Detector is one independent detection pass over the item snapshot.
type Detector interface {
	// Method labels the pass's candidates on the stored edge.
	Method() types.DetectionMethod
	// Detect proposes scored candidate edges. Must be deterministic for a
	// given input snapshot.
	Detect(ctx context.Context, items []types.WorkItem) ([]Candidate, error)
}

// Mapper unions candidates from its detection passes into a graph.
type Mapper struct {
	minConfidence float64
	detectors     []Detector
}

// NewMapper creates a mapper with the built-in keyword and business-cue
// passes plus any extra detectors (e.g. the semantic pass).
func NewMapper(minConfidence float64, extra ...Detector) *Mapper {
	detectors := []Detector{
		&KeywordDetector{},
		&CueDetector{},
	}
	detectors = append(detectors, extra...)
	return &Mapper{minConfidence: minConfidence, detectors: detectors}
}

// MapDependencies runs every detection pass over the snapshot and unions
// the surviving candidates into a graph. Edges seen by at least two
// independent passes become hard; all others are soft. Passes are counted
// individually even when they share a method label, so cue and LLM
// agreement still promotes an edge. The result is deterministic for a
// given snapshot as long as every detector is.
func (m *Mapper) MapDependencies(ctx context.Context, items []types.WorkItem) (*Graph, error) {
	graph := NewGraph(items)

	type pairState struct {
		sourceID, targetID string // directed orientation, if any pass supplied one
		directed           bool
		kind               types.DependencyKind
		passes             map[int]bool // detector indexes that proposed the pair
		confidence         float64
		bestMethod         types.DetectionMethod
		rationales         []string
	}

	pairs := make(map[edgeKey]*pairState)
	pairKey := func(a, b string) edgeKey {
		if a < b {
			return edgeKey{a, b}
		}
		return edgeKey{b, a}
	}

	for di, detector := range m.detectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidates, err := detector.Detect(ctx, items)
		if err != nil {
			return nil, fmt.Errorf("%s detection pass: %w", detector.Method(), err)
		}
		for _, c := range candidates {
			if c.SourceID == c.TargetID {
				continue
			}
			key := pairKey(c.SourceID, c.TargetID)
			state, ok := pairs[key]
			if !ok {
				state = &pairState{
					sourceID: key.source,
					targetID: key.target,
					kind:     types.KindRelated,
					passes:   make(map[int]bool),
				}
				pairs[key] = state
			}
			state.passes[di] = true
			if c.Confidence > state.confidence {
				state.confidence = c.Confidence
				state.bestMethod = c.Method
			}
			// A blocks-candidate fixes the pair's direction; related
			// candidates only reinforce confidence.
			if c.Kind == types.KindBlocks {
				state.kind = types.KindBlocks
				state.sourceID = c.SourceID
				state.targetID = c.TargetID
				state.directed = true
			}
			if c.Rationale != "" {
				state.rationales = append(state.rationales, c.Rationale)
			}
		}
	}

	keys := make([]edgeKey, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].source != keys[j].source {
			return keys[i].source < keys[j].source
		}
		return keys[i].target < keys[j].target
	})

	for _, key := range keys {
		state := pairs[key]
		if state.confidence < m.minConfidence {
			continue
		}
		strength := types.StrengthSoft
		if len(state.passes) >= 2 {
			strength = types.StrengthHard
		}
		sort.Strings(state.rationales)
		rel := types.DependencyRelationship{
			SourceID:        state.sourceID,
			TargetID:        state.targetID,
			Kind:            state.kind,
			Strength:        strength,
			DetectionMethod: state.bestMethod,
			Rationale:       strings.Join(dedupe(state.rationales), "; "),
			Confidence:      state.confidence,
		}
		if err := graph.AddEdge(rel); err != nil {
			return nil, fmt.Errorf("adding edge %s→%s: %w", rel.SourceID, rel.TargetID, err)
		}
	}

	return graph, nil
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	var last string
	for _, s := range sorted {
		if s != last {
			out = append(out, s)
			last = s
		}
	}
	return out
}
