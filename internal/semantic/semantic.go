// Package semantic is the optional LLM-backed dependency detection pass.
// It is wired in only when an API key is configured; the built-in keyword
// and business-cue passes never depend on it, so planning stays
// deterministic by default.
package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/depgraph"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

const defaultModel = "claude-sonnet-4-5-20250929"

// Detector proposes dependency edges by asking a model to read item
// titles and descriptions. Implements depgraph.Detector.
type Detector struct {
	client *anthropic.Client
	model  string
}

// NewDetector creates the LLM pass. The API key is required; callers
// should skip construction entirely when no key is configured.
func NewDetector(apiKey, model string) (*Detector, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("semantic detection requires an API key")
	}
	if model == "" {
		model = defaultModel
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Detector{client: &client, model: model}, nil
}

// Method implements depgraph.Detector.
func (d *Detector) Method() types.DetectionMethod {
	return types.MethodSemantic
}

// proposedEdge is the JSON shape the model is asked to produce.
type proposedEdge struct {
	SourceID   string  `json:"source_id"`
	TargetID   string  `json:"target_id"`
	Kind       string  `json:"kind"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// Detect implements depgraph.Detector.
func (d *Detector) Detect(ctx context.Context, items []types.WorkItem) ([]depgraph.Candidate, error) {
	if len(items) < 2 {
		return nil, nil
	}

	prompt := buildPrompt(items)
	resp, err := d.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(d.model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic detection call failed: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	edges, err := parseEdges(text)
	if err != nil {
		return nil, fmt.Errorf("parsing semantic detection response: %w", err)
	}

	known := make(map[string]bool, len(items))
	for _, item := range items {
		known[item.ID] = true
	}

	candidates := make([]depgraph.Candidate, 0, len(edges))
	for _, e := range edges {
		if !known[e.SourceID] || !known[e.TargetID] || e.SourceID == e.TargetID {
			continue
		}
		kind := types.KindRelated
		if e.Kind == string(types.KindBlocks) {
			kind = types.KindBlocks
		}
		if e.Confidence < 0 {
			e.Confidence = 0
		}
		if e.Confidence > 1 {
			e.Confidence = 1
		}
		candidates = append(candidates, depgraph.Candidate{
			SourceID:   e.SourceID,
			TargetID:   e.TargetID,
			Kind:       kind,
			Method:     types.MethodSemantic,
			Confidence: e.Confidence,
			Rationale:  e.Rationale,
		})
	}
	return candidates, nil
}

func buildPrompt(items []types.WorkItem) string {
	var b strings.Builder
	b.WriteString(`Identify dependencies between these work items. For each dependency,
output kind "blocks" when one item must be done before another, or
"related" when items touch the same area without ordering.

Respond with ONLY a JSON array, no prose:
[{"source_id": "...", "target_id": "...", "kind": "blocks", "confidence": 0.8, "rationale": "..."}]

For blocks edges, source_id is the item that must finish first.
Confidence is 0-1. Omit pairs with no meaningful relationship.

Work items:
`)
	for _, item := range items {
		fmt.Fprintf(&b, "- %s: %s", item.ID, item.Title)
		if item.Description != "" {
			fmt.Fprintf(&b, " - %s", item.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// parseEdges tolerates markdown fences and prose around the JSON array.
func parseEdges(text string) ([]proposedEdge, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var edges []proposedEdge
	if err := json.Unmarshal([]byte(text[start:end+1]), &edges); err != nil {
		return nil, err
	}
	return edges, nil
}
