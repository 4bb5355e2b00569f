package depgraph

import (
	"context"
	"fmt"
	"strings"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

// sequentialCues are phrases that signal one item must precede another.
var sequentialCues = []string{
	"depends on",
	"blocked by",
	"requires",
	"after",
	"needs",
}

// CueDetector proposes blocks-edges from sequential language in item
// descriptions ("requires X", "after X", "depends on X") and related-edges
// from shared user-flow references.
//
// Reference resolution is deterministic: an explicit item id mention is the
// strongest signal; otherwise a sentence containing a cue must include at
// least two significant words of another item's title.
type CueDetector struct{}

// Method returns the detection method identifier. Sequential-language
// analysis counts as the semantic pass; manual is reserved for links a
// human entered in the tracker.
func (d *CueDetector) Method() types.DetectionMethod {
	return types.MethodSemantic
}

// Detect scans each item's description sentence by sentence.
func (d *CueDetector) Detect(ctx context.Context, items []types.WorkItem) ([]Candidate, error) {
	var candidates []Candidate
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, sentence := range splitSentences(item.Description) {
			lower := strings.ToLower(sentence)
			cue := matchCue(lower)
			if cue == "" {
				continue
			}
			for j, other := range items {
				if i == j {
					continue
				}
				confidence, rationale := d.resolveReference(lower, cue, other)
				if confidence == 0 {
					continue
				}
				// The referenced item blocks the one whose text carries
				// the cue.
				candidates = append(candidates, Candidate{
					SourceID:   other.ID,
					TargetID:   item.ID,
					Kind:       types.KindBlocks,
					Method:     types.MethodSemantic,
					Confidence: confidence,
					Rationale:  rationale,
				})
			}
		}

		// Shared user-flow references are advisory, not sequencing.
		flows := flowReferences(item)
		if len(flows) == 0 {
			continue
		}
		for j, other := range items {
			if j <= i {
				continue
			}
			shared := intersect(flows, flowReferences(other))
			if len(shared) == 0 {
				continue
			}
			a, b := item.ID, other.ID
			if b < a {
				a, b = b, a
			}
			candidates = append(candidates, Candidate{
				SourceID:   a,
				TargetID:   b,
				Kind:       types.KindRelated,
				Method:     types.MethodSemantic,
				Confidence: 0.5,
				Rationale:  fmt.Sprintf("shared user flow: %s", strings.Join(shared, ", ")),
			})
		}
	}
	return candidates, nil
}

// resolveReference decides whether the sentence refers to the other item.
func (d *CueDetector) resolveReference(sentence, cue string, other types.WorkItem) (float64, string) {
	if strings.Contains(sentence, strings.ToLower(other.ID)) {
		return 0.9, fmt.Sprintf("%q references %s by id", cue, other.ID)
	}
	words := significantTitleWords(other.Title)
	if len(words) < 2 {
		return 0, ""
	}
	matched := 0
	for _, w := range words {
		if strings.Contains(sentence, w) {
			matched++
		}
	}
	if matched >= 2 {
		return 0.6, fmt.Sprintf("%q references %s by title", cue, other.ID)
	}
	return 0, ""
}

func matchCue(sentence string) string {
	for _, cue := range sequentialCues {
		if strings.Contains(sentence, cue) {
			return cue
		}
	}
	return ""
}

// splitSentences breaks text on sentence-ending punctuation and newlines.
func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// stopWords are too common in item titles to resolve references.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "to": true, "for": true,
	"of": true, "in": true, "on": true, "and": true, "with": true,
	"add": true, "fix": true, "update": true, "implement": true,
	"create": true, "support": true, "new": true, "part": true,
}

func significantTitleWords(title string) []string {
	var out []string
	for _, token := range tokenize(title) {
		if len(token) < 3 || stopWords[token] {
			continue
		}
		out = append(out, token)
	}
	return out
}

// flowReferences extracts named user flows ("the checkout flow", "signup
// journey") from an item's text.
func flowReferences(item types.WorkItem) map[string]bool {
	out := make(map[string]bool)
	tokens := tokenize(item.Title + " " + item.Description)
	for i, token := range tokens {
		if token != "flow" && token != "journey" {
			continue
		}
		// The flow name is the token preceding "flow"/"journey".
		if i > 0 && !stopWords[tokens[i-1]] && len(tokens[i-1]) >= 3 {
			out[tokens[i-1]] = true
		}
	}
	return out
}
