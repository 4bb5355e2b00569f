package depgraph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

// technicalVocabulary are tokens that reference components, APIs, and data
// stores. Items sharing several of these are likely to touch the same part
// of the system.
var technicalVocabulary = map[string]bool{
	"api": true, "endpoint": true, "service": true, "database": true,
	"schema": true, "migration": true, "table": true, "index": true,
	"cache": true, "queue": true, "topic": true, "webhook": true,
	"auth": true, "authentication": true, "authorization": true,
	"login": true, "session": true, "token": true, "oauth": true,
	"payment": true, "checkout": true, "billing": true, "invoice": true,
	"gateway": true, "proxy": true, "pipeline": true, "deploy": true,
	"deployment": true, "infra": true, "infrastructure": true,
	"frontend": true, "backend": true, "ui": true, "cli": true,
	"config": true, "configuration": true, "search": true, "report": true,
	"notification": true, "email": true, "export": true, "import": true,
}

// KeywordDetector proposes related-edges between items that share
// technical keywords referencing the same components, APIs, or data
// stores. Output is undirected: candidates carry canonical orientation.
type KeywordDetector struct{}

// Method returns the detection method identifier.
func (d *KeywordDetector) Method() types.DetectionMethod {
	return types.MethodKeyword
}

// Detect compares every item pair's technical keyword sets. Confidence is
// the overlap relative to the smaller set, so two items about the same
// narrow component score high even when one has a long description.
func (d *KeywordDetector) Detect(ctx context.Context, items []types.WorkItem) ([]Candidate, error) {
	keywords := make([]map[string]bool, len(items))
	for i, item := range items {
		keywords[i] = technicalKeywords(item)
	}

	var candidates []Candidate
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			shared := intersect(keywords[i], keywords[j])
			if len(shared) < 2 {
				continue
			}
			smaller := len(keywords[i])
			if len(keywords[j]) < smaller {
				smaller = len(keywords[j])
			}
			confidence := float64(len(shared)) / float64(smaller)
			if confidence > 1 {
				confidence = 1
			}
			a, b := items[i].ID, items[j].ID
			if b < a {
				a, b = b, a
			}
			candidates = append(candidates, Candidate{
				SourceID:   a,
				TargetID:   b,
				Kind:       types.KindRelated,
				Method:     types.MethodKeyword,
				Confidence: confidence,
				Rationale:  fmt.Sprintf("shared technical keywords: %s", strings.Join(shared, ", ")),
			})
		}
	}
	return candidates, nil
}

// technicalKeywords extracts the technical vocabulary tokens present in an
// item's title and description.
func technicalKeywords(item types.WorkItem) map[string]bool {
	out := make(map[string]bool)
	for _, token := range tokenize(item.Title + " " + item.Description) {
		if technicalVocabulary[token] {
			out[token] = true
		}
	}
	return out
}

// tokenize lowercases and splits text on non-alphanumeric runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func intersect(a, b map[string]bool) []string {
	var shared []string
	for k := range a {
		if b[k] {
			shared = append(shared, k)
		}
	}
	sort.Strings(shared)
	return shared
}
