package types

import "fmt"

// DependencyRelationship is a directed edge between two work items.
// When Kind is KindBlocks, SourceID must be sequenced before TargetID.
// Edges are owned by the dependency graph; work items hold no back-pointers.
type DependencyRelationship struct {
	SourceID        string          `json:"source_id"`
	TargetID        string          `json:"target_id"`
	Kind            DependencyKind  `json:"kind"`
	Strength        Strength        `json:"strength"`
	DetectionMethod DetectionMethod `json:"detection_method"`
	Rationale       string          `json:"rationale,omitempty"`
	Confidence      float64         `json:"confidence"`
}

// Validate checks if the relationship has valid field values.
func (d *DependencyRelationship) Validate() error {
	if d.SourceID == "" || d.TargetID == "" {
		return fmt.Errorf("source_id and target_id are required")
	}
	if d.SourceID == d.TargetID {
		return fmt.Errorf("self-dependency not allowed: %s", d.SourceID)
	}
	if !d.Kind.IsValid() {
		return fmt.Errorf("invalid dependency kind: %s", d.Kind)
	}
	if !d.Strength.IsValid() {
		return fmt.Errorf("invalid strength: %s", d.Strength)
	}
	if !d.DetectionMethod.IsValid() {
		return fmt.Errorf("invalid detection method: %s", d.DetectionMethod)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1 (got %.2f)", d.Confidence)
	}
	return nil
}

// DependencyKind categorizes the relationship between items.
type DependencyKind string

const (
	// KindBlocks indicates the source must complete before the target starts.
	KindBlocks DependencyKind = "blocks"
	// KindBlockedBy is the inverse of KindBlocks, as reported by the tracker.
	KindBlockedBy DependencyKind = "blocked_by"
	// KindRelated indicates an advisory relationship with no ordering.
	KindRelated DependencyKind = "related"
)

// IsValid checks if the dependency kind value is valid.
func (k DependencyKind) IsValid() bool {
	switch k {
	case KindBlocks, KindBlockedBy, KindRelated:
		return true
	}
	return false
}

// Strength indicates whether an edge is enforced during allocation.
type Strength string

const (
	// StrengthHard edges must be sequenced and participate in cycle checks.
	StrengthHard Strength = "hard"
	// StrengthSoft edges are advisory and excluded from critical-path math.
	StrengthSoft Strength = "soft"
)

// IsValid checks if the strength value is valid.
func (s Strength) IsValid() bool {
	return s == StrengthHard || s == StrengthSoft
}

// DetectionMethod records how an edge was discovered.
type DetectionMethod string

const (
	MethodKeyword  DetectionMethod = "keyword"
	MethodSemantic DetectionMethod = "semantic"
	MethodManual   DetectionMethod = "manual"
)

// IsValid checks if the detection method value is valid.
func (m DetectionMethod) IsValid() bool {
	switch m {
	case MethodKeyword, MethodSemantic, MethodManual:
		return true
	}
	return false
}
