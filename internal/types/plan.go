package types

import (
	"fmt"
	"time"
)

// PlanStatus represents the lifecycle state of an ART plan.
type PlanStatus string

const (
	// PlanStatusDraft is the initial state when a plan is first created.
	PlanStatusDraft PlanStatus = "draft"

	// PlanStatusAllocated indicates items have been assigned to iterations.
	PlanStatusAllocated PlanStatus = "allocated"

	// PlanStatusValidated indicates value-delivery analysis has run.
	PlanStatusValidated PlanStatus = "validated"

	// PlanStatusOptimized indicates readiness scoring has run.
	PlanStatusOptimized PlanStatus = "optimized"

	// PlanStatusCommitted indicates the plan was written back to the tracker.
	// Committed plans are immutable.
	PlanStatusCommitted PlanStatus = "committed"
)

// IsValid checks if the plan status value is valid.
func (s PlanStatus) IsValid() bool {
	switch s {
	case PlanStatusDraft, PlanStatusAllocated, PlanStatusValidated,
		PlanStatusOptimized, PlanStatusCommitted:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving to the next status is legal.
// Transitions are one-directional except optimized → allocated, which is
// the bounded re-allocation loop.
func (s PlanStatus) CanTransitionTo(next PlanStatus) bool {
	switch s {
	case PlanStatusDraft:
		return next == PlanStatusAllocated
	case PlanStatusAllocated:
		return next == PlanStatusValidated
	case PlanStatusValidated:
		return next == PlanStatusOptimized
	case PlanStatusOptimized:
		return next == PlanStatusAllocated || next == PlanStatusCommitted
	case PlanStatusCommitted:
		return false
	}
	return false
}

// ErrInvalidTransition is returned when a plan status change is not legal.
type ErrInvalidTransition struct {
	From PlanStatus
	To   PlanStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid plan transition: %s → %s", e.From, e.To)
}

// AllocatedWorkItem is a work item placed into an iteration.
type AllocatedWorkItem struct {
	ItemID         string  `json:"item_id"`
	IterationIndex int     `json:"iteration_index"`
	StoryPoints    int     `json:"story_points"`
	TeamID         string  `json:"team_id"`
	// Confidence reflects how well dependency and capacity constraints
	// were satisfied for this placement, 0-1.
	Confidence float64 `json:"confidence"`
}

// IterationPlan is one time-boxed iteration with its allocated items.
type IterationPlan struct {
	Index           int                 `json:"index"`
	StartDate       time.Time           `json:"start_date"`
	EndDate         time.Time           `json:"end_date"`
	AllocatedItems  []AllocatedWorkItem `json:"allocated_items"`
	TotalCapacity   float64             `json:"total_capacity"`
	AllocatedPoints int                 `json:"allocated_points"`
}

// Utilization returns allocated points as a fraction of total capacity.
func (p *IterationPlan) Utilization() float64 {
	if p.TotalCapacity <= 0 {
		return 0
	}
	return float64(p.AllocatedPoints) / p.TotalCapacity
}

// ContainsItem reports whether the iteration holds the given item.
func (p *IterationPlan) ContainsItem(itemID string) bool {
	for _, a := range p.AllocatedItems {
		if a.ItemID == itemID {
			return true
		}
	}
	return false
}

// ARTPlan is the root aggregate for one planning pass: the iteration
// sequence, the dependency snapshot, and summary scores. One plan exists
// per (PI, team) pair; re-planning supersedes the previous plan.
type ARTPlan struct {
	PIID       string          `json:"pi_id"`
	TeamID     string          `json:"team_id"`
	Status     PlanStatus      `json:"status"`
	Iterations []IterationPlan `json:"iterations"`

	// Dependency snapshot, owned by the plan once allocation completes.
	Nodes []string                 `json:"nodes"`
	Edges []DependencyRelationship `json:"edges"`

	// Items is the post-decomposition backlog snapshot the plan was built
	// from, keyed lookups happen through ItemByID.
	Items []WorkItem `json:"items"`

	// UnplacedItems lists items that could not fit within the iteration
	// count. Non-empty only when allocation reported over-allocation.
	UnplacedItems []string `json:"unplaced_items,omitempty"`

	ReadinessScore      float64 `json:"readiness_score"`
	ValueDeliveryScore  float64 `json:"value_delivery_score"`
	CapacityUtilization float64 `json:"capacity_utilization"`

	OptimizationPasses int       `json:"optimization_passes"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Transition moves the plan to the next lifecycle state.
func (p *ARTPlan) Transition(next PlanStatus) error {
	if !p.Status.CanTransitionTo(next) {
		return &ErrInvalidTransition{From: p.Status, To: next}
	}
	p.Status = next
	p.UpdatedAt = time.Now()
	return nil
}

// ItemByID returns the snapshot work item with the given id, or nil.
func (p *ARTPlan) ItemByID(id string) *WorkItem {
	for i := range p.Items {
		if p.Items[i].ID == id {
			return &p.Items[i]
		}
	}
	return nil
}

// IterationOf returns the iteration index holding the item, or -1.
func (p *ARTPlan) IterationOf(itemID string) int {
	for _, it := range p.Iterations {
		if it.ContainsItem(itemID) {
			return it.Index
		}
	}
	return -1
}

// AverageUtilization returns the mean utilization across iterations.
func (p *ARTPlan) AverageUtilization() float64 {
	if len(p.Iterations) == 0 {
		return 0
	}
	var sum float64
	for i := range p.Iterations {
		sum += p.Iterations[i].Utilization()
	}
	return sum / float64(len(p.Iterations))
}
