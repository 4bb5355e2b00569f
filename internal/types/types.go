package types

import (
	"fmt"
	"strings"
	"time"
)

// MaxStoryPoints is the largest estimate an allocatable story may carry.
// Anything larger must be decomposed before it reaches the allocator.
const MaxStoryPoints = 5

// WorkItem represents a trackable unit of work read from the tracker.
type WorkItem struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	StoryPoints        int        `json:"story_points"`
	Type               ItemType   `json:"type"`
	AcceptanceCriteria []string   `json:"acceptance_criteria,omitempty"`
	ParentID           string     `json:"parent_id,omitempty"` // weak reference to a containing epic/feature
	TeamID             string     `json:"team_id"`
	Priority           int        `json:"priority"` // 0 (most urgent) to 4
	Status             ItemStatus `json:"status"`
	Labels             []string   `json:"labels,omitempty"`
	RollbackNote       string     `json:"rollback_note,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Validate checks if the work item has valid field values.
func (w *WorkItem) Validate() error {
	if strings.TrimSpace(w.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if len(w.Title) == 0 {
		return fmt.Errorf("title is required")
	}
	if len(w.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(w.Title))
	}
	if w.StoryPoints < 0 {
		return fmt.Errorf("story_points cannot be negative (got %d)", w.StoryPoints)
	}
	if w.Priority < 0 || w.Priority > 4 {
		return fmt.Errorf("priority must be between 0 and 4 (got %d)", w.Priority)
	}
	if !w.Type.IsValid() {
		return fmt.Errorf("invalid item type: %s", w.Type)
	}
	if !w.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", w.Status)
	}
	return nil
}

// NeedsDecomposition reports whether the item is too large to allocate as-is.
func (w *WorkItem) NeedsDecomposition() bool {
	return w.Type == TypeStory && w.StoryPoints > MaxStoryPoints
}

// EffectivePoints returns the item's weight for progress and capacity math.
// Zero-point items count as one point so they are never invisible to the
// allocator or progress reporting.
func (w *WorkItem) EffectivePoints() int {
	if w.StoryPoints == 0 {
		return 1
	}
	return w.StoryPoints
}

// HasLabel reports whether the item carries the given label.
func (w *WorkItem) HasLabel(label string) bool {
	for _, l := range w.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// ItemType categorizes the kind of work.
type ItemType string

const (
	TypeStory   ItemType = "story"
	TypeFeature ItemType = "feature"
	TypeEpic    ItemType = "epic"
	TypeEnabler ItemType = "enabler"
)

// IsValid checks if the item type value is valid.
func (t ItemType) IsValid() bool {
	switch t {
	case TypeStory, TypeFeature, TypeEpic, TypeEnabler:
		return true
	}
	return false
}

// ItemStatus represents the tracker state of a work item.
type ItemStatus string

const (
	StatusTodo       ItemStatus = "todo"
	StatusInProgress ItemStatus = "in_progress"
	StatusIncomplete ItemStatus = "incomplete"
	StatusDone       ItemStatus = "done"
)

// IsValid checks if the status value is valid.
func (s ItemStatus) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusIncomplete, StatusDone:
		return true
	}
	return false
}

// Team represents an ART team with its delivery capacity characteristics.
type Team struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	MemberCount     int     `json:"member_count"`
	AverageVelocity float64 `json:"average_velocity"` // points per iteration
	CapacityFactor  float64 `json:"capacity_factor"`  // 0-1, accounts for holidays/leave
}

// Validate checks if the team has valid field values.
func (t *Team) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("team id is required")
	}
	if t.MemberCount < 0 {
		return fmt.Errorf("member_count cannot be negative (got %d)", t.MemberCount)
	}
	if t.AverageVelocity < 0 {
		return fmt.Errorf("average_velocity cannot be negative (got %.2f)", t.AverageVelocity)
	}
	if t.CapacityFactor < 0 || t.CapacityFactor > 1 {
		return fmt.Errorf("capacity_factor must be between 0 and 1 (got %.2f)", t.CapacityFactor)
	}
	return nil
}

// IterationCapacity returns the points the team can absorb in one iteration.
func (t *Team) IterationCapacity() float64 {
	return t.AverageVelocity * t.CapacityFactor
}

// ProgramIncrement is the multi-iteration planning horizon being planned.
type ProgramIncrement struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	StartDate           time.Time `json:"start_date"`
	EndDate             time.Time `json:"end_date"`
	IterationLengthDays int       `json:"iteration_length_days"`
}

// Validate checks if the program increment has valid field values.
func (p *ProgramIncrement) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("pi id is required")
	}
	if !p.EndDate.After(p.StartDate) {
		return fmt.Errorf("end_date must be after start_date")
	}
	if p.IterationLengthDays <= 0 {
		return fmt.Errorf("iteration_length_days must be positive (got %d)", p.IterationLengthDays)
	}
	return nil
}

// IterationCount returns how many full iterations fit in the PI window.
func (p *ProgramIncrement) IterationCount() int {
	days := int(p.EndDate.Sub(p.StartDate).Hours() / 24)
	return days / p.IterationLengthDays
}

// IterationWindow returns the start and end date of the zero-based iteration.
func (p *ProgramIncrement) IterationWindow(index int) (time.Time, time.Time) {
	start := p.StartDate.AddDate(0, 0, index*p.IterationLengthDays)
	end := start.AddDate(0, 0, p.IterationLengthDays)
	return start, end
}
