// Package events defines the structured events a planning pass emits:
// step-based progress between pipeline stages and summary events for the
// notification sink. Progress carries steps and item counts only;
// consumers derive wall-clock estimates themselves if they want an ETA.
package events

import "time"

// Type identifies the kind of planning event.
type Type string

const (
	// TypeStageStarted indicates a pipeline stage began.
	TypeStageStarted Type = "stage_started"
	// TypeStageCompleted indicates a pipeline stage finished.
	TypeStageCompleted Type = "stage_completed"
	// TypeItemsProcessed is an incremental tick inside a long stage.
	TypeItemsProcessed Type = "items_processed"
	// TypePlanCommitted indicates a plan was written back to the tracker.
	TypePlanCommitted Type = "plan_committed"
	// TypeReadinessBelowThreshold indicates the readiness score fell under
	// the configured threshold.
	TypeReadinessBelowThreshold Type = "readiness_below_threshold"
	// TypeOptimizationSuggestions carries ranked improvement actions.
	TypeOptimizationSuggestions Type = "optimization_suggestions"
)

// Stage identifies a pipeline stage for progress reporting.
type Stage string

const (
	StageFetch     Stage = "fetch_backlog"
	StageDecompose Stage = "decompose"
	StageMapDeps   Stage = "map_dependencies"
	StageAllocate  Stage = "allocate"
	StageValidate  Stage = "validate_value"
	StageOptimize  Stage = "optimize"
	StagePersist   Stage = "persist"
)

// Event is one planning event. Fields beyond Type are populated per kind.
type Event struct {
	Type       Type      `json:"type"`
	PIID       string    `json:"pi_id"`
	TeamID     string    `json:"team_id"`
	Stage      Stage     `json:"stage,omitempty"`
	Step       int       `json:"step,omitempty"` // 1-based stage index
	TotalSteps int       `json:"total_steps,omitempty"`
	Processed  int       `json:"processed,omitempty"` // items done within the stage
	Total      int       `json:"total,omitempty"`     // items in the stage
	Message    string    `json:"message,omitempty"`
	Readiness  float64   `json:"readiness,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Listener receives planning events. Implementations must be fast or
// buffer internally; the pipeline calls them synchronously between stages.
type Listener interface {
	Handle(event Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Event)

// Handle calls the function.
func (f ListenerFunc) Handle(event Event) { f(event) }

// NopListener discards all events.
type NopListener struct{}

// Handle discards the event.
func (NopListener) Handle(Event) {}

// StageStarted builds a stage-started progress event.
func StageStarted(piID, teamID string, stage Stage, step, totalSteps int) Event {
	return Event{
		Type:       TypeStageStarted,
		PIID:       piID,
		TeamID:     teamID,
		Stage:      stage,
		Step:       step,
		TotalSteps: totalSteps,
		Timestamp:  time.Now(),
	}
}

// StageCompleted builds a stage-completed progress event.
func StageCompleted(piID, teamID string, stage Stage, step, totalSteps int) Event {
	return Event{
		Type:       TypeStageCompleted,
		PIID:       piID,
		TeamID:     teamID,
		Stage:      stage,
		Step:       step,
		TotalSteps: totalSteps,
		Timestamp:  time.Now(),
	}
}

// ItemsProcessed builds an incremental progress tick.
func ItemsProcessed(piID, teamID string, stage Stage, processed, total int) Event {
	return Event{
		Type:      TypeItemsProcessed,
		PIID:      piID,
		TeamID:    teamID,
		Stage:     stage,
		Processed: processed,
		Total:     total,
		Timestamp: time.Now(),
	}
}

// PlanCommitted builds the commit summary event.
func PlanCommitted(piID, teamID string, readiness float64) Event {
	return Event{
		Type:      TypePlanCommitted,
		PIID:      piID,
		TeamID:    teamID,
		Readiness: readiness,
		Timestamp: time.Now(),
	}
}

// ReadinessBelowThreshold builds the low-readiness summary event.
func ReadinessBelowThreshold(piID, teamID string, readiness float64, message string) Event {
	return Event{
		Type:      TypeReadinessBelowThreshold,
		PIID:      piID,
		TeamID:    teamID,
		Readiness: readiness,
		Message:   message,
		Timestamp: time.Now(),
	}
}
