// Package storage defines the persistence interface for ART plans.
// One plan row exists per (PI, team) pair; saving again supersedes the
// previous plan for that pair.
package storage

import (
	"context"
	"fmt"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

// PlanSummary is the listing row for a stored plan.
type PlanSummary struct {
	PIID           string
	TeamID         string
	Status         types.PlanStatus
	ReadinessScore float64
	UpdatedAt      string
}

// Storage persists plans and planner configuration.
type Storage interface {
	// SavePlan stores the plan, superseding any previous plan for the
	// same (PI, team) pair.
	SavePlan(ctx context.Context, plan *types.ARTPlan) error

	// GetPlan retrieves the plan for a (PI, team) pair. Returns nil with
	// no error when none exists.
	GetPlan(ctx context.Context, piID, teamID string) (*types.ARTPlan, error)

	// ListPlans returns summaries for every stored plan, newest first.
	ListPlans(ctx context.Context) ([]PlanSummary, error)

	// DeletePlan removes the plan for a (PI, team) pair.
	DeletePlan(ctx context.Context, piID, teamID string) error

	// GetConfig and SetConfig store planner key-value settings.
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error

	// Close releases the underlying resources.
	Close() error
}

// ErrPlanNotFound reports a missing plan for operations that require one.
type ErrPlanNotFound struct {
	PIID   string
	TeamID string
}

func (e *ErrPlanNotFound) Error() string {
	return fmt.Sprintf("no plan stored for PI %s team %s", e.PIID, e.TeamID)
}
