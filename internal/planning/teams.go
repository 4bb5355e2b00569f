package planning

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// PlanTeams runs a planning pass for every team concurrently. Teams are
// independent during a pass; the tracker client's shared rate budget
// keeps the combined request load bounded. The first failure cancels the
// remaining passes.
func (c *Coordinator) PlanTeams(ctx context.Context, piID string, teamIDs []string) (map[string]*PassResult, error) {
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	results := make(map[string]*PassResult, len(teamIDs))

	for _, teamID := range teamIDs {
		teamID := teamID
		g.Go(func() error {
			result, err := c.RunPass(ctx, piID, teamID)
			if err != nil {
				return err
			}
			mu.Lock()
			results[teamID] = result
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
