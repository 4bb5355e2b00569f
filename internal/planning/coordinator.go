// Package planning orchestrates a full planning pass: fetch the backlog,
// decompose oversized stories, map dependencies, allocate iterations,
// validate value delivery, optimize readiness, and persist the result.
// The pass is a pipeline over immutable stage outputs; the plan status
// machine enforces stage order and committed plans are never mutated.
package planning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/allocate"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/config"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/decompose"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/depgraph"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/events"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/linear"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/optimize"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/storage"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/value"
)

// totalStages is the pipeline length for step-based progress events.
const totalStages = 7

// progressEvery is the item-count interval for incremental progress ticks
// inside long stages.
const progressEvery = 25

// PassResult is the outcome of one planning pass.
type PassResult struct {
	Plan      *types.ARTPlan
	Optimized *optimize.OptimizedPlan
	// InvalidItems holds backlog payloads that failed normalization. The
	// pass continues without them; they are reported, not dropped silently.
	InvalidItems []error
}

// Coordinator runs planning passes over one tracker, store, and listener.
type Coordinator struct {
	cfg       *config.Config
	tracker   linear.Tracker
	store     storage.Storage
	listener  events.Listener
	engine    *decompose.Engine
	mapper    *depgraph.Mapper
	allocator *allocate.Allocator
	optimizer *optimize.Optimizer
}

// NewCoordinator wires a coordinator from configuration. Extra detectors
// (e.g. the LLM-backed pass) join the built-in detection passes.
func NewCoordinator(cfg *config.Config, tracker linear.Tracker, store storage.Storage, listener events.Listener, extra ...depgraph.Detector) *Coordinator {
	if cfg == nil {
		cfg = config.Default()
	}
	if listener == nil {
		listener = events.NopListener{}
	}
	return &Coordinator{
		cfg:       cfg,
		tracker:   tracker,
		store:     store,
		listener:  listener,
		engine:    decompose.NewEngine(cfg.Decomposition.MaxStoryPoints, cfg.Decomposition.MaxChildren),
		mapper:    depgraph.NewMapper(cfg.Dependencies.MinConfidence, extra...),
		allocator: allocate.NewAllocator(cfg.Allocation.MaxUtilization, cfg.Allocation.BufferFraction),
		optimizer: optimize.NewOptimizer(cfg.Optimization.TargetUtilizationLow, cfg.Optimization.TargetUtilizationHigh),
	}
}

// RunPass executes the full pipeline for one (PI, team) pair and persists
// the optimized plan. The committed write-back to the tracker is a
// separate step; see Commit.
func (c *Coordinator) RunPass(ctx context.Context, piID, teamID string) (*PassResult, error) {
	// Stage 1: fetch.
	c.listener.Handle(events.StageStarted(piID, teamID, events.StageFetch, 1, totalStages))
	pi, team, backlog, invalid, err := c.fetch(ctx, piID, teamID)
	if err != nil {
		return nil, err
	}
	c.listener.Handle(events.StageCompleted(piID, teamID, events.StageFetch, 1, totalStages))

	// Stage 2: decompose oversized stories and write children back.
	c.listener.Handle(events.StageStarted(piID, teamID, events.StageDecompose, 2, totalStages))
	items, err := c.decomposeStage(ctx, piID, teamID, backlog)
	if err != nil {
		return nil, err
	}
	c.listener.Handle(events.StageCompleted(piID, teamID, events.StageDecompose, 2, totalStages))

	// Stage 3: map dependencies, reject cycles, write relations back.
	c.listener.Handle(events.StageStarted(piID, teamID, events.StageMapDeps, 3, totalStages))
	graph, err := c.mapStage(ctx, piID, teamID, items)
	if err != nil {
		return nil, err
	}
	c.listener.Handle(events.StageCompleted(piID, teamID, events.StageMapDeps, 3, totalStages))

	// Stage 4: allocate.
	c.listener.Handle(events.StageStarted(piID, teamID, events.StageAllocate, 4, totalStages))
	plan, err := c.allocateStage(ctx, pi, team, items, graph)
	if err != nil {
		return nil, err
	}
	c.listener.Handle(events.StageCompleted(piID, teamID, events.StageAllocate, 4, totalStages))

	// Stage 5: validate value delivery.
	c.listener.Handle(events.StageStarted(piID, teamID, events.StageValidate, 5, totalStages))
	c.analyzeValue(plan)
	if err := plan.Transition(types.PlanStatusValidated); err != nil {
		return nil, err
	}
	c.listener.Handle(events.StageCompleted(piID, teamID, events.StageValidate, 5, totalStages))

	// Stage 6: optimize, applying safe moves and re-validating in a
	// bounded loop.
	c.listener.Handle(events.StageStarted(piID, teamID, events.StageOptimize, 6, totalStages))
	opt, err := c.optimizeStage(plan)
	if err != nil {
		return nil, err
	}
	c.listener.Handle(events.StageCompleted(piID, teamID, events.StageOptimize, 6, totalStages))

	// Stage 7: persist.
	c.listener.Handle(events.StageStarted(piID, teamID, events.StagePersist, 7, totalStages))
	if err := c.store.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("persisting plan: %w", err)
	}
	c.listener.Handle(events.StageCompleted(piID, teamID, events.StagePersist, 7, totalStages))

	c.notifyOutcome(piID, teamID, plan, opt)

	return &PassResult{Plan: plan, Optimized: opt, InvalidItems: invalid}, nil
}

// fetch reads PI, team, and backlog from the tracker. Finished items are
// excluded; payloads that failed normalization are reported alongside.
func (c *Coordinator) fetch(ctx context.Context, piID, teamID string) (*types.ProgramIncrement, *types.Team, []types.WorkItem, []error, error) {
	pi, err := c.tracker.GetProgramIncrement(ctx, piID)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("fetching program increment: %w", err)
	}
	team, err := c.tracker.GetTeam(ctx, teamID)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("fetching team: %w", err)
	}
	raw, invalid, err := c.tracker.ListBacklog(ctx, piID, teamID)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("fetching backlog: %w", err)
	}

	backlog := make([]types.WorkItem, 0, len(raw))
	for _, item := range raw {
		if item.Status == types.StatusDone {
			continue
		}
		backlog = append(backlog, item)
	}
	return pi, team, backlog, invalid, nil
}

// decomposeStage splits oversized stories and writes the children back to
// the tracker. Stories the engine cannot split within its limits get one
// retry through a coarse halving; anything still infeasible aborts the
// pass with the offending ids named.
func (c *Coordinator) decomposeStage(ctx context.Context, piID, teamID string, backlog []types.WorkItem) ([]types.WorkItem, error) {
	batch, err := c.engine.DecomposeBatch(ctx, backlog)
	if err != nil {
		return nil, err
	}

	retried, stillFailed := c.retryFailed(backlog, batch.Failed)
	if len(stillFailed) > 0 {
		return nil, fmt.Errorf("decomposition infeasible for: %s", strings.Join(stillFailed, ", "))
	}

	// Assemble the post-decomposition backlog, replacing parents that were
	// rescued by the halving retry.
	items := make([]types.WorkItem, 0, len(backlog))
	for _, item := range batch.Passthrough {
		if _, ok := retried[item.ID]; ok {
			continue
		}
		items = append(items, item)
	}
	for _, result := range batch.Results {
		items = append(items, result.Children...)
	}
	for _, children := range retried {
		items = append(items, children...)
	}

	// Write children back. Creation is idempotent by child id, so a pass
	// interrupted mid-write can simply be re-run.
	written := 0
	total := len(batch.Results) + len(retried)
	for _, result := range batch.Results {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.tracker.CreateSubItems(ctx, result.Parent.ID, result.Children); err != nil {
			return nil, fmt.Errorf("writing sub-items for %s: %w", result.Parent.ID, err)
		}
		written++
		if written%progressEvery == 0 {
			c.listener.Handle(events.ItemsProcessed(piID, teamID, events.StageDecompose, written, total))
		}
	}
	for parentID, children := range retried {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.tracker.CreateSubItems(ctx, parentID, children); err != nil {
			return nil, fmt.Errorf("writing sub-items for %s: %w", parentID, err)
		}
		written++
		if written%progressEvery == 0 {
			c.listener.Handle(events.ItemsProcessed(piID, teamID, events.StageDecompose, written, total))
		}
	}

	return items, nil
}

// mapStage runs dependency detection, rejects hard-edge cycles, seals the
// graph, and writes the surviving relations back to the tracker.
func (c *Coordinator) mapStage(ctx context.Context, piID, teamID string, items []types.WorkItem) (*depgraph.Graph, error) {
	graph, err := c.mapper.MapDependencies(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("mapping dependencies: %w", err)
	}
	if _, err := graph.TopologicalOrder(); err != nil {
		return nil, err // CyclicDependencyError names the offending chains
	}
	graph.Seal()

	edges := graph.Edges()
	for i, rel := range edges {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.tracker.CreateRelation(ctx, rel); err != nil {
			return nil, fmt.Errorf("writing relation %s→%s: %w", rel.SourceID, rel.TargetID, err)
		}
		if (i+1)%progressEvery == 0 {
			c.listener.Handle(events.ItemsProcessed(piID, teamID, events.StageMapDeps, i+1, len(edges)))
		}
	}
	return graph, nil
}

// allocateStage packs items into iterations and builds the draft plan.
// Over-allocation does not abort the pass: unplaced items are carried on
// the plan and surface through the gates and the optimizer.
func (c *Coordinator) allocateStage(ctx context.Context, pi *types.ProgramIncrement, team *types.Team, items []types.WorkItem, graph *depgraph.Graph) (*types.ARTPlan, error) {
	iterationCount := pi.IterationCount()
	result, err := c.allocator.Allocate(ctx, pi, items, graph, []types.Team{*team}, iterationCount)
	if err != nil {
		var over *allocate.OverAllocationError
		if !errors.As(err, &over) {
			return nil, fmt.Errorf("allocating iterations: %w", err)
		}
	}

	plan := &types.ARTPlan{
		PIID:       pi.ID,
		TeamID:     team.ID,
		Status:     types.PlanStatusDraft,
		Iterations: result.Iterations,
		Nodes:      graph.Nodes(),
		Edges:      graph.Edges(),
		Items:      items,
	}
	plan.UnplacedItems = append(plan.UnplacedItems, result.Unplaced...)
	if err := plan.Transition(types.PlanStatusAllocated); err != nil {
		return nil, err
	}
	plan.CapacityUtilization = plan.AverageUtilization()
	return plan, nil
}

// analyzeValue runs value-delivery analysis over the plan and records the
// aggregate score.
func (c *Coordinator) analyzeValue(plan *types.ARTPlan) []*value.Analysis {
	graph := depgraph.NewGraph(plan.Items)
	for _, rel := range plan.Edges {
		// Edges came from a sealed graph over the same snapshot.
		_ = graph.AddEdge(rel)
	}
	analyzer := value.NewAnalyzer(graph)
	analyses := analyzer.AnalyzePlan(plan)
	plan.ValueDeliveryScore = value.PlanScore(analyses)
	return analyses
}

// optimizeStage scores the plan and applies safe MOVE_ITEM
// recommendations, re-validating after each round. The loop is bounded by
// MaxPasses and stops early once no recommendation can be applied.
func (c *Coordinator) optimizeStage(plan *types.ARTPlan) (*optimize.OptimizedPlan, error) {
	maxPasses := c.cfg.Optimization.MaxPasses
	if maxPasses <= 0 {
		maxPasses = 1
	}

	var opt *optimize.OptimizedPlan
	for pass := 0; pass < maxPasses; pass++ {
		var err error
		opt, err = c.optimizer.Optimize(plan)
		if err != nil {
			return nil, fmt.Errorf("optimizing plan: %w", err)
		}
		plan.ReadinessScore = opt.ReadinessScore
		plan.ValueDeliveryScore = opt.ValueScore
		plan.CapacityUtilization = opt.Plan.CapacityUtilization
		plan.OptimizationPasses = pass + 1
		if err := plan.Transition(types.PlanStatusOptimized); err != nil {
			return nil, err
		}

		if pass+1 >= maxPasses {
			break
		}
		moved := c.applyMoves(plan, opt.Recommendations)
		if moved == 0 {
			break
		}

		// Re-enter the loop through the state machine: applied moves put
		// the plan back into allocated, then re-validate.
		if err := plan.Transition(types.PlanStatusAllocated); err != nil {
			return nil, err
		}
		c.analyzeValue(plan)
		if err := plan.Transition(types.PlanStatusValidated); err != nil {
			return nil, err
		}
	}
	return opt, nil
}

// notifyOutcome emits summary events after a pass.
func (c *Coordinator) notifyOutcome(piID, teamID string, plan *types.ARTPlan, opt *optimize.OptimizedPlan) {
	if len(opt.Recommendations) > 0 {
		c.listener.Handle(events.Event{
			Type:      events.TypeOptimizationSuggestions,
			PIID:      piID,
			TeamID:    teamID,
			Readiness: plan.ReadinessScore,
			Message:   fmt.Sprintf("%d recommendations, top: %s", len(opt.Recommendations), opt.Recommendations[0].Message),
			Timestamp: plan.UpdatedAt,
		})
	}
	if plan.ReadinessScore < c.cfg.Optimization.ReadinessThreshold {
		c.listener.Handle(events.ReadinessBelowThreshold(piID, teamID, plan.ReadinessScore,
			fmt.Sprintf("readiness %.2f below threshold %.2f", plan.ReadinessScore, c.cfg.Optimization.ReadinessThreshold)))
	}
}

// Commit writes the optimized plan's iteration assignments back to the
// tracker and freezes the plan. Assignment writes are idempotent, so an
// interrupted commit can be re-run.
func (c *Coordinator) Commit(ctx context.Context, piID, teamID string) (*types.ARTPlan, error) {
	plan, err := c.store.GetPlan(ctx, piID, teamID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, &storage.ErrPlanNotFound{PIID: piID, TeamID: teamID}
	}
	if plan.Status != types.PlanStatusOptimized {
		return nil, &types.ErrInvalidTransition{From: plan.Status, To: types.PlanStatusCommitted}
	}

	total := 0
	for i := range plan.Iterations {
		total += len(plan.Iterations[i].AllocatedItems)
	}
	written := 0
	for i := range plan.Iterations {
		for _, allocated := range plan.Iterations[i].AllocatedItems {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := c.tracker.AssignIteration(ctx, allocated.ItemID, allocated.IterationIndex); err != nil {
				return nil, fmt.Errorf("assigning %s to iteration %d: %w", allocated.ItemID, allocated.IterationIndex, err)
			}
			written++
			if written%progressEvery == 0 {
				c.listener.Handle(events.ItemsProcessed(piID, teamID, events.StagePersist, written, total))
			}
		}
	}

	if err := plan.Transition(types.PlanStatusCommitted); err != nil {
		return nil, err
	}
	if err := c.store.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("persisting committed plan: %w", err)
	}
	c.listener.Handle(events.PlanCommitted(piID, teamID, plan.ReadinessScore))
	return plan, nil
}
