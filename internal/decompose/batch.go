package decompose

import (
	"context"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

// ItemError pairs a work item id with the failure it produced.
type ItemError struct {
	ItemID string `json:"item_id"`
	Err    error  `json:"-"`
	Reason string `json:"reason"`
}

// BatchResult holds the outcome of decomposing a backlog. Items that did
// not need decomposition pass through unchanged in Passthrough; failures
// are collected rather than aborting the batch.
type BatchResult struct {
	Results     []*Result        `json:"results"`
	Passthrough []types.WorkItem `json:"passthrough"`
	Failed      []ItemError      `json:"failed"`
}

// Items returns the full post-decomposition backlog: passthrough items
// plus all children, parents of successful splits excluded.
func (b *BatchResult) Items() []types.WorkItem {
	out := make([]types.WorkItem, 0, len(b.Passthrough))
	out = append(out, b.Passthrough...)
	for _, r := range b.Results {
		out = append(out, r.Children...)
	}
	return out
}

// DecomposeBatch splits every oversized story in the backlog. Per-item
// failures are reported alongside successes; the context is checked
// between items so a long backlog can be cancelled cooperatively.
func (e *Engine) DecomposeBatch(ctx context.Context, items []types.WorkItem) (*BatchResult, error) {
	batch := &BatchResult{}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !item.NeedsDecomposition() {
			batch.Passthrough = append(batch.Passthrough, item)
			continue
		}
		result, err := e.Decompose(item)
		if err != nil {
			batch.Failed = append(batch.Failed, ItemError{
				ItemID: item.ID,
				Err:    err,
				Reason: err.Error(),
			})
			// Keep the oversized parent in the backlog so it is not
			// silently dropped; the allocator will refuse it later.
			batch.Passthrough = append(batch.Passthrough, item)
			continue
		}
		batch.Results = append(batch.Results, result)
	}
	return batch, nil
}
