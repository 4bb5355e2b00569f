package repl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/storage"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

type stubStore struct {
	storage.Storage
	plans []storage.PlanSummary
	plan  *types.ARTPlan
}

func (s *stubStore) ListPlans(ctx context.Context) ([]storage.PlanSummary, error) {
	return s.plans, nil
}

func (s *stubStore) GetPlan(ctx context.Context, piID, teamID string) (*types.ARTPlan, error) {
	return s.plan, nil
}

func newTestREPL(t *testing.T, store storage.Storage) *REPL {
	t.Helper()
	r, err := New(&Config{Store: store})
	require.NoError(t, err)
	r.ctx = context.Background()
	return r
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(&Config{})
	assert.Error(t, err)
}

func TestProcessInputUnknownCommand(t *testing.T) {
	r := newTestREPL(t, &stubStore{})
	err := r.processInput("frobnicate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frobnicate")
}

func TestProcessInputDispatches(t *testing.T) {
	r := newTestREPL(t, &stubStore{
		plans: []storage.PlanSummary{{PIID: "pi-1", TeamID: "team-a", Status: types.PlanStatusOptimized}},
	})
	assert.NoError(t, r.processInput("plans"))
	assert.NoError(t, r.processInput("help"))
}

func TestShowRequiresArgs(t *testing.T) {
	r := newTestREPL(t, &stubStore{})
	assert.Error(t, r.processInput("show"))
	assert.Error(t, r.processInput("show pi-1"))
}

func TestShowMissingPlan(t *testing.T) {
	r := newTestREPL(t, &stubStore{})
	err := r.processInput("show pi-1 team-a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no plan stored")
}

func TestRunWithoutCoordinator(t *testing.T) {
	r := newTestREPL(t, &stubStore{})
	assert.Error(t, r.processInput("run pi-1 team-a"))
	assert.Error(t, r.processInput("commit pi-1 team-a"))
}
