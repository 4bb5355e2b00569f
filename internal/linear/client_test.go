package linear

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/config"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.TrackerConfig{
		BaseURL:           srv.URL,
		APIKey:            "test-key",
		RequestsPerSecond: 1000,
		Burst:             1000,
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
	})
}

func TestListBacklogSeparatesInvalidItems(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "pi-1", r.URL.Query().Get("pi"))
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": "wi-1", "title": "Checkout", "story_points": 3, "type": "story", "team_id": "team-a"},
				{"id": "wi-2", "title": "", "story_points": 3, "type": "story", "team_id": "team-a"},
			},
		})
	}))

	items, invalid, err := c.ListBacklog(context.Background(), "pi-1", "team-a")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "wi-1", items[0].ID)
	require.Len(t, invalid, 1)
	var ve *ValidationError
	assert.ErrorAs(t, invalid[0], &ve)
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"items": []map[string]any{}})
	}))

	_, _, err := c.ListBacklog(context.Background(), "pi-1", "team-a")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryExhaustionWrapsLastError(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, _, err := c.ListBacklog(context.Background(), "pi-1", "team-a")
	require.Error(t, err)
	var ese *ExternalServiceError
	require.ErrorAs(t, err, &ese)
	assert.Equal(t, "list backlog", ese.Op)
	assert.Equal(t, 3, ese.Attempts)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))

	_, _, err := c.ListBacklog(context.Background(), "pi-1", "team-a")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateRelationConflictIsSuccess(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	err := c.CreateRelation(context.Background(), types.DependencyRelationship{
		SourceID:        "wi-1",
		TargetID:        "wi-2",
		Kind:            types.KindBlocks,
		Strength:        types.StrengthHard,
		DetectionMethod: types.MethodManual,
		Confidence:      1.0,
	})
	assert.NoError(t, err)
}

func TestCreateSubItemsPostsParentLink(t *testing.T) {
	var got map[string]any
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))

	children := []types.WorkItem{{
		ID:          "wi-1a",
		Title:       "Checkout (part 1/2)",
		StoryPoints: 4,
		Type:        types.TypeStory,
		Status:      types.StatusTodo,
		TeamID:      "team-a",
		ParentID:    "wi-1",
	}}
	require.NoError(t, c.CreateSubItems(context.Background(), "wi-1", children))
	assert.Equal(t, "wi-1", got["parent_id"])
	require.Len(t, got["children"], 1)
}

func TestAssignIterationPath(t *testing.T) {
	var path string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, http.MethodPut, r.Method)
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, c.AssignIteration(context.Background(), "wi-1", 2))
	assert.Equal(t, "/planning/items/wi-1/cycle", path)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	c.retry.InitialBackoff = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := c.ListBacklog(ctx, "pi-1", "team-a")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
