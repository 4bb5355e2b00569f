package linear

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

func TestNormalizeWorkItem(t *testing.T) {
	raw := map[string]any{
		"id":                  "wi-1",
		"title":               "Checkout API",
		"description":         "Expose the checkout endpoint",
		"story_points":        float64(5),
		"type":                "story",
		"status":              "todo",
		"team_id":             "team-a",
		"priority":            float64(2),
		"acceptance_criteria": []any{"returns 200", "records the order"},
		"labels":              []any{"payments"},
		"created_at":          "2026-01-15T10:00:00Z",
	}

	item, err := NormalizeWorkItem(raw)
	require.NoError(t, err)
	assert.Equal(t, "wi-1", item.ID)
	assert.Equal(t, "Checkout API", item.Title)
	assert.Equal(t, 5, item.StoryPoints)
	assert.Equal(t, types.TypeStory, item.Type)
	assert.Equal(t, types.StatusTodo, item.Status)
	assert.Equal(t, 2, item.Priority)
	assert.Equal(t, []string{"returns 200", "records the order"}, item.AcceptanceCriteria)
	assert.Equal(t, []string{"payments"}, item.Labels)
	assert.Equal(t, time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), item.CreatedAt)
}

func TestNormalizeWorkItemDefaultsStatus(t *testing.T) {
	item, err := NormalizeWorkItem(map[string]any{
		"id":           "wi-2",
		"title":        "Search index",
		"story_points": float64(3),
		"type":         "story",
		"team_id":      "team-a",
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusTodo, item.Status)
}

func TestNormalizeWorkItemRejections(t *testing.T) {
	base := func() map[string]any {
		return map[string]any{
			"id":           "wi-3",
			"title":        "Payment service",
			"story_points": float64(3),
			"type":         "story",
			"team_id":      "team-a",
		}
	}

	tests := []struct {
		name   string
		mutate func(map[string]any)
		field  string
	}{
		{"missing title", func(m map[string]any) { delete(m, "title") }, "title"},
		{"numeric title", func(m map[string]any) { m["title"] = float64(7) }, "title"},
		{"fractional points", func(m map[string]any) { m["story_points"] = 3.5 }, "story_points"},
		{"string points", func(m map[string]any) { m["story_points"] = "three" }, "story_points"},
		{"unknown type", func(m map[string]any) { m["type"] = "saga" }, "item"},
		{"unknown status", func(m map[string]any) { m["status"] = "parked" }, "item"},
		{"negative points", func(m map[string]any) { m["story_points"] = float64(-1) }, "item"},
		{"mixed labels", func(m map[string]any) { m["labels"] = []any{"ok", float64(1)} }, "labels"},
		{"bad timestamp", func(m map[string]any) { m["created_at"] = "yesterday" }, "created_at"},
		{"missing team", func(m map[string]any) { delete(m, "team_id") }, "team_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := base()
			tt.mutate(raw)
			_, err := NormalizeWorkItem(raw)
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "wi-3", ve.ItemID)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}
