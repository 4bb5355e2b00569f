package linear

import (
	"fmt"
	"math"
	"time"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

// NormalizeWorkItem converts a loose tracker payload into a strict work
// item. Unknown or malformed fields fail validation here, at the
// boundary, instead of propagating loosely-typed data into the core.
func NormalizeWorkItem(raw map[string]any) (types.WorkItem, error) {
	id, _ := raw["id"].(string)

	item := types.WorkItem{ID: id}

	title, err := stringField(raw, "title", true)
	if err != nil {
		return item, &ValidationError{ItemID: id, Field: "title", Reason: err.Error()}
	}
	item.Title = title

	item.Description, err = stringField(raw, "description", false)
	if err != nil {
		return item, &ValidationError{ItemID: id, Field: "description", Reason: err.Error()}
	}

	points, err := intField(raw, "story_points")
	if err != nil {
		return item, &ValidationError{ItemID: id, Field: "story_points", Reason: err.Error()}
	}
	item.StoryPoints = points

	typeStr, err := stringField(raw, "type", true)
	if err != nil {
		return item, &ValidationError{ItemID: id, Field: "type", Reason: err.Error()}
	}
	item.Type = types.ItemType(typeStr)

	statusStr, err := stringField(raw, "status", false)
	if err != nil {
		return item, &ValidationError{ItemID: id, Field: "status", Reason: err.Error()}
	}
	if statusStr == "" {
		statusStr = string(types.StatusTodo)
	}
	item.Status = types.ItemStatus(statusStr)

	item.TeamID, err = stringField(raw, "team_id", true)
	if err != nil {
		return item, &ValidationError{ItemID: id, Field: "team_id", Reason: err.Error()}
	}
	item.ParentID, err = stringField(raw, "parent_id", false)
	if err != nil {
		return item, &ValidationError{ItemID: id, Field: "parent_id", Reason: err.Error()}
	}
	item.RollbackNote, err = stringField(raw, "rollback_note", false)
	if err != nil {
		return item, &ValidationError{ItemID: id, Field: "rollback_note", Reason: err.Error()}
	}

	if priority, ok := raw["priority"]; ok {
		p, err := toInt(priority)
		if err != nil {
			return item, &ValidationError{ItemID: id, Field: "priority", Reason: err.Error()}
		}
		item.Priority = p
	}

	item.AcceptanceCriteria, err = stringSliceField(raw, "acceptance_criteria")
	if err != nil {
		return item, &ValidationError{ItemID: id, Field: "acceptance_criteria", Reason: err.Error()}
	}
	item.Labels, err = stringSliceField(raw, "labels")
	if err != nil {
		return item, &ValidationError{ItemID: id, Field: "labels", Reason: err.Error()}
	}

	if created, ok := raw["created_at"].(string); ok {
		t, err := time.Parse(time.RFC3339, created)
		if err != nil {
			return item, &ValidationError{ItemID: id, Field: "created_at", Reason: "not RFC3339"}
		}
		item.CreatedAt = t
	}

	if err := item.Validate(); err != nil {
		return item, &ValidationError{ItemID: id, Field: "item", Reason: err.Error()}
	}
	return item, nil
}

func stringField(raw map[string]any, key string, required bool) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing")
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", v)
	}
	if required && s == "" {
		return "", fmt.Errorf("empty")
	}
	return s, nil
}

func intField(raw map[string]any, key string) (int, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return 0, nil
	}
	return toInt(v)
}

// toInt accepts the numeric shapes JSON decoding produces. Fractional
// point values are rejected rather than rounded.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("expected integer, got %v", n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func stringSliceField(raw map[string]any, key string) ([]string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch list := v.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, entry := range list {
			s, ok := entry.(string)
			if !ok {
				return nil, fmt.Errorf("expected string entries, got %T", entry)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list, got %T", v)
	}
}
