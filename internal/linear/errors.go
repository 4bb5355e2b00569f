package linear

import "fmt"

// ExternalServiceError wraps a boundary failure after retries were
// exhausted. The last underlying cause is attached.
type ExternalServiceError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("tracker %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

// Unwrap returns the last underlying cause.
func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// ValidationError reports a tracker payload that could not be normalized
// into a strict work item. Raised at the boundary so loosely-typed data
// never reaches the planning core.
type ValidationError struct {
	ItemID string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("invalid tracker payload for %s: %s: %s", e.ItemID, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid tracker payload: %s: %s", e.Field, e.Reason)
}
