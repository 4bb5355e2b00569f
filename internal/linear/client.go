// Package linear is the boundary client for the external work-tracking
// system. It is the only place a planning pass may block on the network:
// backlog reads, sub-item creation, relationship links, and cycle
// assignments all go through here, behind retry-with-backoff and a
// client-side rate budget. Loose tracker payloads are normalized into
// strict work items before anything reaches the planning core.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/config"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

// Tracker is the interface the planning coordinator depends on. All write
// operations are idempotent by item id so retries are safe.
type Tracker interface {
	// ListBacklog reads the backlog for one (PI, team) pair, normalized
	// into strict work items. Items that fail validation are reported in
	// the second return value rather than aborting the read.
	ListBacklog(ctx context.Context, piID, teamID string) ([]types.WorkItem, []error, error)

	// GetProgramIncrement reads PI metadata.
	GetProgramIncrement(ctx context.Context, piID string) (*types.ProgramIncrement, error)

	// GetTeam reads team metadata.
	GetTeam(ctx context.Context, teamID string) (*types.Team, error)

	// CreateSubItems writes decomposition children with parent links.
	// Creating an item that already exists is treated as success.
	CreateSubItems(ctx context.Context, parentID string, children []types.WorkItem) error

	// CreateRelation writes one dependency link. An already-existing link
	// is treated as success.
	CreateRelation(ctx context.Context, rel types.DependencyRelationship) error

	// AssignIteration writes an item's cycle assignment.
	AssignIteration(ctx context.Context, itemID string, iterationIndex int) error
}

// Client is the HTTP implementation of Tracker.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	retry   RetryConfig
}

// NewClient creates a tracker client from configuration.
func NewClient(cfg config.TrackerConfig) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	retry := DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxRetries = cfg.MaxRetries
	}
	if cfg.InitialBackoff > 0 {
		retry.InitialBackoff = cfg.InitialBackoff
	}
	if cfg.MaxBackoff > 0 {
		retry.MaxBackoff = cfg.MaxBackoff
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		retry:   retry,
	}
}

// ListBacklog implements Tracker.
func (c *Client) ListBacklog(ctx context.Context, piID, teamID string) ([]types.WorkItem, []error, error) {
	var payload struct {
		Items []map[string]any `json:"items"`
	}
	path := fmt.Sprintf("/planning/backlog?pi=%s&team=%s", url.QueryEscape(piID), url.QueryEscape(teamID))
	if err := c.do(ctx, "list backlog", http.MethodGet, path, nil, &payload); err != nil {
		return nil, nil, err
	}

	items := make([]types.WorkItem, 0, len(payload.Items))
	var invalid []error
	for _, raw := range payload.Items {
		item, err := NormalizeWorkItem(raw)
		if err != nil {
			invalid = append(invalid, err)
			continue
		}
		items = append(items, item)
	}
	return items, invalid, nil
}

// GetProgramIncrement implements Tracker.
func (c *Client) GetProgramIncrement(ctx context.Context, piID string) (*types.ProgramIncrement, error) {
	var pi types.ProgramIncrement
	path := "/planning/increments/" + url.PathEscape(piID)
	if err := c.do(ctx, "get program increment", http.MethodGet, path, nil, &pi); err != nil {
		return nil, err
	}
	if err := pi.Validate(); err != nil {
		return nil, &ValidationError{Field: "program_increment", Reason: err.Error()}
	}
	return &pi, nil
}

// GetTeam implements Tracker.
func (c *Client) GetTeam(ctx context.Context, teamID string) (*types.Team, error) {
	var team types.Team
	path := "/planning/teams/" + url.PathEscape(teamID)
	if err := c.do(ctx, "get team", http.MethodGet, path, nil, &team); err != nil {
		return nil, err
	}
	if err := team.Validate(); err != nil {
		return nil, &ValidationError{Field: "team", Reason: err.Error()}
	}
	return &team, nil
}

// CreateSubItems implements Tracker. The request carries client-generated
// child ids, so replaying it after a partial failure is safe: the tracker
// upserts by id.
func (c *Client) CreateSubItems(ctx context.Context, parentID string, children []types.WorkItem) error {
	body := map[string]any{
		"parent_id": parentID,
		"children":  children,
	}
	return c.do(ctx, "create sub-items", http.MethodPost, "/planning/items", body, nil)
}

// CreateRelation implements Tracker. HTTP 409 from the tracker means the
// link already exists and is treated as success.
func (c *Client) CreateRelation(ctx context.Context, rel types.DependencyRelationship) error {
	err := c.do(ctx, "create relation", http.MethodPost, "/planning/relations", rel, nil)
	if asStatus(err, http.StatusConflict) {
		return nil
	}
	return err
}

// AssignIteration implements Tracker.
func (c *Client) AssignIteration(ctx context.Context, itemID string, iterationIndex int) error {
	body := map[string]any{"iteration": iterationIndex}
	path := "/planning/items/" + url.PathEscape(itemID) + "/cycle"
	return c.do(ctx, "assign iteration", http.MethodPut, path, body, nil)
}

// do performs one JSON request with the retry and rate-limit policy.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	return c.withRetry(ctx, op, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			encoded, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("encoding request: %w", err)
			}
			reader = bytes.NewReader(encoded)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return &statusError{status: resp.StatusCode, body: string(bytes.TrimSpace(data))}
		}
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

// asStatus reports whether err wraps a response with the given status.
func asStatus(err error, status int) bool {
	for err != nil {
		if se, ok := err.(*statusError); ok {
			return se.status == status
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
