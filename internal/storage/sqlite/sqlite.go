// Package sqlite implements plan storage on a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/storage"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS plans (
	pi_id      TEXT NOT NULL,
	team_id    TEXT NOT NULL,
	status     TEXT NOT NULL,
	readiness  REAL NOT NULL DEFAULT 0,
	data       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (pi_id, team_id)
);

CREATE TABLE IF NOT EXISTS config (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_plans_updated ON plans(updated_at DESC);
`

// SQLiteStorage implements the storage.Storage interface using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

var _ storage.Storage = (*SQLiteStorage)(nil)

// New creates a SQLite storage backend at the given path.
func New(path string) (*SQLiteStorage, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// WAL mode for concurrent readers during a planning pass.
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// SavePlan stores the plan, superseding any previous plan for the same
// (PI, team) pair.
func (s *SQLiteStorage) SavePlan(ctx context.Context, plan *types.ARTPlan) error {
	if plan.PIID == "" || plan.TeamID == "" {
		return fmt.Errorf("plan requires pi_id and team_id")
	}
	if !plan.Status.IsValid() {
		return fmt.Errorf("invalid plan status: %s", plan.Status)
	}

	now := time.Now()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now

	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO plans (pi_id, team_id, status, readiness, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (pi_id, team_id) DO UPDATE SET
			status     = excluded.status,
			readiness  = excluded.readiness,
			data       = excluded.data,
			updated_at = excluded.updated_at
	`, plan.PIID, plan.TeamID, plan.Status, plan.ReadinessScore, string(data), plan.CreatedAt, plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}

// GetPlan retrieves the plan for a (PI, team) pair, or nil when absent.
func (s *SQLiteStorage) GetPlan(ctx context.Context, piID, teamID string) (*types.ARTPlan, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM plans WHERE pi_id = ? AND team_id = ?
	`, piID, teamID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	var plan types.ARTPlan
	if err := json.Unmarshal([]byte(data), &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	return &plan, nil
}

// ListPlans returns summaries for every stored plan, newest first.
func (s *SQLiteStorage) ListPlans(ctx context.Context) ([]storage.PlanSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pi_id, team_id, status, readiness, updated_at
		FROM plans
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var summaries []storage.PlanSummary
	for rows.Next() {
		var sum storage.PlanSummary
		var updated time.Time
		if err := rows.Scan(&sum.PIID, &sum.TeamID, &sum.Status, &sum.ReadinessScore, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan plan summary: %w", err)
		}
		sum.UpdatedAt = updated.Format(time.RFC3339)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// DeletePlan removes the plan for a (PI, team) pair.
func (s *SQLiteStorage) DeletePlan(ctx context.Context, piID, teamID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM plans WHERE pi_id = ? AND team_id = ?
	`, piID, teamID)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &storage.ErrPlanNotFound{PIID: piID, TeamID: teamID}
	}
	return nil
}

// GetConfig gets a configuration value from the config table.
func (s *SQLiteStorage) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetConfig sets a configuration value in the config table.
func (s *SQLiteStorage) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
