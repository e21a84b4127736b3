// Package history persists scenario outcomes to a local SQLite store and
// serves them over a small read-only HTTP API.
//
// The store is diagnostics, not verdict: a failing history write is logged
// and never changes a scenario outcome. The SQLite driver is registered by
// the importing command (modernc.org/sqlite).
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/blockprobe/dbopen"
	"github.com/hazyhaar/blockprobe/probe/internal/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS scenario_runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	scenario    TEXT NOT NULL,
	success     INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	blocks      TEXT NOT NULL DEFAULT '[]',
	scripts     TEXT NOT NULL DEFAULT '[]',
	styles      TEXT NOT NULL DEFAULT '[]',
	screenshots TEXT NOT NULL DEFAULT '[]',
	run_url     TEXT NOT NULL DEFAULT '',
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scenario_runs_run_id ON scenario_runs(run_id);
`

// Store records scenario outcomes.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the history database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Record persists an outcome. Non-blocking contract: errors are logged, not
// propagated, so a failing store never blocks a run.
func (s *Store) Record(ctx context.Context, out report.Outcome) {
	_, err := dbopen.Exec(ctx, s.db, `
		INSERT INTO scenario_runs (
			run_id, scenario, success, error,
			blocks, scripts, styles, screenshots,
			run_url, started_at, finished_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		out.RunID, out.Scenario, out.Success, out.Error,
		jsonList(out.Blocks), jsonList(out.Scripts), jsonList(out.Styles), jsonList(out.Screenshots),
		out.RunURL, out.StartedAt, out.FinishedAt)
	if err != nil {
		s.logger.Error("history: record outcome failed",
			"run_id", out.RunID, "scenario", out.Scenario, "error", err)
	}
}

// Recent returns the most recent outcomes, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]report.Outcome, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, scenario, success, error,
		       blocks, scripts, styles, screenshots,
		       run_url, started_at, finished_at
		FROM scenario_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()
	return scanOutcomes(rows)
}

// Run returns every scenario outcome recorded under runID, oldest first.
func (s *Store) Run(ctx context.Context, runID string) ([]report.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, scenario, success, error,
		       blocks, scripts, styles, screenshots,
		       run_url, started_at, finished_at
		FROM scenario_runs WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: query run %s: %w", runID, err)
	}
	defer rows.Close()
	return scanOutcomes(rows)
}

// Cleanup deletes outcomes older than the retention window. Zero days means
// no cleanup.
func (s *Store) Cleanup(ctx context.Context, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays).UnixMilli()
	_, err := dbopen.Exec(ctx, s.db,
		`DELETE FROM scenario_runs WHERE finished_at < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("history: cleanup: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func scanOutcomes(rows *sql.Rows) ([]report.Outcome, error) {
	var outs []report.Outcome
	for rows.Next() {
		var out report.Outcome
		var blocks, scripts, styles, screenshots string
		if err := rows.Scan(
			&out.RunID, &out.Scenario, &out.Success, &out.Error,
			&blocks, &scripts, &styles, &screenshots,
			&out.RunURL, &out.StartedAt, &out.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		out.Blocks = parseList(blocks)
		out.Scripts = parseList(scripts)
		out.Styles = parseList(styles)
		out.Screenshots = parseList(screenshots)
		outs = append(outs, out)
	}
	return outs, rows.Err()
}

func jsonList(v []string) string {
	if v == nil {
		v = []string{}
	}
	data, _ := json.Marshal(v)
	return string(data)
}

func parseList(s string) []string {
	var v []string
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil
	}
	if len(v) == 0 {
		return nil
	}
	return v
}
