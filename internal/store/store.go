// Package store keeps a local SQLite history of runs and their metrics.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id           TEXT PRIMARY KEY,
    command      TEXT NOT NULL,
    stage        TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL DEFAULT '',
    started_at   TEXT NOT NULL,
    config_hash  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS run_metrics (
    run_id  TEXT NOT NULL REFERENCES runs(id),
    epoch   INTEGER NOT NULL,
    name    TEXT NOT NULL,
    value   REAL NOT NULL,
    PRIMARY KEY (run_id, epoch, name)
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// timeLayout is fixed width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FinalEpoch tags metrics that summarize a whole run rather than one epoch.
const FinalEpoch = -1

var ErrRunNotFound = errors.New("run not found")

type Run struct {
	ID         string
	Command    string
	Stage      string
	Status     string
	StartedAt  time.Time
	ConfigHash string
}

type MetricPoint struct {
	Epoch int
	Name  string
	Value float64
}

// RunStore manages the runs and run_metrics tables.
type RunStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite file at path.
func Open(path string) (*RunStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(1)
	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New creates tables on db and returns a RunStore.
func New(db *sql.DB) (*RunStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("store schema: %w", err)
	}
	return &RunStore{db: db}, nil
}

func (s *RunStore) Close() error {
	return s.db.Close()
}

// RecordRun inserts the run and all of its metric points in one transaction.
func (s *RunStore) RecordRun(ctx context.Context, run Run, points []MetricPoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, command, stage, status, started_at, config_hash) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Command, run.Stage, run.Status, run.StartedAt.UTC().Format(timeLayout), run.ConfigHash,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO run_metrics (run_id, epoch, name, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, run.ID, p.Epoch, p.Name, p.Value); err != nil {
			return fmt.Errorf("insert metric %s: %w", p.Name, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs first. limit <= 0 means no limit.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, command, stage, status, started_at, config_hash
		 FROM runs
		 ORDER BY started_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt string
		if err := rows.Scan(&r.ID, &r.Command, &r.Stage, &r.Status, &startedAt, &r.ConfigHash); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(timeLayout, startedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunMetrics returns a run's metric points ordered by epoch then name.
func (s *RunStore) RunMetrics(ctx context.Context, runID string) ([]MetricPoint, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT epoch, name, value FROM run_metrics WHERE run_id = ? ORDER BY epoch, name`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []MetricPoint
	for rows.Next() {
		var p MetricPoint
		if err := rows.Scan(&p.Epoch, &p.Name, &p.Value); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
