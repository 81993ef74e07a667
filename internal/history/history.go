// Package history persists finished optimization runs in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Run records one finished optimization run.
type Run struct {
	ID           int64
	Kind         string // search strategy: "anneal", "mayfly" or "evolve"
	LayoutConfig string
	Corpus       string
	SeedChars    string
	BestChars    string
	InitialCost  float64
	BestCost     float64
	Steps        int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// DB wraps SQLite access to the run history.
type DB struct {
	db *sql.DB
}

// Open opens or creates the history database and applies migrations.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	h := &DB{db: db}
	if err := h.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return h, nil
}

// Close closes the underlying database.
func (h *DB) Close() error {
	return h.db.Close()
}

func (h *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY,
			kind TEXT NOT NULL,
			layout_config TEXT NOT NULL,
			corpus TEXT NOT NULL,
			seed_chars TEXT NOT NULL,
			best_chars TEXT NOT NULL,
			initial_cost REAL NOT NULL,
			best_cost REAL NOT NULL,
			steps INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_best_cost ON runs(best_cost);`,
	}
	for _, stmt := range stmts {
		if _, err := h.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert stores a finished run and returns its row ID.
func (h *DB) Insert(ctx context.Context, run Run) (int64, error) {
	res, err := h.db.ExecContext(ctx,
		`INSERT INTO runs (kind, layout_config, corpus, seed_chars, best_chars, initial_cost, best_cost, steps, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Kind,
		run.LayoutConfig,
		run.Corpus,
		run.SeedChars,
		run.BestChars,
		run.InitialCost,
		run.BestCost,
		run.Steps,
		run.StartedAt.Format(time.RFC3339Nano),
		run.FinishedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return res.LastInsertId()
}

// List returns runs ordered newest first. A non-positive limit returns all.
func (h *DB) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}
	return h.query(ctx,
		`SELECT id, kind, layout_config, corpus, seed_chars, best_chars, initial_cost, best_cost, steps, started_at, finished_at
		 FROM runs
		 ORDER BY finished_at DESC
		 LIMIT ?`, limit)
}

// Best returns the lowest-cost runs, cheapest first. An empty layoutConfig
// matches every run; a non-positive limit returns all.
func (h *DB) Best(ctx context.Context, layoutConfig string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	return h.query(ctx,
		`SELECT id, kind, layout_config, corpus, seed_chars, best_chars, initial_cost, best_cost, steps, started_at, finished_at
		 FROM runs
		 WHERE (? = '' OR layout_config = ?)
		 ORDER BY best_cost ASC
		 LIMIT ?`, layoutConfig, layoutConfig, limit)
}

func (h *DB) query(ctx context.Context, q string, args ...any) ([]Run, error) {
	rows, err := h.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedAt, finishedAt string
		if err := rows.Scan(&run.ID, &run.Kind, &run.LayoutConfig, &run.Corpus,
			&run.SeedChars, &run.BestChars, &run.InitialCost, &run.BestCost,
			&run.Steps, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("failed to parse finished_at: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}
