// Package store persists fit runs and their solutions in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/katalvlaran/emuflux/fit"
)

// ErrRunNotFound is returned by Solutions for an unknown run id.
var ErrRunNotFound = errors.New("store: run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	model      TEXT NOT NULL,
	started_at TEXT NOT NULL,
	restarts   INTEGER NOT NULL,
	free_names TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS solutions (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	restart     INTEGER NOT NULL,
	ssr         REAL,
	iterations  INTEGER NOT NULL,
	stop        TEXT NOT NULL,
	free_fluxes TEXT,
	PRIMARY KEY (run_id, restart)
);`

// Run is one stored fit.
type Run struct {
	ID        uuid.UUID
	Model     string
	StartedAt time.Time
	Restarts  int
	FreeNames []string
}

// Solution is one stored restart. SSR and Free are empty for failed
// restarts.
type Solution struct {
	RunID      uuid.UUID
	Restart    int
	SSR        sql.NullFloat64
	Iterations int
	Stop       fit.StopReason
	Free       []float64
}

// Store wraps the results database.
type Store struct {
	db   *sql.DB
	Path string
}

// Open opens (creating if needed) the database at path with foreign keys
// enabled and the schema in place.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}
	// one connection keeps ":memory:" databases and PRAGMAs consistent
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{"PRAGMA foreign_keys=ON", "PRAGMA journal_mode=WAL", schema} {
		if _, err = db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: init: %w", err)
		}
	}

	return &Store{db: db, Path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// SaveRun stores run and its solutions in one transaction. A zero run ID is
// replaced by a new random one; the stored ID is returned.
func (s *Store) SaveRun(ctx context.Context, run Run, solutions []fit.Solution) (id uuid.UUID, retErr error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	names, err := json.Marshal(run.FreeNames)
	if err != nil {
		return uuid.Nil, fmt.Errorf("store: encode free names: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("store: begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, model, started_at, restarts, free_names) VALUES (?, ?, ?, ?, ?)`,
		run.ID.String(), run.Model, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Restarts, string(names),
	); err != nil {
		return uuid.Nil, fmt.Errorf("store: insert run: %w", err)
	}
	for _, sol := range solutions {
		var ssr sql.NullFloat64
		var free sql.NullString
		if sol.Stop != fit.StopFailed {
			ssr = sql.NullFloat64{Float64: sol.SSR, Valid: true}
			data, err := json.Marshal(sol.Free)
			if err != nil {
				return uuid.Nil, fmt.Errorf("store: encode restart %d: %w", sol.Restart, err)
			}
			free = sql.NullString{String: string(data), Valid: true}
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO solutions (run_id, restart, ssr, iterations, stop, free_fluxes) VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID.String(), sol.Restart, ssr, sol.Iterations, string(sol.Stop), free,
		); err != nil {
			return uuid.Nil, fmt.Errorf("store: insert restart %d: %w", sol.Restart, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("store: commit: %w", err)
	}

	return run.ID, nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, model, started_at, restarts, free_names FROM runs ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("store: select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var r Run
		var id, started, names string
		if err = rows.Scan(&id, &r.Model, &started, &r.Restarts, &names); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("store: run id %q: %w", id, err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("store: run %s time: %w", id, err)
		}
		if err = json.Unmarshal([]byte(names), &r.FreeNames); err != nil {
			return nil, fmt.Errorf("store: run %s free names: %w", id, err)
		}
		out = append(out, r)
	}

	return out, rows.Err()
}

// Solutions returns the restarts of run id in restart order.
func (s *Store) Solutions(ctx context.Context, id uuid.UUID) ([]Solution, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, id.String()).Scan(&n); err != nil {
		return nil, fmt.Errorf("store: lookup run: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT restart, ssr, iterations, stop, free_fluxes FROM solutions WHERE run_id = ? ORDER BY restart`,
		id.String())
	if err != nil {
		return nil, fmt.Errorf("store: select solutions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Solution
	for rows.Next() {
		sol := Solution{RunID: id}
		var stop string
		var free sql.NullString
		if err = rows.Scan(&sol.Restart, &sol.SSR, &sol.Iterations, &stop, &free); err != nil {
			return nil, fmt.Errorf("store: scan solution: %w", err)
		}
		sol.Stop = fit.StopReason(stop)
		if free.Valid {
			if err = json.Unmarshal([]byte(free.String), &sol.Free); err != nil {
				return nil, fmt.Errorf("store: restart %d fluxes: %w", sol.Restart, err)
			}
		}
		out = append(out, sol)
	}

	return out, rows.Err()
}
