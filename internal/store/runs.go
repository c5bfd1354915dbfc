// Package store keeps a history of extraction runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"blindseeker/internal/extractor"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// RunStore persists one row per extraction attempt.
//
// Storage location defaults to .blindseeker/history.db.
type RunStore struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
	logger *zap.Logger
}

// RunRecord is a single stored run.
type RunRecord struct {
	ID          int64
	RunID       string
	Target      string
	Oracle      string
	Expression  string
	Value       string
	Length      int
	Concurrency int
	OracleCalls int64
	DurationMs  int64
	Success     bool
	Error       string // set when Success is false
	CreatedAt   time.Time
}

// Stats summarises the stored history.
type Stats struct {
	TotalRuns    int
	SuccessCount int
	FailureCount int
	OracleCalls  int64
}

// RecordFromReport converts a finished extraction into a record.
func RecordFromReport(target string, r *extractor.Report) RunRecord {
	return RunRecord{
		RunID:       r.RunID,
		Target:      target,
		Oracle:      r.Oracle,
		Expression:  r.Expression,
		Value:       r.Value,
		Length:      r.Length,
		Concurrency: r.Concurrency,
		OracleCalls: r.OracleCalls,
		DurationMs:  r.Elapsed.Milliseconds(),
		Success:     true,
		CreatedAt:   r.StartedAt,
	}
}

// Open opens or creates the history database at path. ":memory:" is
// accepted for throwaway stores.
func Open(path string, logger *zap.Logger) (*RunStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases shared across calls.
	db.SetMaxOpenConns(1)

	s := &RunStore{db: db, dbPath: path, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logger.Debug("Run store opened", zap.String("path", path))
	return s, nil
}

func (s *RunStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		target TEXT NOT NULL,
		oracle TEXT NOT NULL,
		expression TEXT NOT NULL,
		value TEXT,
		length INTEGER NOT NULL DEFAULT 0,
		concurrency INTEGER NOT NULL DEFAULT 0,
		oracle_calls INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL DEFAULT 1,
		error TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_target ON runs(target);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun inserts rec and returns its row id.
func (s *RunStore) SaveRun(ctx context.Context, rec RunRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	successInt := 0
	if rec.Success {
		successInt = 1
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, target, oracle, expression, value, length, concurrency,
		 oracle_calls, duration_ms, success, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Target, rec.Oracle, rec.Expression, rec.Value,
		rec.Length, rec.Concurrency, rec.OracleCalls, rec.DurationMs,
		successInt, rec.Error, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run %s: %w", rec.RunID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.logger.Debug("Run saved", zap.String("run", rec.RunID), zap.Int64("id", id), zap.Bool("success", rec.Success))
	return id, nil
}

// Recent returns up to limit runs, newest first.
func (s *RunStore) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, target, oracle, expression, COALESCE(value, ''),
		       length, concurrency, oracle_calls, duration_ms, success,
		       COALESCE(error, ''), created_at
		FROM runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec       RunRecord
			success   int
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Target, &rec.Oracle, &rec.Expression,
			&rec.Value, &rec.Length, &rec.Concurrency, &rec.OracleCalls, &rec.DurationMs,
			&success, &rec.Error, &createdAt); err != nil {
			return nil, err
		}
		rec.Success = success == 1
		rec.CreatedAt = time.Unix(0, createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stats aggregates the whole history.
func (s *RunStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(success), 0),
		       COALESCE(SUM(oracle_calls), 0)
		FROM runs`).Scan(&st.TotalRuns, &st.SuccessCount, &st.OracleCalls)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read stats: %w", err)
	}
	st.FailureCount = st.TotalRuns - st.SuccessCount
	return st, nil
}

// Path returns the database location.
func (s *RunStore) Path() string { return s.dbPath }

// Close closes the database.
func (s *RunStore) Close() error {
	return s.db.Close()
}
