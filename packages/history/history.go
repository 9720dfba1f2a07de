package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/abdul-hamid-achik/pagespec/packages/core/runner"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	file        TEXT NOT NULL,
	suite       TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_file_started ON runs (file, started_at);
CREATE TABLE IF NOT EXISTS case_results (
	run_id      TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	name        TEXT NOT NULL,
	status      TEXT NOT NULL,
	kind        TEXT NOT NULL DEFAULT '',
	message     TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

// Case statuses as stored.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Store keeps past run summaries in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the store. path may carry a sqlite:// or sqlite:
// prefix; parent directories are created.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "sqlite://")
	path = strings.TrimPrefix(path, "sqlite:")
	if path == "" {
		return nil, errors.New("history path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate history: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type Run struct {
	ID        string
	File      string
	Suite     string
	StartedAt time.Time
	Duration  time.Duration
	Passed    int
	Failed    int
	Skipped   int
	Cases     []Case
}

func (r *Run) Success() bool {
	return r.Failed == 0
}

type Case struct {
	Name     string
	Status   string
	Kind     string
	Message  string
	Duration time.Duration
}

// FromResult converts a run result into its stored form.
func FromResult(res *runner.RunResult) *Run {
	run := &Run{
		ID:        res.RunID,
		File:      res.File,
		Suite:     res.Suite,
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
		Passed:    res.Passed,
		Failed:    res.Failed,
		Skipped:   res.Skipped,
	}
	for _, cr := range res.Results {
		c := Case{Name: cr.DisplayName(), Duration: cr.Duration}
		switch {
		case cr.Skipped:
			c.Status = StatusSkipped
			c.Message = cr.SkipReason
		case cr.Passed:
			c.Status = StatusPassed
		default:
			c.Status = StatusFailed
			if cr.Failure != nil {
				c.Kind = string(cr.Failure.Kind)
				c.Message = cr.Failure.Message
			}
		}
		run.Cases = append(run.Cases, c)
	}
	return run
}

// Record stores a run and its cases in one transaction.
func (s *Store) Record(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, file, suite, started_at, duration_ms, passed, failed, skipped) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.File, run.Suite, run.StartedAt.UnixMilli(), run.Duration.Milliseconds(), run.Passed, run.Failed, run.Skipped)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, c := range run.Cases {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO case_results (run_id, position, name, status, kind, message, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, c.Name, c.Status, c.Kind, c.Message, c.Duration.Milliseconds())
		if err != nil {
			return fmt.Errorf("insert case %q: %w", c.Name, err)
		}
	}

	return tx.Commit()
}

// Recent returns up to limit runs, newest first. An empty file matches all
// suite files. Cases are not loaded.
func (s *Store) Recent(ctx context.Context, file string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, file, suite, started_at, duration_ms, passed, failed, skipped FROM runs`
	args := []any{}
	if file != "" {
		query += ` WHERE file = ?`
		args = append(args, file)
	}
	query += ` ORDER BY started_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			run        Run
			startedMs  int64
			durationMs int64
		)
		if err := rows.Scan(&run.ID, &run.File, &run.Suite, &startedMs, &durationMs, &run.Passed, &run.Failed, &run.Skipped); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		run.StartedAt = time.UnixMilli(startedMs)
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// Cases loads the case rows of one run in file order.
func (s *Store) Cases(ctx context.Context, runID string) ([]Case, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, status, kind, message, duration_ms FROM case_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var cases []Case
	for rows.Next() {
		var c Case
		var durationMs int64
		if err := rows.Scan(&c.Name, &c.Status, &c.Kind, &c.Message, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		c.Duration = time.Duration(durationMs) * time.Millisecond
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// LastSuccess reports whether the most recent run of file passed. found is
// false when the file has no history.
func (s *Store) LastSuccess(ctx context.Context, file string) (success, found bool, err error) {
	runs, err := s.Recent(ctx, file, 1)
	if err != nil {
		return false, false, err
	}
	if len(runs) == 0 {
		return false, false, nil
	}
	return runs[0].Success(), true, nil
}

// Prune deletes runs older than the keep most recent ones per file.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM runs WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY file ORDER BY started_at DESC, rowid DESC) AS n FROM runs
			) WHERE n > ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune failed: %w", err)
	}
	return res.RowsAffected()
}
