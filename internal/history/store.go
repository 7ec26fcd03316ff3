package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"proxyoda/internal/submission"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// FileName is the database file created inside the state directory.
const FileName = "history.db"

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Run is a persisted run summary.
type Run struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Counts   submission.Counts
}

// Total is the number of jobs recorded for the run.
func (r Run) Total() int {
	return r.Counts.Accepted + r.Counts.Failed()
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// JobRecord is a persisted per-job outcome.
type JobRecord struct {
	Index      int
	InputPath  string
	OutputPath string
	PresetPath string
	Outcome    submission.Outcome
	Attempts   int
	StatusCode int
	AMEJobID   string
	Error      string
	Duration   time.Duration
}

// Open initializes or connects to the history database in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure state dir: %w", err)
	}

	dbPath := filepath.Join(dir, FileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun stores a finished run and all of its job results. Recording the
// same run ID twice replaces the earlier record.
func (s *Store) RecordRun(ctx context.Context, report submission.Report) error {
	if report.RunID == "" {
		return errors.New("run id is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, report.RunID); err != nil {
		return fmt.Errorf("clear previous run: %w", err)
	}
	c := report.Counts
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO runs (
            run_id, started_at, finished_at, accepted, busy_exhausted, rejected, errored, skipped
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		formatTime(report.Started),
		nullableTime(report.Finished),
		c.Accepted, c.BusyExhausted, c.Rejected, c.Errored, c.Skipped,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_jobs (
        run_id, job_index, input_path, output_path, preset_path, outcome,
        attempts, status_code, ame_job_id, error_message, duration_ms
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare job insert: %w", err)
	}
	defer stmt.Close()

	for _, result := range report.Results {
		errMsg := ""
		if result.Err != nil {
			errMsg = result.Err.Error()
		}
		if _, err := stmt.ExecContext(
			ctx,
			report.RunID,
			result.Index,
			result.Job.InputPath,
			result.Job.OutputPath,
			result.Job.PresetPath,
			string(result.Outcome),
			result.Attempts,
			nullableInt(result.Final.StatusCode),
			nullableString(result.Final.JobID),
			nullableString(errMsg),
			result.Duration.Milliseconds(),
		); err != nil {
			return fmt.Errorf("insert job %d: %w", result.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// Runs lists the most recent runs, newest first. A limit <= 0 returns all runs.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT run_id, started_at, finished_at, accepted, busy_exhausted, rejected, errored, skipped
        FROM runs ORDER BY started_at DESC, run_id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun fetches a run summary. It returns nil when the run is unknown.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, started_at, finished_at, accepted, busy_exhausted, rejected, errored, skipped
         FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// RunResults lists the job records for a run in submission order.
func (s *Store) RunResults(ctx context.Context, runID string) ([]JobRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_index, input_path, output_path, preset_path, outcome, attempts,
                status_code, ame_job_id, error_message, duration_ms
         FROM run_jobs WHERE run_id = ? ORDER BY job_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run jobs: %w", err)
	}
	defer rows.Close()

	var records []JobRecord
	for rows.Next() {
		var (
			rec        JobRecord
			outcome    string
			statusCode sql.NullInt64
			jobID      sql.NullString
			errMsg     sql.NullString
			durationMS int64
		)
		if err := rows.Scan(
			&rec.Index, &rec.InputPath, &rec.OutputPath, &rec.PresetPath, &outcome, &rec.Attempts,
			&statusCode, &jobID, &errMsg, &durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan run job: %w", err)
		}
		rec.Outcome = submission.Outcome(outcome)
		rec.StatusCode = int(statusCode.Int64)
		rec.AMEJobID = jobID.String
		rec.Error = errMsg.String
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run jobs: %w", err)
	}
	return records, nil
}

// Prune removes runs that started before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
