package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"uicheck/internal/runner"

	_ "modernc.org/sqlite"
)

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}

// nullStr converts a sql.NullString to a plain string (empty if null).
func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

var _ Store = (*SqlStore)(nil)

// Open opens or creates a SQLite DB at path and runs migrations.
// Creates the parent directory if it does not exist. ":memory:" gives a
// private in-memory database.
func Open(path string) (*SqlStore, error) {
	memory := path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every connection to :memory: is a separate database.
	if memory {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableCount == 0 {
		if _, err := s.db.Exec(schema); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}

	var v int
	if err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != schemaVersion {
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// Close closes the underlying database.
func (s *SqlStore) Close() error {
	return s.db.Close()
}

// SaveRun stores a run and its steps, replacing any earlier record with the
// same id.
func (s *SqlStore) SaveRun(ctx context.Context, res *runner.Result) error {
	if res.ID == "" {
		return errors.New("save run: empty id")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_steps WHERE run_id = ?`, res.ID); err != nil {
		return fmt.Errorf("clear steps: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, scenario, base_url, state, failed_step, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.Scenario, res.BaseURL, res.State.String(), res.FailedStep, res.Error,
		formatTime(res.StartedAt), formatTime(res.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", res.ID, err)
	}
	for _, st := range res.Steps {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_steps (run_id, idx, label, status, elapsed_ms, artifact, condition, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			res.ID, st.Index, st.Label, string(st.Status), st.Elapsed.Milliseconds(),
			st.Artifact, st.Condition, st.Error,
		)
		if err != nil {
			return fmt.Errorf("insert step %d of run %s: %w", st.Index, res.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", res.ID, err)
	}
	return nil
}

const runColumns = `id, scenario, base_url, state, failed_step, error, started_at, finished_at`

func scanRun(row interface{ Scan(...any) error }) (*runner.Result, error) {
	var (
		r                 runner.Result
		baseURL, errMsg   sql.NullString
		finished          sql.NullString
		state, startedStr string
	)
	if err := row.Scan(&r.ID, &r.Scenario, &baseURL, &state, &r.FailedStep, &errMsg, &startedStr, &finished); err != nil {
		return nil, err
	}
	var err error
	if r.State, err = runner.ParseState(state); err != nil {
		return nil, err
	}
	if r.StartedAt, err = parseTime(startedStr); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if r.FinishedAt, err = parseTime(nullStr(finished)); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	r.BaseURL = nullStr(baseURL)
	r.Error = nullStr(errMsg)
	return &r, nil
}

// GetRun returns the run with its steps, or nil if not found.
func (s *SqlStore) GetRun(ctx context.Context, id string) (*runner.Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	if err := s.loadSteps(ctx, []*runner.Result{r}); err != nil {
		return nil, err
	}
	return r, nil
}

// ListRuns returns runs with their steps, newest first.
func (s *SqlStore) ListRuns(ctx context.Context, scenario string, limit int) ([]*runner.Result, error) {
	q := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if scenario != "" {
		q += ` WHERE scenario = ?`
		args = append(args, scenario)
	}
	q += ` ORDER BY started_at DESC, rowid DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*runner.Result
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	if err := s.loadSteps(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Outcomes returns the step status sequences of recent runs, newest first.
func (s *SqlStore) Outcomes(ctx context.Context, scenario string, limit int) ([]RunOutcome, error) {
	runs, err := s.ListRuns(ctx, scenario, limit)
	if err != nil {
		return nil, err
	}
	out := make([]RunOutcome, len(runs))
	for i, r := range runs {
		out[i] = RunOutcome{RunID: r.ID, State: r.State, Steps: r.Outcomes()}
	}
	return out, nil
}

func (s *SqlStore) loadSteps(ctx context.Context, runs []*runner.Result) error {
	if len(runs) == 0 {
		return nil
	}
	byID := make(map[string]*runner.Result, len(runs))
	args := make([]any, len(runs))
	for i, r := range runs {
		byID[r.ID] = r
		args[i] = r.ID
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(runs)), ",")
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, idx, label, status, elapsed_ms, artifact, condition, error
		 FROM run_steps WHERE run_id IN (`+placeholders+`) ORDER BY run_id, idx`, args...)
	if err != nil {
		return fmt.Errorf("load steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			runID, status             string
			st                        runner.StepResult
			elapsedMS                 int64
			artifact, condition, eMsg sql.NullString
		)
		if err := rows.Scan(&runID, &st.Index, &st.Label, &status, &elapsedMS, &artifact, &condition, &eMsg); err != nil {
			return fmt.Errorf("scan step: %w", err)
		}
		st.Status = runner.StepStatus(status)
		st.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		st.Artifact = nullStr(artifact)
		st.Condition = nullStr(condition)
		st.Error = nullStr(eMsg)
		r := byID[runID]
		r.Steps = append(r.Steps, st)
	}
	return rows.Err()
}
