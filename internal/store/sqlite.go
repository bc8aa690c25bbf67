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

	"github.com/google/uuid"
	"github.com/kiranshivaraju/autoshow/pkg/models"
	_ "modernc.org/sqlite"
)

var _ Store = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS api_keys (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL UNIQUE,
    key_hash     TEXT NOT NULL,
    key_prefix   TEXT NOT NULL,
    last_used_at TEXT,
    created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_api_keys_prefix ON api_keys (key_prefix);

CREATE TABLE IF NOT EXISTS jobs (
    id               TEXT PRIMARY KEY,
    status           TEXT NOT NULL,
    current_step     INTEGER NOT NULL DEFAULT 0,
    step_name        TEXT NOT NULL DEFAULT '',
    step_progress    INTEGER NOT NULL DEFAULT 0,
    overall_progress INTEGER NOT NULL DEFAULT 0,
    message          TEXT NOT NULL DEFAULT '',
    error_message    TEXT,
    result_id        TEXT,
    options          TEXT NOT NULL DEFAULT '{}',
    started_at       TEXT,
    completed_at     TEXT,
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
    id              TEXT PRIMARY KEY,
    job_id          TEXT NOT NULL UNIQUE REFERENCES jobs (id) ON DELETE CASCADE,
    source_metadata TEXT NOT NULL,
    stage_metadata  TEXT NOT NULL,
    generated_text  TEXT NOT NULL DEFAULT '',
    transcript_text TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL
);
`

// SQLiteStore implements Store on a single-file database for local runs.
// Timestamps are stored as RFC3339Nano text.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer; avoids SQLITE_BUSY between the pipeline goroutines.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- API Keys ---

func (s *SQLiteStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, key_hash, key_prefix, last_used_at, created_at FROM api_keys WHERE key_prefix = ?`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var (
			k           models.APIKey
			id, created string
			lastUsed    sql.NullString
		)
		if err := rows.Scan(&id, &k.Name, &k.KeyHash, &k.KeyPrefix, &lastUsed, &created); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		if k.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse api key id: %w", err)
		}
		k.CreatedAt = parseTime(created)
		k.LastUsedAt = parseNullTime(lastUsed)
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = ? WHERE id = ?`, formatTime(time.Now()), id.String())
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, created_at) VALUES (?, ?, ?, ?, ?)`,
		key.ID.String(), key.Name, key.KeyHash, key.KeyPrefix, formatTime(key.CreatedAt))
	if err != nil {
		if isSQLiteConstraintError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

// --- Jobs ---

func (s *SQLiteStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, status, current_step, step_name, step_progress, overall_progress, message, options, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID.String(), job.Status, job.CurrentStep, job.StepName, job.StepProgress, job.OverallProgress,
		job.Message, string(rawOrEmpty(job.Options)), formatTime(job.CreatedAt), formatTime(job.UpdatedAt))
	if err != nil {
		if isSQLiteConstraintError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var (
		j                                models.Job
		jobID, options, created, updated string
		errMsg, resultID, started, ended sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, current_step, step_name, step_progress, overall_progress, message,
		        error_message, result_id, options, started_at, completed_at, created_at, updated_at
		 FROM jobs WHERE id = ?`, id.String(),
	).Scan(&jobID, &j.Status, &j.CurrentStep, &j.StepName, &j.StepProgress, &j.OverallProgress, &j.Message,
		&errMsg, &resultID, &options, &started, &ended, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	j.ID = id
	j.Options = []byte(options)
	if errMsg.Valid {
		j.ErrorMessage = &errMsg.String
	}
	if resultID.Valid {
		rid, err := uuid.Parse(resultID.String)
		if err != nil {
			return nil, fmt.Errorf("parse result id: %w", err)
		}
		j.ResultID = &rid
	}
	j.StartedAt = parseNullTime(started)
	j.CompletedAt = parseNullTime(ended)
	j.CreatedAt = parseTime(created)
	j.UpdatedAt = parseTime(updated)
	return &j, nil
}

func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error {
	params := &jobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	var currentStatus string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, id.String()).Scan(&currentStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}
	if err := checkTransition(currentStatus, status); err != nil {
		return err
	}

	now := formatTime(time.Now())
	sets := []string{"status = ?", "updated_at = ?"}
	args := []any{status, now}
	if status == models.JobStatusProcessing {
		sets = append(sets, "started_at = ?")
		args = append(args, now)
	}
	if status == models.JobStatusCompleted || status == models.JobStatusError {
		sets = append(sets, "completed_at = ?")
		args = append(args, now)
	}
	if params.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, *params.ErrorMessage)
	}
	if params.ResultID != nil {
		sets = append(sets, "result_id = ?")
		args = append(args, params.ResultID.String())
	}
	args = append(args, id.String(), currentStatus)

	res, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET "+strings.Join(sets, ", ")+" WHERE id = ? AND status = ?", args...)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, currentStatus)
	}
	return nil
}

func (s *SQLiteStore) UpdateJobProgress(ctx context.Context, id uuid.UUID, p models.JobProgress) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET current_step = ?, step_name = ?, step_progress = ?, overall_progress = ?,
		        message = ?, updated_at = ?
		 WHERE id = ?`,
		p.CurrentStep, p.StepName, p.StepProgress, p.OverallProgress, p.Message, formatTime(time.Now()), id.String())
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Results ---

func (s *SQLiteStore) SaveResult(ctx context.Context, r *models.Result) error {
	source, stages, err := marshalResultMetadata(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (id, job_id, source_metadata, stage_metadata, generated_text, transcript_text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.JobID.String(), string(source), string(stages), r.GeneratedText, r.TranscriptText,
		formatTime(r.CreatedAt))
	if err != nil {
		if isSQLiteConstraintError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetResult(ctx context.Context, id uuid.UUID) (*models.Result, error) {
	var (
		r                                   models.Result
		rid, jobID, source, stages, created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, job_id, source_metadata, stage_metadata, generated_text, transcript_text, created_at
		 FROM results WHERE id = ?`, id.String(),
	).Scan(&rid, &jobID, &source, &stages, &r.GeneratedText, &r.TranscriptText, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	r.ID = id
	if r.JobID, err = uuid.Parse(jobID); err != nil {
		return nil, fmt.Errorf("parse job id: %w", err)
	}
	r.CreatedAt = parseTime(created)
	if err := unmarshalResultMetadata(&r, []byte(source), []byte(stages)); err != nil {
		return nil, err
	}
	return &r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func isSQLiteConstraintError(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY")
}
