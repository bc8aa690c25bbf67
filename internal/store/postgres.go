package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/autoshow/pkg/models"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, last_used_at, created_at
		 FROM api_keys WHERE key_prefix = $1`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.LastUsedAt, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, status, current_step, step_name, step_progress, overall_progress, message, options, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, job.Status, job.CurrentStep, job.StepName, job.StepProgress, job.OverallProgress,
		job.Message, rawOrEmpty(job.Options), job.CreatedAt, job.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	var options []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, status, current_step, step_name, step_progress, overall_progress, message,
		        error_message, result_id, options, started_at, completed_at, created_at, updated_at
		 FROM jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.Status, &j.CurrentStep, &j.StepName, &j.StepProgress, &j.OverallProgress, &j.Message,
		&j.ErrorMessage, &j.ResultID, &options, &j.StartedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	j.Options = options
	return &j, nil
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error {
	params := &jobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}
	if err := checkTransition(currentStatus, status); err != nil {
		return err
	}

	now := time.Now().UTC()
	query := `UPDATE jobs SET status = $2, updated_at = $3`
	args := []any{id, status, now}
	argIdx := 4

	if status == models.JobStatusProcessing {
		query += fmt.Sprintf(", started_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if status == models.JobStatusCompleted || status == models.JobStatusError {
		query += fmt.Sprintf(", completed_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	}
	if params.ResultID != nil {
		query += fmt.Sprintf(", result_id = $%d", argIdx)
		args = append(args, *params.ResultID)
		argIdx++
	}

	// Guard against a concurrent transition between the read and the write.
	query += fmt.Sprintf(" WHERE id = $1 AND status = $%d", argIdx)
	args = append(args, currentStatus)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, currentStatus)
	}
	return nil
}

func (s *PostgresStore) UpdateJobProgress(ctx context.Context, id uuid.UUID, p models.JobProgress) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET current_step = $2, step_name = $3, step_progress = $4, overall_progress = $5,
		        message = $6, updated_at = NOW()
		 WHERE id = $1`,
		id, p.CurrentStep, p.StepName, p.StepProgress, p.OverallProgress, p.Message)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Results ---

func (s *PostgresStore) SaveResult(ctx context.Context, r *models.Result) error {
	source, stages, err := marshalResultMetadata(r)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO results (id, job_id, source_metadata, stage_metadata, generated_text, transcript_text, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.JobID, source, stages, r.GeneratedText, r.TranscriptText, r.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetResult(ctx context.Context, id uuid.UUID) (*models.Result, error) {
	var r models.Result
	var source, stages []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, job_id, source_metadata, stage_metadata, generated_text, transcript_text, created_at
		 FROM results WHERE id = $1`, id,
	).Scan(&r.ID, &r.JobID, &source, &stages, &r.GeneratedText, &r.TranscriptText, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	if err := unmarshalResultMetadata(&r, source, stages); err != nil {
		return nil, err
	}
	return &r, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

func rawOrEmpty(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}

func marshalResultMetadata(r *models.Result) ([]byte, []byte, error) {
	source, err := json.Marshal(r.SourceMetadata)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal source metadata: %w", err)
	}
	stages, err := json.Marshal(r.StageMetadata)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal stage metadata: %w", err)
	}
	return source, stages, nil
}

func unmarshalResultMetadata(r *models.Result, source, stages []byte) error {
	if err := json.Unmarshal(source, &r.SourceMetadata); err != nil {
		return fmt.Errorf("unmarshal source metadata: %w", err)
	}
	if err := json.Unmarshal(stages, &r.StageMetadata); err != nil {
		return fmt.Errorf("unmarshal stage metadata: %w", err)
	}
	return nil
}
