package store_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/autoshow/internal/config"
	"github.com/kiranshivaraju/autoshow/internal/store"
	"github.com/kiranshivaraju/autoshow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupPostgres spins up a Postgres container, runs migrations, and returns a store.
func setupPostgres(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("autoshow_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, store.RunMigrations(connStr, migrationsDir()))
	// Second run is a no-op.
	require.NoError(t, store.RunMigrations(connStr, migrationsDir()))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return store.NewPostgresStore(pool)
}

func setupSQLite(t *testing.T) store.Store {
	t.Helper()
	s, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "data", "autoshow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// backends runs fn against every Store implementation available in this run.
func backends(t *testing.T, fn func(t *testing.T, s store.Store)) {
	t.Run("sqlite", func(t *testing.T) {
		fn(t, setupSQLite(t))
	})
	t.Run("postgres", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping integration test")
		}
		fn(t, setupPostgres(t))
	})
}

func newJob() *models.Job {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Job{
		ID:        uuid.New(),
		Status:    models.JobStatusPending,
		Message:   "Queued",
		Options:   json.RawMessage(`{"input":{"kind":"file","path":"/tmp/a.mp3"}}`),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPing(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		assert.NoError(t, s.Ping(context.Background()))
	})
}

// --- API Key Tests ---

func TestAPIKey_CreateAndGet(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		key := &models.APIKey{
			ID:        uuid.New(),
			Name:      "test-key",
			KeyHash:   "bcrypt-hash-here",
			KeyPrefix: "as_abcd1",
			CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		}
		require.NoError(t, s.CreateAPIKey(ctx, key))

		keys, err := s.GetAPIKeyByPrefix(ctx, "as_abcd1")
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.Equal(t, key.ID, keys[0].ID)
		assert.Equal(t, "test-key", keys[0].Name)
		assert.Equal(t, "bcrypt-hash-here", keys[0].KeyHash)
		assert.Nil(t, keys[0].LastUsedAt)

		require.NoError(t, s.UpdateAPIKeyLastUsed(ctx, key.ID))
		keys, err = s.GetAPIKeyByPrefix(ctx, "as_abcd1")
		require.NoError(t, err)
		require.NotNil(t, keys[0].LastUsedAt)

		none, err := s.GetAPIKeyByPrefix(ctx, "as_zzzz9")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestAPIKey_DuplicateName(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		now := time.Now().UTC()
		require.NoError(t, s.CreateAPIKey(ctx, &models.APIKey{ID: uuid.New(), Name: "ci", KeyHash: "h1", KeyPrefix: "as_11111", CreatedAt: now}))
		err := s.CreateAPIKey(ctx, &models.APIKey{ID: uuid.New(), Name: "ci", KeyHash: "h2", KeyPrefix: "as_22222", CreatedAt: now})
		assert.ErrorIs(t, err, store.ErrDuplicateKey)
	})
}

// --- Job Tests ---

func TestJob_CreateAndGet(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		job := newJob()
		require.NoError(t, s.CreateJob(ctx, job))

		got, err := s.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
		assert.Equal(t, models.JobStatusPending, got.Status)
		assert.Equal(t, "Queued", got.Message)
		assert.JSONEq(t, string(job.Options), string(got.Options))
		assert.Nil(t, got.StartedAt)
		assert.Nil(t, got.ResultID)
		assert.WithinDuration(t, job.CreatedAt, got.CreatedAt, time.Second)
	})
}

func TestJob_NotFound(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		_, err := s.GetJob(context.Background(), uuid.New())
		assert.ErrorIs(t, err, store.ErrNotFound)

		err = s.UpdateJobStatus(context.Background(), uuid.New(), models.JobStatusProcessing)
		assert.ErrorIs(t, err, store.ErrNotFound)

		err = s.UpdateJobProgress(context.Background(), uuid.New(), models.JobProgress{})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestJob_StatusTransitions(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		job := newJob()
		require.NoError(t, s.CreateJob(ctx, job))

		err := s.UpdateJobStatus(ctx, job.ID, models.JobStatusCompleted)
		assert.ErrorIs(t, err, store.ErrInvalidTransition)

		require.NoError(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusProcessing))
		got, err := s.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusProcessing, got.Status)
		assert.NotNil(t, got.StartedAt)

		require.NoError(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusError, store.WithErrorMessage("Transcribe failed")))
		got, err = s.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusError, got.Status)
		require.NotNil(t, got.ErrorMessage)
		assert.Equal(t, "Transcribe failed", *got.ErrorMessage)
		assert.NotNil(t, got.CompletedAt)

		// Terminal states do not move.
		err = s.UpdateJobStatus(ctx, job.ID, models.JobStatusProcessing)
		assert.ErrorIs(t, err, store.ErrInvalidTransition)
	})
}

func TestJob_Progress(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		job := newJob()
		require.NoError(t, s.CreateJob(ctx, job))

		p := models.JobProgress{CurrentStep: 2, StepName: "Transcribe", StepProgress: 50, OverallProgress: 30, Message: "Transcribing window 2 of 4"}
		require.NoError(t, s.UpdateJobProgress(ctx, job.ID, p))

		got, err := s.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.CurrentStep)
		assert.Equal(t, "Transcribe", got.StepName)
		assert.Equal(t, 50, got.StepProgress)
		assert.Equal(t, 30, got.OverallProgress)
		assert.Equal(t, "Transcribing window 2 of 4", got.Message)
	})
}

// --- Result Tests ---

func TestResult_SaveAndGet(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		job := newJob()
		require.NoError(t, s.CreateJob(ctx, job))

		result := &models.Result{
			ID:    uuid.New(),
			JobID: job.ID,
			SourceMetadata: models.SourceMetadata{
				Kind:            models.InputFile,
				Title:           "episode",
				Source:          "/tmp/a.mp3",
				DurationSeconds: 3900,
			},
			StageMetadata: models.StageMetadata{
				Transcription: &models.TranscriptionMetadata{Service: "whisper", Model: "whisper-1", Windows: 3, TokenCount: 1200},
				Generation: &models.GenerationMetadata{
					Provider:     "openai",
					Model:        "gpt-4o-mini",
					InputTokens:  900,
					OutputTokens: 300,
					Attempts: []models.GenerationAttempt{
						{Provider: "openai", Model: "gpt-4o", Error: "status 503: overloaded"},
					},
				},
			},
			GeneratedText:  "## Episode Summary\n\nGreat show.",
			TranscriptText: "hello world",
			CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
		}
		require.NoError(t, s.SaveResult(ctx, result))

		got, err := s.GetResult(ctx, result.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.JobID)
		assert.Equal(t, result.SourceMetadata, got.SourceMetadata)
		require.NotNil(t, got.StageMetadata.Transcription)
		assert.Equal(t, 3, got.StageMetadata.Transcription.Windows)
		require.NotNil(t, got.StageMetadata.Generation)
		assert.Equal(t, "openai", got.StageMetadata.Generation.Provider)
		assert.Equal(t, result.StageMetadata.Generation.Attempts, got.StageMetadata.Generation.Attempts)
		assert.Nil(t, got.StageMetadata.Speech)
		assert.Equal(t, result.GeneratedText, got.GeneratedText)

		// One result per job.
		dup := *result
		dup.ID = uuid.New()
		assert.ErrorIs(t, s.SaveResult(ctx, &dup), store.ErrDuplicateKey)

		_, err = s.GetResult(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusProcessing))
		require.NoError(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusCompleted, store.WithResultID(result.ID)))
		gotJob, err := s.GetJob(ctx, job.ID)
		require.NoError(t, err)
		require.NotNil(t, gotJob.ResultID)
		assert.Equal(t, result.ID, *gotJob.ResultID)
	})
}

func TestOpen_SQLiteScheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open.db")
	s, err := store.Open(context.Background(), configFor("sqlite://"+path))
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &store.SQLiteStore{}, s)
	assert.NoError(t, store.RunMigrations("sqlite://"+path, migrationsDir()))
}

func configFor(url string) config.DatabaseConfig {
	return config.DatabaseConfig{URL: url, MaxOpenConns: 5, MaxIdleConns: 1}
}
