package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/autoshow/internal/cache"
	"github.com/kiranshivaraju/autoshow/internal/ingest"
	"github.com/kiranshivaraju/autoshow/internal/metrics"
	"github.com/kiranshivaraju/autoshow/internal/progress"
	"github.com/kiranshivaraju/autoshow/internal/prompt"
	"github.com/kiranshivaraju/autoshow/internal/store"
	"github.com/kiranshivaraju/autoshow/pkg/models"
)

// jobRun is the state threaded through the stages of one job.
type jobRun struct {
	id      uuid.UUID
	opts    models.JobOptions
	tracker *progress.Tracker
	logger  *slog.Logger
	current models.Stage

	ingested         *ingest.Ingested
	transcript       *models.Transcript
	promptTranscript string
	built            *prompt.Built
	generated        string
	stages           models.StageMetadata
}

type stageStep struct {
	stage models.Stage
	start string
	done  string
	run   func(ctx context.Context, r *jobRun) error
}

func (s *Service) steps() []stageStep {
	return []stageStep{
		{models.StageIngest, "Ingesting source", "Source ingested", s.ingest},
		{models.StageTranscribe, "Transcribing audio", "Transcription complete", s.transcribe},
		{models.StageSelectContent, "Selecting content", "Prompt assembled", s.selectContent},
		{models.StageGenerate, "Generating content", "Content generated", s.generate},
		{models.StageSpeech, "Generating speech", "Speech generated", s.speech},
		{models.StageImages, "Generating images", "Images generated", s.images},
		{models.StageMusic, "Generating music", "Music generated", s.music},
		{models.StageVideo, "Generating video", "Video generated", s.video},
	}
}

// recorder writes every progress event to the cache and the job row.
type recorder struct {
	store store.Store
	cache cache.Cache
	ttl   time.Duration
}

func (r *recorder) RecordProgress(ctx context.Context, jobID uuid.UUID, snap progress.Snapshot) error {
	var cacheErr error
	if r.cache != nil {
		cacheErr = r.cache.SetJobProgress(ctx, jobID, snap, r.ttl)
	}
	return errors.Join(cacheErr, r.store.UpdateJobProgress(ctx, jobID, snap.Progress()))
}

// run executes one job to completion. It recovers from panics and always
// leaves the job completed or error.
func (s *Service) run(jobID uuid.UUID, opts models.JobOptions) {
	defer s.wg.Done()
	ctx := context.Background()
	logger := s.deps.Logger.With("job_id", jobID.String())

	rec := &recorder{store: s.deps.Store, cache: s.deps.Cache, ttl: s.deps.ProgressTTL}
	r := &jobRun{
		id:      jobID,
		opts:    opts,
		tracker: progress.NewTracker(jobID, s.deps.Weights, progress.SkipFlagsFor(opts), rec, logger),
		logger:  logger,
		current: models.StageIngest,
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Error("panic in job", "error", p, "stage", r.current.Name())
			s.fail(ctx, r, fmt.Errorf("panic: %v", p))
		}
	}()
	defer r.cleanup()

	if err := s.deps.Store.UpdateJobStatus(ctx, jobID, models.JobStatusProcessing); err != nil {
		logger.Error("marking job processing", "error", err)
		s.fail(ctx, r, err)
		return
	}

	for _, step := range s.steps() {
		r.current = step.stage
		if !r.tracker.StartStep(ctx, step.stage, step.start) {
			continue
		}
		if err := step.run(ctx, r); err != nil {
			s.fail(ctx, r, err)
			return
		}
		r.tracker.CompleteStep(ctx, step.stage, step.done)
	}

	result := &models.Result{
		ID:             uuid.New(),
		JobID:          jobID,
		SourceMetadata: r.ingested.Metadata,
		StageMetadata:  r.stages,
		GeneratedText:  r.generated,
		TranscriptText: r.transcript.Text,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.deps.Store.SaveResult(ctx, result); err != nil {
		s.fail(ctx, r, fmt.Errorf("saving result: %w", err))
		return
	}

	r.tracker.Finish(ctx, "Done")
	if err := s.deps.Store.UpdateJobStatus(ctx, jobID, models.JobStatusCompleted, store.WithResultID(result.ID)); err != nil {
		logger.Error("marking job completed", "error", err)
	}
	metrics.RecordJob(models.JobStatusCompleted)
	logger.Info("job completed", "result_id", result.ID)
}

// fail records err against the current stage and marks the job as error.
func (s *Service) fail(ctx context.Context, r *jobRun, err error) {
	message := fmt.Sprintf("%s failed", r.current.Name())
	detail := err.Error()
	r.tracker.Error(ctx, r.current, message, detail)

	if uerr := s.deps.Store.UpdateJobStatus(ctx, r.id, models.JobStatusError,
		store.WithErrorMessage(fmt.Sprintf("%s: %s", message, detail))); uerr != nil {
		r.logger.Error("marking job error", "error", uerr)
	}
	metrics.RecordJob(models.JobStatusError)
}

func (r *jobRun) cleanup() {
	if r.ingested != nil && r.ingested.AudioPath != "" {
		if err := os.Remove(r.ingested.AudioPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.logger.Debug("removing work file", "path", r.ingested.AudioPath, "error", err)
		}
	}
}
