// Package pipeline runs the eight-stage job state machine: ingest, transcribe,
// select content, generate, then the optional speech, image, music and video
// stages.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/autoshow/internal/ai"
	"github.com/kiranshivaraju/autoshow/internal/artifact"
	"github.com/kiranshivaraju/autoshow/internal/cache"
	"github.com/kiranshivaraju/autoshow/internal/ingest"
	"github.com/kiranshivaraju/autoshow/internal/progress"
	"github.com/kiranshivaraju/autoshow/internal/prompt"
	"github.com/kiranshivaraju/autoshow/internal/segment"
	"github.com/kiranshivaraju/autoshow/internal/store"
	"github.com/kiranshivaraju/autoshow/pkg/models"
)

// ErrInvalidInput is returned by Submit for options that cannot run, and by
// ingestion for unusable sources.
var ErrInvalidInput = ingest.ErrInvalidInput

// ErrConfiguration marks a requested capability with no configured provider.
var ErrConfiguration = errors.New("configuration error")

// DefaultProgressTTL bounds how long a job's snapshot stays in the cache.
const DefaultProgressTTL = 30 * time.Minute

// TranscriberFunc returns the transcription adapter for a requested model.
// An empty model means the configured default.
type TranscriberFunc func(model string) segment.Transcriber

// Dependencies holds everything the coordinator calls out to.
type Dependencies struct {
	Store       store.Store
	Cache       cache.Cache
	Ingester    ingest.Ingester
	Transcriber TranscriberFunc
	Extractor   segment.Extractor
	Executor    *ai.Executor
	Artifacts   artifact.Set
	Weights     progress.Weights
	Segment     segment.Config
	WorkDir     string
	ProgressTTL time.Duration
	Logger      *slog.Logger
}

// Service accepts jobs and runs each one in its own goroutine.
type Service struct {
	deps Dependencies
	wg   sync.WaitGroup
}

func NewService(deps Dependencies) *Service {
	if deps.ProgressTTL <= 0 {
		deps.ProgressTTL = DefaultProgressTTL
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// Submit validates opts, persists a pending job and starts it in the
// background. The returned job is in the pending state.
func (s *Service) Submit(ctx context.Context, opts models.JobOptions) (*models.Job, error) {
	if err := Validate(opts); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("encoding options: %w", err)
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:        uuid.New(),
		Status:    models.JobStatusPending,
		Message:   "Queued",
		Options:   raw,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.deps.Store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	if s.deps.Cache != nil {
		_ = s.deps.Cache.SetJobProgress(ctx, job.ID, progress.Snapshot{
			Status:    models.JobStatusPending,
			Message:   job.Message,
			UpdatedAt: now,
		}, s.deps.ProgressTTL)
	}

	s.deps.Logger.Info("job submitted", "job_id", job.ID, "input_kind", opts.Input.Kind)

	s.wg.Add(1)
	go s.run(job.ID, opts)

	return job, nil
}

// Wait blocks until every started job has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Catalog exposes the provider catalog for the providers endpoint.
func (s *Service) Catalog() *ai.Catalog {
	return s.deps.Executor.Catalog()
}

// Validate checks options before a job is created.
func Validate(opts models.JobOptions) error {
	in := opts.Input
	if !in.Kind.Valid() {
		return fmt.Errorf("%w: unsupported input kind %q", ErrInvalidInput, in.Kind)
	}
	switch in.Kind {
	case models.InputFile, models.InputDocument:
		if strings.TrimSpace(in.Path) == "" {
			return fmt.Errorf("%w: input.path is required for %s inputs", ErrInvalidInput, in.Kind)
		}
	case models.InputURL, models.InputVideo:
		if strings.TrimSpace(in.URL) == "" {
			return fmt.Errorf("%w: input.url is required for %s inputs", ErrInvalidInput, in.Kind)
		}
	}
	if err := prompt.Validate(opts.Prompts); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if opts.Images != nil {
		if len(opts.Images.Prompts) == 0 {
			return fmt.Errorf("%w: images.prompts must not be empty", ErrInvalidInput)
		}
		for i, p := range opts.Images.Prompts {
			if strings.TrimSpace(p) == "" {
				return fmt.Errorf("%w: images.prompts[%d] is empty", ErrInvalidInput, i)
			}
		}
	}
	if opts.Video != nil && opts.Video.Scenes <= 0 {
		return fmt.Errorf("%w: video.scenes must be positive", ErrInvalidInput)
	}
	return nil
}
