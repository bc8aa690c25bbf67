package progress

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/autoshow/internal/metrics"
	"github.com/kiranshivaraju/autoshow/pkg/models"
)

// SkipFlags marks which optional stages a job does not run.
type SkipFlags struct {
	Speech bool
	Images bool
	Music  bool
	Video  bool
}

// SkipFlagsFor derives the flags from submitted options: an absent block skips its stage.
func SkipFlagsFor(opts models.JobOptions) SkipFlags {
	return SkipFlags{
		Speech: opts.Speech == nil,
		Images: opts.Images == nil,
		Music:  opts.Music == nil,
		Video:  opts.Video == nil,
	}
}

// Skips reports whether stage is flagged as skipped. Required stages never are.
func (f SkipFlags) Skips(stage models.Stage) bool {
	switch stage {
	case models.StageSpeech:
		return f.Speech
	case models.StageImages:
		return f.Images
	case models.StageMusic:
		return f.Music
	case models.StageVideo:
		return f.Video
	}
	return false
}

// StageState is one entry of the per-stage list shown to pollers.
type StageState struct {
	Stage  models.Stage       `json:"stage"`
	Name   string             `json:"name"`
	Status models.StageStatus `json:"status"`
}

// Snapshot is the full progress view written after every event.
type Snapshot struct {
	Status          string       `json:"status"`
	CurrentStep     int          `json:"current_step"`
	StepName        string       `json:"step_name"`
	StepProgress    int          `json:"step_progress"`
	OverallProgress int          `json:"overall_progress"`
	Message         string       `json:"message"`
	SubStep         string       `json:"sub_step,omitempty"`
	Error           string       `json:"error,omitempty"`
	Stages          []StageState `json:"stages"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Progress returns the subset of the snapshot stored on the job row.
func (s Snapshot) Progress() models.JobProgress {
	return models.JobProgress{
		CurrentStep:     s.CurrentStep,
		StepName:        s.StepName,
		StepProgress:    s.StepProgress,
		OverallProgress: s.OverallProgress,
		Message:         s.Message,
	}
}

// Recorder persists snapshots. Failures never affect the pipeline outcome.
type Recorder interface {
	RecordProgress(ctx context.Context, jobID uuid.UUID, snap Snapshot) error
}

// Tracker drives one job's progress. It is owned by the job goroutine; the
// mutex only guards Snapshot reads from other goroutines.
type Tracker struct {
	jobID    uuid.UUID
	weights  Weights
	skip     SkipFlags
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.Mutex
	snap       Snapshot
	terminal   bool
	stageStart map[models.Stage]time.Time
}

// NewTracker returns a tracker with every stage pending.
func NewTracker(jobID uuid.UUID, weights Weights, skip SkipFlags, recorder Recorder, logger *slog.Logger) *Tracker {
	stages := make([]StageState, 0, models.StageCount)
	for _, s := range models.Stages() {
		stages = append(stages, StageState{Stage: s, Name: s.Name(), Status: models.StageStatusPending})
	}
	return &Tracker{
		jobID:      jobID,
		weights:    weights,
		skip:       skip,
		recorder:   recorder,
		logger:     logger.With("job_id", jobID.String()),
		now:        time.Now,
		snap:       Snapshot{Status: models.JobStatusProcessing, Stages: stages},
		stageStart: make(map[models.Stage]time.Time),
	}
}

// StartStep marks stage as processing, or skips it when flagged. It returns
// false when the stage was skipped or the tracker is already terminal.
func (t *Tracker) StartStep(ctx context.Context, stage models.Stage, message string) bool {
	if t.skip.Skips(stage) {
		t.SkipStep(ctx, stage)
		return false
	}
	t.mu.Lock()
	if t.terminal {
		t.mu.Unlock()
		return false
	}
	t.stageStart[stage] = t.now()
	t.mu.Unlock()

	t.logger.Info("stage started", "stage", stage.Name())
	t.record(ctx, stage, 0, models.StageStatusProcessing, message, "")
	return true
}

// UpdateStepProgress records an intermediate percentage for stage.
func (t *Tracker) UpdateStepProgress(ctx context.Context, stage models.Stage, progress int, message string) {
	t.record(ctx, stage, clamp(progress), models.StageStatusProcessing, message, "")
}

// UpdateStepWithSubStep records current/total as a percentage. description is display only.
func (t *Tracker) UpdateStepWithSubStep(ctx context.Context, stage models.Stage, current, total int, description, message string) {
	p := 0
	if total > 0 {
		p = int(math.Round(float64(current) / float64(total) * 100))
	}
	t.record(ctx, stage, clamp(p), models.StageStatusProcessing, message, description)
}

// CompleteStep records stage at 100 percent.
func (t *Tracker) CompleteStep(ctx context.Context, stage models.Stage, message string) {
	t.observe(stage, models.StageStatusCompleted)
	t.logger.Info("stage completed", "stage", stage.Name())
	t.record(ctx, stage, 100, models.StageStatusCompleted, message, "")
}

// SkipStep records stage as skipped. A skipped stage counts at full weight.
func (t *Tracker) SkipStep(ctx context.Context, stage models.Stage) {
	t.logger.Debug("stage skipped", "stage", stage.Name())
	t.record(ctx, stage, 100, models.StageStatusSkipped, stage.Name()+" skipped", "")
}

// Error marks stage failed and makes the tracker terminal. Overall progress
// keeps the last recorded value.
func (t *Tracker) Error(ctx context.Context, stage models.Stage, message, detail string) {
	t.mu.Lock()
	if t.terminal {
		t.mu.Unlock()
		return
	}
	t.terminal = true
	t.snap.Status = models.JobStatusError
	t.snap.CurrentStep = int(stage)
	t.snap.StepName = stage.Name()
	t.snap.StepProgress = 0
	t.snap.Message = message
	t.snap.SubStep = ""
	t.snap.Error = detail
	t.setStageStatus(stage, models.StageStatusError)
	t.snap.UpdatedAt = t.now()
	snap := t.copySnapshot()
	t.mu.Unlock()

	t.observe(stage, models.StageStatusError)
	t.logger.Error("stage failed", "stage", stage.Name(), "error", detail)
	t.persist(ctx, snap)
}

// Finish marks the job completed. Later calls are ignored.
func (t *Tracker) Finish(ctx context.Context, message string) {
	t.mu.Lock()
	if t.terminal {
		t.mu.Unlock()
		return
	}
	t.terminal = true
	t.snap.Status = models.JobStatusCompleted
	t.snap.OverallProgress = 100
	t.snap.Message = message
	t.snap.SubStep = ""
	t.snap.UpdatedAt = t.now()
	snap := t.copySnapshot()
	t.mu.Unlock()

	t.persist(ctx, snap)
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copySnapshot()
}

func (t *Tracker) record(ctx context.Context, stage models.Stage, stepProgress int, status models.StageStatus, message, subStep string) {
	t.mu.Lock()
	if t.terminal {
		t.mu.Unlock()
		return
	}
	t.snap.CurrentStep = int(stage)
	t.snap.StepName = stage.Name()
	t.snap.StepProgress = stepProgress
	t.snap.OverallProgress = t.weights.Overall(stage, stepProgress)
	t.snap.Message = message
	t.snap.SubStep = subStep
	t.setStageStatus(stage, status)
	t.snap.UpdatedAt = t.now()
	snap := t.copySnapshot()
	t.mu.Unlock()

	t.persist(ctx, snap)
}

// persist writes the snapshot. Errors are logged and dropped.
func (t *Tracker) persist(ctx context.Context, snap Snapshot) {
	if t.recorder == nil {
		return
	}
	if err := t.recorder.RecordProgress(ctx, t.jobID, snap); err != nil {
		t.logger.Debug("progress write failed", "error", err)
	}
}

func (t *Tracker) observe(stage models.Stage, status models.StageStatus) {
	t.mu.Lock()
	started, ok := t.stageStart[stage]
	t.mu.Unlock()
	if !ok {
		return
	}
	metrics.RecordStageDuration(stage.Name(), string(status), t.now().Sub(started).Seconds())
}

func (t *Tracker) setStageStatus(stage models.Stage, status models.StageStatus) {
	if stage.Valid() {
		t.snap.Stages[stage.Index()].Status = status
	}
}

func (t *Tracker) copySnapshot() Snapshot {
	s := t.snap
	s.Stages = append([]StageState(nil), t.snap.Stages...)
	return s
}
