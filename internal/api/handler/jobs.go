package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/autoshow/internal/api/response"
	"github.com/kiranshivaraju/autoshow/internal/pipeline"
	"github.com/kiranshivaraju/autoshow/internal/progress"
	"github.com/kiranshivaraju/autoshow/internal/store"
	"github.com/kiranshivaraju/autoshow/pkg/models"
)

// maxOptionsBytes bounds the POST /api/v1/jobs body.
const maxOptionsBytes = 1 << 20

// JobSubmitter starts pipeline jobs.
type JobSubmitter interface {
	Submit(ctx context.Context, opts models.JobOptions) (*models.Job, error)
}

// JobReader loads persisted job rows.
type JobReader interface {
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// ProgressReader returns the live snapshot written by the running job.
type ProgressReader interface {
	GetJobProgress(ctx context.Context, jobID uuid.UUID) (*progress.Snapshot, bool, error)
}

// NewSubmitJobHandler returns an http.HandlerFunc for POST /api/v1/jobs.
func NewSubmitJobHandler(svc JobSubmitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var opts models.JobOptions
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOptionsBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&opts); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.Submit(r.Context(), opts)
		if err != nil {
			if errors.Is(err, pipeline.ErrInvalidInput) {
				response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
				return
			}
			slog.Error("submitting job", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.Accepted(w, jobResponse{Job: job})
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
// The stored row is merged with the cached snapshot, which carries the
// per-stage list and sub-step text and is written before the row.
func NewGetJobHandler(jobs JobReader, live ProgressReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		job, err := jobs.GetJob(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Job not found", nil)
				return
			}
			slog.Error("loading job", "error", err, "job_id", id)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		resp := jobResponse{Job: job}
		if live != nil {
			snap, ok, err := live.GetJobProgress(r.Context(), id)
			if err != nil {
				slog.Warn("reading job progress from cache", "error", err, "job_id", id)
			}
			if ok {
				resp.merge(snap)
			}
		}

		response.JSON(w, resp)
	}
}

type jobResponse struct {
	*models.Job
	SubStep string                `json:"sub_step,omitempty"`
	Stages  []progress.StageState `json:"stages,omitempty"`
}

// merge overlays the snapshot onto a job that is still running. Terminal rows
// are authoritative for status and progress.
func (j *jobResponse) merge(snap *progress.Snapshot) {
	j.Stages = snap.Stages
	if j.Job.IsTerminal() {
		return
	}
	j.SubStep = snap.SubStep
	j.Job.CurrentStep = snap.CurrentStep
	j.Job.StepName = snap.StepName
	j.Job.StepProgress = snap.StepProgress
	j.Job.OverallProgress = snap.OverallProgress
	j.Job.Message = snap.Message
}
