// Package metrics provides Prometheus metrics for the pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// jobsTotal counts finished jobs by outcome ("completed", "error").
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoshow_jobs_total",
			Help: "Total number of finished pipeline jobs",
		},
		[]string{"status"},
	)

	// stageDuration observes how long each stage ran.
	// Buckets: 0.5s up to 30 minutes.
	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autoshow_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 180, 600, 1800},
		},
		[]string{"stage", "status"},
	)

	generationAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoshow_generation_attempts_total",
			Help: "Total number of structured generation provider calls",
		},
		[]string{"provider", "model", "status"},
	)

	// generationFallbacksTotal counts switches away from a failed provider/model.
	generationFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoshow_generation_fallbacks_total",
			Help: "Total number of structured generation fallbacks",
		},
		[]string{"from_provider", "to_provider"},
	)

	transcriptionWindowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "autoshow_transcription_windows_total",
			Help: "Total number of audio windows transcribed",
		},
	)
)

func init() {
	prometheus.MustRegister(jobsTotal)
	prometheus.MustRegister(stageDuration)
	prometheus.MustRegister(generationAttemptsTotal)
	prometheus.MustRegister(generationFallbacksTotal)
	prometheus.MustRegister(transcriptionWindowsTotal)
}

// RecordJob records a finished job.
func RecordJob(status string) {
	jobsTotal.WithLabelValues(status).Inc()
}

// RecordStageDuration records the time a stage spent before reaching status.
func RecordStageDuration(stage, status string, durationSeconds float64) {
	stageDuration.WithLabelValues(stage, status).Observe(durationSeconds)
}

// RecordGenerationAttempt records one provider call; status is "success" or "failed".
func RecordGenerationAttempt(provider, model, status string) {
	generationAttemptsTotal.WithLabelValues(provider, model, status).Inc()
}

func RecordGenerationFallback(fromProvider, toProvider string) {
	generationFallbacksTotal.WithLabelValues(fromProvider, toProvider).Inc()
}

func RecordTranscriptionWindows(n int) {
	transcriptionWindowsTotal.Add(float64(n))
}
