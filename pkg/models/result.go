package models

import (
	"time"

	"github.com/google/uuid"
)

// Result is the artifact bundle persisted once at the end of a successful job.
type Result struct {
	ID             uuid.UUID      `db:"id"              json:"id"`
	JobID          uuid.UUID      `db:"job_id"          json:"job_id"`
	SourceMetadata SourceMetadata `db:"source_metadata" json:"source_metadata"`
	StageMetadata  StageMetadata  `db:"stage_metadata"  json:"stage_metadata"`
	GeneratedText  string         `db:"generated_text"  json:"generated_text"`
	TranscriptText string         `db:"transcript_text" json:"transcript_text"`
	CreatedAt      time.Time      `db:"created_at"      json:"created_at"`
}

// SourceMetadata describes the ingested source.
type SourceMetadata struct {
	Kind            InputKind `json:"kind"`
	Title           string    `json:"title"`
	Source          string    `json:"source"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	SizeBytes       int64     `json:"size_bytes,omitempty"`
}

// StageMetadata holds one sub-record per stage that ran.
type StageMetadata struct {
	Ingest        *IngestMetadata        `json:"ingest,omitempty"`
	Transcription *TranscriptionMetadata `json:"transcription,omitempty"`
	Generation    *GenerationMetadata    `json:"generation,omitempty"`
	Speech        *ArtifactStageMetadata `json:"speech,omitempty"`
	Images        *ArtifactStageMetadata `json:"images,omitempty"`
	Music         *ArtifactStageMetadata `json:"music,omitempty"`
	Video         *ArtifactStageMetadata `json:"video,omitempty"`
}

type IngestMetadata struct {
	Strategy         InputKind `json:"strategy"`
	AudioPath        string    `json:"audio_path,omitempty"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
}

type TranscriptionMetadata struct {
	Service          string `json:"service"`
	Model            string `json:"model"`
	SegmentCount     int    `json:"segment_count"`
	Windows          int    `json:"windows"`
	TokenCount       int    `json:"token_count"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

// GenerationMetadata is tagged with the provider and model that actually
// answered, which may differ from the caller's preference.
type GenerationMetadata struct {
	Provider     string              `json:"provider"`
	Model        string              `json:"model"`
	InputTokens  int                 `json:"input_tokens"`
	OutputTokens int                 `json:"output_tokens"`
	LatencyMs    int64               `json:"latency_ms"`
	Attempts     []GenerationAttempt `json:"attempts"`
	Prompts      []string            `json:"prompts,omitempty"`
}

// ArtifactStageMetadata covers the speech, image, music and video stages.
// Generation and Text are set when the stage made its own LLM call first
// (lyrics for music, scene descriptions for video).
type ArtifactStageMetadata struct {
	Service          string              `json:"service"`
	Artifacts        []Artifact          `json:"artifacts"`
	TotalCost        float64             `json:"total_cost"`
	ProcessingTimeMs int64               `json:"processing_time_ms"`
	Generation       *GenerationMetadata `json:"generation,omitempty"`
	Text             string              `json:"text,omitempty"`
}

// Artifact is a single generated output returned by a non-LLM provider.
type Artifact struct {
	URL              string  `json:"url"`
	Prompt           string  `json:"prompt,omitempty"`
	Cost             float64 `json:"cost"`
	ProcessingTimeMs int64   `json:"processing_time_ms"`
}
