package models

// Stage identifies one of the eight pipeline steps. Values start at 1 so the
// integer form matches the job record's current_step column.
type Stage int

const (
	StageIngest Stage = iota + 1
	StageTranscribe
	StageSelectContent
	StageGenerate
	StageSpeech
	StageImages
	StageMusic
	StageVideo
)

// StageCount is the number of pipeline stages.
const StageCount = 8

var stageNames = [StageCount + 1]string{
	"",
	"Ingest source",
	"Transcribe",
	"Select content",
	"Generate content",
	"Generate speech",
	"Generate images",
	"Generate music",
	"Generate video",
}

// Stages returns every stage in pipeline order.
func Stages() []Stage {
	return []Stage{
		StageIngest, StageTranscribe, StageSelectContent, StageGenerate,
		StageSpeech, StageImages, StageMusic, StageVideo,
	}
}

func (s Stage) Valid() bool { return s >= StageIngest && s <= StageVideo }

// Name is the display label stored in the job's step_name column.
func (s Stage) Name() string {
	if !s.Valid() {
		return "Unknown stage"
	}
	return stageNames[s]
}

// Index is the zero-based position used to address per-stage arrays.
func (s Stage) Index() int { return int(s) - 1 }

// Optional reports whether the stage can be skipped by job options.
func (s Stage) Optional() bool { return s >= StageSpeech && s <= StageVideo }

// StageStatus is the per-stage state reported to pollers.
type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusProcessing StageStatus = "processing"
	StageStatusCompleted  StageStatus = "completed"
	StageStatusSkipped    StageStatus = "skipped"
	StageStatusError      StageStatus = "error"
)
