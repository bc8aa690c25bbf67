package models

// TranscriptionSegment is one timed span of transcribed speech. Start and End
// are seconds from the beginning of the whole source, not of a split window.
type TranscriptionSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// Transcript is the output of a transcription adapter, or of merging several.
type Transcript struct {
	Text             string                 `json:"text"`
	Segments         []TranscriptionSegment `json:"segments"`
	TokenCount       int                    `json:"token_count"`
	ProcessingTimeMs int64                  `json:"processing_time_ms"`
	Service          string                 `json:"service"`
	Model            string                 `json:"model"`
}
