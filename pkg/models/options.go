package models

// InputKind selects the ingestion strategy for a job.
type InputKind string

const (
	InputFile     InputKind = "file"
	InputURL      InputKind = "url"
	InputVideo    InputKind = "video"
	InputDocument InputKind = "document"
)

// Valid reports whether k is one of the supported input kinds.
func (k InputKind) Valid() bool {
	switch k {
	case InputFile, InputURL, InputVideo, InputDocument:
		return true
	}
	return false
}

// Input describes the source material. Path is used for file and document
// inputs; URL for url and video inputs.
type Input struct {
	Kind InputKind `json:"kind"`
	Path string    `json:"path,omitempty"`
	URL  string    `json:"url,omitempty"`
}

type TranscriptionOptions struct {
	Model string `json:"model,omitempty"`
}

type LLMOptions struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

type SpeechOptions struct {
	Voice string `json:"voice,omitempty"`
}

type ImageOptions struct {
	Prompts []string `json:"prompts"`
	Size    string   `json:"size,omitempty"`
}

type MusicOptions struct {
	Style string `json:"style,omitempty"`
}

type VideoOptions struct {
	Scenes      int    `json:"scenes"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
}

// JobOptions is the body of POST /api/v1/jobs. A nil optional block means the
// corresponding stage is skipped.
type JobOptions struct {
	Input         Input                `json:"input"`
	Transcription TranscriptionOptions `json:"transcription"`
	LLM           LLMOptions           `json:"llm"`
	Prompts       []string             `json:"prompts"`
	Speech        *SpeechOptions       `json:"speech,omitempty"`
	Images        *ImageOptions        `json:"images,omitempty"`
	Music         *MusicOptions        `json:"music,omitempty"`
	Video         *VideoOptions        `json:"video,omitempty"`
}
