package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// LyricsSchema is the output schema of the music stage's LLM call.
var LyricsSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"title": {"type": "string"},
		"lyrics": {"type": "string"}
	},
	"required": ["title", "lyrics"],
	"additionalProperties": false
}`)

// Lyrics is the decoded LyricsSchema response.
type Lyrics struct {
	Title  string `json:"title"`
	Lyrics string `json:"lyrics"`
}

// ScenesSchema is the output schema of the video stage's LLM call.
var ScenesSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"scenes": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["scenes"],
	"additionalProperties": false
}`)

// Scenes is the decoded ScenesSchema response.
type Scenes struct {
	Scenes []string `json:"scenes"`
}

// LyricsPrompt asks for a song in style about the generated content.
func LyricsPrompt(style, content string) string {
	if style == "" {
		style = "upbeat pop"
	}
	return fmt.Sprintf("Write song lyrics in the style of %s that capture the main ideas of the content below. "+
		"Keep it under 300 words with a clear chorus.\n\n## Content\n%s", style, strings.TrimSpace(content))
}

// ScenesPrompt asks for count visual scene descriptions for a short video.
func ScenesPrompt(count int, aspectRatio, content string) string {
	if aspectRatio == "" {
		aspectRatio = "16:9"
	}
	return fmt.Sprintf("Describe %d visual scenes for a short %s video about the content below. "+
		"Each scene is one or two sentences a video model can render.\n\n## Content\n%s", count, aspectRatio, strings.TrimSpace(content))
}
