// Package prompt assembles LLM prompts and output schemas from the content
// types a job selects, and renders structured responses to markdown.
package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kiranshivaraju/autoshow/pkg/models"
)

var ErrUnknownContentType = errors.New("unknown content type")

// ContentType is one selectable output section.
type ContentType struct {
	Key         string
	Title       string
	Instruction string
	// List marks sections returned as an array of strings.
	List bool
}

var contentTypes = map[string]ContentType{
	"titles":       {Key: "titles", Title: "Potential Titles", Instruction: "Write 4 potential titles for the content, from short and punchy to descriptive.", List: true},
	"shortSummary": {Key: "shortSummary", Title: "Episode Summary", Instruction: "Write a one sentence description of the content under 180 characters."},
	"longSummary":  {Key: "longSummary", Title: "Episode Description", Instruction: "Write a three to five paragraph description of the content covering every major topic."},
	"bulletPoints": {Key: "bulletPoints", Title: "Key Points", Instruction: "List the most important points made in the content as short bullet points.", List: true},
	"chapters":     {Key: "chapters", Title: "Chapters", Instruction: "Split the content into chapters. Each entry starts with a timestamp in HH:MM:SS taken from the transcript, followed by a chapter title and a one paragraph description.", List: true},
	"quotes":       {Key: "quotes", Title: "Notable Quotes", Instruction: "Select the five most insightful or memorable quotes, verbatim from the transcript.", List: true},
	"faq":          {Key: "faq", Title: "FAQ", Instruction: "Write five frequently asked questions about the content, each followed by its answer.", List: true},
	"blog":         {Key: "blog", Title: "Blog Post", Instruction: "Write a blog post of at least 750 words based on the content, with a title and section headings in markdown."},
	"linkedin":     {Key: "linkedin", Title: "LinkedIn Post", Instruction: "Write a LinkedIn post promoting the content in a professional tone."},
	"twitter":      {Key: "twitter", Title: "Tweet", Instruction: "Write a tweet under 280 characters promoting the content."},
	"instagram":    {Key: "instagram", Title: "Instagram Caption", Instruction: "Write an Instagram caption for the content with relevant hashtags."},
	"rapSong":      {Key: "rapSong", Title: "Rap Song", Instruction: "Write a rap song about the content with verses and a chorus."},
}

// DefaultSelection is used when a job names no content types.
var DefaultSelection = []string{"shortSummary", "longSummary", "chapters"}

// ContentTypes returns every supported key, sorted.
func ContentTypes() []string {
	keys := make([]string, 0, len(contentTypes))
	for k := range contentTypes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the content type for key.
func Lookup(key string) (ContentType, bool) {
	ct, ok := contentTypes[key]
	return ct, ok
}

// Validate checks every key in selection.
func Validate(selection []string) error {
	for _, key := range selection {
		if _, ok := contentTypes[key]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownContentType, key)
		}
	}
	return nil
}

// Built is a prompt ready for the executor.
type Built struct {
	Selection []string
	Prompt    string
	Schema    json.RawMessage
}

// Build assembles the instructions for selection, the source metadata and
// the transcript into one prompt, plus the schema requiring every section.
func Build(selection []string, source models.SourceMetadata, transcript string) (*Built, error) {
	if len(selection) == 0 {
		selection = DefaultSelection
	}
	if err := Validate(selection); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("Produce the following sections for the content below. Respond with a JSON object that has one field per section.\n\n")
	for _, key := range selection {
		ct := contentTypes[key]
		fmt.Fprintf(&b, "- %s: %s\n", ct.Key, ct.Instruction)
	}
	b.WriteString("\n## Metadata\n")
	if source.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", source.Title)
	}
	if source.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", source.Source)
	}
	if source.DurationSeconds > 0 {
		fmt.Fprintf(&b, "Duration: %s\n", FormatTimestamp(source.DurationSeconds))
	}
	b.WriteString("\n## Transcript\n")
	b.WriteString(transcript)

	schema, err := sectionSchema(selection)
	if err != nil {
		return nil, err
	}
	return &Built{
		Selection: append([]string(nil), selection...),
		Prompt:    b.String(),
		Schema:    schema,
	}, nil
}

type schemaProperty struct {
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Items       *schemaProperty `json:"items,omitempty"`
}

type objectSchema struct {
	Type                 string                    `json:"type"`
	Properties           map[string]schemaProperty `json:"properties"`
	Required             []string                  `json:"required"`
	AdditionalProperties bool                      `json:"additionalProperties"`
}

func sectionSchema(selection []string) (json.RawMessage, error) {
	s := objectSchema{Type: "object", Properties: map[string]schemaProperty{}}
	for _, key := range selection {
		ct := contentTypes[key]
		prop := schemaProperty{Type: "string", Description: ct.Instruction}
		if ct.List {
			prop = schemaProperty{Type: "array", Description: ct.Instruction, Items: &schemaProperty{Type: "string"}}
		}
		s.Properties[key] = prop
		s.Required = append(s.Required, key)
	}
	return json.Marshal(s)
}

// FormatTimestamp renders seconds as HH:MM:SS.
func FormatTimestamp(secs float64) string {
	total := int(secs)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
