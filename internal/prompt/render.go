package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/autoshow/pkg/models"
)

// Render turns a structured response into markdown, one section per
// selected content type in selection order.
func Render(selection []string, data json.RawMessage) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", fmt.Errorf("decoding generated content: %w", err)
	}

	var b strings.Builder
	for _, key := range selection {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		title := key
		if ct, found := contentTypes[key]; found {
			title = ct.Title
		}
		fmt.Fprintf(&b, "## %s\n\n", title)

		var list []string
		var text string
		switch {
		case json.Unmarshal(raw, &list) == nil:
			for _, item := range list {
				fmt.Fprintf(&b, "- %s\n", item)
			}
		case json.Unmarshal(raw, &text) == nil:
			b.WriteString(text)
			b.WriteString("\n")
		default:
			b.Write(raw)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}

// RenderTranscript formats segments as "[HH:MM:SS] text" lines for the prompt.
func RenderTranscript(segments []models.TranscriptionSegment) string {
	var b strings.Builder
	for _, s := range segments {
		fmt.Fprintf(&b, "[%s] %s\n", FormatTimestamp(s.Start), s.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}
