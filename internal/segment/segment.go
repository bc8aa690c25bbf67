// Package segment splits long audio into fixed windows, transcribes them and
// merges the results into one ordered transcript.
package segment

import (
	"math"
	"strings"

	"github.com/kiranshivaraju/autoshow/pkg/models"
)

// Window is the half-open interval [Start, End) of the source, in seconds.
type Window struct {
	Index int
	Start float64
	End   float64
}

// Duration returns the window length in seconds.
func (w Window) Duration() float64 { return w.End - w.Start }

// OffsetMinutes is the offset handed to the transcription adapter for this window.
func (w Window) OffsetMinutes() float64 { return w.Start / 60 }

// Count returns ceil(duration/window), or 0 for non-positive inputs.
func Count(duration, window float64) int {
	if duration <= 0 || window <= 0 {
		return 0
	}
	return int(math.Ceil(duration / window))
}

// Windows splits duration into Count(duration, window) windows. The last one
// ends at duration.
func Windows(duration, window float64) []Window {
	n := Count(duration, window)
	out := make([]Window, 0, n)
	for i := 0; i < n; i++ {
		start := float64(i) * window
		out = append(out, Window{
			Index: i,
			Start: start,
			End:   math.Min(start+window, duration),
		})
	}
	return out
}

// Merge combines per-window transcripts given in window order. Segments are
// concatenated as-is since adapters already return global timestamps.
func Merge(parts []*models.Transcript) *models.Transcript {
	merged := &models.Transcript{Segments: []models.TranscriptionSegment{}}
	texts := make([]string, 0, len(parts))
	for i, p := range parts {
		if p == nil {
			continue
		}
		if i == 0 || merged.Service == "" {
			merged.Service = p.Service
			merged.Model = p.Model
		}
		merged.Segments = append(merged.Segments, p.Segments...)
		texts = append(texts, p.Text)
		merged.TokenCount += p.TokenCount
		merged.ProcessingTimeMs += p.ProcessingTimeMs
	}
	merged.Text = strings.Join(texts, " ")
	return merged
}
