// Package progress turns stage events into a job's weighted overall percentage.
package progress

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/autoshow/pkg/models"
)

// ErrInvalidWeights is returned when a weight set is not eight positive integers summing to 100.
var ErrInvalidWeights = errors.New("invalid stage weights")

// Weights holds the relative cost of each stage, indexed by Stage.Index().
type Weights [models.StageCount]int

// DefaultWeights reflects transcription and LLM generation dominating wall time.
var DefaultWeights = Weights{12, 35, 5, 20, 5, 5, 5, 13}

// Validate checks that every weight is positive and the total is 100.
func (w Weights) Validate() error {
	sum := 0
	for i, v := range w {
		if v <= 0 {
			return fmt.Errorf("%w: weight %d for stage %d must be positive", ErrInvalidWeights, v, i+1)
		}
		sum += v
	}
	if sum != 100 {
		return fmt.Errorf("%w: weights sum to %d, want 100", ErrInvalidWeights, sum)
	}
	return nil
}

// ParseWeights parses a comma-separated list such as "12,35,5,20,5,5,5,13".
func ParseWeights(s string) (Weights, error) {
	var w Weights
	parts := strings.Split(s, ",")
	if len(parts) != models.StageCount {
		return w, fmt.Errorf("%w: got %d values, want %d", ErrInvalidWeights, len(parts), models.StageCount)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return w, fmt.Errorf("%w: %q is not an integer", ErrInvalidWeights, p)
		}
		w[i] = v
	}
	return w, w.Validate()
}

// Overall returns the job-level percentage when stage is at stepProgress percent.
// Every stage before it counts at full weight.
func (w Weights) Overall(stage models.Stage, stepProgress int) int {
	if !stage.Valid() {
		return 0
	}
	stepProgress = clamp(stepProgress)
	before := 0
	for i := 0; i < stage.Index(); i++ {
		before += w[i]
	}
	partial := math.Round(float64(w[stage.Index()]) * float64(stepProgress) / 100)
	return clamp(before + int(partial))
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
