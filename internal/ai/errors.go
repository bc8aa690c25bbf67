package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/autoshow/pkg/models"
)

var (
	ErrNoCredentialedProvider = errors.New("no structured generation provider has credentials")
	ErrAllAttemptsFailed      = errors.New("all structured generation attempts failed")
	ErrInferenceTimeout       = errors.New("ai inference timeout")
	ErrMalformedResponse      = errors.New("malformed structured response")
	ErrUnknownProvider        = errors.New("unknown ai provider")
)

// ExhaustedError lists every failed attempt when the executor gives up.
type ExhaustedError struct {
	Attempts []models.GenerationAttempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for i, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("attempt %d %s/%s: %s", i+1, a.Provider, a.Model, a.Error))
	}
	return fmt.Sprintf("%s after %d attempts: %s", ErrAllAttemptsFailed, len(e.Attempts), strings.Join(parts, "; "))
}

func (e *ExhaustedError) Unwrap() error { return ErrAllAttemptsFailed }
