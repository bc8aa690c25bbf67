// Package ingest turns a job's input descriptor into normalized audio or
// document text plus source metadata.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kiranshivaraju/autoshow/pkg/models"
)

// ErrInvalidInput marks sources that are unreadable, too small or unsupported.
var ErrInvalidInput = errors.New("invalid input")

// Ingested is the output of one ingestion strategy. Exactly one of AudioPath
// and Text is set.
type Ingested struct {
	AudioPath string
	Text      string
	Metadata  models.SourceMetadata
}

// IsDocument reports whether the source carries text instead of audio.
func (i *Ingested) IsDocument() bool { return i.AudioPath == "" }

// Ingester implements one strategy.
type Ingester interface {
	Ingest(ctx context.Context, in models.Input) (*Ingested, error)
}

// MediaTools is the subset of media.Tools ingestion needs.
type MediaTools interface {
	Normalize(ctx context.Context, inputPath, outputPath string) error
	Probe(ctx context.Context, path string) (float64, error)
	Title(ctx context.Context, url string) (string, error)
	DownloadAudio(ctx context.Context, url, outputPath string) error
}

// Router dispatches on the input kind. Exactly one strategy runs per job.
type Router struct {
	strategies map[models.InputKind]Ingester
	logger     *slog.Logger
}

func NewRouter(logger *slog.Logger, strategies map[models.InputKind]Ingester) *Router {
	return &Router{strategies: strategies, logger: logger}
}

// NewDefaultRouter wires the four built-in strategies.
func NewDefaultRouter(tools MediaTools, workDir string, minBytes, maxDownloadBytes int64, logger *slog.Logger) *Router {
	file := &FileIngester{Tools: tools, WorkDir: workDir, MinBytes: minBytes, Logger: logger}
	return NewRouter(logger, map[models.InputKind]Ingester{
		models.InputFile:     file,
		models.InputURL:      &URLIngester{File: file, WorkDir: workDir, MaxBytes: maxDownloadBytes},
		models.InputVideo:    &VideoIngester{Tools: tools, WorkDir: workDir, Logger: logger},
		models.InputDocument: &DocumentIngester{MinBytes: 1},
	})
}

func (r *Router) Ingest(ctx context.Context, in models.Input) (*Ingested, error) {
	s, ok := r.strategies[in.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported input kind %q", ErrInvalidInput, in.Kind)
	}
	r.logger.Debug("ingesting source", "kind", in.Kind, "path", in.Path, "url", in.URL)
	return s.Ingest(ctx, in)
}
