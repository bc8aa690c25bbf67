package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/autoshow/pkg/models"
)

// FileIngester normalizes a local audio or video file to 16 kHz mono WAV.
type FileIngester struct {
	Tools    MediaTools
	WorkDir  string
	MinBytes int64
	Logger   *slog.Logger
}

func (f *FileIngester) Ingest(ctx context.Context, in models.Input) (*Ingested, error) {
	if in.Path == "" {
		return nil, fmt.Errorf("%w: file input requires a path", ErrInvalidInput)
	}
	info, err := os.Stat(in.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read %s: %v", ErrInvalidInput, in.Path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidInput, in.Path)
	}
	if info.Size() < f.MinBytes {
		return nil, fmt.Errorf("%w: %s is too small (%d bytes, minimum %d)", ErrInvalidInput, in.Path, info.Size(), f.MinBytes)
	}

	if err := os.MkdirAll(f.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating work dir: %w", err)
	}
	out := filepath.Join(f.WorkDir, uuid.NewString()+".wav")
	if err := f.Tools.Normalize(ctx, in.Path, out); err != nil {
		os.Remove(out)
		return nil, fmt.Errorf("normalizing audio: %w", err)
	}

	duration, err := audioDuration(ctx, f.Tools, out, f.Logger)
	if err != nil {
		os.Remove(out)
		return nil, err
	}

	return &Ingested{
		AudioPath: out,
		Metadata: models.SourceMetadata{
			Kind:            models.InputFile,
			Title:           titleFromPath(in.Path),
			Source:          in.Path,
			DurationSeconds: duration,
			SizeBytes:       info.Size(),
		},
	}, nil
}

func titleFromPath(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
