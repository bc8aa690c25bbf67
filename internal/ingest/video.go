package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/autoshow/pkg/models"
)

// VideoIngester extracts audio from a streaming video URL with yt-dlp.
type VideoIngester struct {
	Tools   MediaTools
	WorkDir string
	Logger  *slog.Logger
}

func (v *VideoIngester) Ingest(ctx context.Context, in models.Input) (*Ingested, error) {
	parsed, err := url.Parse(in.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q is not a video URL", ErrInvalidInput, in.URL)
	}

	title, err := v.Tools.Title(ctx, in.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := os.MkdirAll(v.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating work dir: %w", err)
	}
	out := filepath.Join(v.WorkDir, uuid.NewString()+".wav")
	if err := v.Tools.DownloadAudio(ctx, in.URL, out); err != nil {
		os.Remove(out)
		return nil, fmt.Errorf("downloading video audio: %w", err)
	}

	duration, err := audioDuration(ctx, v.Tools, out, v.Logger)
	if err != nil {
		os.Remove(out)
		return nil, err
	}
	var size int64
	if info, err := os.Stat(out); err == nil {
		size = info.Size()
	}

	return &Ingested{
		AudioPath: out,
		Metadata: models.SourceMetadata{
			Kind:            models.InputVideo,
			Title:           title,
			Source:          in.URL,
			DurationSeconds: duration,
			SizeBytes:       size,
		},
	}, nil
}
