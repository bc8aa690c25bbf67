package segment

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kiranshivaraju/autoshow/internal/metrics"
	"github.com/kiranshivaraju/autoshow/pkg/models"
	"golang.org/x/sync/errgroup"
)

// Transcriber converts one audio file into a transcript. Returned timestamps
// must already include offsetMinutes.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, offsetMinutes float64) (*models.Transcript, error)
}

// Extractor copies a time range of an audio file into a new file.
type Extractor interface {
	Extract(ctx context.Context, inputPath, outputPath string, startSecs, durationSecs float64) error
}

// ProgressFunc is called after each window finishes. Calls are serialized.
type ProgressFunc func(done, total int)

// Config holds the split parameters in seconds.
type Config struct {
	ThresholdSecs float64
	WindowSecs    float64
	Concurrency   int
}

// Result is a merged transcript plus the number of windows that produced it.
type Result struct {
	Transcript *models.Transcript
	Windows    int
}

// Splitter routes long sources through windowed transcription and passes
// shorter ones straight to the transcriber.
type Splitter struct {
	cfg         Config
	extractor   Extractor
	transcriber Transcriber
	workDir     string
	logger      *slog.Logger
}

func NewSplitter(cfg Config, extractor Extractor, transcriber Transcriber, workDir string, logger *slog.Logger) *Splitter {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Splitter{
		cfg:         cfg,
		extractor:   extractor,
		transcriber: transcriber,
		workDir:     workDir,
		logger:      logger,
	}
}

// Transcribe returns the transcript for audioPath. durationSecs <= 0 means
// unknown and is treated as below the threshold.
func (s *Splitter) Transcribe(ctx context.Context, audioPath string, durationSecs float64, onProgress ProgressFunc) (*Result, error) {
	if durationSecs <= s.cfg.ThresholdSecs || s.cfg.WindowSecs <= 0 {
		t, err := s.transcriber.Transcribe(ctx, audioPath, 0)
		if err != nil {
			return nil, err
		}
		if onProgress != nil {
			onProgress(1, 1)
		}
		metrics.RecordTranscriptionWindows(1)
		return &Result{Transcript: t, Windows: 1}, nil
	}

	windows := Windows(durationSecs, s.cfg.WindowSecs)
	s.logger.Info("splitting audio",
		"path", audioPath,
		"duration_secs", durationSecs,
		"windows", len(windows),
	)

	parts := make([]*models.Transcript, len(windows))
	paths := make([]string, len(windows))
	defer func() {
		for _, p := range paths {
			if p != "" {
				_ = os.Remove(p)
			}
		}
	}()

	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, w := range windows {
		w := w
		g.Go(func() error {
			out := s.windowPath(audioPath, w.Index)
			paths[w.Index] = out
			if err := s.extractor.Extract(gctx, audioPath, out, w.Start, w.Duration()); err != nil {
				return fmt.Errorf("extract window %d: %w", w.Index, err)
			}
			t, err := s.transcriber.Transcribe(gctx, out, w.OffsetMinutes())
			if err != nil {
				return fmt.Errorf("transcribe window %d: %w", w.Index, err)
			}
			parts[w.Index] = t

			mu.Lock()
			done++
			if onProgress != nil {
				onProgress(done, len(windows))
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics.RecordTranscriptionWindows(len(windows))
	return &Result{Transcript: Merge(parts), Windows: len(windows)}, nil
}

func (s *Splitter) windowPath(audioPath string, index int) string {
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	return filepath.Join(s.workDir, fmt.Sprintf("%s-window-%03d.wav", base, index))
}
