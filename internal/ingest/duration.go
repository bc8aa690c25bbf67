package ingest

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
)

const wavHeaderSize = 44

// audioDuration asks ffprobe for the duration of a WAV work file. When ffprobe
// fails the duration is computed from the RIFF header instead, so long sources
// are still split into windows.
func audioDuration(ctx context.Context, tools MediaTools, path string, logger *slog.Logger) (float64, error) {
	duration, err := tools.Probe(ctx, path)
	if err == nil && duration > 0 {
		return duration, nil
	}
	estimate, werr := wavDuration(path)
	if werr != nil {
		return 0, fmt.Errorf("%w: cannot determine duration of %s: ffprobe: %v; header: %v", ErrInvalidInput, path, err, werr)
	}
	logger.Warn("ffprobe failed, using duration from wav header", "path", path, "error", err, "duration_seconds", estimate)
	return estimate, nil
}

// wavDuration reads the byte rate from a canonical PCM WAV header.
func wavDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return 0, fmt.Errorf("reading wav header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return 0, fmt.Errorf("not a wav file")
	}
	byteRate := binary.LittleEndian.Uint32(header[28:32])
	if byteRate == 0 {
		return 0, fmt.Errorf("wav header has zero byte rate")
	}

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return float64(info.Size()-wavHeaderSize) / float64(byteRate), nil
}
