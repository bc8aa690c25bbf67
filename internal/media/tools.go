package media

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrCommandFailed = errors.New("media command failed")

// Tools runs the media binaries configured for the process.
type Tools struct {
	FFmpegPath  string
	FFprobePath string
	YtDlpPath   string
	Runner      Runner
}

// NewTools returns Tools backed by os/exec. Empty paths fall back to the binary name.
func NewTools(ffmpeg, ffprobe, ytdlp string) *Tools {
	t := &Tools{FFmpegPath: ffmpeg, FFprobePath: ffprobe, YtDlpPath: ytdlp, Runner: ExecRunner{}}
	if t.FFmpegPath == "" {
		t.FFmpegPath = "ffmpeg"
	}
	if t.FFprobePath == "" {
		t.FFprobePath = "ffprobe"
	}
	if t.YtDlpPath == "" {
		t.YtDlpPath = "yt-dlp"
	}
	return t
}

// Normalize converts any audio or video input into 16 kHz mono PCM WAV.
func (t *Tools) Normalize(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-i", inputPath,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y", outputPath,
	}
	return t.run(ctx, t.FFmpegPath, args...)
}

// Extract copies the window [startSecs, startSecs+durationSecs) of inputPath into outputPath.
func (t *Tools) Extract(ctx context.Context, inputPath, outputPath string, startSecs, durationSecs float64) error {
	args := []string{
		"-ss", formatSeconds(startSecs),
		"-t", formatSeconds(durationSecs),
		"-i", inputPath,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y", outputPath,
	}
	return t.run(ctx, t.FFmpegPath, args...)
}

// Probe returns the duration of path in seconds.
func (t *Tools) Probe(ctx context.Context, path string) (float64, error) {
	res, err := t.Runner.Run(ctx, t.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe %s: %s", ErrCommandFailed, path, strings.TrimSpace(res.Stderr))
	}
	out := strings.TrimSpace(res.Stdout)
	d, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", out, err)
	}
	return d, nil
}

// Title asks yt-dlp for the title of a streaming video URL.
func (t *Tools) Title(ctx context.Context, url string) (string, error) {
	res, err := t.Runner.Run(ctx, t.YtDlpPath, "--print", "title", "--skip-download", url)
	if err != nil {
		return "", fmt.Errorf("%w: yt-dlp title: %s", ErrCommandFailed, strings.TrimSpace(res.Stderr))
	}
	return strings.TrimSpace(res.Stdout), nil
}

// DownloadAudio fetches the best audio stream of url into outputPath as wav.
func (t *Tools) DownloadAudio(ctx context.Context, url, outputPath string) error {
	return t.run(ctx, t.YtDlpPath,
		"--no-playlist",
		"-x", "--audio-format", "wav",
		"-o", outputPath,
		url,
	)
}

func (t *Tools) run(ctx context.Context, name string, args ...string) error {
	res, err := t.Runner.Run(ctx, name, args...)
	if err != nil {
		return fmt.Errorf("%w: %s exited %d: %s", ErrCommandFailed, name, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
