package media

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	run   func(ctx context.Context, name string, args ...string) (CommandResult, error)
	calls [][]string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.run == nil {
		return CommandResult{}, nil
	}
	return f.run(ctx, name, args...)
}

func TestNewTools_Defaults(t *testing.T) {
	tools := NewTools("", "", "")
	assert.Equal(t, "ffmpeg", tools.FFmpegPath)
	assert.Equal(t, "ffprobe", tools.FFprobePath)
	assert.Equal(t, "yt-dlp", tools.YtDlpPath)
}

func TestNormalize_Args(t *testing.T) {
	runner := &fakeRunner{}
	tools := &Tools{FFmpegPath: "ffmpeg-custom", Runner: runner}

	require.NoError(t, tools.Normalize(context.Background(), "in.mp4", "out.wav"))
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"ffmpeg-custom", "-i", "in.mp4", "-ar", "16000", "-ac", "1", "-c:a", "pcm_s16le", "-y", "out.wav"}, runner.calls[0])
}

func TestExtract_Args(t *testing.T) {
	runner := &fakeRunner{}
	tools := &Tools{FFmpegPath: "ffmpeg", Runner: runner}

	require.NoError(t, tools.Extract(context.Background(), "full.wav", "w1.wav", 1800, 1800))
	assert.Equal(t, []string{"ffmpeg", "-ss", "1800.000", "-t", "1800.000", "-i", "full.wav", "-ar", "16000", "-ac", "1", "-c:a", "pcm_s16le", "-y", "w1.wav"}, runner.calls[0])
}

func TestRun_FailureWrapsStderr(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, name string, args ...string) (CommandResult, error) {
		return CommandResult{Stderr: "No such file\n", ExitCode: 1}, errors.New("exit status 1")
	}}
	tools := &Tools{FFmpegPath: "ffmpeg", Runner: runner}

	err := tools.Normalize(context.Background(), "missing.mp4", "out.wav")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.Contains(t, err.Error(), "No such file")
}

func TestProbe(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, name string, args ...string) (CommandResult, error) {
		assert.Equal(t, "ffprobe", name)
		assert.Equal(t, "a.wav", args[len(args)-1])
		return CommandResult{Stdout: "3900.250000\n"}, nil
	}}
	tools := &Tools{FFprobePath: "ffprobe", Runner: runner}

	d, err := tools.Probe(context.Background(), "a.wav")
	require.NoError(t, err)
	assert.InDelta(t, 3900.25, d, 0.0001)
}

func TestProbe_BadOutput(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, name string, args ...string) (CommandResult, error) {
		return CommandResult{Stdout: "N/A"}, nil
	}}
	tools := &Tools{FFprobePath: "ffprobe", Runner: runner}

	_, err := tools.Probe(context.Background(), "a.wav")
	assert.Error(t, err)
}

func TestTitleAndDownload(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, name string, args ...string) (CommandResult, error) {
		if args[0] == "--print" {
			return CommandResult{Stdout: "Episode 12\n"}, nil
		}
		return CommandResult{}, nil
	}}
	tools := &Tools{YtDlpPath: "yt-dlp", Runner: runner}

	title, err := tools.Title(context.Background(), "https://video.example/watch?v=1")
	require.NoError(t, err)
	assert.Equal(t, "Episode 12", title)

	require.NoError(t, tools.DownloadAudio(context.Background(), "https://video.example/watch?v=1", "/tmp/out.wav"))
	last := runner.calls[len(runner.calls)-1]
	assert.Equal(t, "https://video.example/watch?v=1", last[len(last)-1])
	assert.Contains(t, last, "--no-playlist")
}
