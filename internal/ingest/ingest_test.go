package ingest

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kiranshivaraju/autoshow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTools struct {
	duration     float64
	probeErr     error
	title        string
	titleErr     error
	normalizeErr error
	downloadErr  error
	// output replaces the placeholder bytes written by Normalize.
	output      []byte
	normalized  []string
	downloaded  []string
	normalizeIn []string
}

func (f *fakeTools) Normalize(_ context.Context, in, out string) error {
	f.normalizeIn = append(f.normalizeIn, in)
	f.normalized = append(f.normalized, out)
	data := f.output
	if data == nil {
		data = []byte("RIFF")
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	return f.normalizeErr
}

func (f *fakeTools) Probe(context.Context, string) (float64, error) {
	return f.duration, f.probeErr
}

func (f *fakeTools) Title(context.Context, string) (string, error) {
	return f.title, f.titleErr
}

func (f *fakeTools) DownloadAudio(_ context.Context, _ string, out string) error {
	f.downloaded = append(f.downloaded, out)
	if err := os.WriteFile(out, []byte("RIFFDATA"), 0o644); err != nil {
		return err
	}
	return f.downloadErr
}

// wavFile returns a canonical 16 kHz mono 16-bit PCM file of the given length.
func wavFile(seconds int) []byte {
	const byteRate = 16000 * 2
	dataLen := seconds * byteRate
	h := make([]byte, 44, 44+dataLen)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(36+dataLen))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1)
	binary.LittleEndian.PutUint16(h[22:24], 1)
	binary.LittleEndian.PutUint32(h[24:28], 16000)
	binary.LittleEndian.PutUint32(h[28:32], byteRate)
	binary.LittleEndian.PutUint16(h[32:34], 2)
	binary.LittleEndian.PutUint16(h[34:36], 16)
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(dataLen))
	return append(h, make([]byte, dataLen)...)
}

func workFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.wav"))
	require.NoError(t, err)
	return matches
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, make([]byte, size), 0o644))
	return p
}

func TestFileIngester(t *testing.T) {
	t.Run("normalizes and measures duration", func(t *testing.T) {
		dir := t.TempDir()
		src := writeFile(t, dir, "episode-42.mp3", 2048)
		tools := &fakeTools{duration: 3900}
		f := &FileIngester{Tools: tools, WorkDir: filepath.Join(dir, "work"), MinBytes: 1024, Logger: testLogger()}

		res, err := f.Ingest(context.Background(), models.Input{Kind: models.InputFile, Path: src})
		require.NoError(t, err)
		assert.False(t, res.IsDocument())
		assert.Equal(t, tools.normalized[0], res.AudioPath)
		assert.Equal(t, src, tools.normalizeIn[0])
		assert.Equal(t, "episode-42", res.Metadata.Title)
		assert.Equal(t, 3900.0, res.Metadata.DurationSeconds)
		assert.Equal(t, int64(2048), res.Metadata.SizeBytes)
	})

	t.Run("rejects small files", func(t *testing.T) {
		dir := t.TempDir()
		src := writeFile(t, dir, "tiny.mp3", 10)
		f := &FileIngester{Tools: &fakeTools{}, WorkDir: dir, MinBytes: 1024, Logger: testLogger()}

		_, err := f.Ingest(context.Background(), models.Input{Kind: models.InputFile, Path: src})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects missing files", func(t *testing.T) {
		f := &FileIngester{Tools: &fakeTools{}, WorkDir: t.TempDir(), Logger: testLogger()}
		_, err := f.Ingest(context.Background(), models.Input{Kind: models.InputFile, Path: "/does/not/exist.mp3"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("duration from wav header when ffprobe fails", func(t *testing.T) {
		dir := t.TempDir()
		src := writeFile(t, dir, "clip.mp3", 100)
		tools := &fakeTools{probeErr: errors.New("no duration"), output: wavFile(3)}
		f := &FileIngester{Tools: tools, WorkDir: filepath.Join(dir, "work"), Logger: testLogger()}

		res, err := f.Ingest(context.Background(), models.Input{Kind: models.InputFile, Path: src})
		require.NoError(t, err)
		assert.InDelta(t, 3.0, res.Metadata.DurationSeconds, 0.001)
	})

	t.Run("fails when duration is unknowable", func(t *testing.T) {
		dir := t.TempDir()
		src := writeFile(t, dir, "clip.mp3", 100)
		work := filepath.Join(dir, "work")
		f := &FileIngester{Tools: &fakeTools{probeErr: errors.New("no duration")}, WorkDir: work, Logger: testLogger()}

		_, err := f.Ingest(context.Background(), models.Input{Kind: models.InputFile, Path: src})
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Empty(t, workFiles(t, work))
	})

	t.Run("removes partial output when normalize fails", func(t *testing.T) {
		dir := t.TempDir()
		src := writeFile(t, dir, "broken.mp3", 100)
		work := filepath.Join(dir, "work")
		tools := &fakeTools{normalizeErr: errors.New("ffmpeg: exit status 1")}
		f := &FileIngester{Tools: tools, WorkDir: work, Logger: testLogger()}

		_, err := f.Ingest(context.Background(), models.Input{Kind: models.InputFile, Path: src})
		require.Error(t, err)
		require.Len(t, tools.normalized, 1)
		_, statErr := os.Stat(tools.normalized[0])
		assert.True(t, os.IsNotExist(statErr))
		assert.Empty(t, workFiles(t, work))
	})
}

func TestURLIngester(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.mp3" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(make([]byte, 512))
	}))
	defer srv.Close()

	dir := t.TempDir()
	tools := &fakeTools{duration: 60}
	file := &FileIngester{Tools: tools, WorkDir: dir, MinBytes: 100, Logger: testLogger()}
	u := &URLIngester{File: file, WorkDir: dir}

	t.Run("downloads then normalizes", func(t *testing.T) {
		res, err := u.Ingest(context.Background(), models.Input{Kind: models.InputURL, URL: srv.URL + "/shows/pilot.mp3"})
		require.NoError(t, err)
		assert.Equal(t, models.InputURL, res.Metadata.Kind)
		assert.Equal(t, "pilot", res.Metadata.Title)
		assert.Equal(t, srv.URL+"/shows/pilot.mp3", res.Metadata.Source)
		assert.Equal(t, int64(512), res.Metadata.SizeBytes)

		_, err = os.Stat(tools.normalizeIn[len(tools.normalizeIn)-1])
		assert.True(t, os.IsNotExist(err), "downloaded file should be removed")
	})

	t.Run("http error", func(t *testing.T) {
		_, err := u.Ingest(context.Background(), models.Input{Kind: models.InputURL, URL: srv.URL + "/missing.mp3"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects downloads over the limit", func(t *testing.T) {
		limited := &URLIngester{File: file, WorkDir: dir, MaxBytes: 256}
		before, err := os.ReadDir(dir)
		require.NoError(t, err)

		_, err = limited.Ingest(context.Background(), models.Input{Kind: models.InputURL, URL: srv.URL + "/shows/pilot.mp3"})
		assert.ErrorIs(t, err, ErrInvalidInput)

		after, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, after, len(before), "partial download should be removed")
	})

	t.Run("rejects oversized streams without content length", func(t *testing.T) {
		chunked := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			flusher := w.(http.Flusher)
			for i := 0; i < 4; i++ {
				_, _ = w.Write(make([]byte, 128))
				flusher.Flush()
			}
		}))
		defer chunked.Close()

		limited := &URLIngester{File: file, WorkDir: dir, MaxBytes: 256}
		_, err := limited.Ingest(context.Background(), models.Input{Kind: models.InputURL, URL: chunked.URL + "/live.mp3"})
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Contains(t, err.Error(), "download limit")
	})

	t.Run("bad scheme", func(t *testing.T) {
		_, err := u.Ingest(context.Background(), models.Input{Kind: models.InputURL, URL: "ftp://example.com/a.mp3"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestVideoIngester(t *testing.T) {
	dir := t.TempDir()
	tools := &fakeTools{duration: 1200, title: "Launch Keynote"}
	v := &VideoIngester{Tools: tools, WorkDir: dir, Logger: testLogger()}

	res, err := v.Ingest(context.Background(), models.Input{Kind: models.InputVideo, URL: "https://www.youtube.com/watch?v=abc"})
	require.NoError(t, err)
	assert.Equal(t, "Launch Keynote", res.Metadata.Title)
	assert.Equal(t, tools.downloaded[0], res.AudioPath)
	assert.Equal(t, 1200.0, res.Metadata.DurationSeconds)
	assert.Equal(t, int64(8), res.Metadata.SizeBytes)

	tools.probeErr = errors.New("ffprobe: invalid data")
	_, err = v.Ingest(context.Background(), models.Input{Kind: models.InputVideo, URL: "https://www.youtube.com/watch?v=corrupt"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, statErr := os.Stat(tools.downloaded[len(tools.downloaded)-1])
	assert.True(t, os.IsNotExist(statErr))

	tools.probeErr = nil
	tools.downloadErr = errors.New("yt-dlp: exit status 1")
	_, err = v.Ingest(context.Background(), models.Input{Kind: models.InputVideo, URL: "https://www.youtube.com/watch?v=partial"})
	require.Error(t, err)
	_, statErr = os.Stat(tools.downloaded[len(tools.downloaded)-1])
	assert.True(t, os.IsNotExist(statErr))

	tools.downloadErr = nil
	tools.titleErr = errors.New("video unavailable")
	_, err = v.Ingest(context.Background(), models.Input{Kind: models.InputVideo, URL: "https://www.youtube.com/watch?v=gone"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDocumentIngester(t *testing.T) {
	dir := t.TempDir()
	d := &DocumentIngester{MinBytes: 1}

	notes := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(notes, []byte("  # Notes\n\nBody text.\n"), 0o644))
	res, err := d.Ingest(context.Background(), models.Input{Kind: models.InputDocument, Path: notes})
	require.NoError(t, err)
	assert.True(t, res.IsDocument())
	assert.Equal(t, "# Notes\n\nBody text.", res.Text)
	assert.Equal(t, "notes", res.Metadata.Title)

	pdf := writeFile(t, dir, "paper.pdf", 100)
	_, err = d.Ingest(context.Background(), models.Input{Kind: models.InputDocument, Path: pdf})
	assert.ErrorIs(t, err, ErrInvalidInput)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("   \n"), 0o644))
	_, err = d.Ingest(context.Background(), models.Input{Kind: models.InputDocument, Path: empty})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRouter(t *testing.T) {
	dir := t.TempDir()
	r := NewDefaultRouter(&fakeTools{}, dir, 1, 1<<20, testLogger())

	doc := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(doc, []byte("hello"), 0o644))
	res, err := r.Ingest(context.Background(), models.Input{Kind: models.InputDocument, Path: doc})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text)

	_, err = r.Ingest(context.Background(), models.Input{Kind: "podcast-feed"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
