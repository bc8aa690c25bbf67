package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/autoshow/pkg/models"
)

// URLIngester downloads a direct file URL and hands it to the file strategy.
// Downloads larger than MaxBytes are rejected; zero means no limit.
type URLIngester struct {
	File     *FileIngester
	WorkDir  string
	MaxBytes int64
	Client   *http.Client
}

func (u *URLIngester) Ingest(ctx context.Context, in models.Input) (*Ingested, error) {
	parsed, err := url.Parse(in.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an http(s) URL", ErrInvalidInput, in.URL)
	}

	downloaded, err := u.download(ctx, parsed)
	if err != nil {
		return nil, err
	}
	defer os.Remove(downloaded)

	res, err := u.File.Ingest(ctx, models.Input{Kind: models.InputFile, Path: downloaded})
	if err != nil {
		return nil, err
	}
	res.Metadata.Kind = models.InputURL
	res.Metadata.Source = in.URL
	if title := path.Base(parsed.Path); title != "." && title != "/" {
		res.Metadata.Title = titleFromPath(title)
	}
	return res, nil
}

func (u *URLIngester) download(ctx context.Context, src *url.URL) (string, error) {
	client := u.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Minute}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.String(), nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: downloading %s: %v", ErrInvalidInput, src, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: downloading %s: status %d", ErrInvalidInput, src, resp.StatusCode)
	}
	if u.MaxBytes > 0 && resp.ContentLength > u.MaxBytes {
		return "", fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrInvalidInput, src, resp.ContentLength, u.MaxBytes)
	}

	if err := os.MkdirAll(u.WorkDir, 0o755); err != nil {
		return "", fmt.Errorf("creating work dir: %w", err)
	}
	out := filepath.Join(u.WorkDir, uuid.NewString()+path.Ext(src.Path))
	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("creating download file: %w", err)
	}
	var body io.Reader = resp.Body
	if u.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, u.MaxBytes+1)
	}
	n, err := io.Copy(f, body)
	if err != nil {
		f.Close()
		os.Remove(out)
		return "", fmt.Errorf("%w: downloading %s: %v", ErrInvalidInput, src, err)
	}
	if u.MaxBytes > 0 && n > u.MaxBytes {
		f.Close()
		os.Remove(out)
		return "", fmt.Errorf("%w: %s exceeds the %d byte download limit", ErrInvalidInput, src, u.MaxBytes)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing download file: %w", err)
	}
	return out, nil
}
