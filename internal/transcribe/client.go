// Package transcribe talks to an OpenAI-compatible audio transcription endpoint.
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kiranshivaraju/autoshow/internal/apiclient"
	"github.com/kiranshivaraju/autoshow/internal/config"
	"github.com/kiranshivaraju/autoshow/pkg/models"
)

const (
	serviceName      = "whisper"
	defaultBaseDelay = time.Second
	defaultMaxDelay  = 10 * time.Second
)

var ErrNotConfigured = errors.New("transcription service is not configured")

// Client implements segment.Transcriber against /audio/transcriptions.
type Client struct {
	api        *apiclient.Client
	apiKey     string
	model      string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	sleeper    func(ctx context.Context, d time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(base, max time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = base
		c.maxDelay = max
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

func NewClient(cfg config.TranscriptionConfig, opts ...Option) *Client {
	c := &Client{
		api:        apiclient.New(cfg.BaseURL, cfg.Timeout, apiclient.WithBearer(cfg.APIKey)),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
		sleeper:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	return c
}

// Configured reports whether the endpoint can be called.
func (c *Client) Configured() bool { return c.api.BaseURL() != "" && c.apiKey != "" }

// WithModel returns a copy of the client that requests model instead of the default.
func (c *Client) WithModel(model string) *Client {
	if model == "" || model == c.model {
		return c
	}
	cp := *c
	cp.model = model
	return &cp
}

type verboseResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start  float64 `json:"start"`
		End    float64 `json:"end"`
		Text   string  `json:"text"`
		Tokens []int   `json:"tokens"`
	} `json:"segments"`
}

// Transcribe uploads audioPath and returns segments shifted by offsetMinutes.
func (c *Client) Transcribe(ctx context.Context, audioPath string, offsetMinutes float64) (*models.Transcript, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}

	start := time.Now()
	var resp verboseResponse
	for attempt := 0; ; attempt++ {
		err = c.send(ctx, audioPath, audio, &resp)
		if err == nil || attempt >= c.maxRetries || !apiclient.IsRetryable(err) {
			break
		}
		if serr := c.sleeper(ctx, c.backoff(attempt)); serr != nil {
			return nil, serr
		}
	}
	if err != nil {
		return nil, fmt.Errorf("transcribing %s: %w", filepath.Base(audioPath), err)
	}

	return toTranscript(resp, offsetMinutes*60, c.model, time.Since(start)), nil
}

func (c *Client) send(ctx context.Context, audioPath string, audio []byte, out *verboseResponse) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return fmt.Errorf("building form: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(audio)); err != nil {
		return fmt.Errorf("building form: %w", err)
	}
	_ = mw.WriteField("model", c.model)
	_ = mw.WriteField("response_format", "verbose_json")
	_ = mw.WriteField("timestamp_granularities[]", "segment")
	if err := mw.Close(); err != nil {
		return fmt.Errorf("building form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.api.BaseURL()+"/audio/transcriptions", &buf)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.api.Do(req, out)
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.baseDelay << attempt
	if d > c.maxDelay || d <= 0 {
		d = c.maxDelay
	}
	return d
}

func toTranscript(resp verboseResponse, offsetSecs float64, model string, elapsed time.Duration) *models.Transcript {
	t := &models.Transcript{
		Text:             strings.TrimSpace(resp.Text),
		Segments:         make([]models.TranscriptionSegment, 0, len(resp.Segments)),
		ProcessingTimeMs: elapsed.Milliseconds(),
		Service:          serviceName,
		Model:            model,
	}
	tokens := 0
	for _, s := range resp.Segments {
		t.Segments = append(t.Segments, models.TranscriptionSegment{
			Start: s.Start + offsetSecs,
			End:   s.End + offsetSecs,
			Text:  strings.TrimSpace(s.Text),
		})
		tokens += len(s.Tokens)
	}
	if tokens == 0 {
		tokens = estimateTokens(t.Text)
	}
	t.TokenCount = tokens
	return t
}

// estimateTokens approximates 4 tokens per 3 words.
func estimateTokens(text string) int {
	words := len(strings.Fields(text))
	return (words*4 + 2) / 3
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
