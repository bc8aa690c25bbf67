// Package artifact calls the non-LLM generation providers (speech, image,
// music, video). All four share one JSON contract: POST {input, options}
// and receive {url, cost}.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kiranshivaraju/autoshow/internal/apiclient"
	"github.com/kiranshivaraju/autoshow/internal/config"
	"github.com/kiranshivaraju/autoshow/pkg/models"
)

var (
	ErrNotConfigured = errors.New("artifact provider is not configured")
	ErrEmptyArtifact = errors.New("artifact provider returned no url")
)

// Request is the input of one artifact generation call.
type Request struct {
	Input   string            `json:"input"`
	Options map[string]string `json:"options,omitempty"`
}

// Generator produces one artifact per call.
type Generator interface {
	Name() string
	Configured() bool
	Generate(ctx context.Context, req Request) (models.Artifact, error)
}

// HTTPGenerator implements Generator against a configured endpoint.
type HTTPGenerator struct {
	name   string
	client *apiclient.Client
}

func NewHTTPGenerator(name string, cfg config.EndpointConfig, timeout time.Duration, opts ...apiclient.Option) *HTTPGenerator {
	opts = append([]apiclient.Option{apiclient.WithBearer(cfg.APIKey)}, opts...)
	return &HTTPGenerator{
		name:   name,
		client: apiclient.New(cfg.URL, timeout, opts...),
	}
}

func (g *HTTPGenerator) Name() string { return g.name }

func (g *HTTPGenerator) Configured() bool { return g.client.BaseURL() != "" }

type generateResponse struct {
	URL  string  `json:"url"`
	Cost float64 `json:"cost"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (models.Artifact, error) {
	if !g.Configured() {
		return models.Artifact{}, fmt.Errorf("%w: %s", ErrNotConfigured, g.name)
	}
	start := time.Now()
	var resp generateResponse
	if err := g.client.PostJSON(ctx, "", req, &resp); err != nil {
		return models.Artifact{}, fmt.Errorf("%s generation: %w", g.name, err)
	}
	if strings.TrimSpace(resp.URL) == "" {
		return models.Artifact{}, fmt.Errorf("%w: %s", ErrEmptyArtifact, g.name)
	}
	return models.Artifact{
		URL:              resp.URL,
		Prompt:           req.Input,
		Cost:             resp.Cost,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// Set groups the four generators used by the optional pipeline stages.
type Set struct {
	Speech Generator
	Image  Generator
	Music  Generator
	Video  Generator
}

// NewSet builds HTTP generators from config.
func NewSet(cfg config.ArtifactsConfig) Set {
	return Set{
		Speech: NewHTTPGenerator("speech", cfg.Speech, cfg.Timeout),
		Image:  NewHTTPGenerator("image", cfg.Image, cfg.Timeout),
		Music:  NewHTTPGenerator("music", cfg.Music, cfg.Timeout),
		Video:  NewHTTPGenerator("video", cfg.Video, cfg.Timeout),
	}
}

var _ Generator = (*HTTPGenerator)(nil)
