// Package ollama implements structured generation against a local Ollama
// server using its schema-constrained "format" field.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/autoshow/internal/apiclient"
	"github.com/kiranshivaraju/autoshow/internal/config"
	"github.com/kiranshivaraju/autoshow/pkg/models"
)

// Provider implements models.StructuredProvider using Ollama.
type Provider struct {
	client *apiclient.Client
}

func NewProvider(cfg config.OllamaConfig, opts ...apiclient.Option) *Provider {
	return &Provider{client: apiclient.New(cfg.BaseURL, 0, opts...)}
}

func (p *Provider) Name() string { return "ollama" }

// HasCredentials reports whether a server address is configured; Ollama has no keys.
func (p *Provider) HasCredentials() bool { return p.client.BaseURL() != "" }

type chatRequest struct {
	Model    string          `json:"model"`
	Messages []chatMessage   `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   json.RawMessage `json:"format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

func (p *Provider) Generate(ctx context.Context, req models.GenerateRequest) (models.GenerateResponse, error) {
	format := req.Schema
	if len(format) == 0 {
		format = json.RawMessage(`"json"`)
	}
	body := chatRequest{
		Model:    req.Model,
		Messages: []chatMessage{{Role: "user", Content: req.Prompt}},
		Stream:   false,
		Format:   format,
	}

	var resp chatResponse
	if err := p.client.PostJSON(ctx, "/api/chat", body, &resp); err != nil {
		return models.GenerateResponse{}, fmt.Errorf("ollama chat: %w", err)
	}
	content := strings.TrimSpace(resp.Message.Content)
	if content == "" || !json.Valid([]byte(content)) {
		return models.GenerateResponse{}, fmt.Errorf("ollama returned invalid JSON content: %q", content)
	}
	return models.GenerateResponse{
		Data:         json.RawMessage(content),
		InputTokens:  resp.PromptEvalCount,
		OutputTokens: resp.EvalCount,
	}, nil
}

var _ models.StructuredProvider = (*Provider)(nil)
