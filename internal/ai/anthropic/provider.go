// Package anthropic implements structured generation with the Messages API,
// forcing a single tool call whose input schema is the output schema.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kiranshivaraju/autoshow/internal/apiclient"
	"github.com/kiranshivaraju/autoshow/internal/config"
	"github.com/kiranshivaraju/autoshow/pkg/models"
)

const (
	apiVersion = "2023-06-01"
	maxTokens  = 8192
)

var ErrNoToolUse = errors.New("anthropic: response has no tool_use block")

// Provider implements models.StructuredProvider using Anthropic.
type Provider struct {
	apiKey string
	client *apiclient.Client
}

func NewProvider(cfg config.AnthropicConfig, opts ...apiclient.Option) *Provider {
	opts = append([]apiclient.Option{
		apiclient.WithHeader("x-api-key", cfg.APIKey),
		apiclient.WithHeader("anthropic-version", apiVersion),
	}, opts...)
	return &Provider{
		apiKey: cfg.APIKey,
		client: apiclient.New(cfg.BaseURL, 0, opts...),
	}
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) HasCredentials() bool { return p.apiKey != "" && p.client.BaseURL() != "" }

type messagesRequest struct {
	Model      string     `json:"model"`
	MaxTokens  int        `json:"max_tokens"`
	Messages   []message  `json:"messages"`
	Tools      []tool     `json:"tools"`
	ToolChoice toolChoice `json:"tool_choice"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type messagesResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *Provider) Generate(ctx context.Context, req models.GenerateRequest) (models.GenerateResponse, error) {
	schema := req.Schema
	if len(schema) == 0 {
		schema = json.RawMessage(`{"type":"object"}`)
	}
	body := messagesRequest{
		Model:     req.Model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: req.Prompt}},
		Tools: []tool{{
			Name:        req.SchemaName,
			Description: "Return the generated content.",
			InputSchema: schema,
		}},
		ToolChoice: toolChoice{Type: "tool", Name: req.SchemaName},
	}

	var resp messagesResponse
	if err := p.client.PostJSON(ctx, "/v1/messages", body, &resp); err != nil {
		return models.GenerateResponse{}, fmt.Errorf("anthropic messages: %w", err)
	}
	for _, block := range resp.Content {
		if block.Type == "tool_use" && len(block.Input) > 0 {
			return models.GenerateResponse{
				Data:         block.Input,
				InputTokens:  resp.Usage.InputTokens,
				OutputTokens: resp.Usage.OutputTokens,
			}, nil
		}
	}
	return models.GenerateResponse{}, ErrNoToolUse
}

var _ models.StructuredProvider = (*Provider)(nil)
