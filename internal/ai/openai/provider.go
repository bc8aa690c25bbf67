// Package openai implements structured generation against the OpenAI chat
// completions API and any server that speaks the same protocol.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/autoshow/internal/apiclient"
	"github.com/kiranshivaraju/autoshow/internal/config"
	"github.com/kiranshivaraju/autoshow/pkg/models"
)

const systemPrompt = "You are a content generation assistant. Respond only with JSON that matches the provided schema."

var ErrEmptyCompletion = errors.New("openai: completion has no content")

// Provider implements models.StructuredProvider using OpenAI.
type Provider struct {
	name        string
	apiKey      string
	requiresKey bool
	client      *apiclient.Client
}

func NewProvider(cfg config.OpenAIConfig, opts ...apiclient.Option) *Provider {
	return NewCompatible("openai", cfg.BaseURL, cfg.APIKey, true, opts...)
}

// NewCompatible returns a provider for an OpenAI-compatible server. When
// requiresKey is false the provider counts as credentialed once a base URL is set.
func NewCompatible(name, baseURL, apiKey string, requiresKey bool, opts ...apiclient.Option) *Provider {
	opts = append([]apiclient.Option{apiclient.WithBearer(apiKey)}, opts...)
	return &Provider{
		name:        name,
		apiKey:      apiKey,
		requiresKey: requiresKey,
		client:      apiclient.New(baseURL, 0, opts...),
	}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) HasCredentials() bool {
	if p.client.BaseURL() == "" {
		return false
	}
	return !p.requiresKey || p.apiKey != ""
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *Provider) Generate(ctx context.Context, req models.GenerateRequest) (models.GenerateResponse, error) {
	body := chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	if len(req.Schema) > 0 {
		body.ResponseFormat = responseFormat{
			Type:       "json_schema",
			JSONSchema: &jsonSchema{Name: req.SchemaName, Schema: req.Schema},
		}
	}

	var resp chatResponse
	if err := p.client.PostJSON(ctx, "/chat/completions", body, &resp); err != nil {
		return models.GenerateResponse{}, fmt.Errorf("%s chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return models.GenerateResponse{}, ErrEmptyCompletion
	}
	choice := resp.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		if choice.Message.Refusal != "" {
			return models.GenerateResponse{}, fmt.Errorf("%s refused: %s", p.name, choice.Message.Refusal)
		}
		return models.GenerateResponse{}, fmt.Errorf("%w (finish_reason=%q)", ErrEmptyCompletion, choice.FinishReason)
	}
	if !json.Valid([]byte(content)) {
		return models.GenerateResponse{}, fmt.Errorf("%s returned invalid JSON content", p.name)
	}

	return models.GenerateResponse{
		Data:         json.RawMessage(content),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

var _ models.StructuredProvider = (*Provider)(nil)
