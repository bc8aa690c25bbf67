// Package vllm targets a self-hosted vLLM server through its OpenAI-compatible API.
package vllm

import (
	"strings"

	"github.com/kiranshivaraju/autoshow/internal/ai/openai"
	"github.com/kiranshivaraju/autoshow/internal/apiclient"
	"github.com/kiranshivaraju/autoshow/internal/config"
	"github.com/kiranshivaraju/autoshow/pkg/models"
)

// NewProvider returns an OpenAI-compatible provider named "vllm". The
// server exposes its API under /v1.
func NewProvider(cfg config.VLLMConfig, opts ...apiclient.Option) *openai.Provider {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base != "" && !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return openai.NewCompatible("vllm", base, cfg.APIKey, false, opts...)
}

var _ models.StructuredProvider = (*openai.Provider)(nil)
