package ai

import (
	"fmt"

	"github.com/kiranshivaraju/autoshow/internal/ai/anthropic"
	"github.com/kiranshivaraju/autoshow/internal/ai/ollama"
	"github.com/kiranshivaraju/autoshow/internal/ai/openai"
	"github.com/kiranshivaraju/autoshow/internal/ai/vllm"
	"github.com/kiranshivaraju/autoshow/internal/config"
	"github.com/kiranshivaraju/autoshow/pkg/models"
)

// NewProvider constructs the named structured generation provider.
func NewProvider(name string, cfg config.AIConfig) (models.StructuredProvider, error) {
	switch name {
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	case "anthropic":
		return anthropic.NewProvider(cfg.Anthropic), nil
	case "ollama":
		return ollama.NewProvider(cfg.Ollama), nil
	case "vllm":
		return vllm.NewProvider(cfg.VLLM), nil
	default:
		return nil, fmt.Errorf("%w %q: must be one of openai, anthropic, ollama, vllm", ErrUnknownProvider, name)
	}
}

// NewCatalogFromConfig builds the catalog in LLM_FALLBACK_ORDER.
// Called once at server startup.
func NewCatalogFromConfig(cfg config.AIConfig) (*Catalog, error) {
	entries := make([]CatalogEntry, 0, len(cfg.FallbackOrder))
	for _, name := range cfg.FallbackOrder {
		p, err := NewProvider(name, cfg)
		if err != nil {
			return nil, err
		}
		entries = append(entries, CatalogEntry{Provider: p, Models: cfg.Models[name]})
	}
	return NewCatalog(entries...)
}
