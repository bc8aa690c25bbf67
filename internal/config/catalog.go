package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultModels lists each provider's models in preference order. The first
// entry is used whenever the executor falls back to that provider.
var defaultModels = map[string][]string{
	"openai":    {"gpt-4o-mini", "gpt-4o"},
	"anthropic": {"claude-sonnet-4-5-20250929", "claude-haiku-4-5-20251001"},
	"ollama":    {"llama3.2", "qwen2.5"},
	"vllm":      {"meta-llama/Llama-3.1-8B-Instruct"},
}

// catalogFile is the YAML shape of PROVIDER_CATALOG_FILE:
//
//	providers:
//	  openai: [gpt-4o, gpt-4o-mini]
//	  ollama: [llama3.2]
type catalogFile struct {
	Providers map[string][]string `yaml:"providers"`
}

// LoadCatalog returns the default model lists, with any provider named in
// path replacing its defaults. An empty path returns the defaults.
func LoadCatalog(path string) (map[string][]string, error) {
	models := make(map[string][]string, len(defaultModels))
	for k, v := range defaultModels {
		models[k] = append([]string(nil), v...)
	}
	if path == "" {
		return models, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading provider catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing provider catalog %s: %w", path, err)
	}
	for name, list := range file.Providers {
		if !validProviders[name] {
			return nil, fmt.Errorf("provider catalog %s: unknown provider %q", path, name)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("provider catalog %s: provider %q has no models", path, name)
		}
		models[name] = list
	}
	return models, nil
}
