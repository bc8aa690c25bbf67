package handler

import (
	"net/http"

	"github.com/kiranshivaraju/autoshow/internal/ai"
	"github.com/kiranshivaraju/autoshow/internal/api/response"
)

// ProviderLister describes the configured LLM providers.
type ProviderLister interface {
	Describe() []ai.ProviderInfo
}

// NewListProvidersHandler returns an http.HandlerFunc for GET /api/v1/providers.
func NewListProvidersHandler(catalog ProviderLister) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, map[string]any{
			"providers": catalog.Describe(),
		})
	}
}
