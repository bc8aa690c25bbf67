// Package models contains shared data models used across the AutoShow codebase.
package models

import (
	"context"
	"encoding/json"
)

// StructuredProvider is the contract every structured-generation backend implements.
// The executor never calls a vendor client directly; it selects one of these by name.
type StructuredProvider interface {
	// Name returns the provider identifier (e.g., "openai", "ollama").
	Name() string
	// HasCredentials reports whether the provider can be called at all.
	HasCredentials() bool
	// Generate runs one schema-constrained completion.
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

// GenerateRequest is the input to a single provider call.
type GenerateRequest struct {
	Model      string
	Prompt     string
	Schema     json.RawMessage
	SchemaName string
}

// GenerateResponse is the raw structured output of a provider call.
type GenerateResponse struct {
	Data         json.RawMessage
	InputTokens  int
	OutputTokens int
}

// GenerationAttempt records one failed provider call.
type GenerationAttempt struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Error    string `json:"error"`
}
