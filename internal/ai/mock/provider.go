// Package mock provides a scripted structured generation provider for tests
// and local runs without vendor credentials.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kiranshivaraju/autoshow/internal/ai"
	"github.com/kiranshivaraju/autoshow/pkg/models"
)

// Provider satisfies models.StructuredProvider. By default it answers every
// call with an object filled from the request schema.
type Provider struct {
	ProviderName string
	Credentialed bool
	GenerateFunc func(ctx context.Context, req models.GenerateRequest) (models.GenerateResponse, error)

	mu    sync.Mutex
	calls []models.GenerateRequest
}

func (p *Provider) Name() string { return p.ProviderName }

func (p *Provider) HasCredentials() bool { return p.Credentialed }

func (p *Provider) Generate(ctx context.Context, req models.GenerateRequest) (models.GenerateResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()

	if p.GenerateFunc != nil {
		return p.GenerateFunc(ctx, req)
	}
	data, err := FromSchema(req.Schema)
	if err != nil {
		return models.GenerateResponse{}, err
	}
	return models.GenerateResponse{Data: data, InputTokens: 10, OutputTokens: 20}, nil
}

// Calls returns every request received so far.
func (p *Provider) Calls() []models.GenerateRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.GenerateRequest(nil), p.calls...)
}

// Models returns the model of every call in order.
func (p *Provider) Models() []string {
	calls := p.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Model
	}
	return out
}

// NewProvider returns a credentialed Provider with schema-shaped responses.
func NewProvider(name string) *Provider {
	return &Provider{ProviderName: name, Credentialed: true}
}

// NewUncredentialedProvider returns a Provider the executor must never call.
func NewUncredentialedProvider(name string) *Provider {
	return &Provider{
		ProviderName: name,
		GenerateFunc: func(_ context.Context, _ models.GenerateRequest) (models.GenerateResponse, error) {
			return models.GenerateResponse{}, fmt.Errorf("%s called without credentials", name)
		},
	}
}

// NewFailingProvider returns a credentialed Provider that always returns err.
func NewFailingProvider(name string, err error) *Provider {
	return &Provider{
		ProviderName: name,
		Credentialed: true,
		GenerateFunc: func(_ context.Context, _ models.GenerateRequest) (models.GenerateResponse, error) {
			return models.GenerateResponse{}, err
		},
	}
}

// NewModelFailingProvider fails only for the listed models.
func NewModelFailingProvider(name string, err error, failing ...string) *Provider {
	bad := make(map[string]bool, len(failing))
	for _, m := range failing {
		bad[m] = true
	}
	return &Provider{
		ProviderName: name,
		Credentialed: true,
		GenerateFunc: func(_ context.Context, req models.GenerateRequest) (models.GenerateResponse, error) {
			if bad[req.Model] {
				return models.GenerateResponse{}, err
			}
			data, ferr := FromSchema(req.Schema)
			if ferr != nil {
				return models.GenerateResponse{}, ferr
			}
			return models.GenerateResponse{Data: data, InputTokens: 10, OutputTokens: 20}, nil
		},
	}
}

// NewTimeoutProvider returns a Provider that blocks until ctx is cancelled.
func NewTimeoutProvider(name string) *Provider {
	return &Provider{
		ProviderName: name,
		Credentialed: true,
		GenerateFunc: func(ctx context.Context, _ models.GenerateRequest) (models.GenerateResponse, error) {
			<-ctx.Done()
			return models.GenerateResponse{}, ai.ErrInferenceTimeout
		},
	}
}

// FromSchema builds an object with a placeholder value for every property
// of a JSON Schema: strings become "mock <name>", arrays a single such
// string, numbers 1 and booleans true.
func FromSchema(schema json.RawMessage) (json.RawMessage, error) {
	if len(schema) == 0 {
		return json.RawMessage(`{}`), nil
	}
	var s struct {
		Properties map[string]struct {
			Type string `json:"type"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(schema, &s); err != nil {
		return nil, fmt.Errorf("mock: parse schema: %w", err)
	}
	out := make(map[string]any, len(s.Properties))
	for name, prop := range s.Properties {
		placeholder := "mock " + name
		switch prop.Type {
		case "array":
			out[name] = []string{placeholder}
		case "number", "integer":
			out[name] = 1
		case "boolean":
			out[name] = true
		default:
			out[name] = placeholder
		}
	}
	return json.Marshal(out)
}

var _ models.StructuredProvider = (*Provider)(nil)
