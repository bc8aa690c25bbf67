package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/autoshow/internal/metrics"
	"github.com/kiranshivaraju/autoshow/pkg/models"
)

// MaxAttempts caps provider calls per request, whatever the catalog size.
const MaxAttempts = 3

// Request is one structured generation call as seen by the pipeline.
type Request struct {
	Provider   string
	Model      string
	Prompt     string
	Schema     json.RawMessage
	SchemaName string
}

// Result is tagged with the provider and model that actually answered.
type Result struct {
	Data         json.RawMessage
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
	Attempts     []models.GenerationAttempt
}

// Metadata converts the result into the persisted stage record.
func (r *Result) Metadata() *models.GenerationMetadata {
	attempts := r.Attempts
	if attempts == nil {
		attempts = []models.GenerationAttempt{}
	}
	return &models.GenerationMetadata{
		Provider:     r.Provider,
		Model:        r.Model,
		InputTokens:  r.InputTokens,
		OutputTokens: r.OutputTokens,
		LatencyMs:    r.Latency.Milliseconds(),
		Attempts:     attempts,
	}
}

// Executor runs structured generation with bounded, deterministic fallback.
type Executor struct {
	catalog *Catalog
	timeout time.Duration
	logger  *slog.Logger
}

// NewExecutor creates an Executor. timeout bounds each individual attempt.
func NewExecutor(catalog *Catalog, timeout time.Duration, logger *slog.Logger) *Executor {
	return &Executor{catalog: catalog, timeout: timeout, logger: logger}
}

// Catalog returns the executor's catalog.
func (e *Executor) Catalog() *Catalog { return e.catalog }

type target struct {
	entry CatalogEntry
	model string
}

// Execute tries the preferred provider/model, then one alternate model of
// that provider, then untried credentialed providers in fallback order, for
// at most MaxAttempts calls.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	cur, err := e.firstTarget(req)
	if err != nil {
		return nil, err
	}
	if req.SchemaName == "" {
		req.SchemaName = "content"
	}

	first := cur.entry.Name()
	tried := map[string]bool{}
	altUsed := false
	var attempts []models.GenerationAttempt

	for n := 1; n <= MaxAttempts; n++ {
		tried[cur.entry.Name()] = true

		resp, latency, callErr := e.call(ctx, cur, req)
		if callErr == nil {
			metrics.RecordGenerationAttempt(cur.entry.Name(), cur.model, "success")
			return &Result{
				Data:         resp.Data,
				Provider:     cur.entry.Name(),
				Model:        cur.model,
				InputTokens:  resp.InputTokens,
				OutputTokens: resp.OutputTokens,
				Latency:      latency,
				Attempts:     attempts,
			}, nil
		}

		metrics.RecordGenerationAttempt(cur.entry.Name(), cur.model, "failed")
		attempts = append(attempts, models.GenerationAttempt{
			Provider: cur.entry.Name(),
			Model:    cur.model,
			Error:    callErr.Error(),
		})
		e.logger.Warn("structured generation attempt failed",
			"attempt", n,
			"provider", cur.entry.Name(),
			"model", cur.model,
			"error", callErr,
		)

		if n == MaxAttempts {
			break
		}

		next, ok := target{}, false
		if cur.entry.Name() == first && !altUsed {
			if alt, found := alternateModel(cur.entry, cur.model); found {
				next, ok = target{entry: cur.entry, model: alt}, true
				altUsed = true
			}
		}
		if !ok {
			next, ok = e.nextProvider(tried)
		}
		if !ok {
			break
		}
		if next.entry.Name() != cur.entry.Name() {
			metrics.RecordGenerationFallback(cur.entry.Name(), next.entry.Name())
		}
		cur = next
	}

	return nil, &ExhaustedError{Attempts: attempts}
}

// firstTarget resolves the preferred provider, or the first credentialed
// provider in fallback order when the preference cannot be used.
func (e *Executor) firstTarget(req Request) (target, error) {
	if entry, ok := e.catalog.Lookup(req.Provider); ok && entry.Provider.HasCredentials() {
		model := req.Model
		if model == "" {
			model = entry.FirstModel()
		}
		return target{entry: entry, model: model}, nil
	}
	if req.Provider != "" {
		e.logger.Warn("preferred provider unavailable, using fallback order", "provider", req.Provider)
	}
	if t, ok := e.nextProvider(nil); ok {
		return t, nil
	}
	return target{}, fmt.Errorf("%w: checked %d providers", ErrNoCredentialedProvider, len(e.catalog.entries))
}

func (e *Executor) nextProvider(tried map[string]bool) (target, bool) {
	for _, entry := range e.catalog.entries {
		if tried[entry.Name()] || !entry.Provider.HasCredentials() {
			continue
		}
		return target{entry: entry, model: entry.FirstModel()}, true
	}
	return target{}, false
}

func alternateModel(entry CatalogEntry, failed string) (string, bool) {
	for _, m := range entry.Models {
		if m != failed {
			return m, true
		}
	}
	return "", false
}

func (e *Executor) call(ctx context.Context, t target, req Request) (models.GenerateResponse, time.Duration, error) {
	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := t.entry.Provider.Generate(callCtx, models.GenerateRequest{
		Model:      t.model,
		Prompt:     req.Prompt,
		Schema:     req.Schema,
		SchemaName: req.SchemaName,
	})
	latency := time.Since(start)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return resp, latency, fmt.Errorf("%w after %s: %v", ErrInferenceTimeout, e.timeout, err)
		}
		return resp, latency, err
	}
	if err := checkRequired(req.Schema, resp.Data); err != nil {
		return resp, latency, err
	}
	return resp, latency, nil
}
