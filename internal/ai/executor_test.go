package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kiranshivaraju/autoshow/internal/ai"
	"github.com/kiranshivaraju/autoshow/internal/ai/mock"
	"github.com/kiranshivaraju/autoshow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

var summarySchema = json.RawMessage(`{
	"type": "object",
	"properties": {"summary": {"type": "string"}, "chapters": {"type": "array"}},
	"required": ["summary", "chapters"]
}`)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newExecutor(t *testing.T, entries ...ai.CatalogEntry) *ai.Executor {
	t.Helper()
	catalog, err := ai.NewCatalog(entries...)
	require.NoError(t, err)
	return ai.NewExecutor(catalog, time.Second, testLogger())
}

func attemptPairs(attempts []models.GenerationAttempt) [][2]string {
	out := make([][2]string, len(attempts))
	for i, a := range attempts {
		out[i] = [2]string{a.Provider, a.Model}
	}
	return out
}

func TestExecute_FirstAttemptSucceeds(t *testing.T) {
	a := mock.NewProvider("A")
	exec := newExecutor(t, ai.CatalogEntry{Provider: a, Models: []string{"m1", "m2"}})

	res, err := exec.Execute(context.Background(), ai.Request{Provider: "A", Model: "m2", Prompt: "hi", Schema: summarySchema})
	require.NoError(t, err)

	assert.Equal(t, "A", res.Provider)
	assert.Equal(t, "m2", res.Model)
	assert.Empty(t, res.Attempts)
	assert.Equal(t, 10, res.InputTokens)
	assert.Equal(t, 20, res.OutputTokens)
	assert.JSONEq(t, `{"summary":"mock summary","chapters":["mock chapters"]}`, string(res.Data))
	assert.Equal(t, []string{"m2"}, a.Models())
	assert.Equal(t, "content", a.Calls()[0].SchemaName)
}

func TestExecute_EmptyModelUsesFirstCatalogModel(t *testing.T) {
	a := mock.NewProvider("A")
	exec := newExecutor(t, ai.CatalogEntry{Provider: a, Models: []string{"m1", "m2"}})

	res, err := exec.Execute(context.Background(), ai.Request{Provider: "A", Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "m1", res.Model)
}

func TestExecute_AllFail_SequenceNeverVisitsC(t *testing.T) {
	a := mock.NewFailingProvider("A", errBoom)
	b := mock.NewFailingProvider("B", errBoom)
	c := mock.NewFailingProvider("C", errBoom)
	exec := newExecutor(t,
		ai.CatalogEntry{Provider: a, Models: []string{"m1", "m2"}},
		ai.CatalogEntry{Provider: b, Models: []string{"m1"}},
		ai.CatalogEntry{Provider: c, Models: []string{"m1"}},
	)

	_, err := exec.Execute(context.Background(), ai.Request{Provider: "A", Model: "m1", Prompt: "p", Schema: summarySchema})
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrAllAttemptsFailed)

	var exhausted *ai.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, [][2]string{{"A", "m1"}, {"A", "m2"}, {"B", "m1"}}, attemptPairs(exhausted.Attempts))
	for _, at := range exhausted.Attempts {
		assert.Equal(t, "boom", at.Error)
	}
	assert.Empty(t, c.Calls())
	assert.Contains(t, err.Error(), "attempt 3 B/m1: boom")
}

func TestExecute_IsDeterministic(t *testing.T) {
	run := func() [][2]string {
		exec := newExecutor(t,
			ai.CatalogEntry{Provider: mock.NewFailingProvider("A", errBoom), Models: []string{"m1", "m2"}},
			ai.CatalogEntry{Provider: mock.NewFailingProvider("B", errBoom), Models: []string{"m1"}},
			ai.CatalogEntry{Provider: mock.NewFailingProvider("C", errBoom), Models: []string{"m1"}},
		)
		_, err := exec.Execute(context.Background(), ai.Request{Provider: "A", Model: "m1"})
		var exhausted *ai.ExhaustedError
		require.True(t, errors.As(err, &exhausted))
		return attemptPairs(exhausted.Attempts)
	}
	first := run()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, run())
	}
}

func TestExecute_UncredentialedPreferredStartsAtNext(t *testing.T) {
	a := mock.NewUncredentialedProvider("A")
	b := mock.NewProvider("B")
	exec := newExecutor(t,
		ai.CatalogEntry{Provider: a, Models: []string{"m1", "m2"}},
		ai.CatalogEntry{Provider: b, Models: []string{"m1"}},
	)

	res, err := exec.Execute(context.Background(), ai.Request{Provider: "A", Model: "m1", Schema: summarySchema})
	require.NoError(t, err)
	assert.Equal(t, "B", res.Provider)
	assert.Equal(t, "m1", res.Model)
	assert.Empty(t, a.Calls())
	assert.Empty(t, res.Attempts)
}

func TestExecute_UncredentialedProvidersNeverRecorded(t *testing.T) {
	a := mock.NewFailingProvider("A", errBoom)
	b := mock.NewUncredentialedProvider("B")
	c := mock.NewFailingProvider("C", errBoom)
	exec := newExecutor(t,
		ai.CatalogEntry{Provider: a, Models: []string{"m1"}},
		ai.CatalogEntry{Provider: b, Models: []string{"m1"}},
		ai.CatalogEntry{Provider: c, Models: []string{"m1"}},
	)

	_, err := exec.Execute(context.Background(), ai.Request{Provider: "A", Model: "m1"})
	var exhausted *ai.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	// A has no alternate model, B is skipped, C is the last option.
	assert.Equal(t, [][2]string{{"A", "m1"}, {"C", "m1"}}, attemptPairs(exhausted.Attempts))
	assert.Empty(t, b.Calls())
}

func TestExecute_SuccessOnAttemptTwo(t *testing.T) {
	a := mock.NewModelFailingProvider("A", errBoom, "m1")
	exec := newExecutor(t,
		ai.CatalogEntry{Provider: a, Models: []string{"m1", "m2"}},
		ai.CatalogEntry{Provider: mock.NewProvider("B"), Models: []string{"m1"}},
	)

	res, err := exec.Execute(context.Background(), ai.Request{Provider: "A", Model: "m1", Schema: summarySchema})
	require.NoError(t, err)
	assert.Equal(t, "A", res.Provider)
	assert.Equal(t, "m2", res.Model)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, models.GenerationAttempt{Provider: "A", Model: "m1", Error: "boom"}, res.Attempts[0])
}

func TestExecute_FallbackProviderTagsResult(t *testing.T) {
	a := mock.NewFailingProvider("A", errBoom)
	b := mock.NewProvider("B")
	exec := newExecutor(t,
		ai.CatalogEntry{Provider: a, Models: []string{"m1", "m2"}},
		ai.CatalogEntry{Provider: b, Models: []string{"b1"}},
	)

	res, err := exec.Execute(context.Background(), ai.Request{Provider: "A", Model: "m1", Schema: summarySchema})
	require.NoError(t, err)
	assert.Equal(t, "B", res.Provider)
	assert.Equal(t, "b1", res.Model)
	assert.Len(t, res.Attempts, 2)

	meta := res.Metadata()
	assert.Equal(t, "B", meta.Provider)
	assert.Len(t, meta.Attempts, 2)
}

func TestExecute_AlternateModelOnlyForFirstProvider(t *testing.T) {
	a := mock.NewFailingProvider("A", errBoom)
	b := mock.NewFailingProvider("B", errBoom)
	exec := newExecutor(t,
		ai.CatalogEntry{Provider: a, Models: []string{"m1"}},
		ai.CatalogEntry{Provider: b, Models: []string{"b1", "b2"}},
		ai.CatalogEntry{Provider: mock.NewProvider("C"), Models: []string{"c1"}},
	)

	res, err := exec.Execute(context.Background(), ai.Request{Provider: "A", Model: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "C", res.Provider)
	assert.Equal(t, [][2]string{{"A", "m1"}, {"B", "b1"}}, attemptPairs(res.Attempts))
}

func TestExecute_PreferredModelOutsideCatalogUsesFirstAsAlternate(t *testing.T) {
	a := mock.NewModelFailingProvider("A", errBoom, "custom")
	exec := newExecutor(t, ai.CatalogEntry{Provider: a, Models: []string{"m1", "m2"}})

	res, err := exec.Execute(context.Background(), ai.Request{Provider: "A", Model: "custom"})
	require.NoError(t, err)
	assert.Equal(t, "m1", res.Model)
}

func TestExecute_UnknownPreferredProvider(t *testing.T) {
	b := mock.NewProvider("B")
	exec := newExecutor(t, ai.CatalogEntry{Provider: b, Models: []string{"m1"}})

	res, err := exec.Execute(context.Background(), ai.Request{Provider: "nope", Model: "x"})
	require.NoError(t, err)
	assert.Equal(t, "B", res.Provider)
	assert.Equal(t, "m1", res.Model)
}

func TestExecute_NoCredentialedProvider(t *testing.T) {
	exec := newExecutor(t,
		ai.CatalogEntry{Provider: mock.NewUncredentialedProvider("A"), Models: []string{"m1"}},
		ai.CatalogEntry{Provider: mock.NewUncredentialedProvider("B"), Models: []string{"m1"}},
	)

	_, err := exec.Execute(context.Background(), ai.Request{Provider: "A"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrNoCredentialedProvider)
}

func TestExecute_SingleProviderSingleModel(t *testing.T) {
	a := mock.NewFailingProvider("A", errBoom)
	exec := newExecutor(t, ai.CatalogEntry{Provider: a, Models: []string{"m1"}})

	_, err := exec.Execute(context.Background(), ai.Request{Provider: "A"})
	var exhausted *ai.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Len(t, exhausted.Attempts, 1)
}

func TestExecute_MissingRequiredFieldIsFailure(t *testing.T) {
	partial := &mock.Provider{
		ProviderName: "A",
		Credentialed: true,
		GenerateFunc: func(_ context.Context, _ models.GenerateRequest) (models.GenerateResponse, error) {
			return models.GenerateResponse{Data: json.RawMessage(`{"summary":"only"}`)}, nil
		},
	}
	exec := newExecutor(t,
		ai.CatalogEntry{Provider: partial, Models: []string{"m1"}},
		ai.CatalogEntry{Provider: mock.NewProvider("B"), Models: []string{"m1"}},
	)

	res, err := exec.Execute(context.Background(), ai.Request{Provider: "A", Schema: summarySchema})
	require.NoError(t, err)
	assert.Equal(t, "B", res.Provider)
	require.Len(t, res.Attempts, 1)
	assert.Contains(t, res.Attempts[0].Error, `missing required field "chapters"`)
}

func TestExecute_NonObjectResponseIsFailure(t *testing.T) {
	bad := &mock.Provider{
		ProviderName: "A",
		Credentialed: true,
		GenerateFunc: func(_ context.Context, _ models.GenerateRequest) (models.GenerateResponse, error) {
			return models.GenerateResponse{Data: json.RawMessage(`["not","an","object"]`)}, nil
		},
	}
	exec := newExecutor(t, ai.CatalogEntry{Provider: bad, Models: []string{"m1"}})

	_, err := exec.Execute(context.Background(), ai.Request{Provider: "A", Schema: summarySchema})
	assert.ErrorIs(t, err, ai.ErrAllAttemptsFailed)
	assert.Contains(t, err.Error(), ai.ErrMalformedResponse.Error())
}

func TestExecute_PerAttemptTimeout(t *testing.T) {
	slow := mock.NewTimeoutProvider("A")
	catalog, err := ai.NewCatalog(
		ai.CatalogEntry{Provider: slow, Models: []string{"m1"}},
		ai.CatalogEntry{Provider: mock.NewProvider("B"), Models: []string{"m1"}},
	)
	require.NoError(t, err)
	exec := ai.NewExecutor(catalog, 20*time.Millisecond, testLogger())

	res, err := exec.Execute(context.Background(), ai.Request{Provider: "A"})
	require.NoError(t, err)
	assert.Equal(t, "B", res.Provider)
	require.Len(t, res.Attempts, 1)
	assert.Contains(t, res.Attempts[0].Error, ai.ErrInferenceTimeout.Error())
}

func TestCatalog_Validation(t *testing.T) {
	_, err := ai.NewCatalog(ai.CatalogEntry{Provider: mock.NewProvider("A")})
	assert.ErrorContains(t, err, "no models")

	_, err = ai.NewCatalog(
		ai.CatalogEntry{Provider: mock.NewProvider("A"), Models: []string{"m"}},
		ai.CatalogEntry{Provider: mock.NewProvider("A"), Models: []string{"m"}},
	)
	assert.ErrorContains(t, err, "twice")

	_, err = ai.NewCatalog(ai.CatalogEntry{Models: []string{"m"}})
	assert.Error(t, err)
}

func TestCatalog_Describe(t *testing.T) {
	catalog, err := ai.NewCatalog(
		ai.CatalogEntry{Provider: mock.NewProvider("A"), Models: []string{"m1", "m2"}},
		ai.CatalogEntry{Provider: mock.NewUncredentialedProvider("B"), Models: []string{"b1"}},
	)
	require.NoError(t, err)

	info := catalog.Describe()
	require.Len(t, info, 2)
	assert.Equal(t, ai.ProviderInfo{Name: "A", Models: []string{"m1", "m2"}, HasCredentials: true}, info[0])
	assert.False(t, info[1].HasCredentials)
	assert.True(t, catalog.HasCredentialedProvider())

	_, ok := catalog.Lookup("B")
	assert.True(t, ok)
	_, ok = catalog.Lookup("Z")
	assert.False(t, ok)
}
