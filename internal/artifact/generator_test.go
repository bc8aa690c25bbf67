package artifact

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/autoshow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGenerator_Generate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer img-key", r.Header.Get("Authorization"))

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a lighthouse at dusk", req.Input)
		assert.Equal(t, "1024x1024", req.Options["size"])

		_, _ = w.Write([]byte(`{"url":"https://cdn.example.com/img/1.png","cost":0.04}`))
	}))
	defer ts.Close()

	g := NewHTTPGenerator("image", config.EndpointConfig{URL: ts.URL, APIKey: "img-key"}, 5*time.Second)
	require.True(t, g.Configured())

	a, err := g.Generate(context.Background(), Request{Input: "a lighthouse at dusk", Options: map[string]string{"size": "1024x1024"}})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/img/1.png", a.URL)
	assert.Equal(t, 0.04, a.Cost)
	assert.Equal(t, "a lighthouse at dusk", a.Prompt)
}

func TestHTTPGenerator_NotConfigured(t *testing.T) {
	g := NewHTTPGenerator("video", config.EndpointConfig{}, time.Second)
	assert.False(t, g.Configured())

	_, err := g.Generate(context.Background(), Request{Input: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestHTTPGenerator_EmptyURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cost":1}`))
	}))
	defer ts.Close()

	_, err := NewHTTPGenerator("music", config.EndpointConfig{URL: ts.URL}, time.Second).Generate(context.Background(), Request{Input: "x"})
	assert.ErrorIs(t, err, ErrEmptyArtifact)
}

func TestHTTPGenerator_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := NewHTTPGenerator("speech", config.EndpointConfig{URL: ts.URL}, time.Second).Generate(context.Background(), Request{Input: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "speech generation")
	assert.Contains(t, err.Error(), "502")
}

func TestNewSet(t *testing.T) {
	set := NewSet(config.ArtifactsConfig{
		Timeout: time.Second,
		Speech:  config.EndpointConfig{URL: "https://tts.example.com"},
	})
	assert.True(t, set.Speech.Configured())
	assert.False(t, set.Image.Configured())
	assert.Equal(t, "music", set.Music.Name())
	assert.Equal(t, "video", set.Video.Name())
}
