package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kiranshivaraju/autoshow/internal/progress"
)

// Config holds all configuration for the AutoShow server.
type Config struct {
	Server        ServerConfig
	Log           LogConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	AI            AIConfig
	Transcription TranscriptionConfig
	Segment       SegmentConfig
	Pipeline      PipelineConfig
	Media         MediaConfig
	Artifacts     ArtifactsConfig
}

type ServerConfig struct {
	Port               int
	Env                string
	RateLimitPerMinute int
}

type LogConfig struct {
	Level string
	File  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type AIConfig struct {
	FallbackOrder    []string
	CatalogFile      string
	InferenceTimeout time.Duration
	// Models is the per-provider model list, defaults merged with CatalogFile.
	Models    map[string][]string
	Ollama    OllamaConfig
	VLLM      VLLMConfig
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
}

type OllamaConfig struct {
	BaseURL string
}

type VLLMConfig struct {
	BaseURL string
	APIKey  string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

type AnthropicConfig struct {
	APIKey  string
	BaseURL string
}

type TranscriptionConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

type SegmentConfig struct {
	ThresholdSecs int
	WindowSecs    int
	Concurrency   int
}

type PipelineConfig struct {
	StageWeights progress.Weights
}

type MediaConfig struct {
	WorkDir        string
	FFmpegPath     string
	FFprobePath    string
	YtDlpPath      string
	MinSourceBytes int64

	// MaxDownloadBytes caps url inputs fetched over HTTP.
	MaxDownloadBytes int64
}

// EndpointConfig addresses one non-LLM generation provider.
type EndpointConfig struct {
	URL    string
	APIKey string
}

type ArtifactsConfig struct {
	Timeout time.Duration
	Speech  EndpointConfig
	Image   EndpointConfig
	Music   EndpointConfig
	Video   EndpointConfig
}

var validProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
	"ollama":    true,
	"vllm":      true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               envInt("AUTOSHOW_PORT", 8080),
			Env:                envString("AUTOSHOW_ENV", "development"),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Log: LogConfig{
			Level: envString("LOG_LEVEL", "info"),
			File:  os.Getenv("LOG_FILE"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		AI: AIConfig{
			FallbackOrder:    envList("LLM_FALLBACK_ORDER", []string{"openai", "anthropic", "ollama", "vllm"}),
			CatalogFile:      os.Getenv("PROVIDER_CATALOG_FILE"),
			InferenceTimeout: envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 120*time.Second),
			Ollama: OllamaConfig{
				BaseURL: os.Getenv("OLLAMA_BASE_URL"),
			},
			VLLM: VLLMConfig{
				BaseURL: os.Getenv("VLLM_BASE_URL"),
				APIKey:  os.Getenv("VLLM_API_KEY"),
			},
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			},
			Anthropic: AnthropicConfig{
				APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
				BaseURL: envString("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
			},
		},
		Transcription: TranscriptionConfig{
			BaseURL:    envString("TRANSCRIPTION_BASE_URL", "https://api.openai.com/v1"),
			APIKey:     envString("TRANSCRIPTION_API_KEY", os.Getenv("OPENAI_API_KEY")),
			Model:      envString("TRANSCRIPTION_MODEL", "whisper-1"),
			Timeout:    envDurationSecs("TRANSCRIPTION_TIMEOUT_SECS", 600*time.Second),
			MaxRetries: envInt("TRANSCRIPTION_MAX_RETRIES", 3),
		},
		Segment: SegmentConfig{
			ThresholdSecs: envInt("SEGMENT_THRESHOLD_SECS", 1800),
			WindowSecs:    envInt("SEGMENT_WINDOW_SECS", 1800),
			Concurrency:   envInt("SEGMENT_CONCURRENCY", 3),
		},
		Pipeline: PipelineConfig{
			StageWeights: progress.DefaultWeights,
		},
		Media: MediaConfig{
			WorkDir:          envString("WORK_DIR", filepath.Join(os.TempDir(), "autoshow")),
			FFmpegPath:       envString("FFMPEG_PATH", "ffmpeg"),
			FFprobePath:      envString("FFPROBE_PATH", "ffprobe"),
			YtDlpPath:        envString("YTDLP_PATH", "yt-dlp"),
			MinSourceBytes:   int64(envInt("MIN_SOURCE_BYTES", 1024)),
			MaxDownloadBytes: envInt64("MAX_DOWNLOAD_BYTES", 4<<30),
		},
		Artifacts: ArtifactsConfig{
			Timeout: envDurationSecs("ARTIFACT_TIMEOUT_SECS", 300*time.Second),
			Speech:  EndpointConfig{URL: os.Getenv("SPEECH_URL"), APIKey: os.Getenv("SPEECH_API_KEY")},
			Image:   EndpointConfig{URL: os.Getenv("IMAGE_URL"), APIKey: os.Getenv("IMAGE_API_KEY")},
			Music:   EndpointConfig{URL: os.Getenv("MUSIC_URL"), APIKey: os.Getenv("MUSIC_API_KEY")},
			Video:   EndpointConfig{URL: os.Getenv("VIDEO_URL"), APIKey: os.Getenv("VIDEO_API_KEY")},
		},
	}

	if v := os.Getenv("STAGE_WEIGHTS"); v != "" {
		w, err := progress.ParseWeights(v)
		if err != nil {
			return nil, fmt.Errorf("STAGE_WEIGHTS: %w", err)
		}
		cfg.Pipeline.StageWeights = w
	}

	models, err := LoadCatalog(cfg.AI.CatalogFile)
	if err != nil {
		return nil, err
	}
	cfg.AI.Models = models

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if !strings.HasPrefix(c.Database.URL, "postgres://") &&
		!strings.HasPrefix(c.Database.URL, "postgresql://") &&
		!strings.HasPrefix(c.Database.URL, "sqlite://") {
		return fmt.Errorf("DATABASE_URL must start with postgres://, postgresql:// or sqlite://, got %q", c.Database.URL)
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if !strings.HasPrefix(c.Redis.URL, "redis://") &&
		!strings.HasPrefix(c.Redis.URL, "rediss://") &&
		c.Redis.URL != "memory://" {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, or be memory://, got %q", c.Redis.URL)
	}

	if len(c.AI.FallbackOrder) == 0 {
		return fmt.Errorf("LLM_FALLBACK_ORDER must name at least one provider")
	}
	seen := make(map[string]bool)
	for _, p := range c.AI.FallbackOrder {
		if !validProviders[p] {
			return fmt.Errorf("LLM_FALLBACK_ORDER entries must be one of openai, anthropic, ollama, vllm; got %q", p)
		}
		if seen[p] {
			return fmt.Errorf("LLM_FALLBACK_ORDER lists %q twice", p)
		}
		seen[p] = true
		if len(c.AI.Models[p]) == 0 {
			return fmt.Errorf("provider %q has no models in the catalog", p)
		}
	}
	if c.AI.InferenceTimeout <= 0 {
		return fmt.Errorf("AI_INFERENCE_TIMEOUT_SECS must be positive")
	}

	for name, u := range map[string]string{
		"OPENAI_BASE_URL":        c.AI.OpenAI.BaseURL,
		"ANTHROPIC_BASE_URL":     c.AI.Anthropic.BaseURL,
		"OLLAMA_BASE_URL":        c.AI.Ollama.BaseURL,
		"VLLM_BASE_URL":          c.AI.VLLM.BaseURL,
		"TRANSCRIPTION_BASE_URL": c.Transcription.BaseURL,
		"SPEECH_URL":             c.Artifacts.Speech.URL,
		"IMAGE_URL":              c.Artifacts.Image.URL,
		"MUSIC_URL":              c.Artifacts.Music.URL,
		"VIDEO_URL":              c.Artifacts.Video.URL,
	} {
		if u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("%s must start with http:// or https://, got %q", name, u)
		}
	}

	if c.Segment.WindowSecs <= 0 {
		return fmt.Errorf("SEGMENT_WINDOW_SECS must be positive")
	}
	if c.Segment.ThresholdSecs < 0 {
		return fmt.Errorf("SEGMENT_THRESHOLD_SECS must not be negative")
	}
	if c.Segment.Concurrency < 1 {
		return fmt.Errorf("SEGMENT_CONCURRENCY must be at least 1")
	}

	if err := c.Pipeline.StageWeights.Validate(); err != nil {
		return fmt.Errorf("STAGE_WEIGHTS: %w", err)
	}

	if c.Media.MaxDownloadBytes <= 0 {
		return fmt.Errorf("MAX_DOWNLOAD_BYTES must be positive")
	}

	if c.Server.RateLimitPerMinute < 1 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be at least 1")
	}

	return nil
}

// IsProduction reports whether the server runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
