package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before they are matched
// against config keys, so DOCDECK_WORKER_COUNT sets worker_count.
const EnvPrefix = "DOCDECK_"

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "docdeck.toml"

type Config struct {
	Port string `koanf:"port"`

	// Auth
	APIKey string `koanf:"api_key"`

	// Text generation
	LLMProvider          string        `koanf:"llm_provider"`
	GeminiAPIKey         string        `koanf:"gemini_api_key"`
	GeminiModel          string        `koanf:"gemini_model"`
	OpenAIAPIKey         string        `koanf:"openai_api_key"`
	OpenAIModel          string        `koanf:"openai_model"`
	OpenAIBaseURL        string        `koanf:"openai_base_url"`
	AnthropicAPIKey      string        `koanf:"anthropic_api_key"`
	AnthropicModel       string        `koanf:"anthropic_model"`
	LLMTimeout           time.Duration `koanf:"llm_timeout"`
	LLMRequestsPerSecond float64       `koanf:"llm_requests_per_second"`
	LLMBurst             int           `koanf:"llm_burst"`

	// Icons
	IconBaseURL        string `koanf:"icon_base_url"`
	IconSet            string `koanf:"icon_set"`
	IconRetranslations int    `koanf:"icon_retranslations"`

	// Worker pool
	WorkerCount  int `koanf:"worker_count"`
	MaxQueueSize int `koanf:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// Run state
	RunTTL time.Duration `koanf:"run_ttl"`

	// Pipeline tuning
	StructureChunkTokens int  `koanf:"structure_chunk_tokens"`
	AgendaMaxItems       int  `koanf:"agenda_max_items"`
	TableMaxRows         int  `koanf:"table_max_rows"`
	StructuralRepair     bool `koanf:"structural_repair"`
	PDFFallbackPdftotext bool `koanf:"pdf_fallback_pdftotext"`

	// Artifacts
	StorageBackend  string `koanf:"storage_backend"`
	StorageDir      string `koanf:"storage_dir"`
	S3Bucket        string `koanf:"s3_bucket"`
	S3Region        string `koanf:"s3_region"`
	S3Endpoint      string `koanf:"s3_endpoint"`
	S3AccessKey     string `koanf:"s3_access_key"`
	S3SecretKey     string `koanf:"s3_secret_key"`
	S3Prefix        string `koanf:"s3_prefix"`
	PathstoreURL    string `koanf:"pathstore_url"`
	PathstoreAPIKey string `koanf:"pathstore_api_key"`

	// Presentation
	DefaultTheme string `koanf:"default_theme"`
	DefaultMode  string `koanf:"default_mode"`

	LogLevel string `koanf:"log_level"`
}

func defaults() map[string]any {
	return map[string]any{
		"port": "8090",

		"llm_provider":            "gemini",
		"gemini_model":            "gemini-2.5-flash",
		"openai_model":            "gpt-4.1-mini",
		"anthropic_model":         "claude-sonnet-4-5-20250929",
		"llm_timeout":             "5m",
		"llm_requests_per_second": 0,
		"llm_burst":               1,

		"icon_base_url":       "https://api.iconify.design",
		"icon_set":            "lucide",
		"icon_retranslations": 2,

		"worker_count":   4,
		"max_queue_size": 100,

		"max_upload_bytes": 52428800, // 50MB

		"run_ttl": "1h",

		"structure_chunk_tokens": 6000,
		"agenda_max_items":       6,
		"table_max_rows":         7,
		"structural_repair":      false,
		"pdf_fallback_pdftotext": true,

		"storage_backend": "fs",
		"storage_dir":     "./data",
		"s3_region":       "us-east-1",
		"pathstore_url":   "http://localhost:8080",

		"default_theme": "corporate",
		"default_mode":  "light",

		"log_level": "info",
	}
}

// Load layers built-in defaults, then the TOML file at path (or DefaultFile
// when path is empty and the file exists), then DOCDECK_* environment
// variables.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyFloors()
	return cfg, nil
}

// applyFloors replaces non-positive sizes with their defaults.
func (c *Config) applyFloors() {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 100
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 52428800
	}
	if c.RunTTL <= 0 {
		c.RunTTL = time.Hour
	}
	if c.StructureChunkTokens <= 0 {
		c.StructureChunkTokens = 6000
	}
	if c.AgendaMaxItems <= 0 {
		c.AgendaMaxItems = 6
	}
	if c.TableMaxRows <= 0 {
		c.TableMaxRows = 7
	}
	if c.IconRetranslations < 0 {
		c.IconRetranslations = 2
	}
}

// Validate checks the keys the selected provider and backend need. The
// service key is checked separately by the server since the CLI has none.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return errors.New("DOCDECK_GEMINI_API_KEY is required")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return errors.New("DOCDECK_OPENAI_API_KEY is required")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return errors.New("DOCDECK_ANTHROPIC_API_KEY is required")
		}
	default:
		return fmt.Errorf("unknown llm_provider %q", c.LLMProvider)
	}

	switch c.StorageBackend {
	case "fs":
		if c.StorageDir == "" {
			return errors.New("storage_dir is required for the fs backend")
		}
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("s3_bucket is required for the s3 backend")
		}
	case "pathstore":
		if c.PathstoreURL == "" || c.PathstoreAPIKey == "" {
			return errors.New("pathstore_url and pathstore_api_key are required for the pathstore backend")
		}
	default:
		return fmt.Errorf("unknown storage_backend %q", c.StorageBackend)
	}
	return nil
}

// ValidateServer additionally requires the service bearer key.
func (c Config) ValidateServer() error {
	if c.APIKey == "" {
		return errors.New("DOCDECK_API_KEY is required")
	}
	return c.Validate()
}

// SlogLevel maps log_level to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
