// Package config resolves runtime configuration from MARA_-prefixed
// environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the core needs at startup.
type Config struct {
	// GenAI collaborator settings.
	GenAIAPIKey  string        `envconfig:"GENAI_API_KEY" default:""`
	GenAIModel   string        `envconfig:"GENAI_MODEL" default:"gemini-3-flash-preview"`
	GenAIBaseURL string        `envconfig:"GENAI_BASE_URL" default:""`
	GenAITimeout time.Duration `envconfig:"GENAI_TIMEOUT" default:"60s"`

	// StorePath is the SQLite data source; ":memory:" keeps everything
	// ephemeral, which is what the wasm build wants before OPFS sync.
	StorePath string `envconfig:"STORE_PATH" default:":memory:"`

	// LogLevel is a zerolog level string (debug, info, warn, error).
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// New parses MARA_* environment variables.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("MARA", &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to process environment: %w", err)
	}
	return &cfg, nil
}

// Default returns the production defaults without reading the environment,
// for hosts with no environment to read (the wasm build).
func Default() *Config {
	return &Config{
		GenAIModel:   "gemini-3-flash-preview",
		GenAITimeout: 60 * time.Second,
		StorePath:    ":memory:",
		LogLevel:     "info",
	}
}

// NewForTesting returns a config safe for tests: in-memory store, no API
// key, short timeout.
func NewForTesting() *Config {
	return &Config{
		GenAIModel:   "gemini-3-flash-preview",
		GenAITimeout: 2 * time.Second,
		StorePath:    ":memory:",
		LogLevel:     "warn",
	}
}
