package filter

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// DefaultPrompt instructs the vision model to transcribe without
// interpreting. Matching the prompt in both the system and user messages
// keeps models that ignore one of the two on task.
const DefaultPrompt = "Please only recognize and extract the text or data " +
	"from this image without interpreting, analyzing, or understanding the " +
	"content. Do not output any additional information. Simply return the " +
	"recognized text or data content."

// Defaults applied by FromEnv for unset or empty variables.
const (
	DefaultBaseURL    = "https://api.openai.com"
	DefaultMaxRetries = 3
	DefaultModel      = "gemini-1.5-flash-latest"
)

// Config holds the filter settings. It is read-only after construction and
// safe to share across concurrent invocations.
type Config struct {
	// Priority orders this filter among sibling hooks on the host. The
	// filter itself never consults it.
	Priority int `env:"LENS_PRIORITY" toml:"priority"`

	// BaseURL of the vision provider; extraction requests are posted to
	// {BaseURL}/v1/chat/completions. Defaults to DefaultBaseURL.
	BaseURL string `env:"OCR_BASE_URL" toml:"ocr_base_url"`

	// APIKey is sent as a bearer token on every extraction request.
	APIKey string `env:"OCR_API_KEY" toml:"ocr_api_key"`

	// MaxRetries is the total attempt budget per extraction, minimum 1.
	// Defaults to DefaultMaxRetries.
	MaxRetries int `env:"OCR_MAX_RETRIES" toml:"max_retries"`

	// Prompt is the extraction instruction sent to the vision model.
	// Defaults to DefaultPrompt.
	Prompt string `env:"OCR_PROMPT" toml:"ocr_prompt"`

	// Model is the vision model used for extraction. Defaults to
	// DefaultModel.
	Model string `env:"OCR_MODEL" toml:"model_name"`
}

// FromEnv loads and validates the config from the process environment.
// Variables that are unset or present-but-empty (common with .env
// templates) take the package defaults.
func FromEnv() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse filter config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued fields. Zero retries means "not
// configured"; an explicit invalid budget is still caught by Validate.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.Prompt == "" {
		c.Prompt = DefaultPrompt
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
}

// Validate rejects configurations the fetcher cannot run with.
func (c Config) Validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("ocr_base_url must not be empty")
	}
	if c.Model == "" {
		return fmt.Errorf("model_name must not be empty")
	}
	return nil
}
