package proxy

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/lens/filter"
)

// Config is the proxy server configuration.
type Config struct {
	// Address to listen on (e.g., ":6070")
	ListenAddr string `toml:"listen_addr"`

	// Upstream chat-completions provider URL (e.g., "https://api.openai.com")
	UpstreamURL string `toml:"upstream_url"`

	// Filter holds the OCR filter settings.
	Filter filter.Config `toml:"filter"`
}

// LoadFile decodes a TOML config file over the given defaults. Fields
// absent from the file keep their default values.
func LoadFile(path string, defaults Config) (Config, error) {
	cfg := defaults
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return cfg, nil
}
