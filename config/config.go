// Package config holds the settings for the terminal tooling built on the
// client. The library itself needs nothing beyond transport.Options; this
// package layers file and environment resolution on top for the demos.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/publicai/apertus-go/transport"
)

// Settings configures the chat demo. Values come from an optional YAML file
// first, then environment variables override.
type Settings struct {
	APIKey         string  `yaml:"api_key" envconfig:"APERTUS_API_KEY"`
	BaseURL        string  `yaml:"base_url" envconfig:"APERTUS_BASE_URL"`
	TimeoutSeconds float64 `yaml:"timeout_seconds" envconfig:"APERTUS_TIMEOUT_SECONDS"`
	Model          string  `yaml:"model" envconfig:"APERTUS_MODEL"`
	SystemPrompt   string  `yaml:"system_prompt" envconfig:"APERTUS_SYSTEM_PROMPT"`
}

// Load resolves settings. path may be empty to skip file loading.
func Load(path string) (*Settings, error) {
	var s Settings
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := envconfig.Process("apertus", &s); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return &s, nil
}

// Timeout returns the configured request timeout, zero when unset so the
// transport default applies.
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds * float64(time.Second))
}

// Options maps the settings onto transport options.
func (s *Settings) Options() transport.Options {
	return transport.Options{
		APIKey:  s.APIKey,
		BaseURL: s.BaseURL,
		Timeout: s.Timeout(),
	}
}
