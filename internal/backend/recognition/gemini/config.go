package gemini

import (
	"time"

	"github.com/jo-hoe/cardreader/internal/backend/resilience"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-1.5-flash"
	DefaultTimeout = 120 * time.Second
)

type Config struct {
	APIKey     string            `yaml:"apiKey"`
	BaseURL    string            `yaml:"baseURL"`
	Model      string            `yaml:"model"`
	Timeout    time.Duration     `yaml:"timeout"`
	Resilience resilience.Policy `yaml:"resilience"`
}

// WithDefaults fills unset values
func (c Config) WithDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	c.Resilience = c.Resilience.WithDefaults()
	return c
}
