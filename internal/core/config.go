package core

import (
	"fmt"
	"os"
	"strings"

	"github.com/labstack/gommon/bytes"
	"gopkg.in/yaml.v3"

	"github.com/jo-hoe/cardreader/internal/backend/commandstructure"
	"github.com/jo-hoe/cardreader/internal/backend/database"
	"github.com/jo-hoe/cardreader/internal/backend/recognition/gemini"
	"github.com/jo-hoe/cardreader/internal/common"
)

const (
	EngineGemini = "gemini"

	// GeminiAPIKeyEnv overrides recognition.gemini.apiKey
	GeminiAPIKeyEnv = "GEMINI_API_KEY"
)

// CommandConfig represents a generic command configuration
type CommandConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:",inline"`
}

type Database struct {
	Type             string `yaml:"type" validate:"oneof=json sqlite redis postgres"`
	ConnectionString string `yaml:"connectionString" validate:"required"`
}

type Upload struct {
	// MaxSize is the request body limit, e.g. "16M"
	MaxSize           string   `yaml:"maxSize" validate:"required"`
	AllowedExtensions []string `yaml:"allowedExtensions" validate:"min=1,dive,required"`
	RequestsPerSecond float64  `yaml:"requestsPerSecond" validate:"gt=0"`
	Burst             int      `yaml:"burst" validate:"min=1"`
	// DiscardImage skips storing the processed image with each record
	DiscardImage bool `yaml:"discardImage"`
}

type Recognition struct {
	// Engine extracts text from images. Classification always uses gemini.
	Engine    string        `yaml:"engine" validate:"required"`
	Gemini    gemini.Config `yaml:"gemini"`
	Languages []string      `yaml:"languages"`
}

type ServiceConfig struct {
	Port        int             `yaml:"port" validate:"min=1,max=65535"`
	LogLevel    string          `yaml:"logLevel"`
	LogFormat   string          `yaml:"logFormat" validate:"omitempty,oneof=text json"`
	Database    Database        `yaml:"database"`
	Upload      Upload          `yaml:"upload"`
	Recognition Recognition     `yaml:"recognition"`
	ExportDir   string          `yaml:"exportDir" validate:"required"`
	Commands    []CommandConfig `yaml:"commands"`
}

// DefaultCommands converts uploads to PNG and bounds their longest side
func DefaultCommands() []CommandConfig {
	return []CommandConfig{
		{Name: "PngConverterCommand", Params: map[string]any{}},
		{Name: "MaxDimensionCommand", Params: map[string]any{"maxDimension": 2000}},
	}
}

// DefaultConfig is used for every value the config file leaves unset
func DefaultConfig() ServiceConfig {
	return ServiceConfig{
		Port:      8888,
		LogLevel:  "info",
		LogFormat: "text",
		Database: Database{
			Type:             database.TypeJSON,
			ConnectionString: "data/ocr_results.json",
		},
		Upload: Upload{
			MaxSize:           "16M",
			AllowedExtensions: []string{"png", "jpg", "jpeg", "gif"},
			RequestsPerSecond: 1,
			Burst:             5,
		},
		Recognition: Recognition{
			Engine: EngineGemini,
			Gemini: gemini.Config{}.WithDefaults(),
		},
		ExportDir: "data",
		Commands:  DefaultCommands(),
	}
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return config, nil
}

// ParseConfig parses YAML, applies defaults and environment overrides and
// validates the result
func ParseConfig(data []byte) (*ServiceConfig, error) {
	var config ServiceConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	if key := strings.TrimSpace(os.Getenv(GeminiAPIKeyEnv)); key != "" {
		config.Recognition.Gemini.APIKey = key
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// CommandConfigs converts the configured commands for the command invoker
func (c *ServiceConfig) CommandConfigs() []commandstructure.CommandConfig {
	configs := make([]commandstructure.CommandConfig, len(c.Commands))
	for i, cmd := range c.Commands {
		configs[i] = commandstructure.CommandConfig{Name: cmd.Name, Params: cmd.Params}
	}
	return configs
}

func (c *ServiceConfig) applyDefaults() {
	def := DefaultConfig()

	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = def.LogFormat
	}
	if c.Database.Type == "" {
		c.Database.Type = def.Database.Type
	}
	if c.Database.ConnectionString == "" && c.Database.Type == database.TypeJSON {
		c.Database.ConnectionString = def.Database.ConnectionString
	}
	if c.Upload.MaxSize == "" {
		c.Upload.MaxSize = def.Upload.MaxSize
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		c.Upload.AllowedExtensions = def.Upload.AllowedExtensions
	}
	for i, ext := range c.Upload.AllowedExtensions {
		c.Upload.AllowedExtensions[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	}
	if c.Upload.RequestsPerSecond == 0 {
		c.Upload.RequestsPerSecond = def.Upload.RequestsPerSecond
	}
	if c.Upload.Burst == 0 {
		c.Upload.Burst = def.Upload.Burst
	}
	if c.Recognition.Engine == "" {
		c.Recognition.Engine = def.Recognition.Engine
	}
	c.Recognition.Gemini = c.Recognition.Gemini.WithDefaults()
	if c.ExportDir == "" {
		c.ExportDir = def.ExportDir
	}
	// an explicit empty list disables preprocessing
	if c.Commands == nil {
		c.Commands = DefaultCommands()
	}
}

func (c *ServiceConfig) validate() error {
	if err := common.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := bytes.Parse(c.Upload.MaxSize); err != nil {
		return fmt.Errorf("invalid upload.maxSize %q: %w", c.Upload.MaxSize, err)
	}

	// Validate commands
	if err := validateCommands(c.Commands); err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}
	return nil
}

// validateCommands ensures all command configurations have required fields
func validateCommands(commands []CommandConfig) error {
	seenNames := make(map[string]bool)

	for i, cmd := range commands {
		// Validate name is not empty
		if cmd.Name == "" {
			return fmt.Errorf("command at index %d has empty name", i)
		}

		// Validate name is unique
		if seenNames[cmd.Name] {
			return fmt.Errorf("duplicate command name: %s", cmd.Name)
		}
		seenNames[cmd.Name] = true
	}

	return nil
}
