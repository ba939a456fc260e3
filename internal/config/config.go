// Package config loads vtt-translate settings from a TOML file and the
// environment. Command-line flags are applied on top by the cli package.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	EnvAzureKey     = "AZURE_TRANSLATION_RESOURCE_KEY"
	EnvAzureRegion  = "AZURE_TRANSLATION_RESOURCE_REGION"
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvGeminiKey    = "GEMINI_API_KEY"
)

// Azure contains the Azure AI Translator resource settings.
type Azure struct {
	Key      string `toml:"key"`
	Region   string `toml:"region"`
	Endpoint string `toml:"endpoint"`
}

// LLM contains settings for the openai, anthropic and gemini providers.
type LLM struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
	Prompt string `toml:"prompt"`
}

// Translation contains batching and pacing of API requests.
type Translation struct {
	BatchSize         int     `toml:"batch_size"`
	MaxBatchChars     int     `toml:"max_batch_chars"`
	Concurrency       int     `toml:"concurrency"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Logging contains log output settings.
type Logging struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

type Config struct {
	Provider       string `toml:"provider"`
	SourceLanguage string `toml:"source_language"`
	TargetLanguage string `toml:"target_language"`

	Azure       Azure       `toml:"azure"`
	LLM         LLM         `toml:"llm"`
	Translation Translation `toml:"translation"`
	Logging     Logging     `toml:"logging"`
}

func Default() Config {
	return Config{
		Provider:       "azure",
		TargetLanguage: "fa",
		Translation: Translation{
			Concurrency: 1,
		},
		Logging: Logging{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// DefaultPath is <user config dir>/vtt-translate/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "vtt-translate", "config.toml"), nil
}

// Load builds the configuration from defaults, the TOML file at path and the
// environment. An empty path reads the default location, where a missing
// file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAzureKey); v != "" {
		c.Azure.Key = v
	}
	if v := os.Getenv(EnvAzureRegion); v != "" {
		c.Azure.Region = v
	}
}

func (c *Config) normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.SourceLanguage = strings.TrimSpace(c.SourceLanguage)
	c.TargetLanguage = strings.TrimSpace(c.TargetLanguage)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// llmKeyEnv names the environment variable holding the API key for the
// configured LLM provider.
func (c *Config) llmKeyEnv() string {
	switch c.Provider {
	case "openai":
		return EnvOpenAIKey
	case "anthropic":
		return EnvAnthropicKey
	case "gemini":
		return EnvGeminiKey
	default:
		return ""
	}
}

// APIKey returns the credential used by the configured provider. An explicit
// llm.api_key wins; otherwise the environment variable of the current
// provider is read, so a provider changed after Load gets its own key.
func (c *Config) APIKey() string {
	if c.Provider == "azure" {
		return c.Azure.Key
	}
	if c.LLM.APIKey != "" {
		return c.LLM.APIKey
	}
	if env := c.llmKeyEnv(); env != "" {
		return os.Getenv(env)
	}
	return ""
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProvider(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateProvider() error {
	switch c.Provider {
	case "azure":
		if c.Azure.Key == "" {
			return fmt.Errorf(
				"azure key is required: use --azure-key, set %s, or azure.key in the config file",
				EnvAzureKey,
			)
		}
		if c.Azure.Region == "" {
			return fmt.Errorf(
				"azure region is required: use --azure-region, set %s, or azure.region in the config file",
				EnvAzureRegion,
			)
		}
	case "openai", "anthropic", "gemini":
		if c.APIKey() == "" {
			return fmt.Errorf(
				"API key is required: use --api-key flag or set %s environment variable",
				c.llmKeyEnv(),
			)
		}
	default:
		return fmt.Errorf(
			"unsupported provider %q: use azure, openai, anthropic, or gemini",
			c.Provider,
		)
	}
	return nil
}

func (c *Config) validateTranslation() error {
	t := c.Translation
	if t.BatchSize < 0 {
		return fmt.Errorf("translation.batch_size must not be negative, got %d", t.BatchSize)
	}
	if t.MaxBatchChars < 0 {
		return fmt.Errorf("translation.max_batch_chars must not be negative, got %d", t.MaxBatchChars)
	}
	if t.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", t.Concurrency)
	}
	if t.RequestsPerSecond < 0 {
		return fmt.Errorf("translation.requests_per_second must not be negative, got %g", t.RequestsPerSecond)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
