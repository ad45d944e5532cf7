package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrInvalidProvider = errors.New("llm.provider must be \"openai\" or \"langchain\"")
	ErrInvalidWindow   = errors.New("window tiers must be positive and small_file_lines <= medium_file_lines")
	ErrInvalidTimeout  = errors.New("llm.timeout must be positive")
)

// EnvPrefix is the prefix of environment overrides. Sections are separated
// by a double underscore: CODEASSIST_LLM__API_KEY sets llm.api_key.
const EnvPrefix = "CODEASSIST_"

// Config holds the global configuration.
type Config struct {
	LLM    LLMConfig    `koanf:"llm"`
	Window WindowConfig `koanf:"window"`
	Log    LogConfig    `koanf:"log"`
}

// LLMConfig configures the model transport.
type LLMConfig struct {
	Provider          string        `koanf:"provider"` // "openai" (built-in client) or "langchain"
	APIKey            string        `koanf:"api_key"`
	BaseURL           string        `koanf:"base_url"`
	Model             string        `koanf:"model"`
	MaxTokens         int           `koanf:"max_tokens"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerMinute float64       `koanf:"requests_per_minute"` // 0 disables pacing
}

// WindowConfig holds the context window tiers (line counts).
type WindowConfig struct {
	SmallFileLines  int `koanf:"small_file_lines"`
	MediumFileLines int `koanf:"medium_file_lines"`
	MediumRadius    int `koanf:"medium_radius"`
	LargeRadius     int `koanf:"large_radius"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `koanf:"level"`
	File  string `koanf:"file"`
}

func defaults() map[string]any {
	return map[string]any{
		"llm.provider":             "openai",
		"llm.base_url":             "https://api.openai.com/v1",
		"llm.model":                "gpt-4o",
		"llm.max_tokens":           4096,
		"llm.timeout":              "30s",
		"llm.requests_per_minute":  0,
		"window.small_file_lines":  500,
		"window.medium_file_lines": 2000,
		"window.medium_radius":     100,
		"window.large_radius":      50,
		"log.level":                "info",
	}
}

// DefaultPath returns ~/.config/codeassist/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".codeassist", "config.toml")
	}
	return filepath.Join(home, ".config", "codeassist", "config.toml")
}

// Load reads the config from the default path. A missing file is not an
// error: defaults and environment overrides still apply.
func Load() (*Config, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom reads the config from a specific path, layering defaults, the TOML
// file (if present) and CODEASSIST_ environment variables.
//
// A missing API key is not reported here. It is a per-send configuration
// error surfaced by the model transport.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "langchain":
	default:
		return ErrInvalidProvider
	}
	if c.LLM.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	w := c.Window
	if w.SmallFileLines <= 0 || w.MediumFileLines <= 0 || w.MediumRadius < 0 || w.LargeRadius < 0 ||
		w.SmallFileLines > w.MediumFileLines {
		return ErrInvalidWindow
	}
	return nil
}
