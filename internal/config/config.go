// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Detection DetectionConfig `yaml:"detection"`
	Session   SessionConfig   `yaml:"session"`
	NER       NERConfig       `yaml:"ner"`
	Reviewer  ReviewerConfig  `yaml:"reviewer"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Converter ConverterConfig `yaml:"converter"`
}

// DetectionConfig holds the initial detection settings. They can be changed
// at runtime through the configure tool.
type DetectionConfig struct {
	ScoreThreshold   float64         `yaml:"score_threshold"`
	DisabledEntities []string        `yaml:"disabled_entities"`
	CustomPatterns   []CustomPattern `yaml:"custom_patterns"`
	ContextWords     int             `yaml:"context_words"` // words before a match searched for context keywords
}

// CustomPattern is a user-defined rule loaded at startup.
type CustomPattern struct {
	Name    string   `yaml:"name"`
	Pattern string   `yaml:"pattern"`
	Score   *float64 `yaml:"score"`
}

// SessionConfig controls the session store.
type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// NERConfig configures the span-tagger sidecar.
type NERConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ReviewerConfig configures the Ollama reviewer.
type ReviewerConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig holds the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig holds the Prometheus listener address. Empty disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// TracingConfig holds the OTLP collector endpoint. Empty disables tracing.
type TracingConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// ConverterConfig locates the legacy document converter.
type ConverterConfig struct {
	LibreOffice string `yaml:"libreoffice"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Detection.ScoreThreshold = 0.4
	cfg.Detection.ContextWords = 5
	cfg.Session.TTL = time.Hour
	cfg.NER.URL = "http://localhost:8001"
	cfg.NER.Timeout = 10 * time.Second
	cfg.Reviewer.URL = "http://localhost:11434"
	cfg.Reviewer.Model = "llama3.1"
	cfg.Reviewer.Timeout = 60 * time.Second
	cfg.Logging.Level = "info"
	cfg.Converter.LibreOffice = "libreoffice"
	return cfg
}

// LoadConfig loads configuration from the specified file path. A .env file
// in the working directory is loaded into the environment first; environment
// variables override the file.
func LoadConfig(configPath string) (*Config, error) {
	// Best-effort: variables already set take precedence over .env
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(filepath.Clean(configPath))
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := applyEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard locations
// when configFile is empty). If loading fails, it returns the default configuration
// with environment overrides applied where they parse.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		cfg, err = LoadConfig("")
		if err != nil {
			return Default()
		}
	}
	return cfg
}

// FindConfigFile looks for a configuration file in the working directory,
// then in the user configuration directory. It returns "" when none exists.
func FindConfigFile() string {
	for _, name := range []string{"redact.yaml", "redact.yml", "config.yaml"} {
		if fileExists(name) {
			return name
		}
	}

	if dir, err := os.UserConfigDir(); err == nil {
		path := filepath.Join(dir, "redact-mcp", "config.yaml")
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func applyEnv(c *Config) error {
	if v, ok := lookupEnv("REDACT_SCORE_THRESHOLD"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("REDACT_SCORE_THRESHOLD: %w", err)
		}
		c.Detection.ScoreThreshold = f
	}
	if v, ok := lookupEnv("REDACT_NER_URL"); ok {
		c.NER.URL = v
		c.NER.Enabled = true
	}
	if v, ok := lookupEnv("REDACT_OLLAMA_URL"); ok {
		c.Reviewer.URL = v
	}
	if v, ok := lookupEnv("REDACT_OLLAMA_MODEL"); ok {
		c.Reviewer.Model = v
	}
	if v, ok := lookupEnv("REDACT_LLM_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("REDACT_LLM_ENABLED: %w", err)
		}
		c.Reviewer.Enabled = b
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := lookupEnv("REDACT_METRICS_ADDR"); ok {
		c.Metrics.Addr = v
	}
	if v, ok := lookupEnv("OTEL_EXPORTER_OTLP_ENDPOINT"); ok {
		c.Tracing.Endpoint = v
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if t := c.Detection.ScoreThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("detection.score_threshold must be between 0.0 and 1.0, got %v", t))
	}
	if c.Detection.ContextWords < 0 {
		errs = append(errs, fmt.Errorf("detection.context_words must not be negative"))
	}
	for i, p := range c.Detection.CustomPatterns {
		if strings.TrimSpace(p.Name) == "" || p.Pattern == "" {
			errs = append(errs, fmt.Errorf("detection.custom_patterns[%d] needs a name and a pattern", i))
		}
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, fmt.Errorf("session.ttl must be positive, got %v", c.Session.TTL))
	}
	if c.NER.Enabled {
		if err := validateURL("ner.url", c.NER.URL); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Reviewer.Enabled {
		if err := validateURL("reviewer.url", c.Reviewer.URL); err != nil {
			errs = append(errs, err)
		}
		if strings.TrimSpace(c.Reviewer.Model) == "" {
			errs = append(errs, fmt.Errorf("reviewer.model is required when the reviewer is enabled"))
		}
	}
	return errors.Join(errs...)
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, raw)
	}
	return nil
}
