// Package config loads bot configuration from a YAML file with environment
// overrides for secrets and paths.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full bot configuration. File values override defaults;
// environment variables override the file.
type Config struct {
	DBPath       string `yaml:"db_path"`
	SettingsPath string `yaml:"settings_path"`

	GeminiAPIKey string `yaml:"gemini_api_key"`
	RouterModel  string `yaml:"router_model"`
	ExtractModel string `yaml:"extract_model"`

	CatchAllCategory string   `yaml:"catch_all_category"`
	AllowedUserIDs   []int64  `yaml:"allowed_user_ids"`
	AllowedUsernames []string `yaml:"allowed_usernames"`

	ThinkingChars   int `yaml:"thinking_chars"`
	ThinkingSeconds int `yaml:"thinking_seconds"`

	PendingTTLMinutes     int `yaml:"pending_ttl_minutes"`
	SchemaCacheTTLSeconds int `yaml:"schema_cache_ttl_seconds"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DBPath:                filepath.Join(home, ".voxnote", "voxnote.db"),
		SettingsPath:          filepath.Join(home, ".voxnote", "settings.json"),
		RouterModel:           "gemini-2.5-flash",
		ExtractModel:          "gemini-2.5-flash",
		CatchAllCategory:      "Прочее",
		ThinkingChars:         2500,
		ThinkingSeconds:       120,
		PendingTTLMinutes:     10,
		SchemaCacheTTLSeconds: 60,
		LogLevel:              "info",
	}
}

// Load reads the YAML file at path (optional; "" means defaults only) and
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.GeminiAPIKey = v
	}
	if v := os.Getenv("VOXNOTE_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("VOXNOTE_SETTINGS"); v != "" {
		c.SettingsPath = v
	}
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if c.CatchAllCategory == "" {
		return errors.New("catch_all_category is required")
	}
	if c.ThinkingChars <= 0 || c.ThinkingSeconds <= 0 {
		return errors.New("thinking thresholds must be positive")
	}
	if c.PendingTTLMinutes <= 0 {
		return errors.New("pending_ttl_minutes must be positive")
	}
	return nil
}

// PendingTTL is how long a pending interaction stays valid.
func (c *Config) PendingTTL() time.Duration {
	return time.Duration(c.PendingTTLMinutes) * time.Minute
}

// SchemaCacheTTL is how long registry lookups are cached.
func (c *Config) SchemaCacheTTL() time.Duration {
	return time.Duration(c.SchemaCacheTTLSeconds) * time.Second
}
