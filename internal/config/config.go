// Package config loads gateway configuration from an optional YAML file
// and VOXPAY_-prefixed environment variables, env taking precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Authz      AuthzConfig      `koanf:"authz"`
	Generation GenerationConfig `koanf:"generation"`
	Synthesis  SynthesisConfig  `koanf:"synthesis"`
	Caches     CachesConfig     `koanf:"caches"`
	Storage    StorageConfig    `koanf:"storage"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

// AuthzConfig locates the external authorization service.
type AuthzConfig struct {
	BaseURL string `koanf:"base_url"`
	AgentID string `koanf:"agent_id"`
}

type GenerationConfig struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
}

type SynthesisConfig struct {
	Enabled bool   `koanf:"enabled"`
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	Voice   string `koanf:"voice"`
}

type CachesConfig struct {
	Explanation ExplanationCacheConfig `koanf:"explanation"`
	Narration   NarrationCacheConfig   `koanf:"narration"`
}

type ExplanationCacheConfig struct {
	Enabled bool          `koanf:"enabled"`
	TTL     time.Duration `koanf:"ttl"`
}

type NarrationCacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

type StorageConfig struct {
	Driver string `koanf:"driver"` // sqlite, memory, none
	Path   string `koanf:"path"`
}

// TelemetryConfig identifies the deployment in emitted spans.
type TelemetryConfig struct {
	Environment string `koanf:"environment"`
}

// Load reads configuration from path (if the file exists) and the
// environment. An empty path skips file loading entirely.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider("VOXPAY_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "VOXPAY_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// Default values
	defaults := map[string]any{
		"server.port":                8080,
		"authz.base_url":             "http://localhost:8090",
		"authz.agent_id":             "voxpay-agent",
		"generation.model":           "gemini-2.0-flash",
		"synthesis.model":            "tts-1",
		"synthesis.voice":            "ivy",
		"caches.explanation.enabled": true,
		"caches.explanation.ttl":     24 * time.Hour,
		"caches.narration.enabled":   true,
		"caches.narration.dir":       "./data/narration",
		"storage.driver":             "sqlite",
		"storage.path":               "./data/gateway.db",
		"telemetry.environment":      "development",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
