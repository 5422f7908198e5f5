package config

import (
	"os"
	"strconv"
	"time"

	"datalyst/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	LLM      LLMConfig
	Runner   RunnerConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds the optional profile store connection. An empty URL
// means no persistence; the tool works without it.
type DatabaseConfig struct {
	URL string
}

// LLMConfig holds narrative synthesis settings. The API key may be empty when
// synthesis runs in fallback or off mode.
type LLMConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	Temperature     float64
	MaxTokens       int
	Timeout         time.Duration
	FallbackEnabled bool
}

// RunnerConfig holds profiling run settings
type RunnerConfig struct {
	OutDir        string
	MaxConcurrent int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		LLM: LLMConfig{
			APIKey:          getEnvOrDefault("LLM_API_KEY", ""),
			Model:           getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
			BaseURL:         getEnvOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
			Temperature:     getEnvFloatOrDefault("LLM_TEMPERATURE", 0.2),
			MaxTokens:       getEnvIntOrDefault("LLM_MAX_TOKENS", 1000),
			Timeout:         getEnvDurationOrDefault("LLM_TIMEOUT", 60*time.Second),
			FallbackEnabled: getEnvBoolOrDefault("LLM_FALLBACK_ENABLED", true),
		},
		Runner: RunnerConfig{
			OutDir:        getEnvOrDefault("OUT_DIR", "out"),
			MaxConcurrent: getEnvIntOrDefault("MAX_CONCURRENT", 4),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT cannot be empty")
	}
	if config.LLM.MaxTokens <= 0 {
		return errors.ConfigInvalid("LLM_MAX_TOKENS must be positive")
	}
	if config.LLM.Temperature < 0 || config.LLM.Temperature > 2 {
		return errors.ConfigInvalid("LLM_TEMPERATURE must be within [0, 2]")
	}
	if config.LLM.Timeout <= 0 {
		return errors.ConfigInvalid("LLM_TIMEOUT must be positive")
	}
	if config.Runner.MaxConcurrent < 1 {
		return errors.ConfigInvalid("MAX_CONCURRENT must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
