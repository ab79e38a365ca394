package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Default values applied when neither the environment nor a config file
// provides a setting.
const (
	defaultPort          = 8080
	defaultLogLevel      = "info"
	defaultRedisURL      = "redis://localhost:6379"
	defaultMaxPerUser    = 5
	defaultMaxGlobal     = 20
	defaultHistoryLimit  = 100
	defaultRecordTTL     = 24 * time.Hour
	defaultStaleAge      = 30 * time.Minute
	defaultSweepInterval = 5 * time.Minute
	defaultModelName     = "gemini-2.0-flash"
)

// Load configuration from environment variables and optionally a config file.
// Environment variables (prefixed LECTERN_, nested keys joined with _) take
// precedence over values from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", defaultPort)
	v.SetDefault("server.log_level", defaultLogLevel)
	v.SetDefault("redis.url", defaultRedisURL)
	v.SetDefault("task.max_per_user", defaultMaxPerUser)
	v.SetDefault("task.max_global", defaultMaxGlobal)
	v.SetDefault("task.history_limit", defaultHistoryLimit)
	v.SetDefault("task.record_ttl", defaultRecordTTL)
	v.SetDefault("task.stale_age", defaultStaleAge)
	v.SetDefault("task.sweep_interval", defaultSweepInterval)
	v.SetDefault("llm.model_name", defaultModelName)

	// Optional config file in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Missing config file is fine; the environment can carry everything.
	}

	// Environment variables: LECTERN_SERVER_PORT, LECTERN_REDIS_URL, ...
	v.SetEnvPrefix("LECTERN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// viper.AutomaticEnv does not surface env-only keys through Unmarshal
	// unless the key is known, so bind each one explicitly.
	for _, key := range []string{
		"server.port", "server.log_level",
		"redis.url",
		"database.url",
		"task.max_per_user", "task.max_global", "task.history_limit",
		"task.record_ttl", "task.stale_age", "task.sweep_interval",
		"pipeline.transcription_api_url", "pipeline.storage_api_url",
		"pipeline.image_search_api_url", "pipeline.image_search_api_key",
		"llm.gemini_api_key", "llm.model_name",
		"llm.max_retries", "llm.retry_delay_seconds",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
