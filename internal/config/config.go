package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"    validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
	Pipeline PipelineConfig `mapstructure:"pipeline" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// RedisConfig contains the settings for the durable task store.
type RedisConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// DatabaseConfig contains the settings for the content database.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// TaskConfig contains the task orchestration settings: concurrency
// ceilings, retention, and the stale-task sweep.
type TaskConfig struct {
	// MaxPerUser is the per-user ceiling on concurrently active tasks.
	MaxPerUser int `mapstructure:"max_per_user" validate:"required,gt=0"`

	// MaxGlobal is the process-wide ceiling on concurrently active tasks.
	MaxGlobal int `mapstructure:"max_global" validate:"required,gt=0"`

	// HistoryLimit caps the per-user completed-task history.
	HistoryLimit int `mapstructure:"history_limit" validate:"required,gt=0"`

	// RecordTTL is how long task records are retained in the store.
	// Zero disables expiry.
	RecordTTL time.Duration `mapstructure:"record_ttl"`

	// StaleAge is how long a processing record may go without an update
	// before the sweeper treats it as orphaned.
	StaleAge time.Duration `mapstructure:"stale_age"`

	// SweepInterval is how often the stale-task sweep runs.
	// Zero disables the sweeper.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// PipelineConfig contains the endpoints of the external processing
// collaborators.
type PipelineConfig struct {
	TranscriptionAPIURL string `mapstructure:"transcription_api_url" validate:"required,url"`
	StorageAPIURL       string `mapstructure:"storage_api_url"       validate:"required,url"`
	ImageSearchAPIURL   string `mapstructure:"image_search_api_url"  validate:"omitempty,url"`
	ImageSearchAPIKey   string `mapstructure:"image_search_api_key"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName         string `mapstructure:"model_name"     validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds"`
}
