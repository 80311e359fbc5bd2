package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm"        validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	Task       TaskConfig       `mapstructure:"task"       validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port      int    `mapstructure:"port"       validate:"required,gt=0,lt=65536"`
	LogLevel  string `mapstructure:"log_level"  validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"required,oneof=json text"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lt=44640"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey  string `mapstructure:"gemini_api_key" validate:"required"`
	AnalysisModel string `mapstructure:"analysis_model" validate:"required"`
	ImageModel    string `mapstructure:"image_model"    validate:"required"`
}

// GenerationConfig controls how image batches are dispatched to the
// generation service: how many run at once and how transient failures
// are retried.
type GenerationConfig struct {
	// MaxConcurrency caps the number of in-flight image requests per batch
	MaxConcurrency int `mapstructure:"max_concurrency" validate:"required,gt=0,lte=16"`

	// MaxRetries is the retry budget per image request (0 disables retries)
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0,lte=20"`

	InitialRetryDelayMS int `mapstructure:"initial_retry_delay_ms" validate:"required,gt=0"`
	MaxRetryDelayMS     int `mapstructure:"max_retry_delay_ms"     validate:"required,gtefield=InitialRetryDelayMS"`
	MaxJitterMS         int `mapstructure:"max_jitter_ms"          validate:"gte=0"`

	// RequestTimeoutSeconds bounds a single remote attempt
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" validate:"required,gt=0"`

	// MaxImagesPerRequest bounds the batch size a single request may ask for
	MaxImagesPerRequest int `mapstructure:"max_images_per_request" validate:"required,gt=0"`

	// DailyBonus is the credit amount a user can claim once per UTC day (0 disables it)
	DailyBonus int `mapstructure:"daily_bonus" validate:"gte=0"`
}

// TaskConfig contains settings for the background task runner.
type TaskConfig struct {
	WorkerCount         int `mapstructure:"worker_count"           validate:"required,gt=0"`
	QueueSize           int `mapstructure:"queue_size"             validate:"required,gt=0"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"required,gt=0"`
}
