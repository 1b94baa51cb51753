// Package config defines the global configuration structure for the scheduling
// pipeline. Configuration is loaded once at process startup and is immutable
// thereafter. It follows 12-Factor App principles by strictly separating code
// from configuration.
//
// Values are resolved from the OS environment, with a local .env file as a
// fallback. Any missing required value or invalid format causes the process to
// exit immediately on startup (fail fast).
package config

import (
	"time"

	"schedassist/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the scheduling pipeline.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"OTEL_SERVICE_NAME" default:"schedule-assist"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Kafka         KafkaConfig
	Search        SearchConfig
	Planner       PlannerConfig
	Embeddings    EmbeddingsConfig
	Observability ObservabilityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server settings for the solver callback service.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// CallbackExternalURL is the public URL the solver POSTs solutions to
	// (no trailing slash), e.g. https://callbacks.example.com
	CallbackExternalURL string        `envconfig:"CALLBACK_EXTERNAL_URL" validate:"required,url"`
	ShutdownTimeout     time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// StageBucket is the object-stage bucket for planning payloads.
	StageBucket string `envconfig:"STAGE_BUCKET" validate:"required"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// KafkaConfig holds broker addresses, topic names, and transaction settings.
type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" validate:"required,min=1"`

	ScheduleTopic string `envconfig:"KAFKA_SCHEDULE_TOPIC" default:"schedule-assist-requests"`
	WorkerTopic   string `envconfig:"KAFKA_WORKER_TOPIC" default:"post-process-calendar"`

	ScheduleGroup string `envconfig:"KAFKA_SCHEDULE_GROUP" default:"schedule-worker"`
	WorkerGroup   string `envconfig:"KAFKA_WORKER_GROUP" default:"post-process-calendar-worker"`

	// TransactionalID must be stable per deployment so the broker can fence
	// zombie producers across restarts.
	TransactionalID string `envconfig:"KAFKA_TRANSACTIONAL_ID" default:"solver-callback-txn"`

	SASLUsername string       `envconfig:"KAFKA_SASL_USERNAME"`
	SASLPassword SecretString `envconfig:"KAFKA_SASL_PASSWORD"`
}

// SearchConfig holds the vector similarity store connection settings.
type SearchConfig struct {
	Addresses     []string     `envconfig:"SEARCH_ADDRESSES" validate:"required,min=1"`
	Username      string       `envconfig:"SEARCH_USERNAME"`
	Password      SecretString `envconfig:"SEARCH_PASSWORD"`
	TrainingIndex string       `envconfig:"SEARCH_TRAINING_INDEX" default:"knn-events-index"`
}

// PlannerConfig holds the external solver connection settings.
type PlannerConfig struct {
	URL      string       `envconfig:"PLANNER_URL" validate:"required,url"`
	Username string       `envconfig:"PLANNER_USERNAME" validate:"required"`
	Password SecretString `envconfig:"PLANNER_PASSWORD" validate:"required"`

	// SolveDelayMillis is passed to the solver as the termination delay.
	SolveDelayMillis int64 `envconfig:"PLANNER_SOLVE_DELAY_MS" default:"180000"`
}

// EmbeddingsConfig holds the text embedding provider settings used by the
// personalization engine's similarity matching.
type EmbeddingsConfig struct {
	URL    string       `envconfig:"EMBEDDINGS_URL" validate:"required,url"`
	APIKey SecretString `envconfig:"EMBEDDINGS_API_KEY" validate:"required"`
	Model  string       `envconfig:"EMBEDDINGS_MODEL" default:"text-embedding-3-small"`
}

// ObservabilityConfig holds telemetry and monitoring settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"ScheduleAssist"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
