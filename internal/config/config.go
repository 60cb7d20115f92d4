package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"        validate:"required"`
	Database      DatabaseConfig      `mapstructure:"database"      validate:"required"`
	Auth          AuthConfig          `mapstructure:"auth"          validate:"required"`
	LLM           LLMConfig           `mapstructure:"llm"           validate:"required"`
	Clarification ClarificationConfig `mapstructure:"clarification" validate:"required"`
	Reminder      ReminderConfig      `mapstructure:"reminder"      validate:"required"`
	Sweeper       SweeperConfig       `mapstructure:"sweeper"       validate:"required"`
	Delivery      DeliveryConfig      `mapstructure:"delivery"      validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains authentication settings for the webhook transport.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"      validate:"required"`
	ModelName         string `mapstructure:"model_name"          validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"         validate:"gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}

// ClarificationConfig controls the clarification state machine.
type ClarificationConfig struct {
	// SessionTimeoutSeconds is how long an unanswered clarification
	// session stays alive before it is abandoned.
	SessionTimeoutSeconds int `mapstructure:"session_timeout_seconds" validate:"required,gt=0"`
}

// SessionTimeout returns the session timeout as a duration.
func (c ClarificationConfig) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutSeconds) * time.Second
}

// ReminderConfig controls reminder delivery behavior.
type ReminderConfig struct {
	// RetryCap is the maximum number of delivery attempts per reminder.
	RetryCap int `mapstructure:"retry_cap" validate:"required,gt=0"`

	// RetryBackoffSeconds is the base of the exponential delivery
	// retry backoff.
	RetryBackoffSeconds int `mapstructure:"retry_backoff_seconds" validate:"required,gt=0"`
}

// RetryBackoff returns the base retry backoff as a duration.
func (c ReminderConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffSeconds) * time.Second
}

// SweeperConfig controls the expired-task sweeper.
type SweeperConfig struct {
	// ValidityWindowSeconds is how long a recurring-wellness task stays
	// valid after creation before the sweeper expires it.
	ValidityWindowSeconds int `mapstructure:"validity_window_seconds" validate:"required,gt=0"`

	// IntervalSeconds is how often the sweeper runs.
	IntervalSeconds int `mapstructure:"interval_seconds" validate:"required,gt=0"`
}

// ValidityWindow returns the wellness validity window as a duration.
func (c SweeperConfig) ValidityWindow() time.Duration {
	return time.Duration(c.ValidityWindowSeconds) * time.Second
}

// Interval returns the sweep interval as a duration.
func (c SweeperConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// DeliveryConfig controls outbound reminder delivery to the messaging
// channel.
type DeliveryConfig struct {
	// WebhookURL is the endpoint reminders are POSTed to.
	WebhookURL string `mapstructure:"webhook_url" validate:"required,url"`

	// TimeoutSeconds bounds one delivery request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"required,gt=0"`
}

// Timeout returns the delivery request timeout as a duration.
func (c DeliveryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
