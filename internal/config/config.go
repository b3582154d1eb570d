// Package config provides configuration loading, validation, and defaults
// for the habit tracker bot. Values come from built-in defaults, an optional
// YAML file, an optional .env file and BOT_* environment variables.
package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
)

// Config is the root configuration structure.
type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// TelegramConfig holds Telegram API settings. BotInfo is filled at runtime
// from getMe and is never read from configuration.
type TelegramConfig struct {
	Token              string        `mapstructure:"token"                validate:"required"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"      validate:"min=1s,max=5m"`
	DropPendingUpdates bool          `mapstructure:"drop_pending_updates"`
	BotInfo            *models.User  `mapstructure:"-"`
}

// LoggerConfig controls the slog handler. When File is set, output goes to a
// rotating file instead of stdout.
type LoggerConfig struct {
	Level      string `mapstructure:"level"        validate:"oneof=debug info warn error"`
	JSON       bool   `mapstructure:"json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"  validate:"min=1"`
	MaxBackups int    `mapstructure:"max_backups"  validate:"min=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"min=0"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// RemindersConfig configures the reminder scheduler and its delivery policy.
type RemindersConfig struct {
	DefaultTime         string        `mapstructure:"default_time"          validate:"clock"`
	DefaultTimezone     string        `mapstructure:"default_timezone"      validate:"utcoffset"`
	DeliveryTimeout     time.Duration `mapstructure:"delivery_timeout"      validate:"min=1s,max=1m"`
	MaxDeliveryAttempts int           `mapstructure:"max_delivery_attempts" validate:"min=1,max=5"`
	RetryDelay          time.Duration `mapstructure:"retry_delay"           validate:"min=0,max=1m"`
	Text                string        `mapstructure:"text"                  validate:"required"`
}

// GeminiConfig enables AI-written reminder texts. When disabled the static
// reminder text is always used.
type GeminiConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	APIKey            string        `mapstructure:"api_key"             validate:"required_if=Enabled true"`
	ModelName         string        `mapstructure:"model_name"          validate:"required_if=Enabled true"`
	Temperature       float32       `mapstructure:"temperature"         validate:"min=0,max=2"`
	SystemInstruction string        `mapstructure:"system_instruction"`
	MaxRetries        int           `mapstructure:"max_retries"         validate:"min=0,max=5"`
	RetryDelaySeconds int           `mapstructure:"retry_delay_seconds" validate:"min=0,max=60"`
	Timeout           time.Duration `mapstructure:"timeout"             validate:"min=1s,max=2m"`
}

// SessionsConfig selects where in-progress conversations are kept.
type SessionsConfig struct {
	Backend       string        `mapstructure:"backend"        validate:"oneof=memory redis"`
	TTL           time.Duration `mapstructure:"ttl"            validate:"min=1m,max=24h"`
	RedisAddr     string        `mapstructure:"redis_addr"     validate:"required_if=Backend redis"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"       validate:"min=0"`
}

type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen" validate:"required_if=Enabled true"`
}

// SchedulerConfig maps task names to their cron schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds the user-facing texts that operators may localise.
type MessagesConfig struct {
	Welcome      string `mapstructure:"welcome"       validate:"required"`
	Help         string `mapstructure:"help"          validate:"required"`
	GeneralError string `mapstructure:"general_error" validate:"required"`
}

var (
	clockPattern  = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)
	offsetPattern = regexp.MustCompile(`^UTC(([+-])(0?[0-9]|1[0-4]))?$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("utcoffset", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		m := offsetPattern.FindStringSubmatch(s)
		if m == nil {
			return false
		}
		// UTC-13 and UTC-14 do not exist.
		return !(m[2] == "-" && (m[3] == "13" || m[3] == "14"))
	})
	return v
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
