package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadConfig loads and validates configuration from, in increasing priority:
//  1. Default values
//  2. The YAML file at path (optional)
//  3. A .env file in the working directory (optional)
//  4. BOT_* environment variables
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if err := loadConfig(v, path); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadConfig points viper at the config file and the environment.
func loadConfig(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow missing config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.request_timeout", DefaultTelegramRequestTimeout)
	v.SetDefault("telegram.drop_pending_updates", true)

	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", DefaultLogJSON)
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size_mb", DefaultLogMaxSizeMB)
	v.SetDefault("logger.max_backups", DefaultLogMaxBackups)
	v.SetDefault("logger.max_age_days", DefaultLogMaxAgeDays)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("reminders.default_time", DefaultReminderTime)
	v.SetDefault("reminders.default_timezone", DefaultReminderTimezone)
	v.SetDefault("reminders.delivery_timeout", DefaultDeliveryTimeout)
	v.SetDefault("reminders.max_delivery_attempts", DefaultMaxDeliveryAttempts)
	v.SetDefault("reminders.retry_delay", DefaultDeliveryRetryDelay)
	v.SetDefault("reminders.text", DefaultReminderText)

	v.SetDefault("gemini.enabled", false)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", DefaultGeminiTemp)
	v.SetDefault("gemini.system_instruction", DefaultGeminiSystem)
	v.SetDefault("gemini.max_retries", DefaultGeminiRetries)
	v.SetDefault("gemini.retry_delay_seconds", DefaultGeminiRetryDelay)
	v.SetDefault("gemini.timeout", DefaultGeminiTimeout)

	v.SetDefault("sessions.backend", DefaultSessionBackend)
	v.SetDefault("sessions.ttl", DefaultSessionTTL)
	v.SetDefault("sessions.redis_addr", "")
	v.SetDefault("sessions.redis_password", "")
	v.SetDefault("sessions.redis_db", 0)

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.listen", DefaultHTTPListen)

	for name, task := range DefaultTasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}

	v.SetDefault("messages.welcome", DefaultMessages.Welcome)
	v.SetDefault("messages.help", DefaultMessages.Help)
	v.SetDefault("messages.general_error", DefaultMessages.GeneralError)
}
