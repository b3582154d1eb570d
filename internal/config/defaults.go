package config

import "time"

// Default values for configuration
const (
	DefaultLogLevel      = "info"
	DefaultLogJSON       = true
	DefaultLogMaxSizeMB  = 50
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 28

	DefaultTelegramRequestTimeout = 30 * time.Second

	DefaultDBPath = "habits.db"

	DefaultReminderTime        = "09:00"
	DefaultReminderTimezone    = "UTC"
	DefaultDeliveryTimeout     = 10 * time.Second
	DefaultMaxDeliveryAttempts = 2
	DefaultDeliveryRetryDelay  = 2 * time.Second
	DefaultReminderText        = "⏰ Time to check in on your habits!"

	DefaultGeminiModel      = "gemini-2.0-flash"
	DefaultGeminiTemp       = 0.9
	DefaultGeminiRetries    = 2
	DefaultGeminiRetryDelay = 2
	DefaultGeminiTimeout    = 15 * time.Second
	DefaultGeminiSystem     = "You write short, warm, one-sentence reminders that nudge a person to keep their daily habits. " +
		"Never use more than 200 characters. Do not use markdown."

	DefaultSessionBackend = "memory"
	DefaultSessionTTL     = 30 * time.Minute

	DefaultHTTPListen = ":8080"
)

// Default scheduler tasks, keyed by the names registered in tasks.RegisterAllTasks.
var DefaultTasks = map[string]TaskConfig{
	"sql_maintenance": {Enabled: true, Schedule: "0 0 4 * * 0"},
	"session_sweep":   {Enabled: true, Schedule: "0 */5 * * * *"},
}

// Default user-facing messages.
var DefaultMessages = MessagesConfig{
	Welcome: "Hi, %s! 👋\nI'm your habit-building assistant. Use the menu below to get started.",
	Help: "<b>🆘 Help</b>\n\n" +
		"<i>📝 New habit</i> – create a habit\n" +
		"<i>📋 My habits</i> – list your habits\n" +
		"<i>📊 Overall stats</i> – progress across all habits\n" +
		"<i>⚙️ Settings</i> – reminder time and timezone\n\n" +
		"<b>📌 Inside a habit:</b>\n" +
		"✅ – mark as done today\n" +
		"📊 – habit statistics\n" +
		"✏️ – rename\n" +
		"🗑️ – delete",
	GeneralError: "❌ Something went wrong. Please try again later.",
}
