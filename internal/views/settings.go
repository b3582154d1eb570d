package views

import (
	"fmt"

	"github.com/edgard/habitbot/internal/database"
)

// TimezonePresets are offered before free-text input.
var TimezonePresets = []string{"UTC+3", "UTC+2", "UTC+5"}

// TimePresets are the reminder times offered before free-text input.
var TimePresets = []string{"06:00", "07:00", "08:00", "09:00", "10:00", "12:00", "18:00", "21:00", "23:00"}

// Settings renders the user's preferences.
func Settings(u *database.User) Message {
	status, toggle := "off 🔕", "🔔 Turn reminders on"
	if u.RemindersEnabled {
		status, toggle = "on 🔔", "🔕 Turn reminders off"
	}
	text := fmt.Sprintf("⚙️ <b>Settings</b>\n\n"+
		"ID: <code>%d</code>\n"+
		"Registered: %s\n"+
		"Timezone: %s\n"+
		"Reminder time: %s\n"+
		"Reminders: %s",
		u.TelegramID, formatDay(u.RegisteredAt), esc(u.Timezone), esc(u.ReminderTime), status)

	return Message{
		Text: text,
		Inline: [][]Button{
			row(btn("🌍 Change timezone", ActionChangeTimezone)),
			row(btn("⏰ Change reminder time", ActionChangeTime)),
			row(btn(toggle, ActionToggle)),
		},
	}
}

// TimezonePicker offers preset offsets.
func TimezonePicker() Message {
	presets := make([]Button, 0, len(TimezonePresets))
	for _, tz := range TimezonePresets {
		presets = append(presets, btn(tz, Data(ActionTimezone, tz)))
	}
	return Message{
		Text: "🌍 Choose your timezone:",
		Inline: [][]Button{
			presets,
			row(btn("Other…", Data(ActionTimezone, ArgCustom))),
			row(btn("⬅️ Back", ActionSettings)),
		},
	}
}

// AskTimezone asks for a custom offset.
func AskTimezone() Message {
	return Plain("Enter your timezone as an offset from UTC, for example UTC+3 or UTC-5 (from UTC-12 to UTC+14):")
}

// TimePicker offers preset reminder times, three per row.
func TimePicker() Message {
	kb := make([][]Button, 0, len(TimePresets)/3+2)
	var current []Button
	for _, t := range TimePresets {
		current = append(current, btn(t, Data(ActionReminderTime, t)))
		if len(current) == 3 {
			kb = append(kb, current)
			current = nil
		}
	}
	if len(current) > 0 {
		kb = append(kb, current)
	}
	kb = append(kb, row(btn("Other…", Data(ActionReminderTime, ArgCustom))), row(btn("⬅️ Back", ActionSettings)))
	return Message{Text: "⏰ When should I remind you?", Inline: kb}
}

// AskTime asks for a custom reminder time.
func AskTime() Message {
	return Plain("Enter the reminder time as HH:MM, for example 07:30:")
}

// TimezoneSaved confirms a timezone change.
func TimezoneSaved(tz string) Message {
	return Message{
		Text:   fmt.Sprintf("✅ Timezone set to %s.", esc(tz)),
		Inline: [][]Button{row(btn("⬅️ Settings", ActionSettings))},
	}
}

// TimeSaved confirms a reminder time change.
func TimeSaved(clock string, enabled bool) Message {
	text := fmt.Sprintf("✅ Reminder time set to %s.", esc(clock))
	if !enabled {
		text += " Reminders are off; turn them on in settings."
	}
	return Message{Text: text, Inline: [][]Button{row(btn("⬅️ Settings", ActionSettings))}}
}
