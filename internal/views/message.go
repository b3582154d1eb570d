package views

import (
	"fmt"
	"html"
	"time"
)

// Button is an inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Message is a rendered screen. Inline and Reply are mutually exclusive in
// practice; at most one is set.
type Message struct {
	Text   string
	Inline [][]Button
	Reply  [][]string
}

// Main menu labels. Incoming text equal to one of them is treated as the
// corresponding command.
const (
	MenuNewHabit = "📝 New habit"
	MenuMyHabits = "📋 My habits"
	MenuOverview = "📊 Overall stats"
	MenuSettings = "⚙️ Settings"
	MenuHelp     = "❓ Help"
)

const displayDate = "02.01.2006"

func esc(s string) string { return html.EscapeString(s) }

func formatDay(t time.Time) string { return t.Format(displayDate) }

func row(buttons ...Button) []Button { return buttons }

func btn(text, data string) Button { return Button{Text: text, Data: data} }

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

// MainMenu is the reply keyboard shown under the input field.
func MainMenu() [][]string {
	return [][]string{
		{MenuNewHabit, MenuMyHabits},
		{MenuOverview, MenuSettings},
		{MenuHelp},
	}
}

// Welcome renders the greeting. template may contain one %s for the name.
func Welcome(template, firstName string) Message {
	if firstName == "" {
		firstName = "there"
	}
	return Message{Text: fmt.Sprintf(template, esc(firstName)), Reply: MainMenu()}
}

// Help renders the help text with the main menu.
func Help(text string) Message {
	return Message{Text: text, Reply: MainMenu()}
}

// Plain is a text-only message.
func Plain(format string, args ...any) Message {
	return Message{Text: fmt.Sprintf(format, args...)}
}
