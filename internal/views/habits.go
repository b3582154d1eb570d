package views

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edgard/habitbot/internal/database"
	"github.com/edgard/habitbot/internal/habits"
)

// HabitList renders the user's habits, one button each.
func HabitList(list []habits.Summary) Message {
	if len(list) == 0 {
		return Message{
			Text:   "You have no habits yet. Create the first one!",
			Inline: [][]Button{row(btn("➕ New habit", ActionNewHabit))},
		}
	}

	kb := make([][]Button, 0, len(list)+1)
	for _, s := range list {
		label := s.Habit.Name
		if s.Streak > 0 {
			label += fmt.Sprintf(" 🔥%d", s.Streak)
		}
		kb = append(kb, row(btn(label, habitData(ActionHabit, s.Habit.ID))))
	}
	kb = append(kb, row(btn("➕ New habit", ActionNewHabit)))
	return Message{Text: "📋 <b>Your habits</b>\nPick one to mark it or see its progress.", Inline: kb}
}

// HabitMenu renders one habit with the actions available today.
func HabitMenu(d habits.Detail) Message {
	h := d.Habit

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n", esc(h.Name))
	if h.Description.Valid && h.Description.String != "" {
		fmt.Fprintf(&sb, "<i>%s</i>\n", esc(h.Description.String))
	}
	sb.WriteString("\n")
	if h.IsNumeric() {
		fmt.Fprintf(&sb, "Type: quantity (%s)\n", esc(habits.Unit(&h)))
	} else {
		sb.WriteString("Type: yes/no\n")
	}
	fmt.Fprintf(&sb, "🔥 Streak: %s\n", plural(d.Streak, "day", "days"))
	fmt.Fprintf(&sb, "📅 Created: %s\n", formatDay(h.CreatedAt))
	if d.LoggedToday {
		sb.WriteString("Today: ✅ done")
	} else {
		sb.WriteString("Today: ⬜ not done yet")
	}

	mark := btn("✅ Mark today", habitData(ActionLog, h.ID))
	if d.LoggedToday {
		mark = btn("↩️ Unmark today", habitData(ActionUnlog, h.ID))
	}

	kb := [][]Button{
		row(mark),
		row(btn("📊 Statistics", habitData(ActionStats, h.ID)), btn("📝 Notes", habitData(ActionNotes, h.ID))),
		row(btn("✏️ Rename", habitData(ActionEdit, h.ID)), btn("🗑 Delete", habitData(ActionDelete, h.ID))),
		row(btn("⬅️ Back to list", ActionBackList)),
	}
	return Message{Text: sb.String(), Inline: kb}
}

// DeleteConfirm asks before removing a habit.
func DeleteConfirm(h *database.Habit) Message {
	return Message{
		Text: fmt.Sprintf("Delete <b>%s</b>? All of its marks and notes will be removed.", esc(h.Name)),
		Inline: [][]Button{row(
			btn("🗑 Yes, delete", habitData(ActionConfirmDelete, h.ID)),
			btn("Cancel", habitData(ActionCancelDelete, h.ID)),
		)},
	}
}

// Deleted confirms a removal.
func Deleted(h *database.Habit) Message {
	return Message{
		Text:   fmt.Sprintf("🗑 Habit <b>%s</b> deleted.", esc(h.Name)),
		Inline: [][]Button{row(btn("⬅️ Back to list", ActionBackList))},
	}
}

// StatsPeriodPicker offers the statistics windows.
func StatsPeriodPicker(h *database.Habit) Message {
	buttons := make([]Button, 0, len(habits.StatsPeriods))
	for _, days := range habits.StatsPeriods {
		buttons = append(buttons, btn(fmt.Sprintf("%d days", days),
			Data(ActionStatsPeriod, strconv.FormatInt(h.ID, 10), strconv.Itoa(days))))
	}
	return Message{
		Text:   fmt.Sprintf("📊 Statistics for <b>%s</b>\nChoose a period:", esc(h.Name)),
		Inline: [][]Button{buttons, row(btn("⬅️ Back", habitData(ActionHabit, h.ID)))},
	}
}

// Stats renders the statistics caption sent with the chart.
func Stats(s habits.PeriodStats) Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 <b>%s</b>\n", esc(s.Habit.Name))
	fmt.Fprintf(&sb, "Period: %s – %s (%d days)\n\n", formatDay(s.Start), formatDay(s.End), s.Days)
	fmt.Fprintf(&sb, "✅ Completed: %d of %d days\n", s.CompletedDays, s.TotalDays)
	fmt.Fprintf(&sb, "📈 Completion: %d%%\n", s.CompletionRate)
	fmt.Fprintf(&sb, "🔥 Current streak: %s\n", plural(s.Current, "day", "days"))
	fmt.Fprintf(&sb, "🏆 Best streak: %s", plural(s.Best, "day", "days"))

	return Message{
		Text:   sb.String(),
		Inline: [][]Button{row(btn("⬅️ Back", habitData(ActionHabit, s.Habit.ID)))},
	}
}

// Notes lists the latest notes of a habit.
func Notes(h *database.Habit, notes []database.NoteEntry) Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📝 Notes for <b>%s</b>\n\n", esc(h.Name))
	if len(notes) == 0 {
		sb.WriteString("No notes yet.")
	}
	for i, n := range notes {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "• %s: %s", formatDay(n.Date), esc(n.Text))
	}
	return Message{
		Text:   sb.String(),
		Inline: [][]Button{row(btn("⬅️ Back", habitData(ActionHabit, h.ID)))},
	}
}

// Overview renders the overall statistics.
func Overview(o habits.Overview) Message {
	if o.Total == 0 {
		return Message{
			Text:   "📊 You have no habits yet, so there is nothing to count.",
			Inline: [][]Button{row(btn("➕ New habit", ActionNewHabit))},
		}
	}
	text := fmt.Sprintf("📊 <b>Overall statistics</b>\n\n"+
		"Habits: %d (yes/no: %d, quantity: %d)\n"+
		"Marks in the last %d days: %d\n"+
		"Average per day: %.1f",
		o.Total, o.Boolean, o.Numeric, habits.OverviewDays, o.RecentLogs, o.AveragePerDay)
	return Message{Text: text}
}

// AskName starts the creation dialog.
func AskName() Message {
	return Message{
		Text:   "What is the name of the new habit?",
		Inline: [][]Button{row(btn("Cancel", ActionCancelNew))},
	}
}

// TypePicker asks how the habit is tracked.
func TypePicker(name string) Message {
	return Message{
		Text: fmt.Sprintf("How do you want to track <b>%s</b>?", esc(name)),
		Inline: [][]Button{
			row(btn("✅ Done / not done", Data(ActionType, string(database.HabitTypeBoolean)))),
			row(btn("🔢 Quantity", Data(ActionType, string(database.HabitTypeNumeric)))),
			row(btn("Cancel", ActionCancelNew)),
		},
	}
}

// AskUnit asks for the unit of a numeric habit.
func AskUnit() Message {
	return Message{
		Text:   fmt.Sprintf("What unit do you count in? For example: pages, minutes, glasses (up to %d characters).", habits.MaxUnitLength),
		Inline: [][]Button{row(btn("Cancel", ActionCancelNew))},
	}
}

// AllowNotesPicker asks whether marks of a yes/no habit take a note.
func AllowNotesPicker() Message {
	return Message{
		Text: "Do you want to add a note when you mark this habit?",
		Inline: [][]Button{
			row(btn("Yes", Data(ActionAllowNotes, "yes")), btn("No", Data(ActionAllowNotes, "no"))),
			row(btn("Cancel", ActionCancelNew)),
		},
	}
}

// Created confirms a new habit.
func Created(h *database.Habit) Message {
	text := fmt.Sprintf("✅ Habit <b>%s</b> created!", esc(h.Name))
	if h.IsNumeric() {
		text = fmt.Sprintf("✅ Habit <b>%s</b> created! Tracking quantity in %s.", esc(h.Name), esc(habits.Unit(h)))
	}
	return Message{
		Text:   text,
		Inline: [][]Button{row(btn("Open habit", habitData(ActionHabit, h.ID)), btn("📋 All habits", ActionBackList))},
	}
}

// AskNote asks for the note of a mark.
func AskNote(h *database.Habit) Message {
	return Plain("📝 Add a note for <b>%s</b> (or send %s to skip):", esc(h.Name), habits.SkipNote)
}

// AskQuantity asks for today's amount.
func AskQuantity(h *database.Habit) Message {
	return Plain("How much today? Enter a whole number (%s):", esc(habits.Unit(h)))
}

// AskRename asks for a new name.
func AskRename(h *database.Habit) Message {
	return Plain("Enter a new name for <b>%s</b>:", esc(h.Name))
}

// Logged confirms a mark.
func Logged(h *database.Habit, entry *database.HabitLog) Message {
	text := fmt.Sprintf("✅ <b>%s</b> marked for today!", esc(h.Name))
	if entry != nil && entry.Value.Valid {
		text = fmt.Sprintf("✅ <b>%s</b>: %d %s recorded for today!", esc(h.Name), entry.Value.Int64, esc(habits.Unit(h)))
	}
	return Message{
		Text:   text,
		Inline: [][]Button{row(btn("Open habit", habitData(ActionHabit, h.ID)), btn("📋 All habits", ActionBackList))},
	}
}
