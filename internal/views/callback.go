// Package views renders the bot's screens as plain text plus keyboard
// descriptions. Nothing here talks to Telegram; the handlers turn a Message
// into API calls.
package views

import (
	"strconv"
	"strings"
)

// Callback actions carried in inline button data as "action[:arg[:arg]]".
const (
	ActionHabit          = "habit"
	ActionLog            = "log"
	ActionUnlog          = "unlog"
	ActionStats          = "stats"
	ActionStatsPeriod    = "statsperiod"
	ActionNotes          = "notes"
	ActionEdit           = "edit"
	ActionDelete         = "delete"
	ActionConfirmDelete  = "confirmdelete"
	ActionCancelDelete   = "canceldelete"
	ActionType           = "type"
	ActionAllowNotes     = "allownotes"
	ActionNewHabit       = "newhabit"
	ActionCancelNew      = "cancelnew"
	ActionBackList       = "backlist"
	ActionSettings       = "settings"
	ActionTimezone       = "tz"
	ActionChangeTimezone = "changetz"
	ActionChangeTime     = "changetime"
	ActionReminderTime   = "remtime"
	ActionToggle         = "togglereminders"
)

// ArgCustom asks for free-text input instead of a preset.
const ArgCustom = "custom"

// Callback is parsed button data.
type Callback struct {
	Action string
	Args   []string
}

// Data builds button data for action and args.
func Data(action string, args ...string) string {
	if len(args) == 0 {
		return action
	}
	return action + ":" + strings.Join(args, ":")
}

func habitData(action string, habitID int64) string {
	return Data(action, strconv.FormatInt(habitID, 10))
}

// ParseCallback splits button data into action and arguments. Offsets such
// as "UTC+3" contain no colon, so a plain split is enough.
func ParseCallback(data string) Callback {
	parts := strings.Split(data, ":")
	return Callback{Action: parts[0], Args: parts[1:]}
}

// Arg returns argument i or "".
func (c Callback) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// IntArg parses argument i as a positive integer.
func (c Callback) IntArg(i int) (int64, bool) {
	n, err := strconv.ParseInt(c.Arg(i), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
