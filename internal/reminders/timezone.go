// Package reminders turns a user's reminder preferences into one-shot
// deferred jobs and keeps at most one such job alive per user.
package reminders

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	apperrors "github.com/edgard/habitbot/internal/errors"
)

// Offsets accepted by the timezone setting.
const (
	MinOffsetHours = -12
	MaxOffsetHours = 14
)

var (
	offsetInput = regexp.MustCompile(`^UTC([+-])(0?[0-9]|1[0-4])$`)
	clockInput  = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)
)

// NormalizeOffset validates a user-entered offset such as "UTC+3" or
// "UTC-05" and returns it in canonical "UTC±HH" form. Plain "UTC" is
// accepted as well.
func NormalizeOffset(input string) (string, error) {
	if input == "UTC" {
		return "UTC", nil
	}
	m := offsetInput.FindStringSubmatch(input)
	if m == nil {
		return "", apperrors.InvalidInput("timezone %q must look like UTC+3 or UTC-05", input)
	}
	hours, _ := strconv.Atoi(m[2])
	if m[1] == "-" {
		hours = -hours
	}
	if hours < MinOffsetHours || hours > MaxOffsetHours {
		return "", apperrors.InvalidInput("timezone %q is outside UTC%d..UTC+%d", input, MinOffsetHours, MaxOffsetHours)
	}
	return formatOffset(hours), nil
}

func formatOffset(hours int) string {
	sign := "+"
	if hours < 0 {
		sign = "-"
		hours = -hours
	}
	return fmt.Sprintf("UTC%s%02d", sign, hours)
}

// ParseOffset converts a normalized offset string into a fixed zone. Fixed
// offsets carry no daylight-saving rules.
func ParseOffset(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return time.FixedZone("UTC", 0), nil
	}
	normalized, err := NormalizeOffset(tz)
	if err != nil {
		return nil, err
	}
	m := offsetInput.FindStringSubmatch(normalized)
	hours, _ := strconv.Atoi(m[2])
	if m[1] == "-" {
		hours = -hours
	}
	return time.FixedZone(normalized, hours*3600), nil
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour, Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClock validates "H:MM" or "HH:MM" input.
func ParseClock(input string) (Clock, error) {
	m := clockInput.FindStringSubmatch(input)
	if m == nil {
		return Clock{}, apperrors.InvalidInput("time %q must look like 09:00", input)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return Clock{Hour: hour, Minute: minute}, nil
}

// NormalizeClock validates input and returns it as "HH:MM".
func NormalizeClock(input string) (string, error) {
	c, err := ParseClock(input)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

// NextFire returns the next instant, strictly after now, at which clock
// occurs in loc. The result is in UTC.
func NextFire(now time.Time, clock Clock, loc *time.Location) time.Time {
	local := now.In(loc)
	y, m, d := local.Date()
	target := time.Date(y, m, d, clock.Hour, clock.Minute, 0, 0, loc)
	if !target.After(local) {
		target = target.AddDate(0, 0, 1)
	}
	return target.UTC()
}

// Today returns the current calendar day in the user's offset. An invalid
// offset falls back to UTC.
func Today(now time.Time, tz string) time.Time {
	loc, err := ParseOffset(tz)
	if err != nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
