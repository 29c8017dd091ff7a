package dateutil

import (
	"fmt"
	"strings"
	"time"
)

// DayKeyLayout is the layout of normalized day keys (YYYY-MM-DD)
const DayKeyLayout = "2006-01-02"

// StartOfDay returns the start of the day (00:00:00) for the given date
func StartOfDay(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
}

// EndOfDay returns the end of the day (23:59:59.999) for the given date
func EndOfDay(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 999999999, date.Location())
}

// StartOfMonth returns the first day of the month at 00:00
func StartOfMonth(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
}

// EndOfMonth returns the last day of the month at 00:00
func EndOfMonth(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month()+1, 0, 0, 0, 0, 0, date.Location())
}

// AddDays moves by whole calendar days, keeping 00:00 across DST changes
func AddDays(date time.Time, days int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day()+days, 0, 0, 0, 0, date.Location())
}

// StartOfWeek returns the first day of the week containing date.
// weekStart selects the first weekday (time.Sunday for the church calendar).
func StartOfWeek(date time.Time, weekStart time.Weekday) time.Time {
	offset := (int(date.Weekday()) - int(weekStart) + 7) % 7
	return AddDays(date, -offset)
}

// EndOfWeek returns the last day of the week containing date (at 00:00)
func EndOfWeek(date time.Time, weekStart time.Weekday) time.Time {
	return AddDays(StartOfWeek(date, weekStart), 6)
}

// MonthGrid returns every day of the whole weeks covering the month of date.
// The result starts on weekStart and ends on the day before it: usually 35
// or 42 days, 28 when a non-leap February begins exactly on weekStart.
func MonthGrid(date time.Time, weekStart time.Weekday) []time.Time {
	first := StartOfWeek(StartOfMonth(date), weekStart)
	last := EndOfWeek(EndOfMonth(date), weekStart)

	days := make([]time.Time, 0, 42)
	for d := first; !d.After(last); d = AddDays(d, 1) {
		days = append(days, d)
	}
	return days
}

// DayKey returns the normalized YYYY-MM-DD key of the date in its own location
func DayKey(date time.Time) string {
	return date.Format(DayKeyLayout)
}

// IsSameDay returns true if two dates are on the same day
func IsSameDay(date1, date2 time.Time) bool {
	return date1.Year() == date2.Year() &&
		date1.Month() == date2.Month() &&
		date1.Day() == date2.Day()
}

// IsSameMonth returns true if two dates are in the same month of the same year
func IsSameMonth(date1, date2 time.Time) bool {
	return date1.Year() == date2.Year() && date1.Month() == date2.Month()
}

// DaysBetween returns the number of calendar days from a to b (negative if b is earlier)
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// ParseDate parses date string in various formats in the given location
func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}

	formats := []string{
		"2006-01-02",
		"02.01.2006",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05Z07:00",
	}

	dateStr = strings.TrimSpace(dateStr)
	for _, format := range formats {
		if t, err := time.ParseInLocation(format, dateStr, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date: %q", dateStr)
}

// ParseMonth parses "YYYY-MM" into the first day of that month
func ParseMonth(monthStr string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01", strings.TrimSpace(monthStr), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized month %q: %w", monthStr, err)
	}
	return t, nil
}

// Today returns today's date (start of day) in the given location
func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return StartOfDay(time.Now().In(loc))
}
