package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// ISODateLayout is the calendar date format exchanged with the records API.
	ISODateLayout = "2006-01-02"
	// DisplayDateLayout is the compact YY.MM.DD format shown in forms and cards.
	DisplayDateLayout = "06.01.02"

	monthDayLayout = "01.02"
	clockLayout    = "15:04"
)

var localDateTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// NowUTC exposes time.Now for deterministic testing.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// ToDisplayDate converts YYYY-MM-DD (or a datetime starting with one) into YY.MM.DD.
func ToDisplayDate(isoDate string) string {
	t, ok := ParseISODate(isoDate)
	if !ok {
		return ""
	}
	return t.Format(DisplayDateLayout)
}

// ToISODate converts YY.MM.DD or YYYY.MM.DD into YYYY-MM-DD.
// Two digit years are read as 20YY.
func ToISODate(displayDate string) string {
	parts := strings.FieldsFunc(strings.TrimSpace(displayDate), func(r rune) bool {
		return r == '.' || r == '-' || r == '/'
	})
	if len(parts) != 3 {
		return ""
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return ""
	}
	switch len(parts[0]) {
	case 2:
		year += 2000
	case 4:
	default:
		return ""
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return ""
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return ""
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return ""
	}
	return t.Format(ISODateLayout)
}

// ToMonthDay renders the MM.DD label of a date or datetime string.
func ToMonthDay(value string) string {
	t, ok := ParseISODate(value)
	if !ok {
		return ""
	}
	return t.Format(monthDayLayout)
}

// ParseISODate reads the leading YYYY-MM-DD of value.
func ParseISODate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if len(value) < len(ISODateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(ISODateLayout, value[:len(ISODateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseDateTime accepts RFC3339 timestamps and offset-less local datetimes.
// Offset-less values are interpreted in loc (time.Local when nil).
func ParseDateTime(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, true
	}
	for _, layout := range localDateTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ExtractTime returns the HH:MM wall clock of an ISO datetime in loc.
func ExtractTime(isoDatetime string, loc *time.Location) string {
	t, ok := ParseDateTime(isoDatetime, loc)
	if !ok {
		return ""
	}
	return ClockOf(t, loc)
}

// ClockOf formats t as HH:MM in loc.
func ClockOf(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(clockLayout)
}

// DateOf returns the calendar date of t in loc as YYYY-MM-DD.
func DateOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(ISODateLayout)
}

// CombineDateTime joins an ISO date and an HH:MM clock into a timestamp in loc.
func CombineDateTime(isoDate, clock string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	d, ok := ParseISODate(isoDate)
	if !ok {
		return time.Time{}, false
	}
	clock = strings.TrimSpace(clock)
	if clock == "" {
		clock = "00:00"
	}
	c, err := time.Parse(clockLayout, clock)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, loc), true
}

// RelativeTime renders how long before now the instant t happened.
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	elapsed := now.Sub(t)
	switch {
	case elapsed < time.Minute:
		return "방금 전"
	case elapsed < time.Hour:
		return fmt.Sprintf("%d분 전", int(elapsed/time.Minute))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%d시간 전", int(elapsed/time.Hour))
	default:
		return fmt.Sprintf("%d일 전", int(elapsed/(24*time.Hour)))
	}
}

// RelativeTimeFrom parses isoDatetime and delegates to RelativeTime.
func RelativeTimeFrom(isoDatetime string, now time.Time, loc *time.Location) string {
	t, ok := ParseDateTime(isoDatetime, loc)
	if !ok {
		return ""
	}
	return RelativeTime(t, now)
}

// FormatDurationHours renders fractional hours as "7h" or "4h 30m".
func FormatDurationHours(hours float64) string {
	minutes := DurationMinutes(hours)
	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// DurationMinutes rounds fractional hours to whole minutes. Invalid input counts as zero.
func DurationMinutes(hours float64) int {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		return 0
	}
	return int(math.Round(hours * 60))
}
