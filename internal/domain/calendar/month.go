package calendar

import (
	"fmt"
	"time"

	"github.com/yanqian/todoc/pkg/util"
)

// Status is the tri-state presence of records on one date.
type Status string

const (
	StatusRecorded Status = "recorded"
	StatusEmpty    Status = "no-record"
	// StatusUnknown covers future dates and dates the server did not report.
	StatusUnknown Status = "future"
)

// Month is a calendar month.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthOf returns the month containing an ISO date.
func MonthOf(isoDate string) (Month, bool) {
	t, ok := util.ParseISODate(isoDate)
	if !ok {
		return Month{}, false
	}
	return Month{Year: t.Year(), Month: t.Month()}, true
}

// NewMonth validates a year/month pair.
func NewMonth(year, month int) (Month, error) {
	if year < 1 || month < 1 || month > 12 {
		return Month{}, fmt.Errorf("invalid month %04d-%02d", year, month)
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

func (m Month) first() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Prev returns the month before m.
func (m Month) Prev() Month {
	t := m.first().AddDate(0, -1, 0)
	return Month{Year: t.Year(), Month: t.Month()}
}

// Next returns the month after m.
func (m Month) Next() Month {
	t := m.first().AddDate(0, 1, 0)
	return Month{Year: t.Year(), Month: t.Month()}
}

// Days counts the days of m.
func (m Month) Days() int {
	return m.first().AddDate(0, 1, -1).Day()
}

// Date returns the ISO date of day in m.
func (m Month) Date(day int) string {
	return time.Date(m.Year, m.Month, day, 0, 0, 0, 0, time.UTC).Format(util.ISODateLayout)
}

// Label renders "2026년 1월".
func (m Month) Label() string {
	return fmt.Sprintf("%d년 %d월", m.Year, int(m.Month))
}

// String renders YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// LeadingBlanks is the number of empty cells before day 1 in a Monday-first week.
func (m Month) LeadingBlanks() int {
	return (int(m.first().Weekday()) + 6) % 7
}

// MonthMap is the per-date presence of one (kid, month). KidID 0 means no kid
// is registered.
type MonthMap struct {
	KidID int64             `json:"kid_id"`
	Month Month             `json:"month"`
	Dates map[string]Status `json:"dates"`
}

// Status returns the presence of date.
func (m MonthMap) Status(date string) Status {
	if s, ok := m.Dates[date]; ok {
		return s
	}
	return StatusUnknown
}

func (m MonthMap) key() monthKey {
	return monthKey{kidID: m.KidID, month: m.Month}
}

// BuildMonthMap merges the server's answer with today. Dates after today are
// always unknown. Without a kid every other date is empty; otherwise dates the
// server did not report are unknown.
func BuildMonthMap(kidID int64, month Month, server map[string]bool, today string) MonthMap {
	out := MonthMap{KidID: kidID, Month: month, Dates: make(map[string]Status, month.Days())}
	for day := 1; day <= month.Days(); day++ {
		date := month.Date(day)
		switch {
		case date > today:
			out.Dates[date] = StatusUnknown
		case kidID == 0:
			out.Dates[date] = StatusEmpty
		default:
			has, ok := server[date]
			switch {
			case !ok:
				out.Dates[date] = StatusUnknown
			case has:
				out.Dates[date] = StatusRecorded
			default:
				out.Dates[date] = StatusEmpty
			}
		}
	}
	return out
}

// unknownMonthMap is rendered when a month could not be fetched.
func unknownMonthMap(kidID int64, month Month) MonthMap {
	out := MonthMap{KidID: kidID, Month: month, Dates: make(map[string]Status, month.Days())}
	for day := 1; day <= month.Days(); day++ {
		out.Dates[month.Date(day)] = StatusUnknown
	}
	return out
}

type monthKey struct {
	kidID int64
	month Month
}
