package utils

import (
	"time"
)

// ET is the US Eastern time location EDGAR operates in.
var ET *time.Location

func init() {
	var err error
	ET, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback: fixed EST if tz database is not available
		ET = time.FixedZone("EST", -5*60*60)
	}
}

// NowET returns the current time in Eastern time.
func NowET() time.Time {
	return time.Now().In(ET)
}

// FilingWindowOpen returns the time EDGAR starts accepting filings (6:00 AM ET)
// on the given date.
func FilingWindowOpen(date time.Time) time.Time {
	d := date.In(ET)
	return time.Date(d.Year(), d.Month(), d.Day(), 6, 0, 0, 0, ET)
}

// FilingWindowClose returns the time EDGAR stops accepting filings
// (10:00 PM ET) on the given date.
func FilingWindowClose(date time.Time) time.Time {
	d := date.In(ET)
	return time.Date(d.Year(), d.Month(), d.Day(), 22, 0, 0, 0, ET)
}

// SameDayDeadline returns the 5:30 PM ET cutoff after which a filing is
// dated the next business day.
func SameDayDeadline(date time.Time) time.Time {
	d := date.In(ET)
	return time.Date(d.Year(), d.Month(), d.Day(), 17, 30, 0, 0, ET)
}

// IsFilingWindowOpenAt reports whether EDGAR accepts filings at t.
func IsFilingWindowOpenAt(t time.Time) bool {
	if !IsBusinessDay(t) {
		return false
	}
	return !t.Before(FilingWindowOpen(t)) && t.Before(FilingWindowClose(t))
}

// IsBusinessDay checks if the given date is a weekday and not a federal holiday.
func IsBusinessDay(t time.Time) bool {
	t = t.In(ET)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !IsFederalHoliday(t)
}

// NextBusinessDay returns the next business day after the given date.
func NextBusinessDay(from time.Time) time.Time {
	next := from.In(ET).AddDate(0, 0, 1)
	for !IsBusinessDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// NextFilingWindowOpen returns when EDGAR next starts accepting filings at
// or after t. During an open window it returns the current window's open.
func NextFilingWindowOpen(t time.Time) time.Time {
	t = t.In(ET)
	if IsBusinessDay(t) && t.Before(FilingWindowClose(t)) {
		return FilingWindowOpen(t)
	}
	return FilingWindowOpen(NextBusinessDay(t))
}

// IsFederalHoliday checks if the given date is a US federal holiday on
// which EDGAR is closed. This list should be updated annually.
func IsFederalHoliday(t time.Time) bool {
	_, ok := federalHolidays[t.In(ET).Format("2006-01-02")]
	return ok
}

// US federal holidays (observed dates).
var federalHolidays = map[string]string{
	"2026-01-01": "New Year's Day",
	"2026-01-19": "Martin Luther King Jr. Day",
	"2026-02-16": "Washington's Birthday",
	"2026-05-25": "Memorial Day",
	"2026-06-19": "Juneteenth",
	"2026-07-03": "Independence Day",
	"2026-09-07": "Labor Day",
	"2026-10-12": "Columbus Day",
	"2026-11-11": "Veterans Day",
	"2026-11-26": "Thanksgiving Day",
	"2026-12-25": "Christmas Day",
}

// FormatDateTimeET formats a time.Time to "2006-01-02 15:04:05 MST" in ET.
func FormatDateTimeET(t time.Time) string {
	return t.In(ET).Format("2006-01-02 15:04:05 MST")
}

// ParseAcceptance parses an EDGAR acceptanceDateTime
// ("2024-11-01T16:30:12.000Z").
func ParseAcceptance(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// FilingWindowStatus returns the EDGAR filing window status at t.
func FilingWindowStatus(t time.Time) string {
	t = t.In(ET)

	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}
	if name, ok := federalHolidays[t.Format("2006-01-02")]; ok {
		return "CLOSED (" + name + ")"
	}

	switch {
	case t.Before(FilingWindowOpen(t)):
		return "CLOSED (Before 6:00 ET)"
	case t.Before(SameDayDeadline(t)):
		return "OPEN"
	case t.Before(FilingWindowClose(t)):
		return "OPEN (Next-day dating)"
	default:
		return "CLOSED"
	}
}
