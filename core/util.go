package core

import (
	"strings"
	"time"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// DaysIn returns the number of days of month in year.
func DaysIn(year int, month time.Month) int {
	switch month {
	case time.February:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

// MonthRange returns the first and the last day of month, both at midnight in loc.
func MonthRange(year int, month time.Month, loc *time.Location) TimeRange {
	return TimeRange{
		From: NewTimestamp(time.Date(year, month, 1, 0, 0, 0, 0, loc)),
		To:   NewTimestamp(time.Date(year, month, DaysIn(year, month), 0, 0, 0, 0, loc)),
	}
}
