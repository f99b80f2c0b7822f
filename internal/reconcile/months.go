package reconcile

import (
	"fmt"
	"time"
)

// Spanish month abbreviations, indexed by time.Month.
var monthAbbrev = [13]string{
	"", "Ene", "Feb", "Mar", "Abr", "May", "Jun",
	"Jul", "Ago", "Sep", "Oct", "Nov", "Dic",
}

// MonthKey returns the canonical "YYYY-MM" key for a month bucket.
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// MonthLabel renders a month for display. The year is appended only when it
// differs from the reference year, so spans inside the current year read as
// plain abbreviations ("Abr", "May", "Jun").
func MonthLabel(year int, month time.Month, refYear int) string {
	if year != refYear {
		return fmt.Sprintf("%s %d", monthAbbrev[int(month)], year)
	}
	return monthAbbrev[int(month)]
}

func nextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}

// parseMonthKey parses a "YYYY-MM" billing month tag. Returns ok=false for
// anything that does not look like a tag.
func parseMonthKey(key string) (int, time.Month, bool) {
	var y, m int
	if _, err := fmt.Sscanf(key, "%4d-%2d", &y, &m); err != nil {
		return 0, 0, false
	}
	if y < 1 || m < 1 || m > 12 {
		return 0, 0, false
	}
	return y, time.Month(m), true
}
