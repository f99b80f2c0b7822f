// Package timeparse turns the date spellings accepted by the MCP tools into
// concrete dates: ISO forms, English and Spanish month names, relative words
// like "hoy"/"today", and the "YYYY-MM" billing-month tags carried by
// recurring payments.
package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

func ParseDate(dateStr string) (time.Time, error) {
	dateStr = strings.ToLower(strings.TrimSpace(dateStr))

	switch dateStr {
	case "today", "hoy":
		return time.Now(), nil
	case "yesterday", "ayer":
		return time.Now().AddDate(0, 0, -1), nil
	case "tomorrow", "mañana":
		return time.Now().AddDate(0, 0, 1), nil
	}

	formats := []string{
		"2006-01-02",
		"02/01/2006",
		"01/02/2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"2 January 2006",
		"2 Jan 2006",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, nil
		}
	}

	// "15 de marzo de 2024"
	spanish := regexp.MustCompile(`^(\d{1,2})\s+de\s+(\S+)\s+de\s+(\d{4})$`)
	if m := spanish.FindStringSubmatch(dateStr); len(m) == 4 {
		day, _ := strconv.Atoi(m[1])
		month, err := ParseMonth(m[2])
		if err != nil {
			return time.Time{}, err
		}
		year, _ := strconv.Atoi(m[3])
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// ParseBillingMonth validates a "YYYY-MM" billing period tag.
func ParseBillingMonth(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	t, err := time.Parse("2006-01", tag)
	if err != nil {
		return "", fmt.Errorf("invalid billing month '%s' (expected YYYY-MM)", tag)
	}
	return t.Format("2006-01"), nil
}

// ParseYear accepts a plain year or the words "this year"/"last year" and
// their Spanish equivalents.
func ParseYear(yearStr string, now time.Time) (int, error) {
	yearStr = strings.ToLower(strings.TrimSpace(yearStr))

	switch yearStr {
	case "", "this year", "este año":
		return now.Year(), nil
	case "last year", "año pasado":
		return now.Year() - 1, nil
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1900 || year > 9999 {
		return 0, fmt.Errorf("invalid year: %s", yearStr)
	}
	return year, nil
}

// ParsePeriod resolves a month-or-week phrase ("this month", "marzo 2024",
// "January 2025") into an inclusive date range.
func ParsePeriod(period string) (time.Time, time.Time, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	now := time.Now()

	switch period {
	case "this month", "current month", "este mes":
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, -1), nil
	case "last month", "mes pasado":
		start := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, -1), nil
	case "this week":
		start := now.AddDate(0, 0, -int(now.Weekday()))
		return start, start.AddDate(0, 0, 6), nil
	case "last week":
		start := now.AddDate(0, 0, -int(now.Weekday())-7)
		return start, start.AddDate(0, 0, 6), nil
	}

	monthYear := regexp.MustCompile(`(\S+)\s+(?:de\s+)?(\d{4})`)
	if matches := monthYear.FindStringSubmatch(period); len(matches) == 3 {
		month, err := ParseMonth(matches[1])
		if err != nil {
			return time.Time{}, time.Time{}, err
		}

		year, err := strconv.Atoi(matches[2])
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid year: %s", matches[2])
		}

		start := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, -1), nil
	}

	return time.Time{}, time.Time{}, fmt.Errorf("unable to parse period: %s", period)
}

// ParseMonth resolves an English or Spanish month name or abbreviation.
func ParseMonth(monthStr string) (time.Month, error) {
	monthStr = strings.ToLower(monthStr)
	months := map[string]time.Month{
		"january": time.January, "jan": time.January,
		"february": time.February, "feb": time.February,
		"march": time.March, "mar": time.March,
		"april": time.April, "apr": time.April,
		"may":  time.May,
		"june": time.June, "jun": time.June,
		"july": time.July, "jul": time.July,
		"august": time.August, "aug": time.August,
		"september": time.September, "sep": time.September,
		"october": time.October, "oct": time.October,
		"november": time.November, "nov": time.November,
		"december": time.December, "dec": time.December,

		"enero": time.January, "ene": time.January,
		"febrero": time.February,
		"marzo":   time.March,
		"abril":   time.April, "abr": time.April,
		"mayo":   time.May,
		"junio":  time.June,
		"julio":  time.July,
		"agosto": time.August, "ago": time.August,
		"septiembre": time.September,
		"octubre":    time.October,
		"noviembre":  time.November,
		"diciembre":  time.December, "dic": time.December,
	}

	if month, ok := months[monthStr]; ok {
		return month, nil
	}

	return 0, fmt.Errorf("invalid month: %s", monthStr)
}
