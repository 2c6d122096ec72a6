package domain

import "time"

// Day represents a day with the number of cards added on it
type Day struct {
	Date      time.Time
	CardCount int
}

// DateString returns date in YYYYMMDD format
func (d Day) DateString() string {
	return d.Date.Format("20060102")
}

// DisplayString returns user-friendly date string relative to now
func (d Day) DisplayString(now time.Time) string {
	date := d.Date

	if sameDay(date, now) {
		return "Hoy"
	}

	if sameDay(date, now.AddDate(0, 0, -1)) {
		return "Ayer"
	}

	return date.Format("02.01.2006")
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
