package srs

import (
	"math"
	"math/rand"
	"time"
)

// Clock returns today's date normalized to the start of day
type Clock func() time.Time

// ShuffleFunc permutes n elements through swap, like rand.Shuffle
type ShuffleFunc func(n int, swap func(i, j int))

// SystemClock reads the wall clock in loc
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return func() time.Time {
		return StartOfDay(time.Now().In(loc))
	}
}

// FixedClock always reports the day of t
func FixedClock(t time.Time) Clock {
	day := StartOfDay(t)
	return func() time.Time {
		return day
	}
}

// SeededShuffle returns a reproducible shuffle. It is not safe for concurrent use.
func SeededShuffle(seed int64) ShuffleFunc {
	rng := rand.New(rand.NewSource(seed))
	return rng.Shuffle
}

// NoShuffle keeps the input order
func NoShuffle(int, func(i, j int)) {}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from a to b in the location of a
func DaysBetween(a, b time.Time) int {
	from := StartOfDay(a)
	to := StartOfDay(b.In(a.Location()))
	// Round absorbs the 23h/25h days around DST switches.
	return int(math.Round(to.Sub(from).Hours() / 24))
}

func addDays(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, n)
}
