package domain

import (
	"fmt"
	"strings"
)

// Rating is the user's judgment of recall quality for one review
type Rating int

const (
	RatingAgain Rating = iota
	RatingHard
	RatingGood
	RatingEasy
)

// Ratings lists every rating in button order
var Ratings = []Rating{RatingAgain, RatingHard, RatingGood, RatingEasy}

var ratingNames = [...]string{
	RatingAgain: "again",
	RatingHard:  "hard",
	RatingGood:  "good",
	RatingEasy:  "easy",
}

// IsValid reports whether r is Again through Easy
func (r Rating) IsValid() bool {
	return r >= RatingAgain && r <= RatingEasy
}

// Quality returns the ordinal 0-3 used by the ease formula
func (r Rating) Quality() int {
	return int(r)
}

func (r Rating) String() string {
	if r.IsValid() {
		return ratingNames[r]
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// ParseRating converts a button name into a Rating
func ParseRating(s string) (Rating, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range ratingNames {
		if name == s {
			return Rating(i), nil
		}
	}
	return 0, fmt.Errorf("unknown rating %q", s)
}
