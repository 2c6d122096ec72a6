package srs

import (
	"fmt"
	"math"

	"flashcards/internal/domain"
)

// Preview shows, for each rating, how far away the next review would be.
// Nothing is committed and the card is not modified.
func (s *Scheduler) Preview(card domain.Card) map[domain.Rating]string {
	today := s.clock()
	out := make(map[domain.Rating]string, len(domain.Ratings))
	for _, r := range domain.Ratings {
		next := s.Next(card, r)
		out[r] = FormatInterval(DaysBetween(today, next.NextReviewDate))
	}
	return out
}

// FormatInterval renders a day offset for the rating buttons, with years to one decimal
func FormatInterval(days int) string {
	return formatInterval(days, true)
}

// FormatStoredInterval renders a card's stored interval, with years rounded
func FormatStoredInterval(days int) string {
	return formatInterval(days, false)
}

func formatInterval(days int, preciseYears bool) string {
	switch {
	case days < 1:
		return "1d"
	case days < 30:
		return fmt.Sprintf("%dd", days)
	case days < 365:
		return fmt.Sprintf("%dmo", int(math.Round(float64(days)/30)))
	case preciseYears:
		return fmt.Sprintf("%.1fy", float64(days)/365)
	default:
		return fmt.Sprintf("%dy", int(math.Round(float64(days)/365)))
	}
}
