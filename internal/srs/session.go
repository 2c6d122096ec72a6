package srs

import (
	"sort"

	"flashcards/internal/domain"
)

// IsDue reports whether the card's review day has arrived
func (s *Scheduler) IsDue(card domain.Card) bool {
	today := s.clock()
	due := StartOfDay(card.NextReviewDate.In(today.Location()))
	return !due.After(today)
}

// DueCards returns the due cards, oldest due date first
func (s *Scheduler) DueCards(cards []domain.Card) []domain.Card {
	var due []domain.Card
	for _, c := range cards {
		if s.IsDue(c) {
			due = append(due, c)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].NextReviewDate.Before(due[j].NextReviewDate)
	})
	return due
}

// SelectSession builds a review queue of at most limit due cards.
//
// Learning cards come ordered by due date, review cards by days overdue
// (descending) then ease (ascending), new cards in shuffled order. Each
// bucket gets its share of the limit; unused share is backfilled from the
// remaining cards in Learning, Review, New order. The result is interleaved
// Review, Learning, New so that no type runs for long.
func (s *Scheduler) SelectSession(cards []domain.Card, limit int) []domain.Card {
	if limit <= 0 {
		return nil
	}

	today := s.clock()
	var learning, review, fresh []domain.Card
	for _, c := range cards {
		if !s.IsDue(c) {
			continue
		}
		switch c.State {
		case domain.CardStateLearning:
			learning = append(learning, c)
		case domain.CardStateReview:
			review = append(review, c)
		default:
			fresh = append(fresh, c)
		}
	}

	sort.SliceStable(learning, func(i, j int) bool {
		return learning[i].NextReviewDate.Before(learning[j].NextReviewDate)
	})

	overdue := func(c domain.Card) int {
		return max(DaysBetween(c.NextReviewDate, today), 0)
	}
	sort.SliceStable(review, func(i, j int) bool {
		oi, oj := overdue(review[i]), overdue(review[j])
		if oi != oj {
			return oi > oj
		}
		return review[i].EaseFactor < review[j].EaseFactor
	})

	s.shuffle(len(fresh), func(i, j int) {
		fresh[i], fresh[j] = fresh[j], fresh[i]
	})

	learningQuota := ceilPercent(limit, s.cfg.LearningMixPercent)
	reviewQuota := ceilPercent(limit, s.cfg.ReviewMixPercent)
	newQuota := max(limit-learningQuota-reviewQuota, 0)

	buckets := []*bucket{
		{cards: learning, quota: learningQuota},
		{cards: review, quota: reviewQuota},
		{cards: fresh, quota: newQuota},
	}

	taken := 0
	for _, b := range buckets {
		taken += b.take(b.quota)
	}
	for _, b := range buckets {
		if taken >= limit {
			break
		}
		taken += b.take(limit - taken)
	}

	// Interleave Review, Learning, New.
	order := []*bucket{buckets[1], buckets[0], buckets[2]}
	out := make([]domain.Card, 0, min(taken, limit))
	for i := 0; len(out) < limit; i++ {
		added := false
		for _, b := range order {
			if i < len(b.picked) && len(out) < limit {
				out = append(out, b.picked[i])
				added = true
			}
		}
		if !added {
			break
		}
	}
	return out
}

type bucket struct {
	cards  []domain.Card
	quota  int
	picked []domain.Card
}

// take moves up to n unconsumed cards into picked and reports how many moved
func (b *bucket) take(n int) int {
	n = min(n, len(b.cards))
	if n <= 0 {
		return 0
	}
	b.picked = append(b.picked, b.cards[:n]...)
	b.cards = b.cards[n:]
	return n
}

func ceilPercent(n, percent int) int {
	return (n*percent + 99) / 100
}

// Stats counts cards per state, in total and among the due ones
func (s *Scheduler) Stats(cards []domain.Card) domain.DeckStats {
	var st domain.DeckStats
	for _, c := range cards {
		st.Total++
		due := s.IsDue(c)
		if due {
			st.Due++
		}
		switch c.State {
		case domain.CardStateLearning:
			st.Learning++
			if due {
				st.DueLearning++
			}
		case domain.CardStateReview:
			st.Review++
			if due {
				st.DueReview++
			}
		default:
			st.New++
			if due {
				st.DueNew++
			}
		}
	}
	return st
}
