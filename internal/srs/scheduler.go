// Package srs decides when a card should be seen again.
//
// The Scheduler is pure: it reads today's date from an injected Clock,
// orders new cards with an injected ShuffleFunc and never performs I/O.
// Every operation returns new values and leaves its inputs untouched.
package srs

import (
	"math"
	"time"

	"flashcards/internal/domain"

	"github.com/google/uuid"
)

// Scheduler computes card transitions and review sessions
type Scheduler struct {
	cfg     Config
	clock   Clock
	shuffle ShuffleFunc
}

// New creates a scheduler. A nil clock reads UTC wall time; a nil shuffle
// keeps new cards in their stored order.
func New(cfg Config, clock Clock, shuffle ShuffleFunc) *Scheduler {
	if clock == nil {
		clock = SystemClock(time.UTC)
	}
	if shuffle == nil {
		shuffle = NoShuffle
	}
	return &Scheduler{
		cfg:     cfg.withDefaults(),
		clock:   clock,
		shuffle: shuffle,
	}
}

// Config returns the effective configuration
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Today returns the current day as seen by the scheduler
func (s *Scheduler) Today() time.Time {
	return s.clock()
}

// NewCard creates a card that is due immediately
func (s *Scheduler) NewCard(content domain.WordData) domain.Card {
	today := s.clock()
	return domain.Card{
		ID:             uuid.NewString(),
		Content:        content,
		State:          domain.CardStateNew,
		EaseFactor:     s.cfg.InitialEase,
		NextReviewDate: today,
		IsNew:          true,
		CreatedAt:      time.Now().In(today.Location()),
	}
}

// Reset returns the card with its scheduling fields set back to a fresh card.
// Identity, content and creation time are kept.
func (s *Scheduler) Reset(card domain.Card) domain.Card {
	c := card.Clone()
	c.State = domain.CardStateNew
	c.LearningStep = 0
	c.EaseFactor = s.cfg.InitialEase
	c.Interval = 0
	c.Repetitions = 0
	c.NextReviewDate = s.clock()
	c.LastReviewDate = nil
	c.IsNew = true
	return c
}

// Normalize repairs scheduling fields that break the card invariants, as
// found in hand-edited or foreign backups. Valid cards come back unchanged.
// An unknown state or a New card with progress starts over as a fresh card.
func (s *Scheduler) Normalize(card domain.Card) domain.Card {
	c := card.Clone()
	if !c.State.IsValid() {
		return s.Reset(c)
	}

	if math.IsNaN(c.EaseFactor) || c.EaseFactor < s.cfg.MinimumEase {
		c.EaseFactor = s.cfg.MinimumEase
	}
	c.Interval = max(c.Interval, 0)
	c.Repetitions = max(c.Repetitions, 0)
	if c.NextReviewDate.IsZero() {
		c.NextReviewDate = s.clock()
	}

	switch c.State {
	case domain.CardStateNew:
		if c.Repetitions != 0 || c.Interval != 0 {
			return s.Reset(c)
		}
		c.LearningStep = 0
	case domain.CardStateLearning:
		c.LearningStep = min(max(c.LearningStep, 0), len(s.cfg.LearningSteps)-1)
	case domain.CardStateReview:
		c.LearningStep = 0
		c.Repetitions = max(c.Repetitions, 1)
		c.Interval = max(c.Interval, 1)
	}
	c.IsNew = c.State == domain.CardStateNew
	return c
}

// Next applies a rating to a card and returns the updated copy
func (s *Scheduler) Next(card domain.Card, rating domain.Rating) domain.Card {
	c := card.Clone()
	today := s.clock()

	switch {
	case rating == domain.RatingAgain:
		s.lapse(&c, today)
	case c.State == domain.CardStateReview:
		s.review(&c, rating, today)
	default:
		s.learn(&c, rating, today)
	}

	reviewed := today
	c.LastReviewDate = &reviewed
	c.IsNew = c.State == domain.CardStateNew
	return c
}

// lapse sends any card back to the first learning step
func (s *Scheduler) lapse(c *domain.Card, today time.Time) {
	c.State = domain.CardStateLearning
	c.LearningStep = 0
	c.Repetitions = 0
	c.Interval = 0
	c.NextReviewDate = addDays(today, s.cfg.LearningSteps[0])
}

// learn handles a successful rating for new and learning cards
func (s *Scheduler) learn(c *domain.Card, rating domain.Rating, today time.Time) {
	if rating == domain.RatingEasy {
		s.graduate(c, s.cfg.EasyInterval, rating, today)
		return
	}

	// A new card enters the ladder at step 0; a learning card moves one rung up.
	next := 0
	if c.State == domain.CardStateLearning {
		next = c.LearningStep + 1
	}

	if next < len(s.cfg.LearningSteps) {
		c.State = domain.CardStateLearning
		c.LearningStep = next
		c.Interval = 0
		c.NextReviewDate = addDays(today, s.cfg.LearningSteps[next])
		return
	}

	s.graduate(c, s.cfg.GraduatingInterval, rating, today)
}

func (s *Scheduler) graduate(c *domain.Card, interval int, rating domain.Rating, today time.Time) {
	c.State = domain.CardStateReview
	c.LearningStep = 0
	c.Repetitions = 1
	c.Interval = interval
	c.EaseFactor = s.UpdateEase(c.EaseFactor, rating)
	c.NextReviewDate = addDays(today, interval)
}

// review handles a successful rating for a card in long-term review
func (s *Scheduler) review(c *domain.Card, rating domain.Rating, today time.Time) {
	ease := s.UpdateEase(c.EaseFactor, rating)

	var interval float64
	switch c.Repetitions {
	case 0:
		interval = float64(s.cfg.GraduatingInterval)
	case 1:
		interval = float64(s.cfg.SecondInterval)
	default:
		interval = float64(c.Interval) * ease * s.modifier(rating)
	}

	// Hard is scaled once more on top of its modifier.
	if rating == domain.RatingHard {
		interval = math.Max(interval*s.cfg.HardModifier, 1)
	}

	days := int(math.Round(interval))
	if days < 1 {
		days = 1
	}
	if c.Repetitions >= 2 && rating != domain.RatingHard && days <= c.Interval {
		days = c.Interval + 1
	}

	c.EaseFactor = ease
	c.Interval = days
	c.Repetitions++
	c.NextReviewDate = addDays(today, days)
}

func (s *Scheduler) modifier(rating domain.Rating) float64 {
	switch rating {
	case domain.RatingHard:
		return s.cfg.HardModifier
	case domain.RatingEasy:
		return s.cfg.EasyModifier
	default:
		return s.cfg.GoodModifier
	}
}

// UpdateEase applies E' = E + (0.1 - (3-q)*(0.08 + (3-q)*0.02)),
// floored at the minimum ease and rounded to two decimals.
func (s *Scheduler) UpdateEase(ease float64, rating domain.Rating) float64 {
	d := float64(3 - rating.Quality())
	next := ease + (0.1 - d*(0.08+d*0.02))
	next = math.Round(next*100) / 100
	if next < s.cfg.MinimumEase {
		next = s.cfg.MinimumEase
	}
	return next
}
