package srs

import (
	"math/rand"
	"testing"
	"time"

	"flashcards/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func newTestScheduler() *Scheduler {
	return New(DefaultConfig(), FixedClock(today), NoShuffle)
}

func reviewCard(reps, interval int, ease float64) domain.Card {
	return domain.Card{
		ID:             "c1",
		State:          domain.CardStateReview,
		EaseFactor:     ease,
		Interval:       interval,
		Repetitions:    reps,
		NextReviewDate: today,
	}
}

func TestScheduler_NewCard(t *testing.T) {
	s := newTestScheduler()

	card := s.NewCard(domain.WordData{German: "Haus", Spanish: "casa"})

	assert.NotEmpty(t, card.ID)
	assert.Equal(t, domain.CardStateNew, card.State)
	assert.Equal(t, 2.5, card.EaseFactor)
	assert.Equal(t, 0, card.Interval)
	assert.Equal(t, 0, card.Repetitions)
	assert.Equal(t, today, card.NextReviewDate)
	assert.Nil(t, card.LastReviewDate)
	assert.True(t, card.IsNew)
	assert.True(t, s.IsDue(card))
}

func TestScheduler_Next_Again(t *testing.T) {
	tests := []struct {
		name string
		card domain.Card
	}{
		{
			name: "new card",
			card: domain.Card{State: domain.CardStateNew, EaseFactor: 2.5, NextReviewDate: today},
		},
		{
			name: "learning card at last step",
			card: domain.Card{State: domain.CardStateLearning, LearningStep: 1, EaseFactor: 2.2, NextReviewDate: today},
		},
		{
			name: "mature review card",
			card: reviewCard(5, 40, 2.1),
		},
	}

	s := newTestScheduler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := s.Next(tt.card, domain.RatingAgain)

			assert.Equal(t, domain.CardStateLearning, next.State)
			assert.Equal(t, 0, next.LearningStep)
			assert.Equal(t, 0, next.Repetitions)
			assert.Equal(t, 0, next.Interval)
			assert.Equal(t, tt.card.EaseFactor, next.EaseFactor)
			assert.Equal(t, today.AddDate(0, 0, 1), next.NextReviewDate)
			assert.False(t, next.IsNew)
			require.NotNil(t, next.LastReviewDate)
			assert.Equal(t, today, *next.LastReviewDate)
		})
	}
}

func TestScheduler_Next_EasyGraduatesNewCard(t *testing.T) {
	s := newTestScheduler()
	card := s.NewCard(domain.WordData{German: "Baum", Spanish: "árbol"})

	next := s.Next(card, domain.RatingEasy)

	assert.Equal(t, domain.CardStateReview, next.State)
	assert.Equal(t, 1, next.Repetitions)
	assert.Equal(t, 4, next.Interval)
	assert.Equal(t, 2.6, next.EaseFactor)
	assert.Equal(t, today.AddDate(0, 0, 4), next.NextReviewDate)
}

func TestScheduler_Next_GoodClimbsLadder(t *testing.T) {
	s := newTestScheduler()
	card := s.NewCard(domain.WordData{German: "Hund", Spanish: "perro"})

	card = s.Next(card, domain.RatingGood)
	assert.Equal(t, domain.CardStateLearning, card.State)
	assert.Equal(t, 0, card.LearningStep)
	assert.Equal(t, 0, card.Interval)
	assert.Equal(t, 2.5, card.EaseFactor)
	assert.Equal(t, today.AddDate(0, 0, 1), card.NextReviewDate)

	card = s.Next(card, domain.RatingGood)
	assert.Equal(t, domain.CardStateLearning, card.State)
	assert.Equal(t, 1, card.LearningStep)
	assert.Equal(t, 0, card.Interval)
	assert.Equal(t, today.AddDate(0, 0, 6), card.NextReviewDate)

	card = s.Next(card, domain.RatingGood)
	assert.Equal(t, domain.CardStateReview, card.State)
	assert.Equal(t, 0, card.LearningStep)
	assert.Equal(t, 1, card.Repetitions)
	assert.Equal(t, 1, card.Interval)
	assert.Equal(t, 2.5, card.EaseFactor)
	assert.Equal(t, today.AddDate(0, 0, 1), card.NextReviewDate)
}

func TestScheduler_Next_HardInLearning(t *testing.T) {
	s := newTestScheduler()

	t.Run("advances without touching ease", func(t *testing.T) {
		card := domain.Card{State: domain.CardStateLearning, LearningStep: 0, EaseFactor: 2.5, NextReviewDate: today}
		next := s.Next(card, domain.RatingHard)

		assert.Equal(t, domain.CardStateLearning, next.State)
		assert.Equal(t, 1, next.LearningStep)
		assert.Equal(t, 2.5, next.EaseFactor)
	})

	t.Run("graduates at the end of the ladder with lower ease", func(t *testing.T) {
		card := domain.Card{State: domain.CardStateLearning, LearningStep: 1, EaseFactor: 2.5, NextReviewDate: today}
		next := s.Next(card, domain.RatingHard)

		assert.Equal(t, domain.CardStateReview, next.State)
		assert.Equal(t, 1, next.Repetitions)
		assert.Equal(t, 1, next.Interval)
		assert.Equal(t, 2.36, next.EaseFactor)
	})
}

func TestScheduler_Next_SecondReviewIgnoresEase(t *testing.T) {
	s := newTestScheduler()

	for _, ease := range []float64{1.3, 2.5, 3.1} {
		next := s.Next(reviewCard(1, 1, ease), domain.RatingGood)

		assert.Equal(t, 6, next.Interval)
		assert.Equal(t, 2, next.Repetitions)
		assert.Equal(t, domain.CardStateReview, next.State)
	}
}

func TestScheduler_Next_ReviewIntervals(t *testing.T) {
	tests := []struct {
		name         string
		card         domain.Card
		rating       domain.Rating
		wantInterval int
		wantEase     float64
	}{
		{
			name:         "good multiplies by ease",
			card:         reviewCard(2, 6, 2.5),
			rating:       domain.RatingGood,
			wantInterval: 15,
			wantEase:     2.5,
		},
		{
			name:         "easy adds bonus",
			card:         reviewCard(2, 6, 2.5),
			rating:       domain.RatingEasy,
			wantInterval: 20, // 6 * 2.6 * 1.3 = 20.28
			wantEase:     2.6,
		},
		{
			name:         "hard modifier applied twice",
			card:         reviewCard(3, 10, 2.5),
			rating:       domain.RatingHard,
			wantInterval: 15, // 10 * 2.36 * 0.8 * 0.8 = 15.10
			wantEase:     2.36,
		},
		{
			name:         "hard on second review scales fixed interval",
			card:         reviewCard(1, 1, 2.5),
			rating:       domain.RatingHard,
			wantInterval: 5, // 6 * 0.8
			wantEase:     2.36,
		},
		{
			name:         "hard never drops below one day",
			card:         reviewCard(2, 1, 1.3),
			rating:       domain.RatingHard,
			wantInterval: 1,
			wantEase:     1.3,
		},
		{
			name:         "review with zero repetitions uses graduating interval",
			card:         reviewCard(0, 0, 2.5),
			rating:       domain.RatingGood,
			wantInterval: 1,
			wantEase:     2.5,
		},
	}

	s := newTestScheduler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := s.Next(tt.card, tt.rating)

			assert.Equal(t, tt.wantInterval, next.Interval)
			assert.InDelta(t, tt.wantEase, next.EaseFactor, 1e-9)
			assert.Equal(t, tt.card.Repetitions+1, next.Repetitions)
			assert.Equal(t, today.AddDate(0, 0, tt.wantInterval), next.NextReviewDate)
		})
	}
}

func TestScheduler_Next_GoodIntervalsStrictlyIncrease(t *testing.T) {
	s := newTestScheduler()

	for _, start := range []domain.Card{reviewCard(2, 6, 2.5), reviewCard(2, 1, 1.3), reviewCard(4, 2, 1.3)} {
		card := start
		for i := 0; i < 10; i++ {
			next := s.Next(card, domain.RatingGood)
			assert.Greater(t, next.Interval, card.Interval)
			card = next
		}
	}
}

func TestScheduler_Next_DoesNotMutateInput(t *testing.T) {
	s := newTestScheduler()
	last := today.AddDate(0, 0, -3)
	gender := "der"
	card := reviewCard(3, 10, 2.5)
	card.LastReviewDate = &last
	card.Content = domain.WordData{German: "Tisch", Spanish: "mesa", Gender: &gender}
	before := card.Clone()

	for _, r := range domain.Ratings {
		_ = s.Next(card, r)
	}

	assert.Equal(t, before, card)
	assert.Equal(t, today.AddDate(0, 0, -3), *card.LastReviewDate)
}

func TestScheduler_EndToEnd(t *testing.T) {
	s := newTestScheduler()
	card := domain.Card{
		ID:             "e2e",
		State:          domain.CardStateNew,
		EaseFactor:     2.5,
		NextReviewDate: today,
		IsNew:          true,
	}

	card = s.Next(card, domain.RatingAgain)
	assert.Equal(t, domain.CardStateLearning, card.State)
	assert.Equal(t, 0, card.LearningStep)

	card = s.Next(card, domain.RatingGood)
	assert.Equal(t, domain.CardStateLearning, card.State)
	assert.Equal(t, 1, card.LearningStep)

	card = s.Next(card, domain.RatingGood)
	assert.Equal(t, domain.CardStateReview, card.State)
	assert.Equal(t, 1, card.Repetitions)
	assert.Equal(t, 1, card.Interval)

	card = s.Next(card, domain.RatingEasy)
	assert.Equal(t, domain.CardStateReview, card.State)
	assert.Equal(t, 2, card.Repetitions)
	assert.Equal(t, 6, card.Interval)
	assert.Equal(t, 2.6, card.EaseFactor)
}

func TestScheduler_RandomSequencesKeepInvariants(t *testing.T) {
	s := newTestScheduler()
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 50; run++ {
		card := s.NewCard(domain.WordData{German: "x", Spanish: "y"})
		for i := 0; i < 40; i++ {
			card = s.Next(card, domain.Ratings[rng.Intn(len(domain.Ratings))])

			require.GreaterOrEqual(t, card.EaseFactor, 1.3)
			switch card.State {
			case domain.CardStateNew:
				require.Equal(t, 0, card.Repetitions)
				require.Equal(t, 0, card.Interval)
			case domain.CardStateLearning:
				require.GreaterOrEqual(t, card.LearningStep, 0)
				require.Less(t, card.LearningStep, len(s.Config().LearningSteps))
				require.Equal(t, 0, card.Interval)
			case domain.CardStateReview:
				require.GreaterOrEqual(t, card.Repetitions, 1)
				require.GreaterOrEqual(t, card.Interval, 1)
			}
			require.Equal(t, card.NextReviewDate, StartOfDay(card.NextReviewDate))
		}
	}
}

func TestScheduler_UpdateEase(t *testing.T) {
	tests := []struct {
		name     string
		ease     float64
		rating   domain.Rating
		expected float64
	}{
		{name: "easy raises", ease: 2.5, rating: domain.RatingEasy, expected: 2.6},
		{name: "good keeps", ease: 2.5, rating: domain.RatingGood, expected: 2.5},
		{name: "hard lowers", ease: 2.5, rating: domain.RatingHard, expected: 2.36},
		{name: "hard floors at minimum", ease: 1.35, rating: domain.RatingHard, expected: 1.3},
		{name: "minimum stays", ease: 1.3, rating: domain.RatingHard, expected: 1.3},
	}

	s := newTestScheduler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, s.UpdateEase(tt.ease, tt.rating), 1e-9)
		})
	}
}

func TestScheduler_Reset(t *testing.T) {
	s := newTestScheduler()
	last := today.AddDate(0, 0, -1)
	card := reviewCard(4, 30, 1.9)
	card.LastReviewDate = &last
	card.Content = domain.WordData{German: "Katze", Spanish: "gato"}

	reset := s.Reset(card)

	assert.Equal(t, card.ID, reset.ID)
	assert.Equal(t, card.Content, reset.Content)
	assert.Equal(t, domain.CardStateNew, reset.State)
	assert.Equal(t, 2.5, reset.EaseFactor)
	assert.Equal(t, 0, reset.Interval)
	assert.Equal(t, 0, reset.Repetitions)
	assert.Nil(t, reset.LastReviewDate)
	assert.True(t, reset.IsNew)
	assert.Equal(t, today, reset.NextReviewDate)
}

func TestNew_FillsZeroConfig(t *testing.T) {
	s := New(Config{}, FixedClock(today), nil)

	assert.Equal(t, DefaultConfig(), s.Config())
}

func TestDaysBetween_AcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	from := time.Date(2024, 3, 30, 0, 0, 0, 0, loc)
	to := time.Date(2024, 4, 2, 0, 0, 0, 0, loc)

	assert.Equal(t, 3, DaysBetween(from, to))
	assert.Equal(t, -3, DaysBetween(to, from))
}

func TestScheduler_Normalize(t *testing.T) {
	s := newTestScheduler()

	tests := []struct {
		name  string
		card  domain.Card
		check func(t *testing.T, c domain.Card)
	}{
		{
			name: "valid review card is unchanged",
			card: reviewCard(3, 9, 2.4),
			check: func(t *testing.T, c domain.Card) {
				assert.Equal(t, reviewCard(3, 9, 2.4), c)
			},
		},
		{
			name: "ease below minimum is raised",
			card: reviewCard(3, 9, 0.5),
			check: func(t *testing.T, c domain.Card) {
				assert.Equal(t, 1.3, c.EaseFactor)
				assert.Equal(t, 9, c.Interval)
			},
		},
		{
			name: "review card without repetitions",
			card: reviewCard(0, 0, 0.5),
			check: func(t *testing.T, c domain.Card) {
				assert.Equal(t, domain.CardStateReview, c.State)
				assert.Equal(t, 1, c.Repetitions)
				assert.Equal(t, 1, c.Interval)
				assert.Equal(t, 1.3, c.EaseFactor)
			},
		},
		{
			name: "learning step past the ladder",
			card: domain.Card{State: domain.CardStateLearning, LearningStep: 7, EaseFactor: 2.5, NextReviewDate: today},
			check: func(t *testing.T, c domain.Card) {
				assert.Equal(t, domain.CardStateLearning, c.State)
				assert.Equal(t, 1, c.LearningStep)
			},
		},
		{
			name: "negative learning step",
			card: domain.Card{State: domain.CardStateLearning, LearningStep: -2, EaseFactor: 2.5, NextReviewDate: today},
			check: func(t *testing.T, c domain.Card) {
				assert.Equal(t, 0, c.LearningStep)
			},
		},
		{
			name: "new card with progress starts over",
			card: domain.Card{State: domain.CardStateNew, Repetitions: 4, Interval: 20, EaseFactor: 2.1, NextReviewDate: today.AddDate(0, 0, 9)},
			check: func(t *testing.T, c domain.Card) {
				assert.Equal(t, domain.CardStateNew, c.State)
				assert.Equal(t, 0, c.Repetitions)
				assert.Equal(t, 0, c.Interval)
				assert.Equal(t, 2.5, c.EaseFactor)
				assert.True(t, today.Equal(c.NextReviewDate))
				assert.True(t, c.IsNew)
			},
		},
		{
			name: "unknown state is reset",
			card: domain.Card{State: "archived", Repetitions: 2, EaseFactor: 2.0},
			check: func(t *testing.T, c domain.Card) {
				assert.Equal(t, domain.CardStateNew, c.State)
				assert.Equal(t, 0, c.Repetitions)
			},
		},
		{
			name: "missing due date means today",
			card: domain.Card{State: domain.CardStateNew, EaseFactor: 2.5},
			check: func(t *testing.T, c domain.Card) {
				assert.True(t, today.Equal(c.NextReviewDate))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, s.Normalize(tt.card))
		})
	}
}

func TestScheduler_Normalize_KeepsEaseFloorThroughAgain(t *testing.T) {
	s := newTestScheduler()

	c := s.Next(s.Normalize(reviewCard(0, 0, 0.5)), domain.RatingAgain)

	assert.GreaterOrEqual(t, c.EaseFactor, 1.3)
	assert.Equal(t, domain.CardStateLearning, c.State)
}
