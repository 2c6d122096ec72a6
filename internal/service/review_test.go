package service

import (
	"context"
	"fmt"
	"testing"

	"flashcards/internal/domain"
	"flashcards/internal/repository"
	"flashcards/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newReviewService(repo *testutil.MockCardRepository) *ReviewService {
	return NewReviewService(repo, newTestScheduler(), testutil.NewTestLogger())
}

func deck() []domain.Card {
	fresh := testutil.NewTestCard("new", "Hund", "perro", today)

	learning := testutil.NewTestCard("learning", "Katze", "gato", today)
	learning.State = domain.CardStateLearning
	learning.IsNew = false

	review := testutil.NewTestCard("review", "Haus", "casa", today.AddDate(0, 0, -2))
	review.State = domain.CardStateReview
	review.Interval = 10
	review.Repetitions = 3
	review.IsNew = false

	future := testutil.NewTestCard("future", "Baum", "árbol", today.AddDate(0, 0, 5))
	future.State = domain.CardStateReview
	future.Interval = 5
	future.Repetitions = 2
	future.IsNew = false

	return []domain.Card{fresh, learning, review, future}
}

func TestReviewService_StartSession(t *testing.T) {
	mockRepo := new(testutil.MockCardRepository)
	mockRepo.On("List", mock.Anything, int64(1)).Return(deck(), nil)

	service := newReviewService(mockRepo)

	session, err := service.StartSession(context.Background(), 1, 20)

	require.NoError(t, err)
	ids := make([]string, 0, len(session))
	for _, c := range session {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"review", "learning", "new"}, ids)
	mockRepo.AssertExpectations(t)
}

func TestReviewService_StartSession_Empty(t *testing.T) {
	mockRepo := new(testutil.MockCardRepository)
	mockRepo.On("List", mock.Anything, int64(1)).Return(nil, nil)

	service := newReviewService(mockRepo)

	session, err := service.StartSession(context.Background(), 1, 20)

	assert.NoError(t, err)
	assert.Empty(t, session)
}

func TestReviewService_StartSession_Error(t *testing.T) {
	mockRepo := new(testutil.MockCardRepository)
	mockRepo.On("List", mock.Anything, int64(1)).Return(nil, fmt.Errorf("db error"))

	service := newReviewService(mockRepo)

	_, err := service.StartSession(context.Background(), 1, 20)

	assert.ErrorContains(t, err, "db error")
}

func TestReviewService_Rate(t *testing.T) {
	tests := []struct {
		name          string
		rating        domain.Rating
		expectedState domain.CardState
		expectedDays  int
	}{
		{name: "again", rating: domain.RatingAgain, expectedState: domain.CardStateLearning, expectedDays: 1},
		{name: "good", rating: domain.RatingGood, expectedState: domain.CardStateLearning, expectedDays: 1},
		{name: "easy", rating: domain.RatingEasy, expectedState: domain.CardStateReview, expectedDays: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(testutil.MockCardRepository)
			card := testutil.NewTestCard("a", "Hund", "perro", today)
			mockRepo.On("Get", mock.Anything, int64(1), "a").Return(&card, nil)
			mockRepo.On("Update", mock.Anything, int64(1), mock.MatchedBy(func(c domain.Card) bool {
				return c.ID == "a" && c.State == tt.expectedState
			})).Return(nil)

			service := newReviewService(mockRepo)

			next, err := service.Rate(context.Background(), 1, "a", tt.rating)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedState, next.State)
			assert.True(t, today.AddDate(0, 0, tt.expectedDays).Equal(next.NextReviewDate))
			assert.False(t, next.IsNew)
			require.NotNil(t, next.LastReviewDate)
			assert.True(t, today.Equal(*next.LastReviewDate))
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestReviewService_Rate_Errors(t *testing.T) {
	t.Run("invalid rating", func(t *testing.T) {
		mockRepo := new(testutil.MockCardRepository)
		service := newReviewService(mockRepo)

		_, err := service.Rate(context.Background(), 1, "a", domain.Rating(7))

		assert.Error(t, err)
		mockRepo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing card", func(t *testing.T) {
		mockRepo := new(testutil.MockCardRepository)
		mockRepo.On("Get", mock.Anything, int64(1), "a").Return(nil, nil)
		service := newReviewService(mockRepo)

		_, err := service.Rate(context.Background(), 1, "a", domain.RatingGood)

		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("update fails", func(t *testing.T) {
		mockRepo := new(testutil.MockCardRepository)
		card := testutil.NewTestCard("a", "Hund", "perro", today)
		mockRepo.On("Get", mock.Anything, int64(1), "a").Return(&card, nil)
		mockRepo.On("Update", mock.Anything, int64(1), mock.Anything).Return(fmt.Errorf("db error"))
		service := newReviewService(mockRepo)

		_, err := service.Rate(context.Background(), 1, "a", domain.RatingGood)

		assert.ErrorContains(t, err, "db error")
	})
}

func TestReviewService_Preview(t *testing.T) {
	service := newReviewService(new(testutil.MockCardRepository))

	labels := service.Preview(testutil.NewTestCard("a", "Hund", "perro", today))

	assert.Equal(t, "1d", labels[domain.RatingGood])
	assert.Equal(t, "4d", labels[domain.RatingEasy])
}

func TestReviewService_DueCount(t *testing.T) {
	mockRepo := new(testutil.MockCardRepository)
	mockRepo.On("List", mock.Anything, int64(1)).Return(deck(), nil)

	service := newReviewService(mockRepo)

	count, err := service.DueCount(context.Background(), 1)

	assert.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestStatsService_Summary(t *testing.T) {
	tests := []struct {
		name          string
		cards         []domain.Card
		mockError     error
		expected      domain.DeckStats
		expectedError bool
	}{
		{
			name:  "mixed deck",
			cards: deck(),
			expected: domain.DeckStats{
				Total: 4, New: 1, Learning: 1, Review: 2,
				Due: 3, DueNew: 1, DueLearning: 1, DueReview: 1,
			},
		},
		{
			name:     "empty deck",
			cards:    []domain.Card{},
			expected: domain.DeckStats{},
		},
		{
			name:          "database error",
			mockError:     fmt.Errorf("db error"),
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(testutil.MockCardRepository)
			if tt.mockError != nil {
				mockRepo.On("List", mock.Anything, int64(1)).Return(nil, tt.mockError)
			} else {
				mockRepo.On("List", mock.Anything, int64(1)).Return(tt.cards, nil)
			}

			service := NewStatsService(mockRepo, newTestScheduler(), testutil.NewTestLogger())

			stats, err := service.Summary(context.Background(), 1)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, stats)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}
