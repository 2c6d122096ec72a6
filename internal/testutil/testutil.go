package testutil

import (
	"flashcards/internal/domain"
	"time"

	"go.uber.org/zap"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// NewTestUser creates a test user
func NewTestUser(userID int64, authorized bool) *domain.User {
	return &domain.User{
		UserID:     userID,
		Authorized: authorized,
		CreatedAt:  time.Now(),
	}
}

// NewTestCard creates a fresh card due on the given day
func NewTestCard(id, german, spanish string, due time.Time) domain.Card {
	return domain.Card{
		ID:             id,
		Content:        domain.WordData{German: german, Spanish: spanish},
		State:          domain.CardStateNew,
		EaseFactor:     2.5,
		NextReviewDate: due,
		IsNew:          true,
		CreatedAt:      due,
	}
}

// NewTestDay creates a test day
func NewTestDay(date time.Time, cardCount int) domain.Day {
	return domain.Day{
		Date:      date,
		CardCount: cardCount,
	}
}
