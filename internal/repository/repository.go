package repository

import (
	"context"
	"errors"
	"time"

	"flashcards/internal/domain"
)

// ErrNotFound is returned by writes that target a missing card
var ErrNotFound = errors.New("card not found")

// UserRepository defines user data operations
type UserRepository interface {
	IsAuthorized(ctx context.Context, userID int64) (bool, error)
	AuthorizeUser(ctx context.Context, userID int64) error
	EnsureUserExists(ctx context.Context, userID int64) error
	ListAuthorized(ctx context.Context) ([]int64, error)
}

// CardRepository stores each user's deck of cards keyed by card id
type CardRepository interface {
	Create(ctx context.Context, userID int64, card domain.Card) error
	CreateMany(ctx context.Context, userID int64, cards []domain.Card) error
	// Get returns nil, nil when the card does not exist
	Get(ctx context.Context, userID int64, id string) (*domain.Card, error)
	List(ctx context.Context, userID int64) ([]domain.Card, error)
	Update(ctx context.Context, userID int64, card domain.Card) error
	Delete(ctx context.Context, userID int64, id string) error
	ResetProgress(ctx context.Context, userID int64, today time.Time) error

	GetDaysWithCards(ctx context.Context, userID int64, limit, offset int) ([]domain.Day, error)
	GetTotalDaysCount(ctx context.Context, userID int64) (int, error)
	GetCardsByDate(ctx context.Context, userID int64, date time.Time) ([]domain.Card, error)
}
