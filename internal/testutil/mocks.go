package testutil

import (
	"context"
	"flashcards/internal/domain"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock for UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) IsAuthorized(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) AuthorizeUser(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserRepository) EnsureUserExists(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserRepository) ListAuthorized(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// MockCardRepository is a mock for CardRepository
type MockCardRepository struct {
	mock.Mock
}

func (m *MockCardRepository) Create(ctx context.Context, userID int64, card domain.Card) error {
	args := m.Called(ctx, userID, card)
	return args.Error(0)
}

func (m *MockCardRepository) CreateMany(ctx context.Context, userID int64, cards []domain.Card) error {
	args := m.Called(ctx, userID, cards)
	return args.Error(0)
}

func (m *MockCardRepository) Get(ctx context.Context, userID int64, id string) (*domain.Card, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Card), args.Error(1)
}

func (m *MockCardRepository) List(ctx context.Context, userID int64) ([]domain.Card, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Card), args.Error(1)
}

func (m *MockCardRepository) Update(ctx context.Context, userID int64, card domain.Card) error {
	args := m.Called(ctx, userID, card)
	return args.Error(0)
}

func (m *MockCardRepository) Delete(ctx context.Context, userID int64, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockCardRepository) ResetProgress(ctx context.Context, userID int64, today time.Time) error {
	args := m.Called(ctx, userID, today)
	return args.Error(0)
}

func (m *MockCardRepository) GetDaysWithCards(ctx context.Context, userID int64, limit, offset int) ([]domain.Day, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Day), args.Error(1)
}

func (m *MockCardRepository) GetTotalDaysCount(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockCardRepository) GetCardsByDate(ctx context.Context, userID int64, date time.Time) ([]domain.Card, error) {
	args := m.Called(ctx, userID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Card), args.Error(1)
}
