package service

import (
	"context"
	"fmt"

	"flashcards/internal/domain"
	"flashcards/internal/repository"
	"flashcards/internal/srs"

	"go.uber.org/zap"
)

// ReviewService runs review sessions on top of the scheduler
type ReviewService struct {
	cardRepo  repository.CardRepository
	scheduler *srs.Scheduler
	logger    *zap.Logger
}

// NewReviewService creates a new review service
func NewReviewService(cardRepo repository.CardRepository, scheduler *srs.Scheduler, logger *zap.Logger) *ReviewService {
	return &ReviewService{
		cardRepo:  cardRepo,
		scheduler: scheduler,
		logger:    logger,
	}
}

// StartSession returns the review queue for today, at most limit cards
func (s *ReviewService) StartSession(ctx context.Context, userID int64, limit int) ([]domain.Card, error) {
	cards, err := s.cardRepo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load deck: %w", err)
	}

	session := s.scheduler.SelectSession(cards, limit)

	s.logger.Info("Review session started",
		zap.Int64("user_id", userID),
		zap.Int("deck_size", len(cards)),
		zap.Int("session_size", len(session)),
	)
	return session, nil
}

// Rate applies the rating to the card and persists the result
func (s *ReviewService) Rate(ctx context.Context, userID int64, cardID string, rating domain.Rating) (*domain.Card, error) {
	if !rating.IsValid() {
		return nil, fmt.Errorf("invalid rating %d", rating)
	}

	card, err := s.cardRepo.Get(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, repository.ErrNotFound
	}

	next := s.scheduler.Next(*card, rating)
	if err := s.cardRepo.Update(ctx, userID, next); err != nil {
		return nil, fmt.Errorf("failed to save review: %w", err)
	}

	s.logger.Debug("Card rated",
		zap.Int64("user_id", userID),
		zap.String("card_id", cardID),
		zap.String("rating", rating.String()),
		zap.String("state", string(next.State)),
		zap.Int("interval", next.Interval),
	)
	return &next, nil
}

// Preview returns the interval each rating would give, formatted for buttons
func (s *ReviewService) Preview(card domain.Card) map[domain.Rating]string {
	return s.scheduler.Preview(card)
}

// DueCount returns how many cards are due today
func (s *ReviewService) DueCount(ctx context.Context, userID int64) (int, error) {
	cards, err := s.cardRepo.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(s.scheduler.DueCards(cards)), nil
}
