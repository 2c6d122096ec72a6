package service

import (
	"context"

	"flashcards/internal/domain"
	"flashcards/internal/repository"
	"flashcards/internal/srs"

	"go.uber.org/zap"
)

// StatsService summarizes decks
type StatsService struct {
	cardRepo  repository.CardRepository
	scheduler *srs.Scheduler
	logger    *zap.Logger
}

// NewStatsService creates a new stats service
func NewStatsService(cardRepo repository.CardRepository, scheduler *srs.Scheduler, logger *zap.Logger) *StatsService {
	return &StatsService{
		cardRepo:  cardRepo,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Summary counts cards by state and how many of each are due
func (s *StatsService) Summary(ctx context.Context, userID int64) (domain.DeckStats, error) {
	cards, err := s.cardRepo.List(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load deck for stats", zap.Int64("user_id", userID), zap.Error(err))
		return domain.DeckStats{}, err
	}

	stats := s.scheduler.Stats(cards)

	s.logger.Debug("Deck summary",
		zap.Int64("user_id", userID),
		zap.Int("total", stats.Total),
		zap.Int("due", stats.Due),
	)
	return stats, nil
}
