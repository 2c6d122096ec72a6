// Package reminder sends a daily "cards due" message to every authorized user.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Notifier delivers reminders to a user
type Notifier interface {
	SendReminder(userID int64, due int) error
}

// UserLister returns the users that should get reminders
type UserLister interface {
	AuthorizedUsers(ctx context.Context) ([]int64, error)
}

// DueCounter counts the cards a user has due today
type DueCounter interface {
	DueCount(ctx context.Context, userID int64) (int, error)
}

// Config sets when reminders go out
type Config struct {
	Hour         int
	Location     *time.Location
	SessionLimit int
}

// Scheduler runs the daily reminder job
type Scheduler struct {
	cron     *gocron.Scheduler
	cfg      Config
	users    UserLister
	due      DueCounter
	notifier Notifier
	logger   *zap.Logger
}

// New creates a reminder scheduler
func New(cfg Config, users UserLister, due DueCounter, notifier Notifier, logger *zap.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scheduler{
		cron:     gocron.NewScheduler(cfg.Location),
		cfg:      cfg,
		users:    users,
		due:      due,
		notifier: notifier,
		logger:   logger,
	}
}

// Start schedules the daily job and runs the scheduler in the background
func (s *Scheduler) Start(ctx context.Context) error {
	at := fmt.Sprintf("%02d:00", s.cfg.Hour)
	_, err := s.cron.Every(1).Day().At(at).Do(func() {
		s.SendReminders(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}

	s.cron.StartAsync()
	s.logger.Info("Reminder job scheduled",
		zap.String("at", at),
		zap.String("timezone", s.cfg.Location.String()),
	)
	return nil
}

// Stop terminates the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// SendReminders notifies every authorized user with due cards.
// The count is capped at the session size. It returns how many reminders were sent.
func (s *Scheduler) SendReminders(ctx context.Context) int {
	users, err := s.users.AuthorizedUsers(ctx)
	if err != nil {
		s.logger.Error("Failed to list users for reminders", zap.Error(err))
		return 0
	}

	sent := 0
	for _, userID := range users {
		if ctx.Err() != nil {
			break
		}

		count, err := s.due.DueCount(ctx, userID)
		if err != nil {
			s.logger.Error("Failed to count due cards", zap.Int64("user_id", userID), zap.Error(err))
			continue
		}
		if count == 0 {
			continue
		}
		if s.cfg.SessionLimit > 0 && count > s.cfg.SessionLimit {
			count = s.cfg.SessionLimit
		}

		if err := s.notifier.SendReminder(userID, count); err != nil {
			s.logger.Warn("Failed to send reminder", zap.Int64("user_id", userID), zap.Error(err))
			continue
		}
		sent++
	}

	s.logger.Info("Reminders sent", zap.Int("users", len(users)), zap.Int("sent", sent))
	return sent
}
