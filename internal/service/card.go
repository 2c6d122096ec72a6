package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"flashcards/internal/domain"
	"flashcards/internal/importer"
	"flashcards/internal/legacy"
	"flashcards/internal/repository"
	"flashcards/internal/srs"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const daysPageSize = 7

// ErrInvalidWord wraps validation failures of user supplied words
var ErrInvalidWord = errors.New("invalid word")

// ImportResult reports the outcome of a bulk import
type ImportResult struct {
	Added   int
	Skipped []importer.RowError
}

// CardService handles deck management
type CardService struct {
	cardRepo  repository.CardRepository
	scheduler *srs.Scheduler
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewCardService creates a new card service
func NewCardService(cardRepo repository.CardRepository, scheduler *srs.Scheduler, logger *zap.Logger) *CardService {
	return &CardService{
		cardRepo:  cardRepo,
		scheduler: scheduler,
		validate:  validator.New(),
		logger:    logger,
	}
}

func normalizeWord(w domain.WordData) domain.WordData {
	w.German = strings.TrimSpace(w.German)
	w.Spanish = strings.TrimSpace(w.Spanish)
	w.ExampleGerman = strings.TrimSpace(w.ExampleGerman)
	w.ExampleSpanish = strings.TrimSpace(w.ExampleSpanish)
	w.WordType = domain.WordType(strings.ToLower(strings.TrimSpace(string(w.WordType))))
	if w.Gender != nil {
		g := strings.ToLower(strings.TrimSpace(*w.Gender))
		w.Gender = &g
		if g == "" {
			w.Gender = nil
		}
	}
	return w
}

func (s *CardService) validateWord(w domain.WordData) error {
	if err := s.validate.Struct(w); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed on %s", ErrInvalidWord, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidWord, err)
	}
	return nil
}

// AddWord validates a word and stores it as a new card
func (s *CardService) AddWord(ctx context.Context, userID int64, word domain.WordData) (*domain.Card, error) {
	word = normalizeWord(word)
	if err := s.validateWord(word); err != nil {
		return nil, err
	}

	card := s.scheduler.NewCard(word)
	if err := s.cardRepo.Create(ctx, userID, card); err != nil {
		return nil, fmt.Errorf("failed to save card: %w", err)
	}

	s.logger.Debug("Card added",
		zap.Int64("user_id", userID),
		zap.String("card_id", card.ID),
	)
	return &card, nil
}

// AddWords stores many words at once. Invalid words are skipped and reported
// by their 1-based position in words.
func (s *CardService) AddWords(ctx context.Context, userID int64, words []domain.WordData) (*ImportResult, error) {
	entries := make([]importer.Entry, len(words))
	for i, w := range words {
		entries[i] = importer.Entry{Row: i + 1, Word: w}
	}
	return s.addEntries(ctx, userID, entries)
}

// addEntries stores valid entries and reports the rest under their own row numbers
func (s *CardService) addEntries(ctx context.Context, userID int64, entries []importer.Entry) (*ImportResult, error) {
	result := &ImportResult{}
	cards := make([]domain.Card, 0, len(entries))

	for _, e := range entries {
		w := normalizeWord(e.Word)
		if err := s.validateWord(w); err != nil {
			result.Skipped = append(result.Skipped, importer.RowError{Row: e.Row, Err: err})
			continue
		}
		cards = append(cards, s.scheduler.NewCard(w))
	}

	if len(cards) > 0 {
		if err := s.cardRepo.CreateMany(ctx, userID, cards); err != nil {
			return nil, fmt.Errorf("failed to save cards: %w", err)
		}
	}
	result.Added = len(cards)
	return result, nil
}

// ImportSheet adds every valid row of an .xlsx or .csv word list
func (s *CardService) ImportSheet(ctx context.Context, userID int64, r io.Reader, name string) (*ImportResult, error) {
	entries, err := importer.ParseSheet(r, name)

	var skipped importer.SkippedRows
	if err != nil && !errors.As(err, &skipped) {
		return nil, err
	}

	result, err := s.addEntries(ctx, userID, entries)
	if err != nil {
		return nil, err
	}
	result.Skipped = append([]importer.RowError(skipped), result.Skipped...)
	sort.SliceStable(result.Skipped, func(i, j int) bool { return result.Skipped[i].Row < result.Skipped[j].Row })

	s.logger.Info("Word list imported",
		zap.Int64("user_id", userID),
		zap.String("file", name),
		zap.Int("added", result.Added),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

// GetCard returns a card or repository.ErrNotFound
func (s *CardService) GetCard(ctx context.Context, userID int64, id string) (*domain.Card, error) {
	card, err := s.cardRepo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, repository.ErrNotFound
	}
	return card, nil
}

// UpdateContent replaces the word on a card. Scheduling fields are kept.
func (s *CardService) UpdateContent(ctx context.Context, userID int64, id string, word domain.WordData) (*domain.Card, error) {
	word = normalizeWord(word)
	if err := s.validateWord(word); err != nil {
		return nil, err
	}

	card, err := s.GetCard(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	card.Content = word
	if err := s.cardRepo.Update(ctx, userID, *card); err != nil {
		return nil, fmt.Errorf("failed to update card: %w", err)
	}

	s.logger.Info("Card edited",
		zap.Int64("user_id", userID),
		zap.String("card_id", id),
	)
	return card, nil
}

// Today returns the current day in the configured timezone
func (s *CardService) Today() time.Time {
	return s.scheduler.Today()
}

// DeleteCard removes a card
func (s *CardService) DeleteCard(ctx context.Context, userID int64, id string) error {
	return s.cardRepo.Delete(ctx, userID, id)
}

// ResetProgress makes every card of the user new and due today
func (s *CardService) ResetProgress(ctx context.Context, userID int64) error {
	if err := s.cardRepo.ResetProgress(ctx, userID, s.scheduler.Today()); err != nil {
		return fmt.Errorf("failed to reset progress: %w", err)
	}
	s.logger.Info("Progress reset", zap.Int64("user_id", userID))
	return nil
}

// GetDaysList returns paginated list of days with card counts
func (s *CardService) GetDaysList(ctx context.Context, userID int64, page int) ([]domain.Day, int, error) {
	if page < 1 {
		page = 1
	}

	offset := (page - 1) * daysPageSize
	days, err := s.cardRepo.GetDaysWithCards(ctx, userID, daysPageSize, offset)
	if err != nil {
		return nil, 0, err
	}

	totalDays, err := s.cardRepo.GetTotalDaysCount(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	totalPages := (totalDays + daysPageSize - 1) / daysPageSize
	if totalPages == 0 {
		totalPages = 1
	}

	return days, totalPages, nil
}

// GetCardsByDate returns all cards added on a day given as YYYYMMDD
func (s *CardService) GetCardsByDate(ctx context.Context, userID int64, dateStr string) ([]domain.Card, error) {
	date, err := time.Parse("20060102", dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid date format: %w", err)
	}

	return s.cardRepo.GetCardsByDate(ctx, userID, date)
}

// Export returns the whole deck as an indented JSON array
func (s *CardService) Export(ctx context.Context, userID int64) ([]byte, error) {
	cards, err := s.cardRepo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cards == nil {
		cards = []domain.Card{}
	}

	data, err := json.MarshalIndent(cards, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode deck: %w", err)
	}
	return data, nil
}

// Import restores a JSON backup. Older records are migrated and scheduling
// fields that break the card invariants are repaired; cards with an id already
// in the deck replace it.
func (s *CardService) Import(ctx context.Context, userID int64, data []byte) (int, error) {
	cards, err := legacy.Decode(data)
	if err != nil {
		return 0, err
	}

	today := s.scheduler.Today()
	valid := cards[:0]
	for _, c := range cards {
		c.Content = normalizeWord(c.Content)
		if err := s.validateWord(c.Content); err != nil {
			s.logger.Warn("Skipping invalid card in backup",
				zap.Int64("user_id", userID),
				zap.String("card_id", c.ID),
				zap.Error(err),
			)
			continue
		}
		c = s.scheduler.Normalize(c)
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().In(today.Location())
		}
		valid = append(valid, c)
	}

	if len(valid) == 0 {
		return 0, nil
	}
	if err := s.cardRepo.CreateMany(ctx, userID, valid); err != nil {
		return 0, fmt.Errorf("failed to import cards: %w", err)
	}

	s.logger.Info("Backup imported",
		zap.Int64("user_id", userID),
		zap.Int("cards", len(valid)),
	)
	return len(valid), nil
}
