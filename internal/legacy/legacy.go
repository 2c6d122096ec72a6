// Package legacy normalizes card records written by older versions of the
// app, which tracked only an isNew flag and a repetition count.
package legacy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"flashcards/internal/domain"
)

const defaultEase = 2.5

// ErrInvalidBackup is returned when a backup cannot be decoded
var ErrInvalidBackup = errors.New("invalid backup")

// RawCard is the permissive shape of a stored card. Any field may be missing.
type RawCard struct {
	ID             string          `json:"id"`
	WordData       domain.WordData `json:"wordData"`
	State          *string         `json:"state"`
	LearningStep   *int            `json:"learningStep"`
	EaseFactor     *float64        `json:"easeFactor"`
	Interval       int             `json:"interval"`
	Repetitions    int             `json:"repetitions"`
	NextReviewDate *time.Time      `json:"nextReviewDate"`
	LastReviewDate *time.Time      `json:"lastReviewDate"`
	IsNew          *bool           `json:"isNew"`
	CreatedAt      *time.Time      `json:"createdAt"`
}

// Migrate turns a raw record into a structurally valid card.
// Records that already carry state and learningStep pass through unchanged.
func Migrate(raw RawCard) domain.Card {
	card := domain.Card{
		ID:             raw.ID,
		Content:        raw.WordData,
		EaseFactor:     defaultEase,
		Interval:       raw.Interval,
		Repetitions:    raw.Repetitions,
		LastReviewDate: raw.LastReviewDate,
	}
	if raw.EaseFactor != nil {
		card.EaseFactor = *raw.EaseFactor
	}
	if raw.NextReviewDate != nil {
		card.NextReviewDate = *raw.NextReviewDate
	}
	if raw.CreatedAt != nil {
		card.CreatedAt = *raw.CreatedAt
	}

	if raw.State != nil && raw.LearningStep != nil {
		card.State = domain.CardState(*raw.State)
		card.LearningStep = *raw.LearningStep
		if raw.IsNew != nil {
			card.IsNew = *raw.IsNew
		} else {
			card.IsNew = card.State == domain.CardStateNew
		}
		return card
	}

	legacyNew := raw.IsNew != nil && *raw.IsNew
	switch {
	case legacyNew || raw.Repetitions == 0:
		card.State = domain.CardStateNew
		card.Repetitions = 0
		card.Interval = 0
	case raw.Repetitions <= 2:
		card.State = domain.CardStateLearning
		card.LearningStep = min(raw.Repetitions, 1)
		card.Interval = 0
	default:
		card.State = domain.CardStateReview
	}

	if raw.IsNew != nil {
		card.IsNew = *raw.IsNew
	} else {
		card.IsNew = card.State == domain.CardStateNew
	}
	return card
}

// MigrateAll migrates every record in order
func MigrateAll(raws []RawCard) []domain.Card {
	cards := make([]domain.Card, 0, len(raws))
	for _, r := range raws {
		cards = append(cards, Migrate(r))
	}
	return cards
}

// Decode parses a backup, either a bare array of cards or {"cards": [...]}
func Decode(data []byte) ([]domain.Card, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidBackup)
	}

	var raws []RawCard
	if data[0] == '{' {
		var envelope struct {
			Cards []RawCard `json:"cards"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
		}
		raws = envelope.Cards
	} else if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}

	return MigrateAll(raws), nil
}
