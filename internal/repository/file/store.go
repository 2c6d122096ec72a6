// Package file keeps every deck in one JSON document on disk. It suits a
// single-user deployment and reads exports written by older app versions.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"flashcards/internal/domain"
	"flashcards/internal/legacy"
	"flashcards/internal/repository"
)

type document struct {
	Users map[int64]bool          `json:"users"`
	Cards map[int64][]domain.Card `json:"cards"`
}

type rawDocument struct {
	Users map[int64]bool             `json:"users"`
	Cards map[int64][]legacy.RawCard `json:"cards"`
}

// Store implements repository.CardRepository and repository.UserRepository
type Store struct {
	path string
	loc  *time.Location

	mu  sync.Mutex
	doc document
}

// Open loads the document at path. A missing file is an empty store.
func Open(path string, loc *time.Location) (*Store, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &Store{
		path: path,
		loc:  loc,
		doc:  document{Users: map[int64]bool{}, Cards: map[int64][]domain.Card{}},
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	for id, ok := range raw.Users {
		s.doc.Users[id] = ok
	}
	for id, cards := range raw.Cards {
		s.doc.Cards[id] = legacy.MigrateAll(cards)
	}
	return s, nil
}

// flush writes doc through a temp file so a crash never leaves it half written.
// Callers hold mu.
func (s *Store) flush(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// commit writes next and makes it the current document only once it is on disk
func (s *Store) commit(next document) error {
	if err := s.flush(next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

// withUser returns a copy of the document with the user's flag set
func (s *Store) withUser(userID int64, authorized bool) document {
	users := maps.Clone(s.doc.Users)
	users[userID] = authorized
	return document{Users: users, Cards: s.doc.Cards}
}

// withCards returns a copy of the document with the user's deck replaced
func (s *Store) withCards(userID int64, cards []domain.Card) document {
	decks := maps.Clone(s.doc.Cards)
	decks[userID] = cards
	return document{Users: s.doc.Users, Cards: decks}
}

func (s *Store) indexOf(userID int64, id string) int {
	for i, c := range s.doc.Cards[userID] {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// IsAuthorized checks if user is authorized
func (s *Store) IsAuthorized(_ context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Users[userID], nil
}

// AuthorizeUser marks user as authorized
func (s *Store) AuthorizeUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.Users[userID] {
		return nil
	}
	return s.commit(s.withUser(userID, true))
}

// EnsureUserExists creates user if not exists
func (s *Store) EnsureUserExists(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doc.Users[userID]; ok {
		return nil
	}
	return s.commit(s.withUser(userID, false))
}

// ListAuthorized returns ids of all users that passed the password check
func (s *Store) ListAuthorized(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for id, ok := range s.doc.Users {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Create saves a new card for the user
func (s *Store) Create(_ context.Context, userID int64, card domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(userID, card.ID) >= 0 {
		return fmt.Errorf("card %s already exists", card.ID)
	}
	cards := append(slices.Clone(s.doc.Cards[userID]), card.Clone())
	return s.commit(s.withCards(userID, cards))
}

// CreateMany upserts cards; imported ids replace the user's existing copies
func (s *Store) CreateMany(_ context.Context, userID int64, cards []domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deck := slices.Clone(s.doc.Cards[userID])
	for _, card := range cards {
		i := slices.IndexFunc(deck, func(c domain.Card) bool { return c.ID == card.ID })
		if i >= 0 {
			created := deck[i].CreatedAt
			deck[i] = card.Clone()
			deck[i].CreatedAt = created
			continue
		}
		deck = append(deck, card.Clone())
	}
	return s.commit(s.withCards(userID, deck))
}

// Get returns a single card of the user
func (s *Store) Get(_ context.Context, userID int64, id string) (*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(userID, id)
	if i < 0 {
		return nil, nil
	}
	card := s.doc.Cards[userID][i].Clone()
	return &card, nil
}

// List returns every card of the user, oldest first
func (s *Store) List(_ context.Context, userID int64) ([]domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := make([]domain.Card, 0, len(s.doc.Cards[userID]))
	for _, c := range s.doc.Cards[userID] {
		cards = append(cards, c.Clone())
	}
	sort.SliceStable(cards, func(i, j int) bool { return cards[i].CreatedAt.Before(cards[j].CreatedAt) })
	return cards, nil
}

// Update replaces the scheduling state and content of a card
func (s *Store) Update(_ context.Context, userID int64, card domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(userID, card.ID)
	if i < 0 {
		return repository.ErrNotFound
	}
	deck := slices.Clone(s.doc.Cards[userID])
	created := deck[i].CreatedAt
	deck[i] = card.Clone()
	deck[i].CreatedAt = created
	return s.commit(s.withCards(userID, deck))
}

// Delete removes a card
func (s *Store) Delete(_ context.Context, userID int64, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(userID, id)
	if i < 0 {
		return repository.ErrNotFound
	}
	deck := slices.Delete(slices.Clone(s.doc.Cards[userID]), i, i+1)
	return s.commit(s.withCards(userID, deck))
}

// ResetProgress makes every card of the user new again, keeping the words
func (s *Store) ResetProgress(_ context.Context, userID int64, today time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := slices.Clone(s.doc.Cards[userID])
	for i := range cards {
		cards[i].State = domain.CardStateNew
		cards[i].LearningStep = 0
		cards[i].EaseFactor = 2.5
		cards[i].Interval = 0
		cards[i].Repetitions = 0
		cards[i].NextReviewDate = today
		cards[i].LastReviewDate = nil
		cards[i].IsNew = true
	}
	return s.commit(s.withCards(userID, cards))
}

func (s *Store) day(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

func (s *Store) days(userID int64) []domain.Day {
	counts := map[time.Time]int{}
	for _, c := range s.doc.Cards[userID] {
		counts[s.day(c.CreatedAt)]++
	}

	days := make([]domain.Day, 0, len(counts))
	for d, n := range counts {
		days = append(days, domain.Day{Date: d, CardCount: n})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.After(days[j].Date) })
	return days
}

// GetDaysWithCards returns days on which cards were added, newest first
func (s *Store) GetDaysWithCards(_ context.Context, userID int64, limit, offset int) ([]domain.Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	days := s.days(userID)
	if offset >= len(days) {
		return nil, nil
	}
	days = days[offset:]
	if limit >= 0 && limit < len(days) {
		days = days[:limit]
	}
	return days, nil
}

// GetTotalDaysCount returns total number of days with cards
func (s *Store) GetTotalDaysCount(_ context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.days(userID)), nil
}

// GetCardsByDate returns all cards added on a specific day, newest first
func (s *Store) GetCardsByDate(_ context.Context, userID int64, date time.Time) ([]domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.loc)
	var cards []domain.Card
	for _, c := range s.doc.Cards[userID] {
		if s.day(c.CreatedAt).Equal(want) {
			cards = append(cards, c.Clone())
		}
	}
	sort.SliceStable(cards, func(i, j int) bool { return cards[i].CreatedAt.After(cards[j].CreatedAt) })
	return cards, nil
}
