package domain

import "time"

// CardState is the position of a card in the new → learning → review state machine
type CardState string

const (
	CardStateNew      CardState = "new"
	CardStateLearning CardState = "learning"
	CardStateReview   CardState = "review"
)

// IsValid reports whether s is one of the known states
func (s CardState) IsValid() bool {
	switch s {
	case CardStateNew, CardStateLearning, CardStateReview:
		return true
	}
	return false
}

// Card is a learnable unit with its scheduling metadata
type Card struct {
	ID      string   `json:"id"`
	Content WordData `json:"wordData"`

	State        CardState `json:"state"`
	LearningStep int       `json:"learningStep"`

	EaseFactor     float64    `json:"easeFactor"`
	Interval       int        `json:"interval"`
	Repetitions    int        `json:"repetitions"`
	NextReviewDate time.Time  `json:"nextReviewDate"`
	LastReviewDate *time.Time `json:"lastReviewDate"`

	// IsNew is kept for older exports only; State is authoritative.
	IsNew bool `json:"isNew"`

	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a copy that shares no pointers with c
func (c Card) Clone() Card {
	out := c
	if c.LastReviewDate != nil {
		t := *c.LastReviewDate
		out.LastReviewDate = &t
	}
	if c.Content.Gender != nil {
		g := *c.Content.Gender
		out.Content.Gender = &g
	}
	if c.Content.Plural != nil {
		p := *c.Content.Plural
		out.Content.Plural = &p
	}
	if c.Content.Conjugations != nil {
		out.Content.Conjugations = append([]string(nil), c.Content.Conjugations...)
	}
	return out
}

// DeckStats summarizes a deck for the home screen
type DeckStats struct {
	Total       int
	New         int
	Learning    int
	Review      int
	Due         int
	DueNew      int
	DueLearning int
	DueReview   int
}
