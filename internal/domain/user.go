package domain

import "time"

// User represents a bot user
type User struct {
	UserID     int64
	Authorized bool
	CreatedAt  time.Time
}

// UserState represents user's current interaction state
type UserState string

const (
	StateIdle               UserState = "idle"
	StateWaitingWord        UserState = "waiting_word"
	StateWaitingTranslation UserState = "waiting_translation"
	StateWaitingPassword    UserState = "waiting_password"
	StateReviewing          UserState = "reviewing"
	StateEditingCard        UserState = "editing_card"
)

// StateData holds temporary data for user's current state
type StateData struct {
	State       UserState
	CurrentWord string
	MessageID   int // For editing messages

	// Review session queue, filled by StartSession
	Queue    []string
	Position int

	// Card being edited from the library and the day it was listed under
	EditCardID string
	EditDay    string
}

// CurrentCardID returns the card under review, or "" when the queue is done
func (s *StateData) CurrentCardID() string {
	if s.Position < 0 || s.Position >= len(s.Queue) {
		return ""
	}
	return s.Queue[s.Position]
}
