package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"flashcards/internal/domain"
	"flashcards/internal/repository"
)

const dayLayout = "2006-01-02"

const cardColumns = `id, content, state, learning_step, ease_factor, interval_days, repetitions,
		next_review_date, last_review_date, is_new, created_at`

const insertCard = `
	INSERT INTO cards (id, user_id, content, state, learning_step, ease_factor, interval_days,
		repetitions, next_review_date, last_review_date, is_new, created_at, created_day)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// CardRepo implements repository.CardRepository
type CardRepo struct {
	db  *sql.DB
	loc *time.Location
}

// NewCardRepo creates a new card repository.
// Library days are grouped by calendar day in loc.
func NewCardRepo(db *sql.DB, loc *time.Location) *CardRepo {
	if loc == nil {
		loc = time.UTC
	}
	return &CardRepo{db: db, loc: loc}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var c domain.Card
	var content, state, nextReview, createdAt string
	var lastReview sql.NullString

	err := row.Scan(
		&c.ID, &content, &state, &c.LearningStep, &c.EaseFactor, &c.Interval, &c.Repetitions,
		&nextReview, &lastReview, &c.IsNew, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(content), &c.Content); err != nil {
		return nil, fmt.Errorf("failed to decode content of card %s: %w", c.ID, err)
	}
	c.State = domain.CardState(state)

	if c.NextReviewDate, err = parseTime(nextReview); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if lastReview.Valid {
		t, err := parseTime(lastReview.String)
		if err != nil {
			return nil, err
		}
		c.LastReviewDate = &t
	}
	return &c, nil
}

func (r *CardRepo) insertArgs(userID int64, card domain.Card) ([]any, error) {
	content, err := json.Marshal(card.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode card content: %w", err)
	}
	var lastReview sql.NullString
	if card.LastReviewDate != nil {
		lastReview = sql.NullString{String: formatTime(*card.LastReviewDate), Valid: true}
	}
	return []any{
		card.ID, userID, string(content), string(card.State), card.LearningStep, card.EaseFactor, card.Interval,
		card.Repetitions, formatTime(card.NextReviewDate), lastReview, card.IsNew,
		formatTime(card.CreatedAt), card.CreatedAt.In(r.loc).Format(dayLayout),
	}, nil
}

// Create saves a new card for the user
func (r *CardRepo) Create(ctx context.Context, userID int64, card domain.Card) error {
	args, err := r.insertArgs(userID, card)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertCard, args...)
	return err
}

// CreateMany upserts cards in one transaction; imported ids replace the user's existing copies
func (r *CardRepo) CreateMany(ctx context.Context, userID int64, cards []domain.Card) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	query := insertCard + `
	ON CONFLICT (id) DO UPDATE SET
		content = excluded.content,
		state = excluded.state,
		learning_step = excluded.learning_step,
		ease_factor = excluded.ease_factor,
		interval_days = excluded.interval_days,
		repetitions = excluded.repetitions,
		next_review_date = excluded.next_review_date,
		last_review_date = excluded.last_review_date,
		is_new = excluded.is_new
		WHERE cards.user_id = excluded.user_id
	`
	for _, card := range cards {
		args, aErr := r.insertArgs(userID, card)
		if aErr != nil {
			return aErr
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to save card %s: %w", card.ID, err)
		}
	}
	return nil
}

// Get returns a single card of the user
func (r *CardRepo) Get(ctx context.Context, userID int64, id string) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE user_id = ? AND id = ?`

	card, err := scanCard(r.db.QueryRowContext(ctx, query, userID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return card, nil
}

// List returns every card of the user, oldest first
func (r *CardRepo) List(ctx context.Context, userID int64) ([]domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE user_id = ? ORDER BY created_at, rowid`
	return r.queryCards(ctx, query, userID)
}

func (r *CardRepo) queryCards(ctx context.Context, query string, args ...any) ([]domain.Card, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}

// Update replaces the scheduling state and content of a card
func (r *CardRepo) Update(ctx context.Context, userID int64, card domain.Card) error {
	content, err := json.Marshal(card.Content)
	if err != nil {
		return fmt.Errorf("failed to encode card content: %w", err)
	}
	var lastReview sql.NullString
	if card.LastReviewDate != nil {
		lastReview = sql.NullString{String: formatTime(*card.LastReviewDate), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE cards
		SET content = ?, state = ?, learning_step = ?, ease_factor = ?, interval_days = ?,
			repetitions = ?, next_review_date = ?, last_review_date = ?, is_new = ?
		WHERE user_id = ? AND id = ?
	`,
		string(content), string(card.State), card.LearningStep, card.EaseFactor, card.Interval,
		card.Repetitions, formatTime(card.NextReviewDate), lastReview, card.IsNew,
		userID, card.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// Delete removes a card
func (r *CardRepo) Delete(ctx context.Context, userID int64, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ResetProgress makes every card of the user new again, keeping the words
func (r *CardRepo) ResetProgress(ctx context.Context, userID int64, today time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE cards
		SET state = 'new', learning_step = 0, ease_factor = 2.5, interval_days = 0, repetitions = 0,
			next_review_date = ?, last_review_date = NULL, is_new = 1
		WHERE user_id = ?
	`, formatTime(today), userID)
	return err
}

// GetDaysWithCards returns days on which cards were added, newest first
func (r *CardRepo) GetDaysWithCards(ctx context.Context, userID int64, limit, offset int) ([]domain.Day, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT created_day, COUNT(*)
		FROM cards
		WHERE user_id = ?
		GROUP BY created_day
		ORDER BY created_day DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []domain.Day
	for rows.Next() {
		var day string
		var d domain.Day
		if err := rows.Scan(&day, &d.CardCount); err != nil {
			return nil, err
		}
		if d.Date, err = time.ParseInLocation(dayLayout, day, r.loc); err != nil {
			return nil, fmt.Errorf("bad day %q: %w", day, err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// GetTotalDaysCount returns total number of days with cards
func (r *CardRepo) GetTotalDaysCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT created_day) FROM cards WHERE user_id = ?`, userID,
	).Scan(&count)
	return count, err
}

// GetCardsByDate returns all cards added on a specific day
func (r *CardRepo) GetCardsByDate(ctx context.Context, userID int64, date time.Time) ([]domain.Card, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, r.loc).Format(dayLayout)
	query := `SELECT ` + cardColumns + `
		FROM cards
		WHERE user_id = ? AND created_day = ?
		ORDER BY created_at DESC, rowid DESC
	`
	return r.queryCards(ctx, query, userID, day)
}
