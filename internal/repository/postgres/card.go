package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"flashcards/internal/domain"
	"flashcards/internal/repository"
)

const cardColumns = `id, content, state, learning_step, ease_factor, interval_days, repetitions,
		next_review_date, last_review_date, is_new, created_at`

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
	var content []byte
	var state string
	var lastReview sql.NullTime

	err := row.Scan(
		&c.ID, &content, &state, &c.LearningStep, &c.EaseFactor, &c.Interval, &c.Repetitions,
		&c.NextReviewDate, &lastReview, &c.IsNew, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(content, &c.Content); err != nil {
		return nil, fmt.Errorf("failed to decode content of card %s: %w", c.ID, err)
	}
	c.State = domain.CardState(state)
	if lastReview.Valid {
		c.LastReviewDate = &lastReview.Time
	}
	return &c, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Create saves a new card for the user
func (r *CardRepo) Create(ctx context.Context, userID int64, card domain.Card) error {
	content, err := json.Marshal(card.Content)
	if err != nil {
		return fmt.Errorf("failed to encode card content: %w", err)
	}

	query := `
		INSERT INTO cards (id, user_id, content, state, learning_step, ease_factor, interval_days,
			repetitions, next_review_date, last_review_date, is_new, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.ExecContext(ctx, query,
		card.ID, userID, content, string(card.State), card.LearningStep, card.EaseFactor, card.Interval,
		card.Repetitions, card.NextReviewDate, nullTime(card.LastReviewDate), card.IsNew, card.CreatedAt,
	)
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

	query := `
		INSERT INTO cards (id, user_id, content, state, learning_step, ease_factor, interval_days,
			repetitions, next_review_date, last_review_date, is_new, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			state = EXCLUDED.state,
			learning_step = EXCLUDED.learning_step,
			ease_factor = EXCLUDED.ease_factor,
			interval_days = EXCLUDED.interval_days,
			repetitions = EXCLUDED.repetitions,
			next_review_date = EXCLUDED.next_review_date,
			last_review_date = EXCLUDED.last_review_date,
			is_new = EXCLUDED.is_new
			WHERE cards.user_id = EXCLUDED.user_id
	`
	for _, card := range cards {
		content, mErr := json.Marshal(card.Content)
		if mErr != nil {
			return fmt.Errorf("failed to encode card content: %w", mErr)
		}
		if _, err = tx.ExecContext(ctx, query,
			card.ID, userID, content, string(card.State), card.LearningStep, card.EaseFactor, card.Interval,
			card.Repetitions, card.NextReviewDate, nullTime(card.LastReviewDate), card.IsNew, card.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to save card %s: %w", card.ID, err)
		}
	}
	return nil
}

// Get returns a single card of the user
func (r *CardRepo) Get(ctx context.Context, userID int64, id string) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE user_id = $1 AND id = $2`

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
	query := `SELECT ` + cardColumns + ` FROM cards WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
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

	query := `
		UPDATE cards
		SET content = $3, state = $4, learning_step = $5, ease_factor = $6, interval_days = $7,
			repetitions = $8, next_review_date = $9, last_review_date = $10, is_new = $11
		WHERE user_id = $1 AND id = $2
	`
	res, err := r.db.ExecContext(ctx, query,
		userID, card.ID, content, string(card.State), card.LearningStep, card.EaseFactor, card.Interval,
		card.Repetitions, card.NextReviewDate, nullTime(card.LastReviewDate), card.IsNew,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// Delete removes a card
func (r *CardRepo) Delete(ctx context.Context, userID int64, id string) error {
	query := `DELETE FROM cards WHERE user_id = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, userID, id)
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
	query := `
		UPDATE cards
		SET state = 'new', learning_step = 0, ease_factor = 2.5, interval_days = 0, repetitions = 0,
			next_review_date = $2, last_review_date = NULL, is_new = TRUE
		WHERE user_id = $1
	`
	_, err := r.db.ExecContext(ctx, query, userID, today)
	return err
}

// GetDaysWithCards returns days on which cards were added, newest first
func (r *CardRepo) GetDaysWithCards(ctx context.Context, userID int64, limit, offset int) ([]domain.Day, error) {
	query := `
		SELECT DATE(created_at AT TIME ZONE $2) AS day, COUNT(*) AS count
		FROM cards
		WHERE user_id = $1
		GROUP BY DATE(created_at AT TIME ZONE $2)
		ORDER BY day DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, userID, r.loc.String(), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []domain.Day
	for rows.Next() {
		var d domain.Day
		if err := rows.Scan(&d.Date, &d.CardCount); err != nil {
			return nil, err
		}
		days = append(days, d)
	}

	return days, rows.Err()
}

// GetTotalDaysCount returns total number of days with cards
func (r *CardRepo) GetTotalDaysCount(ctx context.Context, userID int64) (int, error) {
	query := `
		SELECT COUNT(DISTINCT DATE(created_at AT TIME ZONE $2))
		FROM cards
		WHERE user_id = $1
	`

	var count int
	err := r.db.QueryRowContext(ctx, query, userID, r.loc.String()).Scan(&count)
	return count, err
}

// GetCardsByDate returns all cards added on a specific day
func (r *CardRepo) GetCardsByDate(ctx context.Context, userID int64, date time.Time) ([]domain.Card, error) {
	dateStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, r.loc)

	query := `SELECT ` + cardColumns + `
		FROM cards
		WHERE user_id = $1
			AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, dateStart, dateStart.AddDate(0, 0, 1))
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
