package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"flashcards/internal/domain"
	"flashcards/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cardRowColumns = []string{
	"id", "content", "state", "learning_step", "ease_factor", "interval_days", "repetitions",
	"next_review_date", "last_review_date", "is_new", "created_at",
}

func testCard() domain.Card {
	due := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	return domain.Card{
		ID:             "card-1",
		Content:        domain.WordData{German: "Hund", Spanish: "perro"},
		State:          domain.CardStateNew,
		EaseFactor:     2.5,
		NextReviewDate: due,
		IsNew:          true,
		CreatedAt:      due,
	}
}

func TestCardRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCardRepo(db, time.UTC)
	card := testCard()

	mock.ExpectExec("INSERT INTO cards").
		WithArgs(card.ID, int64(123), sqlmock.AnyArg(), "new", 0, 2.5, 0, 0,
			card.NextReviewDate, nil, true, card.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Create(context.Background(), 123, card)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepo_CreateMany(t *testing.T) {
	t.Run("commits all cards", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCardRepo(db, time.UTC)
		first, second := testCard(), testCard()
		second.ID = "card-2"

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO cards .* ON CONFLICT \\(id\\) DO UPDATE").
			WithArgs(first.ID, int64(1), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO cards").
			WithArgs(second.ID, int64(1), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err = repo.CreateMany(context.Background(), 1, []domain.Card{first, second})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCardRepo(db, time.UTC)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO cards").WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err = repo.CreateMany(context.Background(), 1, []domain.Card{testCard()})

		assert.ErrorContains(t, err, "disk full")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCardRepo_Get(t *testing.T) {
	reviewed := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		mockRows      *sqlmock.Rows
		mockError     error
		expectedNil   bool
		expectedError bool
	}{
		{
			name: "card found",
			mockRows: sqlmock.NewRows(cardRowColumns).
				AddRow("card-1", []byte(`{"german":"Hund","spanish":"perro","gender":"der"}`), "review", 0, 2.36, 10, 3,
					reviewed.AddDate(0, 0, 10), reviewed, false, reviewed),
		},
		{
			name:        "card missing",
			mockError:   sql.ErrNoRows,
			expectedNil: true,
		},
		{
			name: "broken content",
			mockRows: sqlmock.NewRows(cardRowColumns).
				AddRow("card-1", []byte(`{`), "new", 0, 2.5, 0, 0, reviewed, nil, true, reviewed),
			expectedNil:   true,
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			repo := NewCardRepo(db, time.UTC)

			expect := mock.ExpectQuery("SELECT .* FROM cards WHERE user_id = \\$1 AND id = \\$2").
				WithArgs(int64(123), "card-1")
			if tt.mockError != nil {
				expect.WillReturnError(tt.mockError)
			} else {
				expect.WillReturnRows(tt.mockRows)
			}

			card, err := repo.Get(context.Background(), 123, "card-1")

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.expectedNil {
				assert.Nil(t, card)
			} else {
				require.NotNil(t, card)
				assert.Equal(t, domain.CardStateReview, card.State)
				assert.Equal(t, "perro", card.Content.Spanish)
				require.NotNil(t, card.Content.Gender)
				assert.Equal(t, "der", *card.Content.Gender)
				require.NotNil(t, card.LastReviewDate)
				assert.True(t, reviewed.Equal(*card.LastReviewDate))
				assert.Equal(t, 10, card.Interval)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCardRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCardRepo(db, time.UTC)
	now := time.Now()

	rows := sqlmock.NewRows(cardRowColumns).
		AddRow("a", []byte(`{"german":"eins","spanish":"uno"}`), "new", 0, 2.5, 0, 0, now, nil, true, now).
		AddRow("b", []byte(`{"german":"zwei","spanish":"dos"}`), "learning", 1, 2.5, 0, 1, now, now, false, now)

	mock.ExpectQuery("SELECT .* FROM cards WHERE user_id = \\$1 ORDER BY created_at").
		WithArgs(int64(7)).
		WillReturnRows(rows)

	cards, err := repo.List(context.Background(), 7)

	assert.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "a", cards[0].ID)
	assert.Nil(t, cards[0].LastReviewDate)
	assert.Equal(t, domain.CardStateLearning, cards[1].State)
	assert.Equal(t, 1, cards[1].LearningStep)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepo_Update(t *testing.T) {
	tests := []struct {
		name        string
		result      sql.Result
		expectedErr error
	}{
		{name: "updated", result: sqlmock.NewResult(0, 1)},
		{name: "missing card", result: sqlmock.NewResult(0, 0), expectedErr: repository.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			repo := NewCardRepo(db, time.UTC)
			card := testCard()

			mock.ExpectExec("UPDATE cards").
				WithArgs(int64(5), card.ID, sqlmock.AnyArg(), "new", 0, 2.5, 0, 0, card.NextReviewDate, nil, true).
				WillReturnResult(tt.result)

			err = repo.Update(context.Background(), 5, card)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCardRepo_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCardRepo(db, time.UTC)

	mock.ExpectExec("DELETE FROM cards WHERE user_id = \\$1 AND id = \\$2").
		WithArgs(int64(5), "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Delete(context.Background(), 5, "gone")

	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepo_ResetProgress(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCardRepo(db, time.UTC)
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE cards\\s+SET state = 'new'").
		WithArgs(int64(5), today).
		WillReturnResult(sqlmock.NewResult(0, 12))

	err = repo.ResetProgress(context.Background(), 5, today)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepo_GetDaysWithCards(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	repo := NewCardRepo(db, loc)

	rows := sqlmock.NewRows([]string{"day", "count"}).
		AddRow(time.Now(), 5).
		AddRow(time.Now().AddDate(0, 0, -1), 3)

	mock.ExpectQuery("SELECT DATE\\(created_at AT TIME ZONE \\$2\\)").
		WithArgs(int64(123), "Europe/Berlin", 7, 0).
		WillReturnRows(rows)

	days, err := repo.GetDaysWithCards(context.Background(), 123, 7, 0)

	assert.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, 5, days[0].CardCount)
	assert.Equal(t, 3, days[1].CardCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepo_GetTotalDaysCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCardRepo(db, nil)

	mock.ExpectQuery("SELECT COUNT\\(DISTINCT DATE\\(created_at AT TIME ZONE \\$2\\)\\)").
		WithArgs(int64(123), "UTC").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(15))

	count, err := repo.GetTotalDaysCount(context.Background(), 123)

	assert.NoError(t, err)
	assert.Equal(t, 15, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepo_GetCardsByDate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCardRepo(db, time.UTC)
	date := time.Date(2024, 1, 15, 13, 45, 0, 0, time.UTC)
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(cardRowColumns).
		AddRow("a", []byte(`{"german":"Katze","spanish":"gato"}`), "new", 0, 2.5, 0, 0, date, nil, true, date)

	mock.ExpectQuery("SELECT .* FROM cards\\s+WHERE user_id = \\$1\\s+AND created_at >= \\$2 AND created_at < \\$3").
		WithArgs(int64(123), start, start.AddDate(0, 0, 1)).
		WillReturnRows(rows)

	cards, err := repo.GetCardsByDate(context.Background(), 123, date)

	assert.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Katze", cards[0].Content.German)
	assert.NoError(t, mock.ExpectationsWereMet())
}
