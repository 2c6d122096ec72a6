package sqlite

import (
	"context"
	"database/sql"
	"time"
)

// UserRepo implements repository.UserRepository
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// IsAuthorized checks if user is authorized
func (r *UserRepo) IsAuthorized(ctx context.Context, userID int64) (bool, error) {
	var authorized bool
	err := r.db.QueryRowContext(ctx, `SELECT authorized FROM users WHERE user_id = ?`, userID).Scan(&authorized)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return authorized, nil
}

// AuthorizeUser marks user as authorized
func (r *UserRepo) AuthorizeUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, authorized, created_at)
		VALUES (?, 1, ?)
		ON CONFLICT (user_id) DO UPDATE SET authorized = 1
	`, userID, formatTime(time.Now()))
	return err
}

// EnsureUserExists creates user if not exists
func (r *UserRepo) EnsureUserExists(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, authorized, created_at)
		VALUES (?, 0, ?)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, formatTime(time.Now()))
	return err
}

// ListAuthorized returns ids of all users that passed the password check
func (r *UserRepo) ListAuthorized(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM users WHERE authorized = 1 ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
