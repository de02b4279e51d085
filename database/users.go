package database

import (
	"context"
)

func (db *DB) GetOrCreateUser(ctx context.Context, id int64, username *string, fullName string) (*User, error) {
	query := `
		INSERT INTO users (id, username, full_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			username = COALESCE(EXCLUDED.username, users.username),
			full_name = EXCLUDED.full_name,
			last_activity_at = NOW()
		RETURNING id, username, full_name, language, registered_at,
		          last_activity_at, is_active, total_spent`

	var u User
	err := db.q.QueryRow(ctx, query, id, username, fullName).Scan(
		&u.ID, &u.Username, &u.FullName, &u.Language, &u.RegisteredAt,
		&u.LastActivityAt, &u.IsActive, &u.TotalSpent,
	)
	return &u, err
}

func (db *DB) GetUser(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, username, full_name, language, registered_at,
		       last_activity_at, is_active, total_spent
		FROM users
		WHERE id = $1`

	var u User
	err := db.q.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Username, &u.FullName, &u.Language, &u.RegisteredAt,
		&u.LastActivityAt, &u.IsActive, &u.TotalSpent,
	)
	return &u, err
}

func (db *DB) SetUserLanguage(ctx context.Context, id int64, lang string) (bool, error) {
	tag, err := db.q.Exec(ctx, `UPDATE users SET language = $1 WHERE id = $2`, lang, id)
	return tag.RowsAffected() > 0, err
}

func (db *DB) SetUserActive(ctx context.Context, id int64, active bool) (bool, error) {
	tag, err := db.q.Exec(ctx, `UPDATE users SET is_active = $1 WHERE id = $2`, active, id)
	return tag.RowsAffected() > 0, err
}

// AddToTotalSpent shifts total_spent by delta, never below zero.
func (db *DB) AddToTotalSpent(ctx context.Context, id int64, delta int) error {
	query := `UPDATE users SET total_spent = GREATEST(total_spent + $1, 0) WHERE id = $2`
	_, err := db.q.Exec(ctx, query, delta, id)
	return err
}

func (db *DB) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := db.q.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
