package database

import "context"

// UpsertAdmin provisions an admin record; used by startup seeding.
// Existing admins keep their permissions.
func (db *DB) UpsertAdmin(ctx context.Context, userID int64, username *string, permissions string) error {
	query := `
		INSERT INTO admins (user_id, username, permissions)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			username = COALESCE(EXCLUDED.username, admins.username),
			is_active = true`
	_, err := db.q.Exec(ctx, query, userID, username, permissions)
	return err
}

func (db *DB) GetAdmin(ctx context.Context, userID int64) (*Admin, error) {
	query := `
		SELECT user_id, username, permissions, is_active, created_at, last_login
		FROM admins
		WHERE user_id = $1`

	var a Admin
	err := db.q.QueryRow(ctx, query, userID).Scan(
		&a.UserID, &a.Username, &a.Permissions, &a.IsActive, &a.CreatedAt, &a.LastLogin,
	)
	return &a, err
}

func (db *DB) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	query := `SELECT EXISTS(SELECT 1 FROM admins WHERE user_id = $1 AND is_active = true)`
	err := db.q.QueryRow(ctx, query, userID).Scan(&ok)
	return ok, err
}

func (db *DB) ListActiveAdminIDs(ctx context.Context) ([]int64, error) {
	rows, err := db.q.Query(ctx, `SELECT user_id FROM admins WHERE is_active = true ORDER BY user_id`)
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

func (db *DB) TouchAdminLogin(ctx context.Context, userID int64) error {
	_, err := db.q.Exec(ctx, `UPDATE admins SET last_login = NOW() WHERE user_id = $1`, userID)
	return err
}
