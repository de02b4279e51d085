package database

import "context"

const broadcastColumns = `id, admin_id, text, media_type, file_handle, status,
	created_at, sent_at, total_targets, success_count`

func scanBroadcast(row interface{ Scan(...any) error }) (*Broadcast, error) {
	var b Broadcast
	err := row.Scan(
		&b.ID, &b.AdminID, &b.Text, &b.MediaType, &b.FileHandle, &b.Status,
		&b.CreatedAt, &b.SentAt, &b.TotalTargets, &b.SuccessCount,
	)
	return &b, err
}

func (db *DB) InsertBroadcast(ctx context.Context, adminID int64, text string, mediaType, fileHandle *string) (*Broadcast, error) {
	query := `
		INSERT INTO broadcasts (admin_id, text, media_type, file_handle)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + broadcastColumns
	return scanBroadcast(db.q.QueryRow(ctx, query, adminID, text, mediaType, fileHandle))
}

func (db *DB) GetBroadcast(ctx context.Context, id int) (*Broadcast, error) {
	return scanBroadcast(db.q.QueryRow(ctx,
		`SELECT `+broadcastColumns+` FROM broadcasts WHERE id = $1`, id))
}

func (db *DB) GetBroadcastStatus(ctx context.Context, id int) (BroadcastStatus, error) {
	var s BroadcastStatus
	err := db.q.QueryRow(ctx, `SELECT status FROM broadcasts WHERE id = $1`, id).Scan(&s)
	return s, err
}

// ClaimBroadcastSending flips pending to sending; the false return means
// another worker already claimed it or it was cancelled.
func (db *DB) ClaimBroadcastSending(ctx context.Context, id int) (bool, error) {
	tag, err := db.q.Exec(ctx,
		`UPDATE broadcasts SET status = 'sending' WHERE id = $1 AND status = 'pending'`, id)
	return tag.RowsAffected() > 0, err
}

func (db *DB) CompleteBroadcast(ctx context.Context, id, totalTargets, successCount int) error {
	query := `
		UPDATE broadcasts
		SET status = 'completed', sent_at = NOW(), total_targets = $1, success_count = $2
		WHERE id = $3`
	_, err := db.q.Exec(ctx, query, totalTargets, successCount, id)
	return err
}

func (db *DB) FailBroadcast(ctx context.Context, id int) error {
	_, err := db.q.Exec(ctx, `UPDATE broadcasts SET status = 'failed' WHERE id = $1`, id)
	return err
}

// CancelBroadcast only succeeds while the broadcast is still pending.
func (db *DB) CancelBroadcast(ctx context.Context, id int) (bool, error) {
	tag, err := db.q.Exec(ctx,
		`UPDATE broadcasts SET status = 'cancelled' WHERE id = $1 AND status = 'pending'`, id)
	return tag.RowsAffected() > 0, err
}

func (db *DB) DeleteBroadcast(ctx context.Context, id int) error {
	_, err := db.q.Exec(ctx, `DELETE FROM broadcasts WHERE id = $1`, id)
	return err
}

func (db *DB) ListBroadcasts(ctx context.Context, limit int) ([]Broadcast, error) {
	rows, err := db.q.Query(ctx,
		`SELECT `+broadcastColumns+` FROM broadcasts ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Broadcast
	for rows.Next() {
		var b Broadcast
		if err := rows.Scan(
			&b.ID, &b.AdminID, &b.Text, &b.MediaType, &b.FileHandle, &b.Status,
			&b.CreatedAt, &b.SentAt, &b.TotalTargets, &b.SuccessCount,
		); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListAudienceIDs resolves a broadcast audience ordered by user id.
// audience is one of "all", "active", "buyers".
func (db *DB) ListAudienceIDs(ctx context.Context, audience string) ([]int64, error) {
	var query string
	switch audience {
	case "active":
		query = `SELECT id FROM users WHERE is_active = true ORDER BY id`
	case "buyers":
		query = `
			SELECT DISTINCT u.id
			FROM users u
			JOIN purchases p ON p.user_id = u.id AND p.status = 'completed'
			ORDER BY u.id`
	default:
		query = `SELECT id FROM users ORDER BY id`
	}

	rows, err := db.q.Query(ctx, query)
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
