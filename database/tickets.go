package database

import "context"

const ticketColumns = `id, user_id, ticket_number, subject, initial_message,
	status, priority, assigned_admin, created_at, updated_at, closed_at`

func scanTicket(row interface{ Scan(...any) error }) (*SupportTicket, error) {
	var t SupportTicket
	err := row.Scan(
		&t.ID, &t.UserID, &t.TicketNumber, &t.Subject, &t.InitialMessage,
		&t.Status, &t.Priority, &t.AssignedAdmin, &t.CreatedAt, &t.UpdatedAt, &t.ClosedAt,
	)
	return &t, err
}

// InsertTicket fails with a unique violation when the ticket number
// collides; the caller retries with a fresh number.
func (db *DB) InsertTicket(ctx context.Context, userID int64, number, subject, message string, priority TicketPriority) (*SupportTicket, error) {
	query := `
		INSERT INTO support_tickets (user_id, ticket_number, subject, initial_message, priority)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + ticketColumns
	return scanTicket(db.q.QueryRow(ctx, query, userID, number, subject, message, priority))
}

func (db *DB) GetTicket(ctx context.Context, id int) (*SupportTicket, error) {
	return scanTicket(db.q.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM support_tickets WHERE id = $1`, id))
}

func (db *DB) ListTickets(ctx context.Context, status *TicketStatus, limit int) ([]SupportTicket, error) {
	query := `SELECT ` + ticketColumns + ` FROM support_tickets`
	var args []any
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		args = append(args, limit)
		if len(args) == 1 {
			query += ` LIMIT $1`
		} else {
			query += ` LIMIT $2`
		}
	}

	rows, err := db.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SupportTicket
	for rows.Next() {
		var t SupportTicket
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.TicketNumber, &t.Subject, &t.InitialMessage,
			&t.Status, &t.Priority, &t.AssignedAdmin, &t.CreatedAt, &t.UpdatedAt, &t.ClosedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (db *DB) AssignTicket(ctx context.Context, id int, adminID int64) error {
	query := `
		UPDATE support_tickets
		SET status = 'in_progress', assigned_admin = $1, updated_at = NOW()
		WHERE id = $2`
	_, err := db.q.Exec(ctx, query, adminID, id)
	return err
}

func (db *DB) CloseTicket(ctx context.Context, id int) error {
	query := `
		UPDATE support_tickets
		SET status = 'closed', closed_at = NOW(), updated_at = NOW()
		WHERE id = $1`
	_, err := db.q.Exec(ctx, query, id)
	return err
}

func (db *DB) ReopenTicket(ctx context.Context, id int) error {
	query := `
		UPDATE support_tickets
		SET status = 'open', closed_at = NULL, updated_at = NOW()
		WHERE id = $1`
	_, err := db.q.Exec(ctx, query, id)
	return err
}

func (db *DB) InsertTicketResponse(ctx context.Context, ticketID int, senderKind string, senderID int64, message string, internal bool) (*SupportResponse, error) {
	query := `
		INSERT INTO support_responses (ticket_id, sender_kind, sender_id, message, is_internal)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, ticket_id, sender_kind, sender_id, message, is_internal, created_at`

	var r SupportResponse
	err := db.q.QueryRow(ctx, query, ticketID, senderKind, senderID, message, internal).Scan(
		&r.ID, &r.TicketID, &r.SenderKind, &r.SenderID, &r.Message, &r.IsInternal, &r.CreatedAt,
	)
	return &r, err
}

func (db *DB) ListTicketResponses(ctx context.Context, ticketID int) ([]SupportResponse, error) {
	rows, err := db.q.Query(ctx, `
		SELECT id, ticket_id, sender_kind, sender_id, message, is_internal, created_at
		FROM support_responses
		WHERE ticket_id = $1
		ORDER BY created_at`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SupportResponse
	for rows.Next() {
		var r SupportResponse
		if err := rows.Scan(&r.ID, &r.TicketID, &r.SenderKind, &r.SenderID, &r.Message, &r.IsInternal, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
