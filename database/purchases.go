package database

import "context"

const purchaseColumns = `id, user_id, lesson_id, payment_charge_id, amount,
	status, purchased_at, refunded_at`

func scanPurchase(row interface{ Scan(...any) error }) (*Purchase, error) {
	var p Purchase
	err := row.Scan(
		&p.ID, &p.UserID, &p.LessonID, &p.PaymentChargeID, &p.Amount,
		&p.Status, &p.PurchasedAt, &p.RefundedAt,
	)
	return &p, err
}

func (db *DB) InsertPurchase(ctx context.Context, userID int64, lessonID, amount int, chargeID string) (*Purchase, error) {
	query := `
		INSERT INTO purchases (user_id, lesson_id, payment_charge_id, amount, status)
		VALUES ($1, $2, $3, $4, 'completed')
		RETURNING ` + purchaseColumns
	return scanPurchase(db.q.QueryRow(ctx, query, userID, lessonID, chargeID, amount))
}

func (db *DB) GetPurchase(ctx context.Context, id int) (*Purchase, error) {
	return scanPurchase(db.q.QueryRow(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id))
}

func (db *DB) GetPurchaseByChargeID(ctx context.Context, chargeID string) (*Purchase, error) {
	return scanPurchase(db.q.QueryRow(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE payment_charge_id = $1`, chargeID))
}

func (db *DB) HasCompletedPurchase(ctx context.Context, userID int64, lessonID int) (bool, error) {
	var ok bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM purchases
			WHERE user_id = $1 AND lesson_id = $2 AND status = 'completed')`
	err := db.q.QueryRow(ctx, query, userID, lessonID).Scan(&ok)
	return ok, err
}

func (db *DB) MarkPurchaseRefunded(ctx context.Context, id int) error {
	query := `UPDATE purchases SET status = 'refunded', refunded_at = NOW() WHERE id = $1`
	_, err := db.q.Exec(ctx, query, id)
	return err
}

func (db *DB) CountCompletedPurchasesForLesson(ctx context.Context, lessonID int) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM purchases WHERE lesson_id = $1 AND status = 'completed'`
	err := db.q.QueryRow(ctx, query, lessonID).Scan(&n)
	return n, err
}

// CancelPurchasesForLesson flips purchases to cancelled ahead of a
// forced lesson delete.
func (db *DB) CancelPurchasesForLesson(ctx context.Context, lessonID int) error {
	_, err := db.q.Exec(ctx,
		`UPDATE purchases SET status = 'cancelled' WHERE lesson_id = $1`, lessonID)
	return err
}

func (db *DB) ListUserPurchases(ctx context.Context, userID int64) ([]Purchase, error) {
	rows, err := db.q.Query(ctx, `
		SELECT `+purchaseColumns+`
		FROM purchases
		WHERE user_id = $1 AND status = 'completed'
		ORDER BY purchased_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Purchase
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.LessonID, &p.PaymentChargeID, &p.Amount,
			&p.Status, &p.PurchasedAt, &p.RefundedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) ListRecentPurchases(ctx context.Context, limit int) ([]Purchase, error) {
	rows, err := db.q.Query(ctx, `
		SELECT `+purchaseColumns+`
		FROM purchases
		ORDER BY purchased_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Purchase
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.LessonID, &p.PaymentChargeID, &p.Amount,
			&p.Status, &p.PurchasedAt, &p.RefundedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) SumCompletedPurchases(ctx context.Context) (int, error) {
	var sum int
	query := `SELECT COALESCE(SUM(amount), 0) FROM purchases WHERE status = 'completed'`
	err := db.q.QueryRow(ctx, query).Scan(&sum)
	return sum, err
}

func (db *DB) CountCompletedPurchases(ctx context.Context) (int, error) {
	var n int
	err := db.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM purchases WHERE status = 'completed'`).Scan(&n)
	return n, err
}
