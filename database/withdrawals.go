package database

import "context"

const withdrawalColumns = `id, admin_id, amount, wallet_address, commission, net_amount,
	status, created_at, processed_at, transaction_id, failure_reason, notes`

func scanWithdrawal(row interface{ Scan(...any) error }) (*WithdrawalRequest, error) {
	var w WithdrawalRequest
	err := row.Scan(
		&w.ID, &w.AdminID, &w.Amount, &w.WalletAddress, &w.Commission, &w.NetAmount,
		&w.Status, &w.CreatedAt, &w.ProcessedAt, &w.TransactionID, &w.FailureReason, &w.Notes,
	)
	return &w, err
}

func (db *DB) InsertWithdrawal(ctx context.Context, adminID int64, amount int, wallet string, commission int, notes *string) (*WithdrawalRequest, error) {
	query := `
		INSERT INTO withdrawal_requests (admin_id, amount, wallet_address, commission, net_amount, notes)
		VALUES ($1, $2, $3, $4, $2 - $4, $5)
		RETURNING ` + withdrawalColumns
	return scanWithdrawal(db.q.QueryRow(ctx, query, adminID, amount, wallet, commission, notes))
}

func (db *DB) GetWithdrawal(ctx context.Context, id int) (*WithdrawalRequest, error) {
	return scanWithdrawal(db.q.QueryRow(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, id))
}

// SumReservedWithdrawals covers every request that holds funds:
// pending, processing and completed.
func (db *DB) SumReservedWithdrawals(ctx context.Context) (int, error) {
	var sum int
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM withdrawal_requests
		WHERE status IN ('pending', 'processing', 'completed')`
	err := db.q.QueryRow(ctx, query).Scan(&sum)
	return sum, err
}

// SumWithdrawalsToday totals requests created on the current UTC day,
// excluding cancelled ones.
func (db *DB) SumWithdrawalsToday(ctx context.Context) (int, error) {
	var sum int
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM withdrawal_requests
		WHERE status <> 'cancelled'
		  AND created_at >= date_trunc('day', NOW() AT TIME ZONE 'UTC')`
	err := db.q.QueryRow(ctx, query).Scan(&sum)
	return sum, err
}

// CancelWithdrawal only succeeds while the request is pending.
func (db *DB) CancelWithdrawal(ctx context.Context, id int, reason string) (bool, error) {
	query := `
		UPDATE withdrawal_requests
		SET status = 'cancelled', failure_reason = $1, processed_at = NOW()
		WHERE id = $2 AND status = 'pending'`
	tag, err := db.q.Exec(ctx, query, reason, id)
	return tag.RowsAffected() > 0, err
}

func (db *DB) SetWithdrawalProcessing(ctx context.Context, id int) (bool, error) {
	tag, err := db.q.Exec(ctx, `
		UPDATE withdrawal_requests
		SET status = 'processing'
		WHERE id = $1 AND status = 'pending'`, id)
	return tag.RowsAffected() > 0, err
}

func (db *DB) CompleteWithdrawal(ctx context.Context, id int, transactionID string) (bool, error) {
	tag, err := db.q.Exec(ctx, `
		UPDATE withdrawal_requests
		SET status = 'completed', processed_at = NOW(), transaction_id = $1
		WHERE id = $2 AND status = 'processing'`, transactionID, id)
	return tag.RowsAffected() > 0, err
}

func (db *DB) FailWithdrawal(ctx context.Context, id int, reason string) (bool, error) {
	tag, err := db.q.Exec(ctx, `
		UPDATE withdrawal_requests
		SET status = 'failed', processed_at = NOW(), failure_reason = $1
		WHERE id = $2 AND status = 'processing'`, reason, id)
	return tag.RowsAffected() > 0, err
}

func (db *DB) ListWithdrawals(ctx context.Context, limit int) ([]WithdrawalRequest, error) {
	rows, err := db.q.Query(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawal_requests ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WithdrawalRequest
	for rows.Next() {
		var w WithdrawalRequest
		if err := rows.Scan(
			&w.ID, &w.AdminID, &w.Amount, &w.WalletAddress, &w.Commission, &w.NetAmount,
			&w.Status, &w.CreatedAt, &w.ProcessedAt, &w.TransactionID, &w.FailureReason, &w.Notes,
		); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
