package database

import "context"

// Composite operations that must hold a single transaction.

// CommitPurchaseTx records a successful payment exactly once. When a
// purchase with the same charge id already exists it is returned with
// created=false and nothing is written (redelivery safety).
func (db *DB) CommitPurchaseTx(ctx context.Context, userID int64, lessonID, amount int, chargeID string) (*Purchase, bool, error) {
	var purchase *Purchase
	created := false

	err := db.WithTx(ctx, func(tx *DB) error {
		existing, err := tx.GetPurchaseByChargeID(ctx, chargeID)
		if err == nil {
			purchase = existing
			return nil
		}
		if !IsNoRows(err) {
			return err
		}

		p, err := tx.InsertPurchase(ctx, userID, lessonID, amount, chargeID)
		if err != nil {
			return err
		}
		if err := tx.AddToTotalSpent(ctx, userID, amount); err != nil {
			return err
		}
		purchase = p
		created = true
		return nil
	})
	return purchase, created, err
}

// RefundPurchaseTx flips the purchase to refunded and deducts the
// amount from the user's running total, floored at zero.
func (db *DB) RefundPurchaseTx(ctx context.Context, purchaseID int, userID int64, amount int) error {
	return db.WithTx(ctx, func(tx *DB) error {
		if err := tx.MarkPurchaseRefunded(ctx, purchaseID); err != nil {
			return err
		}
		return tx.AddToTotalSpent(ctx, userID, -amount)
	})
}

// HardDeleteLessonTx removes the lesson; with cancelPurchases set the
// referencing purchases are flipped to cancelled first.
func (db *DB) HardDeleteLessonTx(ctx context.Context, lessonID int, cancelPurchases bool) error {
	return db.WithTx(ctx, func(tx *DB) error {
		if cancelPurchases {
			if err := tx.CancelPurchasesForLesson(ctx, lessonID); err != nil {
				return err
			}
		}
		return tx.DeleteLesson(ctx, lessonID)
	})
}
