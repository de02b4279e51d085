// Package payments drives the invoice → pre-checkout → commit
// lifecycle. Redelivered successful-payment events are absorbed by the
// charge-id uniqueness inside the commit transaction.
package payments

import (
	"context"
	"fmt"
	"time"

	"lessonbot/database"
	"lessonbot/errs"
)

type Store interface {
	GetLesson(ctx context.Context, id int, includeInactive bool) (*database.Lesson, error)
	HasCompletedPurchase(ctx context.Context, userID int64, lessonID int) (bool, error)
	GetPurchase(ctx context.Context, id int) (*database.Purchase, error)
	GetPurchaseByChargeID(ctx context.Context, chargeID string) (*database.Purchase, error)
	ListRecentPurchases(ctx context.Context, limit int) ([]database.Purchase, error)
	CommitPurchaseTx(ctx context.Context, userID int64, lessonID, amount int, chargeID string) (*database.Purchase, bool, error)
	RefundPurchaseTx(ctx context.Context, purchaseID int, userID int64, amount int) error
}

// Sender is the egress subset the refund flow needs.
type Sender interface {
	RefundPayment(ctx context.Context, userID int64, chargeID string) error
}

type Service struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Validate checks that the user can buy the lesson right now.
func (s *Service) Validate(ctx context.Context, userID int64, lessonID int) (*database.Lesson, error) {
	lesson, err := s.store.GetLesson(ctx, lessonID, false)
	if database.IsNoRows(err) {
		return nil, errs.New(errs.NotFound, "lesson not found")
	}
	if err != nil {
		return nil, err
	}
	if lesson.IsFree {
		return nil, errs.New(errs.Validation, "lesson is free, no purchase needed")
	}
	owned, err := s.store.HasCompletedPurchase(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, errs.New(errs.Conflict, "lesson already purchased")
	}
	return lesson, nil
}

// InvoicePayload validates the purchase and returns the lesson plus the
// payload to attach to the invoice. No local state changes here; a
// failed platform send leaves nothing behind.
func (s *Service) InvoicePayload(ctx context.Context, userID int64, lessonID int) (*database.Lesson, string, error) {
	lesson, err := s.Validate(ctx, userID, lessonID)
	if err != nil {
		return nil, "", err
	}
	return lesson, BuildPayload(lesson.ID, userID, s.now().Unix()), nil
}

// PreCheckout re-validates before the platform debits the user. Any
// returned error carries a user-readable message for the ok=false
// reply; the deadline on answering is the platform's, so no slow work
// belongs here.
func (s *Service) PreCheckout(ctx context.Context, queryingUser int64, payload string, totalAmount int) error {
	lessonID, payloadUser, err := ParsePayload(payload)
	if err != nil {
		return err
	}
	if payloadUser != queryingUser {
		return errs.New(errs.PaymentValidation, "invoice belongs to a different user")
	}

	lesson, err := s.store.GetLesson(ctx, lessonID, false)
	if database.IsNoRows(err) {
		return errs.New(errs.PaymentValidation, "lesson is no longer available")
	}
	if err != nil {
		return err
	}
	if lesson.IsFree {
		return errs.New(errs.PaymentValidation, "lesson is free")
	}
	if totalAmount != lesson.Price {
		return errs.Newf(errs.PaymentValidation, "price changed, expected %d", lesson.Price)
	}

	owned, err := s.store.HasCompletedPurchase(ctx, queryingUser, lessonID)
	if err != nil {
		return err
	}
	if owned {
		return errs.New(errs.PaymentValidation, "lesson already purchased")
	}
	return nil
}

// Commit records the successful payment in one transaction and returns
// the lesson for out-of-transaction delivery. Replays of the same
// charge id return the existing purchase with created=false.
func (s *Service) Commit(ctx context.Context, userID int64, chargeID, payload string, totalAmount int) (*database.Purchase, *database.Lesson, bool, error) {
	lessonID, _, err := ParsePayload(payload)
	if err != nil {
		return nil, nil, false, err
	}

	lesson, err := s.store.GetLesson(ctx, lessonID, true)
	if database.IsNoRows(err) {
		return nil, nil, false, errs.New(errs.NotFound, "lesson not found")
	}
	if err != nil {
		return nil, nil, false, err
	}

	purchase, created, err := s.store.CommitPurchaseTx(ctx, userID, lessonID, totalAmount, chargeID)
	if err != nil {
		return nil, nil, false, err
	}
	return purchase, lesson, created, nil
}

// Refund is not idempotent: refunding an already-refunded charge fails
// with NotFound.
func (s *Service) Refund(ctx context.Context, sender Sender, userID int64, chargeID string) (*database.Purchase, error) {
	purchase, err := s.store.GetPurchaseByChargeID(ctx, chargeID)
	if database.IsNoRows(err) {
		return nil, errs.New(errs.NotFound, "no completed purchase for this charge")
	}
	if err != nil {
		return nil, err
	}
	if purchase.Status != database.PurchaseCompleted {
		return nil, errs.New(errs.NotFound, "no completed purchase for this charge")
	}

	if err := sender.RefundPayment(ctx, userID, chargeID); err != nil {
		return nil, fmt.Errorf("platform refund: %w", err)
	}
	if err := s.store.RefundPurchaseTx(ctx, purchase.ID, purchase.UserID, purchase.Amount); err != nil {
		return nil, err
	}
	purchase.Status = database.PurchaseRefunded
	return purchase, nil
}

// RefundByID refunds a purchase picked from the sales view.
func (s *Service) RefundByID(ctx context.Context, sender Sender, purchaseID int) (*database.Purchase, error) {
	purchase, err := s.store.GetPurchase(ctx, purchaseID)
	if database.IsNoRows(err) {
		return nil, errs.New(errs.NotFound, "purchase not found")
	}
	if err != nil {
		return nil, err
	}
	return s.Refund(ctx, sender, purchase.UserID, purchase.PaymentChargeID)
}

// RecentPurchases lists the latest purchases of any status, newest
// first.
func (s *Service) RecentPurchases(ctx context.Context, limit int) ([]database.Purchase, error) {
	return s.store.ListRecentPurchases(ctx, limit)
}
