package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lessonbot/database"
	"lessonbot/errs"
)

type mockStore struct {
	lessons    map[int]*database.Lesson
	owned      map[string]bool // "user:lesson"
	byCharge   map[string]*database.Purchase
	committed  []string
	refunded   []int
	commitErr  error
	nextID     int
}

func newMockStore() *mockStore {
	return &mockStore{
		lessons:  map[int]*database.Lesson{},
		owned:    map[string]bool{},
		byCharge: map[string]*database.Purchase{},
		nextID:   1,
	}
}

func ownKey(userID int64, lessonID int) string {
	return BuildPayload(lessonID, userID, 0)
}

func lessonRef(id int) *int {
	return &id
}

func (m *mockStore) GetLesson(_ context.Context, id int, includeInactive bool) (*database.Lesson, error) {
	l, ok := m.lessons[id]
	if !ok || (!includeInactive && !l.IsActive) {
		return nil, pgx.ErrNoRows
	}
	return l, nil
}

func (m *mockStore) HasCompletedPurchase(_ context.Context, userID int64, lessonID int) (bool, error) {
	return m.owned[ownKey(userID, lessonID)], nil
}

func (m *mockStore) GetPurchaseByChargeID(_ context.Context, chargeID string) (*database.Purchase, error) {
	p, ok := m.byCharge[chargeID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockStore) GetPurchase(_ context.Context, id int) (*database.Purchase, error) {
	for _, p := range m.byCharge {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) ListRecentPurchases(_ context.Context, limit int) ([]database.Purchase, error) {
	var out []database.Purchase
	for _, p := range m.byCharge {
		if len(out) == limit {
			break
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockStore) CommitPurchaseTx(_ context.Context, userID int64, lessonID, amount int, chargeID string) (*database.Purchase, bool, error) {
	if m.commitErr != nil {
		return nil, false, m.commitErr
	}
	if p, ok := m.byCharge[chargeID]; ok {
		return p, false, nil
	}
	p := &database.Purchase{
		ID:              m.nextID,
		UserID:          userID,
		LessonID:        lessonRef(lessonID),
		Amount:          amount,
		PaymentChargeID: chargeID,
		Status:          database.PurchaseCompleted,
	}
	m.nextID++
	m.byCharge[chargeID] = p
	m.owned[ownKey(userID, lessonID)] = true
	m.committed = append(m.committed, chargeID)
	return p, true, nil
}

func (m *mockStore) RefundPurchaseTx(_ context.Context, purchaseID int, _ int64, _ int) error {
	m.refunded = append(m.refunded, purchaseID)
	return nil
}

type mockSender struct {
	refunds []string
	err     error
}

func (m *mockSender) RefundPayment(_ context.Context, _ int64, chargeID string) error {
	if m.err != nil {
		return m.err
	}
	m.refunds = append(m.refunds, chargeID)
	return nil
}

func paidLesson(id, price int) *database.Lesson {
	return &database.Lesson{ID: id, Title: "Урок", Price: price, IsActive: true}
}

func TestParsePayload(t *testing.T) {
	payload := BuildPayload(12, 345, 1700000000)
	assert.Equal(t, "lesson_12_345_1700000000", payload)

	lessonID, userID, err := ParsePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, 12, lessonID)
	assert.Equal(t, int64(345), userID)
}

func TestParsePayloadToleratesTrailingFields(t *testing.T) {
	lessonID, userID, err := ParsePayload("lesson_5_77_1700000000_extra_bits")
	require.NoError(t, err)
	assert.Equal(t, 5, lessonID)
	assert.Equal(t, int64(77), userID)
}

func TestParsePayloadRejectsGarbage(t *testing.T) {
	for _, payload := range []string{"", "lesson_5", "svc_5_77_0", "lesson_x_77_0", "lesson_5_y_0"} {
		_, _, err := ParsePayload(payload)
		assert.True(t, errs.Is(err, errs.PaymentValidation), "payload %q", payload)
	}
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.lessons[1] = paidLesson(1, 100)
	store.lessons[2] = &database.Lesson{ID: 2, Price: 0, IsFree: true, IsActive: true}
	store.lessons[3] = &database.Lesson{ID: 3, Price: 50, IsActive: false}
	store.owned[ownKey(9, 1)] = true
	svc := New(store)

	_, err := svc.Validate(ctx, 5, 404)
	assert.True(t, errs.Is(err, errs.NotFound))

	_, err = svc.Validate(ctx, 5, 3)
	assert.True(t, errs.Is(err, errs.NotFound), "inactive lesson is invisible to buyers")

	_, err = svc.Validate(ctx, 5, 2)
	assert.True(t, errs.Is(err, errs.Validation))

	_, err = svc.Validate(ctx, 9, 1)
	assert.True(t, errs.Is(err, errs.Conflict))

	lesson, err := svc.Validate(ctx, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, lesson.ID)
}

func TestInvoicePayloadEmbedsUserAndLesson(t *testing.T) {
	store := newMockStore()
	store.lessons[7] = paidLesson(7, 250)
	svc := New(store)
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }

	lesson, payload, err := svc.InvoicePayload(context.Background(), 42, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, lesson.ID)
	assert.Equal(t, "lesson_7_42_1700000000", payload)
}

func TestPreCheckout(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.lessons[1] = paidLesson(1, 100)
	store.owned[ownKey(9, 1)] = true
	svc := New(store)

	tests := []struct {
		name        string
		userID      int64
		payload     string
		totalAmount int
		wantMsg     string
	}{
		{"ok", 5, "lesson_1_5_0", 100, ""},
		{"foreign invoice", 6, "lesson_1_5_0", 100, "different user"},
		{"gone lesson", 5, "lesson_404_5_0", 100, "no longer available"},
		{"price changed", 5, "lesson_1_5_0", 50, "expected 100"},
		{"already owned", 9, "lesson_1_9_0", 100, "already purchased"},
		{"malformed", 5, "garbage", 100, "malformed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.PreCheckout(ctx, tt.userID, tt.payload, tt.totalAmount)
			if tt.wantMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.PaymentValidation))
			assert.Contains(t, errs.Message(err), tt.wantMsg)
		})
	}
}

func TestCommitCreatesPurchase(t *testing.T) {
	store := newMockStore()
	store.lessons[1] = paidLesson(1, 100)
	svc := New(store)

	purchase, lesson, created, err := svc.Commit(context.Background(), 5, "charge-1", "lesson_1_5_0", 100)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, lesson.ID)
	assert.Equal(t, database.PurchaseCompleted, purchase.Status)
}

func TestCommitReplayReturnsExisting(t *testing.T) {
	store := newMockStore()
	store.lessons[1] = paidLesson(1, 100)
	svc := New(store)
	ctx := context.Background()

	first, _, created, err := svc.Commit(ctx, 5, "charge-1", "lesson_1_5_0", 100)
	require.NoError(t, err)
	require.True(t, created)

	second, _, created, err := svc.Commit(ctx, 5, "charge-1", "lesson_1_5_0", 100)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.committed, 1)
}

func TestCommitDeliversInactiveLesson(t *testing.T) {
	// a lesson deactivated between invoice and payment is still honored
	store := newMockStore()
	store.lessons[1] = &database.Lesson{ID: 1, Price: 100, IsActive: false}
	svc := New(store)

	_, lesson, created, err := svc.Commit(context.Background(), 5, "charge-1", "lesson_1_5_0", 100)
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, lesson.IsActive)
}

func TestRefund(t *testing.T) {
	store := newMockStore()
	store.byCharge["charge-1"] = &database.Purchase{
		ID: 3, UserID: 5, LessonID: lessonRef(1), Amount: 100,
		PaymentChargeID: "charge-1", Status: database.PurchaseCompleted,
	}
	svc := New(store)
	sender := &mockSender{}

	purchase, err := svc.Refund(context.Background(), sender, 5, "charge-1")
	require.NoError(t, err)
	assert.Equal(t, database.PurchaseRefunded, purchase.Status)
	assert.Equal(t, []string{"charge-1"}, sender.refunds)
	assert.Equal(t, []int{3}, store.refunded)
}

func TestRefundByID(t *testing.T) {
	store := newMockStore()
	store.byCharge["charge-1"] = &database.Purchase{
		ID: 3, UserID: 5, LessonID: lessonRef(1), Amount: 100,
		PaymentChargeID: "charge-1", Status: database.PurchaseCompleted,
	}
	svc := New(store)
	sender := &mockSender{}

	purchase, err := svc.RefundByID(context.Background(), sender, 3)
	require.NoError(t, err)
	assert.Equal(t, database.PurchaseRefunded, purchase.Status)
	assert.Equal(t, []string{"charge-1"}, sender.refunds)
	assert.Equal(t, []int{3}, store.refunded)
}

func TestRefundByIDUnknownPurchase(t *testing.T) {
	svc := New(newMockStore())

	_, err := svc.RefundByID(context.Background(), &mockSender{}, 42)
	assert.True(t, errs.Is(err, errs.NotFound))
}

func TestRefundUnknownCharge(t *testing.T) {
	svc := New(newMockStore())

	_, err := svc.Refund(context.Background(), &mockSender{}, 5, "nope")
	assert.True(t, errs.Is(err, errs.NotFound))
}

func TestRefundAlreadyRefunded(t *testing.T) {
	store := newMockStore()
	store.byCharge["charge-1"] = &database.Purchase{
		ID: 3, Status: database.PurchaseRefunded,
	}
	svc := New(store)
	sender := &mockSender{}

	_, err := svc.Refund(context.Background(), sender, 5, "charge-1")
	assert.True(t, errs.Is(err, errs.NotFound))
	assert.Empty(t, sender.refunds)
}

func TestRefundPlatformFailureKeepsPurchase(t *testing.T) {
	store := newMockStore()
	store.byCharge["charge-1"] = &database.Purchase{
		ID: 3, Status: database.PurchaseCompleted,
	}
	svc := New(store)

	_, err := svc.Refund(context.Background(), &mockSender{err: errors.New("boom")}, 5, "charge-1")
	require.Error(t, err)
	assert.Empty(t, store.refunded)
}
