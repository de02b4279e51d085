package withdrawal

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lessonbot/database"
	"lessonbot/errs"
)

const testWallet = "EQ" + "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

type mockStore struct {
	sales    int
	reserved int
	today    int

	requests map[int]*database.WithdrawalRequest
	nextID   int
}

func newMockStore() *mockStore {
	return &mockStore{requests: map[int]*database.WithdrawalRequest{}, nextID: 1}
}

func (m *mockStore) SumCompletedPurchases(_ context.Context) (int, error)  { return m.sales, nil }
func (m *mockStore) SumReservedWithdrawals(_ context.Context) (int, error) { return m.reserved, nil }
func (m *mockStore) SumWithdrawalsToday(_ context.Context) (int, error)    { return m.today, nil }

func (m *mockStore) InsertWithdrawal(_ context.Context, adminID int64, amount int, wallet string, commission int, notes *string) (*database.WithdrawalRequest, error) {
	w := &database.WithdrawalRequest{
		ID: m.nextID, AdminID: adminID, Amount: amount,
		WalletAddress: wallet, Commission: commission,
		NetAmount: amount - commission,
		Status:    database.WithdrawalPending, Notes: notes,
	}
	m.nextID++
	m.requests[w.ID] = w
	m.reserved += amount
	return w, nil
}

func (m *mockStore) GetWithdrawal(_ context.Context, id int) (*database.WithdrawalRequest, error) {
	w, ok := m.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return w, nil
}

func (m *mockStore) CancelWithdrawal(_ context.Context, id int, reason string) (bool, error) {
	w := m.requests[id]
	if w.Status != database.WithdrawalPending {
		return false, nil
	}
	w.Status = database.WithdrawalCancelled
	w.FailureReason = &reason
	m.reserved -= w.Amount
	return true, nil
}

func (m *mockStore) SetWithdrawalProcessing(_ context.Context, id int) (bool, error) {
	w := m.requests[id]
	if w.Status != database.WithdrawalPending {
		return false, nil
	}
	w.Status = database.WithdrawalProcessing
	return true, nil
}

func (m *mockStore) CompleteWithdrawal(_ context.Context, id int, transactionID string) (bool, error) {
	w := m.requests[id]
	if w.Status != database.WithdrawalProcessing {
		return false, nil
	}
	w.Status = database.WithdrawalCompleted
	w.TransactionID = &transactionID
	return true, nil
}

func (m *mockStore) FailWithdrawal(_ context.Context, id int, reason string) (bool, error) {
	w := m.requests[id]
	w.Status = database.WithdrawalFailed
	w.FailureReason = &reason
	m.reserved -= w.Amount
	return true, nil
}

func (m *mockStore) ListWithdrawals(_ context.Context, limit int) ([]database.WithdrawalRequest, error) {
	var out []database.WithdrawalRequest
	for _, w := range m.requests {
		out = append(out, *w)
	}
	return out, nil
}

type mockProvider struct {
	txID string
	err  error
}

func (p mockProvider) Payout(_ context.Context, _ string, _ int) (string, error) {
	return p.txID, p.err
}

func testConfig() Config {
	return Config{MinWithdrawal: 1000, RatePct: 5, MinCommission: 10, DailyLimit: 10000}
}

func TestAvailableFloorsAtZero(t *testing.T) {
	store := newMockStore()
	store.sales = 100
	store.reserved = 150
	svc := New(store, testConfig())

	available, err := svc.Available(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, available)
}

func TestCommission(t *testing.T) {
	svc := New(newMockStore(), testConfig())

	assert.Equal(t, 50, svc.Commission(1000), "5% of 1000")
	assert.Equal(t, 10, svc.Commission(100), "rate below the floor uses min commission")
	assert.Equal(t, 62, svc.Commission(1250), "truncating division")
}

func TestWalletPattern(t *testing.T) {
	assert.Regexp(t, walletPattern, testWallet)
	assert.Regexp(t, walletPattern, "UQ"+"abcdefghijklmnopqrstuvwxyz0123456789_-ABCDEFGH")
	assert.NotRegexp(t, walletPattern, "EQshort")
	assert.NotRegexp(t, walletPattern, "XX"+"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	assert.NotRegexp(t, walletPattern, testWallet+"A")
}

func TestCreate(t *testing.T) {
	store := newMockStore()
	store.sales = 5000
	svc := New(store, testConfig())

	w, err := svc.Create(context.Background(), 1, 2000, testWallet, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, w.Commission)
	assert.Equal(t, 1900, w.NetAmount)
	assert.Equal(t, database.WithdrawalPending, w.Status)
}

func TestCreateBelowMinimum(t *testing.T) {
	svc := New(newMockStore(), testConfig())
	_, err := svc.Create(context.Background(), 1, 999, testWallet, nil)
	assert.True(t, errs.Is(err, errs.Validation))
	assert.Contains(t, errs.Message(err), "minimum")
}

func TestCreateBadWallet(t *testing.T) {
	store := newMockStore()
	store.sales = 5000
	svc := New(store, testConfig())

	_, err := svc.Create(context.Background(), 1, 2000, "not-a-wallet", nil)
	assert.True(t, errs.Is(err, errs.Validation))
}

func TestCreateInsufficientBalance(t *testing.T) {
	store := newMockStore()
	store.sales = 1500
	store.reserved = 1450
	svc := New(store, testConfig())

	_, err := svc.Create(context.Background(), 1, 1000, testWallet, nil)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Validation))
	assert.Contains(t, errs.Message(err), "available 50")
}

func TestCreateDailyLimit(t *testing.T) {
	store := newMockStore()
	store.sales = 50000
	store.today = 9500
	svc := New(store, testConfig())

	_, err := svc.Create(context.Background(), 1, 1000, testWallet, nil)
	assert.True(t, errs.Is(err, errs.Validation))
	assert.Contains(t, errs.Message(err), "daily limit")
}

func TestReservationShrinksBalance(t *testing.T) {
	store := newMockStore()
	store.sales = 3000
	svc := New(store, testConfig())
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, 2000, testWallet, nil)
	require.NoError(t, err)

	_, err = svc.Create(ctx, 2, 2000, testWallet, nil)
	assert.True(t, errs.Is(err, errs.Validation), "second admin draws from the same pool")
}

func TestCancelReleasesFunds(t *testing.T) {
	store := newMockStore()
	store.sales = 3000
	svc := New(store, testConfig())
	ctx := context.Background()

	w, err := svc.Create(ctx, 1, 2000, testWallet, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, w.ID, "передумал"))

	available, err := svc.Available(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3000, available)
}

func TestCancelNonPending(t *testing.T) {
	store := newMockStore()
	store.sales = 3000
	svc := New(store, testConfig())
	ctx := context.Background()

	w, err := svc.Create(ctx, 1, 2000, testWallet, nil)
	require.NoError(t, err)
	require.NoError(t, svc.StartProcessing(ctx, w.ID))

	err = svc.Cancel(ctx, w.ID, "поздно")
	assert.True(t, errs.Is(err, errs.Conflict))
}

func TestProcessCompletes(t *testing.T) {
	store := newMockStore()
	store.sales = 3000
	svc := New(store, testConfig())
	ctx := context.Background()

	w, err := svc.Create(ctx, 1, 2000, testWallet, nil)
	require.NoError(t, err)
	require.NoError(t, svc.StartProcessing(ctx, w.ID))

	require.NoError(t, svc.Process(ctx, mockProvider{txID: "tx-123"}, w.ID))
	assert.Equal(t, database.WithdrawalCompleted, store.requests[w.ID].Status)
	assert.Equal(t, "tx-123", *store.requests[w.ID].TransactionID)
}

func TestProcessProviderFailure(t *testing.T) {
	store := newMockStore()
	store.sales = 3000
	svc := New(store, testConfig())
	ctx := context.Background()

	w, err := svc.Create(ctx, 1, 2000, testWallet, nil)
	require.NoError(t, err)
	require.NoError(t, svc.StartProcessing(ctx, w.ID))

	err = svc.Process(ctx, mockProvider{err: errors.New("ledger offline")}, w.ID)
	require.Error(t, err)
	assert.Equal(t, database.WithdrawalFailed, store.requests[w.ID].Status)
	assert.Contains(t, *store.requests[w.ID].FailureReason, "ledger offline")
}

func TestProcessRequiresProcessingStatus(t *testing.T) {
	store := newMockStore()
	store.sales = 3000
	svc := New(store, testConfig())
	ctx := context.Background()

	w, err := svc.Create(ctx, 1, 2000, testWallet, nil)
	require.NoError(t, err)

	err = svc.Process(ctx, mockProvider{txID: "tx-1"}, w.ID)
	assert.True(t, errs.Is(err, errs.Conflict))
}
