// Package withdrawal derives the shared revenue balance and runs the
// request lifecycle. The balance pool is fleet-wide: all admins draw
// from the same completed-sales total.
package withdrawal

import (
	"context"
	"regexp"

	"lessonbot/database"
	"lessonbot/errs"
)

// TON-style wallet: EQ/UQ/0Q prefix plus 46 base64url characters.
var walletPattern = regexp.MustCompile(`^(EQ|UQ|0Q)[A-Za-z0-9_-]{46}$`)

type Store interface {
	SumCompletedPurchases(ctx context.Context) (int, error)
	SumReservedWithdrawals(ctx context.Context) (int, error)
	SumWithdrawalsToday(ctx context.Context) (int, error)
	InsertWithdrawal(ctx context.Context, adminID int64, amount int, wallet string, commission int, notes *string) (*database.WithdrawalRequest, error)
	GetWithdrawal(ctx context.Context, id int) (*database.WithdrawalRequest, error)
	CancelWithdrawal(ctx context.Context, id int, reason string) (bool, error)
	SetWithdrawalProcessing(ctx context.Context, id int) (bool, error)
	CompleteWithdrawal(ctx context.Context, id int, transactionID string) (bool, error)
	FailWithdrawal(ctx context.Context, id int, reason string) (bool, error)
	ListWithdrawals(ctx context.Context, limit int) ([]database.WithdrawalRequest, error)
}

// Provider is the external payout collaborator. The real payout API is
// not wired yet; the default implementation is a stub and tests use a
// deterministic mock.
type Provider interface {
	Payout(ctx context.Context, wallet string, amount int) (transactionID string, err error)
}

type Config struct {
	MinWithdrawal int
	RatePct       int
	MinCommission int
	DailyLimit    int
}

type Service struct {
	store Store
	cfg   Config
}

func New(store Store, cfg Config) *Service {
	return &Service{store: store, cfg: cfg}
}

// Available is completed sales minus every request that holds funds,
// floored at zero.
func (s *Service) Available(ctx context.Context) (int, error) {
	sales, err := s.store.SumCompletedPurchases(ctx)
	if err != nil {
		return 0, err
	}
	reserved, err := s.store.SumReservedWithdrawals(ctx)
	if err != nil {
		return 0, err
	}
	available := sales - reserved
	if available < 0 {
		available = 0
	}
	return available, nil
}

// Commission is max(floor(amount*rate), min_commission).
func (s *Service) Commission(amount int) int {
	c := amount * s.cfg.RatePct / 100
	if c < s.cfg.MinCommission {
		c = s.cfg.MinCommission
	}
	return c
}

func (s *Service) Create(ctx context.Context, adminID int64, amount int, wallet string, notes *string) (*database.WithdrawalRequest, error) {
	if amount < s.cfg.MinWithdrawal {
		return nil, errs.Newf(errs.Validation, "minimum withdrawal is %d", s.cfg.MinWithdrawal)
	}
	if !walletPattern.MatchString(wallet) {
		return nil, errs.New(errs.Validation, "invalid wallet address")
	}
	commission := s.Commission(amount)
	if amount-commission < 0 {
		return nil, errs.New(errs.Validation, "amount does not cover the commission")
	}

	available, err := s.Available(ctx)
	if err != nil {
		return nil, err
	}
	if amount > available {
		return nil, errs.Newf(errs.Validation, "insufficient balance, available %d", available)
	}

	today, err := s.store.SumWithdrawalsToday(ctx)
	if err != nil {
		return nil, err
	}
	if today+amount > s.cfg.DailyLimit {
		return nil, errs.Newf(errs.Validation, "daily limit %d exceeded", s.cfg.DailyLimit)
	}

	return s.store.InsertWithdrawal(ctx, adminID, amount, wallet, commission, notes)
}

func (s *Service) Get(ctx context.Context, id int) (*database.WithdrawalRequest, error) {
	w, err := s.store.GetWithdrawal(ctx, id)
	if database.IsNoRows(err) {
		return nil, errs.New(errs.NotFound, "withdrawal request not found")
	}
	return w, err
}

func (s *Service) List(ctx context.Context, limit int) ([]database.WithdrawalRequest, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.ListWithdrawals(ctx, limit)
}

// Cancel releases the reserved funds; only pending requests qualify.
func (s *Service) Cancel(ctx context.Context, id int, reason string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	ok, err := s.store.CancelWithdrawal(ctx, id, reason)
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.Conflict, "only pending requests can be cancelled")
	}
	return nil
}

func (s *Service) StartProcessing(ctx context.Context, id int) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	ok, err := s.store.SetWithdrawalProcessing(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.Conflict, "request is not pending")
	}
	return nil
}

// Process drives processing → completed|failed through the provider.
func (s *Service) Process(ctx context.Context, provider Provider, id int) error {
	w, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if w.Status != database.WithdrawalProcessing {
		return errs.New(errs.Conflict, "request is not processing")
	}

	txID, err := provider.Payout(ctx, w.WalletAddress, w.NetAmount)
	if err != nil {
		if _, ferr := s.store.FailWithdrawal(ctx, id, err.Error()); ferr != nil {
			return ferr
		}
		return errs.Wrap(errs.Conflict, "payout failed, request marked as failed", err)
	}
	ok, err := s.store.CompleteWithdrawal(ctx, id, txID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.Conflict, "request left processing state")
	}
	return nil
}

func (s *Service) Complete(ctx context.Context, id int, transactionID string) error {
	ok, err := s.store.CompleteWithdrawal(ctx, id, transactionID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.Conflict, "request is not processing")
	}
	return nil
}

func (s *Service) Fail(ctx context.Context, id int, reason string) error {
	ok, err := s.store.FailWithdrawal(ctx, id, reason)
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.Conflict, "request is not processing")
	}
	return nil
}
