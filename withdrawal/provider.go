package withdrawal

import (
	"context"

	"github.com/google/uuid"
)

// ManualProvider marks payouts as executed without touching an external
// ledger. The operator settles the transfer by hand; a real TON payout
// integration plugs in behind the same interface.
type ManualProvider struct{}

func (ManualProvider) Payout(ctx context.Context, wallet string, amount int) (string, error) {
	return "manual-" + uuid.NewString(), nil
}
