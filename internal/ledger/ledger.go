package ledger

import (
	"context"
	"fmt"

	"ClubLedger/internal/logger"
	"ClubLedger/internal/store"

	"github.com/shopspring/decimal"
)

// Places is the rounding applied to every delta before it reaches a balance.
const Places = 2

// BalanceApplicationError means a delta could not be applied. The store transaction that
// produced the delta must be rolled back.
type BalanceApplicationError struct {
	Username string
	Delta    decimal.Decimal
	Err      error
}

func (e *BalanceApplicationError) Error() string {
	return fmt.Sprintf("apply balance delta %s to %q: %v", e.Delta.StringFixed(Places), e.Username, e.Err)
}

func (e *BalanceApplicationError) Unwrap() error { return e.Err }

// Ledger moves player balances. It only ever writes through the caller's transaction, so a
// delta commits together with the transaction write it came from.
type Ledger struct{}

func New() *Ledger { return &Ledger{} }

// Round brings a monetary amount to ledger precision.
func Round(d decimal.Decimal) decimal.Decimal { return d.Round(Places) }

// ApplyDelta adds the rounded delta to username's balance and returns the applied amount and
// the new balance. A zero delta after rounding is not written.
func (l *Ledger) ApplyDelta(ctx context.Context, tx store.Tx, username string, delta decimal.Decimal) (applied, balance decimal.Decimal, err error) {
	applied = Round(delta)
	if applied.IsZero() {
		p, err := tx.LookupPlayer(ctx, username)
		if err != nil {
			return decimal.Zero, decimal.Zero, &BalanceApplicationError{Username: username, Delta: applied, Err: err}
		}
		return applied, p.Balance, nil
	}
	balance, err = tx.AdjustBalance(ctx, username, applied)
	if err != nil {
		return decimal.Zero, decimal.Zero, &BalanceApplicationError{Username: username, Delta: applied, Err: err}
	}
	logger.LogAudit("balance_applied", map[string]interface{}{
		"username": username,
		"delta":    applied.StringFixed(Places),
		"balance":  balance.StringFixed(Places),
	})
	return applied, balance, nil
}
