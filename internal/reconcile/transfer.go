package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ClubLedger/internal/checksum"
	"ClubLedger/internal/config"
	"ClubLedger/internal/ledger"
	"ClubLedger/internal/models"
	"ClubLedger/internal/store"

	"github.com/shopspring/decimal"
)

var ErrInvalidTransfer = errors.New("invalid transfer")

// TransferRequest moves Amount from one player's balance to another's.
type TransferRequest struct {
	From      string
	To        string
	Amount    decimal.Decimal
	Date      time.Time
	Details   string
	CreatedBy string
}

// TransferResult holds the shared content id and the debit and credit outcomes, in that order.
type TransferResult struct {
	ContentID string
	Debit     Outcome
	Credit    Outcome
}

func (req TransferRequest) validate() error {
	if req.From == "" || req.To == "" {
		return fmt.Errorf("%w: both players are required", ErrInvalidTransfer)
	}
	if req.From == req.To {
		return fmt.Errorf("%w: cannot transfer to self", ErrInvalidTransfer)
	}
	if !ledger.Round(req.Amount).IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTransfer)
	}
	return nil
}

// Legs builds the two records of a transfer. Both carry the same content id, derived from
// (from, to, amount, date), so replaying the request finds them again.
func (req TransferRequest) Legs() (debit, credit models.Transaction) {
	amount := ledger.Round(req.Amount)
	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	id := checksum.TransferID(req.From, req.To, amount, day)
	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = config.TransferActor
	}
	base := models.Transaction{
		ContentID:   id,
		Type:        models.TxTransfer,
		SessionDate: &day,
		Details:     req.Details,
		CreatedBy:   createdBy,
	}
	debit, credit = base, base
	debit.Username = req.From
	debit.TotalBuyin = amount
	credit.Username = req.To
	credit.TotalCashout = amount
	return debit, credit
}

// Transfer validates req and writes both legs through tx. A replayed transfer is a no-op.
func (r *Reconciler) Transfer(ctx context.Context, tx store.Tx, req TransferRequest) (TransferResult, error) {
	if err := req.validate(); err != nil {
		return TransferResult{}, err
	}
	for _, u := range []string{req.From, req.To} {
		if _, err := tx.LookupPlayer(ctx, u); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return TransferResult{}, fmt.Errorf("%w: player %q not found", ErrInvalidTransfer, u)
			}
			return TransferResult{}, err
		}
	}

	debit, credit := req.Legs()
	res := TransferResult{ContentID: debit.ContentID}
	var err error
	if res.Debit, err = r.Reconcile(ctx, tx, debit); err != nil {
		return res, fmt.Errorf("transfer debit: %w", err)
	}
	if res.Credit, err = r.Reconcile(ctx, tx, credit); err != nil {
		return res, fmt.Errorf("transfer credit: %w", err)
	}
	return res, nil
}
