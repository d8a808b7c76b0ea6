package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxRingGame    TransactionType = "RING_GAME"
	TxMTT         TransactionType = "MTT"
	TxSNG         TransactionType = "SNG"
	TxSpinAndGold TransactionType = "SPIN_AND_GOLD"
	TxTransfer    TransactionType = "TRANSFER"
	TxLeaderboard TransactionType = "LEADERBOARD"
)

func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case TxRingGame, TxMTT, TxSNG, TxSpinAndGold, TxTransfer, TxLeaderboard:
		return t, nil
	}
	return "", fmt.Errorf("unrecognized transaction type %q", s)
}

// Transaction is one ledger line. (ContentID, Username) is its identity; ContentID is derived
// from report content so re-imports find the same row.
type Transaction struct {
	ContentID           string          `json:"id"`
	Username            string          `json:"username"`
	Type                TransactionType `json:"transaction_type"`
	TotalBuyin          decimal.Decimal `json:"total_buyin"`
	TotalCashout        decimal.Decimal `json:"total_cashout"`
	Rake                decimal.Decimal `json:"rake"`
	BadBeatContribution decimal.Decimal `json:"bad_beat_contribution"`
	BadBeatCashout      decimal.Decimal `json:"bad_beat_cashout"`
	Hands               int64           `json:"hands"`
	SessionDate         *time.Time      `json:"date,omitempty"`
	Details             string          `json:"details"`
	CreatedBy           string          `json:"created_by"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Profit is cashout minus buy-in.
func (t Transaction) Profit() decimal.Decimal {
	return t.TotalCashout.Sub(t.TotalBuyin)
}

// Key is the reconciliation key.
func (t Transaction) Key() TxKey {
	return TxKey{ContentID: t.ContentID, Username: t.Username}
}

type TxKey struct {
	ContentID string
	Username  string
}

func (k TxKey) String() string {
	return k.ContentID + "/" + k.Username
}
