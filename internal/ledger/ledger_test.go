package ledger

import (
	"context"
	"errors"
	"testing"

	"ClubLedger/internal/models"
	"ClubLedger/internal/store"

	"github.com/shopspring/decimal"
)

func TestApplyDeltaRounds(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	l := New()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertPlayer(ctx, models.Player{ID: "P1", Username: "pete", Role: models.RolePlayer}); err != nil {
			return err
		}
		applied, balance, err := l.ApplyDelta(ctx, tx, "pete", decimal.RequireFromString("10.005"))
		if err != nil {
			return err
		}
		if !applied.Equal(decimal.RequireFromString("10.01")) || !balance.Equal(applied) {
			t.Fatalf("applied %s balance %s", applied, balance)
		}
		_, balance, err = l.ApplyDelta(ctx, tx, "pete", decimal.RequireFromString("-0.001"))
		if err != nil {
			return err
		}
		if !balance.Equal(decimal.RequireFromString("10.01")) {
			t.Fatalf("sub-cent delta should not move balance, got %s", balance)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestApplyDeltaUnknownPlayer(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	err := s.WithTx(ctx, func(tx store.Tx) error {
		_, _, err := New().ApplyDelta(ctx, tx, "ghost", decimal.NewFromInt(5))
		return err
	})
	var bae *BalanceApplicationError
	if !errors.As(err, &bae) {
		t.Fatalf("expected BalanceApplicationError, got %v", err)
	}
	if bae.Username != "ghost" || !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unexpected error %v", err)
	}
}
