package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ClubLedger/internal/models"

	"github.com/shopspring/decimal"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	lite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { lite.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": lite,
	}
}

func seedPlayers(t *testing.T, s Store, players ...models.Player) {
	t.Helper()
	err := s.WithTx(context.Background(), func(tx Tx) error {
		for _, p := range players {
			if err := tx.InsertPlayer(context.Background(), p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed players: %v", err)
	}
}

func TestStorePlayers(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			seedPlayers(t, s,
				models.Player{ID: "AG1", Username: "ann", Role: models.RoleAgent},
				models.Player{ID: "P1", Username: "pete", Role: models.RolePlayer, AgentID: models.StrPtr("AG1"), AgentName: models.StrPtr("ann")},
			)

			p, err := s.LookupPlayer(ctx, "pete")
			if err != nil {
				t.Fatalf("lookup: %v", err)
			}
			if p.ID != "P1" || !p.HasAgent("AG1") || !p.Balance.IsZero() {
				t.Fatalf("unexpected player %+v", p)
			}
			if _, err := s.LookupPlayer(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			err = s.WithTx(ctx, func(tx Tx) error {
				p.Username = "peter"
				p.AgentID, p.AgentName = nil, nil
				return tx.UpdatePlayer(ctx, p)
			})
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			got, err := s.LookupPlayerByID(ctx, "P1")
			if err != nil {
				t.Fatal(err)
			}
			if got.Username != "peter" || got.AgentID != nil {
				t.Fatalf("update not applied: %+v", got)
			}

			all, err := s.ListPlayers(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 2 || all[0].ID != "AG1" {
				t.Fatalf("unexpected list %+v", all)
			}
		})
	}
}

func TestStoreTransactionsAndBalance(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			seedPlayers(t, s, models.Player{ID: "P1", Username: "pete", Role: models.RolePlayer})

			in := models.Transaction{
				ContentID:    "abc",
				Username:     "pete",
				Type:         models.TxSNG,
				TotalBuyin:   decimal.RequireFromString("11"),
				TotalCashout: decimal.RequireFromString("30.25"),
				Rake:         decimal.RequireFromString("1"),
				Hands:        25,
				SessionDate:  &date,
				Details:      "SNG 10",
				CreatedBy:    "import",
			}
			err := s.WithTx(ctx, func(tx Tx) error {
				if err := tx.InsertTransaction(ctx, in); err != nil {
					return err
				}
				_, err := tx.AdjustBalance(ctx, "pete", in.Profit())
				return err
			})
			if err != nil {
				t.Fatalf("insert: %v", err)
			}

			got, err := s.LookupTransaction(ctx, in.Key())
			if err != nil {
				t.Fatalf("lookup: %v", err)
			}
			if !got.TotalCashout.Equal(in.TotalCashout) || got.Hands != 25 || got.Type != models.TxSNG {
				t.Fatalf("unexpected transaction %+v", got)
			}
			if got.SessionDate == nil || !got.SessionDate.Equal(date) {
				t.Fatalf("session date lost: %v", got.SessionDate)
			}

			sum, err := s.Summary(ctx, "pete")
			if err != nil {
				t.Fatal(err)
			}
			if !sum.Balance.Equal(decimal.RequireFromString("19.25")) {
				t.Fatalf("balance: %s", sum.Balance)
			}
			if !sum.LifetimeRake.Equal(decimal.NewFromInt(1)) || sum.TotalHands != 25 {
				t.Fatalf("summary: %+v", sum)
			}

			legs, err := s.ListTransactions(ctx, "abc")
			if err != nil || len(legs) != 1 {
				t.Fatalf("list transactions: %v %d", err, len(legs))
			}
		})
	}
}

func TestStoreRollback(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			seedPlayers(t, s, models.Player{ID: "P1", Username: "pete", Role: models.RolePlayer})

			err := s.WithTx(ctx, func(tx Tx) error {
				if _, err := tx.AdjustBalance(ctx, "pete", decimal.NewFromInt(100)); err != nil {
					return err
				}
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("expected boom, got %v", err)
			}
			p, err := s.LookupPlayer(ctx, "pete")
			if err != nil {
				t.Fatal(err)
			}
			if !p.Balance.IsZero() {
				t.Fatalf("rolled back balance leaked: %s", p.Balance)
			}

			err = s.WithTx(ctx, func(tx Tx) error {
				_, err := tx.AdjustBalance(ctx, "ghost", decimal.NewFromInt(1))
				return err
			})
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound for unknown player, got %v", err)
			}
		})
	}
}

func TestStoreImports(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if runs, err := s.ListImports(ctx, "910171", "d1"); err != nil || len(runs) != 0 {
				t.Fatalf("expected no runs, got %v %v", runs, err)
			}
			run := models.ImportRun{
				RunID:      "run-1",
				ClubID:     "910171",
				FileName:   "910171_20240507.xlsx",
				Digest:     "d1",
				Families:   []string{"club_overview", "sng"},
				Players:    3,
				StartedAt:  time.Now(),
				FinishedAt: time.Now(),
			}
			if err := s.WithTx(ctx, func(tx Tx) error { return tx.RecordImport(ctx, run) }); err != nil {
				t.Fatal(err)
			}
			second := run
			second.RunID = "run-2"
			second.Families = []string{"ring_game"}
			second.FinishedAt = run.FinishedAt.Add(time.Second)
			other := run
			other.RunID = "run-3"
			other.ClubID = "555"
			for _, r := range []models.ImportRun{second, other} {
				r := r
				if err := s.WithTx(ctx, func(tx Tx) error { return tx.RecordImport(ctx, r) }); err != nil {
					t.Fatal(err)
				}
			}

			runs, err := s.ListImports(ctx, "910171", "d1")
			if err != nil {
				t.Fatal(err)
			}
			if len(runs) != 2 || runs[0].RunID != "run-1" || runs[1].RunID != "run-2" {
				t.Fatalf("unexpected runs %+v", runs)
			}
			if len(runs[0].Families) != 2 || runs[0].Players != 3 {
				t.Fatalf("unexpected first run %+v", runs[0])
			}
		})
	}
}

func TestRebind(t *testing.T) {
	got := postgresDialect.rebind(`SELECT a FROM t WHERE x = ? AND y = ?`)
	if got != `SELECT a FROM t WHERE x = $1 AND y = $2` {
		t.Fatalf("unexpected rebind %q", got)
	}
	if sqliteDialect.rebind(`x = ?`) != `x = ?` {
		t.Fatalf("sqlite should keep ? placeholders")
	}
}
