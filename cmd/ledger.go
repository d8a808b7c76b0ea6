package main

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"ClubLedger/internal/config"
	"ClubLedger/internal/downline"
	"ClubLedger/internal/ledger"
	"ClubLedger/internal/logger"
	"ClubLedger/internal/reconcile"
	"ClubLedger/internal/store"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ledger tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := storeConfig()

			switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
			case store.DriverSQLite:
				// opening a sqlite store brings its schema up to date
				s, err := store.OpenSQLite(ctx, cfg.SQLitePath)
				if err != nil {
					return err
				}
				lg := logger.L()
				lg.Info().Str("path", cfg.SQLitePath).Msg("schema up to date")
				return s.Close()
			case store.DriverPostgres:
			default:
				return fmt.Errorf("nothing to migrate for store driver %q", cfg.Driver)
			}

			db, err := sql.Open("postgres", cfg.PostgresDSN)
			if err != nil {
				return fmt.Errorf("failed to connect to DB: %w", err)
			}
			defer db.Close()

			if err := store.Migrate(ctx, db, store.DriverPostgres); err != nil {
				return err
			}
			lg := logger.L()
			lg.Info().Str("driver", store.DriverPostgres).Msg("schema up to date")
			return nil
		},
	}
}

func newTransferCmd() *cobra.Command {
	var (
		req     reconcile.TransferRequest
		amount  string
		date    string
		creator string
	)

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move chips from one player to another",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			amt, err := decimal.NewFromString(strings.TrimSpace(amount))
			if err != nil {
				return fmt.Errorf("invalid --amount: %w", err)
			}
			req.Amount = amt
			req.Date = time.Now().UTC()
			if date != "" {
				if req.Date, err = time.Parse(time.DateOnly, date); err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
			}
			req.CreatedBy = creator

			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			rec := reconcile.New(ledger.New(), reconcile.WithActor(config.TransferActor))
			ctx = logger.WithContext(ctx, logger.L())

			var res reconcile.TransferResult
			err = s.WithTx(ctx, func(tx store.Tx) error {
				var err error
				res, err = rec.Transfer(ctx, tx, req)
				return err
			})
			if err != nil {
				return err
			}
			out := map[string]interface{}{
				"content_id": res.ContentID,
				"from":       req.From,
				"to":         req.To,
				"replayed":   !res.Debit.Action.Writes(),
			}
			if res.Debit.Action.Writes() {
				out["from_balance"] = res.Debit.Balance.StringFixed(ledger.Places)
				out["to_balance"] = res.Credit.Balance.StringFixed(ledger.Places)
			}
			return printJSON(cmd, out)
		},
	}

	cmd.Flags().StringVar(&req.From, "from", "", "Sending player (required)")
	cmd.Flags().StringVar(&req.To, "to", "", "Receiving player (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount to move (required)")
	cmd.Flags().StringVar(&date, "date", "", "Session date YYYY-MM-DD (default: today, UTC)")
	cmd.Flags().StringVar(&req.Details, "details", "", "Free-form note stored on both legs")
	cmd.Flags().StringVar(&creator, "by", config.TransferActor, "Recorded creator")

	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newDownlineCmd() *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "downline",
		Short: "List the players an actor may act on",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			players, err := downline.NewResolver(s).ResolveDownline(ctx, actor)
			if err != nil {
				return err
			}
			return printJSON(cmd, players)
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Acting username (required)")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func newSummaryCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show a player's balance, lifetime rake and hands",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			sum, err := s.Summary(ctx, username)
			if err != nil {
				return err
			}
			return printJSON(cmd, sum)
		},
	}

	cmd.Flags().StringVar(&username, "player", "", "Username (required)")
	_ = cmd.MarkFlagRequired("player")
	return cmd
}
