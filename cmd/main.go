package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ClubLedger/internal/appmanager"
	"ClubLedger/internal/config"
	"ClubLedger/internal/logger"
	"ClubLedger/internal/store"
)

func main() {
	// Load .env for local dev
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "clubledger",
		Short:         "Import poker club reports into the player ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newImportCmd(),
		newMigrateCmd(),
		newTransferCmd(),
		newDownlineCmd(),
		newSummaryCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		lg := logger.L()
		lg.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// storeConfig reads the store selection from the environment.
func storeConfig() store.Config {
	return store.Config{
		Driver:      config.EnvOr("STORE_DRIVER", store.DriverSQLite),
		PostgresDSN: config.PostgresDSN(),
		SQLitePath:  config.EnvOr("SQLITE_PATH", config.DefaultSQLitePath),
	}
}

func openStore(ctx context.Context) (store.Store, error) {
	s, err := store.Open(ctx, storeConfig())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newServeCmd() *cobra.Command {
	var servicesFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduled importer until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			appmanager.SetStore(s)

			manager := appmanager.NewAppManager()

			servicesCfg, err := appmanager.LoadServiceSequence(servicesFile)
			if err != nil {
				return fmt.Errorf("failed to load service sequence: %w", err)
			}
			if err := manager.AutoRegisterServices(servicesCfg); err != nil {
				return err
			}
			if err := manager.StartAll(); err != nil {
				return fmt.Errorf("failed to start: %w", err)
			}

			<-ctx.Done()

			if err := manager.StopAll(); err != nil {
				return fmt.Errorf("failed to stop: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&servicesFile, "services", config.EnvOr("SERVICES_FILE", config.DefaultServicesFile), "Service sequence YAML")
	return cmd
}
