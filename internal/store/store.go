package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ClubLedger/internal/models"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

// Reader is the read side shared by a Store and its transactions.
type Reader interface {
	LookupPlayer(ctx context.Context, username string) (models.Player, error)
	LookupPlayerByID(ctx context.Context, id string) (models.Player, error)
	ListPlayers(ctx context.Context) ([]models.Player, error)
	LookupTransaction(ctx context.Context, key models.TxKey) (models.Transaction, error)
	ListTransactions(ctx context.Context, contentID string) ([]models.Transaction, error)
	// ListImports returns the recorded runs of one file for a club, oldest first.
	ListImports(ctx context.Context, clubID, digest string) ([]models.ImportRun, error)
	Summary(ctx context.Context, username string) (models.PlayerSummary, error)
}

// Tx is one atomic unit of ledger writes. Nothing written through a Tx is visible to
// other readers until WithTx returns nil.
type Tx interface {
	Reader
	InsertPlayer(ctx context.Context, p models.Player) error
	// UpdatePlayer rewrites username, role and agent fields. Balance is left alone.
	UpdatePlayer(ctx context.Context, p models.Player) error
	InsertTransaction(ctx context.Context, t models.Transaction) error
	UpdateTransaction(ctx context.Context, t models.Transaction) error
	// AdjustBalance adds delta to the player's balance under a row lock and returns the new balance.
	AdjustBalance(ctx context.Context, username string, delta decimal.Decimal) (decimal.Decimal, error)
	RecordImport(ctx context.Context, run models.ImportRun) error
}

type Store interface {
	Reader
	// WithTx runs fn in a transaction, committing when fn returns nil and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Driver      string
	PostgresDSN string
	SQLitePath  string
}

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverPostgres:
		s, err := OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverSQLite, "":
		s, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
