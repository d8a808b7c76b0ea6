package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// schemaStatements uses {money} and {int} for the dialect's decimal and integer column types.
var schemaStatements = []string{
	`
CREATE TABLE IF NOT EXISTS players (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    role TEXT NOT NULL,
    agent_id TEXT,
    agent_name TEXT,
    balance {money} NOT NULL DEFAULT '0',
    created_at_ms {int} NOT NULL,
    updated_at_ms {int} NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_players_agent ON players(agent_id)`,
	`
CREATE TABLE IF NOT EXISTS transactions (
    content_id TEXT NOT NULL,
    username TEXT NOT NULL REFERENCES players(username) ON UPDATE CASCADE,
    transaction_type TEXT NOT NULL,
    total_buyin {money} NOT NULL DEFAULT '0',
    total_cashout {money} NOT NULL DEFAULT '0',
    rake {money} NOT NULL DEFAULT '0',
    bad_beat_contribution {money} NOT NULL DEFAULT '0',
    bad_beat_cashout {money} NOT NULL DEFAULT '0',
    hands {int} NOT NULL DEFAULT 0,
    session_date TEXT,
    details TEXT NOT NULL DEFAULT '',
    created_by TEXT NOT NULL DEFAULT '',
    created_at_ms {int} NOT NULL,
    updated_at_ms {int} NOT NULL,
    PRIMARY KEY (content_id, username)
)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_username ON transactions(username)`,
	`
CREATE TABLE IF NOT EXISTS import_runs (
    run_id TEXT PRIMARY KEY,
    club_id TEXT NOT NULL,
    file_name TEXT NOT NULL,
    digest TEXT NOT NULL,
    families TEXT NOT NULL DEFAULT '',
    players {int} NOT NULL DEFAULT 0,
    transactions {int} NOT NULL DEFAULT 0,
    skipped {int} NOT NULL DEFAULT 0,
    started_at_ms {int} NOT NULL,
    finished_at_ms {int} NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_import_runs_digest ON import_runs(club_id, digest)`,
}

// Migrate creates the ledger tables if they do not exist. dialect is DriverPostgres or DriverSQLite.
func Migrate(ctx context.Context, db *sql.DB, dialect string) error {
	var money, integer string
	switch dialect {
	case DriverPostgres:
		money, integer = "NUMERIC", "BIGINT"
	case DriverSQLite:
		money, integer = "TEXT", "INTEGER"
	default:
		return fmt.Errorf("migrate: unsupported dialect %q", dialect)
	}
	r := strings.NewReplacer("{money}", money, "{int}", integer)
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, r.Replace(stmt)); err != nil {
			return fmt.Errorf("migrate %s: %w", dialect, err)
		}
	}
	return nil
}
