package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ClubLedger/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// rowScanner is satisfied by *sql.Row, pgx.Row and their Rows counterparts.
type rowScanner interface {
	Scan(dest ...any) error
}

type rowIter interface {
	rowScanner
	Next() bool
	Err() error
	Close()
}

// execer hides whether statements run on database/sql or pgx.
type execer interface {
	exec(ctx context.Context, q string, args ...any) (int64, error)
	queryRow(ctx context.Context, q string, args ...any) rowScanner
	query(ctx context.Context, q string, args ...any) (rowIter, error)
}

type dialect struct {
	name       string
	positional bool   // $1, $2 instead of ?
	forUpdate  string // row lock suffix for balance reads
}

var (
	postgresDialect = dialect{name: DriverPostgres, positional: true, forUpdate: " FOR UPDATE"}
	sqliteDialect   = dialect{name: DriverSQLite}
)

func (d dialect) rebind(q string) string {
	if !d.positional {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// queries implements Tx over any execer. Stores use it with their pool for reads and with
// a live transaction inside WithTx.
type queries struct {
	x execer
	d dialect
}

func (q *queries) exec(ctx context.Context, query string, args ...any) (int64, error) {
	return q.x.exec(ctx, q.d.rebind(query), args...)
}

func (q *queries) queryRow(ctx context.Context, query string, args ...any) rowScanner {
	return q.x.queryRow(ctx, q.d.rebind(query), args...)
}

func (q *queries) query(ctx context.Context, query string, args ...any) (rowIter, error) {
	return q.x.query(ctx, q.d.rebind(query), args...)
}

// notFound maps both drivers' no-rows errors to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

const playerColumns = `id, username, role, agent_id, agent_name, balance, created_at_ms, updated_at_ms`

func scanPlayer(s rowScanner) (models.Player, error) {
	var (
		p                models.Player
		role             string
		created, updated int64
	)
	if err := s.Scan(&p.ID, &p.Username, &role, &p.AgentID, &p.AgentName, &p.Balance, &created, &updated); err != nil {
		return models.Player{}, err
	}
	r, err := models.ParseRole(role)
	if err != nil {
		return models.Player{}, fmt.Errorf("player %s: %w", p.ID, err)
	}
	p.Role = r
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return p, nil
}

func (q *queries) lookupPlayer(ctx context.Context, where string, arg any) (models.Player, error) {
	p, err := scanPlayer(q.queryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE `+where, arg))
	if err != nil {
		return models.Player{}, notFound(err)
	}
	return p, nil
}

func (q *queries) LookupPlayer(ctx context.Context, username string) (models.Player, error) {
	return q.lookupPlayer(ctx, `username = ?`, username)
}

func (q *queries) LookupPlayerByID(ctx context.Context, id string) (models.Player, error) {
	return q.lookupPlayer(ctx, `id = ?`, id)
}

func (q *queries) ListPlayers(ctx context.Context) ([]models.Player, error) {
	rows, err := q.query(ctx, `SELECT `+playerColumns+` FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()
	var out []models.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *queries) InsertPlayer(ctx context.Context, p models.Player) error {
	now := nowMillis()
	_, err := q.exec(ctx, `
INSERT INTO players (id, username, role, agent_id, agent_name, balance, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Username, string(p.Role), p.AgentID, p.AgentName, p.Balance, now, now)
	if err != nil {
		return fmt.Errorf("insert player %s: %w", p.ID, err)
	}
	return nil
}

func (q *queries) UpdatePlayer(ctx context.Context, p models.Player) error {
	n, err := q.exec(ctx, `
UPDATE players SET username = ?, role = ?, agent_id = ?, agent_name = ?, updated_at_ms = ?
WHERE id = ?`,
		p.Username, string(p.Role), p.AgentID, p.AgentName, nowMillis(), p.ID)
	if err != nil {
		return fmt.Errorf("update player %s: %w", p.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update player %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

func (q *queries) AdjustBalance(ctx context.Context, username string, delta decimal.Decimal) (decimal.Decimal, error) {
	var current decimal.Decimal
	err := q.queryRow(ctx, `SELECT balance FROM players WHERE username = ?`+q.d.forUpdate, username).Scan(&current)
	if err != nil {
		return decimal.Zero, notFound(err)
	}
	next := current.Add(delta)
	if _, err := q.exec(ctx, `UPDATE players SET balance = ?, updated_at_ms = ? WHERE username = ?`,
		next, nowMillis(), username); err != nil {
		return decimal.Zero, fmt.Errorf("update balance of %s: %w", username, err)
	}
	return next, nil
}

const transactionColumns = `content_id, username, transaction_type, total_buyin, total_cashout, rake,
bad_beat_contribution, bad_beat_cashout, hands, session_date, details, created_by, created_at_ms, updated_at_ms`

func scanTransaction(s rowScanner) (models.Transaction, error) {
	var (
		t                models.Transaction
		typ              string
		date             *string
		created, updated int64
	)
	err := s.Scan(&t.ContentID, &t.Username, &typ, &t.TotalBuyin, &t.TotalCashout, &t.Rake,
		&t.BadBeatContribution, &t.BadBeatCashout, &t.Hands, &date, &t.Details, &t.CreatedBy, &created, &updated)
	if err != nil {
		return models.Transaction{}, err
	}
	if t.Type, err = models.ParseTransactionType(typ); err != nil {
		return models.Transaction{}, fmt.Errorf("transaction %s/%s: %w", t.ContentID, t.Username, err)
	}
	if date != nil && *date != "" {
		d, err := time.Parse(dateLayout, *date)
		if err != nil {
			return models.Transaction{}, fmt.Errorf("session date %q: %w", *date, err)
		}
		t.SessionDate = &d
	}
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}

func (q *queries) LookupTransaction(ctx context.Context, key models.TxKey) (models.Transaction, error) {
	t, err := scanTransaction(q.queryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE content_id = ? AND username = ?`,
		key.ContentID, key.Username))
	if err != nil {
		return models.Transaction{}, notFound(err)
	}
	return t, nil
}

func (q *queries) ListTransactions(ctx context.Context, contentID string) ([]models.Transaction, error) {
	rows, err := q.query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE content_id = ? ORDER BY username`, contentID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *queries) InsertTransaction(ctx context.Context, t models.Transaction) error {
	now := nowMillis()
	_, err := q.exec(ctx, `
INSERT INTO transactions (`+transactionColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ContentID, t.Username, string(t.Type), t.TotalBuyin, t.TotalCashout, t.Rake,
		t.BadBeatContribution, t.BadBeatCashout, t.Hands, dateText(t.SessionDate), t.Details, t.CreatedBy, now, now)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", t.Key(), err)
	}
	return nil
}

func (q *queries) UpdateTransaction(ctx context.Context, t models.Transaction) error {
	n, err := q.exec(ctx, `
UPDATE transactions SET
    transaction_type = ?, total_buyin = ?, total_cashout = ?, rake = ?,
    bad_beat_contribution = ?, bad_beat_cashout = ?, hands = ?, session_date = ?, details = ?,
    updated_at_ms = ?
WHERE content_id = ? AND username = ?`,
		string(t.Type), t.TotalBuyin, t.TotalCashout, t.Rake,
		t.BadBeatContribution, t.BadBeatCashout, t.Hands, dateText(t.SessionDate), t.Details,
		nowMillis(), t.ContentID, t.Username)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", t.Key(), err)
	}
	if n == 0 {
		return fmt.Errorf("update transaction %s: %w", t.Key(), ErrNotFound)
	}
	return nil
}

func (q *queries) RecordImport(ctx context.Context, run models.ImportRun) error {
	_, err := q.exec(ctx, `
INSERT INTO import_runs (run_id, club_id, file_name, digest, families, players, transactions, skipped,
    started_at_ms, finished_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.ClubID, run.FileName, run.Digest, strings.Join(run.Families, ","),
		run.Players, run.Transactions, run.Skipped, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("record import %s: %w", run.RunID, err)
	}
	return nil
}

func (q *queries) ListImports(ctx context.Context, clubID, digest string) ([]models.ImportRun, error) {
	rows, err := q.query(ctx, `
SELECT run_id, club_id, file_name, digest, families, players, transactions, skipped, started_at_ms, finished_at_ms
FROM import_runs WHERE club_id = ? AND digest = ?
ORDER BY finished_at_ms, run_id`, clubID, digest)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()
	var out []models.ImportRun
	for rows.Next() {
		var (
			run               models.ImportRun
			families          string
			started, finished int64
		)
		if err := rows.Scan(&run.RunID, &run.ClubID, &run.FileName, &run.Digest, &families,
			&run.Players, &run.Transactions, &run.Skipped, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		if families != "" {
			run.Families = strings.Split(families, ",")
		}
		run.StartedAt = fromMillis(started)
		run.FinishedAt = fromMillis(finished)
		out = append(out, run)
	}
	return out, rows.Err()
}

func (q *queries) Summary(ctx context.Context, username string) (models.PlayerSummary, error) {
	p, err := q.LookupPlayer(ctx, username)
	if err != nil {
		return models.PlayerSummary{}, err
	}
	rows, err := q.query(ctx, `SELECT rake, hands FROM transactions WHERE username = ?`, username)
	if err != nil {
		return models.PlayerSummary{}, fmt.Errorf("summarize %s: %w", username, err)
	}
	defer rows.Close()
	sum := summaryOf(p)
	for rows.Next() {
		var (
			rake  decimal.Decimal
			hands int64
		)
		if err := rows.Scan(&rake, &hands); err != nil {
			return models.PlayerSummary{}, fmt.Errorf("scan summary row: %w", err)
		}
		sum.LifetimeRake = sum.LifetimeRake.Add(rake)
		sum.TotalHands += hands
	}
	return sum, rows.Err()
}

func summaryOf(p models.Player) models.PlayerSummary {
	return models.PlayerSummary{
		Username:     p.Username,
		Role:         p.Role,
		AgentID:      p.AgentID,
		AgentName:    p.AgentName,
		Balance:      p.Balance,
		LifetimeRake: decimal.Zero,
	}
}

const dateLayout = "2006-01-02"

func dateText(d *time.Time) *string {
	if d == nil {
		return nil
	}
	s := d.Format(dateLayout)
	return &s
}

func nowMillis() int64 { return time.Now().UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
