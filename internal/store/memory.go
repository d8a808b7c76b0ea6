package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ClubLedger/internal/models"

	"github.com/shopspring/decimal"
)

type memState struct {
	players map[string]models.Player // by id
	ids     map[string]string        // username -> id
	txs     map[models.TxKey]models.Transaction
	imports []models.ImportRun
}

func newMemState() *memState {
	return &memState{
		players: make(map[string]models.Player),
		ids:     make(map[string]string),
		txs:     make(map[models.TxKey]models.Transaction),
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		players: make(map[string]models.Player, len(s.players)),
		ids:     make(map[string]string, len(s.ids)),
		txs:     make(map[models.TxKey]models.Transaction, len(s.txs)),
		imports: append([]models.ImportRun(nil), s.imports...),
	}
	for k, v := range s.players {
		c.players[k] = v
	}
	for k, v := range s.ids {
		c.ids[k] = v
	}
	for k, v := range s.txs {
		c.txs[k] = v
	}
	return c
}

// Memory is an in-process Store. WithTx runs against a copy of the state and swaps it in on
// success, so a failed transaction leaves no trace. Transactions are fully serialized.
type Memory struct {
	mu sync.Mutex
	st *memState
}

func NewMemory() *Memory {
	return &Memory{st: newMemState()}
}

func (m *Memory) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.st.clone()
	if err := fn(&memTx{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.st = work
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) read() *memTx {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &memTx{st: m.st}
}

func (m *Memory) LookupPlayer(ctx context.Context, username string) (models.Player, error) {
	return m.read().LookupPlayer(ctx, username)
}

func (m *Memory) LookupPlayerByID(ctx context.Context, id string) (models.Player, error) {
	return m.read().LookupPlayerByID(ctx, id)
}

func (m *Memory) ListPlayers(ctx context.Context) ([]models.Player, error) {
	return m.read().ListPlayers(ctx)
}

func (m *Memory) LookupTransaction(ctx context.Context, key models.TxKey) (models.Transaction, error) {
	return m.read().LookupTransaction(ctx, key)
}

func (m *Memory) ListTransactions(ctx context.Context, contentID string) ([]models.Transaction, error) {
	return m.read().ListTransactions(ctx, contentID)
}

func (m *Memory) ListImports(ctx context.Context, clubID, digest string) ([]models.ImportRun, error) {
	return m.read().ListImports(ctx, clubID, digest)
}

func (m *Memory) Summary(ctx context.Context, username string) (models.PlayerSummary, error) {
	return m.read().Summary(ctx, username)
}

// memTx works on a state that is either private to one WithTx call or, for reads, the
// committed state, which is never mutated in place.
type memTx struct {
	st *memState
}

func (t *memTx) LookupPlayer(_ context.Context, username string) (models.Player, error) {
	id, ok := t.st.ids[username]
	if !ok {
		return models.Player{}, ErrNotFound
	}
	return t.st.players[id], nil
}

func (t *memTx) LookupPlayerByID(_ context.Context, id string) (models.Player, error) {
	p, ok := t.st.players[id]
	if !ok {
		return models.Player{}, ErrNotFound
	}
	return p, nil
}

func (t *memTx) ListPlayers(context.Context) ([]models.Player, error) {
	out := make([]models.Player, 0, len(t.st.players))
	for _, p := range t.st.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) InsertPlayer(_ context.Context, p models.Player) error {
	if _, ok := t.st.players[p.ID]; ok {
		return fmt.Errorf("insert player %s: duplicate id", p.ID)
	}
	if _, ok := t.st.ids[p.Username]; ok {
		return fmt.Errorf("insert player %s: duplicate username %q", p.ID, p.Username)
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	t.st.players[p.ID] = p
	t.st.ids[p.Username] = p.ID
	return nil
}

func (t *memTx) UpdatePlayer(_ context.Context, p models.Player) error {
	cur, ok := t.st.players[p.ID]
	if !ok {
		return fmt.Errorf("update player %s: %w", p.ID, ErrNotFound)
	}
	if p.Username != cur.Username {
		if _, taken := t.st.ids[p.Username]; taken {
			return fmt.Errorf("update player %s: duplicate username %q", p.ID, p.Username)
		}
		delete(t.st.ids, cur.Username)
		t.st.ids[p.Username] = p.ID
		t.renameTransactions(cur.Username, p.Username)
	}
	cur.Username = p.Username
	cur.Role = p.Role
	cur.AgentID = p.AgentID
	cur.AgentName = p.AgentName
	cur.UpdatedAt = time.Now().UTC()
	t.st.players[p.ID] = cur
	return nil
}

func (t *memTx) renameTransactions(from, to string) {
	for k, tx := range t.st.txs {
		if k.Username != from {
			continue
		}
		delete(t.st.txs, k)
		tx.Username = to
		t.st.txs[tx.Key()] = tx
	}
}

func (t *memTx) AdjustBalance(_ context.Context, username string, delta decimal.Decimal) (decimal.Decimal, error) {
	id, ok := t.st.ids[username]
	if !ok {
		return decimal.Zero, ErrNotFound
	}
	p := t.st.players[id]
	p.Balance = p.Balance.Add(delta)
	p.UpdatedAt = time.Now().UTC()
	t.st.players[id] = p
	return p.Balance, nil
}

func (t *memTx) LookupTransaction(_ context.Context, key models.TxKey) (models.Transaction, error) {
	tx, ok := t.st.txs[key]
	if !ok {
		return models.Transaction{}, ErrNotFound
	}
	return tx, nil
}

func (t *memTx) ListTransactions(_ context.Context, contentID string) ([]models.Transaction, error) {
	var out []models.Transaction
	for k, tx := range t.st.txs {
		if k.ContentID == contentID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (t *memTx) InsertTransaction(_ context.Context, tx models.Transaction) error {
	if _, ok := t.st.ids[tx.Username]; !ok {
		return fmt.Errorf("insert transaction %s: unknown player %q", tx.Key(), tx.Username)
	}
	if _, ok := t.st.txs[tx.Key()]; ok {
		return fmt.Errorf("insert transaction %s: duplicate key", tx.Key())
	}
	now := time.Now().UTC()
	tx.CreatedAt, tx.UpdatedAt = now, now
	t.st.txs[tx.Key()] = tx
	return nil
}

func (t *memTx) UpdateTransaction(_ context.Context, tx models.Transaction) error {
	cur, ok := t.st.txs[tx.Key()]
	if !ok {
		return fmt.Errorf("update transaction %s: %w", tx.Key(), ErrNotFound)
	}
	tx.CreatedBy = cur.CreatedBy
	tx.CreatedAt = cur.CreatedAt
	tx.UpdatedAt = time.Now().UTC()
	t.st.txs[tx.Key()] = tx
	return nil
}

func (t *memTx) RecordImport(_ context.Context, run models.ImportRun) error {
	t.st.imports = append(t.st.imports, run)
	return nil
}

func (t *memTx) ListImports(_ context.Context, clubID, digest string) ([]models.ImportRun, error) {
	var out []models.ImportRun
	for _, r := range t.st.imports {
		if r.ClubID == clubID && r.Digest == digest {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *memTx) Summary(ctx context.Context, username string) (models.PlayerSummary, error) {
	p, err := t.LookupPlayer(ctx, username)
	if err != nil {
		return models.PlayerSummary{}, err
	}
	sum := summaryOf(p)
	for k, tx := range t.st.txs {
		if k.Username == username {
			sum.LifetimeRake = sum.LifetimeRake.Add(tx.Rake)
			sum.TotalHands += tx.Hands
		}
	}
	return sum, nil
}
