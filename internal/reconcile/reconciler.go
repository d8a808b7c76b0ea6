package reconcile

import (
	"context"
	"errors"
	"fmt"

	"ClubLedger/internal/config"
	"ClubLedger/internal/ledger"
	"ClubLedger/internal/logger"
	"ClubLedger/internal/models"
	"ClubLedger/internal/store"

	"github.com/shopspring/decimal"
)

var ErrUnrecognizedType = errors.New("unrecognized transaction type")

// Outcome is the observable result of reconciling one record. Delta is the amount actually
// applied to the owner's balance.
type Outcome struct {
	Key     models.TxKey
	Type    models.TransactionType
	Action  Action
	Delta   decimal.Decimal
	Balance decimal.Decimal
}

// Report tallies a batch. Skipped counts records with an unrecognized type.
type Report struct {
	Created     int
	Merged      int
	Overwritten int
	Stale       int
	Replayed    int
	Skipped     int
	NetDelta    decimal.Decimal
	Outcomes    []Outcome
}

func (r *Report) add(o Outcome) {
	switch o.Action {
	case ActionCreate:
		r.Created++
	case ActionMerge:
		r.Merged++
	case ActionOverwrite:
		r.Overwritten++
	case ActionSkipStale:
		r.Stale++
	case ActionSkipReplay:
		r.Replayed++
	}
	r.NetDelta = r.NetDelta.Add(o.Delta)
	r.Outcomes = append(r.Outcomes, o)
}

// Reconciler applies incoming transactions to the ledger according to each type's Policy.
// All writes go through the store transaction handed in by the caller.
type Reconciler struct {
	ledger   *ledger.Ledger
	policies map[models.TransactionType]Policy
	actor    string
}

type Option func(*Reconciler)

// WithPolicy overrides the policy of one transaction type.
func WithPolicy(t models.TransactionType, p Policy) Option {
	return func(r *Reconciler) { r.policies[t] = p }
}

// WithActor sets CreatedBy on records that arrive without one.
func WithActor(actor string) Option {
	return func(r *Reconciler) { r.actor = actor }
}

func New(l *ledger.Ledger, opts ...Option) *Reconciler {
	r := &Reconciler{ledger: l, policies: DefaultPolicies(), actor: config.ImportActor}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reconcile decides and applies one record: the transaction write and its balance delta
// land in tx together or, on error, not at all once the caller rolls back.
func (r *Reconciler) Reconcile(ctx context.Context, tx store.Tx, in models.Transaction) (Outcome, error) {
	out := Outcome{Key: in.Key(), Type: in.Type}
	policy, err := policyFor(r.policies, in.Type)
	if err != nil {
		return out, err
	}
	if in.ContentID == "" || in.Username == "" {
		return out, fmt.Errorf("reconcile %s: missing content id or username", in.Key())
	}

	var existing *models.Transaction
	cur, err := tx.LookupTransaction(ctx, in.Key())
	switch {
	case err == nil:
		existing = &cur
	case errors.Is(err, store.ErrNotFound):
	default:
		return out, fmt.Errorf("reconcile %s: %w", in.Key(), err)
	}

	d := policy.Decide(existing, in)
	out.Action = d.Action

	var delta decimal.Decimal
	switch d.Action {
	case ActionCreate:
		if _, err := tx.LookupPlayer(ctx, in.Username); err != nil {
			return out, &ledger.BalanceApplicationError{Username: in.Username, Delta: ledger.Round(in.Profit()), Err: err}
		}
		if d.Result.CreatedBy == "" {
			d.Result.CreatedBy = r.actor
		}
		if err := tx.InsertTransaction(ctx, d.Result); err != nil {
			return out, err
		}
		delta = d.Result.Profit()
	case ActionMerge, ActionOverwrite:
		if err := tx.UpdateTransaction(ctx, d.Result); err != nil {
			return out, err
		}
		delta = d.Result.Profit().Sub(existing.Profit())
	default:
		out.Delta = decimal.Zero
		r.audit(out, in)
		return out, nil
	}

	applied, balance, err := r.ledger.ApplyDelta(ctx, tx, in.Username, delta)
	if err != nil {
		return out, err
	}
	out.Delta, out.Balance = applied, balance
	r.audit(out, in)
	return out, nil
}

// ReconcileAll reconciles records in order. Records of unrecognized type are counted and
// skipped; any other failure stops the batch and the caller must roll back tx.
func (r *Reconciler) ReconcileAll(ctx context.Context, tx store.Tx, txs []models.Transaction) (Report, error) {
	rep := Report{NetDelta: decimal.Zero}
	for _, in := range txs {
		out, err := r.Reconcile(ctx, tx, in)
		if errors.Is(err, ErrUnrecognizedType) {
			rep.Skipped++
			logger.LogAudit("transaction_skipped", map[string]interface{}{
				"key":    in.Key().String(),
				"type":   string(in.Type),
				"reason": err.Error(),
			})
			continue
		}
		if err != nil {
			return rep, err
		}
		rep.add(out)
	}
	return rep, nil
}

func (r *Reconciler) audit(o Outcome, in models.Transaction) {
	logger.LogAudit("transaction_"+string(o.Action), map[string]interface{}{
		"content_id": o.Key.ContentID,
		"username":   o.Key.Username,
		"type":       string(o.Type),
		"hands":      in.Hands,
		"delta":      o.Delta.StringFixed(ledger.Places),
	})
}
