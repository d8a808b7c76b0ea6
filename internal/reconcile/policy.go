package reconcile

import (
	"fmt"

	"ClubLedger/internal/models"
)

type Action string

const (
	ActionCreate    Action = "create"
	ActionMerge     Action = "merge"
	ActionOverwrite Action = "overwrite"
	// ActionSkipStale: the incoming snapshot is not ahead of the stored one.
	ActionSkipStale Action = "skip_stale"
	// ActionSkipReplay: a create-only record that already exists.
	ActionSkipReplay Action = "skip_replay"
)

// Writes reports whether the action changes the stored transaction.
func (a Action) Writes() bool {
	return a == ActionCreate || a == ActionMerge || a == ActionOverwrite
}

// Decision is what a Policy wants done with an incoming record. Result is the record to store
// for writing actions.
type Decision struct {
	Action Action
	Result models.Transaction
}

// Policy decides how an incoming record meets the stored one. existing is nil when the key
// has never been seen.
type Policy interface {
	Decide(existing *models.Transaction, incoming models.Transaction) Decision
}

// MergePolicy accumulates every numeric field of the incoming row into the stored one.
// Rows are taken to report only the activity since the previous export.
type MergePolicy struct{}

func (MergePolicy) Decide(existing *models.Transaction, incoming models.Transaction) Decision {
	if existing == nil {
		return Decision{Action: ActionCreate, Result: incoming}
	}
	merged := *existing
	merged.TotalBuyin = merged.TotalBuyin.Add(incoming.TotalBuyin)
	merged.TotalCashout = merged.TotalCashout.Add(incoming.TotalCashout)
	merged.Rake = merged.Rake.Add(incoming.Rake)
	merged.BadBeatContribution = merged.BadBeatContribution.Add(incoming.BadBeatContribution)
	merged.BadBeatCashout = merged.BadBeatCashout.Add(incoming.BadBeatCashout)
	merged.Hands += incoming.Hands
	if merged.SessionDate == nil {
		merged.SessionDate = incoming.SessionDate
	}
	return Decision{Action: ActionMerge, Result: merged}
}

// OverwritePolicy replaces the stored record only when the incoming one has strictly more hands.
type OverwritePolicy struct{}

func (OverwritePolicy) Decide(existing *models.Transaction, incoming models.Transaction) Decision {
	if existing == nil {
		return Decision{Action: ActionCreate, Result: incoming}
	}
	if incoming.Hands <= existing.Hands {
		return Decision{Action: ActionSkipStale, Result: *existing}
	}
	next := incoming
	next.CreatedBy = existing.CreatedBy
	next.CreatedAt = existing.CreatedAt
	return Decision{Action: ActionOverwrite, Result: next}
}

// CreateOnlyPolicy inserts once and ignores every later sighting of the key.
type CreateOnlyPolicy struct{}

func (CreateOnlyPolicy) Decide(existing *models.Transaction, incoming models.Transaction) Decision {
	if existing == nil {
		return Decision{Action: ActionCreate, Result: incoming}
	}
	return Decision{Action: ActionSkipReplay, Result: *existing}
}

// DefaultPolicies maps every transaction type to its policy.
func DefaultPolicies() map[models.TransactionType]Policy {
	return map[models.TransactionType]Policy{
		models.TxRingGame:    MergePolicy{},
		models.TxMTT:         OverwritePolicy{},
		models.TxSNG:         OverwritePolicy{},
		models.TxSpinAndGold: OverwritePolicy{},
		models.TxTransfer:    CreateOnlyPolicy{},
		models.TxLeaderboard: CreateOnlyPolicy{},
	}
}

func policyFor(policies map[models.TransactionType]Policy, t models.TransactionType) (Policy, error) {
	p, ok := policies[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedType, t)
	}
	return p, nil
}
