package reconcile

import (
	"context"
	"errors"
	"fmt"

	"ClubLedger/internal/logger"
	"ClubLedger/internal/models"
	"ClubLedger/internal/store"

	"github.com/shopspring/decimal"
)

type SyncAction string

const (
	SyncCreated   SyncAction = "created"
	SyncUpdated   SyncAction = "updated"
	SyncUnchanged SyncAction = "unchanged"
)

// PlayerChange lists the profile fields a refresh rewrote.
type PlayerChange struct {
	ID     string
	Action SyncAction
	Fields []string
}

type SyncReport struct {
	Created   int
	Updated   int
	Unchanged int
	Changes   []PlayerChange
}

// SyncPlayers applies a full club-overview refresh. New members start at a zero balance;
// known members only get the profile fields that differ. Balances are never touched.
// Members may trade usernames within one refresh, and a new member may take a username
// another member gives up.
func SyncPlayers(ctx context.Context, tx store.Tx, players []models.Player) (SyncReport, error) {
	var (
		rep     SyncReport
		inserts []models.Player
		updates []models.Player
		renamed []models.Player
	)
	for _, in := range players {
		if !in.Role.Valid() {
			return rep, fmt.Errorf("sync player %s: invalid role %q", in.ID, in.Role)
		}
		cur, err := tx.LookupPlayerByID(ctx, in.ID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			in.Balance = decimal.Zero
			inserts = append(inserts, in)
			rep.Created++
			rep.Changes = append(rep.Changes, PlayerChange{ID: in.ID, Action: SyncCreated})
		case err != nil:
			return rep, fmt.Errorf("sync player %s: %w", in.ID, err)
		default:
			fields := diffPlayer(cur, in)
			if len(fields) == 0 {
				rep.Unchanged++
				rep.Changes = append(rep.Changes, PlayerChange{ID: in.ID, Action: SyncUnchanged})
				continue
			}
			if cur.Username != in.Username {
				renamed = append(renamed, cur)
			}
			updates = append(updates, in)
			rep.Updated++
			rep.Changes = append(rep.Changes, PlayerChange{ID: in.ID, Action: SyncUpdated, Fields: fields})
		}
	}

	// usernames are unique at every step, so renamed members release their old name first
	for _, cur := range renamed {
		cur.Username = placeholderUsername(cur.ID)
		if err := tx.UpdatePlayer(ctx, cur); err != nil {
			return rep, err
		}
	}
	for _, in := range updates {
		if err := tx.UpdatePlayer(ctx, in); err != nil {
			return rep, err
		}
		logger.LogAudit("player_updated", map[string]interface{}{
			"id": in.ID, "username": in.Username, "fields": changedFields(rep, in.ID),
		})
	}
	for _, in := range inserts {
		if err := tx.InsertPlayer(ctx, in); err != nil {
			return rep, err
		}
		logger.LogAudit("player_created", map[string]interface{}{
			"id": in.ID, "username": in.Username, "role": string(in.Role),
		})
	}
	return rep, nil
}

func placeholderUsername(id string) string { return "~renaming~" + id }

func changedFields(rep SyncReport, id string) []string {
	for _, c := range rep.Changes {
		if c.ID == id {
			return c.Fields
		}
	}
	return nil
}

func diffPlayer(cur, in models.Player) []string {
	var fields []string
	if cur.Username != in.Username {
		fields = append(fields, "username")
	}
	if cur.Role != in.Role {
		fields = append(fields, "role")
	}
	if models.StrVal(cur.AgentID) != models.StrVal(in.AgentID) {
		fields = append(fields, "agent_id")
	}
	if models.StrVal(cur.AgentName) != models.StrVal(in.AgentName) {
		fields = append(fields, "agent_name")
	}
	return fields
}
