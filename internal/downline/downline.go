package downline

import (
	"context"
	"fmt"

	"ClubLedger/internal/models"
)

// Directory is the player relation the resolver reads. store.Store and store.Tx satisfy it.
type Directory interface {
	LookupPlayer(ctx context.Context, username string) (models.Player, error)
	ListPlayers(ctx context.Context) ([]models.Player, error)
}

type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// ResolveDownline returns the players actorUsername may view or act upon.
func (r *Resolver) ResolveDownline(ctx context.Context, actorUsername string) ([]models.Player, error) {
	actor, err := r.dir.LookupPlayer(ctx, actorUsername)
	if err != nil {
		return nil, fmt.Errorf("resolve downline of %q: %w", actorUsername, err)
	}
	if actor.Role == models.RolePlayer {
		return nil, nil
	}
	all, err := r.dir.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve downline of %q: %w", actorUsername, err)
	}
	return Visible(actor, all), nil
}

// CanActOn reports whether target is in actorUsername's downline.
func (r *Resolver) CanActOn(ctx context.Context, actorUsername, targetUsername string) (bool, error) {
	visible, err := r.ResolveDownline(ctx, actorUsername)
	if err != nil {
		return false, err
	}
	return contains(visible, targetUsername), nil
}

// Visible filters all down to what actor may see:
// MASTER and MANAGER see everyone but MASTER and MANAGER rows, SUPER_AGENT sees its own agents
// and their players, AGENT sees its own players and PLAYER sees nobody.
func Visible(actor models.Player, all []models.Player) []models.Player {
	var out []models.Player
	switch actor.Role {
	case models.RoleMaster, models.RoleManager:
		for _, p := range all {
			if p.Role.Rank() > models.RoleManager.Rank() {
				out = append(out, p)
			}
		}
	case models.RoleSuperAgent:
		agents := make(map[string]struct{})
		for _, p := range all {
			if p.Role == models.RoleAgent && p.HasAgent(actor.ID) {
				agents[p.ID] = struct{}{}
			}
		}
		for _, p := range all {
			switch p.Role {
			case models.RoleAgent:
				if _, ok := agents[p.ID]; ok {
					out = append(out, p)
				}
			case models.RolePlayer:
				if p.AgentID != nil {
					if _, ok := agents[*p.AgentID]; ok {
						out = append(out, p)
					}
				}
			}
		}
	case models.RoleAgent:
		for _, p := range all {
			if p.Role == models.RolePlayer && p.HasAgent(actor.ID) {
				out = append(out, p)
			}
		}
	}
	return out
}

// CanActOn is the pure form of Resolver.CanActOn over an already loaded player set.
func CanActOn(actor models.Player, targetUsername string, all []models.Player) bool {
	return contains(Visible(actor, all), targetUsername)
}

func contains(players []models.Player, username string) bool {
	for _, p := range players {
		if p.Username == username {
			return true
		}
	}
	return false
}
