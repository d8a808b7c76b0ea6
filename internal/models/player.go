package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Role is a club member's position in the agent hierarchy.
type Role string

const (
	RoleMaster     Role = "MASTER"
	RoleManager    Role = "MANAGER"
	RoleSuperAgent Role = "SUPER_AGENT"
	RoleAgent      Role = "AGENT"
	RolePlayer     Role = "PLAYER"
)

// roleLabels maps the labels printed in club reports to roles.
var roleLabels = map[string]Role{
	"master":      RoleMaster,
	"manager":     RoleManager,
	"super agent": RoleSuperAgent,
	"super_agent": RoleSuperAgent,
	"agent":       RoleAgent,
	"player":      RolePlayer,
}

// ParseRole accepts both report labels ("Super Agent") and stored names ("SUPER_AGENT").
func ParseRole(s string) (Role, error) {
	if r, ok := roleLabels[strings.ToLower(strings.TrimSpace(s))]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unrecognized role %q", s)
}

// Rank orders roles by privilege; MASTER is 0. Unknown roles rank last.
func (r Role) Rank() int {
	switch r {
	case RoleMaster:
		return 0
	case RoleManager:
		return 1
	case RoleSuperAgent:
		return 2
	case RoleAgent:
		return 3
	case RolePlayer:
		return 4
	}
	return 5
}

func (r Role) Valid() bool { return r.Rank() < 5 }

// Player is one club member as known to the ledger.
type Player struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	Role      Role            `json:"role"`
	AgentID   *string         `json:"agent_id,omitempty"`
	AgentName *string         `json:"agent_name,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// HasAgent reports whether p's upstream agent is agentID.
func (p Player) HasAgent(agentID string) bool {
	return p.AgentID != nil && *p.AgentID == agentID
}

// PlayerSummary aggregates a player's balance with lifetime activity.
type PlayerSummary struct {
	Username     string          `json:"username"`
	Role         Role            `json:"role"`
	AgentID      *string         `json:"agent_id,omitempty"`
	AgentName    *string         `json:"agent_name,omitempty"`
	Balance      decimal.Decimal `json:"balance"`
	LifetimeRake decimal.Decimal `json:"total_lifetime_rake"`
	TotalHands   int64           `json:"total_hands_played"`
}

// StrPtr returns nil for an empty string.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StrVal dereferences p, treating nil as "".
func StrVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
