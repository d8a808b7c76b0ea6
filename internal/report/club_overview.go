package report

import "ClubLedger/internal/models"

const (
	coNum = iota
	coSuperAgentID
	coSuperAgentName
	coAgentID
	coAgentName
	coCountry
	coRole
	coMemberID
	coMemberName
)

var ClubOverview = register(&Schema{
	Family:    FamilyClubOverview,
	SheetName: "Club Overview",
	Columns: []string{"Num", "SuperAgentID", "SuperAgentName", "AgentID", "AgentName", "Country", "Role",
		"MemberID", "MemberName"},
	MetadataRows:  3,
	MetadataTerms: []MetadataTerm{TermClubID, TermClubName},
	HeaderRows:    2,
	MultiTable:    false,
	players:       projectMember,
})

// clubMemberRow is one line of the club overview.
type clubMemberRow struct {
	SuperAgentID   string
	SuperAgentName string
	AgentID        string
	AgentName      string
	Role           string
	MemberID       string
	MemberName     string
}

func projectMember(t *SubTable, r Row) (models.Player, error) {
	sc := scan(t, r)
	row := clubMemberRow{
		SuperAgentID:   sc.str(coSuperAgentID),
		SuperAgentName: sc.str(coSuperAgentName),
		AgentID:        sc.str(coAgentID),
		AgentName:      sc.str(coAgentName),
		Role:           sc.str(coRole),
		MemberID:       sc.str(coMemberID),
		MemberName:     sc.str(coMemberName),
	}
	role, err := models.ParseRole(row.Role)
	if err != nil {
		return models.Player{}, rowSkip{reason: skipUnknownRole}
	}
	if row.MemberID == "" || row.MemberName == "" {
		return models.Player{}, rowSkip{reason: skipMissingMember}
	}

	agentID, agentName := row.AgentID, row.AgentName
	// Agents listed as their own upstream point one level further up instead.
	if (role == models.RoleSuperAgent || role == models.RoleAgent) && row.MemberID == agentID {
		agentID, agentName = "", ""
		if role == models.RoleAgent && row.SuperAgentID != row.MemberID {
			agentID, agentName = row.SuperAgentID, row.SuperAgentName
		}
	}

	return models.Player{
		ID:        row.MemberID,
		Username:  row.MemberName,
		Role:      role,
		AgentID:   models.StrPtr(agentID),
		AgentName: models.StrPtr(agentName),
	}, nil
}
