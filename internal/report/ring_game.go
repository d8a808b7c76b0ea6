package report

import "ClubLedger/internal/models"

const (
	rgMemberID = iota
	rgMemberName
	rgBuyin
	rgCashout
	rgHands
	rgInsurance
	rgEVCashout
	rgSquidGame
	rgBadBeatFee
	rgBadBeatCashout
	rgFee
	rgTotal
)

var RingGameDetail = register(&Schema{
	Family:    FamilyRingGame,
	SheetName: "Ring Game Detail",
	Columns: []string{"MemberID", "MemberName", "Buyin", "Cashout", "Hands", "Insurance", "EVCashout",
		"SquidGame", "BadBeatFee", "BadBeatCashout", "Fee", "Total"},
	MetadataRows:  3,
	MetadataTerms: []MetadataTerm{TermTableName},
	HeaderRows:    2,
	MultiTable:    true,
	transactions:  projectRingGame,
})

func projectRingGame(t *SubTable, r Row) (models.Transaction, error) {
	sc := scan(t, r)
	name := sc.str(rgMemberName)
	if name == "" {
		return models.Transaction{}, rowSkip{reason: skipMissingMember}
	}
	tx := newTransaction(t, models.TxRingGame, name)
	tx.TotalBuyin = sc.dec(rgBuyin)
	tx.TotalCashout = sc.dec(rgCashout)
	tx.Rake = sc.dec(rgFee)
	tx.BadBeatContribution = sc.dec(rgBadBeatFee)
	tx.BadBeatCashout = sc.dec(rgBadBeatCashout)
	tx.Hands = sc.int(rgHands)
	return tx, sc.err
}
