package report

import "ClubLedger/internal/models"

const (
	sgMemberID = iota
	sgMemberName
	sgBuyin
	sgHands
	sgPrize
	sgWinnings
)

var SpinAndGoldDetail = register(&Schema{
	Family:        FamilySpinAndGold,
	SheetName:     "Spin&Gold Detail",
	Columns:       []string{"MemberID", "MemberName", "Buyin", "Hands", "Prize", "Winnings"},
	MetadataRows:  3,
	MetadataTerms: []MetadataTerm{TermTableName},
	HeaderRows:    2,
	MultiTable:    true,
	transactions:  projectSpinAndGold,
})

func projectSpinAndGold(t *SubTable, r Row) (models.Transaction, error) {
	sc := scan(t, r)
	name := sc.str(sgMemberName)
	if name == "" {
		return models.Transaction{}, rowSkip{reason: skipMissingMember}
	}
	tx := newTransaction(t, models.TxSpinAndGold, name)
	tx.TotalBuyin = sc.dec(sgBuyin)
	tx.TotalCashout = sc.dec(sgPrize)
	tx.Hands = sc.int(sgHands)
	return tx, sc.err
}
