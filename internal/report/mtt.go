package report

import "ClubLedger/internal/models"

const (
	mttMemberID = iota
	mttMemberName
	mttBuyin
	mttTBuyin
	mttFee
	mttTFee
	mttReBuyin
	mttReTBuyin
	mttReFee
	mttReTFee
	mttHands
	mttBountyPrize
	mttRegularPrize
	mttBubbleProtection
	mttWinnings
)

var MTTDetail = register(&Schema{
	Family:    FamilyMTT,
	SheetName: "MTT Detail",
	Columns: []string{"MemberID", "MemberName", "Buyin", "TBuyin", "Fee", "TFee", "ReBuyin", "ReTBuyin",
		"ReFee", "ReTFee", "Hands", "BountyPrize", "RegularPrize", "BubbleProtection", "Winnings"},
	MetadataRows:  3,
	MetadataTerms: []MetadataTerm{TermTableName},
	HeaderRows:    3,
	MultiTable:    true,
	transactions:  projectMTT,
})

// projectMTT folds the four fee columns into rake and reports cashout as winnings plus
// everything paid in.
func projectMTT(t *SubTable, r Row) (models.Transaction, error) {
	sc := scan(t, r)
	name := sc.str(mttMemberName)
	if name == "" {
		return models.Transaction{}, rowSkip{reason: skipMissingMember}
	}
	rake := sc.dec(mttFee).Add(sc.dec(mttTFee)).Add(sc.dec(mttReFee)).Add(sc.dec(mttReTFee))
	buyin := sc.dec(mttBuyin).Add(sc.dec(mttTBuyin)).Add(sc.dec(mttReBuyin)).Add(sc.dec(mttReTBuyin)).Add(rake)

	tx := newTransaction(t, models.TxMTT, name)
	tx.Rake = rake
	tx.TotalBuyin = buyin
	tx.TotalCashout = sc.dec(mttWinnings).Add(buyin).Round(2)
	tx.Hands = sc.int(mttHands)
	return tx, sc.err
}
