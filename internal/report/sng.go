package report

import "ClubLedger/internal/models"

const (
	sngMemberID = iota
	sngMemberName
	sngBuyin
	sngFee
	sngHands
	sngPrize
	sngWinnings
)

var SNGDetail = register(&Schema{
	Family:        FamilySNG,
	SheetName:     "SNG Detail",
	Columns:       []string{"MemberID", "MemberName", "Buyin", "Fee", "Hands", "Prize", "Winnings"},
	MetadataRows:  3,
	MetadataTerms: []MetadataTerm{TermTableName},
	HeaderRows:    2,
	MultiTable:    true,
	transactions:  projectSNG,
})

func projectSNG(t *SubTable, r Row) (models.Transaction, error) {
	sc := scan(t, r)
	name := sc.str(sngMemberName)
	if name == "" {
		return models.Transaction{}, rowSkip{reason: skipMissingMember}
	}
	buyin, fee := sc.dec(sngBuyin), sc.dec(sngFee)
	tx := newTransaction(t, models.TxSNG, name)
	tx.Rake = fee
	tx.TotalBuyin = buyin.Add(fee)
	tx.TotalCashout = sc.dec(sngPrize)
	tx.Hands = sc.int(sngHands)
	return tx, sc.err
}

// newTransaction stamps the table's identity, date and label on a new transaction.
func newTransaction(t *SubTable, typ models.TransactionType, username string) models.Transaction {
	return models.Transaction{
		ContentID:   t.Attrs.TableID,
		Username:    username,
		Type:        typ,
		SessionDate: t.Attrs.Date,
		Details:     t.Attrs.SessionLabel,
	}
}
