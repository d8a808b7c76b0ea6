package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ClubLedger/internal/checksum"
	"ClubLedger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	firstMarker  = "Start/End : 2024-05-01 10:00 ~ 2024-05-01 11:00"
	secondMarker = "Start/End : 2024-05-01 12:00 ~ 2024-05-01 13:10"
)

func sngGrid() Grid {
	return Grid{
		{"2024-05-01 ~ 2024-05-07"},
		{firstMarker},
		{"Table Name : SNG 10, Game : NLH"},
		{"Blinds : 10/20"},
		{"Member", "", "Buy-in"},
		{"ID", "Nickname", "Buyin", "Fee", "Hands", "Prize", "Winnings"},
		{"1001", "alice", "10", "1", "25", "30", "19"},
		{"1002", "bob", "10", "1", "25", "0", "-11"},
		{"Total", "", "20", "2", "50", "30", "8"},
		{secondMarker},
		{"Table Name : SNG 20, Game : NLH"},
		{"Blinds : 20/40"},
		{"Member"},
		{"ID", "Nickname", "Buyin", "Fee", "Hands", "Prize", "Winnings"},
		{"1001", "alice", "20", "2", "31", "-", "-22"},
		{""},
		{"Total", "", "20", "2", "31", "0", "-22"},
		{"Exported by club tools"},
	}
}

func TestSplitTables(t *testing.T) {
	var got []*SubTable
	for st := range SplitTables(sngGrid(), SentinelKeyword) {
		got = append(got, st)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(got))
	}
	if got[0].StartRow != 0 || got[0].Len() != 8 {
		t.Fatalf("first table: start=%d len=%d", got[0].StartRow, got[0].Len())
	}
	if got[1].StartRow != 9 || got[1].Len() != 7 {
		t.Fatalf("second table: start=%d len=%d", got[1].StartRow, got[1].Len())
	}

	// The sequence can be ranged again with the same result.
	n := 0
	for range SplitTables(sngGrid(), SentinelKeyword) {
		n++
	}
	if n != 2 {
		t.Fatalf("expected restartable sequence, second pass gave %d tables", n)
	}
}

func TestSplitWithoutSentinelYieldsNothing(t *testing.T) {
	g := Grid{{"2024-05-01"}, {firstMarker}, {"1001", "alice"}}
	s := NewSheet("SNG Detail", g)
	if n := s.Split(SentinelKeyword, true); n != 0 {
		t.Fatalf("expected 0 tables, got %d", n)
	}
	res, err := SNGDetail.ParseGrid(g)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(res.Transactions) != 0 || res.Stats.Tables != 0 {
		t.Fatalf("expected no records, got %+v", res.Stats)
	}
}

func TestSingleTableSkipsSplitting(t *testing.T) {
	s := NewSheet("Club Overview", Grid{{"a"}, {"Total"}, {"b"}})
	if n := s.Split(SentinelKeyword, false); n != 1 {
		t.Fatalf("expected whole grid as one table, got %d", n)
	}
	if s.Tables()[0].Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", s.Tables()[0].Len())
	}
}

func TestExtractMetadata(t *testing.T) {
	s := NewSheet("SNG Detail", sngGrid())
	s.Split(SentinelKeyword, true)
	if err := s.ExtractMetadata([]MetadataTerm{TermTableName}, 3); err != nil {
		t.Fatalf("extract: %v", err)
	}
	tables := s.Tables()

	first := tables[0].Attrs
	if first.Date == nil || first.Date.Format("2006-01-02") != "2024-05-01" {
		t.Fatalf("expected date 2024-05-01, got %v", first.Date)
	}
	if first.SessionLabel != "SNG 10" {
		t.Fatalf("expected label SNG 10, got %q", first.SessionLabel)
	}
	if first.TableID != checksum.ContentID(firstMarker) {
		t.Fatalf("unexpected table id %q", first.TableID)
	}
	if tables[0].offset != 4 {
		t.Fatalf("expected offset 4 (date row + 3 metadata rows), got %d", tables[0].offset)
	}

	second := tables[1].Attrs
	if second.Date == nil || !second.Date.Equal(*first.Date) {
		t.Fatalf("expected inherited date, got %v", second.Date)
	}
	if tables[1].offset != 3 {
		t.Fatalf("expected offset 3, got %d", tables[1].offset)
	}
	if second.TableID == first.TableID {
		t.Fatalf("tables must get distinct ids")
	}
}

func TestFirstTableWithoutDateHasNoDate(t *testing.T) {
	g := Grid{
		{firstMarker}, {"Table Name : X"}, {"Blinds"}, {"h"}, {"h"},
		{"1", "alice", "1", "0", "3", "0"},
		{"Total"},
	}
	s := NewSheet("Spin&Gold Detail", g)
	s.Split(SentinelKeyword, true)
	if err := s.ExtractMetadata([]MetadataTerm{TermTableName}, 3); err != nil {
		t.Fatal(err)
	}
	if s.Tables()[0].Attrs.Date != nil {
		t.Fatalf("expected absent date, got %v", s.Tables()[0].Attrs.Date)
	}
}

func TestConsecutiveDateRowsAreConsumed(t *testing.T) {
	g := Grid{
		{"2024-05-01 ~ 2024-05-07"},
		{"2024-05-08 00:00:00"},
		{firstMarker}, {"Table Name : T"}, {"x"},
		{"h"}, {"h"},
		{"1", "alice", "5", "7", "0", "-5"},
		{"Total"},
	}
	res, err := SpinAndGoldDetail.ParseGrid(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(res.Transactions))
	}
	if res.Transactions[0].Details != "T" || res.Transactions[0].Hands != 7 {
		t.Fatalf("misaligned row: %+v", res.Transactions[0])
	}
}

func TestTermValue(t *testing.T) {
	cell := "Club ID : 910171, Club Name : Sheep It"
	if v, ok := termValue(cell, "Club ID"); !ok || v != "910171" {
		t.Fatalf("club id: %q %v", v, ok)
	}
	if v, ok := termValue(cell, "Club Name"); !ok || v != "Sheep It" {
		t.Fatalf("club name: %q %v", v, ok)
	}
	if _, ok := termValue(cell, "Table Name"); ok {
		t.Fatalf("unexpected match")
	}
}

func TestNormalizeRequiresSplitAndMetadata(t *testing.T) {
	s := NewSheet("SNG Detail", sngGrid())
	err := s.Normalize(SNGDetail.Columns, 2)
	if !errors.Is(err, ErrNotSplit) {
		t.Fatalf("expected ErrNotSplit, got %v", err)
	}
	var spe *StructuralParseError
	if !errors.As(err, &spe) {
		t.Fatalf("expected StructuralParseError, got %T", err)
	}

	s.Split(SentinelKeyword, true)
	if err := s.Normalize(SNGDetail.Columns, 2); !errors.Is(err, ErrNoMetadata) {
		t.Fatalf("expected ErrNoMetadata, got %v", err)
	}
}

func TestNormalizeNullsAndColumns(t *testing.T) {
	s := NewSheet("SNG Detail", sngGrid())
	s.Split(SentinelKeyword, true)
	if err := s.ExtractMetadata(SNGDetail.MetadataTerms, SNGDetail.MetadataRows); err != nil {
		t.Fatal(err)
	}
	if err := s.Normalize(SNGDetail.Columns, SNGDetail.HeaderRows); err != nil {
		t.Fatal(err)
	}
	tables := s.Tables()
	if len(tables[0].Rows) != 2 {
		t.Fatalf("expected 2 data rows, got %d", len(tables[0].Rows))
	}
	if len(tables[1].Rows) != 1 {
		t.Fatalf("blank row should be dropped, got %d rows", len(tables[1].Rows))
	}
	row := tables[1].Rows[0]
	if len(row) != len(SNGDetail.Columns) {
		t.Fatalf("expected %d columns, got %d", len(SNGDetail.Columns), len(row))
	}
	if row[sngPrize].Valid {
		t.Fatalf("expected '-' to normalize to null")
	}
	if row[sngMemberName].String() != "alice" {
		t.Fatalf("unexpected member %q", row[sngMemberName].String())
	}
}

func TestSNGProjection(t *testing.T) {
	res, err := SNGDetail.ParseGrid(sngGrid())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Transactions) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(res.Transactions))
	}
	alice := res.Transactions[0]
	if alice.Type != models.TxSNG || alice.Username != "alice" {
		t.Fatalf("unexpected transaction %+v", alice)
	}
	if !alice.TotalBuyin.Equal(decimal.NewFromInt(11)) || !alice.Rake.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("buyin/rake: %s/%s", alice.TotalBuyin, alice.Rake)
	}
	if !alice.TotalCashout.Equal(decimal.NewFromInt(30)) || alice.Hands != 25 {
		t.Fatalf("cashout/hands: %s/%d", alice.TotalCashout, alice.Hands)
	}
	if alice.ContentID != checksum.ContentID(firstMarker) || alice.Details != "SNG 10" {
		t.Fatalf("identity not stamped: %+v", alice)
	}
	second := res.Transactions[2]
	if second.ContentID != checksum.ContentID(secondMarker) || !second.TotalCashout.IsZero() {
		t.Fatalf("second table transaction wrong: %+v", second)
	}
	if second.SessionDate == nil {
		t.Fatalf("expected inherited session date")
	}
}

func TestMTTProjection(t *testing.T) {
	g := Grid{
		{"2024-06-02"},
		{firstMarker}, {"Table Name : Sunday Major"}, {"x"},
		{"h"}, {"h"}, {"h"},
		// id, name, buyin, tbuyin, fee, tfee, rebuy, retbuy, refee, retfee, hands, bounty, regular, bubble, winnings
		{"1", "alice", "100", "0", "10", "0", "100", "0", "10", "0", "120", "50", "300", "0", "130.004"},
		{"Total"},
	}
	res, err := MTTDetail.ParseGrid(g)
	if err != nil {
		t.Fatal(err)
	}
	tx := res.Transactions[0]
	if !tx.Rake.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("rake: %s", tx.Rake)
	}
	if !tx.TotalBuyin.Equal(decimal.NewFromInt(220)) {
		t.Fatalf("buyin: %s", tx.TotalBuyin)
	}
	if !tx.TotalCashout.Equal(decimal.RequireFromString("350")) {
		t.Fatalf("cashout: %s", tx.TotalCashout)
	}
}

func TestRingGameProjection(t *testing.T) {
	g := Grid{
		{firstMarker}, {"Table Name : NLH 1/2"}, {"x"},
		{"h"}, {"h"},
		{"1", "alice", "200", "350.5", "80", "0", "0", "0", "1.5", "0", "6", "150.5"},
		{"Total"},
	}
	res, err := RingGameDetail.ParseGrid(g)
	if err != nil {
		t.Fatal(err)
	}
	tx := res.Transactions[0]
	if tx.Type != models.TxRingGame || tx.Hands != 80 {
		t.Fatalf("unexpected %+v", tx)
	}
	if !tx.BadBeatContribution.Equal(decimal.RequireFromString("1.5")) || !tx.Rake.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("bad beat/rake: %s/%s", tx.BadBeatContribution, tx.Rake)
	}
	if !tx.Profit().Equal(decimal.RequireFromString("150.5")) {
		t.Fatalf("profit: %s", tx.Profit())
	}
}

func TestTransactionTableWithoutMarkerIsStructural(t *testing.T) {
	g := Grid{
		{"Table Name : NLH"}, {"x"}, {"y"},
		{"h"}, {"h"},
		{"1", "alice", "1", "1", "1"},
		{"Total"},
	}
	_, err := RingGameDetail.ParseGrid(g)
	var spe *StructuralParseError
	if !errors.As(err, &spe) {
		t.Fatalf("expected StructuralParseError, got %v", err)
	}
}

func TestBadNumberIsStructural(t *testing.T) {
	g := Grid{
		{firstMarker}, {"Table Name : NLH"}, {"x"},
		{"h"}, {"h"},
		{"1", "alice", "lots", "1", "1"},
		{"Total"},
	}
	_, err := RingGameDetail.ParseGrid(g)
	var spe *StructuralParseError
	if !errors.As(err, &spe) || spe.Row != 0 {
		t.Fatalf("expected row-level StructuralParseError, got %v", err)
	}
}

func overviewGrid() Grid {
	return Grid{
		{"2024-05-01 ~ 2024-05-07"},
		{"Club ID : 910171, Club Name : Sheep It"},
		{"Export Time : 2024-05-08"},
		{"Timezone : UTC"},
		{"Super Agent", "", "Agent"},
		{"Num", "ID", "Name", "ID", "Name", "Country", "Role", "ID", "Nickname"},
		{"1", "SA1", "Sam", "SA1", "Sam", "US", "Super Agent", "SA1", "sam"},
		{"2", "SA1", "Sam", "AG1", "Ann", "US", "Agent", "AG1", "ann"},
		{"3", "SA1", "Sam", "AG1", "Ann", "US", "Player", "P1", "pete"},
		{"4", "-", "-", "-", "-", "US", "Visitor", "V1", "vic"},
		{"5", "-", "-", "-", "-", "US", "Manager", "M1", "max"},
	}
}

func TestClubOverviewProjection(t *testing.T) {
	res, err := ClubOverview.ParseGrid(overviewGrid())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Players) != 4 {
		t.Fatalf("expected 4 players, got %d", len(res.Players))
	}
	if res.Stats.UnknownRole != 1 {
		t.Fatalf("expected 1 unknown role skip, got %d", res.Stats.UnknownRole)
	}
	if res.ClubID != "910171" || res.ClubName != "Sheep It" {
		t.Fatalf("club metadata: %q %q", res.ClubID, res.ClubName)
	}

	byID := map[string]models.Player{}
	for _, p := range res.Players {
		byID[p.ID] = p
	}
	if sa := byID["SA1"]; sa.Role != models.RoleSuperAgent || sa.AgentID != nil || sa.AgentName != nil {
		t.Fatalf("self-referencing super agent should have no agent: %+v", sa)
	}
	if ag := byID["AG1"]; models.StrVal(ag.AgentID) != "SA1" || models.StrVal(ag.AgentName) != "Sam" {
		t.Fatalf("self-referencing agent should point at super agent: %+v", ag)
	}
	if p := byID["P1"]; models.StrVal(p.AgentID) != "AG1" || p.Username != "pete" {
		t.Fatalf("player agent wrong: %+v", p)
	}
	if m := byID["M1"]; m.Role != models.RoleManager || m.AgentID != nil {
		t.Fatalf("manager wrong: %+v", m)
	}
}

func writeWorkbook(t *testing.T, path string, sheets map[string]Grid) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for name, g := range sheets {
		if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		for r, row := range g {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatal(err)
			}
			vals := make([]interface{}, len(row))
			for i, v := range row {
				vals[i] = v
			}
			if err := f.SetSheetRow(name, cell, &vals); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}

func TestParseReportFromXLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "910171_20240507.xlsx")
	writeWorkbook(t, path, map[string]Grid{
		"SNG Detail":    sngGrid(),
		"Club Overview": overviewGrid(),
	})

	res, err := ParseReport(path, FamilySNG)
	if err != nil {
		t.Fatalf("parse report: %v", err)
	}
	if len(res.Transactions) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(res.Transactions))
	}
	players, err := ParseReport(path, FamilyClubOverview)
	if err != nil {
		t.Fatal(err)
	}
	if len(players.Players) != 4 {
		t.Fatalf("expected 4 players, got %d", len(players.Players))
	}

	_, err = ParseReport(path, FamilyMTT)
	if !errors.Is(err, ErrSheetNotFound) {
		t.Fatalf("expected ErrSheetNotFound, got %v", err)
	}
}

func TestParseReportReadsDateTypedCells(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "910171_20240507.xlsx")
	writeWorkbook(t, path, map[string]Grid{"SNG Detail": sngGrid()})

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue("SNG Detail", "A1", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue("SNG Detail", "E7", 25); err != nil {
		t.Fatal(err)
	}
	if err := f.Save(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	g, err := LoadSheet(path, "SNG Detail")
	if err != nil {
		t.Fatal(err)
	}
	if got := g.Cell(0, 0); got != "2024-05-01 00:00:00" {
		t.Fatalf("date cell loaded as %q", got)
	}
	if got := g.Cell(6, 4); got != "25" {
		t.Fatalf("plain number loaded as %q", got)
	}

	res, err := ParseReport(path, FamilySNG)
	if err != nil {
		t.Fatalf("parse report: %v", err)
	}
	want := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if d := res.Transactions[0].SessionDate; d == nil || !d.Equal(want) {
		t.Fatalf("session date: %v", d)
	}
	if res.Transactions[0].Hands != 25 {
		t.Fatalf("hands: %d", res.Transactions[0].Hands)
	}
}

func TestLatestFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"910171_20240501.xlsx",
		"910171_20240507.xlsx",
		"910171_20240503.xls",
		"999999_20250101.xlsx",
		"910171_20240601.csv",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := LatestFile(dir, "910171")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "910171_20240507.xlsx" {
		t.Fatalf("expected newest xlsx, got %s", got)
	}
	if _, err := LatestFile(dir, "123"); err == nil {
		t.Fatalf("expected error for club without files")
	}
}
