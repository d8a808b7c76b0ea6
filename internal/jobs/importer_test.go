package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ClubLedger/internal/checksum"
	"ClubLedger/internal/config"
	"ClubLedger/internal/ledger"
	"ClubLedger/internal/reconcile"
	"ClubLedger/internal/report"
	"ClubLedger/internal/store"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, path string, sheets map[string][][]string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for name, rows := range sheets {
		if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		for r, row := range rows {
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

var overviewSheet = [][]string{
	{"2024-05-01 ~ 2024-05-07"},
	{"Club ID : 910171, Club Name : Sheep It"},
	{"Export Time : 2024-05-08"},
	{"Timezone : UTC"},
	{"Super Agent", "", "Agent"},
	{"Num", "ID", "Name", "ID", "Name", "Country", "Role", "ID", "Nickname"},
	{"1", "SA1", "Sam", "SA1", "Sam", "US", "Super Agent", "SA1", "sam"},
	{"2", "SA1", "Sam", "AG1", "Ann", "US", "Agent", "AG1", "ann"},
	{"3", "SA1", "Sam", "AG1", "Ann", "US", "Player", "P1", "alice"},
	{"4", "SA1", "Sam", "AG1", "Ann", "US", "Player", "P2", "bob"},
}

var sngSheet = [][]string{
	{"2024-05-01 ~ 2024-05-07"},
	{"Start/End : 2024-05-01 10:00 ~ 2024-05-01 11:00"},
	{"Table Name : SNG 10, Game : NLH"},
	{"Blinds : 10/20"},
	{"Member"},
	{"ID", "Nickname", "Buyin", "Fee", "Hands", "Prize", "Winnings"},
	{"P1", "alice", "10", "1", "25", "30", "19"},
	{"P2", "bob", "10", "1", "25", "-", "-11"},
	{"Total"},
}

var ringSheet = [][]string{
	{"2024-05-01 ~ 2024-05-07"},
	{"Start/End : 2024-05-01 20:00 ~ 2024-05-01 23:00"},
	{"Table Name : NLH 1/2"},
	{"Blinds : 1/2"},
	{"Member"},
	{"ID", "Nickname", "Buyin", "Cashout", "Hands", "Insurance", "EV", "Squid", "BBFee", "BBCashout", "Fee", "Total"},
	{"P1", "alice", "100", "140", "60", "0", "0", "0", "0.5", "0", "4", "40"},
	{"Total"},
}

func newImporter(t *testing.T) (*Importer, store.Store) {
	t.Helper()
	s := store.NewMemory()
	return NewImporter(s, reconcile.New(ledger.New()), nil), s
}

func balance(t *testing.T, s store.Store, username string) decimal.Decimal {
	t.Helper()
	p, err := s.LookupPlayer(context.Background(), username)
	if err != nil {
		t.Fatalf("lookup %s: %v", username, err)
	}
	return p.Balance
}

func TestImportFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "910171_20240507.xlsx")
	writeWorkbook(t, path, map[string][][]string{
		"Club Overview":    overviewSheet,
		"SNG Detail":       sngSheet,
		"Ring Game Detail": ringSheet,
	})
	im, s := newImporter(t)

	res, err := im.ImportFile(ctx, "910171", path, ImportOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Duplicate || res.Players.Created != 4 || res.Transactions.Created != 3 {
		t.Fatalf("unexpected result: players %+v transactions %+v", res.Players, res.Transactions)
	}
	if len(res.Run.Families) != 3 || res.Run.Families[0] != string(report.FamilyClubOverview) {
		t.Fatalf("families: %v", res.Run.Families)
	}
	if !balance(t, s, "alice").Equal(decimal.NewFromInt(59)) {
		t.Fatalf("alice: %s", balance(t, s, "alice"))
	}
	if !balance(t, s, "bob").Equal(decimal.NewFromInt(-11)) {
		t.Fatalf("bob: %s", balance(t, s, "bob"))
	}
	ann, _ := s.LookupPlayer(ctx, "ann")
	if !ann.HasAgent("SA1") {
		t.Fatalf("agent should point to its super agent: %+v", ann)
	}

	t.Run("identical file is skipped", func(t *testing.T) {
		again, err := im.ImportFile(ctx, "910171", path, ImportOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if !again.Duplicate || again.PreviousRun != res.Run.RunID {
			t.Fatalf("expected duplicate of %s, got %+v", res.Run.RunID, again)
		}
		if !balance(t, s, "alice").Equal(decimal.NewFromInt(59)) {
			t.Fatalf("balance moved on duplicate import")
		}
	})

	t.Run("forced re-import merges ring rows only", func(t *testing.T) {
		forced, err := im.ImportFile(ctx, "910171", path, ImportOptions{Force: true})
		if err != nil {
			t.Fatal(err)
		}
		if forced.Transactions.Stale != 2 || forced.Transactions.Merged != 1 {
			t.Fatalf("unexpected forced result %+v", forced.Transactions)
		}
		if !balance(t, s, "alice").Equal(decimal.NewFromInt(99)) {
			t.Fatalf("alice after forced: %s", balance(t, s, "alice"))
		}
	})
}

func TestImportFileRollsBackOnStructuralError(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "910171_20240508.xlsx")
	broken := [][]string{
		{"Table Name : no marker"}, {"x"}, {"y"}, {"h"}, {"h"},
		{"P1", "alice", "1", "1", "1", "1", "1"},
		{"Total"},
	}
	writeWorkbook(t, path, map[string][][]string{
		"Club Overview": overviewSheet,
		"SNG Detail":    broken,
	})
	im, s := newImporter(t)

	_, err := im.ImportFile(ctx, "910171", path, ImportOptions{})
	var spe *report.StructuralParseError
	if !errors.As(err, &spe) {
		t.Fatalf("expected StructuralParseError, got %v", err)
	}
	players, _ := s.ListPlayers(ctx)
	if len(players) != 0 {
		t.Fatalf("nothing should be committed, found %d players", len(players))
	}
}

func TestImportFileFamiliesAndDigest(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "910171_20240509.xlsx")
	writeWorkbook(t, path, map[string][][]string{"Club Overview": overviewSheet})
	im, _ := newImporter(t)

	_, err := im.ImportFile(ctx, "910171", path, ImportOptions{ExpectDigest: checksum.Digest([]byte("other"))})
	if !errors.Is(err, ErrDigestMismatch) {
		t.Fatalf("expected ErrDigestMismatch, got %v", err)
	}

	res, err := im.ImportFile(ctx, "910171", path, ImportOptions{Families: []report.Family{report.FamilyClubOverview, report.FamilyMTT}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Run.Families) != 1 || res.Players.Created != 4 {
		t.Fatalf("missing MTT sheet should be skipped: %+v", res.Run)
	}
}

func TestImportFileAppliesFamiliesLeftOutBefore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "910171_20240510.xlsx")
	writeWorkbook(t, path, map[string][][]string{
		"Club Overview":    overviewSheet,
		"SNG Detail":       sngSheet,
		"Ring Game Detail": ringSheet,
	})
	im, s := newImporter(t)

	first, err := im.ImportFile(ctx, "910171", path, ImportOptions{Families: []report.Family{report.FamilyClubOverview}})
	if err != nil {
		t.Fatal(err)
	}
	if first.Players.Created != 4 || !balance(t, s, "alice").IsZero() {
		t.Fatalf("overview only: players %+v alice %s", first.Players, balance(t, s, "alice"))
	}

	rest, err := im.ImportFile(ctx, "910171", path, ImportOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if rest.Duplicate || rest.Transactions.Created != 3 {
		t.Fatalf("remaining families should be applied: %+v", rest)
	}
	if len(rest.Run.Families) != 2 || rest.Run.Families[0] == string(report.FamilyClubOverview) {
		t.Fatalf("overview was applied by the first run: %v", rest.Run.Families)
	}
	if !balance(t, s, "alice").Equal(decimal.NewFromInt(59)) {
		t.Fatalf("alice: %s", balance(t, s, "alice"))
	}

	again, err := im.ImportFile(ctx, "910171", path, ImportOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !again.Duplicate || again.PreviousRun != rest.Run.RunID {
		t.Fatalf("every family is applied, expected duplicate of %s: %+v", rest.Run.RunID, again)
	}

	runs, err := s.ListImports(ctx, "910171", first.Run.Digest)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 recorded runs, got %d", len(runs))
	}
}

func TestImportFileRejectsOtherClub(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "555_20240507.xlsx")
	writeWorkbook(t, path, map[string][][]string{"Club Overview": overviewSheet})
	im, s := newImporter(t)

	_, err := im.ImportFile(ctx, "555", path, ImportOptions{})
	if !errors.Is(err, ErrClubMismatch) {
		t.Fatalf("expected ErrClubMismatch, got %v", err)
	}
	players, _ := s.ListPlayers(ctx)
	if len(players) != 0 {
		t.Fatalf("nothing should be committed, found %d players", len(players))
	}
	runs, _ := s.ListImports(ctx, "555", checksum.Digest(readFile(t, path)))
	if len(runs) != 0 {
		t.Fatalf("rejected file should not be recorded: %+v", runs)
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestImportClubs(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "910171_20240501.xlsx"), map[string][][]string{"Club Overview": overviewSheet})
	im, s := newImporter(t)
	cfg := &config.ImporterConfig{ReportsDir: dir, Clubs: []string{"910171", "555"}}

	if failed := ImportClubs(context.Background(), cfg, im); failed != 1 {
		t.Fatalf("expected the club without files to fail, got %d failures", failed)
	}
	if _, err := s.LookupPlayer(context.Background(), "alice"); err != nil {
		t.Fatalf("club 910171 should be imported: %v", err)
	}
}
