package report

import (
	"errors"
	"fmt"
	"strings"

	"ClubLedger/internal/models"

	"github.com/shopspring/decimal"
)

// Family identifies one report layout.
type Family string

const (
	FamilyClubOverview Family = "club_overview"
	FamilySNG          Family = "sng"
	FamilyMTT          Family = "mtt"
	FamilyRingGame     Family = "ring_game"
	FamilySpinAndGold  Family = "spin_and_gold"
)

// SentinelKeyword marks the row closing each table in multi-table sheets.
const SentinelKeyword = "Total"

// Schema declares a report family's sheet layout and how its rows become records.
// Exactly one of players or transactions is set.
type Schema struct {
	Family        Family
	SheetName     string
	Columns       []string
	MetadataRows  int
	MetadataTerms []MetadataTerm
	HeaderRows    int
	MultiTable    bool

	players      func(t *SubTable, r Row) (models.Player, error)
	transactions func(t *SubTable, r Row) (models.Transaction, error)
}

// ProducesPlayers reports whether the family projects to players rather than transactions.
func (s *Schema) ProducesPlayers() bool { return s.players != nil }

var schemas = map[Family]*Schema{}

func register(s *Schema) *Schema {
	schemas[s.Family] = s
	return s
}

// SchemaFor returns the schema of a family.
func SchemaFor(f Family) (*Schema, error) {
	s, ok := schemas[f]
	if !ok {
		return nil, fmt.Errorf("unknown report family %q", f)
	}
	return s, nil
}

// ImportOrder lists the families in the order a whole-file import applies them.
// Players come first so balances have an owner.
func ImportOrder() []Family {
	return []Family{FamilyClubOverview, FamilySNG, FamilyMTT, FamilyRingGame, FamilySpinAndGold}
}

// ParseFamily accepts a family name case-insensitively.
func ParseFamily(s string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := schemas[f]; !ok {
		return "", fmt.Errorf("unknown report family %q", s)
	}
	return f, nil
}

// ParseStats counts rows a projection skipped without failing.
type ParseStats struct {
	Tables        int
	Rows          int
	UnknownRole   int
	MissingMember int
}

// Skipped is the total of non-fatal row skips.
func (s ParseStats) Skipped() int { return s.UnknownRole + s.MissingMember }

// ParseResult holds the records of one family: Players for the club overview, Transactions
// for the detail reports.
type ParseResult struct {
	Family       Family
	Sheet        string
	Players      []models.Player
	Transactions []models.Transaction
	Stats        ParseStats

	// ClubID and ClubName come from the sheet's metadata when it declares them.
	ClubID   string
	ClubName string
}

type skipReason int

const (
	skipUnknownRole skipReason = iota
	skipMissingMember
)

type rowSkip struct{ reason skipReason }

func (rowSkip) Error() string { return "row skipped" }

// ParseGrid runs split, metadata, normalize and projection over one sheet's grid.
func (s *Schema) ParseGrid(g Grid) (*ParseResult, error) {
	sheet := NewSheet(s.SheetName, g)
	sheet.Split(SentinelKeyword, s.MultiTable)
	if err := sheet.ExtractMetadata(s.MetadataTerms, s.MetadataRows); err != nil {
		return nil, err
	}
	if err := sheet.Normalize(s.Columns, s.HeaderRows); err != nil {
		return nil, err
	}

	res := &ParseResult{Family: s.Family, Sheet: s.SheetName}
	for _, t := range sheet.Tables() {
		res.Stats.Tables++
		if res.ClubID == "" && t.Attrs.ClubID != "" {
			res.ClubID, res.ClubName = t.Attrs.ClubID, t.Attrs.ClubName
		}
		if s.transactions != nil && len(t.Rows) > 0 && t.Attrs.TableID == "" {
			return nil, structural(s.SheetName, t.Index, -1, "table has no "+tableMarkerPrefix+" row", nil)
		}
		for i, r := range t.Rows {
			res.Stats.Rows++
			var err error
			if s.players != nil {
				var p models.Player
				if p, err = s.players(t, r); err == nil {
					res.Players = append(res.Players, p)
				}
			} else {
				var tx models.Transaction
				if tx, err = s.transactions(t, r); err == nil {
					res.Transactions = append(res.Transactions, tx)
				}
			}
			var skip rowSkip
			switch {
			case err == nil:
			case errors.As(err, &skip):
				if skip.reason == skipUnknownRole {
					res.Stats.UnknownRole++
				} else {
					res.Stats.MissingMember++
				}
			default:
				return nil, structural(s.SheetName, t.Index, i, "project row", err)
			}
		}
	}
	return res, nil
}

// ParseWorkbook loads the family's sheet from wb and parses it.
func (s *Schema) ParseWorkbook(wb Workbook) (*ParseResult, error) {
	g, err := wb.Grid(s.SheetName)
	if err != nil {
		return nil, structural(s.SheetName, -1, -1, "load sheet", err)
	}
	return s.ParseGrid(g)
}

// ParseReport parses one report family out of the file at path.
func ParseReport(path string, family Family) (*ParseResult, error) {
	s, err := SchemaFor(family)
	if err != nil {
		return nil, err
	}
	g, err := LoadSheet(path, s.SheetName)
	if errors.Is(err, ErrSheetNotFound) {
		return nil, structural(s.SheetName, -1, -1, "load sheet", err)
	}
	if err != nil {
		return nil, err
	}
	return s.ParseGrid(g)
}

// rowScanner reads typed values out of a Row, keeping the first conversion error.
type rowScanner struct {
	row  Row
	cols []string
	err  error
}

func scan(t *SubTable, r Row) *rowScanner {
	return &rowScanner{row: r, cols: t.Columns}
}

func (s *rowScanner) str(i int) string {
	return s.row.at(i).String()
}

func (s *rowScanner) dec(i int) decimal.Decimal {
	d, err := s.row.at(i).Decimal()
	if err != nil && s.err == nil {
		s.err = fmt.Errorf("column %s: %w", s.colName(i), err)
	}
	return d
}

func (s *rowScanner) int(i int) int64 {
	n, err := s.row.at(i).Int()
	if err != nil && s.err == nil {
		s.err = fmt.Errorf("column %s: %w", s.colName(i), err)
	}
	return n
}

func (s *rowScanner) colName(i int) string {
	if i >= 0 && i < len(s.cols) {
		return s.cols[i]
	}
	return fmt.Sprintf("#%d", i)
}
