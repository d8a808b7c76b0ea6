package report

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Grid is one sheet's cells, row-major. Rows may be ragged.
type Grid [][]string

// Cell returns the trimmed text at (r, c) or "" when out of range.
func (g Grid) Cell(r, c int) string {
	if r < 0 || r >= len(g) || c < 0 || c >= len(g[r]) {
		return ""
	}
	return strings.TrimSpace(g[r][c])
}

// Attributes are the per-table values read from a sub-table's metadata block.
type Attributes struct {
	Date         *time.Time
	SessionLabel string
	TableID      string
	ClubID       string
	ClubName     string
}

// SubTable is a contiguous row range of a sheet plus the attributes of its metadata block.
type SubTable struct {
	Index    int
	StartRow int
	Attrs    Attributes
	Columns  []string
	Rows     []Row

	cells     Grid
	offset    int
	extracted bool
}

// Len is the number of raw rows in the table.
func (t *SubTable) Len() int { return len(t.cells) }

// Value is a normalized cell: Valid is false for the null sentinels.
type Value struct {
	Text  string
	Valid bool
}

// Row is one normalized data row; values are positional against the table's Columns.
type Row []Value

func (r Row) at(i int) Value {
	if i < 0 || i >= len(r) {
		return Value{}
	}
	return r[i]
}

func (v Value) String() string {
	if !v.Valid {
		return ""
	}
	return v.Text
}

// Decimal parses the value as a number; null is zero.
func (v Value) Decimal() (decimal.Decimal, error) {
	if !v.Valid {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(v.Text, ",", ""))
}

// Int parses the value as a whole number; null is zero.
func (v Value) Int() (int64, error) {
	d, err := v.Decimal()
	if err != nil {
		return 0, err
	}
	return d.IntPart(), nil
}

var nullSentinels = map[string]struct{}{
	"":    {},
	"-":   {},
	"nan": {},
}

func normalizeValue(s string) Value {
	s = strings.TrimSpace(s)
	if _, ok := nullSentinels[strings.ToLower(s)]; ok {
		return Value{}
	}
	return Value{Text: s, Valid: true}
}
