package report

import (
	"iter"
	"strings"
)

// SplitTables yields the tables of g delimited by rows whose first cell contains keyword.
// Each table spans from the row after the previous sentinel up to the next sentinel; rows after
// the last sentinel are dropped. The sequence rescans g on every range, so it can be restarted.
func SplitTables(g Grid, keyword string) iter.Seq[*SubTable] {
	return func(yield func(*SubTable) bool) {
		start, index := 0, 0
		for i := range g {
			if !strings.Contains(g.Cell(i, 0), keyword) {
				continue
			}
			t := &SubTable{Index: index, StartRow: start, cells: g[start:i]}
			index++
			start = i + 1
			if !yield(t) {
				return
			}
		}
	}
}

// Sheet carries one loaded grid through split, metadata extraction and normalization.
// The steps must run in that order.
type Sheet struct {
	Name string

	grid      Grid
	tables    []*SubTable
	split     bool
	extracted bool
}

func NewSheet(name string, g Grid) *Sheet {
	return &Sheet{Name: name, grid: g}
}

// Split materializes the sheet's tables. A single-table sheet becomes one table covering
// the whole grid; a multi-table sheet with no sentinel rows has no tables.
func (s *Sheet) Split(keyword string, multiTable bool) int {
	s.tables = s.tables[:0]
	if !multiTable {
		s.tables = append(s.tables, &SubTable{cells: s.grid})
	} else {
		for t := range SplitTables(s.grid, keyword) {
			s.tables = append(s.tables, t)
		}
	}
	s.split = true
	s.extracted = false
	return len(s.tables)
}

// Tables returns the split tables in source order.
func (s *Sheet) Tables() []*SubTable { return s.tables }
