package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Workbook gives access to the sheets of one report file.
type Workbook interface {
	SheetNames() []string
	Grid(sheet string) (Grid, error)
	Close() error
}

// OpenFile opens a report workbook from disk.
func OpenFile(path string) (Workbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", path, err)
	}
	return OpenBytes(filepath.Base(path), data)
}

// OpenBytes opens a workbook whose format is chosen by the extension of name.
func OpenBytes(name string, data []byte) (Workbook, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to open XLSX file %s: %w", name, err)
		}
		return &xlsxBook{f: f}, nil
	case ".xls":
		wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, fmt.Errorf("failed to open XLS file %s: %w", name, err)
		}
		return &xlsBook{wb: wb}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, name)
}

// LoadSheet reads one named sheet of a report file into a Grid.
func LoadSheet(path, sheet string) (Grid, error) {
	wb, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.Grid(sheet)
}

type xlsxBook struct {
	f          *excelize.File
	dateStyles map[int]bool
}

func (b *xlsxBook) SheetNames() []string { return b.f.GetSheetList() }

func (b *xlsxBook) Grid(sheet string) (Grid, error) {
	if !hasSheet(b.SheetNames(), sheet) {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	// Raw values keep numbers free of display formatting such as thousands separators.
	rows, err := b.f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	for r, row := range rows {
		for c, v := range row {
			serial, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			if t, ok := b.dateCell(sheet, c+1, r+1, serial); ok {
				row[c] = t.Format(time.DateTime)
			}
		}
	}
	return Grid(rows), nil
}

// dateCell converts a numeric cell to a time when its number format is a date format.
func (b *xlsxBook) dateCell(sheet string, col, row int, serial float64) (time.Time, bool) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return time.Time{}, false
	}
	styleID, err := b.f.GetCellStyle(sheet, cell)
	if err != nil || styleID == 0 {
		return time.Time{}, false
	}
	if b.dateStyles == nil {
		b.dateStyles = make(map[int]bool)
	}
	isDate, seen := b.dateStyles[styleID]
	if !seen {
		if style, err := b.f.GetStyle(styleID); err == nil {
			isDate = isDateFormat(style.NumFmt, style.CustomNumFmt)
		}
		b.dateStyles[styleID] = isDate
	}
	if !isDate {
		return time.Time{}, false
	}
	var date1904 bool
	if props, err := b.f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// isDateFormat reports whether a built-in number format id or a custom format code
// renders a calendar date.
func isDateFormat(id int, custom *string) bool {
	if custom != nil {
		code := strings.ToLower(quotedOrBracketed.ReplaceAllString(*custom, ""))
		return strings.ContainsAny(code, "yd")
	}
	switch {
	case id >= 14 && id <= 17, id == 22:
		return true
	case id >= 27 && id <= 36, id >= 50 && id <= 58:
		// CJK date formats
		return true
	}
	return false
}

var quotedOrBracketed = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]`)

func (b *xlsxBook) Close() error { return b.f.Close() }

type xlsBook struct {
	wb *xls.WorkBook
}

func (b *xlsBook) SheetNames() []string {
	names := make([]string, 0, b.wb.NumSheets())
	for i := 0; i < b.wb.NumSheets(); i++ {
		if s := b.wb.GetSheet(i); s != nil {
			names = append(names, s.Name)
		}
	}
	return names
}

func (b *xlsBook) Grid(sheet string) (Grid, error) {
	for i := 0; i < b.wb.NumSheets(); i++ {
		s := b.wb.GetSheet(i)
		if s == nil || s.Name != sheet {
			continue
		}
		g := make(Grid, 0, int(s.MaxRow)+1)
		for r := 0; r <= int(s.MaxRow); r++ {
			row := s.Row(r)
			if row == nil {
				g = append(g, nil)
				continue
			}
			cells := make([]string, row.LastCol())
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells[c] = row.Col(c)
			}
			g = append(g, cells)
		}
		return g, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
}

func (b *xlsBook) Close() error { return nil }

func hasSheet(names []string, sheet string) bool {
	for _, n := range names {
		if n == sheet {
			return true
		}
	}
	return false
}
