package report

import (
	"regexp"
	"strings"
	"time"

	"ClubLedger/internal/checksum"
)

// MetadataTerm is a "<Label> : value" entry recognized in a table's metadata rows.
type MetadataTerm struct {
	Label string
	set   func(*Attributes, string)
}

var (
	TermTableName = MetadataTerm{Label: "Table Name", set: func(a *Attributes, v string) { a.SessionLabel = v }}
	TermClubID    = MetadataTerm{Label: "Club ID", set: func(a *Attributes, v string) { a.ClubID = v }}
	TermClubName  = MetadataTerm{Label: "Club Name", set: func(a *Attributes, v string) { a.ClubName = v }}
)

const tableMarkerPrefix = "Start/End"

var datePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// parseDatePrefix returns the calendar date a cell starts with, if any.
func parseDatePrefix(text string) (time.Time, bool) {
	if !datePrefix.MatchString(text) {
		return time.Time{}, false
	}
	d, err := time.Parse("2006-01-02", text[:10])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// ExtractMetadata fills each table's Attributes from its leading date and metadata rows and
// records how many rows the block consumed. Tables without a date row inherit the date of the
// table before them.
func (s *Sheet) ExtractMetadata(terms []MetadataTerm, metadataRows int) error {
	if !s.split {
		return structural(s.Name, -1, -1, "extract metadata", ErrNotSplit)
	}
	var prev *SubTable
	for _, t := range s.tables {
		extractTable(t, prev, terms, metadataRows)
		prev = t
	}
	s.extracted = true
	return nil
}

func extractTable(t, prev *SubTable, terms []MetadataTerm, metadataRows int) {
	t.Attrs = Attributes{}
	offset := 0
	if d, ok := parseDatePrefix(t.cells.Cell(0, 0)); ok {
		t.Attrs.Date = &d
		offset = 1
		for offset < len(t.cells) {
			if _, ok := parseDatePrefix(t.cells.Cell(offset, 0)); !ok {
				break
			}
			offset++
		}
	} else if prev != nil && prev.Attrs.Date != nil {
		d := *prev.Attrs.Date
		t.Attrs.Date = &d
	}

	if len(terms) > 0 {
		for j := offset; j < offset+metadataRows && j < len(t.cells); j++ {
			cell := t.cells.Cell(j, 0)
			if strings.HasPrefix(cell, tableMarkerPrefix) {
				t.Attrs.TableID = checksum.ContentID(cell)
			}
			for _, term := range terms {
				if v, ok := termValue(cell, term.Label); ok {
					term.set(&t.Attrs, v)
				}
			}
		}
	}
	t.offset = offset + metadataRows
	t.extracted = true
}

// termValue reads "<label> : value, ..." and returns the text between the colon and the next comma.
func termValue(cell, label string) (string, bool) {
	i := strings.Index(cell, label+" :")
	if i < 0 {
		return "", false
	}
	rest := cell[i+len(label)+2:]
	if j := strings.Index(rest, ","); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest), true
}
