package report

// Normalize trims every table to len(columns), drops its metadata and header rows, names the
// columns and turns null sentinels into invalid Values. Blank rows are dropped.
func (s *Sheet) Normalize(columns []string, headerRows int) error {
	if !s.split {
		return structural(s.Name, -1, -1, "normalize", ErrNotSplit)
	}
	if !s.extracted {
		return structural(s.Name, -1, -1, "normalize", ErrNoMetadata)
	}
	for _, t := range s.tables {
		if !t.extracted {
			return structural(s.Name, t.Index, -1, "normalize", ErrNoMetadata)
		}
		t.Columns = columns
		t.Rows = t.Rows[:0]
		for r := t.offset + headerRows; r < len(t.cells); r++ {
			row := make(Row, len(columns))
			blank := true
			for c := range columns {
				row[c] = normalizeValue(t.cells.Cell(r, c))
				if row[c].Valid {
					blank = false
				}
			}
			if blank {
				continue
			}
			t.Rows = append(t.Rows, row)
		}
	}
	return nil
}
