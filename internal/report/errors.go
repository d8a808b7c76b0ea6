package report

import (
	"errors"
	"fmt"
)

var (
	ErrSheetNotFound = errors.New("sheet not found")
	ErrNotSplit      = errors.New("sheet has not been split into tables")
	ErrNoMetadata    = errors.New("table metadata has not been extracted")
	ErrUnsupported   = errors.New("unsupported report file type")
)

// StructuralParseError means the file does not have the layout its report family declares.
// It is fatal for the whole file.
type StructuralParseError struct {
	Sheet  string
	Table  int // -1 when not table specific
	Row    int // -1 when not row specific
	Reason string
	Err    error
}

func (e *StructuralParseError) Error() string {
	msg := "structural parse error in sheet " + fmt.Sprintf("%q", e.Sheet)
	if e.Table >= 0 {
		msg += fmt.Sprintf(" table %d", e.Table)
	}
	if e.Row >= 0 {
		msg += fmt.Sprintf(" row %d", e.Row)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StructuralParseError) Unwrap() error { return e.Err }

func structural(sheet string, table, row int, reason string, err error) error {
	return &StructuralParseError{Sheet: sheet, Table: table, Row: row, Reason: reason, Err: err}
}
