package importer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// NewXLSXSource reads the first sheet of an XLSX workbook. The whole
// sheet is materialized up front, which is fine for the file sizes a
// personal ledger sees.
func NewXLSXSource(r io.Reader) (RowSource, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformedHeader)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrMalformedHeader, sheets[0])
	}

	return NewRowsSource(rows)
}
