package importer

import (
	"fmt"
	"io"
)

// rowsSource serves rows already held in memory. Both the XLSX source
// and the Google Sheets source funnel through it.
type rowsSource struct {
	headers []string
	rows    [][]string
	pos     int
}

func NewRowsSource(rows [][]string) (RowSource, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrMalformedHeader)
	}
	return &rowsSource{headers: rows[0], rows: rows[1:]}, nil
}

func (s *rowsSource) Headers() ([]string, error) { return s.headers, nil }

func (s *rowsSource) Next() ([]string, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *rowsSource) Close() error { return nil }
