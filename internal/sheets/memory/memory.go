// Package memory holds in-memory spreadsheet adapters used in tests
// and when no Google credentials are configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"contabile/internal/core"
	"contabile/internal/sheets"
)

type Sheet struct {
	mu   sync.Mutex
	rows []core.Transaction
}

var _ sheets.TransactionAppender = (*Sheet)(nil)

func New() *Sheet { return &Sheet{} }

func (s *Sheet) Append(ctx context.Context, t core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, t)
	return fmt.Sprintf("row-%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Sheet) Rows() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.rows))
	copy(out, s.rows)
	return out
}

// Table serves fixed raw rows as a sheet, header row first.
type Table struct {
	rows [][]string
}

var _ sheets.RowsReader = (*Table)(nil)

func NewTable(rows [][]string) *Table { return &Table{rows: rows} }

func (t *Table) ReadRows(ctx context.Context, sheetName string) ([][]string, error) {
	return t.rows, nil
}
