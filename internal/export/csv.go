// Package export renders owner data into files that round-trip through
// the importer.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"contabile/internal/core"
)

// TransactionColumns is the fixed header of a transaction export,
// present even when there are no rows.
var TransactionColumns = []string{
	"date", "type", "category", "card", "amount", "description", "notes", "is_recurring",
}

// WriteTransactionsCSV writes txs in the order given. Amounts use a
// dot decimal separator so the file parses back without locale
// guessing.
func WriteTransactionsCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(TransactionColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range txs {
		record := []string{
			t.Date.ISO(),
			strings.ToLower(string(t.Kind)),
			t.Category,
			t.Card,
			t.Amount.DecimalString(),
			t.Description,
			t.Notes,
			strconv.FormatBool(t.IsRecurring),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
