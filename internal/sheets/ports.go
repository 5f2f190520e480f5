package sheets

import (
	"context"

	"contabile/internal/core"
)

// Ports for outbound spreadsheet adapters.
type (
	// TransactionAppender mirrors a transaction to a spreadsheet. The
	// returned rowRef identifies where it landed, for logging.
	TransactionAppender interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	// RowsReader reads a whole sheet as raw rows, header row first, so
	// a spreadsheet can feed the importer like any uploaded file.
	RowsReader interface {
		ReadRows(ctx context.Context, sheetName string) ([][]string, error)
	}
)
