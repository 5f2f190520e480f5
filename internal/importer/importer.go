package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"contabile/internal/core"

	"github.com/google/uuid"
)

// TransactionStore is the slice of the record store the transaction
// importer needs.
type TransactionStore interface {
	ListCategories(ctx context.Context, ownerID int64) ([]core.Category, error)
	ListCards(ctx context.Context, ownerID int64) ([]core.Card, error)
	CreateTransactionsBatch(ctx context.Context, ownerID int64, txs []core.Transaction) ([]int64, error)
}

type CategoryStore interface {
	ListCategories(ctx context.Context, ownerID int64) ([]core.Category, error)
	CreateCategoriesBatch(ctx context.Context, ownerID int64, cats []core.Category) (int, error)
}

// RowError records why a single data row was rejected, keeping the raw
// values so the caller can show what needs fixing. Row numbers count
// from the top of the file, so the first data row is row 2.
type RowError struct {
	Row int      `json:"row"`
	Raw []string `json:"raw,omitempty"`
	Err error    `json:"-"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Reason() string { return e.Err.Error() }

// Report summarizes one import run. Rows = Created + Skipped +
// len(Failed); a failed row never blocks the rest of the file.
type Report struct {
	BatchID string     `json:"batch_id"`
	Rows    int        `json:"rows"`
	Created int        `json:"created"`
	Skipped int        `json:"skipped"`
	Failed  []RowError `json:"failed,omitempty"`

	// CreatedIDs are the stored IDs of the committed rows, in file
	// order, for follow-up event publishing.
	CreatedIDs []int64 `json:"-"`
}

// ImportTransactions validates every row of src against the owner's
// categories and cards, then commits the valid subset in a single
// batch. A header problem aborts before any row is touched.
func ImportTransactions(ctx context.Context, store TransactionStore, ownerID int64, src RowSource) (Report, error) {
	report := Report{BatchID: uuid.NewString()}

	headers, err := src.Headers()
	if err != nil {
		return report, fmt.Errorf("read headers: %w", err)
	}
	cols, err := columnMap(headers, transactionAliases, []string{"kind", "amount", "date", "category"})
	if err != nil {
		return report, err
	}

	cats, err := store.ListCategories(ctx, ownerID)
	if err != nil {
		return report, fmt.Errorf("load categories: %w", err)
	}
	cards, err := store.ListCards(ctx, ownerID)
	if err != nil {
		return report, fmt.Errorf("load cards: %w", err)
	}
	catIndex := core.NewCategoryIndex(cats)
	cardIndex := core.NewCardIndex(cards)

	var staged []core.Transaction
	for rowNum := 2; ; rowNum++ {
		record, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.Failed = append(report.Failed, RowError{Row: rowNum, Err: err})
			report.Rows++
			continue
		}
		if blankRecord(record) {
			report.Skipped++
			report.Rows++
			continue
		}
		report.Rows++

		in := core.TransactionInput{
			Kind:        cell(record, cols, "kind"),
			Amount:      cell(record, cols, "amount"),
			Date:        cell(record, cols, "date"),
			Category:    cell(record, cols, "category"),
			Card:        cell(record, cols, "card"),
			Description: cell(record, cols, "description"),
			Notes:       cell(record, cols, "notes"),
			IsRecurring: cell(record, cols, "recurring"),
		}
		tx, err := core.ValidateTransaction(in, catIndex, cardIndex)
		if err != nil {
			report.Failed = append(report.Failed, RowError{Row: rowNum, Raw: record, Err: err})
			continue
		}
		tx.OwnerID = ownerID
		staged = append(staged, tx)
	}

	if len(staged) > 0 {
		ids, err := store.CreateTransactionsBatch(ctx, ownerID, staged)
		if err != nil {
			return report, fmt.Errorf("commit batch %s: %w", report.BatchID, err)
		}
		report.Created = len(staged)
		report.CreatedIDs = ids
	}

	slog.InfoContext(ctx, "Transaction import finished",
		"batch_id", report.BatchID, "owner_id", ownerID,
		"rows", report.Rows, "created", report.Created,
		"skipped", report.Skipped, "failed", len(report.Failed))
	return report, nil
}

// ImportCategories creates the categories named in src. Rows naming a
// category the owner already has, or repeated inside the file, are
// skipped rather than failed.
func ImportCategories(ctx context.Context, store CategoryStore, ownerID int64, src RowSource) (Report, error) {
	report := Report{BatchID: uuid.NewString()}

	headers, err := src.Headers()
	if err != nil {
		return report, fmt.Errorf("read headers: %w", err)
	}
	cols, err := columnMap(headers, categoryAliases, []string{"name", "kind"})
	if err != nil {
		return report, err
	}

	existing, err := store.ListCategories(ctx, ownerID)
	if err != nil {
		return report, fmt.Errorf("load categories: %w", err)
	}
	index := core.NewCategoryIndex(existing)

	var staged []core.Category
	for rowNum := 2; ; rowNum++ {
		record, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.Failed = append(report.Failed, RowError{Row: rowNum, Err: err})
			report.Rows++
			continue
		}
		if blankRecord(record) {
			report.Skipped++
			report.Rows++
			continue
		}
		report.Rows++

		in := core.CategoryInput{
			Name: cell(record, cols, "name"),
			Kind: cell(record, cols, "kind"),
		}
		cat, err := core.ValidateCategory(in, index)
		if errors.Is(err, core.ErrDuplicateCategory) {
			report.Skipped++
			continue
		}
		if err != nil {
			report.Failed = append(report.Failed, RowError{Row: rowNum, Raw: record, Err: err})
			continue
		}
		cat.OwnerID = ownerID
		index.Add(cat)
		staged = append(staged, cat)
	}

	if len(staged) > 0 {
		n, err := store.CreateCategoriesBatch(ctx, ownerID, staged)
		if err != nil {
			return report, fmt.Errorf("commit batch %s: %w", report.BatchID, err)
		}
		report.Created = n
	}

	slog.InfoContext(ctx, "Category import finished",
		"batch_id", report.BatchID, "owner_id", ownerID,
		"rows", report.Rows, "created", report.Created,
		"skipped", report.Skipped, "failed", len(report.Failed))
	return report, nil
}
