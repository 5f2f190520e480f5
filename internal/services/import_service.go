package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"contabile/internal/amqp"
	"contabile/internal/importer"
	"contabile/internal/sheets"
	"contabile/internal/storage"
)

// ErrNoSheetSource is returned when a spreadsheet import is requested
// but no spreadsheet reader is configured.
var ErrNoSheetSource = errors.New("no spreadsheet source configured")

// ImportService runs file imports against the store and announces the
// outcome on the sync queue.
type ImportService struct {
	store      *storage.Store
	amqpClient *amqp.Client
	reader     sheets.RowsReader
	onChange   func(ownerID int64)
}

func NewImportService(store *storage.Store, amqpClient *amqp.Client) *ImportService {
	return &ImportService{store: store, amqpClient: amqpClient}
}

func (s *ImportService) OnChange(fn func(ownerID int64)) {
	s.onChange = fn
}

// SetSheetReader enables spreadsheet-sourced imports.
func (s *ImportService) SetSheetReader(r sheets.RowsReader) {
	s.reader = r
}

// ImportTransactions imports an uploaded transactions file. The name
// only matters for its extension.
func (s *ImportService) ImportTransactions(ctx context.Context, ownerID int64, name string, r io.Reader) (importer.Report, error) {
	src, err := importer.OpenSource(name, r)
	if err != nil {
		return importer.Report{}, err
	}
	defer src.Close()

	return s.runTransactions(ctx, ownerID, src)
}

// ImportTransactionRows imports rows already in memory, such as a
// Google Sheets pull.
func (s *ImportService) ImportTransactionRows(ctx context.Context, ownerID int64, rows [][]string) (importer.Report, error) {
	src, err := importer.NewRowsSource(rows)
	if err != nil {
		return importer.Report{}, err
	}
	return s.runTransactions(ctx, ownerID, src)
}

// ImportFromSheet pulls the named sheet from the configured
// spreadsheet reader and imports its rows. An empty sheetName uses the
// reader's default sheet.
func (s *ImportService) ImportFromSheet(ctx context.Context, ownerID int64, sheetName string) (importer.Report, error) {
	if s.reader == nil {
		return importer.Report{}, ErrNoSheetSource
	}

	rows, err := s.reader.ReadRows(ctx, sheetName)
	if err != nil {
		return importer.Report{}, fmt.Errorf("read sheet rows: %w", err)
	}
	return s.ImportTransactionRows(ctx, ownerID, rows)
}

func (s *ImportService) ImportCategories(ctx context.Context, ownerID int64, name string, r io.Reader) (importer.Report, error) {
	src, err := importer.OpenSource(name, r)
	if err != nil {
		return importer.Report{}, err
	}
	defer src.Close()

	return importer.ImportCategories(ctx, s.store, ownerID, src)
}

func (s *ImportService) runTransactions(ctx context.Context, ownerID int64, src importer.RowSource) (importer.Report, error) {
	report, err := importer.ImportTransactions(ctx, s.store, ownerID, src)
	if err != nil {
		return report, err
	}

	if report.Created > 0 && s.onChange != nil {
		s.onChange(ownerID)
	}
	for _, id := range report.CreatedIDs {
		s.publish(ctx, amqp.NewTransactionCreatedMessage(ownerID, id))
	}
	s.publish(ctx, amqp.NewImportCompletedMessage(ownerID, report.BatchID, report.Created, len(report.Failed)))
	return report, nil
}

func (s *ImportService) publish(ctx context.Context, msg *amqp.SyncMessage) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message", "type", msg.Type)
		return
	}
	if err := s.amqpClient.Publish(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"type", msg.Type, "owner_id", msg.OwnerID, "error", err)
	}
}
