package services

import (
	"context"
	"fmt"
	"log/slog"

	"contabile/internal/amqp"
	"contabile/internal/core"
	"contabile/internal/storage"
)

// TransactionService orchestrates transaction writes across SQLite and
// AMQP. The database is the source of truth; sync messages are best
// effort and never fail a request.
type TransactionService struct {
	store      *storage.Store
	amqpClient *amqp.Client
	onChange   func(ownerID int64)
}

func NewTransactionService(store *storage.Store, amqpClient *amqp.Client) *TransactionService {
	return &TransactionService{store: store, amqpClient: amqpClient}
}

// OnChange registers a callback fired after every successful write,
// used to drop cached summaries for the owner.
func (s *TransactionService) OnChange(fn func(ownerID int64)) {
	s.onChange = fn
}

// Create validates the raw input against the owner's categories and
// cards, persists the transaction and publishes a sync message.
func (s *TransactionService) Create(ctx context.Context, ownerID int64, in core.TransactionInput) (core.Transaction, error) {
	tx, err := s.validate(ctx, ownerID, in)
	if err != nil {
		return core.Transaction{}, err
	}

	tx, err = s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.changed(ownerID)

	s.publish(ctx, amqp.NewTransactionCreatedMessage(ownerID, tx.ID))
	return tx, nil
}

// Update revalidates and replaces an existing transaction.
func (s *TransactionService) Update(ctx context.Context, ownerID, id int64, in core.TransactionInput) (core.Transaction, error) {
	tx, err := s.validate(ctx, ownerID, in)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.ID = id

	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, err
	}
	s.changed(ownerID)
	return s.store.GetTransaction(ctx, ownerID, id)
}

func (s *TransactionService) Delete(ctx context.Context, ownerID, id int64) error {
	if err := s.store.DeleteTransaction(ctx, ownerID, id); err != nil {
		return err
	}
	s.changed(ownerID)
	return nil
}

func (s *TransactionService) Get(ctx context.Context, ownerID, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, ownerID, id)
}

func (s *TransactionService) List(ctx context.Context, ownerID int64, f storage.TransactionFilter) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, ownerID, f)
}

func (s *TransactionService) validate(ctx context.Context, ownerID int64, in core.TransactionInput) (core.Transaction, error) {
	cats, err := s.store.ListCategories(ctx, ownerID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load categories: %w", err)
	}
	cards, err := s.store.ListCards(ctx, ownerID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load cards: %w", err)
	}

	tx, err := core.ValidateTransaction(in, core.NewCategoryIndex(cats), core.NewCardIndex(cards))
	if err != nil {
		return core.Transaction{}, err
	}
	tx.OwnerID = ownerID
	return tx, nil
}

func (s *TransactionService) changed(ownerID int64) {
	if s.onChange != nil {
		s.onChange(ownerID)
	}
}

func (s *TransactionService) publish(ctx context.Context, msg *amqp.SyncMessage) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message", "type", msg.Type)
		return
	}
	if err := s.amqpClient.Publish(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"type", msg.Type, "owner_id", msg.OwnerID, "error", err)
	}
}

// Close closes both storage and AMQP connections.
func (s *TransactionService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}
	return nil
}
