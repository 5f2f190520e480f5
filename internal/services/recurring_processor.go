package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"contabile/internal/core"
	"contabile/internal/storage"
)

// RecurringProcessor materializes recurring transactions into the
// current month. A transaction flagged is_recurring acts as a
// template: once per month a copy is created on the same day of month,
// clamped to the month's length.
type RecurringProcessor struct {
	store        *storage.Store
	transactions *TransactionService
}

func NewRecurringProcessor(store *storage.Store, transactions *TransactionService) *RecurringProcessor {
	return &RecurringProcessor{store: store, transactions: transactions}
}

// ProcessAll runs the materialization for every known user.
func (p *RecurringProcessor) ProcessAll(ctx context.Context, now time.Time) (int, error) {
	users, err := p.store.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	total := 0
	for _, u := range users {
		n, err := p.ProcessOwner(ctx, u.ID, now)
		if err != nil {
			slog.ErrorContext(ctx, "Recurring processing failed for user",
				"owner_id", u.ID, "account", u.Account, "error", err)
			continue
		}
		total += n
	}

	slog.InfoContext(ctx, "Recurring processing finished",
		"users", len(users), "created", total, "month", now.Format("2006-01"))
	return total, nil
}

// ProcessOwner creates this month's copies of the owner's recurring
// transactions. A template is the most recent recurring transaction
// for each (kind, category, card, amount, description) signature; a
// signature already present this month is left alone, so the run is
// idempotent.
func (p *RecurringProcessor) ProcessOwner(ctx context.Context, ownerID int64, now time.Time) (int, error) {
	year, month := now.Year(), int(now.Month())

	recurring, err := p.store.ListTransactions(ctx, ownerID, storage.TransactionFilter{OnlyRecurring: true})
	if err != nil {
		return 0, fmt.Errorf("list recurring transactions: %w", err)
	}

	seen := map[string]bool{}
	templates := map[string]core.Transaction{}
	for _, t := range recurring {
		sig := recurringSignature(t)
		if t.Date.Year() == year && t.Date.Month() == month {
			seen[sig] = true
			continue
		}
		// Listing is newest first, so the first hit per signature is
		// the latest template.
		if _, ok := templates[sig]; !ok {
			templates[sig] = t
		}
	}

	created := 0
	for sig, tmpl := range templates {
		if seen[sig] {
			continue
		}

		day := core.ClampDay(year, month, tmpl.Date.Day())
		clone := tmpl
		clone.ID = 0
		clone.Date = core.NewDate(year, month, day)

		if _, err := p.store.CreateTransaction(ctx, clone); err != nil {
			slog.ErrorContext(ctx, "Failed to create recurring copy",
				"owner_id", ownerID, "template_id", tmpl.ID, "error", err)
			continue
		}
		created++
	}

	if created > 0 && p.transactions != nil {
		p.transactions.changed(ownerID)
	}
	return created, nil
}

func recurringSignature(t core.Transaction) string {
	return fmt.Sprintf("%s/%d/%d/%d/%s", t.Kind, t.CategoryID, t.CardID, t.Amount.Cents, t.Description)
}
