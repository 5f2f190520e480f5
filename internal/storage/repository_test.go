package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"contabile/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "contabile_test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedUser(t *testing.T, s *Store) core.User {
	t.Helper()
	u, err := s.GetOrCreateUser(context.Background(), "tester")
	if err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}
	return u
}

func seedCategory(t *testing.T, s *Store, ownerID int64, name string, kind core.Kind) core.Category {
	t.Helper()
	c, err := s.CreateCategory(context.Background(), core.Category{OwnerID: ownerID, Name: name, Kind: kind})
	if err != nil {
		t.Fatalf("CreateCategory %q: %v", name, err)
	}
	return c
}

func TestGetOrCreateUserIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.GetOrCreateUser(ctx, "alice")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := store.GetOrCreateUser(ctx, "alice")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same user ID, got %d and %d", first.ID, second.ID)
	}
}

func TestCategoryCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, store)

	cat := seedCategory(t, store, user.ID, "Food", core.Expense)
	if cat.ID == 0 {
		t.Fatal("expected non-zero category ID")
	}

	cat.Name = "Groceries"
	if err := store.UpdateCategory(ctx, cat); err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}

	got, err := store.GetCategory(ctx, user.ID, cat.ID)
	if err != nil {
		t.Fatalf("GetCategory: %v", err)
	}
	if got.Name != "Groceries" || got.Kind != core.Expense {
		t.Fatalf("unexpected category after update: %+v", got)
	}

	if err := store.DeleteCategory(ctx, user.ID, cat.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if _, err := store.GetCategory(ctx, user.ID, cat.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCreateCategoryDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, store)

	seedCategory(t, store, user.ID, "Food", core.Expense)

	_, err := store.CreateCategory(ctx, core.Category{OwnerID: user.ID, Name: "food", Kind: core.Expense})
	if !errors.Is(err, core.ErrDuplicateCategory) {
		t.Fatalf("expected ErrDuplicateCategory, got %v", err)
	}

	// Same name under the other kind is a different category.
	if _, err := store.CreateCategory(ctx, core.Category{OwnerID: user.ID, Name: "Food", Kind: core.Income}); err != nil {
		t.Fatalf("same name under other kind: %v", err)
	}
}

func TestCategoriesAreOwnerScoped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice, _ := store.GetOrCreateUser(ctx, "alice")
	bob, _ := store.GetOrCreateUser(ctx, "bob")

	cat := seedCategory(t, store, alice.ID, "Food", core.Expense)

	// Bob may reuse the name and cannot see or touch Alice's category.
	seedCategory(t, store, bob.ID, "Food", core.Expense)

	if _, err := store.GetCategory(ctx, bob.ID, cat.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for cross-owner get, got %v", err)
	}
	if err := store.DeleteCategory(ctx, bob.ID, cat.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for cross-owner delete, got %v", err)
	}

	cats, err := store.ListCategories(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != 1 {
		t.Fatalf("expected 1 category for alice, got %d", len(cats))
	}
}

func TestTransactionCRUDAndFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, store)

	food := seedCategory(t, store, user.ID, "Food", core.Expense)
	salary := seedCategory(t, store, user.ID, "Salary", core.Income)
	card, err := store.CreateCard(ctx, core.Card{OwnerID: user.ID, Name: "Violet"})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}

	mk := func(kind core.Kind, cents int64, date string, catID, cardID int64, desc string) core.Transaction {
		d, err := core.ParseDate(date)
		if err != nil {
			t.Fatalf("parse date %q: %v", date, err)
		}
		tx, err := store.CreateTransaction(ctx, core.Transaction{
			OwnerID: user.ID, Kind: kind, Amount: core.Money{Cents: cents},
			Date: d, CategoryID: catID, CardID: cardID, Description: desc,
		})
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
		return tx
	}

	lunch := mk(core.Expense, 3500, "2025-03-10", food.ID, card.ID, "Lunch out")
	mk(core.Expense, 12000, "2025-03-20", food.ID, 0, "Groceries")
	mk(core.Income, 500000, "2025-03-01", salary.ID, 0, "March salary")
	mk(core.Expense, 9900, "2025-04-02", food.ID, 0, "April groceries")

	got, err := store.GetTransaction(ctx, user.ID, lunch.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.Category != "Food" || got.Card != "Violet" {
		t.Fatalf("expected resolved names, got category=%q card=%q", got.Category, got.Card)
	}
	if got.Date.ISO() != "2025-03-10" {
		t.Fatalf("unexpected date %q", got.Date.ISO())
	}

	march, err := store.ListTransactions(ctx, user.ID, TransactionFilter{Year: 2025, Month: 3})
	if err != nil {
		t.Fatalf("ListTransactions month: %v", err)
	}
	if len(march) != 3 {
		t.Fatalf("expected 3 transactions in March, got %d", len(march))
	}
	// Newest first.
	if march[0].Description != "Groceries" {
		t.Fatalf("expected newest first, got %q", march[0].Description)
	}

	byCard, err := store.ListTransactions(ctx, user.ID, TransactionFilter{CardID: card.ID})
	if err != nil {
		t.Fatalf("ListTransactions card: %v", err)
	}
	if len(byCard) != 1 || byCard[0].ID != lunch.ID {
		t.Fatalf("card filter mismatch: %+v", byCard)
	}

	bySearch, err := store.ListTransactions(ctx, user.ID, TransactionFilter{Search: "groceries"})
	if err != nil {
		t.Fatalf("ListTransactions search: %v", err)
	}
	if len(bySearch) != 2 {
		t.Fatalf("expected 2 search hits, got %d", len(bySearch))
	}

	lunch.Amount.Cents = 4200
	lunch.CardID = 0
	if err := store.UpdateTransaction(ctx, lunch); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	got, err = store.GetTransaction(ctx, user.ID, lunch.ID)
	if err != nil {
		t.Fatalf("GetTransaction after update: %v", err)
	}
	if got.Amount.Cents != 4200 || got.CardID != 0 || got.Card != "" {
		t.Fatalf("unexpected transaction after update: %+v", got)
	}

	if err := store.DeleteTransaction(ctx, user.ID, lunch.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if _, err := store.GetTransaction(ctx, user.ID, lunch.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCreateTransactionsBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, store)
	food := seedCategory(t, store, user.ID, "Food", core.Expense)

	date, _ := core.ParseDate("2025-05-05")
	batch := []core.Transaction{
		{Kind: core.Expense, Amount: core.Money{Cents: 1000}, Date: date, CategoryID: food.ID, Description: "a"},
		{Kind: core.Expense, Amount: core.Money{Cents: 2000}, Date: date, CategoryID: food.ID, Description: "b"},
		{Kind: core.Expense, Amount: core.Money{Cents: 3000}, Date: date, CategoryID: food.ID, Description: "c"},
	}

	ids, err := store.CreateTransactionsBatch(ctx, user.ID, batch)
	if err != nil {
		t.Fatalf("CreateTransactionsBatch: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 IDs, got %d", len(ids))
	}

	txs, err := store.ListTransactions(ctx, user.ID, TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3 stored transactions, got %d", len(txs))
	}
}

func TestCreateTransactionsBatchAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, store)
	food := seedCategory(t, store, user.ID, "Food", core.Expense)

	date, _ := core.ParseDate("2025-05-05")
	batch := []core.Transaction{
		{Kind: core.Expense, Amount: core.Money{Cents: 1000}, Date: date, CategoryID: food.ID, Description: "ok"},
		// References a category that does not exist, so the insert
		// violates the foreign key and the whole batch must roll back.
		{Kind: core.Expense, Amount: core.Money{Cents: 2000}, Date: date, CategoryID: 999, Description: "broken"},
	}

	if _, err := store.CreateTransactionsBatch(ctx, user.ID, batch); err == nil {
		t.Fatal("expected batch to fail")
	}

	txs, err := store.ListTransactions(ctx, user.ID, TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("expected empty store after failed batch, got %d rows", len(txs))
	}
}

func TestCardPayments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, store)

	card, err := store.CreateCard(ctx, core.Card{OwnerID: user.ID, Name: "Violet"})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}

	date, _ := core.ParseDate("2025-03-15")
	payment, err := store.CreateCardPayment(ctx, core.CardPayment{
		OwnerID: user.ID, CardID: card.ID, Amount: core.Money{Cents: 3000}, Date: date, Notes: "partial bill",
	})
	if err != nil {
		t.Fatalf("CreateCardPayment: %v", err)
	}

	payments, err := store.ListCardPayments(ctx, user.ID, 2025, 3, card.ID)
	if err != nil {
		t.Fatalf("ListCardPayments: %v", err)
	}
	if len(payments) != 1 || payments[0].Card != "Violet" || payments[0].Amount.Cents != 3000 {
		t.Fatalf("unexpected payments: %+v", payments)
	}

	none, err := store.ListCardPayments(ctx, user.ID, 2025, 4, 0)
	if err != nil {
		t.Fatalf("ListCardPayments other month: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no payments in April, got %d", len(none))
	}

	if err := store.DeleteCardPayment(ctx, user.ID, payment.ID); err != nil {
		t.Fatalf("DeleteCardPayment: %v", err)
	}
}
