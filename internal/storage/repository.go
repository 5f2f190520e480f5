package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"contabile/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist or belongs to a
// different owner. Callers cannot tell the two cases apart.
var ErrNotFound = errors.New("record not found")

// Store is the SQLite-backed record store. Every query is scoped by an
// explicit owner ID; there is no ambient current-user state.
type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ---- users ----

// GetOrCreateUser resolves an account name to a user, provisioning it
// on first sight. The authentication collaborator is trusted, so there
// is nothing to verify here.
func (s *Store) GetOrCreateUser(ctx context.Context, account string) (core.User, error) {
	u := core.User{Account: account}
	err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE account = ?`, account).Scan(&u.ID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO users (account) VALUES (?)`, account)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User provisioned", "account", account, "id", u.ID)
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, account FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Account); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ---- categories ----

func (s *Store) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (owner_id, name, kind) VALUES (?, ?, ?)`,
		c.OwnerID, c.Name, string(c.Kind))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, fmt.Errorf("create category %q: %w", c.Name, core.ErrDuplicateCategory)
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, kind = ? WHERE id = ? AND owner_id = ?`,
		c.Name, string(c.Kind), c.ID, c.OwnerID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update category %q: %w", c.Name, core.ErrDuplicateCategory)
		}
		return fmt.Errorf("update category: %w", err)
	}
	return requireAffected(res, "update category")
}

func (s *Store) DeleteCategory(ctx context.Context, ownerID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(res, "delete category")
}

func (s *Store) ListCategories(ctx context.Context, ownerID int64) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, name, kind FROM categories WHERE owner_id = ? ORDER BY name, kind`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		var kind string
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &kind); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.Kind(kind)
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, ownerID, id int64) (core.Category, error) {
	var c core.Category
	var kind string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, kind FROM categories WHERE id = ? AND owner_id = ?`,
		id, ownerID).Scan(&c.ID, &c.OwnerID, &c.Name, &kind)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	c.Kind = core.Kind(kind)
	return c, nil
}

// CreateCategoriesBatch inserts all categories in one transaction; on
// any failure nothing is persisted.
func (s *Store) CreateCategoriesBatch(ctx context.Context, ownerID int64, cats []core.Category) (int, error) {
	if len(cats) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO categories (owner_id, name, kind) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range cats {
		if _, err := stmt.ExecContext(ctx, ownerID, c.Name, string(c.Kind)); err != nil {
			if isUniqueViolation(err) {
				return 0, fmt.Errorf("batch category %q: %w", c.Name, core.ErrDuplicateCategory)
			}
			return 0, fmt.Errorf("batch insert category: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	return len(cats), nil
}

// ---- cards ----

func (s *Store) CreateCard(ctx context.Context, c core.Card) (core.Card, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO cards (owner_id, name) VALUES (?, ?)`, c.OwnerID, c.Name)
	if err != nil {
		return core.Card{}, fmt.Errorf("create card: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.Card{}, fmt.Errorf("create card: %w", err)
	}
	return c, nil
}

func (s *Store) UpdateCard(ctx context.Context, c core.Card) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cards SET name = ? WHERE id = ? AND owner_id = ?`, c.Name, c.ID, c.OwnerID)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	return requireAffected(res, "update card")
}

func (s *Store) DeleteCard(ctx context.Context, ownerID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cards WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return requireAffected(res, "delete card")
}

func (s *Store) ListCards(ctx context.Context, ownerID int64) ([]core.Card, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, name FROM cards WHERE owner_id = ? ORDER BY name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []core.Card
	for rows.Next() {
		var c core.Card
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// ---- transactions ----

// TransactionFilter narrows ListTransactions. Zero values mean "no
// filter"; Search matches description or notes, case-insensitive.
type TransactionFilter struct {
	Year          int
	Month         int
	CategoryID    int64
	CardID        int64
	Search        string
	OnlyRecurring bool
	Limit         int
}

const transactionColumns = `
	t.id, t.owner_id, t.kind, t.amount_cents, t.date,
	t.category_id, c.name, COALESCE(t.card_id, 0), COALESCE(cc.name, ''),
	t.description, t.notes, t.is_recurring
`

func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (owner_id, kind, amount_cents, date, category_id, card_id, description, notes, is_recurring)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.OwnerID, string(t.Kind), t.Amount.Cents, t.Date.ISO(), t.CategoryID,
		nullableID(t.CardID), t.Description, t.Notes, t.IsRecurring)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions
		 SET kind = ?, amount_cents = ?, date = ?, category_id = ?, card_id = ?,
		     description = ?, notes = ?, is_recurring = ?
		 WHERE id = ? AND owner_id = ?`,
		string(t.Kind), t.Amount.Cents, t.Date.ISO(), t.CategoryID, nullableID(t.CardID),
		t.Description, t.Notes, t.IsRecurring, t.ID, t.OwnerID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireAffected(res, "update transaction")
}

func (s *Store) DeleteTransaction(ctx context.Context, ownerID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireAffected(res, "delete transaction")
}

func (s *Store) GetTransaction(ctx context.Context, ownerID, id int64) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions t
		 JOIN categories c ON c.id = t.category_id
		 LEFT JOIN cards cc ON cc.id = t.card_id
		 WHERE t.id = ? AND t.owner_id = ?`, id, ownerID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns the owner's transactions matching the
// filter, newest first (date desc, id desc).
func (s *Store) ListTransactions(ctx context.Context, ownerID int64, f TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		 FROM transactions t
		 JOIN categories c ON c.id = t.category_id
		 LEFT JOIN cards cc ON cc.id = t.card_id
		 WHERE t.owner_id = ?`
	args := []any{ownerID}

	if f.Year != 0 {
		query += ` AND CAST(strftime('%Y', t.date) AS INTEGER) = ?`
		args = append(args, f.Year)
	}
	if f.Month != 0 {
		query += ` AND CAST(strftime('%m', t.date) AS INTEGER) = ?`
		args = append(args, f.Month)
	}
	if f.CategoryID != 0 {
		query += ` AND t.category_id = ?`
		args = append(args, f.CategoryID)
	}
	if f.CardID != 0 {
		query += ` AND t.card_id = ?`
		args = append(args, f.CardID)
	}
	if f.Search != "" {
		query += ` AND (t.description LIKE ? OR t.notes LIKE ?)`
		pattern := "%" + strings.TrimSpace(f.Search) + "%"
		args = append(args, pattern, pattern)
	}
	if f.OnlyRecurring {
		query += ` AND t.is_recurring = 1`
	}
	query += ` ORDER BY t.date DESC, t.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// CreateTransactionsBatch persists validated import rows in one
// transaction: either every row lands or none does. Returns the new
// IDs in input order.
func (s *Store) CreateTransactionsBatch(ctx context.Context, ownerID int64, txs []core.Transaction) ([]int64, error) {
	if len(txs) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transactions (owner_id, kind, amount_cents, date, category_id, card_id, description, notes, is_recurring)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare batch insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(txs))
	for _, t := range txs {
		res, err := stmt.ExecContext(ctx, ownerID, string(t.Kind), t.Amount.Cents,
			t.Date.ISO(), t.CategoryID, nullableID(t.CardID), t.Description, t.Notes, t.IsRecurring)
		if err != nil {
			return nil, fmt.Errorf("batch insert transaction: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("batch insert transaction: %w", err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}

	slog.InfoContext(ctx, "Transaction batch committed", "owner_id", ownerID, "count", len(ids))
	return ids, nil
}

// ---- card payments ----

func (s *Store) CreateCardPayment(ctx context.Context, p core.CardPayment) (core.CardPayment, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO card_payments (owner_id, card_id, amount_cents, date, notes) VALUES (?, ?, ?, ?, ?)`,
		p.OwnerID, p.CardID, p.Amount.Cents, p.Date.ISO(), p.Notes)
	if err != nil {
		return core.CardPayment{}, fmt.Errorf("create card payment: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return core.CardPayment{}, fmt.Errorf("create card payment: %w", err)
	}
	return p, nil
}

func (s *Store) DeleteCardPayment(ctx context.Context, ownerID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM card_payments WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete card payment: %w", err)
	}
	return requireAffected(res, "delete card payment")
}

// ListCardPayments returns the owner's payments, optionally narrowed to
// a month and/or card, newest first.
func (s *Store) ListCardPayments(ctx context.Context, ownerID int64, year, month int, cardID int64) ([]core.CardPayment, error) {
	query := `SELECT p.id, p.owner_id, p.card_id, cc.name, p.amount_cents, p.date, p.notes
		 FROM card_payments p
		 JOIN cards cc ON cc.id = p.card_id
		 WHERE p.owner_id = ?`
	args := []any{ownerID}

	if year != 0 {
		query += ` AND CAST(strftime('%Y', p.date) AS INTEGER) = ?`
		args = append(args, year)
	}
	if month != 0 {
		query += ` AND CAST(strftime('%m', p.date) AS INTEGER) = ?`
		args = append(args, month)
	}
	if cardID != 0 {
		query += ` AND p.card_id = ?`
		args = append(args, cardID)
	}
	query += ` ORDER BY p.date DESC, p.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list card payments: %w", err)
	}
	defer rows.Close()

	var payments []core.CardPayment
	for rows.Next() {
		var p core.CardPayment
		var date string
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.CardID, &p.Card, &p.Amount.Cents, &date, &p.Notes); err != nil {
			return nil, fmt.Errorf("scan card payment: %w", err)
		}
		p.Date, err = core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("scan card payment date: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ---- helpers ----

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var kind, date string
	err := row.Scan(&t.ID, &t.OwnerID, &kind, &t.Amount.Cents, &date,
		&t.CategoryID, &t.Category, &t.CardID, &t.Card,
		&t.Description, &t.Notes, &t.IsRecurring)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Kind = core.Kind(kind)
	t.Date, err = core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	return t, nil
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
