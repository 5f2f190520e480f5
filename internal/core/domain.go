package core

import (
	"strings"
	"time"
)

const (
	Income  Kind = "INCOME"
	Expense Kind = "EXPENSE"
)

type (
	// Kind classifies both categories and transactions.
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID      int64
		Account string
	}

	Category struct {
		ID      int64
		OwnerID int64
		Name    string
		Kind    Kind
	}

	Card struct {
		ID      int64
		OwnerID int64
		Name    string
	}

	// Transaction is a single income or expense entry. CardID marks a
	// credit-card charge; it is zero for regular transactions. Category
	// and Card carry the resolved names on reads.
	Transaction struct {
		ID          int64
		OwnerID     int64
		Kind        Kind
		Amount      Money
		Date        Date
		CategoryID  int64
		Category    string
		CardID      int64
		Card        string
		Description string
		Notes       string
		IsRecurring bool
	}

	// CardPayment reduces the open balance of a card. It is not an
	// expense: it never counts into the monthly expense totals.
	CardPayment struct {
		ID      int64
		OwnerID int64
		CardID  int64
		Card    string
		Amount  Money
		Date    Date
		Notes   string
	}
)

// kindAliases maps lowercase textual inputs to canonical kinds.
// Portuguese aliases are kept for spreadsheet compatibility.
var kindAliases = map[string]Kind{
	"income":  Income,
	"receita": Income,
	"in":      Income,
	"expense": Expense,
	"despesa": Expense,
	"out":     Expense,
}

// ParseKind normalizes a textual kind. Matching is case-insensitive and
// accepts the alias set above.
func ParseKind(s string) (Kind, bool) {
	k, ok := kindAliases[Fold(s)]
	return k, ok
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Year() int  { return d.Time.Year() }
func (d Date) Month() int { return int(d.Time.Month()) }
func (d Date) Day() int   { return d.Time.Day() }

// ISO returns the date formatted as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Time.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fieldError(ErrInvalidDate, "date", "date cannot be zero")
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return fieldError(ErrInvalidAmount, "amount", "amount must be greater than zero")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fieldError(ErrInvalidName, "name", "category name is required")
	}
	if !c.Kind.Valid() {
		return fieldError(ErrInvalidKind, "kind", "kind must be INCOME or EXPENSE")
	}
	return nil
}

func (c Card) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fieldError(ErrInvalidName, "name", "card name is required")
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return fieldError(ErrInvalidKind, "kind", "kind must be INCOME or EXPENSE")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.CategoryID == 0 {
		return fieldError(ErrCategoryNotFound, "category", "category is required")
	}
	if len(t.Description) > 255 {
		return fieldError(ErrInvalidName, "description", "description too long (max 255 characters)")
	}
	return nil
}

func (p CardPayment) Validate() error {
	if p.CardID == 0 {
		return fieldError(ErrCardNotFound, "card", "card is required")
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	return p.Date.Validate()
}
